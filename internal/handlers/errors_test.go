package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medibook-server/internal/appointments"
	"medibook-server/internal/models"
)

func TestRespondErrorStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	_, forbiddenErr := appointments.Transition(models.StatusScheduled, models.StatusConfirmed, models.RolePatient)
	_, invalidErr := appointments.Transition(models.StatusCompleted, models.StatusCancelled, models.RoleProvider)
	_, validationErr := appointments.Transition(models.StatusScheduled, "later", models.RoleProvider)

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", validationErr, http.StatusBadRequest},
		{"invalid state", invalidErr, http.StatusBadRequest},
		{"forbidden", forbiddenErr, http.StatusForbidden},
		{"not found", &appointments.Error{Kind: appointments.KindNotFound, Message: "appointment not found"}, http.StatusNotFound},
		{"conflict", &appointments.Error{Kind: appointments.KindConflict, Message: "retry"}, http.StatusConflict},
		{"wrapped", fmt.Errorf("handler: %w", &appointments.Error{Kind: appointments.KindNotFound, Message: "gone"}), http.StatusNotFound},
		{"foreign", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tt.err)

			assert.Equal(t, tt.code, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["message"])
		})
	}
}
