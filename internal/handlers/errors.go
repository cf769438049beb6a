package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medibook-server/internal/appointments"
	"medibook-server/internal/utils"
)

// respondError maps a lifecycle error to its status code.
func respondError(c *gin.Context, err error) {
	var appErr *appointments.Error
	if !errors.As(err, &appErr) {
		utils.InternalServerError(c, err)
		return
	}

	switch appErr.Kind {
	case appointments.KindValidation, appointments.KindInvalidState:
		utils.BadRequest(c, appErr.Message)
	case appointments.KindNotFound:
		utils.NotFound(c, appErr.Message)
	case appointments.KindForbidden:
		utils.Forbidden(c, appErr.Message)
	case appointments.KindConflict:
		utils.Conflict(c, appErr.Message)
	default:
		utils.Error(c, http.StatusInternalServerError, "Server error", appErr)
	}
}
