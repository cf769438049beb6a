package appointments

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"medibook-server/internal/models"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name      string
		current   models.AppointmentStatus
		requested models.AppointmentStatus
		actor     models.Role
		want      models.AppointmentStatus
		wantKind  Kind
	}{
		{"provider confirms", models.StatusScheduled, models.StatusConfirmed, models.RoleProvider, models.StatusConfirmed, ""},
		{"provider completes scheduled", models.StatusScheduled, models.StatusCompleted, models.RoleProvider, models.StatusCompleted, ""},
		{"provider completes confirmed", models.StatusConfirmed, models.StatusCompleted, models.RoleProvider, models.StatusCompleted, ""},
		{"provider marks no-show", models.StatusConfirmed, models.StatusNoShow, models.RoleProvider, models.StatusNoShow, ""},
		{"patient cancels", models.StatusConfirmed, models.StatusCancelled, models.RolePatient, models.StatusCancelled, ""},
		{"same status is a no-op", models.StatusConfirmed, models.StatusConfirmed, models.RoleProvider, models.StatusConfirmed, ""},
		{"patient cannot confirm", models.StatusScheduled, models.StatusConfirmed, models.RolePatient, "", KindForbidden},
		{"patient cannot complete", models.StatusScheduled, models.StatusCompleted, models.RolePatient, "", KindForbidden},
		{"completed is terminal", models.StatusCompleted, models.StatusCancelled, models.RoleProvider, "", KindInvalidState},
		{"cancelled is terminal", models.StatusCancelled, models.StatusConfirmed, models.RoleProvider, "", KindInvalidState},
		{"no-show is terminal", models.StatusNoShow, models.StatusCompleted, models.RoleProvider, "", KindInvalidState},
		{"patient cannot cancel completed", models.StatusCompleted, models.StatusCancelled, models.RolePatient, "", KindInvalidState},
		{"scheduled only via reschedule", models.StatusConfirmed, models.StatusScheduled, models.RoleProvider, "", KindInvalidState},
		{"unknown status", models.StatusScheduled, "done", models.RoleProvider, "", KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.current, tt.requested, tt.actor)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, KindOf(err))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanReschedule(t *testing.T) {
	assert.True(t, CanReschedule(models.StatusScheduled))
	assert.True(t, CanReschedule(models.StatusConfirmed))
	assert.False(t, CanReschedule(models.StatusCompleted))
	assert.False(t, CanReschedule(models.StatusCancelled))
	assert.False(t, CanReschedule(models.StatusNoShow))
}

func TestCancelledBy(t *testing.T) {
	assert.Equal(t, models.CancelledByPatient, cancelledBy(models.RolePatient))
	assert.Equal(t, models.CancelledByProvider, cancelledBy(models.RoleProvider))
	assert.Equal(t, models.CancelledByAdmin, cancelledBy(models.RoleAdmin))
}
