package appointments

import (
	"medibook-server/internal/models"
)

// Transition decides the status an appointment moves to when actor requests
// requested while it is in current.
//
// Completed, cancelled and no-show are terminal. Scheduled can only be
// re-entered through Reschedule. Patients may only cancel.
func Transition(current, requested models.AppointmentStatus, actor models.Role) (models.AppointmentStatus, error) {
	if !requested.Valid() {
		return "", validationError("invalid status %q", requested)
	}
	if actor == models.RolePatient && requested != models.StatusCancelled {
		return "", forbidden("patients can only cancel appointments")
	}
	if requested == current {
		return current, nil
	}
	if isTerminal(current) {
		return "", invalidState("cannot change status of a %s appointment", current)
	}
	if requested == models.StatusScheduled {
		return "", invalidState("use reschedule to move a %s appointment back to scheduled", current)
	}
	return requested, nil
}

// CanReschedule reports whether an appointment in status may be moved to a
// new date.
func CanReschedule(status models.AppointmentStatus) bool {
	return status == models.StatusScheduled || status == models.StatusConfirmed
}

func isTerminal(status models.AppointmentStatus) bool {
	switch status {
	case models.StatusCompleted, models.StatusCancelled, models.StatusNoShow:
		return true
	}
	return false
}

func cancelledBy(role models.Role) models.CancelledBy {
	switch role {
	case models.RoleProvider:
		return models.CancelledByProvider
	case models.RoleAdmin:
		return models.CancelledByAdmin
	default:
		return models.CancelledByPatient
	}
}
