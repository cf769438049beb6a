package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"medibook-server/internal/appointments"
	"medibook-server/internal/middleware"
	"medibook-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Service *appointments.Service
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(service *appointments.Service) *AppointmentHandler {
	return &AppointmentHandler{Service: service}
}

// CreateAppointment handles booking a new appointment for the calling patient.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req appointments.CreateInput
	if !utils.DecodeJSON(c, &req) {
		return
	}

	appointment, err := h.Service.Create(c.Request.Context(), principal, req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, gin.H{"appointment": appointment})
}

// GetAppointmentByID handles fetching a single appointment by its ID.
// Accessible by the patient or provider on the appointment.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	appointment, err := h.Service.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"appointment": appointment})
}

// UpdateAppointmentStatus handles updating the status of an appointment.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req appointments.StatusInput
	if !utils.DecodeJSON(c, &req) {
		return
	}

	appointment, err := h.Service.UpdateStatus(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"appointment": appointment})
}

// CancelAppointment handles cancelling an appointment with a reason.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req appointments.CancelInput
	if !utils.DecodeJSON(c, &req) {
		return
	}

	appointment, err := h.Service.Cancel(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"appointment": appointment})
}

// RescheduleAppointment handles moving an appointment to a new date and time.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req appointments.RescheduleInput
	if !utils.DecodeJSON(c, &req) {
		return
	}

	appointment, err := h.Service.Reschedule(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"appointment": appointment})
}

// AddAppointmentFeedback handles the patient's feedback on a completed appointment.
func (h *AppointmentHandler) AddAppointmentFeedback(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req appointments.FeedbackInput
	if !utils.DecodeJSON(c, &req) {
		return
	}

	appointment, err := h.Service.AddFeedback(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"appointment": appointment})
}

// GetAllAppointments handles the administrative listing.
func (h *AppointmentHandler) GetAllAppointments(c *gin.Context) {
	h.list(c, h.Service.ListAll)
}

// GetPatientAppointments handles listing the calling patient's appointments.
func (h *AppointmentHandler) GetPatientAppointments(c *gin.Context) {
	h.list(c, h.Service.ListForPatient)
}

// GetProviderAppointments handles listing the calling provider's schedule.
func (h *AppointmentHandler) GetProviderAppointments(c *gin.Context) {
	h.list(c, h.Service.ListForProvider)
}

type listFunc func(ctx context.Context, p appointments.Principal, q appointments.ListQuery) (*appointments.Page, error)

func (h *AppointmentHandler) list(c *gin.Context, fn listFunc) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	page, err := fn(c.Request.Context(), principal, listQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{
		"count":        page.Count,
		"total":        page.Total,
		"totalPages":   page.TotalPages,
		"currentPage":  page.CurrentPage,
		"appointments": page.Appointments,
	})
}

// listQuery reads filters and paging from the query string. Unparsable
// numbers fall back to the defaults.
func listQuery(c *gin.Context) appointments.ListQuery {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return appointments.ListQuery{
		Status: c.Query("status"),
		Date:   c.Query("date"),
		Page:   page,
		Limit:  limit,
	}
}

func requirePrincipal(c *gin.Context) (appointments.Principal, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return appointments.Principal{}, false
	}
	return principal, true
}
