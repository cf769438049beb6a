package appointments

import (
	"context"
	"math"

	"medibook-server/internal/models"
	"medibook-server/internal/repository"
)

// ListQuery holds the optional listing filters and paging. Page and Limit
// below 1 fall back to defaults.
type ListQuery struct {
	Status string
	Date   string
	Page   int
	Limit  int
}

// Page is one page of a listing.
type Page struct {
	Appointments []models.Appointment `json:"appointments"`
	Count        int                  `json:"count"`
	Total        int64                `json:"total"`
	TotalPages   int                  `json:"totalPages"`
	CurrentPage  int                  `json:"currentPage"`
}

// ListAll is the administrative listing across every appointment.
func (s *Service) ListAll(ctx context.Context, p Principal, q ListQuery) (_ *Page, err error) {
	defer s.observe("list_all", &err)

	if p.Role != models.RoleAdmin {
		return nil, forbidden("only administrators can list all appointments")
	}
	filter, err := s.filter(q, true)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter, repository.SortNewestFirst, q)
}

// ListForPatient lists the calling patient's appointments, newest first.
func (s *Service) ListForPatient(ctx context.Context, p Principal, q ListQuery) (_ *Page, err error) {
	defer s.observe("list_patient", &err)

	if p.Role != models.RolePatient {
		return nil, forbidden("only patients can list their appointments here")
	}
	filter, err := s.filter(q, false)
	if err != nil {
		return nil, err
	}
	filter.PatientID = p.ID
	return s.list(ctx, filter, repository.SortNewestFirst, q)
}

// ListForProvider lists the calling provider's schedule in chronological
// order.
func (s *Service) ListForProvider(ctx context.Context, p Principal, q ListQuery) (_ *Page, err error) {
	defer s.observe("list_provider", &err)

	if p.Role != models.RoleProvider {
		return nil, forbidden("only providers can list their schedule")
	}
	filter, err := s.filter(q, true)
	if err != nil {
		return nil, err
	}
	filter.ProviderID = p.ID
	return s.list(ctx, filter, repository.SortChronological, q)
}

func (s *Service) filter(q ListQuery, byDate bool) (repository.AppointmentFilter, error) {
	var filter repository.AppointmentFilter
	if q.Status != "" {
		status := models.AppointmentStatus(q.Status)
		if !status.Valid() {
			return filter, validationError("invalid status %q", q.Status)
		}
		filter.Status = status
	}
	if byDate && q.Date != "" {
		day, err := ParseDate(q.Date)
		if err != nil {
			return filter, validationError("date must be a date (YYYY-MM-DD)")
		}
		from, to := DayRange(day)
		filter.DateFrom, filter.DateTo = &from, &to
	}
	return filter, nil
}

func (s *Service) list(ctx context.Context, filter repository.AppointmentFilter, order repository.SortOrder, q ListQuery) (*Page, error) {
	page, limit := s.paging(q)

	total, err := s.appointments.CountAppointments(ctx, filter)
	if err != nil {
		return nil, internal("failed to count appointments", err)
	}
	items, err := s.appointments.ListAppointments(ctx, filter, order, (page-1)*limit, limit)
	if err != nil {
		return nil, internal("failed to list appointments", err)
	}
	if items == nil {
		items = []models.Appointment{}
	}

	return &Page{
		Appointments: items,
		Count:        len(items),
		Total:        total,
		TotalPages:   int((total + int64(limit) - 1) / int64(limit)),
		CurrentPage:  page,
	}, nil
}

func (s *Service) paging(q ListQuery) (page, limit int) {
	page, limit = q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	// (page-1)*limit must stay within int.
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}
	return page, limit
}
