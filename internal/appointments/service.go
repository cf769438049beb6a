package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medibook-server/internal/metrics"
	"medibook-server/internal/models"
	"medibook-server/internal/repository"
)

// AppointmentStore is the persistence the engine needs for appointments.
type AppointmentStore interface {
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	FindAppointment(ctx context.Context, id string) (*models.Appointment, error)
	SaveAppointment(ctx context.Context, a *models.Appointment) error
	ListAppointments(ctx context.Context, filter repository.AppointmentFilter, order repository.SortOrder, skip, limit int) ([]models.Appointment, error)
	CountAppointments(ctx context.Context, filter repository.AppointmentFilter) (int64, error)
}

// ProviderStore is the persistence the engine needs for providers.
type ProviderStore interface {
	LookupProvider(ctx context.Context, id string) (*models.ProviderSummary, error)
	FindProvider(ctx context.Context, id string) (*models.Provider, error)
	AppendReview(ctx context.Context, p *models.Provider, review *models.Review, rating float64) error
}

// Principal is the authenticated caller.
type Principal struct {
	ID   string
	Role models.Role
}

// CreateInput is the body of a booking request.
type CreateInput struct {
	ProviderID      string                 `json:"providerId" validate:"required"`
	AppointmentDate string                 `json:"appointmentDate" validate:"required"`
	AppointmentTime string                 `json:"appointmentTime" validate:"required"`
	AppointmentType models.AppointmentType `json:"appointmentType" validate:"required,oneof=in-clinic video phone"`
	ReasonForVisit  string                 `json:"reasonForVisit" validate:"required"`
	Symptoms        []string               `json:"symptoms"`
	Notes           string                 `json:"notes"`
}

// StatusInput is the body of a status update.
type StatusInput struct {
	Status             models.AppointmentStatus `json:"status" validate:"required"`
	CancellationReason string                   `json:"cancellationReason"`
}

// CancelInput is the body of a cancellation.
type CancelInput struct {
	CancellationReason string `json:"cancellationReason" validate:"required"`
}

// RescheduleInput is the body of a reschedule.
type RescheduleInput struct {
	AppointmentDate string `json:"appointmentDate" validate:"required"`
	AppointmentTime string `json:"appointmentTime" validate:"required"`
}

// FeedbackInput is the body of a feedback submission.
type FeedbackInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// Options tunes a Service. Zero values get defaults.
type Options struct {
	DefaultLimit   int
	MaxLimit       int
	RatingAttempts int
	Logger         zerolog.Logger
	Metrics        *metrics.LifecycleMetrics
	Now            func() time.Time
}

// Service is the appointment lifecycle engine. It holds no per-request state.
type Service struct {
	appointments AppointmentStore
	providers    ProviderStore
	ratings      *RatingAggregator
	defaultLimit int
	maxLimit     int
	log          zerolog.Logger
	metrics      *metrics.LifecycleMetrics
	now          func() time.Time
}

// NewService creates a new Service.
func NewService(appointments AppointmentStore, providers ProviderStore, opts Options) *Service {
	if opts.DefaultLimit < 1 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = 100
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		appointments: appointments,
		providers:    providers,
		ratings:      NewRatingAggregator(providers, opts.RatingAttempts),
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
		log:          opts.Logger,
		metrics:      opts.Metrics,
		now:          opts.Now,
	}
}

// Create books a new appointment for the calling patient. The provider's
// current consultation fee is copied into the appointment.
func (s *Service) Create(ctx context.Context, p Principal, in CreateInput) (_ *models.Appointment, err error) {
	defer s.observe("create", &err)

	if p.Role != models.RolePatient {
		return nil, forbidden("only patients can book appointments")
	}
	if err := check(in); err != nil {
		return nil, err
	}
	date, err := ParseDate(in.AppointmentDate)
	if err != nil {
		return nil, validationError("appointmentDate must be a date (YYYY-MM-DD)")
	}

	provider, err := s.providers.LookupProvider(ctx, in.ProviderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("provider not found")
		}
		return nil, internal("failed to load provider", err)
	}

	symptoms := in.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}

	appointment := &models.Appointment{
		PatientID:       p.ID,
		ProviderID:      provider.ID,
		AppointmentDate: date,
		AppointmentTime: strings.TrimSpace(in.AppointmentTime),
		AppointmentType: in.AppointmentType,
		Status:          models.StatusScheduled,
		ReasonForVisit:  in.ReasonForVisit,
		Symptoms:        symptoms,
		Notes:           in.Notes,
		Prescriptions:   []models.Prescription{},
		PaymentStatus:   models.PaymentPending,
		PaymentAmount:   provider.ConsultationFee,
	}
	if err := s.appointments.CreateAppointment(ctx, appointment); err != nil {
		return nil, internal("failed to create appointment", err)
	}
	return appointment, nil
}

// Get returns the appointment with its participants if the caller is one of
// them.
func (s *Service) Get(ctx context.Context, p Principal, id string) (_ *models.Appointment, err error) {
	defer s.observe("get", &err)

	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, appointment, "view"); err != nil {
		return nil, err
	}
	return appointment, nil
}

// UpdateStatus moves the appointment to the requested status. A cancellation
// with a reason also records the cancellation fields.
func (s *Service) UpdateStatus(ctx context.Context, p Principal, id string, in StatusInput) (_ *models.Appointment, err error) {
	defer s.observe("update_status", &err)

	if err := check(in); err != nil {
		return nil, err
	}
	if !in.Status.Valid() {
		return nil, validationError("invalid status %q", in.Status)
	}

	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, appointment, "update"); err != nil {
		return nil, err
	}

	previous := appointment.Status
	next, err := Transition(previous, in.Status, p.Role)
	if err != nil {
		return nil, err
	}
	appointment.Status = next
	// An earlier cancellation keeps its reason and canceller.
	reason := strings.TrimSpace(in.CancellationReason)
	if next == models.StatusCancelled && previous != models.StatusCancelled && reason != "" {
		markCancelled(appointment, p.Role, reason)
	}

	if err := s.appointments.SaveAppointment(ctx, appointment); err != nil {
		return nil, saveError(err)
	}
	return appointment, nil
}

// Cancel logically cancels the appointment.
func (s *Service) Cancel(ctx context.Context, p Principal, id string, in CancelInput) (_ *models.Appointment, err error) {
	defer s.observe("cancel", &err)

	in.CancellationReason = strings.TrimSpace(in.CancellationReason)
	if err := check(in); err != nil {
		return nil, err
	}

	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, appointment, "cancel"); err != nil {
		return nil, err
	}
	if appointment.Status == models.StatusCancelled {
		return nil, invalidState("appointment is already cancelled")
	}
	if _, err := Transition(appointment.Status, models.StatusCancelled, p.Role); err != nil {
		return nil, err
	}

	markCancelled(appointment, p.Role, in.CancellationReason)
	if err := s.appointments.SaveAppointment(ctx, appointment); err != nil {
		return nil, saveError(err)
	}
	return appointment, nil
}

// Reschedule moves the appointment to a new date and time and puts it back
// in scheduled. Only the date being replaced is kept as the previous date.
func (s *Service) Reschedule(ctx context.Context, p Principal, id string, in RescheduleInput) (_ *models.Appointment, err error) {
	defer s.observe("reschedule", &err)

	if err := check(in); err != nil {
		return nil, err
	}
	date, err := ParseDate(in.AppointmentDate)
	if err != nil {
		return nil, validationError("appointmentDate must be a date (YYYY-MM-DD)")
	}

	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(p, appointment, "reschedule"); err != nil {
		return nil, err
	}
	if !CanReschedule(appointment.Status) {
		return nil, invalidState("cannot reschedule a %s appointment", appointment.Status)
	}

	previous := appointment.AppointmentDate
	appointment.PreviousAppointmentDate = &previous
	appointment.AppointmentDate = date
	appointment.AppointmentTime = strings.TrimSpace(in.AppointmentTime)
	appointment.IsRescheduled = true
	appointment.Status = models.StatusScheduled

	if err := s.appointments.SaveAppointment(ctx, appointment); err != nil {
		return nil, saveError(err)
	}
	return appointment, nil
}

// AddFeedback records the patient's feedback on a completed appointment and
// folds the rating into the provider's aggregate. A later submission replaces
// the appointment's feedback and appends another review.
func (s *Service) AddFeedback(ctx context.Context, p Principal, id string, in FeedbackInput) (_ *models.Appointment, err error) {
	defer s.observe("feedback", &err)

	if err := check(in); err != nil {
		return nil, err
	}

	appointment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role != models.RolePatient || p.ID != appointment.PatientID {
		return nil, forbidden("only the patient on this appointment can add feedback")
	}
	if appointment.Status != models.StatusCompleted {
		return nil, invalidState("feedback can only be added to completed appointments")
	}

	submittedAt := s.now()
	appointment.Feedback = &models.Feedback{
		Rating:      in.Rating,
		Comment:     in.Comment,
		SubmittedAt: submittedAt,
	}
	if err := s.appointments.SaveAppointment(ctx, appointment); err != nil {
		return nil, saveError(err)
	}
	s.metrics.ObserveFeedback(in.Rating)

	// The appointment already carries the feedback; a failed rating update
	// leaves the provider stale until the next recomputation.
	review := models.Review{
		PatientID: p.ID,
		Rating:    in.Rating,
		Comment:   in.Comment,
		Date:      submittedAt,
	}
	provider, err := s.ratings.Apply(ctx, appointment.ProviderID, review)
	switch {
	case err == nil:
		s.metrics.ObserveRatingUpdate("ok")
		if appointment.Provider != nil {
			appointment.Provider.Rating = provider.Rating
		}
	case errors.Is(err, repository.ErrNotFound):
		s.metrics.ObserveRatingUpdate("provider_missing")
		s.log.Warn().Str("appointment_id", appointment.ID).Str("provider_id", appointment.ProviderID).
			Msg("provider missing, rating not updated")
	default:
		s.metrics.ObserveRatingUpdate("failed")
		s.log.Error().Err(err).Str("appointment_id", appointment.ID).Str("provider_id", appointment.ProviderID).
			Msg("failed to update provider rating")
	}
	return appointment, nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Appointment, error) {
	appointment, err := s.appointments.FindAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("appointment not found")
		}
		return nil, internal("failed to load appointment", err)
	}
	return appointment, nil
}

func (s *Service) observe(operation string, err *error) {
	outcome := "ok"
	if *err != nil {
		outcome = string(KindOf(*err))
	}
	s.metrics.ObserveOperation(operation, outcome)
}

// authorize admits the provider or the patient of the appointment, each only
// under its own role.
func authorize(p Principal, a *models.Appointment, action string) error {
	switch {
	case p.Role == models.RoleProvider && p.ID == a.ProviderID:
		return nil
	case p.Role == models.RolePatient && p.ID == a.PatientID:
		return nil
	}
	return forbidden("not authorized to " + action + " this appointment")
}

func markCancelled(a *models.Appointment, role models.Role, reason string) {
	a.Status = models.StatusCancelled
	a.IsCancelled = true
	a.CancellationReason = reason
	a.CancelledBy = cancelledBy(role)
}
