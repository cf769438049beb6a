package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"medibook-server/internal/metrics"
	"medibook-server/internal/models"
	"medibook-server/internal/repository"
)

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	store    *repository.MemoryStore
	patient  Principal
	other    Principal
	provider Principal
	admin    Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	patient := &models.User{Email: "pat@example.test", FirstName: "Pat", Role: models.RolePatient}
	other := &models.User{Email: "sam@example.test", FirstName: "Sam", Role: models.RolePatient}
	provider := &models.Provider{Name: "Dr. Ada", Email: "ada@clinic.test", Specialty: "cardiology", ConsultationFee: 50}
	require.NoError(t, store.CreateUser(ctx, patient))
	require.NoError(t, store.CreateUser(ctx, other))
	require.NoError(t, store.CreateProvider(ctx, provider))

	svc := NewService(store, store, Options{
		DefaultLimit: 10,
		MaxLimit:     100,
		Logger:       zerolog.Nop(),
		Metrics:      metrics.NewLifecycleMetrics(prometheus.NewRegistry()),
		Now:          func() time.Time { return fixedNow },
	})

	return &fixture{
		svc:      svc,
		store:    store,
		patient:  Principal{ID: patient.ID, Role: models.RolePatient},
		other:    Principal{ID: other.ID, Role: models.RolePatient},
		provider: Principal{ID: provider.ID, Role: models.RoleProvider},
		admin:    Principal{ID: "admin-1", Role: models.RoleAdmin},
	}
}

func (f *fixture) book(t *testing.T, date string) *models.Appointment {
	t.Helper()
	a, err := f.svc.Create(context.Background(), f.patient, CreateInput{
		ProviderID:      f.provider.ID,
		AppointmentDate: date,
		AppointmentTime: "10:00",
		AppointmentType: models.TypeInClinic,
		ReasonForVisit:  "checkup",
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) complete(t *testing.T, id string) {
	t.Helper()
	_, err := f.svc.UpdateStatus(context.Background(), f.provider, id, StatusInput{Status: models.StatusCompleted})
	require.NoError(t, err)
}

func TestCreateAppointment(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "2025-03-10")

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, f.patient.ID, a.PatientID)
	assert.Equal(t, f.provider.ID, a.ProviderID)
	assert.Equal(t, models.StatusScheduled, a.Status)
	assert.Equal(t, models.PaymentPending, a.PaymentStatus)
	assert.Equal(t, 50.0, a.PaymentAmount)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), a.AppointmentDate)
	assert.Equal(t, []string{}, a.Symptoms)
	assert.Nil(t, a.Feedback)
}

func TestCreateAppointmentSnapshotsFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2025-03-10")

	fee := 80.0
	_, err := f.store.UpdateProviderProfile(ctx, f.provider.ID, repository.ProviderProfileUpdate{ConsultationFee: &fee})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.patient, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.PaymentAmount)

	later := f.book(t, "2025-03-11")
	assert.Equal(t, 80.0, later.PaymentAmount)
}

func TestCreateAppointmentRejects(t *testing.T) {
	f := newFixture(t)
	valid := CreateInput{
		ProviderID:      f.provider.ID,
		AppointmentDate: "2025-03-10",
		AppointmentTime: "10:00",
		AppointmentType: models.TypeVideo,
		ReasonForVisit:  "rash",
	}

	tests := []struct {
		name     string
		caller   Principal
		mutate   func(in *CreateInput)
		wantKind Kind
		wantMsg  string
	}{
		{"missing reason", f.patient, func(in *CreateInput) { in.ReasonForVisit = "" }, KindValidation, "reasonForVisit is required"},
		{"missing provider", f.patient, func(in *CreateInput) { in.ProviderID = "" }, KindValidation, "providerId is required"},
		{"bad type", f.patient, func(in *CreateInput) { in.AppointmentType = "house-call" }, KindValidation, "appointmentType must be one of"},
		{"bad date", f.patient, func(in *CreateInput) { in.AppointmentDate = "next tuesday" }, KindValidation, "appointmentDate"},
		{"unknown provider", f.patient, func(in *CreateInput) { in.ProviderID = "nope" }, KindNotFound, "provider not found"},
		{"provider cannot book", f.provider, func(in *CreateInput) {}, KindForbidden, "only patients"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := f.svc.Create(context.Background(), tt.caller, in)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	total, err := f.store.CountAppointments(context.Background(), repository.AppointmentFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestGetAppointmentOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2025-03-10")

	got, err := f.svc.Get(ctx, f.patient, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Patient)
	require.NotNil(t, got.Provider)
	assert.Equal(t, "Dr. Ada", got.Provider.Name)

	_, err = f.svc.Get(ctx, f.provider, a.ID)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, f.other, a.ID)
	assert.Equal(t, KindForbidden, KindOf(err))

	// A matching id under the wrong role is still refused.
	_, err = f.svc.Get(ctx, Principal{ID: f.provider.ID, Role: models.RolePatient}, a.ID)
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.svc.Get(ctx, f.patient, "missing")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2025-03-10")

	got, err := f.svc.UpdateStatus(ctx, f.provider, a.ID, StatusInput{Status: models.StatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)

	_, err = f.svc.UpdateStatus(ctx, f.patient, a.ID, StatusInput{Status: models.StatusCompleted})
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.svc.UpdateStatus(ctx, f.other, a.ID, StatusInput{Status: models.StatusCancelled})
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.svc.UpdateStatus(ctx, f.provider, a.ID, StatusInput{})
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "status is required")

	_, err = f.svc.UpdateStatus(ctx, f.provider, a.ID, StatusInput{Status: "archived"})
	assert.Equal(t, KindValidation, KindOf(err))

	f.complete(t, a.ID)
	_, err = f.svc.UpdateStatus(ctx, f.provider, a.ID, StatusInput{Status: models.StatusCancelled})
	assert.Equal(t, KindInvalidState, KindOf(err))

	stored, err := f.store.FindAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
}

func TestUpdateStatusCancelWithReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	withReason := f.book(t, "2025-03-10")
	got, err := f.svc.UpdateStatus(ctx, f.provider, withReason.ID, StatusInput{
		Status:             models.StatusCancelled,
		CancellationReason: "provider ill",
	})
	require.NoError(t, err)
	assert.True(t, got.IsCancelled)
	assert.Equal(t, "provider ill", got.CancellationReason)
	assert.Equal(t, models.CancelledByProvider, got.CancelledBy)

	withoutReason := f.book(t, "2025-03-11")
	got, err = f.svc.UpdateStatus(ctx, f.patient, withoutReason.ID, StatusInput{Status: models.StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.False(t, got.IsCancelled)
	assert.Empty(t, got.CancelledBy)
}

func TestCancelAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2025-03-10")

	_, err := f.svc.Cancel(ctx, f.patient, a.ID, CancelInput{CancellationReason: "   "})
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "cancellationReason is required")

	_, err = f.svc.Cancel(ctx, f.other, a.ID, CancelInput{CancellationReason: "not mine"})
	assert.Equal(t, KindForbidden, KindOf(err))

	got, err := f.svc.Cancel(ctx, f.patient, a.ID, CancelInput{CancellationReason: "travel"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.True(t, got.IsCancelled)
	assert.Equal(t, "travel", got.CancellationReason)
	assert.Equal(t, models.CancelledByPatient, got.CancelledBy)

	_, err = f.svc.Cancel(ctx, f.provider, a.ID, CancelInput{CancellationReason: "again"})
	assert.Equal(t, KindInvalidState, KindOf(err))

	stored, err := f.store.FindAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "travel", stored.CancellationReason)
	assert.Equal(t, models.CancelledByPatient, stored.CancelledBy)
}

func TestUpdateStatusKeepsEarlierCancellation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2025-03-10")

	_, err := f.svc.Cancel(ctx, f.patient, a.ID, CancelInput{CancellationReason: "travel"})
	require.NoError(t, err)

	got, err := f.svc.UpdateStatus(ctx, f.provider, a.ID, StatusInput{
		Status:             models.StatusCancelled,
		CancellationReason: "rewritten",
	})
	require.NoError(t, err)
	assert.Equal(t, "travel", got.CancellationReason)
	assert.Equal(t, models.CancelledByPatient, got.CancelledBy)

	stored, err := f.store.FindAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.True(t, stored.IsCancelled)
	assert.Equal(t, "travel", stored.CancellationReason)
	assert.Equal(t, models.CancelledByPatient, stored.CancelledBy)
}

func TestCancelCompletedAppointment(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "2025-03-10")
	f.complete(t, a.ID)

	_, err := f.svc.Cancel(context.Background(), f.provider, a.ID, CancelInput{CancellationReason: "late"})
	assert.Equal(t, KindInvalidState, KindOf(err))
}

func TestRescheduleAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2025-03-10")

	_, err := f.svc.UpdateStatus(ctx, f.provider, a.ID, StatusInput{Status: models.StatusConfirmed})
	require.NoError(t, err)

	got, err := f.svc.Reschedule(ctx, f.patient, a.ID, RescheduleInput{AppointmentDate: "2025-03-12", AppointmentTime: "14:30"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, got.Status)
	assert.True(t, got.IsRescheduled)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), got.AppointmentDate)
	assert.Equal(t, "14:30", got.AppointmentTime)
	require.NotNil(t, got.PreviousAppointmentDate)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), *got.PreviousAppointmentDate)
	assert.Equal(t, f.patient.ID, got.PatientID)
	assert.Equal(t, f.provider.ID, got.ProviderID)

	// Only the date being replaced is remembered.
	got, err = f.svc.Reschedule(ctx, f.provider, a.ID, RescheduleInput{AppointmentDate: "2025-03-20T08:00:00Z", AppointmentTime: "09:00"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), *got.PreviousAppointmentDate)
	assert.Equal(t, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), got.AppointmentDate)
}

func TestRescheduleRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2025-03-10")

	_, err := f.svc.Reschedule(ctx, f.patient, a.ID, RescheduleInput{AppointmentDate: "2025-03-12"})
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "appointmentTime is required")

	_, err = f.svc.Reschedule(ctx, f.other, a.ID, RescheduleInput{AppointmentDate: "2025-03-12", AppointmentTime: "10:00"})
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.svc.Cancel(ctx, f.patient, a.ID, CancelInput{CancellationReason: "moved away"})
	require.NoError(t, err)
	_, err = f.svc.Reschedule(ctx, f.patient, a.ID, RescheduleInput{AppointmentDate: "2025-03-12", AppointmentTime: "10:00"})
	assert.Equal(t, KindInvalidState, KindOf(err))
}

func TestFeedbackScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2025-03-10")

	_, err := f.svc.AddFeedback(ctx, f.patient, a.ID, FeedbackInput{Rating: 4})
	assert.Equal(t, KindInvalidState, KindOf(err))

	f.complete(t, a.ID)

	_, err = f.svc.AddFeedback(ctx, f.provider, a.ID, FeedbackInput{Rating: 5})
	assert.Equal(t, KindForbidden, KindOf(err))
	_, err = f.svc.AddFeedback(ctx, f.other, a.ID, FeedbackInput{Rating: 5})
	assert.Equal(t, KindForbidden, KindOf(err))
	_, err = f.svc.AddFeedback(ctx, f.patient, a.ID, FeedbackInput{})
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "rating is required")
	_, err = f.svc.AddFeedback(ctx, f.patient, a.ID, FeedbackInput{Rating: 6})
	assert.Equal(t, KindValidation, KindOf(err))

	got, err := f.svc.AddFeedback(ctx, f.patient, a.ID, FeedbackInput{Rating: 4, Comment: "thorough"})
	require.NoError(t, err)
	require.NotNil(t, got.Feedback)
	assert.Equal(t, 4, got.Feedback.Rating)
	assert.Equal(t, fixedNow, got.Feedback.SubmittedAt)
	assert.Equal(t, 50.0, got.PaymentAmount)

	provider, err := f.store.FindProvider(ctx, f.provider.ID)
	require.NoError(t, err)
	require.Len(t, provider.Reviews, 1)
	assert.Equal(t, f.patient.ID, provider.Reviews[0].PatientID)
	assert.Equal(t, 4.0, provider.Rating)
}

func TestFeedbackResubmissionAppendsReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2025-03-10")
	f.complete(t, a.ID)

	_, err := f.svc.AddFeedback(ctx, f.patient, a.ID, FeedbackInput{Rating: 5})
	require.NoError(t, err)
	got, err := f.svc.AddFeedback(ctx, f.patient, a.ID, FeedbackInput{Rating: 2, Comment: "changed my mind"})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Feedback.Rating)

	provider, err := f.store.FindProvider(ctx, f.provider.ID)
	require.NoError(t, err)
	assert.Len(t, provider.Reviews, 2)
	assert.Equal(t, 3.5, provider.Rating)
}

func TestFeedbackKeptWhenRatingUpdateFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2025-03-10")
	f.complete(t, a.ID)

	providers := new(mockProviderStore)
	providers.On("FindProvider", mock.Anything, f.provider.ID).Return(nil, errors.New("db down"))
	svc := NewService(f.store, providers, Options{Logger: zerolog.Nop(), Now: func() time.Time { return fixedNow }})

	got, err := svc.AddFeedback(ctx, f.patient, a.ID, FeedbackInput{Rating: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Feedback.Rating)

	stored, err := f.store.FindAppointment(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Feedback)
}

type mockAppointmentStore struct {
	mock.Mock
}

func (m *mockAppointmentStore) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAppointmentStore) FindAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*models.Appointment)
	return a, args.Error(1)
}

func (m *mockAppointmentStore) SaveAppointment(ctx context.Context, a *models.Appointment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAppointmentStore) ListAppointments(ctx context.Context, filter repository.AppointmentFilter, order repository.SortOrder, skip, limit int) ([]models.Appointment, error) {
	args := m.Called(ctx, filter, order, skip, limit)
	items, _ := args.Get(0).([]models.Appointment)
	return items, args.Error(1)
}

func (m *mockAppointmentStore) CountAppointments(ctx context.Context, filter repository.AppointmentFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func TestStoreFailuresAreInternal(t *testing.T) {
	ctx := context.Background()
	store := new(mockAppointmentStore)
	svc := NewService(store, new(mockProviderStore), Options{Logger: zerolog.Nop()})
	patient := Principal{ID: "pat-1", Role: models.RolePatient}

	store.On("FindAppointment", ctx, "appt-1").Return(nil, errors.New("i/o timeout"))
	_, err := svc.Get(ctx, patient, "appt-1")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Contains(t, err.Error(), "i/o timeout")

	store.On("CountAppointments", ctx, mock.Anything).Return(int64(0), errors.New("too many connections"))
	_, err = svc.ListForPatient(ctx, patient, ListQuery{})
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestSaveConflictIsReported(t *testing.T) {
	ctx := context.Background()
	store := new(mockAppointmentStore)
	svc := NewService(store, new(mockProviderStore), Options{Logger: zerolog.Nop()})
	provider := Principal{ID: "prov-1", Role: models.RoleProvider}

	a := &models.Appointment{PatientID: "pat-1", ProviderID: "prov-1", Status: models.StatusScheduled, Version: 3}
	a.ID = "appt-1"
	store.On("FindAppointment", ctx, "appt-1").Return(a, nil)
	store.On("SaveAppointment", ctx, a).Return(repository.ErrConflict)

	_, err := svc.UpdateStatus(ctx, provider, "appt-1", StatusInput{Status: models.StatusConfirmed})
	assert.Equal(t, KindConflict, KindOf(err))
	store.AssertExpectations(t)
}
