package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"medibook-server/internal/models"
)

// MemoryStore keeps every record in process memory. It honours the same
// contracts as the gorm repositories, including version checks, and hands out
// copies so callers can never mutate stored state without saving.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]models.User
	providers    map[string]models.Provider
	reviews      map[string][]models.Review
	appointments map[string]models.Appointment
	specialties  map[string]models.Specialty
	now          func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]models.User),
		providers:    make(map[string]models.Provider),
		reviews:      make(map[string][]models.Review),
		appointments: make(map[string]models.Appointment),
		specialties:  make(map[string]models.Specialty),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser inserts a new user.
func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = models.RolePatient
	}
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = *u
	return nil
}

// FindUserByEmail loads a user by login email.
func (s *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// FindUser loads a user by id.
func (s *MemoryStore) FindUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// ListUsers returns one page of users matching filter, newest first.
func (s *MemoryStore) ListUsers(ctx context.Context, filter UserFilter, skip, limit int) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := s.matchUsers(filter)
	slices.SortFunc(users, func(a, b models.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return window(users, skip, limit), nil
}

// CountUsers counts users matching filter.
func (s *MemoryStore) CountUsers(ctx context.Context, filter UserFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.matchUsers(filter))), nil
}

// UpdateUserProfile applies update to the user with the given id.
func (s *MemoryStore) UpdateUserProfile(ctx context.Context, id string, update UserProfileUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	update.apply(&u)
	u.UpdatedAt = s.now()
	s.users[id] = u
	return &u, nil
}

// DeleteUser removes the user with the given id. Users with appointments
// are kept and ErrInUse is returned.
func (s *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	for _, a := range s.appointments {
		if a.PatientID == id {
			return ErrInUse
		}
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) matchUsers(filter UserFilter) []models.User {
	var matched []models.User
	for _, u := range s.users {
		if filter.Name != "" && !containsFold(u.FirstName, filter.Name) && !containsFold(u.LastName, filter.Name) {
			continue
		}
		if filter.Email != "" && !containsFold(u.Email, filter.Email) {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		matched = append(matched, u)
	}
	return matched
}

// CreateProvider inserts a new provider.
func (s *MemoryStore) CreateProvider(ctx context.Context, p *models.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	stored.Reviews = nil
	s.providers[p.ID] = stored
	return nil
}

// FindProvider loads a provider with its full review history, oldest first.
func (s *MemoryStore) FindProvider(ctx context.Context, id string) (*models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.providers[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Reviews = slices.Clone(s.reviews[id])
	return &p, nil
}

// FindProviderByEmail loads a provider by login email.
func (s *MemoryStore) FindProviderByEmail(ctx context.Context, email string) (*models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.providers {
		if strings.EqualFold(p.Email, email) {
			found := p
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// LookupProvider returns the summary used for fee snapshots.
func (s *MemoryStore) LookupProvider(ctx context.Context, id string) (*models.ProviderSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.providers[id]
	if !ok {
		return nil, ErrNotFound
	}
	summary := p.Summary()
	return &summary, nil
}

// AppendReview appends review to p and stores rating, failing with
// ErrConflict when p is stale.
func (s *MemoryStore) AppendReview(ctx context.Context, p *models.Provider, review *models.Review, rating float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.providers[p.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != p.Version {
		return ErrConflict
	}

	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	review.ProviderID = p.ID
	s.reviews[p.ID] = append(s.reviews[p.ID], *review)

	stored.Rating = rating
	stored.Version++
	stored.UpdatedAt = s.now()
	s.providers[p.ID] = stored

	p.Rating = rating
	p.Version = stored.Version
	p.Reviews = append(p.Reviews, *review)
	return nil
}

// UpdateProviderProfile applies update to the provider with the given id.
func (s *MemoryStore) UpdateProviderProfile(ctx context.Context, id string, update ProviderProfileUpdate) (*models.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.providers[id]
	if !ok {
		return nil, ErrNotFound
	}
	update.apply(&p)
	p.UpdatedAt = s.now()
	s.providers[id] = p

	p.Reviews = slices.Clone(s.reviews[id])
	return &p, nil
}

// TopRatedProviders lists providers by rating, best first.
func (s *MemoryStore) TopRatedProviders(ctx context.Context, limit int) ([]models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	providers := make([]models.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		providers = append(providers, p)
	}
	slices.SortFunc(providers, func(a, b models.Provider) int {
		if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if limit > 0 && len(providers) > limit {
		providers = providers[:limit]
	}
	return providers, nil
}

// SearchProviders returns one page of providers matching filter, best rated
// first.
func (s *MemoryStore) SearchProviders(ctx context.Context, filter ProviderFilter, skip, limit int) ([]models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	providers := s.matchProviders(filter)
	slices.SortFunc(providers, func(a, b models.Provider) int {
		if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return window(providers, skip, limit), nil
}

// CountProviders counts providers matching filter.
func (s *MemoryStore) CountProviders(ctx context.Context, filter ProviderFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.matchProviders(filter))), nil
}

func (s *MemoryStore) matchProviders(filter ProviderFilter) []models.Provider {
	var matched []models.Provider
	for _, p := range s.providers {
		if filter.Name != "" && !containsFold(p.Name, filter.Name) {
			continue
		}
		if filter.Specialty != "" && !containsFold(p.Specialty, filter.Specialty) {
			continue
		}
		if p.Rating < filter.MinRating {
			continue
		}
		matched = append(matched, p)
	}
	return matched
}

// CreateSpecialty inserts a new, active specialty.
func (s *MemoryStore) CreateSpecialty(ctx context.Context, sp *models.Specialty) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.specialties {
		if existing.Name == sp.Name {
			return fmt.Errorf("create specialty: duplicate name %q", sp.Name)
		}
	}
	if sp.ID == "" {
		sp.ID = uuid.New().String()
	}
	if sp.CommonConditions == nil {
		sp.CommonConditions = []models.Condition{}
	}
	sp.IsActive = true
	sp.CreatedAt = s.now()
	sp.UpdatedAt = sp.CreatedAt
	stored := *sp
	stored.CommonConditions = slices.Clone(sp.CommonConditions)
	s.specialties[sp.ID] = stored
	return nil
}

// FindSpecialty loads a specialty by id.
func (s *MemoryStore) FindSpecialty(ctx context.Context, id string) (*models.Specialty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, ok := s.specialties[id]
	if !ok {
		return nil, ErrNotFound
	}
	sp.CommonConditions = slices.Clone(sp.CommonConditions)
	return &sp, nil
}

// FindSpecialtyByName loads a specialty by its exact name.
func (s *MemoryStore) FindSpecialtyByName(ctx context.Context, name string) (*models.Specialty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sp := range s.specialties {
		if sp.Name == name {
			sp.CommonConditions = slices.Clone(sp.CommonConditions)
			return &sp, nil
		}
	}
	return nil, ErrNotFound
}

// ListSpecialties lists specialties by name. Inactive entries are skipped
// unless includeInactive is set.
func (s *MemoryStore) ListSpecialties(ctx context.Context, includeInactive bool) ([]models.Specialty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	specialties := make([]models.Specialty, 0, len(s.specialties))
	for _, sp := range s.specialties {
		if !sp.IsActive && !includeInactive {
			continue
		}
		sp.CommonConditions = slices.Clone(sp.CommonConditions)
		specialties = append(specialties, sp)
	}
	slices.SortFunc(specialties, func(a, b models.Specialty) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return specialties, nil
}

// UpdateSpecialty applies update to the specialty with the given id.
func (s *MemoryStore) UpdateSpecialty(ctx context.Context, id string, update SpecialtyUpdate) (*models.Specialty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.specialties[id]
	if !ok {
		return nil, ErrNotFound
	}
	update.apply(&sp)
	sp.CommonConditions = slices.Clone(sp.CommonConditions)
	sp.UpdatedAt = s.now()
	s.specialties[id] = sp

	out := sp
	out.CommonConditions = slices.Clone(sp.CommonConditions)
	return &out, nil
}

// CreateAppointment inserts a new appointment and assigns its id.
func (s *MemoryStore) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Version == 0 {
		a.Version = 1
	}
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	s.appointments[a.ID] = detach(*a)
	return nil
}

// FindAppointment loads an appointment with its participants.
func (s *MemoryStore) FindAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	found := s.withParticipants(a)
	return &found, nil
}

// SaveAppointment writes a loaded appointment back by id, failing with
// ErrConflict when it was saved by someone else in between.
func (s *MemoryStore) SaveAppointment(ctx context.Context, a *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.appointments[a.ID]
	if !ok || stored.Version != a.Version {
		return ErrConflict
	}
	a.Version++
	a.CreatedAt = stored.CreatedAt
	a.UpdatedAt = s.now()
	s.appointments[a.ID] = detach(*a)
	return nil
}

// ListAppointments returns one page of appointments matching filter.
func (s *MemoryStore) ListAppointments(ctx context.Context, filter AppointmentFilter, order SortOrder, skip, limit int) ([]models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.match(filter)
	slices.SortFunc(matched, func(a, b models.Appointment) int {
		c := a.AppointmentDate.Compare(b.AppointmentDate)
		if order == SortNewestFirst {
			c = -c
		}
		if c != 0 {
			return c
		}
		if c := cmp.Compare(a.AppointmentTime, b.AppointmentTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	matched = window(matched, skip, limit)
	page := make([]models.Appointment, 0, len(matched))
	for _, a := range matched {
		page = append(page, s.withParticipants(a))
	}
	return page, nil
}

// CountAppointments counts appointments matching filter.
func (s *MemoryStore) CountAppointments(ctx context.Context, filter AppointmentFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.match(filter))), nil
}

func (s *MemoryStore) match(filter AppointmentFilter) []models.Appointment {
	var matched []models.Appointment
	for _, a := range s.appointments {
		if filter.PatientID != "" && a.PatientID != filter.PatientID {
			continue
		}
		if filter.ProviderID != "" && a.ProviderID != filter.ProviderID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.DateFrom != nil && a.AppointmentDate.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && a.AppointmentDate.After(*filter.DateTo) {
			continue
		}
		matched = append(matched, a)
	}
	return matched
}

// withParticipants returns a detached copy of a with patient and provider
// attached the way the gorm repository preloads them.
func (s *MemoryStore) withParticipants(a models.Appointment) models.Appointment {
	out := detach(a)
	if u, ok := s.users[a.PatientID]; ok {
		out.Patient = &u
	}
	if p, ok := s.providers[a.ProviderID]; ok {
		out.Provider = &p
	}
	return out
}

// window returns items[skip:skip+limit], clamped to the slice. A negative skip
// reads from the start and a limit below 1 means no limit.
func window[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func detach(a models.Appointment) models.Appointment {
	a.Symptoms = slices.Clone(a.Symptoms)
	a.Prescriptions = slices.Clone(a.Prescriptions)
	if a.Feedback != nil {
		fb := *a.Feedback
		a.Feedback = &fb
	}
	if a.FollowUpDate != nil {
		d := *a.FollowUpDate
		a.FollowUpDate = &d
	}
	if a.PreviousAppointmentDate != nil {
		d := *a.PreviousAppointmentDate
		a.PreviousAppointmentDate = &d
	}
	a.Patient = nil
	a.Provider = nil
	return a
}
