// Package repository implements the entity store behind the appointment
// engine: gorm-backed repositories for MySQL/PostgreSQL and an in-memory
// store with the same semantics.
package repository

import (
	"errors"
	"strings"
	"time"

	"medibook-server/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a versioned write lost a race against
	// another writer.
	ErrConflict = errors.New("record was modified concurrently")
	// ErrInUse is returned when a record cannot be deleted because other
	// records reference it.
	ErrInUse = errors.New("record is still referenced")
)

// SortOrder selects how appointment listings are ordered.
type SortOrder int

const (
	// SortNewestFirst orders by date descending, then time ascending.
	SortNewestFirst SortOrder = iota
	// SortChronological orders by date ascending, then time ascending.
	SortChronological
)

// AppointmentFilter narrows appointment queries. Zero fields do not filter.
// DateFrom and DateTo are inclusive.
type AppointmentFilter struct {
	PatientID  string
	ProviderID string
	Status     models.AppointmentStatus
	DateFrom   *time.Time
	DateTo     *time.Time
}

// ProviderProfileUpdate carries the editable provider profile fields. Nil
// fields are left unchanged.
type ProviderProfileUpdate struct {
	Name            *string
	PhoneNumber     *string
	Specialty       *string
	AboutMe         *string
	ConsultationFee *float64
}

func (u ProviderProfileUpdate) apply(p *models.Provider) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.PhoneNumber != nil {
		p.PhoneNumber = *u.PhoneNumber
	}
	if u.Specialty != nil {
		p.Specialty = *u.Specialty
	}
	if u.AboutMe != nil {
		p.AboutMe = *u.AboutMe
	}
	if u.ConsultationFee != nil {
		p.ConsultationFee = *u.ConsultationFee
	}
}

// ProviderFilter narrows provider searches. Name and Specialty match
// case-insensitive substrings.
type ProviderFilter struct {
	Name      string
	Specialty string
	MinRating float64
}

// UserFilter narrows user listings. Name matches first or last name; Name and
// Email match case-insensitive substrings.
type UserFilter struct {
	Name  string
	Email string
	Role  models.Role
}

// UserProfileUpdate carries the editable user profile fields. Nil fields are
// left unchanged.
type UserProfileUpdate struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	DateOfBirth *time.Time
}

func (u UserProfileUpdate) apply(user *models.User) {
	if u.FirstName != nil {
		user.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		user.LastName = *u.LastName
	}
	if u.PhoneNumber != nil {
		user.PhoneNumber = *u.PhoneNumber
	}
	if u.DateOfBirth != nil {
		dob := *u.DateOfBirth
		user.DateOfBirth = &dob
	}
}

// SpecialtyUpdate carries the editable specialty fields. Nil fields are left
// unchanged.
type SpecialtyUpdate struct {
	Name             *string
	Description      *string
	IconURL          *string
	ImageURL         *string
	CommonConditions []models.Condition
	IsActive         *bool
}

func (u SpecialtyUpdate) apply(s *models.Specialty) {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.IconURL != nil {
		s.IconURL = *u.IconURL
	}
	if u.ImageURL != nil {
		s.ImageURL = *u.ImageURL
	}
	if u.CommonConditions != nil {
		s.CommonConditions = u.CommonConditions
	}
	if u.IsActive != nil {
		s.IsActive = *u.IsActive
	}
}

// likePattern turns a search term into a lower-cased LIKE pattern with the
// wildcard characters escaped.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}

func containsFold(s, term string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(term))
}
