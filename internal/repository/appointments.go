package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medibook-server/internal/models"
)

// AppointmentRepository persists appointments with gorm.
type AppointmentRepository struct {
	DB *gorm.DB
}

// NewAppointmentRepository creates a new AppointmentRepository.
func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{DB: db}
}

// CreateAppointment inserts a new appointment and assigns its id.
func (r *AppointmentRepository) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	if a.Version == 0 {
		a.Version = 1
	}
	if err := r.DB.WithContext(ctx).Omit(clause.Associations).Create(a).Error; err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// FindAppointment loads an appointment with its participants.
func (r *AppointmentRepository) FindAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var appointment models.Appointment
	err := r.DB.WithContext(ctx).
		Preload("Patient").
		Preload("Provider").
		First(&appointment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find appointment %s: %w", id, err)
	}
	return &appointment, nil
}

// SaveAppointment writes every column of a loaded appointment back by id,
// provided nobody else saved it since it was loaded.
func (r *AppointmentRepository) SaveAppointment(ctx context.Context, a *models.Appointment) error {
	loaded := a.Version
	a.Version = loaded + 1

	res := r.DB.WithContext(ctx).
		Model(a).
		Where("version = ?", loaded).
		Select("*").
		Omit(clause.Associations, "created_at").
		Updates(a)
	if res.Error != nil {
		a.Version = loaded
		return fmt.Errorf("save appointment %s: %w", a.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		a.Version = loaded
		return ErrConflict
	}
	return nil
}

// ListAppointments returns one page of appointments matching filter.
func (r *AppointmentRepository) ListAppointments(ctx context.Context, filter AppointmentFilter, order SortOrder, skip, limit int) ([]models.Appointment, error) {
	query := applyAppointmentFilter(r.DB.WithContext(ctx).Model(&models.Appointment{}), filter)

	switch order {
	case SortChronological:
		query = query.Order("appointment_date asc").Order("appointment_time asc")
	default:
		query = query.Order("appointment_date desc").Order("appointment_time asc")
	}

	var appointments []models.Appointment
	err := query.Order("id asc").
		Preload("Patient").
		Preload("Provider").
		Offset(skip).
		Limit(limit).
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}

// CountAppointments counts appointments matching filter.
func (r *AppointmentRepository) CountAppointments(ctx context.Context, filter AppointmentFilter) (int64, error) {
	var total int64
	query := applyAppointmentFilter(r.DB.WithContext(ctx).Model(&models.Appointment{}), filter)
	if err := query.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return total, nil
}

func applyAppointmentFilter(query *gorm.DB, filter AppointmentFilter) *gorm.DB {
	if filter.PatientID != "" {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if filter.ProviderID != "" {
		query = query.Where("provider_id = ?", filter.ProviderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		query = query.Where("appointment_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("appointment_date <= ?", *filter.DateTo)
	}
	return query
}
