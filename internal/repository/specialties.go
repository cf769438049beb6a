package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"medibook-server/internal/models"
)

// SpecialtyRepository persists the specialty catalog with gorm.
type SpecialtyRepository struct {
	DB *gorm.DB
}

// NewSpecialtyRepository creates a new SpecialtyRepository.
func NewSpecialtyRepository(db *gorm.DB) *SpecialtyRepository {
	return &SpecialtyRepository{DB: db}
}

// CreateSpecialty inserts a new, active specialty.
func (r *SpecialtyRepository) CreateSpecialty(ctx context.Context, s *models.Specialty) error {
	s.IsActive = true
	if s.CommonConditions == nil {
		s.CommonConditions = []models.Condition{}
	}
	if err := r.DB.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("create specialty: %w", err)
	}
	return nil
}

// FindSpecialty loads a specialty by id.
func (r *SpecialtyRepository) FindSpecialty(ctx context.Context, id string) (*models.Specialty, error) {
	var specialty models.Specialty
	if err := r.DB.WithContext(ctx).First(&specialty, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find specialty %s: %w", id, err)
	}
	return &specialty, nil
}

// FindSpecialtyByName loads a specialty by its exact name.
func (r *SpecialtyRepository) FindSpecialtyByName(ctx context.Context, name string) (*models.Specialty, error) {
	var specialty models.Specialty
	if err := r.DB.WithContext(ctx).Where("name = ?", name).First(&specialty).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find specialty by name: %w", err)
	}
	return &specialty, nil
}

// ListSpecialties lists specialties by name. Inactive entries are skipped
// unless includeInactive is set.
func (r *SpecialtyRepository) ListSpecialties(ctx context.Context, includeInactive bool) ([]models.Specialty, error) {
	var specialties []models.Specialty
	query := r.DB.WithContext(ctx).Order("name asc")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&specialties).Error; err != nil {
		return nil, fmt.Errorf("list specialties: %w", err)
	}
	return specialties, nil
}

// UpdateSpecialty applies update to the specialty with the given id.
func (r *SpecialtyRepository) UpdateSpecialty(ctx context.Context, id string, update SpecialtyUpdate) (*models.Specialty, error) {
	specialty, err := r.FindSpecialty(ctx, id)
	if err != nil {
		return nil, err
	}
	update.apply(specialty)

	err = r.DB.WithContext(ctx).Model(specialty).
		Select("name", "description", "icon_url", "image_url", "common_conditions", "is_active").
		Updates(specialty).Error
	if err != nil {
		return nil, fmt.Errorf("update specialty %s: %w", id, err)
	}
	return specialty, nil
}
