package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"medibook-server/internal/models"
)

// ProviderRepository persists providers and their reviews with gorm.
type ProviderRepository struct {
	DB *gorm.DB
}

// NewProviderRepository creates a new ProviderRepository.
func NewProviderRepository(db *gorm.DB) *ProviderRepository {
	return &ProviderRepository{DB: db}
}

// CreateProvider inserts a new provider.
func (r *ProviderRepository) CreateProvider(ctx context.Context, p *models.Provider) error {
	if p.Version == 0 {
		p.Version = 1
	}
	if err := r.DB.WithContext(ctx).Omit("Reviews").Create(p).Error; err != nil {
		return fmt.Errorf("create provider: %w", err)
	}
	return nil
}

// FindProvider loads a provider with its full review history, oldest first.
func (r *ProviderRepository) FindProvider(ctx context.Context, id string) (*models.Provider, error) {
	var provider models.Provider
	err := r.DB.WithContext(ctx).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB {
			return db.Order("date asc")
		}).
		First(&provider, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find provider %s: %w", id, err)
	}
	return &provider, nil
}

// FindProviderByEmail loads a provider by login email.
func (r *ProviderRepository) FindProviderByEmail(ctx context.Context, email string) (*models.Provider, error) {
	var provider models.Provider
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&provider).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find provider by email: %w", err)
	}
	return &provider, nil
}

// LookupProvider returns the summary used for fee snapshots.
func (r *ProviderRepository) LookupProvider(ctx context.Context, id string) (*models.ProviderSummary, error) {
	var provider models.Provider
	if err := r.DB.WithContext(ctx).First(&provider, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup provider %s: %w", id, err)
	}
	summary := provider.Summary()
	return &summary, nil
}

// AppendReview appends review to p and stores rating as p's new aggregate in
// one transaction. It fails with ErrConflict when p changed since it was
// loaded. On success p reflects the committed state.
func (r *ProviderRepository) AppendReview(ctx context.Context, p *models.Provider, review *models.Review, rating float64) error {
	review.ProviderID = p.ID
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Provider{}).
			Where("id = ? AND version = ?", p.ID, p.Version).
			Updates(map[string]interface{}{
				"rating":  rating,
				"version": gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return tx.Create(review).Error
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("append review to provider %s: %w", p.ID, err)
	}

	p.Version++
	p.Rating = rating
	p.Reviews = append(p.Reviews, *review)
	return nil
}

// UpdateProviderProfile applies update to the provider with the given id.
func (r *ProviderRepository) UpdateProviderProfile(ctx context.Context, id string, update ProviderProfileUpdate) (*models.Provider, error) {
	provider, err := r.FindProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	update.apply(provider)

	err = r.DB.WithContext(ctx).Model(provider).
		Select("name", "phone_number", "specialty", "about_me", "consultation_fee").
		Updates(provider).Error
	if err != nil {
		return nil, fmt.Errorf("update provider %s: %w", id, err)
	}
	return provider, nil
}

// TopRatedProviders lists providers by rating, best first.
func (r *ProviderRepository) TopRatedProviders(ctx context.Context, limit int) ([]models.Provider, error) {
	var providers []models.Provider
	err := r.DB.WithContext(ctx).
		Order("rating desc").
		Order("name asc").
		Limit(limit).
		Find(&providers).Error
	if err != nil {
		return nil, fmt.Errorf("list top rated providers: %w", err)
	}
	return providers, nil
}

// SearchProviders returns one page of providers matching filter, best rated
// first.
func (r *ProviderRepository) SearchProviders(ctx context.Context, filter ProviderFilter, skip, limit int) ([]models.Provider, error) {
	var providers []models.Provider
	query := r.scope(ctx, filter).
		Order("rating desc").
		Order("created_at desc").
		Order("name asc").
		Offset(skip)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&providers).Error; err != nil {
		return nil, fmt.Errorf("search providers: %w", err)
	}
	return providers, nil
}

// CountProviders counts providers matching filter.
func (r *ProviderRepository) CountProviders(ctx context.Context, filter ProviderFilter) (int64, error) {
	var total int64
	if err := r.scope(ctx, filter).Model(&models.Provider{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count providers: %w", err)
	}
	return total, nil
}

func (r *ProviderRepository) scope(ctx context.Context, filter ProviderFilter) *gorm.DB {
	query := r.DB.WithContext(ctx)
	if filter.Name != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(filter.Name))
	}
	if filter.Specialty != "" {
		query = query.Where("LOWER(specialty) LIKE ?", likePattern(filter.Specialty))
	}
	if filter.MinRating > 0 {
		query = query.Where("rating >= ?", filter.MinRating)
	}
	return query
}
