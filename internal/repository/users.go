package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"medibook-server/internal/models"
)

// UserRepository persists patient and admin accounts with gorm.
type UserRepository struct {
	DB *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// CreateUser inserts a new user.
func (r *UserRepository) CreateUser(ctx context.Context, u *models.User) error {
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindUserByEmail loads a user by login email.
func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindUser loads a user by id.
func (r *UserRepository) FindUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return &user, nil
}

// ListUsers returns one page of users matching filter, newest first.
func (r *UserRepository) ListUsers(ctx context.Context, filter UserFilter, skip, limit int) ([]models.User, error) {
	var users []models.User
	query := r.scope(ctx, filter).
		Order("created_at desc").
		Order("id asc").
		Offset(skip)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// CountUsers counts users matching filter.
func (r *UserRepository) CountUsers(ctx context.Context, filter UserFilter) (int64, error) {
	var total int64
	if err := r.scope(ctx, filter).Model(&models.User{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return total, nil
}

// UpdateUserProfile applies update to the user with the given id.
func (r *UserRepository) UpdateUserProfile(ctx context.Context, id string, update UserProfileUpdate) (*models.User, error) {
	user, err := r.FindUser(ctx, id)
	if err != nil {
		return nil, err
	}
	update.apply(user)

	err = r.DB.WithContext(ctx).Model(user).
		Select("first_name", "last_name", "phone_number", "date_of_birth").
		Updates(user).Error
	if err != nil {
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}
	return user, nil
}

// DeleteUser removes the user with the given id. Users with appointments
// are kept and ErrInUse is returned.
func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	var booked int64
	if err := r.DB.WithContext(ctx).Model(&models.Appointment{}).Where("patient_id = ?", id).Count(&booked).Error; err != nil {
		return fmt.Errorf("count appointments of user %s: %w", id, err)
	}
	if booked > 0 {
		return ErrInUse
	}

	res := r.DB.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) scope(ctx context.Context, filter UserFilter) *gorm.DB {
	query := r.DB.WithContext(ctx)
	if filter.Name != "" {
		pattern := likePattern(filter.Name)
		query = query.Where("(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?)", pattern, pattern)
	}
	if filter.Email != "" {
		query = query.Where("LOWER(email) LIKE ?", likePattern(filter.Email))
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	return query
}
