package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"medibook-server/internal/models"
	"medibook-server/internal/repository"
	"medibook-server/internal/utils"
)

// UserAccounts is the user persistence the account handlers need.
type UserAccounts interface {
	FindUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, filter repository.UserFilter, skip, limit int) ([]models.User, error)
	CountUsers(ctx context.Context, filter repository.UserFilter) (int64, error)
	UpdateUserProfile(ctx context.Context, id string, update repository.UserProfileUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// UserHandler handles patient and admin account requests.
type UserHandler struct {
	Users  UserAccounts
	Paging Paging
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users UserAccounts, paging Paging) *UserHandler {
	return &UserHandler{Users: users, Paging: paging}
}

// UpdateUserRequest represents the editable user profile fields.
// DateOfBirth is a calendar date (YYYY-MM-DD).
type UpdateUserRequest struct {
	FirstName   *string `json:"firstName" binding:"omitempty,min=1"`
	LastName    *string `json:"lastName" binding:"omitempty,min=1"`
	PhoneNumber *string `json:"phoneNumber"`
	DateOfBirth *string `json:"dateOfBirth"`
}

// GetCurrentUser handles fetching the calling account.
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	h.respondUser(c, principal.ID)
}

// UpdateCurrentUser handles editing the calling account's profile. Email,
// password and role are not editable here.
func (h *UserHandler) UpdateCurrentUser(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	update := repository.UserProfileUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			utils.BadRequest(c, "dateOfBirth must be a date (YYYY-MM-DD)")
			return
		}
		if dob.After(time.Now()) {
			utils.BadRequest(c, "dateOfBirth cannot be in the future")
			return
		}
		update.DateOfBirth = &dob
	}

	user, err := h.Users.UpdateUserProfile(c.Request.Context(), principal.ID, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFound(c, "User not found")
			return
		}
		utils.InternalServerError(c, err)
		return
	}
	utils.Success(c, gin.H{"user": user.Sanitize()})
}

// GetUsers handles the paginated user listing (admin). name matches first or
// last name, email matches a substring and role filters exactly.
func (h *UserHandler) GetUsers(c *gin.Context) {
	filter := repository.UserFilter{
		Name:  c.Query("name"),
		Email: c.Query("email"),
	}
	if raw := c.Query("role"); raw != "" {
		role := models.Role(raw)
		if role != models.RoleAdmin && role != models.RolePatient {
			utils.BadRequest(c, "role must be one of admin, patient")
			return
		}
		filter.Role = role
	}

	page, limit := h.Paging.parse(c)
	ctx := c.Request.Context()

	total, err := h.Users.CountUsers(ctx, filter)
	if err != nil {
		utils.InternalServerError(c, err)
		return
	}
	users, err := h.Users.ListUsers(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		utils.InternalServerError(c, err)
		return
	}

	sanitizedUsers := make([]models.UserSanitized, len(users))
	for i, u := range users {
		sanitizedUsers[i] = u.Sanitize()
	}
	utils.Success(c, pageBody("users", sanitizedUsers, len(sanitizedUsers), total, page, limit))
}

// GetUserByID handles fetching a single user by ID (admin).
func (h *UserHandler) GetUserByID(c *gin.Context) {
	h.respondUser(c, c.Param("id"))
}

// DeleteUser handles deleting a user by ID (admin). Administrators cannot
// delete their own account and patients with appointments are kept.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	userID := c.Param("id")
	if userID == principal.ID {
		utils.BadRequest(c, "Administrators cannot delete their own account")
		return
	}

	if err := h.Users.DeleteUser(c.Request.Context(), userID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			utils.NotFound(c, "User not found")
			return
		case errors.Is(err, repository.ErrInUse):
			utils.Conflict(c, "User has appointments and cannot be deleted")
			return
		}
		utils.InternalServerError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "User deleted successfully"})
}

func (h *UserHandler) respondUser(c *gin.Context, id string) {
	user, err := h.Users.FindUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFound(c, "User not found")
			return
		}
		utils.InternalServerError(c, err)
		return
	}
	utils.Success(c, gin.H{"user": user.Sanitize()})
}
