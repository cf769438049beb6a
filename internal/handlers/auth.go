package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"medibook-server/internal/config"
	"medibook-server/internal/models"
	"medibook-server/internal/repository"
	"medibook-server/internal/utils"
)

// AccountStore is the persistence the auth handlers need.
type AccountStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateProvider(ctx context.Context, p *models.Provider) error
	FindProviderByEmail(ctx context.Context, email string) (*models.Provider, error)
}

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	Accounts AccountStore
	Cfg      *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts AccountStore, cfg *config.Config) *AuthHandler {
	return &AuthHandler{Accounts: accounts, Cfg: cfg}
}

// PatientRegisterRequest represents the request body for patient registration.
type PatientRegisterRequest struct {
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	PhoneNumber string `json:"phoneNumber"`
}

// ProviderRegisterRequest represents the request body for provider registration.
type ProviderRegisterRequest struct {
	Name            string  `json:"name" binding:"required"`
	Email           string  `json:"email" binding:"required,email"`
	Password        string  `json:"password" binding:"required,min=8"`
	Specialty       string  `json:"specialty" binding:"required"`
	LicenseNumber   string  `json:"licenseNumber"`
	PhoneNumber     string  `json:"phoneNumber"`
	AboutMe         string  `json:"aboutMe"`
	ConsultationFee float64 `json:"consultationFee" binding:"gte=0"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterPatient handles patient registration.
func (h *AuthHandler) RegisterPatient(c *gin.Context) {
	var req PatientRegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.Accounts.FindUserByEmail(ctx, req.Email); err == nil {
		utils.BadRequest(c, "User with this email already exists")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		utils.InternalServerError(c, err)
		return
	}

	user := models.User{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Role:        models.RolePatient,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, err)
		return
	}
	if err := h.Accounts.CreateUser(ctx, &user); err != nil {
		utils.InternalServerError(c, err)
		return
	}

	token, err := h.token(user.ID, user.Role)
	if err != nil {
		utils.InternalServerError(c, err)
		return
	}
	utils.Created(c, gin.H{"token": token, "user": user.Sanitize()})
}

// LoginPatient handles login for accounts in the users table. Admin accounts
// sign in here too and receive a token carrying their stored role.
func (h *AuthHandler) LoginPatient(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.Accounts.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Unauthorized(c, "Invalid email or password")
		} else {
			utils.InternalServerError(c, err)
		}
		return
	}
	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	token, err := h.token(user.ID, user.Role)
	if err != nil {
		utils.InternalServerError(c, err)
		return
	}
	utils.Success(c, gin.H{"token": token, "user": user.Sanitize()})
}

// RegisterProvider handles provider registration.
func (h *AuthHandler) RegisterProvider(c *gin.Context) {
	var req ProviderRegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.Accounts.FindProviderByEmail(ctx, req.Email); err == nil {
		utils.BadRequest(c, "Provider with this email already exists")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		utils.InternalServerError(c, err)
		return
	}

	provider := models.Provider{
		Name:            req.Name,
		Email:           req.Email,
		Specialty:       req.Specialty,
		LicenseNumber:   req.LicenseNumber,
		PhoneNumber:     req.PhoneNumber,
		AboutMe:         req.AboutMe,
		ConsultationFee: req.ConsultationFee,
	}
	if err := provider.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, err)
		return
	}
	if err := h.Accounts.CreateProvider(ctx, &provider); err != nil {
		utils.InternalServerError(c, err)
		return
	}

	token, err := h.token(provider.ID, models.RoleProvider)
	if err != nil {
		utils.InternalServerError(c, err)
		return
	}
	utils.Created(c, gin.H{"token": token, "provider": provider})
}

// LoginProvider handles provider login.
func (h *AuthHandler) LoginProvider(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	provider, err := h.Accounts.FindProviderByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Unauthorized(c, "Invalid email or password")
		} else {
			utils.InternalServerError(c, err)
		}
		return
	}
	if !provider.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	token, err := h.token(provider.ID, models.RoleProvider)
	if err != nil {
		utils.InternalServerError(c, err)
		return
	}
	utils.Success(c, gin.H{"token": token, "provider": provider})
}

func (h *AuthHandler) token(id string, role models.Role) (string, error) {
	ttl := time.Duration(h.Cfg.JWTExpirationMinutes) * time.Minute
	return utils.GenerateToken(id, role, h.Cfg.JWTSecret, ttl)
}
