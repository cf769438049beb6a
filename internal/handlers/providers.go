package handlers

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"medibook-server/internal/models"
	"medibook-server/internal/repository"
	"medibook-server/internal/utils"
)

const defaultTopRated = 5

// ProviderProfiles is the provider persistence the profile handlers need.
type ProviderProfiles interface {
	FindProvider(ctx context.Context, id string) (*models.Provider, error)
	UpdateProviderProfile(ctx context.Context, id string, update repository.ProviderProfileUpdate) (*models.Provider, error)
	TopRatedProviders(ctx context.Context, limit int) ([]models.Provider, error)
	SearchProviders(ctx context.Context, filter repository.ProviderFilter, skip, limit int) ([]models.Provider, error)
	CountProviders(ctx context.Context, filter repository.ProviderFilter) (int64, error)
}

// ProviderHandler handles provider profile requests.
type ProviderHandler struct {
	Providers ProviderProfiles
	Paging    Paging
}

// NewProviderHandler creates a new ProviderHandler.
func NewProviderHandler(providers ProviderProfiles, paging Paging) *ProviderHandler {
	return &ProviderHandler{Providers: providers, Paging: paging}
}

// UpdateProfileRequest represents the editable provider profile fields.
type UpdateProfileRequest struct {
	Name            *string  `json:"name"`
	PhoneNumber     *string  `json:"phoneNumber"`
	Specialty       *string  `json:"specialty"`
	AboutMe         *string  `json:"aboutMe"`
	ConsultationFee *float64 `json:"consultationFee" binding:"omitempty,gte=0"`
}

// GetProviderByID handles fetching a provider with its reviews.
func (h *ProviderHandler) GetProviderByID(c *gin.Context) {
	h.respondProvider(c, c.Param("id"))
}

// GetCurrentProvider handles fetching the calling provider's own profile.
func (h *ProviderHandler) GetCurrentProvider(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	h.respondProvider(c, principal.ID)
}

// UpdateCurrentProvider handles editing the calling provider's profile.
// Fee changes only affect appointments booked afterwards.
func (h *ProviderHandler) UpdateCurrentProvider(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	provider, err := h.Providers.UpdateProviderProfile(c.Request.Context(), principal.ID, repository.ProviderProfileUpdate{
		Name:            req.Name,
		PhoneNumber:     req.PhoneNumber,
		Specialty:       req.Specialty,
		AboutMe:         req.AboutMe,
		ConsultationFee: req.ConsultationFee,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFound(c, "Provider not found")
			return
		}
		utils.InternalServerError(c, err)
		return
	}
	utils.Success(c, gin.H{"provider": provider})
}

// GetTopRatedProviders handles listing the best rated providers.
func (h *ProviderHandler) GetTopRatedProviders(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultTopRated)))
	if err != nil || limit < 1 {
		limit = defaultTopRated
	}

	providers, err := h.Providers.TopRatedProviders(c.Request.Context(), limit)
	if err != nil {
		utils.InternalServerError(c, err)
		return
	}
	utils.Success(c, gin.H{"count": len(providers), "providers": providers})
}

// SearchProviders handles the public provider directory. name and specialty
// match substrings, minRating is inclusive.
func (h *ProviderHandler) SearchProviders(c *gin.Context) {
	filter := repository.ProviderFilter{
		Name:      c.Query("name"),
		Specialty: c.Query("specialty"),
	}
	if raw := c.Query("minRating"); raw != "" {
		minRating, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(minRating) {
			utils.BadRequest(c, "minRating must be a number")
			return
		}
		filter.MinRating = minRating
	}
	h.respondSearch(c, filter)
}

// GetProvidersBySpecialty handles listing providers whose specialty matches
// the path segment.
func (h *ProviderHandler) GetProvidersBySpecialty(c *gin.Context) {
	h.respondSearch(c, repository.ProviderFilter{Specialty: c.Param("specialty")})
}

func (h *ProviderHandler) respondSearch(c *gin.Context, filter repository.ProviderFilter) {
	page, limit := h.Paging.parse(c)
	ctx := c.Request.Context()

	total, err := h.Providers.CountProviders(ctx, filter)
	if err != nil {
		utils.InternalServerError(c, err)
		return
	}
	providers, err := h.Providers.SearchProviders(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		utils.InternalServerError(c, err)
		return
	}
	if providers == nil {
		providers = []models.Provider{}
	}
	utils.Success(c, pageBody("providers", providers, len(providers), total, page, limit))
}

func (h *ProviderHandler) respondProvider(c *gin.Context, id string) {
	provider, err := h.Providers.FindProvider(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFound(c, "Provider not found")
			return
		}
		utils.InternalServerError(c, err)
		return
	}
	utils.Success(c, gin.H{"provider": provider})
}
