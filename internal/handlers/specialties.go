package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"medibook-server/internal/models"
	"medibook-server/internal/repository"
	"medibook-server/internal/utils"
)

// SpecialtyCatalog is the persistence the specialty handlers need.
type SpecialtyCatalog interface {
	CreateSpecialty(ctx context.Context, s *models.Specialty) error
	FindSpecialty(ctx context.Context, id string) (*models.Specialty, error)
	FindSpecialtyByName(ctx context.Context, name string) (*models.Specialty, error)
	ListSpecialties(ctx context.Context, includeInactive bool) ([]models.Specialty, error)
	UpdateSpecialty(ctx context.Context, id string, update repository.SpecialtyUpdate) (*models.Specialty, error)
}

// SpecialtyHandler handles the specialty catalog.
type SpecialtyHandler struct {
	Specialties SpecialtyCatalog
}

// NewSpecialtyHandler creates a new SpecialtyHandler.
func NewSpecialtyHandler(specialties SpecialtyCatalog) *SpecialtyHandler {
	return &SpecialtyHandler{Specialties: specialties}
}

// CreateSpecialtyRequest represents the request body for a new specialty.
type CreateSpecialtyRequest struct {
	Name             string             `json:"name" binding:"required"`
	Description      string             `json:"description" binding:"required"`
	IconURL          string             `json:"iconUrl" binding:"omitempty,url"`
	ImageURL         string             `json:"imageUrl" binding:"omitempty,url"`
	CommonConditions []models.Condition `json:"commonConditions"`
}

// UpdateSpecialtyRequest represents the editable specialty fields.
type UpdateSpecialtyRequest struct {
	Name             *string            `json:"name" binding:"omitempty,min=1"`
	Description      *string            `json:"description" binding:"omitempty,min=1"`
	IconURL          *string            `json:"iconUrl"`
	ImageURL         *string            `json:"imageUrl"`
	CommonConditions []models.Condition `json:"commonConditions"`
	IsActive         *bool              `json:"isActive"`
}

// GetSpecialties handles listing the catalog. Inactive entries are only
// included with includeInactive=true.
func (h *SpecialtyHandler) GetSpecialties(c *gin.Context) {
	specialties, err := h.Specialties.ListSpecialties(c.Request.Context(), c.Query("includeInactive") == "true")
	if err != nil {
		utils.InternalServerError(c, err)
		return
	}
	utils.Success(c, gin.H{"count": len(specialties), "specialties": specialties})
}

// GetSpecialtyByID handles fetching a single specialty.
func (h *SpecialtyHandler) GetSpecialtyByID(c *gin.Context) {
	specialty, err := h.Specialties.FindSpecialty(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondSpecialtyError(c, err)
		return
	}
	utils.Success(c, gin.H{"specialty": specialty})
}

// CreateSpecialty handles adding a specialty to the catalog (admin).
func (h *SpecialtyHandler) CreateSpecialty(c *gin.Context) {
	var req CreateSpecialtyRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		utils.BadRequest(c, "name is required")
		return
	}

	ctx := c.Request.Context()
	if !h.nameAvailable(c, name, "") {
		return
	}

	specialty := models.Specialty{
		Name:             name,
		Description:      req.Description,
		IconURL:          req.IconURL,
		ImageURL:         req.ImageURL,
		CommonConditions: req.CommonConditions,
	}
	if err := h.Specialties.CreateSpecialty(ctx, &specialty); err != nil {
		utils.InternalServerError(c, err)
		return
	}
	utils.Created(c, gin.H{"specialty": specialty})
}

// UpdateSpecialty handles editing a catalog entry (admin).
func (h *SpecialtyHandler) UpdateSpecialty(c *gin.Context) {
	var req UpdateSpecialtyRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	id := c.Param("id")
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			utils.BadRequest(c, "name is required")
			return
		}
		if !h.nameAvailable(c, name, id) {
			return
		}
		req.Name = &name
	}

	specialty, err := h.Specialties.UpdateSpecialty(c.Request.Context(), id, repository.SpecialtyUpdate{
		Name:             req.Name,
		Description:      req.Description,
		IconURL:          req.IconURL,
		ImageURL:         req.ImageURL,
		CommonConditions: req.CommonConditions,
		IsActive:         req.IsActive,
	})
	if err != nil {
		respondSpecialtyError(c, err)
		return
	}
	utils.Success(c, gin.H{"specialty": specialty})
}

// DeleteSpecialty handles retiring a catalog entry (admin). The entry is
// deactivated, not removed.
func (h *SpecialtyHandler) DeleteSpecialty(c *gin.Context) {
	inactive := false
	_, err := h.Specialties.UpdateSpecialty(c.Request.Context(), c.Param("id"), repository.SpecialtyUpdate{IsActive: &inactive})
	if err != nil {
		respondSpecialtyError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Specialty deactivated successfully"})
}

// nameAvailable reports whether name is free for the specialty with id,
// writing the error response when it is not.
func (h *SpecialtyHandler) nameAvailable(c *gin.Context, name, id string) bool {
	existing, err := h.Specialties.FindSpecialtyByName(c.Request.Context(), name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return true
	case err != nil:
		utils.InternalServerError(c, err)
		return false
	case existing.ID == id:
		return true
	}
	utils.BadRequest(c, "Specialty with this name already exists")
	return false
}

func respondSpecialtyError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		utils.NotFound(c, "Specialty not found")
		return
	}
	utils.InternalServerError(c, err)
}
