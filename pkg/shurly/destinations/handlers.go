package destinations

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/workplacebuddy/shurly/pkg/shurly/aliases"
	"github.com/workplacebuddy/shurly/pkg/shurly/audit"
	"github.com/workplacebuddy/shurly/pkg/shurly/auth"
	"github.com/workplacebuddy/shurly/pkg/shurly/models"
	"github.com/workplacebuddy/shurly/pkg/shurly/slugs"
)

// Handler handles destination management requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new destinations handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateDestinationRequest represents the request to create a destination
type CreateDestinationRequest struct {
	Slug                   string `json:"slug" binding:"required"`
	URL                    string `json:"url" binding:"required,url"`
	IsPermanent            bool   `json:"isPermanent"`
	ForwardQueryParameters bool   `json:"forwardQueryParameters"`
}

// UpdateDestinationRequest represents the request to update a destination.
// The slug is not an update field; it is immutable after creation.
type UpdateDestinationRequest struct {
	URL                    *string `json:"url" binding:"omitempty,url"`
	IsPermanent            *bool   `json:"isPermanent"`
	ForwardQueryParameters *bool   `json:"forwardQueryParameters"`
}

// DestinationResponse represents a destination in API responses
type DestinationResponse struct {
	ID                     uuid.UUID               `json:"id"`
	Slug                   string                  `json:"slug"`
	URL                    string                  `json:"url"`
	IsPermanent            bool                    `json:"isPermanent"`
	ForwardQueryParameters bool                    `json:"forwardQueryParameters"`
	CreatedAt              time.Time               `json:"createdAt"`
	UpdatedAt              time.Time               `json:"updatedAt"`
	Aliases                []aliases.AliasResponse `json:"aliases,omitempty"`
}

func toResponse(destination models.Destination, withAliases []models.Alias) DestinationResponse {
	response := DestinationResponse{
		ID:                     destination.ID,
		Slug:                   destination.Slug,
		URL:                    destination.URL,
		IsPermanent:            destination.IsPermanent,
		ForwardQueryParameters: destination.ForwardQueryParameters,
		CreatedAt:              destination.CreatedAt,
		UpdatedAt:              destination.UpdatedAt,
	}
	for _, alias := range withAliases {
		response.Aliases = append(response.Aliases, aliases.ToResponse(alias))
	}
	return response
}

// List returns all live destinations, newest first. Aliases can be included
// with ?include=aliases.
func (h *Handler) List(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok || !user.Role.Allows(models.RoleManager) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var found []models.Destination
	if err := h.db.Order("created_at DESC").Find(&found).Error; err != nil {
		respondError(c, err)
		return
	}

	byDestination := map[uuid.UUID][]models.Alias{}
	if c.Query("include") == "aliases" {
		ids := make([]uuid.UUID, 0, len(found))
		for _, destination := range found {
			ids = append(ids, destination.ID)
		}

		var all []models.Alias
		if len(ids) > 0 {
			if err := h.db.Where("destination_id IN ?", ids).Order("created_at DESC").Find(&all).Error; err != nil {
				respondError(c, err)
				return
			}
		}
		for _, alias := range all {
			byDestination[alias.DestinationID] = append(byDestination[alias.DestinationID], alias)
		}
	}

	responses := make([]DestinationResponse, 0, len(found))
	for _, destination := range found {
		responses = append(responses, toResponse(destination, byDestination[destination.ID]))
	}
	c.JSON(http.StatusOK, responses)
}

// Single returns one live destination by ID
func (h *Handler) Single(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok || !user.Role.Allows(models.RoleManager) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	destination, err := fetch(h.db, c.Param("destination"))
	if err != nil {
		respondError(c, err)
		return
	}

	var withAliases []models.Alias
	if c.Query("include") == "aliases" {
		if err := h.db.Where("destination_id = ?", destination.ID).Order("created_at DESC").Find(&withAliases).Error; err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, toResponse(destination, withAliases))
}

// Create registers a new destination.
//
// The slug is normalized, checked against reserved prefixes and against the
// whole slug namespace including burned slugs. Insert and audit entry share
// one transaction; a concurrent claim of the same slug surfaces as a
// uniqueness violation and is reported as a conflict.
func (h *Handler) Create(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok || !user.Role.Allows(models.RoleManager) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var req CreateDestinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slug, err := slugs.Normalize(req.Slug)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := slugs.CheckReserved(slug); err != nil {
		respondError(c, err)
		return
	}

	var destination models.Destination
	err = h.db.Transaction(func(tx *gorm.DB) error {
		taken, err := slugs.Taken(tx, slug)
		if err != nil {
			return err
		}
		if taken {
			return models.ErrSlugConflict
		}

		destination = models.Destination{
			UserID:                 user.ID,
			Slug:                   slug,
			URL:                    req.URL,
			IsPermanent:            req.IsPermanent,
			ForwardQueryParameters: req.ForwardQueryParameters,
		}
		if err := tx.Create(&destination).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return models.ErrSlugConflict
			}
			return err
		}

		return audit.Record(tx, user, c.ClientIP(), audit.CreateDestination(&destination))
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toResponse(destination, nil))
}

// Update changes URL, permanence, or query forwarding of a destination.
//
// A permanent destination's URL is immutable and the permanent flag only
// moves from false to true. The audit entry is written only when a field
// actually changed.
func (h *Handler) Update(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok || !user.Role.Allows(models.RoleManager) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var req UpdateDestinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var destination models.Destination
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		destination, err = fetch(tx, c.Param("destination"))
		if err != nil {
			return err
		}

		if req.IsPermanent != nil && !*req.IsPermanent && destination.IsPermanent {
			return models.ErrImmutableField
		}
		if req.URL != nil && destination.IsPermanent && *req.URL != destination.URL {
			return models.ErrImmutableField
		}

		updates := map[string]interface{}{}
		if req.URL != nil && *req.URL != destination.URL {
			updates["url"] = *req.URL
			destination.URL = *req.URL
		}
		if req.IsPermanent != nil && *req.IsPermanent != destination.IsPermanent {
			updates["is_permanent"] = *req.IsPermanent
			destination.IsPermanent = *req.IsPermanent
		}
		if req.ForwardQueryParameters != nil && *req.ForwardQueryParameters != destination.ForwardQueryParameters {
			updates["forward_query_parameters"] = *req.ForwardQueryParameters
			destination.ForwardQueryParameters = *req.ForwardQueryParameters
		}

		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&destination).Updates(updates).Error; err != nil {
			return err
		}

		return audit.Record(tx, user, c.ClientIP(), audit.UpdateDestination(&destination))
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(destination, nil))
}

// Delete soft-deletes a destination. The slug stays burned and live aliases
// pointing here start resolving to not found.
func (h *Handler) Delete(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok || !user.Role.Allows(models.RoleManager) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		destination, err := fetch(tx, c.Param("destination"))
		if err != nil {
			return err
		}

		if err := tx.Delete(&destination).Error; err != nil {
			return err
		}

		return audit.Record(tx, user, c.ClientIP(), audit.DeleteDestination(&destination))
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers destination routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:destination", h.Single)
	rg.PATCH("/:destination", h.Update)
	rg.DELETE("/:destination", h.Delete)
}

// fetch loads a live destination by its path parameter
func fetch(tx *gorm.DB, param string) (models.Destination, error) {
	id, err := uuid.Parse(param)
	if err != nil {
		return models.Destination{}, models.ErrNotFound
	}

	var destination models.Destination
	if err := tx.First(&destination, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Destination{}, models.ErrNotFound
		}
		return models.Destination{}, err
	}
	return destination, nil
}

func respondError(c *gin.Context, err error) {
	status := models.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("destinations: %v", err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
