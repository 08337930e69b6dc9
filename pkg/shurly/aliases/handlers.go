package aliases

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/workplacebuddy/shurly/pkg/shurly/audit"
	"github.com/workplacebuddy/shurly/pkg/shurly/auth"
	"github.com/workplacebuddy/shurly/pkg/shurly/models"
	"github.com/workplacebuddy/shurly/pkg/shurly/slugs"
)

// Handler handles alias management requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new aliases handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateAliasRequest represents the request to create an alias
type CreateAliasRequest struct {
	Slug string `json:"slug" binding:"required"`
}

// AliasResponse represents an alias in API responses
type AliasResponse struct {
	ID            uuid.UUID `json:"id"`
	DestinationID uuid.UUID `json:"destinationId"`
	Slug          string    `json:"slug"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ToResponse converts an alias to its API representation
func ToResponse(alias models.Alias) AliasResponse {
	return AliasResponse{
		ID:            alias.ID,
		DestinationID: alias.DestinationID,
		Slug:          alias.Slug,
		CreatedAt:     alias.CreatedAt,
		UpdatedAt:     alias.UpdatedAt,
	}
}

// List returns all live aliases of a destination, newest first
func (h *Handler) List(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok || !user.Role.Allows(models.RoleManager) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	destination, err := fetchDestination(h.db, c.Param("destination"))
	if err != nil {
		respondError(c, err)
		return
	}

	var found []models.Alias
	if err := h.db.Where("destination_id = ?", destination.ID).Order("created_at DESC").Find(&found).Error; err != nil {
		respondError(c, err)
		return
	}

	responses := make([]AliasResponse, 0, len(found))
	for _, alias := range found {
		responses = append(responses, ToResponse(alias))
	}
	c.JSON(http.StatusOK, responses)
}

// Single returns one live alias of a destination
func (h *Handler) Single(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok || !user.Role.Allows(models.RoleManager) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	destination, err := fetchDestination(h.db, c.Param("destination"))
	if err != nil {
		respondError(c, err)
		return
	}

	alias, err := fetchAlias(h.db, destination.ID, c.Param("alias"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ToResponse(alias))
}

// Create registers a new alias on a live destination. Alias slugs live in
// the same namespace as destination slugs, burned slugs included.
func (h *Handler) Create(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok || !user.Role.Allows(models.RoleManager) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var req CreateAliasRequest
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

	var alias models.Alias
	err = h.db.Transaction(func(tx *gorm.DB) error {
		destination, err := fetchDestination(tx, c.Param("destination"))
		if err != nil {
			return err
		}

		taken, err := slugs.Taken(tx, slug)
		if err != nil {
			return err
		}
		if taken {
			return models.ErrSlugConflict
		}

		alias = models.Alias{
			UserID:        user.ID,
			DestinationID: destination.ID,
			Slug:          slug,
		}
		if err := tx.Create(&alias).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return models.ErrSlugConflict
			}
			return err
		}

		return audit.Record(tx, user, c.ClientIP(), audit.CreateAlias(&destination, &alias))
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ToResponse(alias))
}

// Delete soft-deletes an alias; its slug stays burned
func (h *Handler) Delete(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok || !user.Role.Allows(models.RoleManager) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		destination, err := fetchDestination(tx, c.Param("destination"))
		if err != nil {
			return err
		}

		alias, err := fetchAlias(tx, destination.ID, c.Param("alias"))
		if err != nil {
			return err
		}

		if err := tx.Delete(&alias).Error; err != nil {
			return err
		}

		return audit.Record(tx, user, c.ClientIP(), audit.DeleteAlias(&destination, &alias))
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers alias routes nested under destinations
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:destination/aliases", h.List)
	rg.POST("/:destination/aliases", h.Create)
	rg.GET("/:destination/aliases/:alias", h.Single)
	rg.DELETE("/:destination/aliases/:alias", h.Delete)
}

func fetchDestination(tx *gorm.DB, param string) (models.Destination, error) {
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

func fetchAlias(tx *gorm.DB, destinationID uuid.UUID, param string) (models.Alias, error) {
	id, err := uuid.Parse(param)
	if err != nil {
		return models.Alias{}, models.ErrNotFound
	}

	var alias models.Alias
	if err := tx.First(&alias, "id = ? AND destination_id = ?", id, destinationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Alias{}, models.ErrNotFound
		}
		return models.Alias{}, err
	}
	return alias, nil
}

func respondError(c *gin.Context, err error) {
	status := models.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("aliases: %v", err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
