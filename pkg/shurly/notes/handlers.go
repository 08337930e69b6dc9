package notes

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
)

// Handler handles note management requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new notes handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// NoteRequest represents the request to create or update a note
type NoteRequest struct {
	Content string `json:"content" binding:"required"`
}

// NoteResponse represents a note in API responses
type NoteResponse struct {
	ID            uuid.UUID `json:"id"`
	DestinationID uuid.UUID `json:"destinationId"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toResponse(note models.Note) NoteResponse {
	return NoteResponse{
		ID:            note.ID,
		DestinationID: note.DestinationID,
		Content:       note.Content,
		CreatedAt:     note.CreatedAt,
		UpdatedAt:     note.UpdatedAt,
	}
}

// List returns all live notes of a destination, newest first
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

	var found []models.Note
	if err := h.db.Where("destination_id = ?", destination.ID).Order("created_at DESC").Find(&found).Error; err != nil {
		respondError(c, err)
		return
	}

	responses := make([]NoteResponse, 0, len(found))
	for _, note := range found {
		responses = append(responses, toResponse(note))
	}
	c.JSON(http.StatusOK, responses)
}

// Single returns one live note of a destination
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

	note, err := fetchNote(h.db, destination.ID, c.Param("note"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(note))
}

// Create attaches a note to a live destination
func (h *Handler) Create(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok || !user.Role.Allows(models.RoleManager) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var note models.Note
	err := h.db.Transaction(func(tx *gorm.DB) error {
		destination, err := fetchDestination(tx, c.Param("destination"))
		if err != nil {
			return err
		}

		note = models.Note{
			UserID:        user.ID,
			DestinationID: destination.ID,
			Content:       req.Content,
		}
		if err := tx.Create(&note).Error; err != nil {
			return err
		}

		return audit.Record(tx, user, c.ClientIP(), audit.CreateNote(&destination, &note))
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toResponse(note))
}

// Update replaces the content of a note. The audit entry is written only
// when the content actually changed.
func (h *Handler) Update(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok || !user.Role.Allows(models.RoleManager) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var note models.Note
	err := h.db.Transaction(func(tx *gorm.DB) error {
		destination, err := fetchDestination(tx, c.Param("destination"))
		if err != nil {
			return err
		}

		note, err = fetchNote(tx, destination.ID, c.Param("note"))
		if err != nil {
			return err
		}

		if note.Content == req.Content {
			return nil
		}

		note.Content = req.Content
		if err := tx.Model(&note).Update("content", req.Content).Error; err != nil {
			return err
		}

		return audit.Record(tx, user, c.ClientIP(), audit.UpdateNote(&destination, &note))
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(note))
}

// Delete soft-deletes a note
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

		note, err := fetchNote(tx, destination.ID, c.Param("note"))
		if err != nil {
			return err
		}

		if err := tx.Delete(&note).Error; err != nil {
			return err
		}

		return audit.Record(tx, user, c.ClientIP(), audit.DeleteNote(&destination, &note))
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers note routes nested under destinations
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:destination/notes", h.List)
	rg.POST("/:destination/notes", h.Create)
	rg.GET("/:destination/notes/:note", h.Single)
	rg.PATCH("/:destination/notes/:note", h.Update)
	rg.DELETE("/:destination/notes/:note", h.Delete)
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

func fetchNote(tx *gorm.DB, destinationID uuid.UUID, param string) (models.Note, error) {
	id, err := uuid.Parse(param)
	if err != nil {
		return models.Note{}, models.ErrNotFound
	}

	var note models.Note
	if err := tx.First(&note, "id = ? AND destination_id = ?", id, destinationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Note{}, models.ErrNotFound
		}
		return models.Note{}, err
	}
	return note, nil
}

func respondError(c *gin.Context, err error) {
	status := models.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("notes: %v", err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
