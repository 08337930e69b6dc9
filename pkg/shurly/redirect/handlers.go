// Package redirect resolves slugs to destinations. This is the public
// hot path of the service; everything it does per request is a couple of
// indexed reads and a non-blocking hit record.
package redirect

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/workplacebuddy/shurly/pkg/shurly/hits"
	"github.com/workplacebuddy/shurly/pkg/shurly/metrics"
	"github.com/workplacebuddy/shurly/pkg/shurly/models"
	"github.com/workplacebuddy/shurly/pkg/shurly/slugs"
)

// Handler resolves incoming slugs and issues redirects
type Handler struct {
	db        *gorm.DB
	collector *hits.Collector
	metrics   *metrics.Collector
}

// NewHandler creates a new redirect handler
func NewHandler(db *gorm.DB, collector *hits.Collector, m *metrics.Collector) *Handler {
	return &Handler{db: db, collector: collector, metrics: m}
}

// Resolve handles any request that did not match a registered route. The
// whole path is the slug, so slugs may contain slashes.
func (h *Handler) Resolve(c *gin.Context) {
	slug, err := slugs.Normalize(c.Request.URL.Path)
	if err != nil {
		h.notFound(c)
		return
	}

	destination, aliasID, err := h.resolve(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.notFound(c)
			return
		}
		log.Printf("redirect: resolving %q: %v", slug, err)
		h.metrics.RecordRedirect(http.StatusInternalServerError)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	status := http.StatusTemporaryRedirect
	if destination.IsPermanent {
		status = http.StatusPermanentRedirect
	}

	target := destination.URL
	if destination.ForwardQueryParameters {
		target = forwardQueryParameters(target, c.Request.URL.Query())
	}

	h.collector.Record(models.Hit{
		CreatedAt:     time.Now(),
		DestinationID: destination.ID,
		AliasID:       aliasID,
		IPAddress:     c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
	})

	h.metrics.RecordRedirect(status)
	c.Redirect(status, target)
}

// resolve looks the slug up as a destination first, then as an alias. An
// alias only resolves while its destination is live.
func (h *Handler) resolve(slug string) (models.Destination, *uuid.UUID, error) {
	var destination models.Destination
	err := h.db.First(&destination, "slug = ?", slug).Error
	if err == nil {
		return destination, nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Destination{}, nil, err
	}

	var alias models.Alias
	if err := h.db.First(&alias, "slug = ?", slug).Error; err != nil {
		return models.Destination{}, nil, err
	}
	if err := h.db.First(&destination, "id = ?", alias.DestinationID).Error; err != nil {
		return models.Destination{}, nil, err
	}
	return destination, &alias.ID, nil
}

// forwardQueryParameters merges the incoming query onto the target URL.
// Parameters already present on the target win over incoming ones.
func forwardQueryParameters(target string, incoming url.Values) string {
	if len(incoming) == 0 {
		return target
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return target
	}

	query := parsed.Query()
	for key, values := range incoming {
		if query.Has(key) {
			continue
		}
		for _, value := range values {
			query.Add(key, value)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func (h *Handler) notFound(c *gin.Context) {
	h.metrics.RecordRedirect(http.StatusNotFound)
	c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
}
