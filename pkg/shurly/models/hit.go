package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Hit records a visit to a redirect. Append-only, never updated or deleted.
//
// CreatedAt is set by the resolver at the moment of the redirect, not by the
// database, so a backed-up write queue cannot skew the timestamps.
type Hit struct {
	ID            uuid.UUID  `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt     time.Time  `json:"createdAt"`
	DestinationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"destinationId"`
	AliasID       *uuid.UUID `gorm:"type:uuid" json:"aliasId,omitempty"`
	IPAddress     string     `json:"ipAddress,omitempty"`
	UserAgent     string     `json:"userAgent,omitempty"`

	Destination Destination `gorm:"foreignKey:DestinationID" json:"-"`
}

// BeforeCreate assigns a fresh UUID when none is set
func (h *Hit) BeforeCreate(*gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
