package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Alias is a secondary slug that resolves through an existing destination.
// It shares the slug namespace with destinations.
type Alias struct {
	ID            uuid.UUID      `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null" json:"userId"`
	DestinationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"destinationId"`
	Slug          string         `gorm:"uniqueIndex;not null" json:"slug"`

	Destination Destination `gorm:"foreignKey:DestinationID" json:"-"`
}

// BeforeCreate assigns a fresh UUID when none is set
func (a *Alias) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
