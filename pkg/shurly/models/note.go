package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Note is free-text content attached to a destination
type Note struct {
	ID            uuid.UUID      `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null" json:"userId"`
	DestinationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"destinationId"`
	Content       string         `gorm:"not null" json:"content"`

	Destination Destination `gorm:"foreignKey:DestinationID" json:"-"`
}

// BeforeCreate assigns a fresh UUID when none is set
func (n *Note) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
