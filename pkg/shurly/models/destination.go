package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Destination represents a registered slug to URL redirect mapping
//
// The slug is immutable after creation and its unique index spans
// soft-deleted rows, so a deleted slug stays burned. Once IsPermanent is set
// the URL is immutable and the flag can never revert.
type Destination struct {
	ID                     uuid.UUID      `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt              time.Time      `json:"createdAt"`
	UpdatedAt              time.Time      `json:"updatedAt"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`
	UserID                 uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	Slug                   string         `gorm:"uniqueIndex;not null" json:"slug"`
	URL                    string         `gorm:"not null" json:"url"`
	IsPermanent            bool           `gorm:"not null;default:false" json:"isPermanent"`
	ForwardQueryParameters bool           `gorm:"not null;default:false" json:"forwardQueryParameters"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// BeforeCreate assigns a fresh UUID when none is set
func (d *Destination) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
