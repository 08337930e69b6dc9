package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEntryType tags an audit trail entry with the action it documents
type AuditEntryType string

const (
	AuditCreateUser        AuditEntryType = "create-user"
	AuditChangePassword    AuditEntryType = "change-password"
	AuditDeleteUser        AuditEntryType = "delete-user"
	AuditCreateDestination AuditEntryType = "create-destination"
	AuditUpdateDestination AuditEntryType = "update-destination"
	AuditDeleteDestination AuditEntryType = "delete-destination"
	AuditCreateAlias       AuditEntryType = "create-alias"
	AuditDeleteAlias       AuditEntryType = "delete-alias"
	AuditCreateNote        AuditEntryType = "create-note"
	AuditUpdateNote        AuditEntryType = "update-note"
	AuditDeleteNote        AuditEntryType = "delete-note"
)

// AuditTrailEntry documents a single mutating action. Entries are written
// in the same transaction as the mutation itself and are never updated or
// deleted afterwards.
type AuditTrailEntry struct {
	ID            uuid.UUID      `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt     time.Time      `json:"createdAt"`
	Type          AuditEntryType `gorm:"type:varchar(32);not null;index" json:"type"`
	CreatedByID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"createdById"`
	UserID        *uuid.UUID     `gorm:"type:uuid" json:"userId,omitempty"`
	DestinationID *uuid.UUID     `gorm:"type:uuid" json:"destinationId,omitempty"`
	AliasID       *uuid.UUID     `gorm:"type:uuid" json:"aliasId,omitempty"`
	NoteID        *uuid.UUID     `gorm:"type:uuid" json:"noteId,omitempty"`
	IPAddress     string         `json:"ipAddress,omitempty"`
}

// BeforeCreate assigns a fresh UUID when none is set
func (e *AuditTrailEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
