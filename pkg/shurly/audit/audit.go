// Package audit appends one immutable trail entry per mutating action.
//
// Record must be called on the same transaction as the mutation it documents;
// returning its error to gorm's Transaction callback guarantees that no
// mutation commits without its trail entry.
package audit

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/workplacebuddy/shurly/pkg/shurly/models"
)

// Entry describes a single action before it is written to the trail
type Entry struct {
	Type          models.AuditEntryType
	UserID        *uuid.UUID
	DestinationID *uuid.UUID
	AliasID       *uuid.UUID
	NoteID        *uuid.UUID
}

// CreateUser marks the creation of a user
func CreateUser(user *models.User) Entry {
	return Entry{Type: models.AuditCreateUser, UserID: &user.ID}
}

// ChangePassword marks a password change of a user
func ChangePassword(user *models.User) Entry {
	return Entry{Type: models.AuditChangePassword, UserID: &user.ID}
}

// DeleteUser marks the soft-deletion of a user
func DeleteUser(user *models.User) Entry {
	return Entry{Type: models.AuditDeleteUser, UserID: &user.ID}
}

// CreateDestination marks the creation of a destination
func CreateDestination(destination *models.Destination) Entry {
	return Entry{Type: models.AuditCreateDestination, DestinationID: &destination.ID}
}

// UpdateDestination marks an update of a destination
func UpdateDestination(destination *models.Destination) Entry {
	return Entry{Type: models.AuditUpdateDestination, DestinationID: &destination.ID}
}

// DeleteDestination marks the soft-deletion of a destination
func DeleteDestination(destination *models.Destination) Entry {
	return Entry{Type: models.AuditDeleteDestination, DestinationID: &destination.ID}
}

// CreateAlias marks the creation of an alias on a destination
func CreateAlias(destination *models.Destination, alias *models.Alias) Entry {
	return Entry{Type: models.AuditCreateAlias, DestinationID: &destination.ID, AliasID: &alias.ID}
}

// DeleteAlias marks the soft-deletion of an alias
func DeleteAlias(destination *models.Destination, alias *models.Alias) Entry {
	return Entry{Type: models.AuditDeleteAlias, DestinationID: &destination.ID, AliasID: &alias.ID}
}

// CreateNote marks the creation of a note on a destination
func CreateNote(destination *models.Destination, note *models.Note) Entry {
	return Entry{Type: models.AuditCreateNote, DestinationID: &destination.ID, NoteID: &note.ID}
}

// UpdateNote marks an update of a note
func UpdateNote(destination *models.Destination, note *models.Note) Entry {
	return Entry{Type: models.AuditUpdateNote, DestinationID: &destination.ID, NoteID: &note.ID}
}

// DeleteNote marks the soft-deletion of a note
func DeleteNote(destination *models.Destination, note *models.Note) Entry {
	return Entry{Type: models.AuditDeleteNote, DestinationID: &destination.ID, NoteID: &note.ID}
}

// Record writes the entry on the given transaction
func Record(tx *gorm.DB, actor models.User, ipAddress string, entry Entry) error {
	row := models.AuditTrailEntry{
		Type:          entry.Type,
		CreatedByID:   actor.ID,
		UserID:        entry.UserID,
		DestinationID: entry.DestinationID,
		AliasID:       entry.AliasID,
		NoteID:        entry.NoteID,
		IPAddress:     ipAddress,
	}
	return tx.Create(&row).Error
}
