package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role represents a user's role
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleManager
}

// Allows reports whether a user with this role may act at the required level.
// Admins may do everything a manager can.
func (r Role) Allows(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	return r == required
}

// User represents an operator of the service
//
// The session ID is embedded in every issued token; rotating it invalidates
// all outstanding tokens without a revocation list.
type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	SessionID      uuid.UUID      `gorm:"type:uuid;not null" json:"-"`
	Username       string         `gorm:"uniqueIndex;not null" json:"username"`
	HashedPassword string         `json:"-"`
	Role           Role           `gorm:"type:varchar(20);not null" json:"role"`
}

// BeforeCreate assigns a fresh UUID when none is set
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
