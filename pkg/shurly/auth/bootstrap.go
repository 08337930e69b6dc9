package auth

import (
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/workplacebuddy/shurly/pkg/shurly/audit"
	"github.com/workplacebuddy/shurly/pkg/shurly/models"
)

// EnsureInitialUser creates a single admin user when no live users exist.
//
// Username and password come from configuration; empty values are generated
// and logged once. The create-user audit entry is written in the same
// transaction, with the new user as its own actor.
func EnsureInitialUser(db *gorm.DB, username, password string) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if username == "" {
		username = uuid.NewString()
		log.Printf("INITIAL_USERNAME not set, generated username: %s", username)
	}

	if password == "" {
		generated, err := GeneratePassword()
		if err != nil {
			return err
		}
		password = generated
		log.Printf("INITIAL_PASSWORD not set, generated password: %s", password)
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}

	user := models.User{
		SessionID:      uuid.New(),
		Username:       username,
		HashedPassword: hashedPassword,
		Role:           models.RoleAdmin,
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return audit.Record(tx, user, "", audit.CreateUser(&user))
	})
}
