package models

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func TestRoleAllows(t *testing.T) {
	if !RoleAdmin.Allows(RoleAdmin) || !RoleAdmin.Allows(RoleManager) {
		t.Error("Expected admin to act at every level")
	}
	if !RoleManager.Allows(RoleManager) {
		t.Error("Expected manager to act as manager")
	}
	if RoleManager.Allows(RoleAdmin) {
		t.Error("Expected manager to be denied admin actions")
	}
	if Role("owner").Valid() {
		t.Error("Expected unknown role to be invalid")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		ErrUnauthorized:   http.StatusUnauthorized,
		ErrForbidden:      http.StatusForbidden,
		ErrInvalidSlug:    http.StatusBadRequest,
		ErrImmutableField: http.StatusBadRequest,
		ErrNotFound:       http.StatusNotFound,
		ErrSlugConflict:   http.StatusConflict,
		errors.New("boom"): http.StatusInternalServerError,
	}

	for err, want := range cases {
		if got := HTTPStatus(err); got != want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", err, got, want)
		}
	}

	// wrapped errors map the same way
	wrapped := fmt.Errorf("context: %w", ErrInvalidSlug)
	if got := HTTPStatus(wrapped); got != http.StatusBadRequest {
		t.Errorf("HTTPStatus(wrapped) = %d, want 400", got)
	}
}

func TestSlugUniquenessSpansDeletedRows(t *testing.T) {
	db := setupTestDB(t)

	user := User{Username: "alice", Role: RoleManager}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	destination := Destination{UserID: user.ID, Slug: "page", URL: "https://example.com"}
	if err := db.Create(&destination).Error; err != nil {
		t.Fatalf("Failed to create test destination: %v", err)
	}
	if err := db.Delete(&destination).Error; err != nil {
		t.Fatalf("Failed to delete test destination: %v", err)
	}

	// the unique index has no deleted_at clause, so the slug stays claimed
	again := Destination{UserID: user.ID, Slug: "page", URL: "https://example.com"}
	if err := db.Create(&again).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("Expected duplicated key error, got %v", err)
	}
}

func TestUserAssignsUUID(t *testing.T) {
	db := setupTestDB(t)

	user := User{Username: "alice", Role: RoleAdmin}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	if user.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("Expected a generated UUID primary key")
	}
}
