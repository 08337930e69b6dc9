// Package slugs handles the shared slug namespace of destinations and
// aliases: normalization, reserved names, and uniqueness checks.
package slugs

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/workplacebuddy/shurly/pkg/shurly/models"
)

// Route prefixes that can never be claimed as a slug
var reserved = []string{"api", "health", "metrics"}

var folder = cases.Fold()

// Normalize turns raw input into its canonical slug form: surrounding
// slashes trimmed, Unicode case folded and NFC normalized. The same
// normalization applies at registration and at resolve time, so lookups are
// exact string matches.
func Normalize(raw string) (string, error) {
	slug := strings.Trim(raw, "/")

	if slug == "" {
		return "", fmt.Errorf("%w: slug is empty", models.ErrInvalidSlug)
	}

	if strings.ContainsAny(slug, "?#") {
		return "", fmt.Errorf(`%w: slug can not contain "?" or "#"`, models.ErrInvalidSlug)
	}

	return norm.NFC.String(folder.String(slug)), nil
}

// CheckReserved rejects slugs that would shadow the service's own routes
func CheckReserved(slug string) error {
	for _, prefix := range reserved {
		if slug == prefix || strings.HasPrefix(slug, prefix+"/") {
			return fmt.Errorf("%w: slug can not start with %q", models.ErrInvalidSlug, prefix)
		}
	}
	return nil
}

// Taken reports whether a normalized slug is already claimed by any
// destination or alias, soft-deleted rows included: a deleted slug stays
// burned forever.
func Taken(tx *gorm.DB, slug string) (bool, error) {
	var count int64
	if err := tx.Unscoped().Model(&models.Destination{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	if err := tx.Unscoped().Model(&models.Alias{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
