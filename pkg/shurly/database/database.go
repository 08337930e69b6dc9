package database

import (
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Connect opens a database connection for the given DSN.
//
// Postgres DSNs (postgres:// URLs or key=value connection strings) use the
// postgres driver, everything else is treated as a SQLite path. TranslateError
// is enabled so uniqueness violations surface as gorm.ErrDuplicatedKey and can
// be turned into slug conflicts by the caller.
func Connect(dsn string) (*gorm.DB, error) {
	config := &gorm.Config{TranslateError: true}

	if isPostgres(dsn) {
		return gorm.Open(postgres.Open(dsn), config)
	}
	return gorm.Open(sqlite.Open(dsn), config)
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}
