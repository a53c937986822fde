package database

import (
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// SetMigrationLogger routes goose output (a *log.Logger fits).
func SetMigrationLogger(l goose.Logger) {
	goose.SetLogger(l)
}

// SilenceMigrations stops goose from printing every applied migration.
func SilenceMigrations() {
	goose.SetLogger(goose.NopLogger())
}
