// Package migrations applies the versioned PostgreSQL schema.
package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Version is the schema version the binaries expect.
const Version = 1

//go:embed *.sql
var files embed.FS

// ErrDirty reports a migration that failed halfway and needs manual repair.
var ErrDirty = errors.New("database is in dirty state")

// Migrate brings the database at databaseURL to Version.
func Migrate(databaseURL string) error {
	source, err := iofs.New(files, ".")
	if err != nil {
		return fmt.Errorf("migrations source: %w", err)
	}
	defer source.Close()

	migrator, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("migrations init: %w", err)
	}
	defer migrator.Close()

	_, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migrations version: %w", err)
	}
	if dirty {
		return ErrDirty
	}
	if err := migrator.Migrate(Version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations apply: %w", err)
	}
	return nil
}
