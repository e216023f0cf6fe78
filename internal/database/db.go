package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is the distinguished "no row" condition. Callers treat it as a
// normal outcome (for example to provision defaults), never as a failure.
var ErrNotFound = errors.New("record not found")

// IsNotFound reports whether err is a not-found condition from gorm or from
// this package.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// Translate maps gorm's not-found error onto ErrNotFound and leaves every
// other error untouched.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// IsDuplicate reports whether err is a unique-constraint violation.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

// Initialize opens the database for the given driver and runs migrations.
// For sqlite, target is a file path; for postgres it is a DSN.
func Initialize(driver, target string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite":
		dir := filepath.Dir(target)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dialector = sqlite.Open(target + "?_foreign_keys=on")
	case "postgres":
		dialector = postgres.Open(target)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Migrate creates or updates every table and its indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&AuthSession{},
		&Profile{},
		&OrganizationSettings{},
		&FirmSettings{},
		&SystemPreferences{},
		&Client{},
		&Case{},
		&Document{},
		&Event{},
		&TimeEntry{},
		&Invoice{},
		&InvoiceItem{},
	); err != nil {
		return err
	}
	return RunMigrations(db)
}
