package database

import (
	"fmt"

	"gorm.io/gorm"
)

// RunMigrations executes all database migrations
func RunMigrations(db *gorm.DB) error {
	// Create indexes for better performance
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createIndexes creates database indexes
func createIndexes(db *gorm.DB) error {
	statements := []string{
		// Numbering lookups read the max sequence per prefix. The unique
		// constraint makes a concurrent duplicate allocation fail loudly.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_clients_prefix_seq
		ON clients(organization_prefix, sequential_number)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_cases_numbering
		ON cases(client_id, case_type, case_year, sequential_number)`,

		`CREATE INDEX IF NOT EXISTS idx_cases_created
		ON cases(created_by, created_at)`,

		`CREATE INDEX IF NOT EXISTS idx_events_start
		ON events(event_type, start_date)`,

		`CREATE INDEX IF NOT EXISTS idx_documents_uploaded
		ON documents(uploaded_by, uploaded_at)`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}
