package database

import "gorm.io/gorm"

// An organization is identified by the id of the account that signed it up;
// firm settings use the same key as OrganizationID.

// CreatedBy limits a query to rows whose created_by is owner.
func CreatedBy(owner string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("created_by = ?", owner)
	}
}

// UploadedBy limits a document query to owner's uploads.
func UploadedBy(owner string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("uploaded_by = ?", owner)
	}
}

// ClientOwnedBy limits a query on a table with a client_id column to rows
// whose client belongs to owner.
func ClientOwnedBy(owner string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("client_id IN (SELECT id FROM clients WHERE created_by = ?)", owner)
	}
}
