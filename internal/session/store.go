package session

import (
	"context"

	"github.com/JustJay7/case-manager/internal/database"
	"gorm.io/gorm"
)

// Store implements ProfileStore and FirmStore on gorm.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*database.Profile, error) {
	var p database.Profile
	if err := s.db.WithContext(ctx).First(&p, "id = ?", userID).Error; err != nil {
		return nil, database.Translate(err)
	}
	return &p, nil
}

func (s *Store) CreateProfile(ctx context.Context, p *database.Profile) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *Store) GetFirmSettings(ctx context.Context, organizationID string) (*database.FirmSettings, error) {
	var fs database.FirmSettings
	if err := s.db.WithContext(ctx).Where("organization_id = ?", organizationID).First(&fs).Error; err != nil {
		return nil, database.Translate(err)
	}
	return &fs, nil
}

func (s *Store) CreateFirmSettings(ctx context.Context, fs *database.FirmSettings) error {
	return s.db.WithContext(ctx).Create(fs).Error
}
