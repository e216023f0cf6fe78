// Package firm holds per-organization configuration: firm profile,
// organization prefix, logo and system preferences.
package firm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/JustJay7/case-manager/internal/database"
	"github.com/JustJay7/case-manager/internal/numbering"
	"github.com/JustJay7/case-manager/internal/storage"
	"github.com/JustJay7/case-manager/internal/validation"
	"github.com/JustJay7/case-manager/pkg/logger"
	"gorm.io/gorm"
)

const (
	LogoBucket   = "logos"
	MaxLogoBytes = 5 << 20
)

var (
	ErrLogoTooLarge      = errors.New("logo file size must be less than 5MB")
	ErrUnsupportedLogo   = errors.New("logo must be a png, jpg, gif, svg or webp image")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrUnknownCategory   = errors.New("category not found")
)

var (
	websitePattern = regexp.MustCompile(`^https?://.*`)
	logoExtensions = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true, "svg": true, "webp": true}
)

// SettingsInput is the editable firm profile.
type SettingsInput struct {
	FirmName           string `json:"firm_name"`
	City               string `json:"city"`
	Phone              string `json:"phone"`
	Email              string `json:"email"`
	Website            string `json:"website"`
	OrganizationPrefix string `json:"organization_prefix"`
}

func (in *SettingsInput) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("firm_name", in.FirmName, "Firm name is required", v)
	if p := strings.TrimSpace(in.OrganizationPrefix); p != "" {
		if _, err := numbering.NormalizePrefix(p); err != nil {
			v["organization_prefix"] = err.Error()
		}
	}
	validation.Email("email", strings.TrimSpace(in.Email), v)
	if w := strings.TrimSpace(in.Website); w != "" && !websitePattern.MatchString(w) {
		v["website"] = "Website URL must start with http:// or https://"
	}
	return v
}

type Service struct {
	db      *gorm.DB
	storage *storage.Store
	logger  *logger.Logger
	now     func() time.Time
}

func NewService(db *gorm.DB, store *storage.Store, log *logger.Logger) *Service {
	return &Service{db: db, storage: store, logger: log, now: time.Now}
}

// GetSettings returns the firm profile, or nil when none has been saved.
func (s *Service) GetSettings(ctx context.Context, organizationID string) (*database.FirmSettings, error) {
	fs, err := s.loadSettings(ctx, organizationID)
	if database.IsNotFound(err) {
		return nil, nil
	}
	return fs, err
}

// UpdateSettings inserts the firm profile on first save and updates it
// afterwards. A non-empty prefix is mirrored into organization settings.
func (s *Service) UpdateSettings(ctx context.Context, organizationID string, in SettingsInput) (*database.FirmSettings, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}

	prefix := ""
	if p := strings.TrimSpace(in.OrganizationPrefix); p != "" {
		prefix, _ = numbering.NormalizePrefix(p)
	}

	var fs *database.FirmSettings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing := database.FirmSettings{}
		err := tx.Where("organization_id = ?", organizationID).First(&existing).Error
		if err != nil && !database.IsNotFound(err) {
			return err
		}
		notFound := err != nil

		existing.OrganizationID = organizationID
		existing.FirmName = strings.TrimSpace(in.FirmName)
		existing.City = strings.TrimSpace(in.City)
		existing.Phone = strings.TrimSpace(in.Phone)
		existing.Email = strings.TrimSpace(in.Email)
		existing.Website = strings.TrimSpace(in.Website)
		if prefix != "" {
			existing.OrganizationPrefix = prefix
		}

		if notFound {
			err = tx.Create(&existing).Error
		} else {
			err = tx.Save(&existing).Error
		}
		if err != nil {
			return err
		}

		if prefix != "" {
			if err := upsertOrganizationPrefix(tx, organizationID, prefix); err != nil {
				return err
			}
		}
		fs = &existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save firm settings: %w", err)
	}

	s.logger.Info("Firm settings updated", "organization_id", organizationID)
	return fs, nil
}

// OrganizationPrefix returns the user's prefix, falling back to the firm
// profile. An unset prefix is "" with no error.
func (s *Service) OrganizationPrefix(ctx context.Context, userID string) (string, error) {
	var org database.OrganizationSettings
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&org).Error
	switch {
	case err == nil && org.OrganizationPrefix != "":
		return org.OrganizationPrefix, nil
	case err != nil && !database.IsNotFound(err):
		return "", fmt.Errorf("load organization settings: %w", err)
	}

	fs, err := s.GetSettings(ctx, userID)
	if err != nil || fs == nil {
		return "", err
	}
	return fs.OrganizationPrefix, nil
}

// SetOrganizationPrefix validates and stores the prefix used for client
// and case numbers.
func (s *Service) SetOrganizationPrefix(ctx context.Context, userID, prefix string) (string, error) {
	norm, err := numbering.NormalizePrefix(prefix)
	if err != nil {
		return "", validation.Violations{"organization_prefix": err.Error()}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertOrganizationPrefix(tx, userID, norm); err != nil {
			return err
		}
		return tx.Model(&database.FirmSettings{}).
			Where("organization_id = ?", userID).
			Update("organization_prefix", norm).Error
	})
	if err != nil {
		return "", fmt.Errorf("save organization prefix: %w", err)
	}

	s.logger.Info("Organization prefix set", "user_id", userID, "prefix", norm)
	return norm, nil
}

// UploadLogo stores the image under logos/{user}/{timestamp}.{ext}, records
// its public URL on the firm profile and returns it.
func (s *Service) UploadLogo(ctx context.Context, userID, filename string, size int64, r io.Reader) (string, error) {
	if size > MaxLogoBytes {
		return "", ErrLogoTooLarge
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if !logoExtensions[ext] {
		return "", ErrUnsupportedLogo
	}

	name := fmt.Sprintf("%s/%d.%s", userID, s.now().UnixNano(), ext)
	obj, err := s.storage.Upload(ctx, LogoBucket, name, io.LimitReader(r, MaxLogoBytes+1))
	if err != nil {
		return "", fmt.Errorf("upload logo: %w", err)
	}
	if obj.Size > MaxLogoBytes {
		_ = s.storage.Delete(LogoBucket, name)
		return "", ErrLogoTooLarge
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var fs database.FirmSettings
		err := tx.Where("organization_id = ?", userID).First(&fs).Error
		switch {
		case database.IsNotFound(err):
			return tx.Create(&database.FirmSettings{OrganizationID: userID, LogoURL: obj.URL}).Error
		case err != nil:
			return err
		}
		return tx.Model(&fs).Update("logo_url", obj.URL).Error
	})
	if err != nil {
		return "", fmt.Errorf("save logo url: %w", err)
	}

	s.logger.Info("Logo uploaded", "user_id", userID, "url", obj.URL)
	return obj.URL, nil
}

func (s *Service) loadSettings(ctx context.Context, organizationID string) (*database.FirmSettings, error) {
	var fs database.FirmSettings
	if err := s.db.WithContext(ctx).Where("organization_id = ?", organizationID).First(&fs).Error; err != nil {
		return nil, database.Translate(err)
	}
	return &fs, nil
}

func upsertOrganizationPrefix(tx *gorm.DB, userID, prefix string) error {
	var org database.OrganizationSettings
	err := tx.Where("user_id = ?", userID).First(&org).Error
	switch {
	case database.IsNotFound(err):
		return tx.Create(&database.OrganizationSettings{UserID: userID, OrganizationPrefix: prefix}).Error
	case err != nil:
		return err
	}
	return tx.Model(&org).Update("organization_prefix", prefix).Error
}
