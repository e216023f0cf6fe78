package clients

import (
	"context"
	"strings"

	"github.com/JustJay7/case-manager/internal/database"
	"gorm.io/gorm"
)

// Store persists clients. Reads and deletes only see the owner's clients;
// anything else is database.ErrNotFound.
type Store interface {
	List(ctx context.Context, owner, search string) ([]database.Client, error)
	Get(ctx context.Context, owner, id string) (*database.Client, error)
	MaxSequence(ctx context.Context, prefix string) (int, error)
	Insert(ctx context.Context, c *database.Client) error
	Save(ctx context.Context, c *database.Client) error
	Delete(ctx context.Context, owner, id string) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) List(ctx context.Context, owner, search string) ([]database.Client, error) {
	q := s.db.WithContext(ctx).Model(&database.Client{}).Scopes(database.CreatedBy(owner))
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(COALESCE(email, '')) LIKE ? OR LOWER(COALESCE(company, '')) LIKE ? OR LOWER(client_number) LIKE ?",
			like, like, like, like)
	}

	var out []database.Client
	if err := q.Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *gormStore) Get(ctx context.Context, owner, id string) (*database.Client, error) {
	var c database.Client
	err := s.db.WithContext(ctx).
		Scopes(database.CreatedBy(owner)).
		Preload("Cases", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, database.Translate(err)
	}
	return &c, nil
}

func (s *gormStore) MaxSequence(ctx context.Context, prefix string) (int, error) {
	var max int
	err := s.db.WithContext(ctx).Model(&database.Client{}).
		Where("organization_prefix = ?", prefix).
		Select("COALESCE(MAX(sequential_number), 0)").
		Scan(&max).Error
	return max, err
}

func (s *gormStore) Insert(ctx context.Context, c *database.Client) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *gormStore) Save(ctx context.Context, c *database.Client) error {
	return s.db.WithContext(ctx).Omit("Cases").Save(c).Error
}

func (s *gormStore) Delete(ctx context.Context, owner, id string) error {
	res := s.db.WithContext(ctx).Scopes(database.CreatedBy(owner)).Delete(&database.Client{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}
