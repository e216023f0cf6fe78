package cases

import (
	"context"

	"github.com/JustJay7/case-manager/internal/database"
	"gorm.io/gorm"
)

// Filter narrows List. Owner is always applied; other zero values match
// everything.
type Filter struct {
	Owner    string
	Status   string
	ClientID string
	Search   string
	Page     int
	PageSize int
}

// Store persists cases. A case belongs to the owner of its client.
type Store interface {
	List(ctx context.Context, f Filter) ([]database.Case, int64, error)
	Get(ctx context.Context, owner, id string) (*database.Case, error)
	Client(ctx context.Context, owner, id string) (*database.Client, error)
	MaxSequence(ctx context.Context, clientID, matterType string, year int) (int, error)
	Insert(ctx context.Context, c *database.Case) error
	Save(ctx context.Context, c *database.Case) error
	Delete(ctx context.Context, owner, id string) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) List(ctx context.Context, f Filter) ([]database.Case, int64, error) {
	scoped := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&database.Case{}).Scopes(database.ClientOwnedBy(f.Owner))
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.ClientID != "" {
			q = q.Where("client_id = ?", f.ClientID)
		}
		if f.Search != "" {
			like := "%" + f.Search + "%"
			q = q.Where("title LIKE ? OR case_number LIKE ?", like, like)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []database.Case
	err := scoped().Preload("Client").
		Order("created_at DESC").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *gormStore) Get(ctx context.Context, owner, id string) (*database.Case, error) {
	var c database.Case
	err := s.db.WithContext(ctx).
		Scopes(database.ClientOwnedBy(owner)).
		Preload("Client").
		Preload("Assignee").
		Preload("Creator").
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, database.Translate(err)
	}
	return &c, nil
}

func (s *gormStore) Client(ctx context.Context, owner, id string) (*database.Client, error) {
	var c database.Client
	if err := s.db.WithContext(ctx).Scopes(database.CreatedBy(owner)).First(&c, "id = ?", id).Error; err != nil {
		return nil, database.Translate(err)
	}
	return &c, nil
}

func (s *gormStore) MaxSequence(ctx context.Context, clientID, matterType string, year int) (int, error) {
	var max int
	err := s.db.WithContext(ctx).Model(&database.Case{}).
		Where("client_id = ? AND case_type = ? AND case_year = ?", clientID, matterType, year).
		Select("COALESCE(MAX(sequential_number), 0)").
		Scan(&max).Error
	return max, err
}

func (s *gormStore) Insert(ctx context.Context, c *database.Case) error {
	return s.db.WithContext(ctx).Omit("Client", "Assignee", "Creator").Create(c).Error
}

func (s *gormStore) Save(ctx context.Context, c *database.Case) error {
	return s.db.WithContext(ctx).Omit("Client", "Assignee", "Creator").Save(c).Error
}

func (s *gormStore) Delete(ctx context.Context, owner, id string) error {
	res := s.db.WithContext(ctx).Scopes(database.ClientOwnedBy(owner)).Delete(&database.Case{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}
