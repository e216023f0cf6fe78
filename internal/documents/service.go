// Package documents tracks case and client documents and their stored files.
package documents

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/JustJay7/case-manager/internal/cache"
	"github.com/JustJay7/case-manager/internal/database"
	"github.com/JustJay7/case-manager/internal/metrics"
	"github.com/JustJay7/case-manager/internal/storage"
	"github.com/JustJay7/case-manager/internal/validation"
	"github.com/JustJay7/case-manager/pkg/logger"
	"gorm.io/gorm"
)

const Bucket = "documents"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filter narrows List to Owner's uploads.
type Filter struct {
	Owner    string
	CaseID   string
	ClientID string
	FileType string
	Search   string
}

// Input is document metadata.
type Input struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	FileURL     string   `json:"file_url"`
	FileType    string   `json:"file_type"`
	Size        *int64   `json:"size"`
	CaseID      string   `json:"case_id"`
	ClientID    string   `json:"client_id"`
	Tags        []string `json:"tags"`
}

func (in *Input) validate(requireURL bool) validation.Violations {
	v := validation.Violations{}
	validation.Required("name", in.Name, "Document name is required", v)
	if requireURL {
		validation.Required("file_url", in.FileURL, "File URL is required", v)
	}
	if in.Size != nil && *in.Size < 0 {
		v["size"] = "must not be negative"
	}
	return v
}

type Service struct {
	db      *gorm.DB
	storage *storage.Store
	cache   cache.Cache
	logger  *logger.Logger
	now     func() time.Time
}

func NewService(db *gorm.DB, store *storage.Store, c cache.Cache, log *logger.Logger) *Service {
	return &Service{db: db, storage: store, cache: c, logger: log, now: time.Now}
}

func (s *Service) List(ctx context.Context, f Filter) ([]database.Document, error) {
	q := s.db.WithContext(ctx).Model(&database.Document{}).Scopes(database.UploadedBy(f.Owner))
	if f.CaseID != "" {
		q = q.Where("case_id = ?", f.CaseID)
	}
	if f.ClientID != "" {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.FileType != "" {
		q = q.Where("file_type = ?", f.FileType)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?", like, like)
	}

	var docs []database.Document
	if err := q.Order("uploaded_at DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (s *Service) Get(ctx context.Context, owner, id string) (*database.Document, error) {
	var d database.Document
	if err := s.db.WithContext(ctx).Scopes(database.UploadedBy(owner)).First(&d, "id = ?", id).Error; err != nil {
		return nil, database.Translate(err)
	}
	return &d, nil
}

// Create records metadata for a file that is already hosted elsewhere.
func (s *Service) Create(ctx context.Context, userID string, in Input) (*database.Document, error) {
	if err := in.validate(true).Err(); err != nil {
		return nil, err
	}
	return s.insert(ctx, s.newDocument(userID, in))
}

// Upload stores the file in the documents bucket and records it.
func (s *Service) Upload(ctx context.Context, userID, filename string, r io.Reader, in Input) (*database.Document, error) {
	if in.Name == "" {
		in.Name = filename
	}
	if err := in.validate(false).Err(); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s/%d-%s", userID, s.now().UnixNano(), sanitize(filename))
	obj, err := s.storage.Upload(ctx, Bucket, name, r)
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}

	in.FileURL = obj.URL
	if in.FileType == "" {
		in.FileType = strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	}
	in.Size = &obj.Size

	doc := s.newDocument(userID, in)
	doc.StoragePath = name
	out, err := s.insert(ctx, doc)
	if err != nil {
		_ = s.storage.Delete(Bucket, name)
		return nil, err
	}
	return out, nil
}

// Delete removes one of owner's documents and any stored file.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	doc, err := s.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(doc).Error; err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if doc.StoragePath != "" {
		if err := s.storage.Delete(Bucket, doc.StoragePath); err != nil {
			s.logger.Warn("Failed to delete stored file", "document_id", id, "error", err)
		}
	}
	s.invalidate(owner)
	return nil
}

func (s *Service) newDocument(userID string, in Input) *database.Document {
	return &database.Document{
		Name:        strings.TrimSpace(in.Name),
		Description: optional(in.Description),
		FileURL:     in.FileURL,
		FileType:    optional(in.FileType),
		Size:        in.Size,
		CaseID:      optional(in.CaseID),
		ClientID:    optional(in.ClientID),
		UploadedBy:  optional(userID),
		UploadedAt:  s.now(),
		Tags:        database.StringList(in.Tags),
		Version:     1,
	}
}

func (s *Service) insert(ctx context.Context, doc *database.Document) (*database.Document, error) {
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	metrics.RecordCreated("document")
	s.logger.Info("Document created", "document_id", doc.ID, "name", doc.Name)
	if doc.UploadedBy != nil {
		s.invalidate(*doc.UploadedBy)
	}
	return doc, nil
}

// invalidate drops the uploader's dashboard results; documents only count
// toward their uploader.
func (s *Service) invalidate(userID string) {
	if s.cache != nil {
		s.cache.DeletePrefix(cache.UserPrefix(userID))
	}
}

func sanitize(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "file"
	}
	return base
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
