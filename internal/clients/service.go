// Package clients manages client records and allocates client numbers.
package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JustJay7/case-manager/internal/cache"
	"github.com/JustJay7/case-manager/internal/database"
	"github.com/JustJay7/case-manager/internal/metrics"
	"github.com/JustJay7/case-manager/internal/numbering"
	"github.com/JustJay7/case-manager/internal/validation"
	"github.com/JustJay7/case-manager/pkg/logger"
)

var (
	ErrPrefixNotSet = errors.New("organization prefix must be set in Firm Settings before creating clients")
	// ErrNumberConflict means another writer took the allocated number
	// between the read of the current maximum and the insert.
	ErrNumberConflict = errors.New("client number already allocated")
)

// Input is the editable part of a client.
type Input struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Company string `json:"company"`
	Notes   string `json:"notes"`
	Status  string `json:"status"`
}

// Validate checks the input without touching storage.
func (in *Input) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("name", in.Name, "Client name is required", v)
	if strings.TrimSpace(in.Email) == "" && strings.TrimSpace(in.Phone) == "" {
		v["contact"] = "Either email or phone is required"
	}
	validation.Email("email", strings.TrimSpace(in.Email), v)
	if in.Status != "" {
		validation.OneOf("status", in.Status, []string{database.ClientStatusActive, database.ClientStatusInactive}, v)
	}
	return v
}

type Service struct {
	store  Store
	cache  cache.Cache
	logger *logger.Logger
}

func NewService(store Store, c cache.Cache, log *logger.Logger) *Service {
	return &Service{store: store, cache: c, logger: log}
}

// List returns owner's clients ordered by name.
func (s *Service) List(ctx context.Context, owner, search string) ([]database.Client, error) {
	return s.store.List(ctx, owner, search)
}

// Get returns one of owner's clients with its cases.
func (s *Service) Get(ctx context.Context, owner, id string) (*database.Client, error) {
	return s.store.Get(ctx, owner, id)
}

// NextNumber previews the number the next client under prefix would get.
// Nothing is reserved.
func (s *Service) NextNumber(ctx context.Context, prefix string) (string, error) {
	if strings.TrimSpace(prefix) == "" {
		return "", ErrPrefixNotSet
	}
	norm, err := numbering.NormalizePrefix(prefix)
	if err != nil {
		return "", err
	}
	max, err := s.store.MaxSequence(ctx, norm)
	if err != nil {
		return "", fmt.Errorf("read client sequence: %w", err)
	}
	return numbering.ClientNumber(norm, numbering.Next(max)), nil
}

// Create validates in, allocates the next number under prefix and inserts the
// client. Allocation reads the current maximum then inserts; a concurrent
// create under the same prefix fails with ErrNumberConflict.
func (s *Service) Create(ctx context.Context, userID, prefix string, in Input) (*database.Client, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(prefix) == "" {
		return nil, ErrPrefixNotSet
	}
	norm, err := numbering.NormalizePrefix(prefix)
	if err != nil {
		return nil, err
	}

	max, err := s.store.MaxSequence(ctx, norm)
	if err != nil {
		return nil, fmt.Errorf("read client sequence: %w", err)
	}
	seq := numbering.Next(max)

	c := &database.Client{
		Name:               strings.TrimSpace(in.Name),
		Email:              optional(in.Email),
		Phone:              optional(in.Phone),
		Address:            optional(in.Address),
		Company:            optional(in.Company),
		Notes:              optional(in.Notes),
		Status:             in.Status,
		OrganizationPrefix: norm,
		SequentialNumber:   seq,
		ClientNumber:       numbering.ClientNumber(norm, seq),
		CreatedBy:          optional(userID),
	}
	if c.Status == "" {
		c.Status = database.ClientStatusActive
	}

	if err := s.store.Insert(ctx, c); err != nil {
		if database.IsDuplicate(err) {
			metrics.RecordNumberingConflict("client")
			s.logger.Warn("Client number conflict", "client_number", c.ClientNumber)
			return nil, fmt.Errorf("%w: %s", ErrNumberConflict, c.ClientNumber)
		}
		return nil, fmt.Errorf("create client: %w", err)
	}

	metrics.RecordCreated("client")
	s.logger.Info("Client created", "client_id", c.ID, "client_number", c.ClientNumber)
	return c, nil
}

// Update replaces the editable fields. The client number never changes.
func (s *Service) Update(ctx context.Context, owner, id string, in Input) (*database.Client, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}

	c, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	c.Name = strings.TrimSpace(in.Name)
	c.Email = optional(in.Email)
	c.Phone = optional(in.Phone)
	c.Address = optional(in.Address)
	c.Company = optional(in.Company)
	c.Notes = optional(in.Notes)
	if in.Status != "" {
		c.Status = in.Status
	}

	if err := s.store.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	s.invalidate()
	return c, nil
}

func (s *Service) Delete(ctx context.Context, owner, id string) error {
	if err := s.store.Delete(ctx, owner, id); err != nil {
		return err
	}
	s.logger.Info("Client deleted", "client_id", id)
	s.invalidate()
	return nil
}

// invalidate drops cached dashboard rows, which embed client names.
func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.DeletePrefix("rpc:")
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
