// Package cases manages legal matters and their nested case numbers.
package cases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JustJay7/case-manager/internal/cache"
	"github.com/JustJay7/case-manager/internal/database"
	"github.com/JustJay7/case-manager/internal/metrics"
	"github.com/JustJay7/case-manager/internal/numbering"
	"github.com/JustJay7/case-manager/internal/validation"
	"github.com/JustJay7/case-manager/pkg/logger"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrNumberConflict = errors.New("case number already allocated")
)

var (
	statuses   = []string{database.CaseStatusOpen, database.CaseStatusPending, database.CaseStatusClosed}
	priorities = []string{database.PriorityLow, database.PriorityMedium, database.PriorityHigh}
)

// CreateInput describes a new case.
type CreateInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ClientID    string     `json:"client_id"`
	CaseType    string     `json:"case_type"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AssignedTo  string     `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
}

func (in *CreateInput) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("title", in.Title, "Case title is required", v)
	validation.Required("client_id", in.ClientID, "Client is required", v)
	if strings.TrimSpace(in.CaseType) == "" {
		v["case_type"] = "Matter type is required"
	} else if _, ok := numbering.LookupMatterType(in.CaseType); !ok {
		v["case_type"] = "Unknown matter type"
	}
	if in.Status != "" {
		validation.OneOf("status", in.Status, statuses, v)
	}
	if in.Priority != "" {
		validation.OneOf("priority", in.Priority, priorities, v)
	}
	return v
}

// UpdateInput changes workflow fields. Nil fields are left alone.
type UpdateInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	AssignedTo  *string    `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
}

func (in *UpdateInput) Validate() validation.Violations {
	v := validation.Violations{}
	if in.Title != nil {
		validation.Required("title", *in.Title, "Case title is required", v)
	}
	if in.Status != nil {
		validation.OneOf("status", *in.Status, statuses, v)
	}
	if in.Priority != nil {
		validation.OneOf("priority", *in.Priority, priorities, v)
	}
	return v
}

// Page is one page of List results.
type Page struct {
	Cases    []database.Case `json:"cases"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

type Service struct {
	store  Store
	cache  cache.Cache
	logger *logger.Logger
	now    func() time.Time
}

func NewService(store Store, c cache.Cache, log *logger.Logger) *Service {
	return &Service{store: store, cache: c, logger: log, now: time.Now}
}

func (s *Service) List(ctx context.Context, f Filter) (*Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}

	out, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return &Page{Cases: out, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// Get returns one of owner's cases with its client, assignee and creator.
func (s *Service) Get(ctx context.Context, owner, id string) (*database.Case, error) {
	return s.store.Get(ctx, owner, id)
}

// Create numbers the case {prefix}/{client seq}/{matter}/{seq}/{year}, where
// seq counts the client's cases of that matter type in the current year. The
// client must belong to userID's organization.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*database.Case, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}

	client, err := s.store.Client(ctx, userID, in.ClientID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("load client: %w", err)
	}

	clientSeq, err := numbering.ClientSequence(client.ClientNumber)
	if err != nil {
		return nil, err
	}

	matter, _ := numbering.LookupMatterType(in.CaseType)
	year := s.now().Year()

	max, err := s.store.MaxSequence(ctx, client.ID, matter.Abbreviation, year)
	if err != nil {
		return nil, fmt.Errorf("read case sequence: %w", err)
	}
	seq := numbering.Next(max)

	caseType := matter.Abbreviation
	c := &database.Case{
		Title:            strings.TrimSpace(in.Title),
		Description:      optional(in.Description),
		ClientID:         client.ID,
		Status:           in.Status,
		Priority:         in.Priority,
		CaseType:         &caseType,
		CaseNumber:       numbering.CaseNumber(client.OrganizationPrefix, clientSeq, matter.Abbreviation, seq, year),
		SequentialNumber: seq,
		CaseYear:         year,
		AssignedTo:       optional(in.AssignedTo),
		CreatedBy:        optional(userID),
		DueDate:          in.DueDate,
	}
	if c.Status == "" {
		c.Status = database.CaseStatusOpen
	}
	if c.Priority == "" {
		c.Priority = database.PriorityMedium
	}

	if err := s.store.Insert(ctx, c); err != nil {
		if database.IsDuplicate(err) {
			metrics.RecordNumberingConflict("case")
			s.logger.Warn("Case number conflict", "case_number", c.CaseNumber)
			return nil, fmt.Errorf("%w: %s", ErrNumberConflict, c.CaseNumber)
		}
		return nil, fmt.Errorf("create case: %w", err)
	}

	metrics.RecordCreated("case")
	s.logger.Info("Case created", "case_id", c.ID, "case_number", c.CaseNumber)
	s.invalidate()
	c.Client = client
	return c, nil
}

func (s *Service) Update(ctx context.Context, owner, id string, in UpdateInput) (*database.Case, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}

	c, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		c.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		c.Description = optional(*in.Description)
	}
	if in.Status != nil {
		c.Status = *in.Status
	}
	if in.Priority != nil {
		c.Priority = *in.Priority
	}
	if in.AssignedTo != nil {
		c.AssignedTo = optional(*in.AssignedTo)
		c.Assignee = nil
	}
	if in.DueDate != nil {
		c.DueDate = in.DueDate
	}

	if err := s.store.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("update case: %w", err)
	}
	s.invalidate()
	return c, nil
}

func (s *Service) Delete(ctx context.Context, owner, id string) error {
	if err := s.store.Delete(ctx, owner, id); err != nil {
		return err
	}
	s.logger.Info("Case deleted", "case_id", id)
	s.invalidate()
	return nil
}

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
