// Package dashboard implements the per-user dashboard RPC functions.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JustJay7/case-manager/internal/cache"
	"github.com/JustJay7/case-manager/internal/database"
	"github.com/JustJay7/case-manager/internal/metrics"
	"github.com/JustJay7/case-manager/pkg/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 5
	MaxLimit     = 50
)

const (
	FuncStats            = "get_dashboard_stats"
	FuncRecentCases      = "get_recent_cases"
	FuncUpcomingHearings = "get_upcoming_hearings"
	FuncRecentDocuments  = "get_recent_documents"
)

var ErrUnknownFunction = errors.New("unknown function")

type Stats struct {
	TotalCases           int64   `json:"total_cases"`
	ActiveCases          int64   `json:"active_cases"`
	TotalDocuments       int64   `json:"total_documents"`
	UpcomingHearings     int64   `json:"upcoming_hearings"`
	CasesChange          float64 `json:"cases_change"`
	ActiveCasesChange    float64 `json:"active_cases_change"`
	DocumentsChange      float64 `json:"documents_change"`
	HearingsChange       float64 `json:"hearings_change"`
	CasesLastMonth       int64   `json:"cases_last_month"`
	ActiveCasesLastMonth int64   `json:"active_cases_last_month"`
	DocumentsLastMonth   int64   `json:"documents_last_month"`
	HearingsLastWeek     int64   `json:"hearings_last_week"`
}

type RecentCase struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	CaseType       *string    `json:"case_type"`
	CaseNumber     string     `json:"case_number"`
	ClientName     *string    `json:"client_name"`
	ClientID       string     `json:"client_id"`
	AssignedToName *string    `json:"assigned_to_name"`
	CreatedAt      time.Time  `json:"created_at"`
	DueDate        *time.Time `json:"due_date"`
}

type UpcomingHearing struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	StartDate   time.Time `json:"start_date"`
	Location    *string   `json:"location"`
	CaseTitle   *string   `json:"case_title"`
	CaseID      *string   `json:"case_id"`
	ClientName  *string   `json:"client_name"`
}

type RecentDocument struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description"`
	FileType       *string   `json:"file_type"`
	Size           *int64    `json:"size"`
	UploadedAt     time.Time `json:"uploaded_at"`
	CaseTitle      *string   `json:"case_title"`
	CaseID         *string   `json:"case_id"`
	ClientName     *string   `json:"client_name"`
	UploadedByName *string   `json:"uploaded_by_name"`
}

// Overview is everything the dashboard page shows.
type Overview struct {
	Stats            *Stats            `json:"stats"`
	RecentCases      []RecentCase      `json:"recent_cases"`
	UpcomingHearings []UpcomingHearing `json:"upcoming_hearings"`
	RecentDocuments  []RecentDocument  `json:"recent_documents"`
}

// Params are the RPC arguments.
type Params struct {
	UserID     string `json:"user_id"`
	LimitCount int    `json:"limit_count"`
}

type Service struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *logger.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, c cache.Cache, log *logger.Logger) *Service {
	return &Service{db: db, cache: c, logger: log, now: time.Now}
}

// Call dispatches an RPC function by name.
func (s *Service) Call(ctx context.Context, name string, p Params) (interface{}, error) {
	switch name {
	case FuncStats:
		return s.Stats(ctx, p.UserID)
	case FuncRecentCases:
		return s.RecentCases(ctx, p.UserID, p.LimitCount)
	case FuncUpcomingHearings:
		return s.UpcomingHearings(ctx, p.UserID, p.LimitCount)
	case FuncRecentDocuments:
		return s.RecentDocuments(ctx, p.UserID, p.LimitCount)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
}

// Overview runs the four dashboard queries concurrently.
func (s *Service) Overview(ctx context.Context, userID string, limit int) (*Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stats, err := s.Stats(gctx, userID)
		out.Stats = stats
		return err
	})
	g.Go(func() error {
		rows, err := s.RecentCases(gctx, userID, limit)
		out.RecentCases = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.UpcomingHearings(gctx, userID, limit)
		out.UpcomingHearings = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.RecentDocuments(gctx, userID, limit)
		out.RecentDocuments = rows
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats counts the user's cases, documents and hearings. Cases belong to a
// user when they created or are assigned to them. Month-ago baselines count
// rows that already existed then.
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	return cached(s, cache.RPCKey(userID, FuncStats), func() (*Stats, error) {
		now := s.now().UTC()
		monthAgo := now.AddDate(0, -1, 0)
		weekAgo := now.AddDate(0, 0, -7)
		db := s.db.WithContext(ctx)

		cases := func() *gorm.DB {
			return db.Model(&database.Case{}).Where("created_by = ? OR assigned_to = ?", userID, userID)
		}
		active := []string{database.CaseStatusOpen, database.CaseStatusPending}
		docs := func() *gorm.DB {
			return db.Model(&database.Document{}).Where("uploaded_by = ?", userID)
		}
		hearings := func() *gorm.DB {
			return db.Model(&database.Event{}).Where("event_type = ? AND created_by = ?", database.EventTypeHearing, userID)
		}

		var st Stats
		counts := []struct {
			q    *gorm.DB
			dest *int64
		}{
			{cases(), &st.TotalCases},
			{cases().Where("status IN ?", active), &st.ActiveCases},
			{docs(), &st.TotalDocuments},
			{hearings().Where("start_date >= ?", now), &st.UpcomingHearings},
			{cases().Where("created_at < ?", monthAgo), &st.CasesLastMonth},
			{cases().Where("status IN ? AND created_at < ?", active, monthAgo), &st.ActiveCasesLastMonth},
			{docs().Where("uploaded_at < ?", monthAgo), &st.DocumentsLastMonth},
			{hearings().Where("start_date >= ? AND start_date < ?", weekAgo, now), &st.HearingsLastWeek},
		}
		for _, c := range counts {
			if err := c.q.Count(c.dest).Error; err != nil {
				return nil, fmt.Errorf("dashboard stats: %w", err)
			}
		}

		st.CasesChange = percentChange(st.TotalCases, st.CasesLastMonth)
		st.ActiveCasesChange = percentChange(st.ActiveCases, st.ActiveCasesLastMonth)
		st.DocumentsChange = percentChange(st.TotalDocuments, st.DocumentsLastMonth)
		st.HearingsChange = percentChange(st.UpcomingHearings, st.HearingsLastWeek)
		return &st, nil
	})
}

func (s *Service) RecentCases(ctx context.Context, userID string, limit int) ([]RecentCase, error) {
	limit = clampLimit(limit)
	return cached(s, cache.RPCKey(userID, FuncRecentCases, limit), func() ([]RecentCase, error) {
		rows := []RecentCase{}
		err := s.db.WithContext(ctx).Table("cases").
			Select(`cases.id, cases.title, cases.status, cases.priority, cases.case_type, cases.case_number,
				clients.name AS client_name, cases.client_id, profiles.full_name AS assigned_to_name,
				cases.created_at, cases.due_date`).
			Joins("LEFT JOIN clients ON clients.id = cases.client_id").
			Joins("LEFT JOIN profiles ON profiles.id = cases.assigned_to").
			Where("cases.created_by = ? OR cases.assigned_to = ?", userID, userID).
			Order("cases.created_at DESC").
			Limit(limit).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("recent cases: %w", err)
		}
		return rows, nil
	})
}

func (s *Service) UpcomingHearings(ctx context.Context, userID string, limit int) ([]UpcomingHearing, error) {
	limit = clampLimit(limit)
	return cached(s, cache.RPCKey(userID, FuncUpcomingHearings, limit), func() ([]UpcomingHearing, error) {
		rows := []UpcomingHearing{}
		err := s.db.WithContext(ctx).Table("events").
			Select(`events.id, events.title, events.description, events.start_date, events.location,
				cases.title AS case_title, events.case_id, clients.name AS client_name`).
			Joins("LEFT JOIN cases ON cases.id = events.case_id").
			Joins("LEFT JOIN clients ON clients.id = COALESCE(events.client_id, cases.client_id)").
			Where("events.event_type = ? AND events.created_by = ? AND events.start_date >= ?",
				database.EventTypeHearing, userID, s.now().UTC()).
			Order("events.start_date ASC").
			Limit(limit).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("upcoming hearings: %w", err)
		}
		return rows, nil
	})
}

func (s *Service) RecentDocuments(ctx context.Context, userID string, limit int) ([]RecentDocument, error) {
	limit = clampLimit(limit)
	return cached(s, cache.RPCKey(userID, FuncRecentDocuments, limit), func() ([]RecentDocument, error) {
		rows := []RecentDocument{}
		err := s.db.WithContext(ctx).Table("documents").
			Select(`documents.id, documents.name, documents.description, documents.file_type, documents.size,
				documents.uploaded_at, cases.title AS case_title, documents.case_id,
				clients.name AS client_name, profiles.full_name AS uploaded_by_name`).
			Joins("LEFT JOIN cases ON cases.id = documents.case_id").
			Joins("LEFT JOIN clients ON clients.id = COALESCE(documents.client_id, cases.client_id)").
			Joins("LEFT JOIN profiles ON profiles.id = documents.uploaded_by").
			Where("documents.uploaded_by = ?", userID).
			Order("documents.uploaded_at DESC").
			Limit(limit).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("recent documents: %w", err)
		}
		return rows, nil
	})
}

// cached serves key from the cache or stores the result of load under it.
func cached[T any](s *Service, key string, load func() (T, error)) (T, error) {
	var out T
	if s.cache != nil && cache.GetJSON(s.cache, key, &out) {
		metrics.RecordCacheLookup(true)
		return out, nil
	}
	metrics.RecordCacheLookup(false)

	out, err := load()
	if err != nil {
		return out, err
	}
	if s.cache != nil {
		if err := cache.SetJSON(s.cache, key, out); err != nil {
			s.logger.Warn("Failed to cache RPC result", "key", key, "error", err)
		}
	}
	return out, nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// percentChange is the rounded percentage growth from previous to current.
// Growth from zero reports 100.
func percentChange(current, previous int64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	pct := float64(current-previous) / float64(previous) * 100
	return float64(int64(pct*10+sign(pct)*0.5)) / 10
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
