// Package calendar stores hearings, meetings and deadlines.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JustJay7/case-manager/internal/cache"
	"github.com/JustJay7/case-manager/internal/database"
	"github.com/JustJay7/case-manager/internal/metrics"
	"github.com/JustJay7/case-manager/internal/validation"
	"github.com/JustJay7/case-manager/pkg/logger"
	"gorm.io/gorm"
)

var eventTypes = []string{
	database.EventTypeHearing,
	database.EventTypeMeeting,
	database.EventTypeDeadline,
	database.EventTypeOther,
}

type Input struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	AllDay       bool       `json:"all_day"`
	Location     string     `json:"location"`
	EventType    string     `json:"event_type"`
	CaseID       string     `json:"case_id"`
	ClientID     string     `json:"client_id"`
	Attendees    []string   `json:"attendees"`
	Reminder     bool       `json:"reminder"`
	ReminderTime *int       `json:"reminder_time"`
}

func (in *Input) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("title", in.Title, "Event title is required", v)
	if in.StartDate.IsZero() {
		v["start_date"] = "Start date is required"
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		v["end_date"] = "End date must not be before start date"
	}
	if in.EventType != "" {
		validation.OneOf("event_type", in.EventType, eventTypes, v)
	}
	if in.Reminder && in.ReminderTime != nil && *in.ReminderTime <= 0 {
		v["reminder_time"] = "must be positive"
	}
	return v
}

type Service struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *logger.Logger
}

func NewService(db *gorm.DB, c cache.Cache, log *logger.Logger) *Service {
	return &Service{db: db, cache: c, logger: log}
}

// List returns owner's events starting in [from, to). A zero bound is open.
func (s *Service) List(ctx context.Context, owner string, from, to time.Time, caseID string) ([]database.Event, error) {
	q := s.db.WithContext(ctx).Model(&database.Event{}).Scopes(database.CreatedBy(owner))
	if !from.IsZero() {
		q = q.Where("start_date >= ?", from.UTC())
	}
	if !to.IsZero() {
		q = q.Where("start_date < ?", to.UTC())
	}
	if caseID != "" {
		q = q.Where("case_id = ?", caseID)
	}

	var events []database.Event
	if err := q.Order("start_date ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *Service) Get(ctx context.Context, owner, id string) (*database.Event, error) {
	var e database.Event
	if err := s.db.WithContext(ctx).Scopes(database.CreatedBy(owner)).First(&e, "id = ?", id).Error; err != nil {
		return nil, database.Translate(err)
	}
	return &e, nil
}

func (s *Service) Create(ctx context.Context, userID string, in Input) (*database.Event, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}

	// Stored in UTC so range filters compare consistently.
	var end *time.Time
	if in.EndDate != nil {
		u := in.EndDate.UTC()
		end = &u
	}

	e := &database.Event{
		Title:        strings.TrimSpace(in.Title),
		Description:  optional(in.Description),
		StartDate:    in.StartDate.UTC(),
		EndDate:      end,
		AllDay:       in.AllDay,
		Location:     optional(in.Location),
		EventType:    in.EventType,
		CaseID:       optional(in.CaseID),
		ClientID:     optional(in.ClientID),
		Attendees:    database.StringList(in.Attendees),
		CreatedBy:    optional(userID),
		Reminder:     in.Reminder,
		ReminderTime: in.ReminderTime,
	}
	if e.EventType == "" {
		e.EventType = database.EventTypeOther
	}

	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	metrics.RecordCreated("event")
	s.logger.Info("Event created", "event_id", e.ID, "type", e.EventType)
	s.invalidate(userID)
	return e, nil
}

func (s *Service) Delete(ctx context.Context, owner, id string) error {
	res := s.db.WithContext(ctx).Scopes(database.CreatedBy(owner)).Delete(&database.Event{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return database.ErrNotFound
	}
	s.invalidate(owner)
	return nil
}

// invalidate drops userID's dashboard results; hearings only count toward
// their creator.
func (s *Service) invalidate(userID string) {
	if s.cache != nil {
		s.cache.DeletePrefix(cache.UserPrefix(userID))
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
