package firm

import (
	"context"
	"fmt"
	"strings"

	"github.com/JustJay7/case-manager/internal/database"
	"github.com/JustJay7/case-manager/internal/validation"
)

const (
	CategoryCase     = "case"
	CategoryDocument = "document"
)

var (
	timeFormats = []string{"12", "24"}
	weekStarts  = []string{"Sunday", "Monday"}
	dateFormats = []string{"MM/DD/YYYY", "DD/MM/YYYY", "YYYY-MM-DD"}
)

// DefaultPreferences is what a user sees before saving preferences.
func DefaultPreferences(userID string) *database.SystemPreferences {
	return &database.SystemPreferences{
		UserID:             userID,
		TimeZone:           "America/New_York",
		DateFormat:         "MM/DD/YYYY",
		TimeFormat:         "12",
		WeekStartsOn:       "Sunday",
		CaseCategories:     database.StringList{"Civil", "Criminal", "Family", "Corporate"},
		DocumentCategories: database.StringList{"Pleadings", "Evidence", "Contracts", "Correspondence"},
	}
}

type PreferencesInput struct {
	TimeZone           string   `json:"time_zone"`
	DateFormat         string   `json:"date_format"`
	TimeFormat         string   `json:"time_format"`
	WeekStartsOn       string   `json:"week_starts_on"`
	CaseCategories     []string `json:"case_categories"`
	DocumentCategories []string `json:"document_categories"`
}

func (in *PreferencesInput) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("time_zone", in.TimeZone, "Time zone is required", v)
	validation.OneOf("date_format", in.DateFormat, dateFormats, v)
	validation.OneOf("time_format", in.TimeFormat, timeFormats, v)
	validation.OneOf("week_starts_on", in.WeekStartsOn, weekStarts, v)
	checkCategories("case_categories", in.CaseCategories, v)
	checkCategories("document_categories", in.DocumentCategories, v)
	return v
}

func checkCategories(field string, cats []string, v validation.Violations) {
	seen := make(map[string]bool, len(cats))
	for _, c := range cats {
		c = strings.TrimSpace(c)
		if c == "" {
			v[field] = "Category names cannot be empty"
			return
		}
		if seen[c] {
			v[field] = "Category already exists: " + c
			return
		}
		seen[c] = true
	}
}

// Preferences returns the saved preferences or the defaults.
func (s *Service) Preferences(ctx context.Context, userID string) (*database.SystemPreferences, error) {
	var p database.SystemPreferences
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if database.IsNotFound(err) {
		return DefaultPreferences(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	return &p, nil
}

// UpdatePreferences replaces the user's preferences.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, in PreferencesInput) (*database.SystemPreferences, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}

	current, err := s.Preferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	current.TimeZone = strings.TrimSpace(in.TimeZone)
	current.DateFormat = in.DateFormat
	current.TimeFormat = in.TimeFormat
	current.WeekStartsOn = in.WeekStartsOn
	current.CaseCategories = trimAll(in.CaseCategories)
	current.DocumentCategories = trimAll(in.DocumentCategories)

	if err := s.savePreferences(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// AddCategory appends a case or document category.
func (s *Service) AddCategory(ctx context.Context, userID, kind, name string) (*database.SystemPreferences, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation.Violations{"category": "Category name is required"}
	}

	p, err := s.Preferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := categoryList(p, kind)
	if err != nil {
		return nil, err
	}
	if list.Contains(name) {
		return nil, ErrDuplicateCategory
	}
	*list = append(*list, name)

	if err := s.savePreferences(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RemoveCategory drops a case or document category.
func (s *Service) RemoveCategory(ctx context.Context, userID, kind, name string) (*database.SystemPreferences, error) {
	p, err := s.Preferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := categoryList(p, kind)
	if err != nil {
		return nil, err
	}
	if !list.Contains(name) {
		return nil, ErrUnknownCategory
	}

	kept := make(database.StringList, 0, len(*list))
	for _, c := range *list {
		if c != name {
			kept = append(kept, c)
		}
	}
	*list = kept

	if err := s.savePreferences(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) savePreferences(ctx context.Context, p *database.SystemPreferences) error {
	var err error
	if p.ID == "" {
		err = s.db.WithContext(ctx).Create(p).Error
	} else {
		err = s.db.WithContext(ctx).Save(p).Error
	}
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

func categoryList(p *database.SystemPreferences, kind string) (*database.StringList, error) {
	switch kind {
	case CategoryCase:
		return &p.CaseCategories, nil
	case CategoryDocument:
		return &p.DocumentCategories, nil
	}
	return nil, validation.Violations{"type": "must be one of case, document"}
}

func trimAll(in []string) database.StringList {
	out := make(database.StringList, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
