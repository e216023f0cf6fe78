package validation

import (
	"regexp"
	"sort"
	"strings"
)

// Violations maps a field name to a human-readable message.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Error implements error so a non-empty set can be returned directly.
func (v Violations) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns v as an error, or nil when there are no violations.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return v
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Basic validators
func Required(field, value, msg string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = msg
	}
}

func Email(field, value string, v Violations) {
	if value != "" && !emailPattern.MatchString(value) {
		v[field] = "Please enter a valid email address"
	}
}

func MaxLength(field, value string, max int, v Violations) {
	if len(value) > max {
		v[field] = "too long"
	}
}

func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v[field] = "must be one of " + strings.Join(allowed, ", ")
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v[field] = "must be positive"
	}
}

func PositiveInt(field string, val int, v Violations) {
	if val <= 0 {
		v[field] = "must be positive"
	}
}
