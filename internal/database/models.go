package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the string UUID key and timestamps shared by every row.
type Base struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// User is an authentication identity.
type User struct {
	Base
	Email        string `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
}

// AuthSession is an issued session token. Only the token hash is stored.
type AuthSession struct {
	Base
	UserID    string    `json:"user_id" gorm:"index;not null"`
	TokenHash string    `json:"-" gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Profile is the application-level user record, keyed by the user's ID.
type Profile struct {
	Base
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
	Role      *string `json:"role"`
	Email     string  `json:"email" gorm:"not null"`
}

type OrganizationSettings struct {
	Base
	UserID             string `json:"user_id" gorm:"uniqueIndex;not null"`
	OrganizationPrefix string `json:"organization_prefix" gorm:"size:5"`
}

type FirmSettings struct {
	Base
	OrganizationID     string `json:"organization_id" gorm:"uniqueIndex;not null"`
	FirmName           string `json:"firm_name"`
	City               string `json:"city"`
	Phone              string `json:"phone"`
	Email              string `json:"email"`
	Website            string `json:"website"`
	LogoURL            string `json:"logo_url"`
	OrganizationPrefix string `json:"organization_prefix" gorm:"size:5"`
}

type SystemPreferences struct {
	Base
	UserID             string     `json:"user_id" gorm:"uniqueIndex;not null"`
	TimeZone           string     `json:"time_zone"`
	DateFormat         string     `json:"date_format"`
	TimeFormat         string     `json:"time_format"`
	WeekStartsOn       string     `json:"week_starts_on"`
	CaseCategories     StringList `json:"case_categories" gorm:"type:text"`
	DocumentCategories StringList `json:"document_categories" gorm:"type:text"`
}

const (
	ClientStatusActive   = "active"
	ClientStatusInactive = "inactive"
)

type Client struct {
	Base
	Name               string  `json:"name" gorm:"not null;index"`
	Email              *string `json:"email"`
	Phone              *string `json:"phone"`
	Address            *string `json:"address"`
	Company            *string `json:"company"`
	Notes              *string `json:"notes" gorm:"type:text"`
	Status             string  `json:"status" gorm:"size:20;not null"`
	OrganizationPrefix string  `json:"organization_prefix" gorm:"size:5;not null"`
	SequentialNumber   int     `json:"sequential_number" gorm:"not null"`
	ClientNumber       string  `json:"client_number" gorm:"index;not null"`
	CreatedBy          *string `json:"created_by" gorm:"index"`
	Cases              []Case  `json:"cases,omitempty" gorm:"foreignKey:ClientID"`
}

const (
	CaseStatusOpen    = "open"
	CaseStatusPending = "pending"
	CaseStatusClosed  = "closed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Case struct {
	Base
	Title            string     `json:"title" gorm:"not null"`
	Description      *string    `json:"description" gorm:"type:text"`
	ClientID         string     `json:"client_id" gorm:"index;not null"`
	Client           *Client    `json:"client,omitempty" gorm:"foreignKey:ClientID"`
	Status           string     `json:"status" gorm:"size:20;not null"`
	Priority         string     `json:"priority" gorm:"size:20;not null"`
	CaseType         *string    `json:"case_type"`
	CaseNumber       string     `json:"case_number" gorm:"index"`
	SequentialNumber int        `json:"sequential_number"`
	CaseYear         int        `json:"case_year"`
	AssignedTo       *string    `json:"assigned_to_id" gorm:"index"`
	Assignee         *Profile   `json:"assigned_to,omitempty" gorm:"foreignKey:AssignedTo"`
	CreatedBy        *string    `json:"created_by_id"`
	Creator          *Profile   `json:"created_by,omitempty" gorm:"foreignKey:CreatedBy"`
	DueDate          *time.Time `json:"due_date"`
}

type Document struct {
	Base
	Name        string     `json:"name" gorm:"not null"`
	Description *string    `json:"description"`
	FileURL     string     `json:"file_url" gorm:"not null"`
	FileType    *string    `json:"file_type"`
	Size        *int64     `json:"size"`
	CaseID      *string    `json:"case_id" gorm:"index"`
	ClientID    *string    `json:"client_id" gorm:"index"`
	UploadedBy  *string    `json:"uploaded_by"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	Tags        StringList `json:"tags" gorm:"type:text"`
	Version     int        `json:"version"`
	StoragePath string     `json:"-"`
}

const (
	EventTypeHearing  = "hearing"
	EventTypeMeeting  = "meeting"
	EventTypeDeadline = "deadline"
	EventTypeOther    = "other"
)

type Event struct {
	Base
	Title        string     `json:"title" gorm:"not null"`
	Description  *string    `json:"description"`
	StartDate    time.Time  `json:"start_date" gorm:"not null"`
	EndDate      *time.Time `json:"end_date"`
	AllDay       bool       `json:"all_day"`
	Location     *string    `json:"location"`
	EventType    string     `json:"event_type" gorm:"size:20;not null"`
	CaseID       *string    `json:"case_id" gorm:"index"`
	ClientID     *string    `json:"client_id" gorm:"index"`
	Attendees    StringList `json:"attendees" gorm:"type:text"`
	CreatedBy    *string    `json:"created_by"`
	Reminder     bool       `json:"reminder"`
	ReminderTime *int       `json:"reminder_time"`
}

const (
	TimeEntryUnbilled = "unbilled"
	TimeEntryBilled   = "billed"
)

type TimeEntry struct {
	Base
	Description string    `json:"description" gorm:"not null"`
	CaseID      string    `json:"case_id" gorm:"index;not null"`
	ClientID    string    `json:"client_id" gorm:"index;not null"`
	Date        time.Time `json:"date"`
	Duration    int       `json:"duration"`
	Billable    bool      `json:"billable"`
	Rate        *float64  `json:"rate"`
	AttorneyID  *string   `json:"attorney_id"`
	Status      string    `json:"status" gorm:"size:20;not null"`
	InvoiceID   *string   `json:"invoice_id" gorm:"index"`
}

// Hours returns the duration in hours.
func (t *TimeEntry) Hours() float64 {
	return float64(t.Duration) / 60
}

// Amount returns the billable amount, zero when non-billable or unrated.
func (t *TimeEntry) Amount() float64 {
	if !t.Billable || t.Rate == nil {
		return 0
	}
	return t.Hours() * *t.Rate
}

const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
)

type Invoice struct {
	Base
	InvoiceNumber string        `json:"invoice_number" gorm:"uniqueIndex;not null"`
	ClientID      string        `json:"client_id" gorm:"index;not null"`
	CaseID        *string       `json:"case_id"`
	IssueDate     time.Time     `json:"issue_date"`
	DueDate       time.Time     `json:"due_date"`
	Amount        float64       `json:"amount"`
	Status        string        `json:"status" gorm:"size:20;not null"`
	Notes         *string       `json:"notes" gorm:"type:text"`
	CreatedBy     *string       `json:"created_by"`
	Items         []InvoiceItem `json:"items,omitempty" gorm:"foreignKey:InvoiceID"`
}

type InvoiceItem struct {
	Base
	InvoiceID   string  `json:"invoice_id" gorm:"index;not null"`
	Description string  `json:"description" gorm:"not null"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
	TimeEntryID *string `json:"time_entry_id"`
}

func (User) TableName() string {
	return "users"
}

func (AuthSession) TableName() string {
	return "auth_sessions"
}

func (Profile) TableName() string {
	return "profiles"
}

func (OrganizationSettings) TableName() string {
	return "organization_settings"
}

func (FirmSettings) TableName() string {
	return "firm_settings"
}

func (SystemPreferences) TableName() string {
	return "system_preferences"
}

func (Client) TableName() string {
	return "clients"
}

func (Case) TableName() string {
	return "cases"
}

func (Document) TableName() string {
	return "documents"
}

func (Event) TableName() string {
	return "events"
}

func (TimeEntry) TableName() string {
	return "time_entries"
}

func (Invoice) TableName() string {
	return "invoices"
}

func (InvoiceItem) TableName() string {
	return "invoice_items"
}
