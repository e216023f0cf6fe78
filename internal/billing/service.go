// Package billing records billable time and turns it into invoices.
package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/JustJay7/case-manager/internal/database"
	"github.com/JustJay7/case-manager/internal/metrics"
	"github.com/JustJay7/case-manager/internal/validation"
	"github.com/JustJay7/case-manager/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrInvalidTransition = errors.New("invalid invoice status transition")
	ErrCaseNotFound      = errors.New("case not found")
	ErrClientNotFound    = errors.New("client not found")
	ErrNumberConflict    = errors.New("invoice number already allocated")
)

// transitions lists the statuses reachable from each status.
var transitions = map[string][]string{
	database.InvoiceStatusDraft:   {database.InvoiceStatusSent, database.InvoiceStatusCancelled},
	database.InvoiceStatusSent:    {database.InvoiceStatusPaid, database.InvoiceStatusOverdue, database.InvoiceStatusCancelled},
	database.InvoiceStatusOverdue: {database.InvoiceStatusPaid, database.InvoiceStatusCancelled},
}

type Service struct {
	db     *gorm.DB
	logger *logger.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, log *logger.Logger) *Service {
	return &Service{db: db, logger: log, now: time.Now}
}

type TimeEntryInput struct {
	Description string    `json:"description"`
	CaseID      string    `json:"case_id"`
	Date        time.Time `json:"date"`
	Duration    int       `json:"duration"`
	Billable    *bool     `json:"billable"`
	Rate        *float64  `json:"rate"`
}

func (in *TimeEntryInput) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("description", in.Description, "Description is required", v)
	validation.Required("case_id", in.CaseID, "Case is required", v)
	validation.PositiveInt("duration", in.Duration, v)
	if in.Rate != nil && *in.Rate < 0 {
		v["rate"] = "must not be negative"
	}
	return v
}

// TimeEntryFilter narrows ListTimeEntries. Owner is always applied.
type TimeEntryFilter struct {
	Owner    string
	CaseID   string
	ClientID string
	Status   string
}

// CreateTimeEntry records time against one of userID's cases. The client is
// taken from the case. Entries are billable unless stated otherwise.
func (s *Service) CreateTimeEntry(ctx context.Context, userID string, in TimeEntryInput) (*database.TimeEntry, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}

	var c database.Case
	err := s.db.WithContext(ctx).Scopes(database.ClientOwnedBy(userID)).
		Select("id", "client_id").First(&c, "id = ?", in.CaseID).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrCaseNotFound
		}
		return nil, fmt.Errorf("load case: %w", err)
	}

	billable := true
	if in.Billable != nil {
		billable = *in.Billable
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}

	e := &database.TimeEntry{
		Description: strings.TrimSpace(in.Description),
		CaseID:      c.ID,
		ClientID:    c.ClientID,
		Date:        date,
		Duration:    in.Duration,
		Billable:    billable,
		Rate:        in.Rate,
		Status:      database.TimeEntryUnbilled,
	}
	if userID != "" {
		e.AttorneyID = &userID
	}

	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, fmt.Errorf("create time entry: %w", err)
	}
	metrics.RecordCreated("time_entry")
	return e, nil
}

func (s *Service) ListTimeEntries(ctx context.Context, f TimeEntryFilter) ([]database.TimeEntry, error) {
	q := s.db.WithContext(ctx).Model(&database.TimeEntry{}).Scopes(database.ClientOwnedBy(f.Owner))
	if f.CaseID != "" {
		q = q.Where("case_id = ?", f.CaseID)
	}
	if f.ClientID != "" {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var out []database.TimeEntry
	if err := q.Order("date DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	return out, nil
}

type ItemInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
}

type InvoiceInput struct {
	ClientID string      `json:"client_id"`
	CaseID   string      `json:"case_id"`
	DueDate  *time.Time  `json:"due_date"`
	Notes    string      `json:"notes"`
	Items    []ItemInput `json:"items"`
	// IncludeUnbilled adds every unbilled billable entry of the client (and
	// case, when set) as a line item.
	IncludeUnbilled bool `json:"include_unbilled"`
}

func (in *InvoiceInput) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("client_id", in.ClientID, "Client is required", v)
	if len(in.Items) == 0 && !in.IncludeUnbilled {
		v["items"] = "At least one line item is required"
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.Description) == "" {
			v[fmt.Sprintf("items[%d].description", i)] = "Description is required"
		}
		if it.Quantity <= 0 {
			v[fmt.Sprintf("items[%d].quantity", i)] = "must be positive"
		}
		if it.Rate < 0 {
			v[fmt.Sprintf("items[%d].rate", i)] = "must not be negative"
		}
	}
	return v
}

// CreateInvoice builds a draft invoice numbered INV-{year}-{NNNN}. Time
// entries pulled onto the invoice are marked billed.
func (s *Service) CreateInvoice(ctx context.Context, userID string, in InvoiceInput) (*database.Invoice, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}

	issue := s.now()
	due := issue.AddDate(0, 0, 30)
	if in.DueDate != nil {
		due = *in.DueDate
	}

	inv := &database.Invoice{
		ClientID:  in.ClientID,
		CaseID:    optional(in.CaseID),
		IssueDate: issue,
		DueDate:   due,
		Status:    database.InvoiceStatusDraft,
		Notes:     optional(in.Notes),
		CreatedBy: optional(userID),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var client database.Client
		if err := tx.Scopes(database.CreatedBy(userID)).Select("id").First(&client, "id = ?", in.ClientID).Error; err != nil {
			if database.IsNotFound(err) {
				return ErrClientNotFound
			}
			return err
		}

		number, err := nextInvoiceNumber(tx, issue.Year())
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number

		for _, it := range in.Items {
			inv.Items = append(inv.Items, database.InvoiceItem{
				Description: strings.TrimSpace(it.Description),
				Quantity:    it.Quantity,
				Rate:        it.Rate,
				Amount:      round(it.Quantity * it.Rate),
			})
		}

		var entries []database.TimeEntry
		if in.IncludeUnbilled {
			q := tx.Where("client_id = ? AND status = ? AND billable = ?", in.ClientID, database.TimeEntryUnbilled, true)
			if in.CaseID != "" {
				q = q.Where("case_id = ?", in.CaseID)
			}
			if err := q.Order("date ASC").Find(&entries).Error; err != nil {
				return err
			}
			for i := range entries {
				e := &entries[i]
				rate := 0.0
				if e.Rate != nil {
					rate = *e.Rate
				}
				id := e.ID
				inv.Items = append(inv.Items, database.InvoiceItem{
					Description: e.Description,
					Quantity:    round(e.Hours()),
					Rate:        rate,
					Amount:      round(e.Amount()),
					TimeEntryID: &id,
				})
			}
		}

		if len(inv.Items) == 0 {
			return validation.Violations{"items": "No unbilled time entries to invoice"}
		}

		total := 0.0
		for _, it := range inv.Items {
			total += it.Amount
		}
		inv.Amount = round(total)

		if err := tx.Create(inv).Error; err != nil {
			return err
		}

		if len(entries) > 0 {
			ids := make([]string, len(entries))
			for i, e := range entries {
				ids[i] = e.ID
			}
			if err := tx.Model(&database.TimeEntry{}).Where("id IN ?", ids).
				Updates(map[string]interface{}{"status": database.TimeEntryBilled, "invoice_id": inv.ID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var v validation.Violations
		if errors.As(err, &v) {
			return nil, v
		}
		if errors.Is(err, ErrClientNotFound) {
			return nil, err
		}
		if database.IsDuplicate(err) {
			metrics.RecordNumberingConflict("invoice")
			return nil, fmt.Errorf("%w: %s", ErrNumberConflict, inv.InvoiceNumber)
		}
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	metrics.RecordCreated("invoice")
	s.logger.Info("Invoice created", "invoice_id", inv.ID, "number", inv.InvoiceNumber, "amount", inv.Amount)
	return inv, nil
}

func (s *Service) GetInvoice(ctx context.Context, owner, id string) (*database.Invoice, error) {
	var inv database.Invoice
	if err := s.db.WithContext(ctx).Scopes(database.ClientOwnedBy(owner)).Preload("Items").First(&inv, "id = ?", id).Error; err != nil {
		return nil, database.Translate(err)
	}
	return &inv, nil
}

func (s *Service) ListInvoices(ctx context.Context, owner, status, clientID string) ([]database.Invoice, error) {
	q := s.db.WithContext(ctx).Model(&database.Invoice{}).Scopes(database.ClientOwnedBy(owner))
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if clientID != "" {
		q = q.Where("client_id = ?", clientID)
	}

	var out []database.Invoice
	if err := q.Preload("Items").Order("issue_date DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return out, nil
}

// UpdateStatus moves an invoice along draft → sent → paid, with overdue as
// a side state of sent. Any unpaid invoice can be cancelled, which returns
// its time entries to unbilled.
func (s *Service) UpdateStatus(ctx context.Context, owner, id, status string) (*database.Invoice, error) {
	var inv *database.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current database.Invoice
		if err := tx.Scopes(database.ClientOwnedBy(owner)).First(&current, "id = ?", id).Error; err != nil {
			return database.Translate(err)
		}
		if !allowed(current.Status, status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, status)
		}

		if err := tx.Model(&current).Update("status", status).Error; err != nil {
			return err
		}
		if status == database.InvoiceStatusCancelled {
			if err := tx.Model(&database.TimeEntry{}).Where("invoice_id = ?", current.ID).
				Updates(map[string]interface{}{"status": database.TimeEntryUnbilled, "invoice_id": nil}).Error; err != nil {
				return err
			}
		}
		current.Status = status
		inv = &current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice status changed", "invoice_id", id, "status", status)
	return inv, nil
}

// Summary aggregates billing totals.
type Summary struct {
	Outstanding    float64 `json:"outstanding"`
	Paid           float64 `json:"paid"`
	Overdue        float64 `json:"overdue"`
	Draft          float64 `json:"draft"`
	UnbilledHours  float64 `json:"unbilled_hours"`
	UnbilledAmount float64 `json:"unbilled_amount"`
	InvoiceCount   int     `json:"invoice_count"`
}

// Summary totals owner's invoices by state. A sent invoice past its due date
// counts as overdue.
func (s *Service) Summary(ctx context.Context, owner string) (*Summary, error) {
	var invoices []database.Invoice
	if err := s.db.WithContext(ctx).Scopes(database.ClientOwnedBy(owner)).Where("status <> ?", database.InvoiceStatusCancelled).Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}

	now := s.now()
	sum := &Summary{InvoiceCount: len(invoices)}
	for _, inv := range invoices {
		switch inv.Status {
		case database.InvoiceStatusPaid:
			sum.Paid += inv.Amount
		case database.InvoiceStatusDraft:
			sum.Draft += inv.Amount
		case database.InvoiceStatusSent, database.InvoiceStatusOverdue:
			sum.Outstanding += inv.Amount
			if inv.Status == database.InvoiceStatusOverdue || inv.DueDate.Before(now) {
				sum.Overdue += inv.Amount
			}
		}
	}

	var entries []database.TimeEntry
	if err := s.db.WithContext(ctx).Scopes(database.ClientOwnedBy(owner)).Where("status = ?", database.TimeEntryUnbilled).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load time entries: %w", err)
	}
	for i := range entries {
		sum.UnbilledHours += entries[i].Hours()
		sum.UnbilledAmount += entries[i].Amount()
	}

	sum.Outstanding = round(sum.Outstanding)
	sum.Paid = round(sum.Paid)
	sum.Overdue = round(sum.Overdue)
	sum.Draft = round(sum.Draft)
	sum.UnbilledHours = round(sum.UnbilledHours)
	sum.UnbilledAmount = round(sum.UnbilledAmount)
	return sum, nil
}

// nextInvoiceNumber counts this year's invoices and adds one.
func nextInvoiceNumber(tx *gorm.DB, year int) (string, error) {
	var count int64
	prefix := fmt.Sprintf("INV-%d-", year)
	if err := tx.Model(&database.Invoice{}).Where("invoice_number LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func allowed(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
