package bill

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	ierr "github.com/rentwise/rentwise/internal/errors"
	"github.com/rentwise/rentwise/internal/types"
	"github.com/shopspring/decimal"
)

// Bill is a payable record. A template bill carries a recurring schedule and
// produces instance bills, one per occurrence date.
type Bill struct {
	ID              string                 `db:"id" json:"id"`
	TransactionType types.TransactionType  `db:"transaction_type" json:"transaction_type"`
	Date            time.Time              `db:"date" json:"date"`
	DueDate         *time.Time             `db:"due_date" json:"due_date,omitempty"`
	VendorID        *string                `db:"vendor_id" json:"vendor_id,omitempty"`
	ReferenceNumber *string                `db:"reference_number" json:"reference_number,omitempty"`
	Memo            *string                `db:"memo" json:"memo,omitempty"`
	Status          types.BillStatus       `db:"status" json:"status"`
	TotalAmount     decimal.Decimal        `db:"total_amount" json:"total_amount"`
	IsRecurring     bool                   `db:"is_recurring" json:"is_recurring"`
	IdempotencyKey  *string                `db:"idempotency_key" json:"idempotency_key,omitempty"`
	ParentBillID    *string                `db:"parent_bill_id" json:"parent_bill_id,omitempty"`
	InstanceDate    *time.Time             `db:"instance_date" json:"instance_date,omitempty"`
	Recurring       JSONBRecurringSchedule `db:"recurring_schedule" json:"recurring_schedule,omitempty"`
	LineItems       []*LineItem            `db:"-" json:"line_items,omitempty"`
	types.BaseModel
}

// InstanceMetadata links a generated bill back to its template
type InstanceMetadata struct {
	ParentID     string `json:"parent_id"`
	InstanceDate string `json:"instance_date"`
	Sequence     int    `json:"sequence"`
}

// recurringEnvelope is the layout of the recurring_schedule column:
// templates store {"schedule": ...}, instances store {"instance": ...}
type recurringEnvelope struct {
	Schedule *Schedule        `json:"schedule,omitempty"`
	Instance *InstanceMetadata `json:"instance,omitempty"`
}

// JSONBRecurringSchedule holds the raw recurring_schedule column. It is decoded
// on demand so one malformed template cannot fail a whole query.
type JSONBRecurringSchedule []byte

func (j *JSONBRecurringSchedule) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0:0], v...)
	case string:
		*j = JSONBRecurringSchedule(v)
	default:
		return fmt.Errorf("invalid type for jsonb recurring schedule: %T", value)
	}
	return nil
}

// Value sends the document as text, lib/pq would encode []byte as bytea
func (j JSONBRecurringSchedule) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

func (j JSONBRecurringSchedule) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return []byte(j), nil
}

func (j *JSONBRecurringSchedule) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[:0:0], data...)
	return nil
}

func (b *Bill) envelope() (*recurringEnvelope, error) {
	var env recurringEnvelope
	if len(b.Recurring) == 0 {
		return &env, nil
	}
	if err := json.Unmarshal(b.Recurring, &env); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Recurring schedule of the bill could not be read").
			WithReportableDetails(map[string]any{
				"bill_id": b.ID,
			}).
			Mark(ierr.ErrValidation)
	}
	return &env, nil
}

// Schedule decodes the recurring schedule of a template bill
func (b *Bill) Schedule() (*Schedule, error) {
	env, err := b.envelope()
	if err != nil {
		return nil, err
	}
	if env.Schedule == nil {
		return nil, ErrScheduleMissing
	}
	return env.Schedule, nil
}

// SetSchedule replaces the schedule of a template bill
func (b *Bill) SetSchedule(s *Schedule) error {
	data, err := json.Marshal(recurringEnvelope{Schedule: s})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Recurring schedule could not be encoded").
			Mark(ierr.ErrValidation)
	}
	b.Recurring = data
	return nil
}

// Instance decodes the instance metadata of a generated bill. It returns nil
// for bills that were not generated from a template.
func (b *Bill) Instance() (*InstanceMetadata, error) {
	env, err := b.envelope()
	if err != nil {
		return nil, err
	}
	return env.Instance, nil
}

func (b *Bill) SetInstance(m *InstanceMetadata) error {
	data, err := json.Marshal(recurringEnvelope{Instance: m})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Instance metadata could not be encoded").
			Mark(ierr.ErrValidation)
	}
	b.Recurring = data
	return nil
}

// IsTemplate reports whether the bill drives recurring generation
func (b *Bill) IsTemplate() bool {
	return b.IsRecurring && b.ParentBillID == nil
}

// DueOffsetDays is the number of days between the bill date and its due date
func (b *Bill) DueOffsetDays() int {
	if b.DueDate == nil {
		return 0
	}
	return types.DaysBetween(types.DateOnly(b.Date), types.DateOnly(*b.DueDate))
}

// NewInstance builds the draft instance header of template b for one occurrence.
// Line items are not copied here.
func (b *Bill) NewInstance(date time.Time, key string, sequence int, base types.BaseModel) (*Bill, error) {
	instanceDate := date
	parentID := b.ID
	inst := &Bill{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILL),
		TransactionType: types.TransactionTypeBill,
		Date:            date,
		VendorID:        b.VendorID,
		Memo:            b.Memo,
		Status:          types.BillStatusDraft,
		TotalAmount:     b.TotalAmount,
		IsRecurring:     false,
		IdempotencyKey:  &key,
		ParentBillID:    &parentID,
		InstanceDate:    &instanceDate,
		BaseModel:       base,
	}
	inst.OrgID = b.OrgID

	if b.DueDate != nil {
		due := date.AddDate(0, 0, b.DueOffsetDays())
		inst.DueDate = &due
	}
	if b.ReferenceNumber != nil && *b.ReferenceNumber != "" {
		ref := fmt.Sprintf("%s-%d", *b.ReferenceNumber, sequence)
		inst.ReferenceNumber = &ref
	}

	err := inst.SetInstance(&InstanceMetadata{
		ParentID:     b.ID,
		InstanceDate: types.FormatDate(date),
		Sequence:     sequence,
	})
	if err != nil {
		return nil, err
	}
	return inst, nil
}
