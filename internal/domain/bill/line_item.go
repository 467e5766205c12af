package bill

import (
	"time"

	"github.com/rentwise/rentwise/internal/types"
	"github.com/shopspring/decimal"
)

// LineItem is one ledger allocation of a bill
type LineItem struct {
	ID                string            `db:"id" json:"id"`
	BillID            string            `db:"bill_id" json:"bill_id"`
	LineOrder         int               `db:"line_order" json:"line_order"`
	GLAccountID       string            `db:"gl_account_id" json:"gl_account_id"`
	Amount            decimal.Decimal   `db:"amount" json:"amount"`
	PostingType       types.PostingType `db:"posting_type" json:"posting_type"`
	Memo              *string           `db:"memo" json:"memo,omitempty"`
	AccountEntityType *string           `db:"account_entity_type" json:"account_entity_type,omitempty"`
	AccountEntityID   *string           `db:"account_entity_id" json:"account_entity_id,omitempty"`
	PropertyID        *string           `db:"property_id" json:"property_id,omitempty"`
	UnitID            *string           `db:"unit_id" json:"unit_id,omitempty"`
	LeaseID           *string           `db:"lease_id" json:"lease_id,omitempty"`
	Date              time.Time         `db:"date" json:"date"`
	types.BaseModel
}

// CopyFor returns a copy of the template line attached to instance billID with
// its date moved to the occurrence date. Allocation fields are kept verbatim.
func (l *LineItem) CopyFor(billID string, date time.Time, base types.BaseModel) *LineItem {
	cp := *l
	cp.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILL_LINE_ITEM)
	cp.BillID = billID
	cp.Date = date
	cp.BaseModel = base
	cp.OrgID = l.OrgID
	return &cp
}
