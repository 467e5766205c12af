package types

import (
	"time"

	ierr "github.com/rentwise/rentwise/internal/errors"
	"github.com/samber/lo"
)

// TransactionType discriminates rows of the bills table
type TransactionType string

const (
	TransactionTypeBill TransactionType = "Bill"
)

// BillStatus is the accounting status of a bill. Instances start as draft.
type BillStatus string

const (
	BillStatusDraft   BillStatus = "draft"
	BillStatusOpen    BillStatus = "open"
	BillStatusPaid    BillStatus = "paid"
	BillStatusVoid    BillStatus = "void"
	BillStatusDeleted BillStatus = "deleted"
)

func (s BillStatus) String() string {
	return string(s)
}

// IsTerminated reports whether the bill has been voided or deleted
func (s BillStatus) IsTerminated() bool {
	return s == BillStatusVoid || s == BillStatusDeleted
}

func (s BillStatus) Validate() error {
	allowed := []BillStatus{
		BillStatusDraft,
		BillStatusOpen,
		BillStatusPaid,
		BillStatusVoid,
		BillStatusDeleted,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid bill status").
			WithHint("Please provide a valid bill status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ApprovalState is owned by the downstream bill approval workflow.
// The generator only reads it.
type ApprovalState string

const (
	ApprovalStateDraft           ApprovalState = "draft"
	ApprovalStatePendingApproval ApprovalState = "pending_approval"
	ApprovalStateApproved        ApprovalState = "approved"
	ApprovalStateRejected        ApprovalState = "rejected"
	ApprovalStateVoid            ApprovalState = "void"
)

func (s ApprovalState) String() string {
	return string(s)
}

// PostingType is the debit/credit side of a bill line
type PostingType string

const (
	PostingTypeDebit  PostingType = "Debit"
	PostingTypeCredit PostingType = "Credit"
)

// RecurringTemplateFilter narrows the candidate loader query
type RecurringTemplateFilter struct {
	// OrgID restricts the query to one organization when set
	OrgID string
}

// OrphanInstanceFilter selects generated instances that were left without lines
type OrphanInstanceFilter struct {
	OrgID         string
	CreatedBefore time.Time
}
