package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/rentwise/rentwise/internal/domain/bill"
	ierr "github.com/rentwise/rentwise/internal/errors"
	"github.com/rentwise/rentwise/internal/idempotency"
	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/postgres"
	"github.com/rentwise/rentwise/internal/types"
)

const billColumns = `
	id, org_id, transaction_type, date, due_date, vendor_id, reference_number, memo,
	status, total_amount, is_recurring, idempotency_key, parent_bill_id, instance_date,
	recurring_schedule, created_at, updated_at, created_by, updated_by`

const lineItemColumns = `
	id, bill_id, org_id, line_order, gl_account_id, amount, posting_type, memo,
	account_entity_type, account_entity_id, property_id, unit_id, lease_id, date,
	created_at, updated_at, created_by, updated_by`

type billRepository struct {
	client postgres.IClient
	logger *logger.Logger
	keys   *idempotency.Generator
}

func NewBillRepository(client postgres.IClient, logger *logger.Logger) bill.Repository {
	return &billRepository{
		client: client,
		logger: logger,
		keys:   idempotency.NewGenerator(),
	}
}

func (r *billRepository) ListRecurringTemplates(ctx context.Context, filter *types.RecurringTemplateFilter) ([]*bill.Bill, error) {
	query := `SELECT ` + billColumns + `
		FROM bills
		WHERE transaction_type = $1
			AND is_recurring = TRUE
			AND parent_bill_id IS NULL
			AND recurring_schedule IS NOT NULL`
	args := []interface{}{types.TransactionTypeBill}

	if filter != nil && filter.OrgID != "" {
		query += ` AND org_id = $2`
		args = append(args, filter.OrgID)
	}
	query += ` ORDER BY org_id, created_at, id`

	var templates []*bill.Bill
	if err := r.client.Querier(ctx).SelectContext(ctx, &templates, query, args...); err != nil {
		return nil, postgres.TranslateError(err, "Failed to list recurring bills")
	}
	return templates, nil
}

func (r *billRepository) GetLineItems(ctx context.Context, billID string) ([]*bill.LineItem, error) {
	query := `SELECT ` + lineItemColumns + `
		FROM bill_line_items
		WHERE bill_id = $1
		ORDER BY line_order, id`

	var items []*bill.LineItem
	if err := r.client.Querier(ctx).SelectContext(ctx, &items, query, billID); err != nil {
		return nil, postgres.TranslateError(err, "Failed to list bill line items")
	}
	return items, nil
}

func (r *billRepository) GetByIdempotencyKey(ctx context.Context, key string) (*bill.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE idempotency_key = $1`

	var b bill.Bill
	err := r.client.Querier(ctx).GetContext(ctx, &b, query, key)
	if err != nil {
		err = postgres.TranslateError(err, "Failed to get bill")
		if ierr.IsNotFound(err) {
			return nil, bill.NewNotFoundError("idempotency_key", key)
		}
		return nil, err
	}
	return &b, nil
}

// ListInstanceDates reads children linked by parent_bill_id as well as rows
// that only carry a key for the template, such as imported history.
func (r *billRepository) ListInstanceDates(ctx context.Context, templateID string) ([]time.Time, error) {
	query := `SELECT instance_date, idempotency_key
		FROM bills
		WHERE parent_bill_id = $1
			OR idempotency_key LIKE $2`

	prefix := r.keys.KeyPrefix(idempotency.ScopeRecurringBillInstance, templateID)
	rows, err := r.client.Querier(ctx).QueryxContext(ctx, query, templateID, escapeLike(prefix)+"%")
	if err != nil {
		return nil, postgres.TranslateError(err, "Failed to list generated bills")
	}
	defer rows.Close()

	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for rows.Next() {
		var (
			instanceDate *time.Time
			key          *string
		)
		if err := rows.Scan(&instanceDate, &key); err != nil {
			return nil, postgres.TranslateError(err, "Failed to read generated bills")
		}

		var date time.Time
		switch {
		case instanceDate != nil:
			date = types.DateOnly(instanceDate.UTC())
		case key != nil:
			_, parsed, err := r.keys.ParseInstanceKey(*key)
			if err != nil {
				r.logger.Warnw("ignoring bill with malformed idempotency key",
					"template_id", templateID,
					"idempotency_key", *key,
				)
				continue
			}
			date = parsed
		default:
			continue
		}

		if _, ok := seen[date]; ok {
			continue
		}
		seen[date] = struct{}{}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.TranslateError(err, "Failed to read generated bills")
	}
	return dates, nil
}

func (r *billRepository) Create(ctx context.Context, b *bill.Bill) error {
	query := `INSERT INTO bills (` + billColumns + `) VALUES (
		:id, :org_id, :transaction_type, :date, :due_date, :vendor_id, :reference_number, :memo,
		:status, :total_amount, :is_recurring, :idempotency_key, :parent_bill_id, :instance_date,
		:recurring_schedule, :created_at, :updated_at, :created_by, :updated_by)`

	r.logger.Debugw("creating bill",
		"bill_id", b.ID,
		"org_id", b.OrgID,
		"parent_bill_id", b.ParentBillID,
	)

	if _, err := r.client.Querier(ctx).NamedExecContext(ctx, query, b); err != nil {
		if postgres.IsUniqueViolation(err) && b.IdempotencyKey != nil {
			return bill.NewDuplicateInstanceError(*b.IdempotencyKey)
		}
		return postgres.TranslateError(err, "Failed to create bill")
	}
	return nil
}

func (r *billRepository) CreateLineItems(ctx context.Context, items []*bill.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `INSERT INTO bill_line_items (` + lineItemColumns + `) VALUES (
		:id, :bill_id, :org_id, :line_order, :gl_account_id, :amount, :posting_type, :memo,
		:account_entity_type, :account_entity_id, :property_id, :unit_id, :lease_id, :date,
		:created_at, :updated_at, :created_by, :updated_by)`

	// sqlx expands the VALUES clause for a slice argument
	if _, err := r.client.Querier(ctx).NamedExecContext(ctx, query, items); err != nil {
		return postgres.TranslateError(err, "Failed to create bill line items")
	}
	return nil
}

func (r *billRepository) Delete(ctx context.Context, id string) error {
	result, err := r.client.Querier(ctx).ExecContext(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return postgres.TranslateError(err, "Failed to delete bill")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return bill.NewNotFoundError("bill_id", id)
	}
	return nil
}

func (r *billRepository) UpdateSchedule(ctx context.Context, templateID string, s *bill.Schedule) error {
	var b bill.Bill
	if err := b.SetSchedule(s); err != nil {
		return err
	}

	query := `UPDATE bills
		SET recurring_schedule = $1, updated_at = $2, updated_by = $3
		WHERE id = $4 AND is_recurring = TRUE`

	userID := types.GetUserID(ctx)
	if userID == "" {
		userID = types.SystemUserID
	}

	result, err := r.client.Querier(ctx).ExecContext(ctx, query, b.Recurring, time.Now().UTC(), userID, templateID)
	if err != nil {
		return postgres.TranslateError(err, "Failed to update recurring schedule")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return bill.NewNotFoundError("bill_id", templateID)
	}
	return nil
}

func (r *billRepository) ListOrphanInstances(ctx context.Context, filter *types.OrphanInstanceFilter) ([]*bill.Bill, error) {
	query := `SELECT ` + billColumns + `
		FROM bills b
		WHERE b.parent_bill_id IS NOT NULL
			AND b.is_recurring = FALSE
			AND b.status = $1
			AND b.created_at < $2
			AND NOT EXISTS (SELECT 1 FROM bill_line_items li WHERE li.bill_id = b.id)`
	args := []interface{}{types.BillStatusDraft, filter.CreatedBefore}

	if filter.OrgID != "" {
		query += ` AND b.org_id = $3`
		args = append(args, filter.OrgID)
	}
	query += ` ORDER BY b.created_at`

	var orphans []*bill.Bill
	if err := r.client.Querier(ctx).SelectContext(ctx, &orphans, query, args...); err != nil {
		return nil, postgres.TranslateError(err, "Failed to list orphan bills")
	}
	return orphans, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
