package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rentwise/rentwise/internal/domain/bill"
	ierr "github.com/rentwise/rentwise/internal/errors"
	"github.com/rentwise/rentwise/internal/idempotency"
	"github.com/rentwise/rentwise/internal/types"
	"github.com/samber/lo"
)

// StoreOp names a repository method that can be made to fail
type StoreOp string

const (
	OpListRecurringTemplates StoreOp = "ListRecurringTemplates"
	OpGetLineItems           StoreOp = "GetLineItems"
	OpGetByIdempotencyKey    StoreOp = "GetByIdempotencyKey"
	OpListInstanceDates      StoreOp = "ListInstanceDates"
	OpCreate                 StoreOp = "Create"
	OpCreateLineItems        StoreOp = "CreateLineItems"
	OpDelete                 StoreOp = "Delete"
	OpUpdateSchedule         StoreOp = "UpdateSchedule"
	OpListOrphanInstances    StoreOp = "ListOrphanInstances"
)

// Fault describes an injected failure
type Fault struct {
	Err   error
	Panic bool
	// Times is how many calls fail, 0 fails every call
	Times int
	// Match restricts the fault to calls about this bill or template id
	Match string
}

// InMemoryBillStore implements bill.Repository. It enforces the same unique
// constraints as the bills table.
type InMemoryBillStore struct {
	bills *InMemoryStore[*bill.Bill]
	lines *InMemoryStore[*bill.LineItem]
	keys  *idempotency.Generator

	mu     sync.Mutex
	faults map[StoreOp]*Fault
	calls  map[StoreOp]int
}

var _ bill.Repository = (*InMemoryBillStore)(nil)

func NewInMemoryBillStore() *InMemoryBillStore {
	return &InMemoryBillStore{
		bills:  NewInMemoryStore[*bill.Bill](),
		lines:  NewInMemoryStore[*bill.LineItem](),
		keys:   idempotency.NewGenerator(),
		faults: make(map[StoreOp]*Fault),
		calls:  make(map[StoreOp]int),
	}
}

// InjectFault makes op fail as described until the fault is used up
func (s *InMemoryBillStore) InjectFault(op StoreOp, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = &f
}

// Calls returns how many times op was invoked
func (s *InMemoryBillStore) Calls(op StoreOp) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *InMemoryBillStore) enter(op StoreOp, ids ...string) error {
	s.mu.Lock()
	s.calls[op]++
	f, ok := s.faults[op]
	if !ok || (f.Match != "" && !lo.Contains(ids, f.Match)) {
		s.mu.Unlock()
		return nil
	}
	if f.Times > 0 {
		f.Times--
		if f.Times == 0 {
			delete(s.faults, op)
		}
	}
	s.mu.Unlock()

	if f.Panic {
		panic("injected fault: " + string(op))
	}
	if f.Err != nil {
		return f.Err
	}
	return ierr.NewError("injected fault").
		WithReportableDetails(map[string]any{"op": string(op)}).
		Mark(ierr.ErrDatabase)
}

func copyBill(b *bill.Bill) *bill.Bill {
	if b == nil {
		return nil
	}
	cp := *b
	cp.Recurring = append(bill.JSONBRecurringSchedule(nil), b.Recurring...)
	cp.LineItems = nil
	return &cp
}

func copyLineItem(l *bill.LineItem) *bill.LineItem {
	cp := *l
	return &cp
}

func (s *InMemoryBillStore) ListRecurringTemplates(ctx context.Context, filter *types.RecurringTemplateFilter) ([]*bill.Bill, error) {
	if err := s.enter(OpListRecurringTemplates); err != nil {
		return nil, err
	}
	templates, err := s.bills.List(ctx, filter, templateFilterFn, billSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(templates, func(b *bill.Bill, _ int) *bill.Bill { return copyBill(b) }), nil
}

func templateFilterFn(_ context.Context, b *bill.Bill, filter interface{}) bool {
	if b.TransactionType != types.TransactionTypeBill || !b.IsTemplate() || len(b.Recurring) == 0 {
		return false
	}
	if f, ok := filter.(*types.RecurringTemplateFilter); ok && f != nil {
		return CheckOrgFilter(f.OrgID, b.OrgID)
	}
	return true
}

func billSortFn(i, j *bill.Bill) bool {
	if i.OrgID != j.OrgID {
		return i.OrgID < j.OrgID
	}
	if !i.CreatedAt.Equal(j.CreatedAt) {
		return i.CreatedAt.Before(j.CreatedAt)
	}
	return i.ID < j.ID
}

func (s *InMemoryBillStore) GetLineItems(ctx context.Context, billID string) ([]*bill.LineItem, error) {
	if err := s.enter(OpGetLineItems, billID); err != nil {
		return nil, err
	}
	items, err := s.lines.List(ctx, billID,
		func(_ context.Context, l *bill.LineItem, filter interface{}) bool {
			return l.BillID == filter.(string)
		},
		func(i, j *bill.LineItem) bool {
			if i.LineOrder != j.LineOrder {
				return i.LineOrder < j.LineOrder
			}
			return i.ID < j.ID
		})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(l *bill.LineItem, _ int) *bill.LineItem { return copyLineItem(l) }), nil
}

func (s *InMemoryBillStore) GetByIdempotencyKey(ctx context.Context, key string) (*bill.Bill, error) {
	if err := s.enter(OpGetByIdempotencyKey, key); err != nil {
		return nil, err
	}
	found, err := s.bills.List(ctx, key, func(_ context.Context, b *bill.Bill, filter interface{}) bool {
		return b.IdempotencyKey != nil && *b.IdempotencyKey == filter.(string)
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, bill.NewNotFoundError("idempotency_key", key)
	}
	return copyBill(found[0]), nil
}

func (s *InMemoryBillStore) ListInstanceDates(ctx context.Context, templateID string) ([]time.Time, error) {
	if err := s.enter(OpListInstanceDates, templateID); err != nil {
		return nil, err
	}
	prefix := s.keys.KeyPrefix(idempotency.ScopeRecurringBillInstance, templateID)
	children, err := s.bills.List(ctx, nil, func(_ context.Context, b *bill.Bill, _ interface{}) bool {
		if b.ParentBillID != nil && *b.ParentBillID == templateID {
			return true
		}
		return b.IdempotencyKey != nil && strings.HasPrefix(*b.IdempotencyKey, prefix)
	}, nil)
	if err != nil {
		return nil, err
	}

	var dates []time.Time
	for _, child := range children {
		switch {
		case child.InstanceDate != nil:
			dates = append(dates, types.DateOnly(*child.InstanceDate))
		case child.IdempotencyKey != nil:
			if _, date, err := s.keys.ParseInstanceKey(*child.IdempotencyKey); err == nil {
				dates = append(dates, date)
			}
		}
	}
	dates = lo.Uniq(dates)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func (s *InMemoryBillStore) Create(ctx context.Context, b *bill.Bill) error {
	if err := s.enter(OpCreate, b.ID, lo.FromPtr(b.ParentBillID)); err != nil {
		return err
	}

	// unique indexes on idempotency_key and (parent_bill_id, instance_date)
	clash, err := s.bills.Count(ctx, b, func(_ context.Context, existing *bill.Bill, _ interface{}) bool {
		if b.IdempotencyKey != nil && existing.IdempotencyKey != nil && *b.IdempotencyKey == *existing.IdempotencyKey {
			return true
		}
		return b.ParentBillID != nil && existing.ParentBillID != nil && *b.ParentBillID == *existing.ParentBillID &&
			b.InstanceDate != nil && existing.InstanceDate != nil && b.InstanceDate.Equal(*existing.InstanceDate)
	})
	if err != nil {
		return err
	}
	if clash > 0 {
		return bill.NewDuplicateInstanceError(lo.FromPtr(b.IdempotencyKey))
	}
	return s.bills.Create(ctx, b.ID, copyBill(b))
}

func (s *InMemoryBillStore) CreateLineItems(ctx context.Context, items []*bill.LineItem) error {
	ids := lo.Map(items, func(l *bill.LineItem, _ int) string { return l.BillID })
	for _, id := range lo.Uniq(ids) {
		if b, err := s.bills.Get(ctx, id); err == nil && b.ParentBillID != nil {
			ids = append(ids, *b.ParentBillID)
		}
	}
	if err := s.enter(OpCreateLineItems, ids...); err != nil {
		return err
	}

	for _, item := range items {
		if _, err := s.bills.Get(ctx, item.BillID); err != nil {
			// bill_line_items.bill_id references bills
			return ierr.WithError(err).
				WithHint("Line item references a missing bill").
				Mark(ierr.ErrValidation)
		}
		if err := s.lines.Create(ctx, item.ID, copyLineItem(item)); err != nil {
			return err
		}
	}
	return nil
}

func (s *InMemoryBillStore) Delete(ctx context.Context, id string) error {
	if err := s.enter(OpDelete, id); err != nil {
		return err
	}
	if err := s.bills.Delete(ctx, id); err != nil {
		return bill.NewNotFoundError("bill_id", id)
	}

	// ON DELETE CASCADE
	items, _ := s.lines.List(ctx, id, func(_ context.Context, l *bill.LineItem, filter interface{}) bool {
		return l.BillID == filter.(string)
	}, nil)
	for _, item := range items {
		_ = s.lines.Delete(ctx, item.ID)
	}
	return nil
}

func (s *InMemoryBillStore) UpdateSchedule(ctx context.Context, templateID string, sched *bill.Schedule) error {
	if err := s.enter(OpUpdateSchedule, templateID); err != nil {
		return err
	}
	existing, err := s.bills.Get(ctx, templateID)
	if err != nil || !existing.IsRecurring {
		return bill.NewNotFoundError("bill_id", templateID)
	}

	updated := copyBill(existing)
	if err := updated.SetSchedule(sched); err != nil {
		return err
	}
	updated.UpdatedAt = time.Now().UTC()
	return s.bills.Update(ctx, templateID, updated)
}

func (s *InMemoryBillStore) ListOrphanInstances(ctx context.Context, filter *types.OrphanInstanceFilter) ([]*bill.Bill, error) {
	if err := s.enter(OpListOrphanInstances); err != nil {
		return nil, err
	}
	candidates, err := s.bills.List(ctx, filter, func(_ context.Context, b *bill.Bill, _ interface{}) bool {
		return b.ParentBillID != nil &&
			!b.IsRecurring &&
			b.Status == types.BillStatusDraft &&
			b.CreatedAt.Before(filter.CreatedBefore) &&
			CheckOrgFilter(filter.OrgID, b.OrgID)
	}, billSortFn)
	if err != nil {
		return nil, err
	}

	var orphans []*bill.Bill
	for _, b := range candidates {
		n, _ := s.lines.Count(ctx, b.ID, func(_ context.Context, l *bill.LineItem, filter interface{}) bool {
			return l.BillID == filter.(string)
		})
		if n == 0 {
			orphans = append(orphans, copyBill(b))
		}
	}
	return orphans, nil
}

// Get returns a stored bill by id
func (s *InMemoryBillStore) Get(ctx context.Context, id string) (*bill.Bill, error) {
	b, err := s.bills.Get(ctx, id)
	if err != nil {
		return nil, bill.NewNotFoundError("bill_id", id)
	}
	return copyBill(b), nil
}

// Put stores b as is, bypassing constraints and faults. Used to seed templates
// and legacy rows.
func (s *InMemoryBillStore) Put(ctx context.Context, b *bill.Bill, items ...*bill.LineItem) {
	_ = s.bills.Delete(ctx, b.ID)
	_ = s.bills.Create(ctx, b.ID, copyBill(b))
	for _, item := range items {
		_ = s.lines.Delete(ctx, item.ID)
		_ = s.lines.Create(ctx, item.ID, copyLineItem(item))
	}
}

// Instances returns the generated children of templateID ordered by instance date
func (s *InMemoryBillStore) Instances(ctx context.Context, templateID string) []*bill.Bill {
	children, _ := s.bills.List(ctx, templateID, func(_ context.Context, b *bill.Bill, filter interface{}) bool {
		return b.ParentBillID != nil && *b.ParentBillID == filter.(string)
	}, func(i, j *bill.Bill) bool {
		return lo.FromPtr(i.InstanceDate).Before(lo.FromPtr(j.InstanceDate))
	})
	return lo.Map(children, func(b *bill.Bill, _ int) *bill.Bill { return copyBill(b) })
}

// CountLineItems returns the number of stored line items across all bills
func (s *InMemoryBillStore) CountLineItems(ctx context.Context) int {
	n, _ := s.lines.Count(ctx, nil, nil)
	return n
}

func (s *InMemoryBillStore) Clear() {
	s.bills.Clear()
	s.lines.Clear()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[StoreOp]*Fault)
	s.calls = make(map[StoreOp]int)
}
