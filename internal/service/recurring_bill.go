package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/getsentry/sentry-go"
	"github.com/rentwise/rentwise/internal/domain/bill"
	ierr "github.com/rentwise/rentwise/internal/errors"
	"github.com/rentwise/rentwise/internal/idempotency"
	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/types"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/panics"
)

// DefaultDaysHorizon is used when a caller does not ask for a horizon
const DefaultDaysHorizon = 60

const compensationInitialInterval = 50 * time.Millisecond

// RecurringBillService generates bill instances from recurring templates
type RecurringBillService interface {
	// GenerateRecurringBills creates the instances of every due template whose
	// occurrence falls between the organization's today and today+daysHorizon.
	// Running it twice over the same window creates nothing the second time.
	GenerateRecurringBills(ctx context.Context, daysHorizon int, orgID string) (*bill.GenerationResult, error)
}

type recurringBillService struct {
	ServiceParams
	timezones TimezoneResolver
	keys      *idempotency.Generator
	now       func() time.Time
}

func NewRecurringBillService(params ServiceParams, timezones TimezoneResolver) RecurringBillService {
	return &recurringBillService{
		ServiceParams: params,
		timezones:     timezones,
		keys:          idempotency.NewGenerator(),
		now:           time.Now,
	}
}

// dueTemplate is a template that passed the loader together with its
// decoded schedule and the business day of its organization
type dueTemplate struct {
	bill     *bill.Bill
	schedule *bill.Schedule
	loc      *time.Location
	today    time.Time
}

type instanceOutcome int

const (
	outcomeCreated instanceOutcome = iota
	outcomeDuplicate
	outcomeFailed
)

func (s *recurringBillService) GenerateRecurringBills(ctx context.Context, daysHorizon int, orgID string) (*bill.GenerationResult, error) {
	if daysHorizon <= 0 {
		daysHorizon = s.Config.RecurringBills.HorizonDays
	}
	if daysHorizon <= 0 {
		daysHorizon = DefaultDaysHorizon
	}

	span, ctx := s.Sentry.StartTransaction(ctx, "recurring_bills.generate")
	if span != nil {
		defer span.Finish()
	}

	log := s.Logger.WithContext(ctx)
	log.Infow("starting recurring bill generation",
		"days_horizon", daysHorizon,
		"org_id", orgID,
	)

	result := &bill.GenerationResult{OrgIDs: []string{}}
	result.OrphansRemoved = s.sweepOrphans(ctx, orgID)

	due, err := s.loadDue(ctx, orgID, result)
	if err != nil {
		return nil, err
	}

	for _, t := range due {
		if err := ctx.Err(); err != nil {
			log.Warnw("recurring bill generation cancelled",
				"templates", len(due),
				"error", err,
			)
			return result, ierr.WithError(err).
				WithHint("Recurring bill generation was cancelled").
				Mark(ierr.ErrSystem)
		}

		result.AddOrg(t.bill.OrgID)
		templateCtx := types.SetOrgID(ctx, t.bill.OrgID)
		tally := &bill.GenerationResult{}

		var catcher panics.Catcher
		catcher.Try(func() {
			s.processTemplate(templateCtx, t, daysHorizon, tally)
		})
		if recovered := catcher.Recovered(); recovered != nil {
			tally.Errors++
			s.Logger.WithContext(templateCtx).Errorw("panic while generating recurring bills",
				"template_id", t.bill.ID,
				"error", recovered.AsError(),
			)
			s.Sentry.CaptureExceptionWithTags(templateCtx, recovered.AsError(), sentry.LevelError, map[string]string{
				"template_id": t.bill.ID,
				"org_id":      t.bill.OrgID,
			})
		}
		result.Add(tally)
	}

	log.Infow("finished recurring bill generation",
		"generated", result.Generated,
		"skipped", result.Skipped,
		"duplicates", result.Duplicates,
		"errors", result.Errors,
		"compensation_failures", result.CompensationFailures,
		"orphans_removed", result.OrphansRemoved,
		"org_ids", result.OrgIDs,
	)
	return result, nil
}

// loadDue returns the templates with an active, unexpired schedule. Templates it
// leaves out are counted as skipped on result.
func (s *recurringBillService) loadDue(ctx context.Context, orgID string, result *bill.GenerationResult) ([]*dueTemplate, error) {
	templates, err := s.BillRepo.ListRecurringTemplates(ctx, &types.RecurringTemplateFilter{OrgID: orgID})
	if err != nil {
		return nil, err
	}

	now := s.now()
	due := make([]*dueTemplate, 0, len(templates))
	for _, tmpl := range templates {
		sched, err := tmpl.Schedule()
		if err != nil {
			s.Logger.Warnw("skipping recurring bill with unreadable schedule",
				"org_id", tmpl.OrgID,
				"template_id", tmpl.ID,
				"error", err,
			)
			result.Skipped++
			continue
		}
		if !sched.IsActive() {
			result.Skipped++
			continue
		}

		loc := s.timezones.Resolve(ctx, tmpl.OrgID)
		today := types.TodayIn(now, loc)
		if sched.IsExpired(today) {
			result.Skipped++
			continue
		}

		due = append(due, &dueTemplate{
			bill:     tmpl,
			schedule: sched,
			loc:      loc,
			today:    today,
		})
	}
	return due, nil
}

func (s *recurringBillService) processTemplate(ctx context.Context, t *dueTemplate, daysHorizon int, tally *bill.GenerationResult) {
	tmpl := t.bill
	log := s.Logger.With(
		"org_id", tmpl.OrgID,
		"template_id", tmpl.ID,
	)

	if tmpl.Status.IsTerminated() || !t.schedule.IsActive() {
		tally.Skipped++
		return
	}

	state, err := s.ApprovalRepo.GetApprovalState(ctx, tmpl.ID)
	if err != nil {
		log.Errorw("failed to read approval state", "error", err)
		tally.Errors++
		return
	}
	if state == types.ApprovalStateApproved {
		tally.Skipped++
		return
	}

	lines, err := s.BillRepo.GetLineItems(ctx, tmpl.ID)
	if err != nil {
		log.Errorw("failed to read template line items", "error", err)
		tally.Errors++
		return
	}
	if len(lines) == 0 {
		log.Warnw("recurring bill has no line items, skipping generation")
		tally.Skipped++
		return
	}

	from := t.today
	to := from.AddDate(0, 0, daysHorizon)

	// Every occurrence in the window is re-verified against storage, so only an
	// anchor beyond the window may shorten it. next_run_date is an anchor only
	// when nothing was generated yet, last_generated_at takes precedence.
	lastGenerated := lo.Ternary(beyond(t.schedule.LastGeneratedDate(), to), t.schedule.LastGeneratedDate(), nil)
	nextRun := lo.Ternary(t.schedule.LastGeneratedAt == nil && beyond(t.schedule.NextRunDate, to), t.schedule.NextRunDate, nil)

	dates, err := bill.Occurrences(t.schedule, from, to, lastGenerated, nextRun, t.loc)
	if err != nil {
		log.Warnw("skipping recurring bill with invalid schedule", "error", err)
		tally.Skipped++
		return
	}
	if len(dates) == 0 {
		return
	}

	existing, err := s.BillRepo.ListInstanceDates(ctx, tmpl.ID)
	if err != nil {
		log.Errorw("failed to read generated instances", "error", err)
		tally.Errors++
		return
	}
	seen := make(map[time.Time]struct{}, len(existing))
	for _, d := range existing {
		seen[types.DateOnly(d)] = struct{}{}
	}
	existingCount := len(seen)
	created := 0

	var watermark *time.Time
	failed := false
	for _, date := range dates {
		sequence := existingCount + created + 1
		switch s.ensureInstance(ctx, tmpl, lines, date, sequence, seen, tally) {
		case outcomeCreated:
			created++
			tally.Generated++
		case outcomeDuplicate:
			tally.Duplicates++
		case outcomeFailed:
			tally.Errors++
			failed = true
			continue
		}
		if !failed {
			watermark = lo.ToPtr(date)
		}
	}

	if watermark == nil {
		return
	}
	if err := t.schedule.Advance(*watermark, t.loc); err != nil {
		log.Errorw("failed to advance recurring schedule", "error", err)
		tally.Errors++
		return
	}
	if err := s.BillRepo.UpdateSchedule(ctx, tmpl.ID, t.schedule); err != nil {
		log.Errorw("failed to persist recurring schedule progress",
			"last_generated_at", t.schedule.LastGeneratedAt,
			"error", err,
		)
		tally.Errors++
	}
}

// ensureInstance creates the instance of tmpl for date unless one exists.
// Only created instances consume a sequence number, duplicates keep theirs.
// Failures are logged here; compensation failures are also counted on tally.
func (s *recurringBillService) ensureInstance(
	ctx context.Context,
	tmpl *bill.Bill,
	lines []*bill.LineItem,
	date time.Time,
	sequence int,
	seen map[time.Time]struct{},
	tally *bill.GenerationResult,
) instanceOutcome {
	key := s.keys.InstanceKey(tmpl.ID, date)
	log := s.Logger.With(
		"org_id", tmpl.OrgID,
		"template_id", tmpl.ID,
		"instance_date", types.FormatDate(date),
		"idempotency_key", key,
	)

	existing, err := s.BillRepo.GetByIdempotencyKey(ctx, key)
	if err != nil && !ierr.IsNotFound(err) {
		log.Errorw("failed to check idempotency key", "error", err)
		return outcomeFailed
	}
	if existing != nil {
		seen[date] = struct{}{}
		return outcomeDuplicate
	}
	if _, ok := seen[date]; ok {
		return outcomeDuplicate
	}

	base := types.GetDefaultBaseModel(ctx)
	inst, err := tmpl.NewInstance(date, key, sequence, base)
	if err != nil {
		log.Errorw("failed to build bill instance", "error", err)
		return outcomeFailed
	}
	copies := lo.Map(lines, func(l *bill.LineItem, _ int) *bill.LineItem {
		return l.CopyFor(inst.ID, date, base)
	})

	headerCreated := false
	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.BillRepo.Create(txCtx, inst); err != nil {
			return err
		}
		headerCreated = true
		return s.BillRepo.CreateLineItems(txCtx, copies)
	})
	if err == nil {
		seen[date] = struct{}{}
		log.Debugw("created recurring bill instance",
			"bill_id", inst.ID,
			"sequence", sequence,
		)
		return outcomeCreated
	}

	if !headerCreated {
		if ierr.IsAlreadyExists(err) {
			// another run won the race
			seen[date] = struct{}{}
			return outcomeDuplicate
		}
		log.Errorw("failed to create recurring bill instance", "error", err)
		return outcomeFailed
	}

	log.Errorw("failed to copy line items to recurring bill instance",
		"bill_id", inst.ID,
		"error", err,
	)
	if cerr := s.compensate(ctx, inst.ID); cerr != nil {
		tally.CompensationFailures++
		s.reportCompensationFailure(ctx, log, inst, cerr)
	}
	return outcomeFailed
}

// compensate removes an instance header left without line items. A header that
// is already gone, for example after a rollback, counts as removed.
func (s *recurringBillService) compensate(ctx context.Context, billID string) error {
	operation := func() error {
		err := s.BillRepo.Delete(ctx, billID)
		if err == nil || ierr.IsNotFound(err) {
			return nil
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = compensationInitialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, s.Config.RecurringBills.CompensationMaxRetries), ctx)
	return backoff.Retry(operation, policy)
}

func (s *recurringBillService) reportCompensationFailure(ctx context.Context, log *logger.Logger, inst *bill.Bill, err error) {
	log.Errorw("failed to remove orphan recurring bill instance",
		"severity", "critical",
		"bill_id", inst.ID,
		"error", err,
	)

	err = ierr.WithError(err).
		WithHint("Generated bill could not be rolled back and has no line items").
		WithReportableDetails(map[string]any{
			"bill_id":         inst.ID,
			"idempotency_key": lo.FromPtr(inst.IdempotencyKey),
		}).
		Mark(ierr.ErrCompensation)
	s.Sentry.CaptureExceptionWithTags(ctx, err, sentry.LevelFatal, map[string]string{
		"bill_id":     inst.ID,
		"template_id": lo.FromPtr(inst.ParentBillID),
		"org_id":      inst.OrgID,
		"severity":    "critical",
	})
}

// sweepOrphans deletes draft instances that were left without line items by an
// earlier run. Failures are logged and never stop generation.
func (s *recurringBillService) sweepOrphans(ctx context.Context, orgID string) int {
	cutoff := s.now().UTC().Add(-s.Config.RecurringBills.OrphanGracePeriod)
	orphans, err := s.BillRepo.ListOrphanInstances(ctx, &types.OrphanInstanceFilter{
		OrgID:         orgID,
		CreatedBefore: cutoff,
	})
	if err != nil {
		s.Logger.Warnw("failed to list orphan recurring bill instances", "error", err)
		return 0
	}

	removed := 0
	for _, orphan := range orphans {
		err := s.BillRepo.Delete(ctx, orphan.ID)
		if err != nil && !ierr.IsNotFound(err) {
			s.Logger.Warnw("failed to remove orphan recurring bill instance",
				"org_id", orphan.OrgID,
				"bill_id", orphan.ID,
				"error", err,
			)
			continue
		}
		removed++
		s.Logger.Infow("removed orphan recurring bill instance",
			"org_id", orphan.OrgID,
			"bill_id", orphan.ID,
			"template_id", lo.FromPtr(orphan.ParentBillID),
			"idempotency_key", lo.FromPtr(orphan.IdempotencyKey),
		)
	}
	return removed
}

func beyond(date *time.Time, to time.Time) bool {
	return date != nil && date.After(to)
}
