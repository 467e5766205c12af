package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/rentwise/rentwise/internal/domain/bill"
	"github.com/rentwise/rentwise/internal/domain/organization"
	ierr "github.com/rentwise/rentwise/internal/errors"
	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/testutil"
	"github.com/rentwise/rentwise/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type RecurringBillServiceSuite struct {
	testutil.BaseServiceTestSuite
	service   *recurringBillService
	billRepo  *testutil.InMemoryBillStore
	approvals *testutil.InMemoryApprovalStore
	orgs      *testutil.InMemoryOrganizationStore
	clock     time.Time
}

func TestRecurringBillService(t *testing.T) {
	suite.Run(t, new(RecurringBillServiceSuite))
}

func (s *RecurringBillServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.clock = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	s.billRepo = s.GetStores().BillRepo.(*testutil.InMemoryBillStore)
	s.approvals = s.GetStores().ApprovalRepo.(*testutil.InMemoryApprovalStore)
	s.orgs = s.GetStores().OrganizationRepo.(*testutil.InMemoryOrganizationStore)

	params := ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		Cache:            s.GetCache(),
		Sentry:           s.GetSentry(),
		BillRepo:         s.billRepo,
		ApprovalRepo:     s.approvals,
		OrganizationRepo: s.orgs,
	}
	timezones, err := NewTimezoneResolver(params)
	s.Require().NoError(err)

	s.service = NewRecurringBillService(params, timezones).(*recurringBillService)
	s.service.now = func() time.Time { return s.clock }
}

func (s *RecurringBillServiceSuite) createOrg(id, timezone string) {
	s.Require().NoError(s.orgs.Create(s.GetContext(), &organization.Organization{
		ID:        id,
		Name:      "Org " + id,
		Timezone:  timezone,
		CreatedAt: s.GetNow(),
		UpdatedAt: s.GetNow(),
	}))
}

// createTemplate stores a template bill due ten days after its date with
// lineCount debit lines
func (s *RecurringBillServiceSuite) createTemplate(orgID string, sched *bill.Schedule, lineCount int) *bill.Bill {
	ctx := s.GetContext()
	base := types.GetDefaultBaseModel(ctx)
	base.OrgID = orgID

	tmpl := &bill.Bill{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILL),
		TransactionType: types.TransactionTypeBill,
		Date:            sched.StartDate,
		DueDate:         lo.ToPtr(sched.StartDate.AddDate(0, 0, 10)),
		VendorID:        lo.ToPtr("vendor_landlord"),
		ReferenceNumber: lo.ToPtr("RENT"),
		Memo:            lo.ToPtr("Rent"),
		Status:          types.BillStatusOpen,
		TotalAmount:     decimal.NewFromInt(int64(1000 * lineCount)),
		IsRecurring:     true,
		BaseModel:       base,
	}
	s.Require().NoError(tmpl.SetSchedule(sched))

	lines := make([]*bill.LineItem, 0, lineCount)
	for i := 1; i <= lineCount; i++ {
		lines = append(lines, &bill.LineItem{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILL_LINE_ITEM),
			BillID:      tmpl.ID,
			LineOrder:   i,
			GLAccountID: fmt.Sprintf("gl_%d", i),
			Amount:      decimal.NewFromInt(1000),
			PostingType: types.PostingTypeDebit,
			PropertyID:  lo.ToPtr("prop_1"),
			Date:        sched.StartDate,
			BaseModel:   base,
		})
	}
	s.billRepo.Put(ctx, tmpl, lines...)
	return tmpl
}

func (s *RecurringBillServiceSuite) monthly31() *bill.Schedule {
	return &bill.Schedule{
		Recurrence: bill.Monthly{DayOfMonth: 31},
		StartDate:  types.Date(2024, 1, 1),
		Status:     types.ScheduleStatusActive,
	}
}

func (s *RecurringBillServiceSuite) instanceDates(templateID string) []string {
	return lo.Map(s.billRepo.Instances(s.GetContext(), templateID), func(b *bill.Bill, _ int) string {
		return types.FormatDate(*b.InstanceDate)
	})
}

func (s *RecurringBillServiceSuite) storedSchedule(templateID string) *bill.Schedule {
	tmpl, err := s.billRepo.Get(s.GetContext(), templateID)
	s.Require().NoError(err)
	sched, err := tmpl.Schedule()
	s.Require().NoError(err)
	return sched
}

func (s *RecurringBillServiceSuite) TestMonthlyGeneratesInstancesWithinHorizon() {
	ctx := s.GetContext()
	tmpl := s.createTemplate(testutil.DefaultOrgID, s.monthly31(), 2)

	result, err := s.service.GenerateRecurringBills(ctx, 90, "")
	s.Require().NoError(err)
	s.Equal(3, result.Generated)
	s.Equal(0, result.Skipped)
	s.Equal(0, result.Duplicates)
	s.Equal(0, result.Errors)
	s.Equal([]string{testutil.DefaultOrgID}, result.OrgIDs)

	s.Equal([]string{"2024-01-31", "2024-02-29", "2024-03-31"}, s.instanceDates(tmpl.ID))

	instances := s.billRepo.Instances(ctx, tmpl.ID)
	for i, inst := range instances {
		s.Equal(types.BillStatusDraft, inst.Status)
		s.False(inst.IsRecurring)
		s.Equal(tmpl.ID, lo.FromPtr(inst.ParentBillID))
		s.Equal(testutil.DefaultOrgID, inst.OrgID)
		s.True(tmpl.TotalAmount.Equal(inst.TotalAmount))
		s.Equal(fmt.Sprintf("bill_recur:%s:%s", tmpl.ID, types.FormatDate(inst.Date)), lo.FromPtr(inst.IdempotencyKey))
		s.Equal(fmt.Sprintf("RENT-%d", i+1), lo.FromPtr(inst.ReferenceNumber))
		s.Equal(inst.Date.AddDate(0, 0, 10), lo.FromPtr(inst.DueDate))

		meta, err := inst.Instance()
		s.Require().NoError(err)
		s.Equal(i+1, meta.Sequence)
		s.Equal(types.FormatDate(inst.Date), meta.InstanceDate)

		lines, err := s.billRepo.GetLineItems(ctx, inst.ID)
		s.Require().NoError(err)
		s.Require().Len(lines, 2)
		for _, line := range lines {
			s.Equal(inst.Date, line.Date)
			s.Equal("prop_1", lo.FromPtr(line.PropertyID))
		}
	}
	s.Equal(2+3*2, s.billRepo.CountLineItems(ctx))
	s.Equal(3, s.GetDB().TxCount())

	sched := s.storedSchedule(tmpl.ID)
	s.Equal(types.Date(2024, 3, 31), lo.FromPtr(sched.LastGeneratedDate()))
	s.Equal(types.Date(2024, 4, 30), lo.FromPtr(sched.NextRunDate))
}

func (s *RecurringBillServiceSuite) TestSecondRunOnlyFindsDuplicates() {
	ctx := s.GetContext()
	tmpl := s.createTemplate(testutil.DefaultOrgID, s.monthly31(), 1)

	first, err := s.service.GenerateRecurringBills(ctx, 90, "")
	s.Require().NoError(err)

	// next_run_date now lies past the window while last_generated_at is inside it
	stored := s.storedSchedule(tmpl.ID)
	s.Equal(types.Date(2024, 3, 31), lo.FromPtr(stored.LastGeneratedDate()))
	s.Equal(types.Date(2024, 4, 30), lo.FromPtr(stored.NextRunDate))

	second, err := s.service.GenerateRecurringBills(ctx, 90, "")
	s.Require().NoError(err)

	s.Equal(3, first.Generated)
	s.Equal(0, second.Generated)
	s.Equal(first.Generated, second.Duplicates)
	s.Equal(0, second.Errors)
	s.Len(s.billRepo.Instances(ctx, tmpl.ID), 3)

	keys := lo.Map(s.billRepo.Instances(ctx, tmpl.ID), func(b *bill.Bill, _ int) string {
		return lo.FromPtr(b.IdempotencyKey)
	})
	s.Len(lo.Uniq(keys), 3)
}

func (s *RecurringBillServiceSuite) TestFrequencies() {
	tests := []struct {
		name     string
		schedule *bill.Schedule
		horizon  int
		want     []string
	}{
		{
			name: "weekly on monday",
			schedule: &bill.Schedule{
				Recurrence: bill.Weekly{DayOfWeek: 1},
				StartDate:  types.Date(2024, 1, 1),
				Status:     types.ScheduleStatusActive,
			},
			horizon: 20,
			want:    []string{"2024-01-01", "2024-01-08", "2024-01-15"},
		},
		{
			name: "every two weeks on friday",
			schedule: &bill.Schedule{
				Recurrence: bill.EveryTwoWeeks{DayOfWeek: 5},
				StartDate:  types.Date(2024, 1, 1),
				Status:     types.ScheduleStatusActive,
			},
			horizon: 30,
			want:    []string{"2024-01-05", "2024-01-19"},
		},
		{
			name: "quarterly anchored on march 15",
			schedule: &bill.Schedule{
				Recurrence: bill.Quarterly{Month: time.March, DayOfMonth: 15, Rollover: types.RolloverPolicyLastDay},
				StartDate:  types.Date(2024, 1, 1),
				Status:     types.ScheduleStatusActive,
			},
			horizon: 365,
			want:    []string{"2024-03-15", "2024-06-15", "2024-09-15", "2024-12-15"},
		},
		{
			name: "yearly leap day clamps",
			schedule: &bill.Schedule{
				Recurrence: bill.Yearly{Month: time.February, DayOfMonth: 30, Rollover: types.RolloverPolicyLastDay},
				StartDate:  types.Date(2024, 1, 1),
				Status:     types.ScheduleStatusActive,
			},
			horizon: 425,
			want:    []string{"2024-02-29", "2025-02-28"},
		},
		{
			name: "end date bounds the window",
			schedule: &bill.Schedule{
				Recurrence: bill.Monthly{DayOfMonth: 31},
				StartDate:  types.Date(2024, 1, 1),
				EndDate:    lo.ToPtr(types.Date(2024, 2, 29)),
				Status:     types.ScheduleStatusActive,
			},
			horizon: 90,
			want:    []string{"2024-01-31", "2024-02-29"},
		},
		{
			name: "start date after horizon",
			schedule: &bill.Schedule{
				Recurrence: bill.Monthly{DayOfMonth: 1},
				StartDate:  types.Date(2024, 6, 1),
				Status:     types.ScheduleStatusActive,
			},
			horizon: 60,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.billRepo.Clear()
			tmpl := s.createTemplate(testutil.DefaultOrgID, tt.schedule, 1)

			result, err := s.service.GenerateRecurringBills(s.GetContext(), tt.horizon, "")
			s.Require().NoError(err)
			s.Equal(len(tt.want), result.Generated)
			s.Equal(tt.want, s.instanceDates(tmpl.ID))
		})
	}
}

func (s *RecurringBillServiceSuite) TestOrganizationTimezoneDecidesToday() {
	ctx := s.GetContext()
	s.createOrg("org_kiribati", "Pacific/Kiritimati")
	s.createOrg("org_utc", "UTC")

	weekly := func() *bill.Schedule {
		return &bill.Schedule{
			Recurrence: bill.Weekly{DayOfWeek: 1},
			StartDate:  types.Date(2024, 1, 1),
			Status:     types.ScheduleStatusActive,
		}
	}
	ahead := s.createTemplate("org_kiribati", weekly(), 1)
	utc := s.createTemplate("org_utc", weekly(), 1)

	// 12:00 UTC on Jan 1 is already Jan 2 in Kiritimati
	result, err := s.service.GenerateRecurringBills(ctx, 7, "")
	s.Require().NoError(err)
	s.Equal(3, result.Generated)
	s.Equal([]string{"org_kiribati", "org_utc"}, result.OrgIDs)

	s.Equal([]string{"2024-01-08"}, s.instanceDates(ahead.ID))
	s.Equal([]string{"2024-01-01", "2024-01-08"}, s.instanceDates(utc.ID))
}

func (s *RecurringBillServiceSuite) TestOrgFilter() {
	ctx := s.GetContext()
	a := s.createTemplate("org_a", s.monthly31(), 1)
	b := s.createTemplate("org_b", s.monthly31(), 1)

	result, err := s.service.GenerateRecurringBills(ctx, 31, "org_b")
	s.Require().NoError(err)
	s.Equal(1, result.Generated)
	s.Equal([]string{"org_b"}, result.OrgIDs)
	s.Empty(s.billRepo.Instances(ctx, a.ID))
	s.Len(s.billRepo.Instances(ctx, b.ID), 1)
}

func (s *RecurringBillServiceSuite) TestGuardsSkipTemplates() {
	ctx := s.GetContext()

	paused := s.monthly31()
	paused.Status = types.ScheduleStatusPaused
	pausedTmpl := s.createTemplate(testutil.DefaultOrgID, paused, 1)

	ended := s.monthly31()
	ended.Status = types.ScheduleStatusEnded
	s.createTemplate(testutil.DefaultOrgID, ended, 1)

	expired := s.monthly31()
	expired.StartDate = types.Date(2023, 1, 1)
	expired.EndDate = lo.ToPtr(types.Date(2023, 12, 31))
	s.createTemplate(testutil.DefaultOrgID, expired, 1)

	approved := s.createTemplate(testutil.DefaultOrgID, s.monthly31(), 1)
	s.approvals.SetApprovalState(ctx, approved.ID, types.ApprovalStateApproved)

	pending := s.createTemplate(testutil.DefaultOrgID, s.monthly31(), 1)
	s.approvals.SetApprovalState(ctx, pending.ID, types.ApprovalStatePendingApproval)

	voided := s.createTemplate(testutil.DefaultOrgID, s.monthly31(), 1)
	voided.Status = types.BillStatusVoid
	s.billRepo.Put(ctx, voided)

	s.createTemplate(testutil.DefaultOrgID, s.monthly31(), 0)

	unreadable := s.createTemplate(testutil.DefaultOrgID, s.monthly31(), 1)
	unreadable.Recurring = bill.JSONBRecurringSchedule(`{"schedule":{"frequency":"Daily","start_date":"2024-01-01"}}`)
	s.billRepo.Put(ctx, unreadable)

	result, err := s.service.GenerateRecurringBills(ctx, 31, "")
	s.Require().NoError(err)

	// only the pending template generates
	s.Equal(1, result.Generated)
	s.Equal(7, result.Skipped)
	s.Equal(0, result.Errors)
	s.Empty(s.billRepo.Instances(ctx, approved.ID))
	s.Len(s.billRepo.Instances(ctx, pending.ID), 1)

	sched := s.storedSchedule(pausedTmpl.ID)
	s.Nil(sched.LastGeneratedAt)
	s.Nil(sched.NextRunDate)
}

func (s *RecurringBillServiceSuite) TestExistingChildrenAreDuplicates() {
	ctx := s.GetContext()
	tmpl := s.createTemplate(testutil.DefaultOrgID, s.monthly31(), 1)

	// a child linked by parent only, without the generated key
	legacy := &bill.Bill{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILL),
		TransactionType: types.TransactionTypeBill,
		Date:            types.Date(2024, 2, 29),
		Status:          types.BillStatusOpen,
		ParentBillID:    lo.ToPtr(tmpl.ID),
		InstanceDate:    lo.ToPtr(types.Date(2024, 2, 29)),
		BaseModel:       tmpl.BaseModel,
	}
	s.billRepo.Put(ctx, legacy)

	result, err := s.service.GenerateRecurringBills(ctx, 90, "")
	s.Require().NoError(err)
	s.Equal(2, result.Generated)
	s.Equal(1, result.Duplicates)

	refs := lo.FilterMap(s.billRepo.Instances(ctx, tmpl.ID), func(b *bill.Bill, _ int) (string, bool) {
		return lo.FromPtr(b.ReferenceNumber), b.ID != legacy.ID
	})
	s.Equal([]string{"RENT-2", "RENT-3"}, refs)
}

func (s *RecurringBillServiceSuite) TestConcurrentInsertCountsAsDuplicate() {
	ctx := s.GetContext()
	tmpl := s.createTemplate(testutil.DefaultOrgID, s.monthly31(), 1)
	s.billRepo.InjectFault(testutil.OpCreate, testutil.Fault{
		Err:   bill.NewDuplicateInstanceError("bill_recur:" + tmpl.ID + ":2024-01-31"),
		Times: 1,
	})

	result, err := s.service.GenerateRecurringBills(ctx, 90, "")
	s.Require().NoError(err)
	s.Equal(2, result.Generated)
	s.Equal(1, result.Duplicates)
	s.Equal(0, result.Errors)

	sched := s.storedSchedule(tmpl.ID)
	s.Equal(types.Date(2024, 3, 31), lo.FromPtr(sched.LastGeneratedDate()))
}

func (s *RecurringBillServiceSuite) TestLineCopyFailureRemovesHeader() {
	ctx := s.GetContext()
	tmpl := s.createTemplate(testutil.DefaultOrgID, s.monthly31(), 2)
	s.billRepo.InjectFault(testutil.OpCreateLineItems, testutil.Fault{Times: 1, Match: tmpl.ID})

	result, err := s.service.GenerateRecurringBills(ctx, 90, "")
	s.Require().NoError(err)
	s.Equal(2, result.Generated)
	s.Equal(1, result.Errors)
	s.Equal(0, result.CompensationFailures)
	s.Equal([]string{"2024-02-29", "2024-03-31"}, s.instanceDates(tmpl.ID))
	s.Equal(1, s.billRepo.Calls(testutil.OpDelete))

	// the failed first occurrence holds the watermark back
	sched := s.storedSchedule(tmpl.ID)
	s.Nil(sched.LastGeneratedAt)

	retry, err := s.service.GenerateRecurringBills(ctx, 90, "")
	s.Require().NoError(err)
	s.Equal(1, retry.Generated)
	s.Equal(2, retry.Duplicates)
	s.Equal(0, retry.Errors)
	s.Equal([]string{"2024-01-31", "2024-02-29", "2024-03-31"}, s.instanceDates(tmpl.ID))
}

func (s *RecurringBillServiceSuite) TestCompensationFailureIsCountedSeparately() {
	ctx := s.GetContext()
	tmpl := s.createTemplate(testutil.DefaultOrgID, s.monthly31(), 1)
	s.billRepo.InjectFault(testutil.OpCreateLineItems, testutil.Fault{Times: 1, Match: tmpl.ID})
	s.billRepo.InjectFault(testutil.OpDelete, testutil.Fault{})

	result, err := s.service.GenerateRecurringBills(ctx, 90, "")
	s.Require().NoError(err)
	s.Equal(2, result.Generated)
	s.Equal(1, result.Errors)
	s.Equal(1, result.CompensationFailures)

	// first attempt plus the configured retries
	retries := int(s.GetConfig().RecurringBills.CompensationMaxRetries)
	s.Equal(1+retries, s.billRepo.Calls(testutil.OpDelete))
	s.Len(s.billRepo.Instances(ctx, tmpl.ID), 3)
}

func (s *RecurringBillServiceSuite) TestPersistenceErrorStopsWatermark() {
	ctx := s.GetContext()
	tmpl := s.createTemplate(testutil.DefaultOrgID, s.monthly31(), 1)
	s.billRepo.InjectFault(testutil.OpGetByIdempotencyKey, testutil.Fault{
		Match: "bill_recur:" + tmpl.ID + ":2024-02-29",
	})

	result, err := s.service.GenerateRecurringBills(ctx, 90, "")
	s.Require().NoError(err)
	s.Equal(2, result.Generated)
	s.Equal(1, result.Errors)
	s.Equal([]string{"2024-01-31", "2024-03-31"}, s.instanceDates(tmpl.ID))

	sched := s.storedSchedule(tmpl.ID)
	s.Equal(types.Date(2024, 1, 31), lo.FromPtr(sched.LastGeneratedDate()))
	s.Equal(types.Date(2024, 2, 29), lo.FromPtr(sched.NextRunDate))
}

func (s *RecurringBillServiceSuite) TestPanicIsContainedToTemplate() {
	ctx := s.GetContext()
	broken := s.createTemplate("org_a", s.monthly31(), 1)
	healthy := s.createTemplate("org_b", s.monthly31(), 1)
	s.billRepo.InjectFault(testutil.OpGetLineItems, testutil.Fault{Panic: true, Match: broken.ID})

	core, logs := observer.New(zapcore.DebugLevel)
	s.service.Logger = &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	result, err := s.service.GenerateRecurringBills(ctx, 31, "")
	s.Require().NoError(err)
	s.Equal(1, result.Errors)
	s.Equal(1, result.Generated)
	s.Empty(s.billRepo.Instances(ctx, broken.ID))
	s.Len(s.billRepo.Instances(ctx, healthy.ID), 1)

	entries := logs.FilterMessage("panic while generating recurring bills").All()
	s.Require().Len(entries, 1)
	orgFields := lo.Filter(entries[0].Context, func(f zapcore.Field, _ int) bool {
		return f.Key == "org_id"
	})
	s.Require().Len(orgFields, 1)
	s.Equal("org_a", orgFields[0].String)
}

func (s *RecurringBillServiceSuite) TestOrphanSweepRunsBeforeGeneration() {
	ctx := s.GetContext()
	tmpl := s.createTemplate(testutil.DefaultOrgID, s.monthly31(), 1)

	orphanAt := func(date time.Time, createdAt time.Time) *bill.Bill {
		base := tmpl.BaseModel
		base.CreatedAt = createdAt
		return &bill.Bill{
			ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILL),
			TransactionType: types.TransactionTypeBill,
			Date:            date,
			Status:          types.BillStatusDraft,
			IdempotencyKey:  lo.ToPtr(s.service.keys.InstanceKey(tmpl.ID, date)),
			ParentBillID:    lo.ToPtr(tmpl.ID),
			InstanceDate:    lo.ToPtr(date),
			BaseModel:       base,
		}
	}
	stale := orphanAt(types.Date(2024, 1, 31), s.clock.Add(-time.Hour))
	fresh := orphanAt(types.Date(2024, 2, 29), s.clock.Add(-time.Minute))
	s.billRepo.Put(ctx, stale)
	s.billRepo.Put(ctx, fresh)

	result, err := s.service.GenerateRecurringBills(ctx, 90, "")
	s.Require().NoError(err)
	s.Equal(1, result.OrphansRemoved)
	s.Equal(2, result.Generated)
	s.Equal(1, result.Duplicates)

	_, err = s.billRepo.Get(ctx, stale.ID)
	s.True(ierr.IsNotFound(err))
	_, err = s.billRepo.Get(ctx, fresh.ID)
	s.NoError(err)
	s.Equal([]string{"2024-01-31", "2024-02-29", "2024-03-31"}, s.instanceDates(tmpl.ID))
}

func (s *RecurringBillServiceSuite) TestAnchorBeyondWindowIsHonored() {
	ctx := s.GetContext()
	sched := s.monthly31()
	sched.LastGeneratedAt = lo.ToPtr(types.Date(2024, 6, 30))
	sched.NextRunDate = lo.ToPtr(types.Date(2024, 7, 31))
	tmpl := s.createTemplate(testutil.DefaultOrgID, sched, 1)

	result, err := s.service.GenerateRecurringBills(ctx, 90, "")
	s.Require().NoError(err)
	s.Equal(0, result.Generated)
	s.Empty(s.billRepo.Instances(ctx, tmpl.ID))

	stored := s.storedSchedule(tmpl.ID)
	s.Equal(types.Date(2024, 6, 30), lo.FromPtr(stored.LastGeneratedDate()))
	s.Equal(0, s.billRepo.Calls(testutil.OpUpdateSchedule))
}

func (s *RecurringBillServiceSuite) TestNextRunBeyondWindowWithoutHistoryIsHonored() {
	ctx := s.GetContext()
	sched := s.monthly31()
	sched.NextRunDate = lo.ToPtr(types.Date(2024, 7, 31))
	tmpl := s.createTemplate(testutil.DefaultOrgID, sched, 1)

	result, err := s.service.GenerateRecurringBills(ctx, 90, "")
	s.Require().NoError(err)
	s.Equal(0, result.Generated)
	s.Equal(0, result.Duplicates)
	s.Empty(s.billRepo.Instances(ctx, tmpl.ID))
	s.Equal(0, s.billRepo.Calls(testutil.OpUpdateSchedule))
}

func (s *RecurringBillServiceSuite) TestRepeatedRunsAfterPartialHistory() {
	ctx := s.GetContext()
	tmpl := s.createTemplate(testutil.DefaultOrgID, s.monthly31(), 1)

	_, err := s.service.GenerateRecurringBills(ctx, 31, "")
	s.Require().NoError(err)
	s.Equal([]string{"2024-01-31"}, s.instanceDates(tmpl.ID))

	result, err := s.service.GenerateRecurringBills(ctx, 90, "")
	s.Require().NoError(err)
	s.Equal(2, result.Generated)
	s.Equal(1, result.Duplicates)

	result, err = s.service.GenerateRecurringBills(ctx, 90, "")
	s.Require().NoError(err)
	s.Equal(0, result.Generated)
	s.Equal(3, result.Duplicates)
	s.Equal([]string{"2024-01-31", "2024-02-29", "2024-03-31"}, s.instanceDates(tmpl.ID))

	// duplicates do not consume sequence numbers
	refs := lo.Map(s.billRepo.Instances(ctx, tmpl.ID), func(b *bill.Bill, _ int) string {
		return lo.FromPtr(b.ReferenceNumber)
	})
	s.Equal([]string{"RENT-1", "RENT-2", "RENT-3"}, refs)
}

func (s *RecurringBillServiceSuite) TestDefaultHorizon() {
	ctx := s.GetContext()
	tmpl := s.createTemplate(testutil.DefaultOrgID, s.monthly31(), 1)

	result, err := s.service.GenerateRecurringBills(ctx, 0, "")
	s.Require().NoError(err)
	s.Equal(60, s.GetConfig().RecurringBills.HorizonDays)
	s.Equal([]string{"2024-01-31", "2024-02-29"}, s.instanceDates(tmpl.ID))
	s.Equal(2, result.Generated)
}

func (s *RecurringBillServiceSuite) TestListFailureAbortsRun() {
	s.billRepo.InjectFault(testutil.OpListRecurringTemplates, testutil.Fault{})

	result, err := s.service.GenerateRecurringBills(s.GetContext(), 60, "")
	s.Error(err)
	s.Nil(result)
}
