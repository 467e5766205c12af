package bill

import (
	"encoding/json"
	"testing"
	"time"

	ierr "github.com/rentwise/rentwise/internal/errors"
	"github.com/rentwise/rentwise/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Recurrence
		wantErr bool
	}{
		{
			name:  "monthly",
			input: `{"frequency":"Monthly","day_of_month":31,"rollover_policy":"last_day","start_date":"2024-01-31","status":"active"}`,
			want:  Monthly{DayOfMonth: 31},
		},
		{
			name:  "quarterly_without_policy_defaults_to_last_day",
			input: `{"frequency":"Quarterly","day_of_month":15,"month":3,"start_date":"2024-01-01","status":"active"}`,
			want:  Quarterly{Month: time.March, DayOfMonth: 15, Rollover: types.RolloverPolicyLastDay},
		},
		{
			name:  "yearly_without_month_defaults_to_january",
			input: `{"frequency":"Yearly","day_of_month":1,"rollover_policy":"skip","start_date":"2024-01-01","status":"paused"}`,
			want:  Yearly{Month: time.January, DayOfMonth: 1, Rollover: types.RolloverPolicySkip},
		},
		{
			name:  "biweekly_display_label",
			input: `{"frequency":"Biweekly","day_of_week":5,"start_date":"2024-01-01","status":"active"}`,
			want:  EveryTwoWeeks{DayOfWeek: 5},
		},
		{
			name:  "weekly_without_day_defaults_to_monday",
			input: `{"frequency":"Weekly","start_date":"2024-01-01"}`,
			want:  Weekly{DayOfWeek: 1},
		},
		{
			name:    "unknown_frequency",
			input:   `{"frequency":"Daily","start_date":"2024-01-01","status":"active"}`,
			wantErr: true,
		},
		{
			name:    "monthly_without_day",
			input:   `{"frequency":"Monthly","start_date":"2024-01-01","status":"active"}`,
			wantErr: true,
		},
		{
			name:    "end_before_start",
			input:   `{"frequency":"Monthly","day_of_month":1,"start_date":"2024-05-01","end_date":"2024-04-01","status":"active"}`,
			wantErr: true,
		},
		{
			name:    "bad_status",
			input:   `{"frequency":"Monthly","day_of_month":1,"start_date":"2024-05-01","status":"archived"}`,
			wantErr: true,
		},
		{
			name:    "bad_start_date",
			input:   `{"frequency":"Monthly","day_of_month":1,"start_date":"05/01/2024","status":"active"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Schedule
			err := json.Unmarshal([]byte(tt.input), &s)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, ierr.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Recurrence)
		})
	}
}

func TestSchedule_UnknownFrequencyIsUnsupported(t *testing.T) {
	var s Schedule
	err := json.Unmarshal([]byte(`{"frequency":"Hourly","start_date":"2024-01-01"}`), &s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFrequency)
}

func TestSchedule_MarshalKeepsBookkeeping(t *testing.T) {
	lastGenerated := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	s := Schedule{
		Recurrence:      Yearly{Month: time.February, DayOfMonth: 29, Rollover: types.RolloverPolicyNextMonth},
		StartDate:       d(2024, time.January, 1),
		EndDate:         dp(2030, time.December, 31),
		Status:          types.ScheduleStatusActive,
		LastGeneratedAt: &lastGenerated,
		NextRunDate:     dp(2025, time.March, 29),
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Yearly", raw["frequency"])
	assert.Equal(t, float64(2), raw["month"])
	assert.Equal(t, float64(29), raw["day_of_month"])
	assert.Equal(t, "next_month", raw["rollover_policy"])
	assert.Equal(t, "2024-01-01", raw["start_date"])
	assert.Equal(t, "2030-12-31", raw["end_date"])
	assert.Equal(t, "2025-03-29", raw["next_run_date"])
	assert.Equal(t, "2024-03-31T00:00:00Z", raw["last_generated_at"])
	assert.NotContains(t, raw, "day_of_week")

	var back Schedule
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s.Recurrence, back.Recurrence)
	assert.True(t, back.LastGeneratedAt.Equal(lastGenerated))
	assert.Equal(t, "2025-03-29", types.FormatDate(*back.NextRunDate))
}

func TestSchedule_MarshalWithoutRecurrenceFails(t *testing.T) {
	_, err := json.Marshal(Schedule{StartDate: d(2024, time.January, 1)})
	assert.Error(t, err)
}

func TestSchedule_Advance(t *testing.T) {
	s := &Schedule{
		Recurrence: Monthly{DayOfMonth: 31},
		StartDate:  d(2024, time.January, 31),
		Status:     types.ScheduleStatusActive,
	}

	require.NoError(t, s.Advance(d(2024, time.January, 31), newYork))
	assert.Equal(t, "2024-01-31", types.FormatDate(*s.LastGeneratedDate()))
	assert.Equal(t, "2024-02-29", types.FormatDate(*s.NextRunDate))

	require.NoError(t, s.Advance(d(2024, time.March, 31), newYork))
	assert.Equal(t, "2024-03-31", types.FormatDate(*s.LastGeneratedDate()))
	assert.Equal(t, "2024-04-30", types.FormatDate(*s.NextRunDate))

	// an older watermark never moves the bookkeeping backwards
	require.NoError(t, s.Advance(d(2024, time.February, 29), newYork))
	assert.Equal(t, "2024-03-31", types.FormatDate(*s.LastGeneratedDate()))
	assert.Equal(t, "2024-04-30", types.FormatDate(*s.NextRunDate))
}

func TestSchedule_AdvancePastEndClearsNextRun(t *testing.T) {
	s := &Schedule{
		Recurrence:  Weekly{DayOfWeek: 1},
		StartDate:   d(2024, time.January, 1),
		EndDate:     dp(2024, time.January, 10),
		Status:      types.ScheduleStatusActive,
		NextRunDate: dp(2024, time.January, 8),
	}

	require.NoError(t, s.Advance(d(2024, time.January, 8), newYork))
	assert.Nil(t, s.NextRunDate)
}

func TestSchedule_StatusHelpers(t *testing.T) {
	s := &Schedule{Status: types.ScheduleStatusPaused, EndDate: dp(2024, time.January, 10)}
	assert.False(t, s.IsActive())
	assert.True(t, s.IsExpired(d(2024, time.January, 11)))
	assert.False(t, s.IsExpired(d(2024, time.January, 10)))

	var missing *Schedule
	assert.False(t, missing.IsActive())
}
