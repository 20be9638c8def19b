package recur_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcal/internal/model"
	"webcal/internal/recur"
)

func seed(start, end time.Time) model.EventInstance {
	return model.EventInstance{
		Title:       "Standup",
		Description: "daily sync",
		Color:       "#3b82f6",
		Start:       start,
		End:         end,
	}
}

func TestExpandNone(t *testing.T) {
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	got := recur.Expand(recur.RuleNone, seed(start, end))

	require.Len(t, got, 1)
	assert.Empty(t, got[0].SeriesID)
	assert.NotEmpty(t, got[0].ID)
	assert.True(t, got[0].Start.Equal(start))
	assert.True(t, got[0].End.Equal(end))
}

func TestExpandDaily(t *testing.T) {
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	got := recur.Expand(recur.RuleDaily, seed(start, end))

	require.Len(t, got, 365)
	seen := make(map[string]bool)
	for i, inst := range got {
		assert.True(t, inst.Start.Equal(start.AddDate(0, 0, i)), "instance %d start", i)
		assert.Equal(t, 90*time.Minute, inst.Duration(), "instance %d duration", i)
		assert.Equal(t, got[0].SeriesID, inst.SeriesID, "instance %d series", i)
		assert.False(t, seen[inst.ID], "instance %d has duplicate ID", i)
		seen[inst.ID] = true
	}
	assert.NotEmpty(t, got[0].SeriesID)
}

func TestExpandWeekly(t *testing.T) {
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	got := recur.Expand(recur.RuleWeekly, seed(start, end))

	require.Len(t, got, 52)
	for i, inst := range got {
		assert.True(t, inst.Start.Equal(start.AddDate(0, 0, i*7)), "instance %d start", i)
	}
}

func TestExpandMonthlyClampsShortMonths(t *testing.T) {
	// Jan 31 -> Feb must clamp to the last of February, not roll into March.
	start := time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 11, 0, 0, 0, time.UTC)

	got := recur.Expand(recur.RuleMonthly, seed(start, end))
	require.Len(t, got, 12)

	wantDays := map[time.Month]int{
		time.January:   31,
		time.February:  28, // 2025 is not a leap year
		time.March:     31,
		time.April:     30,
		time.May:       31,
		time.June:      30,
		time.July:      31,
		time.August:    31,
		time.September: 30,
		time.October:   31,
		time.November:  30,
		time.December:  31,
	}
	for i, inst := range got {
		wantMonth := time.Month(int(time.January) + i)
		assert.Equal(t, wantMonth, inst.Start.Month(), "instance %d month", i)
		assert.Equal(t, wantDays[wantMonth], inst.Start.Day(), "instance %d day", i)
		assert.Equal(t, 10, inst.Start.Hour(), "instance %d hour", i)
		assert.Equal(t, time.Hour, inst.Duration(), "instance %d duration", i)
	}
}

func TestExpandMonthlyLeapYearFebruary(t *testing.T) {
	start := time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	got := recur.ExpandN(recur.RuleMonthly, seed(start, end), 2)
	require.Len(t, got, 2)
	assert.Equal(t, time.February, got[1].Start.Month())
	assert.Equal(t, 29, got[1].Start.Day())
}

func TestMaxIterations(t *testing.T) {
	assert.Equal(t, 1, recur.MaxIterations(recur.RuleNone))
	assert.Equal(t, 365, recur.MaxIterations(recur.RuleDaily))
	assert.Equal(t, 52, recur.MaxIterations(recur.RuleWeekly))
	assert.Equal(t, 12, recur.MaxIterations(recur.RuleMonthly))
}

func TestExpandNIgnoresCapForNone(t *testing.T) {
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	got := recur.ExpandN(recur.RuleNone, seed(start, start.Add(time.Hour)), 10)
	assert.Len(t, got, 1)
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		in      string
		want    recur.Rule
		wantErr bool
	}{
		{in: "none", want: recur.RuleNone},
		{in: "", want: recur.RuleNone},
		{in: "daily", want: recur.RuleDaily},
		{in: "weekly", want: recur.RuleWeekly},
		{in: "monthly", want: recur.RuleMonthly},
		{in: "yearly", wantErr: true},
	}
	for _, tt := range tests {
		got, err := recur.ParseRule(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, recur.ErrUnknownRule, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestRange(t *testing.T) {
	base := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)

	t.Run("normal range", func(t *testing.T) {
		start, end, err := recur.Range(base, "12:00", "13:30")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, 5, 20, 13, 30, 0, 0, time.UTC), end)
	})

	t.Run("end before start rolls to next day", func(t *testing.T) {
		start, end, err := recur.Range(base, "22:00", "01:00")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 5, 20, 22, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, 5, 21, 1, 0, 0, 0, time.UTC), end)
	})

	t.Run("end equal to start rolls to next day", func(t *testing.T) {
		start, end, err := recur.Range(base, "09:00", "09:00")
		require.NoError(t, err)
		assert.Equal(t, start.AddDate(0, 0, 1), end)
	})

	t.Run("bad time of day", func(t *testing.T) {
		_, _, err := recur.Range(base, "25:00", "09:00")
		assert.ErrorIs(t, err, recur.ErrBadTimeOfDay)
	})
}
