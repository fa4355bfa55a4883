package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func format(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Format(DateLayout)
	}
	return out
}

func TestExpand_WeeklyWithException(t *testing.T) {
	// 2024-01-01 is a Monday.
	got, err := Expand(Recurrence{
		Start:      mustDate(t, "2024-01-01"),
		End:        mustDate(t, "2024-01-14"),
		Pattern:    "weekly",
		Weekdays:   []string{"monday", "Wednesday"},
		Exceptions: []time.Time{mustDate(t, "2024-01-10")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-03", "2024-01-08"}, format(got))
}

func TestExpand_WeeklySevenDays(t *testing.T) {
	got, err := Expand(Recurrence{
		Start:    mustDate(t, "2024-01-01"),
		End:      mustDate(t, "2024-01-07"),
		Pattern:  Weekly,
		Weekdays: []string{"monday", "wednesday"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-03"}, format(got))
}

func TestExpand_DailyInclusive(t *testing.T) {
	got, err := Expand(Recurrence{
		Start:   mustDate(t, "2024-02-27"),
		End:     mustDate(t, "2024-03-01"),
		Pattern: Daily,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01"}, format(got))
}

func TestExpand_SingleDay(t *testing.T) {
	d := mustDate(t, "2024-05-05")
	got, err := Expand(Recurrence{Start: d, End: d, Pattern: Daily})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestExpand_Errors(t *testing.T) {
	start := mustDate(t, "2024-01-01")
	cases := []struct {
		name string
		r    Recurrence
		err  error
	}{
		{"bad pattern", Recurrence{Start: start, End: start, Pattern: "monthly"}, ErrInvalidPattern},
		{"end before start", Recurrence{Start: start, End: start.AddDate(0, 0, -1), Pattern: Daily}, ErrEndBeforeStart},
		{"weekly without days", Recurrence{Start: start, End: start.AddDate(0, 0, 6), Pattern: Weekly, Weekdays: []string{"funday"}}, ErrNoWeekdays},
		{"too long", Recurrence{Start: start, End: start.AddDate(2, 0, 0), Pattern: Daily}, ErrSpanTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Expand(tc.r)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}
