package dateresolve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := New("UTC", "monday")
	require.NoError(t, err)
	return r
}

// ============================================================================
// TS01: Empty Options Is Unbounded
// ============================================================================

func TestResolve_EmptyOptions_Unbounded(t *testing.T) {
	r := newResolver(t)
	rng, err := r.Resolve(Options{})
	require.NoError(t, err)
	assert.Nil(t, rng.Start)
	assert.Nil(t, rng.End)
}

// ============================================================================
// TS02: RFC3339 Bounds
// ============================================================================

func TestResolve_RFC3339From_ParsesExactInstant(t *testing.T) {
	r := newResolver(t)
	rng, err := r.Resolve(Options{From: "2026-03-01T10:00:00Z"})
	require.NoError(t, err)
	require.NotNil(t, rng.Start)
	assert.True(t, rng.Start.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
}

// ============================================================================
// TS03: Bare Date Resolves To Start/End Of Day
// ============================================================================

func TestResolve_BareDateFrom_ResolvesToStartOfDay(t *testing.T) {
	r := newResolver(t)
	rng, err := r.Resolve(Options{From: "2026-03-01"})
	require.NoError(t, err)
	require.NotNil(t, rng.Start)
	assert.True(t, rng.Start.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestResolve_BareDateTo_ResolvesToEndOfDay(t *testing.T) {
	r := newResolver(t)
	rng, err := r.Resolve(Options{To: "2026-03-01"})
	require.NoError(t, err)
	require.NotNil(t, rng.End)
	assert.True(t, rng.End.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
}

// ============================================================================
// TS04: Duration Shorthand
// ============================================================================

func TestResolve_DurationShorthand_SubtractsFromNow(t *testing.T) {
	r := newResolver(t)
	before := time.Now().Add(-7 * 24 * time.Hour)
	rng, err := r.Resolve(Options{From: "7d"})
	require.NoError(t, err)
	require.NotNil(t, rng.Start)
	assert.WithinDuration(t, before, *rng.Start, 5*time.Second)
}

// ============================================================================
// TS05: Closed-Set Relative Periods
// ============================================================================

func TestResolve_Today_IsHalfOpenDayRange(t *testing.T) {
	r := newResolver(t)
	rng, err := r.Resolve(Options{Date: "today"})
	require.NoError(t, err)
	require.NotNil(t, rng.Start)
	require.NotNil(t, rng.End)
	assert.Equal(t, 24*time.Hour, rng.End.Sub(*rng.Start))
	assert.Equal(t, 0, rng.Start.Hour())
}

func TestResolve_Yesterday_IsOneDayBeforeToday(t *testing.T) {
	r := newResolver(t)
	today, err := r.Resolve(Options{Date: "today"})
	require.NoError(t, err)
	yesterday, err := r.Resolve(Options{Date: "yesterday"})
	require.NoError(t, err)

	assert.True(t, yesterday.End.Equal(*today.Start))
}

func TestResolve_ThisWeek_StartsOnMonday(t *testing.T) {
	r := newResolver(t)
	rng, err := r.Resolve(Options{Date: "this-week"})
	require.NoError(t, err)
	require.NotNil(t, rng.Start)
	assert.Equal(t, time.Monday, rng.Start.Weekday())
	assert.Equal(t, 0, rng.Start.Hour())
}

func TestResolve_LastWeek_IsSevenDaysBeforeThisWeek(t *testing.T) {
	r := newResolver(t)
	thisWeek, err := r.Resolve(Options{Date: "this-week"})
	require.NoError(t, err)
	lastWeek, err := r.Resolve(Options{Date: "last-week"})
	require.NoError(t, err)

	assert.True(t, lastWeek.End.Equal(*thisWeek.Start))
	assert.Equal(t, 7*24*time.Hour, lastWeek.End.Sub(*lastWeek.Start))
}

func TestResolve_ThisMonth_StartsOnTheFirst(t *testing.T) {
	r := newResolver(t)
	rng, err := r.Resolve(Options{Date: "this-month"})
	require.NoError(t, err)
	require.NotNil(t, rng.Start)
	assert.Equal(t, 1, rng.Start.Day())
}

func TestResolve_LastMonth_IsCalendarAware(t *testing.T) {
	r := newResolver(t)
	thisMonth, err := r.Resolve(Options{Date: "this-month"})
	require.NoError(t, err)
	lastMonth, err := r.Resolve(Options{Date: "last-month"})
	require.NoError(t, err)

	assert.True(t, lastMonth.End.Equal(*thisMonth.Start))
}

// ============================================================================
// TS06: Date Overrides From/To
// ============================================================================

func TestResolve_DateOverridesFromTo(t *testing.T) {
	r := newResolver(t)
	rng, err := r.Resolve(Options{From: "2020-01-01", To: "2020-02-01", Date: "today"})
	require.NoError(t, err)

	today, err := r.Resolve(Options{Date: "today"})
	require.NoError(t, err)
	assert.True(t, rng.Start.Equal(*today.Start))
}

// ============================================================================
// TS07: Invalid Input
// ============================================================================

func TestResolve_UnrecognizedDateValue_ReturnsError(t *testing.T) {
	r := newResolver(t)
	_, err := r.Resolve(Options{Date: "next-sprint"})
	assert.Error(t, err)
}

func TestResolve_UnrecognizedFromValue_ReturnsError(t *testing.T) {
	r := newResolver(t)
	_, err := r.Resolve(Options{From: "not-a-date"})
	assert.Error(t, err)
}

// ============================================================================
// TS08: Week Start Configuration
// ============================================================================

func TestNew_SundayWeekStart_ShiftsBoundary(t *testing.T) {
	r, err := New("UTC", "sunday")
	require.NoError(t, err)

	rng, err := r.Resolve(Options{Date: "this-week"})
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, rng.Start.Weekday())
}

// ============================================================================
// TS09: Invalid Timezone
// ============================================================================

func TestNew_InvalidTimezone_ReturnsError(t *testing.T) {
	_, err := New("Not/AZone", "monday")
	assert.Error(t, err)
}
