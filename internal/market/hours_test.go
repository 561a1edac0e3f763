package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHours(t *testing.T) *Hours {
	t.Helper()
	h, err := NewHours()
	require.NoError(t, err)
	return h
}

// 2024-03-05 is a Tuesday; Eastern is UTC-5 that week.
func eastern(t *testing.T, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return time.Date(2024, 3, 5, hour, min, 0, 0, loc)
}

func TestStatusAt_Sessions(t *testing.T) {
	h := mustHours(t)

	assert.Equal(t, StatusClosed, h.StatusAt(eastern(t, 3, 0)))
	assert.Equal(t, StatusPreMarket, h.StatusAt(eastern(t, 5, 0)))
	assert.Equal(t, StatusPreMarket, h.StatusAt(eastern(t, 9, 29)))
	assert.Equal(t, StatusRegular, h.StatusAt(eastern(t, 9, 30)))
	assert.Equal(t, StatusRegular, h.StatusAt(eastern(t, 15, 59)))
	assert.Equal(t, StatusAfterHours, h.StatusAt(eastern(t, 16, 0)))
	assert.Equal(t, StatusAfterHours, h.StatusAt(eastern(t, 19, 59)))
	assert.Equal(t, StatusClosed, h.StatusAt(eastern(t, 20, 0)))
	assert.Equal(t, StatusClosed, h.StatusAt(eastern(t, 23, 30)))
}

func TestStatusAt_Weekend(t *testing.T) {
	h := mustHours(t)
	saturday := eastern(t, 12, 0).AddDate(0, 0, 4) // 2024-03-09
	assert.Equal(t, StatusWeekend, h.StatusAt(saturday))
}

func TestNextOpen_BeforeOpenSameDay(t *testing.T) {
	h := mustHours(t)
	open := h.NextOpen(eastern(t, 7, 0))
	assert.Equal(t, eastern(t, 9, 30), open)
}

func TestNextOpen_AfterOpenNextDay(t *testing.T) {
	h := mustHours(t)
	open := h.NextOpen(eastern(t, 11, 0))
	assert.Equal(t, eastern(t, 9, 30).AddDate(0, 0, 1), open)
}

func TestNextOpen_WeekendRollsToMonday(t *testing.T) {
	h := mustHours(t)
	saturday := eastern(t, 12, 0).AddDate(0, 0, 4) // 2024-03-09
	open := h.NextOpen(saturday)
	assert.Equal(t, time.Monday, open.Weekday())
	assert.Equal(t, eastern(t, 9, 30).AddDate(0, 0, 6), open) // 2024-03-11
}

func TestAdjustedMaxHold_FitsWithinSession(t *testing.T) {
	h := mustHours(t)
	entry := eastern(t, 10, 0)

	deadline, _, ok := h.AdjustedMaxHold(entry, 6*time.Hour, 2*time.Hour)
	require.True(t, ok)
	assert.Equal(t, entry.Add(6*time.Hour), deadline)
}

func TestAdjustedMaxHold_ClampedToSafeClose(t *testing.T) {
	h := mustHours(t)
	entry := eastern(t, 17, 0)

	deadline, reason, ok := h.AdjustedMaxHold(entry, 6*time.Hour, 2*time.Hour)
	require.True(t, ok)
	assert.Equal(t, eastern(t, 19, 45), deadline)
	assert.NotEmpty(t, reason)
}

func TestAdjustedMaxHold_RefusedNearClose(t *testing.T) {
	h := mustHours(t)
	entry := eastern(t, 19, 0)

	_, reason, ok := h.AdjustedMaxHold(entry, 6*time.Hour, 2*time.Hour)
	assert.False(t, ok)
	assert.NotEmpty(t, reason)
}

func TestAdjustedMaxHold_NeverPastSafeClose(t *testing.T) {
	h := mustHours(t)
	for hour := 10; hour <= 17; hour++ {
		entry := eastern(t, hour, 0)
		deadline, _, ok := h.AdjustedMaxHold(entry, 12*time.Hour, 2*time.Hour)
		require.True(t, ok, "hour %d", hour)
		assert.False(t, deadline.After(h.NextClose(entry).Add(-15*time.Minute)), "hour %d", hour)
	}
}

func TestDelay_OpenMarket(t *testing.T) {
	h := mustHours(t)
	info := h.Delay(StatusRegular, eastern(t, 11, 0))
	assert.False(t, info.Delayed)
}

func TestDelay_Weekend(t *testing.T) {
	h := mustHours(t)
	saturday := eastern(t, 12, 0).AddDate(0, 0, 4)
	info := h.Delay(StatusWeekend, saturday)
	assert.True(t, info.Delayed)
	assert.Equal(t, "Weekend", info.Reason)
	assert.Equal(t, time.Monday, info.NextOpen.Weekday())
}

func TestEasternDate(t *testing.T) {
	h := mustHours(t)
	// 01:00 UTC on March 6 is still March 5 in New York.
	utc := time.Date(2024, 3, 6, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-05", h.EasternDate(utc))
}
