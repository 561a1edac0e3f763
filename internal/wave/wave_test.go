package wave

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTable_At45Minutes(t *testing.T) {
	table := StatusTable(45)
	require.Len(t, table, Count)

	assert.Equal(t, Missed, table[0].State)
	assert.Equal(t, Missed, table[1].State)

	assert.Equal(t, Ongoing, table[2].State)
	assert.Equal(t, 75, table[2].TimeLeft)

	for w := 3; w <= 6; w++ {
		assert.Equal(t, Upcoming, table[w].State, "wave %d", w)
	}
}

func TestStatusTable_FreshNews(t *testing.T) {
	table := StatusTable(0)
	assert.Equal(t, Ongoing, table[0].State)
	assert.Equal(t, 5, table[0].TimeLeft)
	assert.Equal(t, Upcoming, table[1].State)
}

func TestFormatStatus(t *testing.T) {
	s := FormatStatus(StatusTable(45))
	assert.Contains(t, s, "Wave 0: missed")
	assert.Contains(t, s, "Wave 2: ongoing (75 min left)")
	assert.Contains(t, s, "Wave 6: upcoming")
}

func TestFallback(t *testing.T) {
	assert.Equal(t, 0, Fallback(3))
	assert.Equal(t, 1, Fallback(10))
	assert.Equal(t, 2, Fallback(45))
	assert.Equal(t, 3, Fallback(200))
	assert.Equal(t, 4, Fallback(800))
	assert.Equal(t, 5, Fallback(2000))
	assert.Equal(t, 6, Fallback(5000))
	assert.Equal(t, 6, Fallback(99999))
}

func TestBounds_OutOfRange(t *testing.T) {
	start, end := Bounds(11)
	assert.Equal(t, 0, start)
	assert.Equal(t, 1440, end)
}

func TestEntryWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	start, end := EntryWindow(2, now)
	assert.Equal(t, now.Add(30*time.Minute), start)
	assert.Equal(t, now.Add(120*time.Minute), end)
}
