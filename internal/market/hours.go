package market

import (
	"fmt"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// MARKET HOURS - US equity session state machine (Eastern Time)
// ═══════════════════════════════════════════════════════════════════════════════

// Session status values.
const (
	StatusClosed     = "closed"
	StatusPreMarket  = "pre_market"
	StatusRegular    = "regular_session"
	StatusAfterHours = "after_hours"
	StatusWeekend    = "weekend"
	StatusHoliday    = "holiday"
)

// Session boundaries, minutes from Eastern midnight.
const (
	preMarketStart = 4 * 60        // 04:00
	regularStart   = 9*60 + 30     // 09:30
	regularEnd     = 16 * 60       // 16:00
	afterHoursEnd  = 20 * 60       // 20:00
)

// closeSafetyBuffer is how long before the session close positions must be
// flat.
const closeSafetyBuffer = 15 * time.Minute

// Hours answers questions about the US equity trading calendar.
type Hours struct {
	loc *time.Location
}

// NewHours loads the Eastern timezone.
func NewHours() (*Hours, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("load US/Eastern timezone: %w", err)
	}
	return &Hours{loc: loc}, nil
}

// StatusAt classifies an instant into a session status.
func (h *Hours) StatusAt(t time.Time) string {
	et := t.In(h.loc)

	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday {
		return StatusWeekend
	}

	minutes := et.Hour()*60 + et.Minute()
	switch {
	case minutes < preMarketStart:
		return StatusClosed
	case minutes < regularStart:
		return StatusPreMarket
	case minutes < regularEnd:
		return StatusRegular
	case minutes < afterHoursEnd:
		return StatusAfterHours
	default:
		return StatusClosed
	}
}

// Status classifies the current instant.
func (h *Hours) Status() string {
	return h.StatusAt(time.Now())
}

// IsOpen reports whether any trading session (pre, regular, after) is active.
func (h *Hours) IsOpen(status string) bool {
	return status == StatusPreMarket || status == StatusRegular || status == StatusAfterHours
}

// NextOpen returns the next regular-session open (09:30 ET) strictly after t.
func (h *Hours) NextOpen(t time.Time) time.Time {
	et := t.In(h.loc)
	open := time.Date(et.Year(), et.Month(), et.Day(), 9, 30, 0, 0, h.loc)
	if !et.Before(open) {
		open = open.AddDate(0, 0, 1)
	}
	for open.Weekday() == time.Saturday || open.Weekday() == time.Sunday {
		open = open.AddDate(0, 0, 1)
	}
	return open
}

// NextClose returns the next after-hours close (20:00 ET) strictly after t,
// rolling weekends forward.
func (h *Hours) NextClose(t time.Time) time.Time {
	et := t.In(h.loc)
	close := time.Date(et.Year(), et.Month(), et.Day(), 20, 0, 0, 0, h.loc)
	if !et.Before(close) {
		close = close.AddDate(0, 0, 1)
	}
	for close.Weekday() == time.Saturday || close.Weekday() == time.Sunday {
		close = close.AddDate(0, 0, 1)
	}
	return close
}

// AdjustedMaxHold computes the hold deadline for a position entered now.
// Holding across the overnight gap is disallowed: the deadline is clamped to
// 15 minutes before the session close, and the open is refused outright when
// less than minHold remains.
func (h *Hours) AdjustedMaxHold(entry time.Time, desired, minHold time.Duration) (time.Time, string, bool) {
	close := h.NextClose(entry)

	if close.Sub(entry) < minHold {
		return time.Time{}, fmt.Sprintf("only %s until market close, minimum %s required",
			close.Sub(entry).Round(time.Minute), minHold), false
	}

	safeClose := close.Add(-closeSafetyBuffer)
	desiredEnd := entry.Add(desired)

	if desiredEnd.After(safeClose) {
		return safeClose, fmt.Sprintf("hold clamped from %s to market close at %s",
			desired, safeClose.In(h.loc).Format("15:04 MST")), true
	}
	return desiredEnd, "", true
}

// DelayInfo reports whether fresh news must wait for the market to open.
type DelayInfo struct {
	Delayed  bool
	Reason   string
	NextOpen time.Time
}

// Delay returns the delay decision for the given session status at instant t.
func (h *Hours) Delay(status string, t time.Time) DelayInfo {
	if h.IsOpen(status) {
		return DelayInfo{}
	}

	reason := "Market closed"
	switch status {
	case StatusWeekend:
		reason = "Weekend"
	case StatusHoliday:
		reason = "Market holiday"
	}
	return DelayInfo{Delayed: true, Reason: reason, NextOpen: h.NextOpen(t)}
}

// EasternDate returns the Eastern calendar date of t, used to detect the
// start of a new local trading day.
func (h *Hours) EasternDate(t time.Time) string {
	return t.In(h.loc).Format("2006-01-02")
}
