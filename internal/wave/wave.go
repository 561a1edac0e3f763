package wave

import (
	"fmt"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// WAVE MODEL - Staged market reaction to a news publication
// ═══════════════════════════════════════════════════════════════════════════════
//
// Each wave is a time bucket after publication, modelling who is reacting:
// HFT first, fundamental re-pricing last. Signals are tagged to exactly one
// wave and may only be entered inside its bounds.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Count is the number of waves in the model.
const Count = 7

// Wave lifecycle relative to the news age.
const (
	Upcoming = "upcoming"
	Ongoing  = "ongoing"
	Missed   = "missed"
)

// intervals are minutes since publication, [start, end) between waves.
var intervals = [Count][2]int{
	{0, 5},        // HFT algorithms
	{5, 30},       // smart money
	{30, 120},     // institutional investors
	{120, 360},    // informed retail
	{360, 1440},   // mass retail
	{1440, 4320},  // re-valuation
	{4320, 10080}, // fundamental shift
}

var descriptions = [Count]string{
	"HFT and algorithmic reaction (0-5 min)",
	"Smart money positioning (5-30 min)",
	"Institutional flow (30 min - 2 h)",
	"Informed retail (2-6 h)",
	"Mass retail reaction (6-24 h)",
	"Market re-valuation (1-3 days)",
	"Fundamental shift (3-7 days)",
}

// Bounds returns the wave interval in minutes since publication. Waves
// outside 0..6 fall back to a one-day window.
func Bounds(wave int) (startMin, endMin int) {
	if wave < 0 || wave >= Count {
		return 0, 1440
	}
	return intervals[wave][0], intervals[wave][1]
}

// Description returns the human-readable wave description.
func Description(wave int) string {
	if wave < 0 || wave >= Count {
		return "unknown wave"
	}
	return descriptions[wave]
}

// Status is the lifecycle of one wave relative to the news age.
type Status struct {
	Wave     int
	State    string
	StartMin int
	EndMin   int
	TimeLeft int // minutes, only set while ongoing
}

// StatusTable classifies every wave for a news item of the given age.
func StatusTable(ageMinutes int) []Status {
	table := make([]Status, 0, Count)
	for w := 0; w < Count; w++ {
		start, end := Bounds(w)
		s := Status{Wave: w, StartMin: start, EndMin: end}
		switch {
		case ageMinutes < start:
			s.State = Upcoming
		case ageMinutes < end:
			s.State = Ongoing
			s.TimeLeft = end - ageMinutes
		default:
			s.State = Missed
		}
		table = append(table, s)
	}
	return table
}

// FormatStatus renders the status table for the wave-analysis prompt.
func FormatStatus(table []Status) string {
	parts := make([]string, 0, len(table))
	for _, s := range table {
		part := fmt.Sprintf("Wave %d: %s", s.Wave, s.State)
		if s.State == Ongoing {
			part += fmt.Sprintf(" (%d min left)", s.TimeLeft)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

// Fallback picks the wave whose interval contains the news age, used when
// the LLM wave selection fails.
func Fallback(ageMinutes int) int {
	for w := 0; w < Count; w++ {
		if ageMinutes < intervals[w][1] {
			return w
		}
	}
	return Count - 1
}

// EntryWindow converts wave bounds into wall-clock entry times anchored at
// the given instant, the news publication time.
func EntryWindow(wave int, now time.Time) (start, end time.Time) {
	startMin, endMin := Bounds(wave)
	return now.Add(time.Duration(startMin) * time.Minute),
		now.Add(time.Duration(endMin) * time.Minute)
}
