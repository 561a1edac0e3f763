package risk

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CIRCUIT BREAKER - Daily loss limit
// ═══════════════════════════════════════════════════════════════════════════════
//
// Tripped state is derived from the ledger (realized P&L today vs. total
// value) so it survives restarts for free. The in-memory state only tracks
// the trading day of the last trip, to fire the flatten-all exactly once.
//
// ═══════════════════════════════════════════════════════════════════════════════

type CircuitBreaker struct {
	mu          sync.Mutex
	limitPct    float64
	trippedDate string // Eastern trading day of the last trip
}

// NewCircuitBreaker builds a breaker with the daily loss limit in percent.
func NewCircuitBreaker(limitPct float64) *CircuitBreaker {
	return &CircuitBreaker{limitPct: limitPct}
}

// Evaluate checks the ledger for a breach. tripped means trading is halted
// for the rest of the day; fresh is true only on the transition, when the
// caller must flatten all open positions.
func (cb *CircuitBreaker) Evaluate(realizedToday, totalValue decimal.Decimal, easternDate string) (tripped, fresh bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !DailyLossBreached(realizedToday, totalValue, cb.limitPct) {
		return false, false
	}

	if cb.trippedDate == easternDate {
		return true, false
	}

	cb.trippedDate = easternDate
	log.Warn().
		Str("realized_today", realizedToday.StringFixed(2)).
		Str("total_value", totalValue.StringFixed(2)).
		Float64("limit_pct", cb.limitPct).
		Msg("🚨 CIRCUIT BREAKER TRIPPED")
	return true, true
}

// TrippedToday reports whether the breaker already fired on the given day.
func (cb *CircuitBreaker) TrippedToday(easternDate string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.trippedDate == easternDate
}
