package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_FreshTripOncePerDay(t *testing.T) {
	cb := NewCircuitBreaker(5)

	tripped, fresh := cb.Evaluate(dec(-520), dec(10000), "2024-03-05")
	assert.True(t, tripped)
	assert.True(t, fresh)

	tripped, fresh = cb.Evaluate(dec(-520), dec(10000), "2024-03-05")
	assert.True(t, tripped)
	assert.False(t, fresh, "flatten-all must fire only once per day")
}

func TestCircuitBreaker_NotTrippedBelowLimit(t *testing.T) {
	cb := NewCircuitBreaker(5)

	tripped, fresh := cb.Evaluate(dec(-100), dec(10000), "2024-03-05")
	assert.False(t, tripped)
	assert.False(t, fresh)
	assert.False(t, cb.TrippedToday("2024-03-05"))
}

func TestCircuitBreaker_NewDayCanTripAgain(t *testing.T) {
	cb := NewCircuitBreaker(5)

	cb.Evaluate(dec(-520), dec(10000), "2024-03-05")

	// Next day the ledger reset realized_pnl_today; a new breach is fresh.
	tripped, fresh := cb.Evaluate(dec(-600), dec(10000), "2024-03-06")
	assert.True(t, tripped)
	assert.True(t, fresh)
}
