package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidator_PositiveCached(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	calls := 0
	v := newValidator(func(ctx context.Context, ticker string) (bool, string, error) {
		calls++
		return true, "Apple Inc", nil
	}, clock.now)

	first := v.Validate(context.Background(), "aapl")
	assert.True(t, first.Exists)
	assert.False(t, first.Cached)
	assert.Equal(t, "Apple Inc", first.Name)

	second := v.Validate(context.Background(), "AAPL")
	assert.True(t, second.Exists)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, calls)
}

func TestValidator_AuthoritativeNotFoundCached(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	calls := 0
	v := newValidator(func(ctx context.Context, ticker string) (bool, string, error) {
		calls++
		return false, "", nil
	}, clock.now)

	first := v.Validate(context.Background(), "FAKETICK")
	assert.False(t, first.Exists)
	assert.NoError(t, first.Err)

	second := v.Validate(context.Background(), "FAKETICK")
	assert.False(t, second.Exists)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, calls)
}

func TestValidator_TransientErrorNotCached(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	failing := true
	v := newValidator(func(ctx context.Context, ticker string) (bool, string, error) {
		if failing {
			return false, "", errors.New("429 too many requests")
		}
		return true, "Tesla Inc", nil
	}, clock.now)

	first := v.Validate(context.Background(), "TSLA")
	assert.Error(t, first.Err)
	assert.False(t, first.Exists)

	// Provider recovers: the verdict was never cached as negative.
	failing = false
	second := v.Validate(context.Background(), "TSLA")
	assert.NoError(t, second.Err)
	assert.True(t, second.Exists)
	assert.False(t, second.Cached)
}

func TestValidator_CacheWipesAfterWindow(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	calls := 0
	v := newValidator(func(ctx context.Context, ticker string) (bool, string, error) {
		calls++
		return true, "", nil
	}, clock.now)

	v.Validate(context.Background(), "MSFT")
	clock.advance(61 * time.Minute)
	result := v.Validate(context.Background(), "MSFT")

	assert.False(t, result.Cached)
	assert.Equal(t, 2, calls)
}
