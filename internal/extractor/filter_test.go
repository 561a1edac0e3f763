package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newswave/newswave/internal/market"
)

type fakeValidator struct {
	results map[string]market.Validation
}

func (f *fakeValidator) Validate(ctx context.Context, ticker string) market.Validation {
	if v, ok := f.results[ticker]; ok {
		return v
	}
	return market.Validation{Ticker: ticker, Exists: true}
}

func TestFilterCandidates_MoveTooSmall(t *testing.T) {
	candidates := []Candidate{
		{Ticker: "AAPL", Action: "BUY", ExpectedMove: 0.5, Confidence: 70},
	}
	valid := filterCandidates(context.Background(), candidates, 1.0, 40, &fakeValidator{})
	assert.Empty(t, valid)
}

func TestFilterCandidates_ConfidenceTooLow(t *testing.T) {
	candidates := []Candidate{
		{Ticker: "AAPL", Action: "BUY", ExpectedMove: 2.5, Confidence: 39},
	}
	valid := filterCandidates(context.Background(), candidates, 1.0, 40, &fakeValidator{})
	assert.Empty(t, valid)
}

func TestFilterCandidates_ThresholdsInclusive(t *testing.T) {
	candidates := []Candidate{
		{Ticker: "AAPL", Action: "BUY", ExpectedMove: 1.0, Confidence: 40},
	}
	valid := filterCandidates(context.Background(), candidates, 1.0, 40, &fakeValidator{})
	assert.Len(t, valid, 1)
}

func TestFilterCandidates_UnknownTickerDropped(t *testing.T) {
	validator := &fakeValidator{results: map[string]market.Validation{
		"NOTREAL": {Ticker: "NOTREAL", Exists: false},
	}}
	candidates := []Candidate{
		{Ticker: "NOTREAL", Action: "BUY", ExpectedMove: 3.0, Confidence: 70},
		{Ticker: "AAPL", Action: "SHORT", ExpectedMove: 2.0, Confidence: 60},
	}

	valid := filterCandidates(context.Background(), candidates, 1.0, 40, validator)
	require.Len(t, valid, 1)
	assert.Equal(t, "AAPL", valid[0].Ticker)
	assert.True(t, valid[0].TickerValidated)
	assert.True(t, valid[0].TickerExists)
}

func TestFilterCandidates_TransientValidatorErrorAccepts(t *testing.T) {
	validator := &fakeValidator{results: map[string]market.Validation{
		"TSLA": {Ticker: "TSLA", Err: errors.New("429")},
	}}
	candidates := []Candidate{
		{Ticker: "TSLA", Action: "BUY", ExpectedMove: 2.0, Confidence: 55},
	}

	valid := filterCandidates(context.Background(), candidates, 1.0, 40, validator)
	require.Len(t, valid, 1)
	assert.False(t, valid[0].TickerValidated)
	assert.False(t, valid[0].TickerExists)
}
