package extractor

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/newswave/newswave/internal/market"
)

// ValidCandidate is a candidate that survived filtering, with the validator
// outcome attached for the market_conditions payload.
type ValidCandidate struct {
	Candidate
	TickerValidated bool // an authoritative check completed
	TickerExists    bool
}

// tickerValidator is the slice of market.Validator the filter needs.
type tickerValidator interface {
	Validate(ctx context.Context, ticker string) market.Validation
}

// filterCandidates applies the admission rules: minimum expected move,
// minimum confidence, and ticker existence. A candidate is dropped on ticker
// grounds only when the validator is certain it does not exist; transient
// validator errors accept the candidate.
func filterCandidates(ctx context.Context, candidates []Candidate, minMove float64, minConfidence int, validator tickerValidator) []ValidCandidate {
	valid := make([]ValidCandidate, 0, len(candidates))

	for _, c := range candidates {
		if c.ExpectedMove < minMove {
			log.Debug().
				Str("ticker", c.Ticker).
				Float64("move", c.ExpectedMove).
				Msg("Signal filtered: move too small")
			continue
		}

		if c.Confidence < minConfidence {
			log.Debug().
				Str("ticker", c.Ticker).
				Int("confidence", c.Confidence).
				Msg("Signal filtered: confidence too low")
			continue
		}

		validation := validator.Validate(ctx, c.Ticker)
		if validation.Err == nil && !validation.Exists {
			log.Warn().Str("ticker", c.Ticker).Msg("Invalid ticker filtered")
			continue
		}

		valid = append(valid, ValidCandidate{
			Candidate:       c,
			TickerValidated: validation.Err == nil,
			TickerExists:    validation.Exists,
		})
	}

	log.Info().
		Int("valid", len(valid)).
		Int("total", len(candidates)).
		Msg("Signal validation complete")
	return valid
}
