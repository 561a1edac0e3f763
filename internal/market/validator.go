package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TICKER VALIDATOR - Positive/negative cache over an authoritative lookup
// ═══════════════════════════════════════════════════════════════════════════════
//
// A ticker only lands in the negative set when the provider positively said
// it does not exist. Transport failures and rate limits leave the verdict
// open, so the extractor can accept the candidate instead of dropping it.
//
// ═══════════════════════════════════════════════════════════════════════════════

const validatorCacheWindow = time.Hour

// Validation is the outcome of one ticker check.
type Validation struct {
	Ticker string
	Exists bool
	Cached bool
	Name   string
	Err    error // transient lookup failure; Exists is unconfirmed when set
}

// lookupFunc resolves a ticker. exists is only meaningful when err is nil.
type lookupFunc func(ctx context.Context, ticker string) (exists bool, name string, err error)

type Validator struct {
	mu        sync.Mutex
	valid     map[string]struct{}
	invalid   map[string]struct{}
	lastClear time.Time
	window    time.Duration
	lookup    lookupFunc
	now       func() time.Time
}

// NewValidator builds a validator backed by the Finnhub symbol profile.
func NewValidator(finnhubKey string) *Validator {
	client := &http.Client{Timeout: providerTimeout}
	return newValidator(finnhubProfileLookup(client, finnhubKey), time.Now)
}

func newValidator(lookup lookupFunc, now func() time.Time) *Validator {
	return &Validator{
		valid:     make(map[string]struct{}),
		invalid:   make(map[string]struct{}),
		lastClear: now(),
		window:    validatorCacheWindow,
		lookup:    lookup,
		now:       now,
	}
}

// Validate resolves one ticker, consulting the cache first.
func (v *Validator) Validate(ctx context.Context, ticker string) Validation {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	v.mu.Lock()
	v.clearOldCache()
	if _, ok := v.valid[ticker]; ok {
		v.mu.Unlock()
		return Validation{Ticker: ticker, Exists: true, Cached: true}
	}
	if _, ok := v.invalid[ticker]; ok {
		v.mu.Unlock()
		return Validation{Ticker: ticker, Exists: false, Cached: true}
	}
	v.mu.Unlock()

	exists, name, err := v.lookup(ctx, ticker)
	if err != nil {
		// Not cached: the verdict stays open for the next attempt.
		log.Warn().Err(err).Str("ticker", ticker).Msg("Ticker validation inconclusive")
		return Validation{Ticker: ticker, Err: err}
	}

	v.mu.Lock()
	if exists {
		v.valid[ticker] = struct{}{}
	} else {
		v.invalid[ticker] = struct{}{}
	}
	v.mu.Unlock()

	return Validation{Ticker: ticker, Exists: exists, Name: name}
}

// clearOldCache wipes both sets once per window. Caller holds the lock.
func (v *Validator) clearOldCache() {
	if v.now().Sub(v.lastClear) <= v.window {
		return
	}
	log.Info().
		Int("valid", len(v.valid)).
		Int("invalid", len(v.invalid)).
		Msg("Clearing ticker cache")
	v.valid = make(map[string]struct{})
	v.invalid = make(map[string]struct{})
	v.lastClear = v.now()
}

// CacheStats reports cache sizes and age for the hourly stats log.
func (v *Validator) CacheStats() (valid, invalid int, age time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.valid), len(v.invalid), v.now().Sub(v.lastClear)
}

func finnhubProfileLookup(client *http.Client, apiKey string) lookupFunc {
	return func(ctx context.Context, ticker string) (bool, string, error) {
		u := fmt.Sprintf("https://finnhub.io/api/v1/stock/profile2?symbol=%s&token=%s",
			url.QueryEscape(ticker), url.QueryEscape(apiKey))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return false, "", err
		}

		resp, err := client.Do(req)
		if err != nil {
			return false, "", err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return false, "", ErrRateLimited
		}
		if resp.StatusCode != http.StatusOK {
			return false, "", fmt.Errorf("finnhub profile status %d", resp.StatusCode)
		}

		var profile struct {
			Name     string `json:"name"`
			Ticker   string `json:"ticker"`
			Exchange string `json:"exchange"`
			Currency string `json:"currency"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
			return false, "", err
		}

		// Finnhub answers an unknown symbol with 200 and an empty object,
		// which is an authoritative not-found.
		exists := profile.Name != "" || profile.Ticker != "" || profile.Exchange != ""
		return exists, profile.Name, nil
	}
}
