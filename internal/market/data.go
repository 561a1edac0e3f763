package market

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/newswave/newswave/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// MARKET DATA - Cached multi-provider quote adapter
// ═══════════════════════════════════════════════════════════════════════════════
//
// Providers are tried in order and the first positive quote wins. A fresh
// cache entry short-circuits the lookup entirely; a stale entry is only
// handed out when the caller explicitly allows it and every provider failed.
//
// ═══════════════════════════════════════════════════════════════════════════════

// BenchmarkTicker anchors the alpha calculation.
const BenchmarkTicker = "SPY"

const (
	defaultFreshTTL = 300 * time.Second
	defaultStaleTTL = 3600 * time.Second
)

type cacheEntry struct {
	price  decimal.Decimal
	volume int64
	source string
	at     time.Time
}

type Data struct {
	mu        sync.RWMutex
	cache     map[string]cacheEntry
	providers []Provider
	freshTTL  time.Duration
	staleTTL  time.Duration
	now       func() time.Time
}

// NewData wires the provider chain from the configured credentials. Yahoo
// needs no key and always leads; Finnhub and Alpha Vantage join when their
// keys are present.
func NewData(finnhubKey, alphaVantageKey string) *Data {
	providers := []Provider{newYahoo()}
	if finnhubKey != "" {
		providers = append(providers, newFinnhub(finnhubKey))
	}
	if alphaVantageKey != "" {
		providers = append(providers, newAlphaVantage(alphaVantageKey))
	}
	return newData(providers, defaultFreshTTL, defaultStaleTTL, time.Now)
}

func newData(providers []Provider, freshTTL, staleTTL time.Duration, now func() time.Time) *Data {
	return &Data{
		cache:     make(map[string]cacheEntry),
		providers: providers,
		freshTTL:  freshTTL,
		staleTTL:  staleTTL,
		now:       now,
	}
}

// CurrentPrice returns the latest quote for a ticker. With allowStale a
// cached price up to the stale TTL is returned when all providers fail.
func (d *Data) CurrentPrice(ctx context.Context, ticker string, allowStale bool) (*types.Quote, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	now := d.now()

	d.mu.RLock()
	entry, cached := d.cache[ticker]
	d.mu.RUnlock()

	if cached && now.Sub(entry.at) < d.freshTTL {
		return &types.Quote{Ticker: ticker, Price: entry.price, Source: entry.source, At: entry.at}, nil
	}

	var lastErr error = ErrNoQuote
	for _, p := range d.providers {
		price, volume, err := p.Quote(ctx, ticker)
		if err != nil {
			lastErr = err
			log.Debug().Err(err).Str("ticker", ticker).Str("provider", p.Name()).Msg("Quote failed")
			continue
		}

		d.mu.Lock()
		// Keep a previously known volume when this provider reports none.
		if volume == 0 && cached {
			volume = entry.volume
		}
		d.cache[ticker] = cacheEntry{price: price, volume: volume, source: p.Name(), at: now}
		d.mu.Unlock()

		return &types.Quote{Ticker: ticker, Price: price, Source: p.Name(), At: now}, nil
	}

	if allowStale && cached && now.Sub(entry.at) < d.staleTTL {
		log.Warn().
			Str("ticker", ticker).
			Str("age", now.Sub(entry.at).Round(time.Minute).String()).
			Msg("All quote sources failed, using stale cache")
		return &types.Quote{Ticker: ticker, Price: entry.price, Source: entry.source, Stale: true, At: entry.at}, nil
	}

	return nil, lastErr
}

// BenchmarkPrice fetches the SPY anchor, accepting a stale quote. Returns nil
// when no price can be produced at all; the caller proceeds without alpha.
func (d *Data) BenchmarkPrice(ctx context.Context) *types.Quote {
	quote, err := d.CurrentPrice(ctx, BenchmarkTicker, true)
	if err != nil {
		log.Warn().Err(err).Msg("Benchmark price unavailable")
		return nil
	}
	return quote
}

// Volume returns the last known daily volume for a ticker, 0 when unknown.
func (d *Data) Volume(ticker string) int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cache[strings.ToUpper(strings.TrimSpace(ticker))].volume
}

// RealisticExecution prices a fill for the given side and dollar size.
func (d *Data) RealisticExecution(ctx context.Context, ticker, side string, size decimal.Decimal) (*types.Execution, error) {
	quote, err := d.CurrentPrice(ctx, ticker, false)
	if err != nil {
		return nil, err
	}

	exec := ComputeExecution(quote.Price, size, side, d.Volume(ticker), DefaultExecParams())
	return &exec, nil
}

// CacheStats reports cache occupancy for the hourly stats log.
func (d *Data) CacheStats() (total, fresh int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	now := d.now()
	for _, entry := range d.cache {
		total++
		if now.Sub(entry.at) < d.freshTTL {
			fresh++
		}
	}
	return total, fresh
}
