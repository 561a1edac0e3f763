package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// ═══════════════════════════════════════════════════════════════════════════════
// QUOTE PROVIDERS - Yahoo → Finnhub → Alpha Vantage
// ═══════════════════════════════════════════════════════════════════════════════

// ErrRateLimited marks a provider that refused the request with HTTP 429.
var ErrRateLimited = errors.New("provider rate limited")

// ErrNoQuote marks a response that carried no usable price.
var ErrNoQuote = errors.New("no quote available")

const providerTimeout = 10 * time.Second

// Provider is one quote source. Volume is 0 when the source does not report
// it.
type Provider interface {
	Name() string
	Quote(ctx context.Context, ticker string) (price decimal.Decimal, volume int64, err error)
}

// ─── Yahoo ─────────────────────────────────────────────────────────────────────

// yahooBlockDuration is how long Yahoo stays disabled after a 429.
const yahooBlockDuration = 10 * time.Minute

type yahooProvider struct {
	httpClient *http.Client
	gate       *rate.Limiter // min 3 s between requests

	mu           sync.Mutex
	blockedUntil time.Time
	now          func() time.Time
}

func newYahoo() *yahooProvider {
	return &yahooProvider{
		httpClient: &http.Client{Timeout: providerTimeout},
		gate:       rate.NewLimiter(rate.Every(3*time.Second), 1),
		now:        time.Now,
	}
}

func (y *yahooProvider) Name() string { return "yahoo" }

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice  float64 `json:"regularMarketPrice"`
				RegularMarketVolume int64   `json:"regularMarketVolume"`
			} `json:"meta"`
		} `json:"result"`
	} `json:"chart"`
}

func (y *yahooProvider) Quote(ctx context.Context, ticker string) (decimal.Decimal, int64, error) {
	y.mu.Lock()
	if y.now().Before(y.blockedUntil) {
		y.mu.Unlock()
		return decimal.Zero, 0, ErrRateLimited
	}
	y.mu.Unlock()

	if err := y.gate.Wait(ctx); err != nil {
		return decimal.Zero, 0, err
	}

	u := fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=1m&range=1d",
		url.PathEscape(ticker))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (newswave)")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		y.mu.Lock()
		y.blockedUntil = y.now().Add(yahooBlockDuration)
		y.mu.Unlock()
		log.Warn().Str("ticker", ticker).Msg("Yahoo Finance 429, disabled for 10 minutes")
		return decimal.Zero, 0, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, 0, fmt.Errorf("yahoo status %d", resp.StatusCode)
	}

	var parsed yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return decimal.Zero, 0, err
	}
	if len(parsed.Chart.Result) == 0 || parsed.Chart.Result[0].Meta.RegularMarketPrice <= 0 {
		return decimal.Zero, 0, ErrNoQuote
	}

	meta := parsed.Chart.Result[0].Meta
	return decimal.NewFromFloat(meta.RegularMarketPrice), meta.RegularMarketVolume, nil
}

// ─── Finnhub ───────────────────────────────────────────────────────────────────

type finnhubProvider struct {
	httpClient *http.Client
	apiKey     string
}

func newFinnhub(apiKey string) *finnhubProvider {
	return &finnhubProvider{
		httpClient: &http.Client{Timeout: providerTimeout},
		apiKey:     apiKey,
	}
}

func (f *finnhubProvider) Name() string { return "finnhub" }

func (f *finnhubProvider) Quote(ctx context.Context, ticker string) (decimal.Decimal, int64, error) {
	u := fmt.Sprintf("https://finnhub.io/api/v1/quote?symbol=%s&token=%s",
		url.QueryEscape(ticker), url.QueryEscape(f.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, 0, err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return decimal.Zero, 0, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, 0, fmt.Errorf("finnhub status %d", resp.StatusCode)
	}

	var quote struct {
		Current float64 `json:"c"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return decimal.Zero, 0, err
	}
	if quote.Current <= 0 {
		return decimal.Zero, 0, ErrNoQuote
	}
	return decimal.NewFromFloat(quote.Current), 0, nil
}

// ─── Alpha Vantage ─────────────────────────────────────────────────────────────

type alphaVantageProvider struct {
	httpClient *http.Client
	apiKey     string
}

func newAlphaVantage(apiKey string) *alphaVantageProvider {
	return &alphaVantageProvider{
		httpClient: &http.Client{Timeout: providerTimeout},
		apiKey:     apiKey,
	}
}

func (a *alphaVantageProvider) Name() string { return "alphavantage" }

func (a *alphaVantageProvider) Quote(ctx context.Context, ticker string) (decimal.Decimal, int64, error) {
	u := fmt.Sprintf("https://www.alphavantage.co/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s",
		url.QueryEscape(ticker), url.QueryEscape(a.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, 0, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return decimal.Zero, 0, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, 0, fmt.Errorf("alpha vantage status %d", resp.StatusCode)
	}

	var parsed struct {
		GlobalQuote struct {
			Price  string `json:"05. price"`
			Volume string `json:"06. volume"`
		} `json:"Global Quote"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return decimal.Zero, 0, err
	}
	if parsed.GlobalQuote.Price == "" {
		return decimal.Zero, 0, ErrNoQuote
	}

	price, err := decimal.NewFromString(parsed.GlobalQuote.Price)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, 0, ErrNoQuote
	}

	var volume int64
	fmt.Sscanf(parsed.GlobalQuote.Volume, "%d", &volume)
	return price, volume, nil
}
