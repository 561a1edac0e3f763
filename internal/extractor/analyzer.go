package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/newswave/newswave/internal/llm"
	"github.com/newswave/newswave/internal/wave"
	"github.com/newswave/newswave/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// WAVE ANALYZER - Two-stage LLM analysis: pick the wave, then the trades
// ═══════════════════════════════════════════════════════════════════════════════

const waveAnalysisPrompt = `Analyze the market reaction waves for this news item.

Headline: %s
Summary: %s
News age: %d minutes
Market status: %s
Wave status: %s

Waves model who is reacting after publication: 0 HFT (0-5 min), 1 smart money
(5-30 min), 2 institutions (30-120 min), 3 informed retail (2-6 h), 4 mass
retail (6-24 h), 5 re-valuation (1-3 days), 6 fundamental shift (3-7 days).
Pick the single wave that still offers the best entry.

Answer STRICTLY as JSON:
{
  "optimal_wave": <0-6>,
  "reasoning": "<why this wave is optimal>",
  "news_type": "<earnings|macro|regulatory|tech|crypto|other>",
  "market_impact": "<high|medium|low>"
}`

const signalPrompt = `Generate trading signals for this news, targeting reaction wave %d
(%d-%d minutes after publication).

Headline: %s
Summary: %s
News type: %s

CRITICAL INSTRUCTIONS:
1. Analyze both BULLISH and BEARISH implications of the news
2. Use SHORT when the news is NEGATIVE for a company or sector
3. Use BUY when the news is POSITIVE for a company or sector
4. Consider direct impact, competitors, suppliers, and sector effects
5. Be selective - only high-conviction trades with clear rationale
6. Confidence should reflect realistic probabilities (40-80 typical)
7. At most %d signals, US-listed tickers only

Answer STRICTLY as JSON:
{
  "signals": [
    {"ticker": "AAPL", "action": "BUY", "expected_move_percent": 2.5, "confidence": 65, "reasoning": "<why>"}
  ]
}`

// WaveAnalysis is the outcome of the first LLM call.
type WaveAnalysis struct {
	OptimalWave int
	Reasoning   string
	NewsType    string
	Impact      string
	Fallback    bool
}

// Candidate is one proposed trade from the second LLM call, before
// validation.
type Candidate struct {
	Ticker       string
	Action       string // BUY or SHORT
	ExpectedMove float64
	Confidence   int
	Reasoning    string
}

type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Analyzer struct {
	llm        completer
	maxSignals int
}

// NewAnalyzer builds the two-stage analyzer.
func NewAnalyzer(client completer, maxSignals int) *Analyzer {
	return &Analyzer{llm: client, maxSignals: maxSignals}
}

// AnalyzeWaves picks the optimal wave for a news item. On any LLM failure it
// falls back to the wave whose interval contains the news age.
func (a *Analyzer) AnalyzeWaves(ctx context.Context, item *types.NewsItem, ageMinutes int, marketStatus string, table []wave.Status) WaveAnalysis {
	prompt := fmt.Sprintf(waveAnalysisPrompt,
		item.Headline, item.Summary, ageMinutes, marketStatus, wave.FormatStatus(table))

	response, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return a.fallback(ageMinutes, err)
	}

	raw, ok := llm.ExtractJSON(response)
	if !ok {
		return a.fallback(ageMinutes, fmt.Errorf("no JSON in wave analysis response"))
	}

	var parsed struct {
		OptimalWave  json.Number `json:"optimal_wave"`
		Reasoning    string      `json:"reasoning"`
		NewsType     string      `json:"news_type"`
		MarketImpact string      `json:"market_impact"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return a.fallback(ageMinutes, err)
	}

	waveFloat, err := parsed.OptimalWave.Float64()
	if err != nil {
		return a.fallback(ageMinutes, fmt.Errorf("non-numeric wave: %w", err))
	}

	return WaveAnalysis{
		OptimalWave: llm.Clamp(int(waveFloat), 0, wave.Count-1),
		Reasoning:   parsed.Reasoning,
		NewsType:    parsed.NewsType,
		Impact:      parsed.MarketImpact,
	}
}

func (a *Analyzer) fallback(ageMinutes int, cause error) WaveAnalysis {
	w := wave.Fallback(ageMinutes)
	log.Error().Err(cause).Int("wave", w).Msg("Wave analysis failed, falling back by age")
	return WaveAnalysis{
		OptimalWave: w,
		Reasoning:   fmt.Sprintf("Fallback due to LLM error: %v", cause),
		NewsType:    "unknown",
		Impact:      "medium",
		Fallback:    true,
	}
}

// GenerateSignals asks for trade candidates on the chosen wave. Failures
// yield zero candidates, never an error.
func (a *Analyzer) GenerateSignals(ctx context.Context, item *types.NewsItem, analysis WaveAnalysis) []Candidate {
	startMin, endMin := wave.Bounds(analysis.OptimalWave)
	prompt := fmt.Sprintf(signalPrompt,
		analysis.OptimalWave, startMin, endMin,
		item.Headline, item.Summary, analysis.NewsType, a.maxSignals)

	response, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Msg("Signal generation failed")
		return nil
	}

	return a.parseCandidates(response)
}

func (a *Analyzer) parseCandidates(response string) []Candidate {
	raw, ok := llm.ExtractJSON(response)
	if !ok {
		log.Error().Msg("No JSON in signal generation response")
		return nil
	}

	var parsed struct {
		Signals []struct {
			Ticker       string      `json:"ticker"`
			Action       string      `json:"action"`
			ExpectedMove json.Number `json:"expected_move_percent"`
			Confidence   json.Number `json:"confidence"`
			Reasoning    string      `json:"reasoning"`
		} `json:"signals"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.Error().Err(err).Msg("Failed to parse signals")
		return nil
	}

	candidates := make([]Candidate, 0, len(parsed.Signals))
	for _, s := range parsed.Signals {
		action := strings.ToUpper(strings.TrimSpace(s.Action))
		if action != types.SignalBuy && action != types.SignalShort {
			continue
		}
		ticker := strings.ToUpper(strings.TrimSpace(s.Ticker))
		if ticker == "" {
			continue
		}

		move, err := s.ExpectedMove.Float64()
		if err != nil {
			continue
		}
		if move < 0 {
			move = -move
		}

		confFloat, err := s.Confidence.Float64()
		if err != nil {
			continue
		}

		candidates = append(candidates, Candidate{
			Ticker:       ticker,
			Action:       action,
			ExpectedMove: move,
			Confidence:   llm.Clamp(int(confFloat), 0, 100),
			Reasoning:    s.Reasoning,
		})

		if len(candidates) >= a.maxSignals {
			break
		}
	}
	return candidates
}
