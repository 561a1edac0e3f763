package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newswave/newswave/internal/wave"
	"github.com/newswave/newswave/types"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func newsItem() *types.NewsItem {
	return &types.NewsItem{
		ID:          1,
		Headline:    "Fed cuts rates 50bp",
		Summary:     "Surprise half-point cut",
		PublishedAt: time.Now().Add(-45 * time.Minute),
	}
}

func TestAnalyzeWaves_ParsesResponse(t *testing.T) {
	fake := &fakeLLM{response: `{"optimal_wave": 2, "reasoning": "institutions still entering", "news_type": "macro", "market_impact": "high"}`}
	a := NewAnalyzer(fake, 10)

	analysis := a.AnalyzeWaves(context.Background(), newsItem(), 45, "regular_session", wave.StatusTable(45))
	assert.Equal(t, 2, analysis.OptimalWave)
	assert.Equal(t, "macro", analysis.NewsType)
	assert.False(t, analysis.Fallback)
}

func TestAnalyzeWaves_ClampsWave(t *testing.T) {
	fake := &fakeLLM{response: `{"optimal_wave": 10, "reasoning": "r", "news_type": "macro", "market_impact": "low"}`}
	a := NewAnalyzer(fake, 10)

	analysis := a.AnalyzeWaves(context.Background(), newsItem(), 45, "regular_session", wave.StatusTable(45))
	assert.Equal(t, 6, analysis.OptimalWave)
}

func TestAnalyzeWaves_FallbackByAge(t *testing.T) {
	fake := &fakeLLM{err: errors.New("timeout")}
	a := NewAnalyzer(fake, 10)

	analysis := a.AnalyzeWaves(context.Background(), newsItem(), 45, "regular_session", wave.StatusTable(45))
	assert.True(t, analysis.Fallback)
	assert.Equal(t, 2, analysis.OptimalWave) // 45 min falls in wave 2
	assert.Equal(t, "unknown", analysis.NewsType)
}

func TestGenerateSignals_ParsesCandidates(t *testing.T) {
	fake := &fakeLLM{response: `{"signals": [
		{"ticker": "aapl", "action": "buy", "expected_move_percent": 2.5, "confidence": 65, "reasoning": "supplier boost"},
		{"ticker": "XOM", "action": "SHORT", "expected_move_percent": -1.8, "confidence": 50, "reasoning": "margin squeeze"}
	]}`}
	a := NewAnalyzer(fake, 10)

	candidates := a.GenerateSignals(context.Background(), newsItem(), WaveAnalysis{OptimalWave: 2, NewsType: "macro"})
	require.Len(t, candidates, 2)

	assert.Equal(t, "AAPL", candidates[0].Ticker)
	assert.Equal(t, types.SignalBuy, candidates[0].Action)
	assert.Equal(t, 2.5, candidates[0].ExpectedMove)
	assert.Equal(t, 65, candidates[0].Confidence)

	// Negative moves become absolute values.
	assert.Equal(t, 1.8, candidates[1].ExpectedMove)
	assert.Equal(t, types.SignalShort, candidates[1].Action)
}

func TestGenerateSignals_DropsUnknownActions(t *testing.T) {
	fake := &fakeLLM{response: `{"signals": [
		{"ticker": "AAPL", "action": "HOLD", "expected_move_percent": 1, "confidence": 60, "reasoning": "r"},
		{"ticker": "MSFT", "action": "SELL", "expected_move_percent": 1, "confidence": 60, "reasoning": "r"}
	]}`}
	a := NewAnalyzer(fake, 10)

	candidates := a.GenerateSignals(context.Background(), newsItem(), WaveAnalysis{OptimalWave: 1})
	assert.Empty(t, candidates)
}

func TestGenerateSignals_CapsAtMax(t *testing.T) {
	fake := &fakeLLM{response: `{"signals": [
		{"ticker": "A", "action": "BUY", "expected_move_percent": 1, "confidence": 60, "reasoning": "r"},
		{"ticker": "B", "action": "BUY", "expected_move_percent": 1, "confidence": 60, "reasoning": "r"},
		{"ticker": "C", "action": "BUY", "expected_move_percent": 1, "confidence": 60, "reasoning": "r"}
	]}`}
	a := NewAnalyzer(fake, 2)

	candidates := a.GenerateSignals(context.Background(), newsItem(), WaveAnalysis{OptimalWave: 1})
	assert.Len(t, candidates, 2)
}

func TestGenerateSignals_LLMFailure(t *testing.T) {
	fake := &fakeLLM{err: errors.New("boom")}
	a := NewAnalyzer(fake, 10)

	assert.Empty(t, a.GenerateSignals(context.Background(), newsItem(), WaveAnalysis{OptimalWave: 1}))
}
