package news

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/newswave/newswave/internal/llm"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SIGNIFICANCE SCORER - LLM grading of market impact
// ═══════════════════════════════════════════════════════════════════════════════

const summaryLimit = 500

const scorePrompt = `Rate the significance of this news for financial markets and traders.

Headline: %s
Content: %s

Answer STRICTLY as JSON:
{
  "significance_score": <number 0-100>,
  "is_significant": <true or false>,
  "reasoning": "<short explanation>"
}

Scoring criteria:
- 80-100: critically important (major mergers, Fed decisions, geopolitical crises)
- 60-79: very important (earnings of major companies, macroeconomic data)
- 40-59: moderately important (sector news, new products of large companies)
- 20-39: minor (personnel changes, small events)
- 0-19: not important (entertainment, opinion pieces, tips)`

// completer is the slice of the LLM client the scorer needs.
type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ScoreResult is the grading outcome. A failed call scores 0 with the error
// as reasoning, so the item is persisted and never retried.
type ScoreResult struct {
	Score       int
	Significant bool
	Reasoning   string
	Err         error
}

type Scorer struct {
	llm       completer
	threshold int
}

// NewScorer builds the scorer with the significance threshold.
func NewScorer(client completer, threshold int) *Scorer {
	return &Scorer{llm: client, threshold: threshold}
}

// Score grades one article. The summary is truncated before prompting.
func (s *Scorer) Score(ctx context.Context, headline, summary string) ScoreResult {
	if len(summary) > summaryLimit {
		summary = summary[:summaryLimit]
	}

	response, err := s.llm.Complete(ctx, fmt.Sprintf(scorePrompt, headline, summary))
	if err != nil {
		log.Error().Err(err).Msg("Significance scoring failed")
		return ScoreResult{Reasoning: "LLM error: " + err.Error(), Err: err}
	}

	return s.parse(response)
}

func (s *Scorer) parse(response string) ScoreResult {
	raw, ok := llm.ExtractJSON(response)
	if !ok {
		log.Error().Str("response", truncate(response, 200)).Msg("No JSON in scorer response")
		return ScoreResult{Reasoning: "parse error: no JSON in response"}
	}

	var parsed struct {
		Score     json.Number `json:"significance_score"`
		Reasoning string      `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.Error().Err(err).Msg("Scorer JSON parse error")
		return ScoreResult{Reasoning: "parse error: " + err.Error()}
	}

	// Non-numeric scores count as 0.
	scoreFloat, err := parsed.Score.Float64()
	if err != nil {
		scoreFloat = 0
	}
	score := llm.Clamp(int(scoreFloat), 0, 100)

	reasoning := parsed.Reasoning
	if reasoning == "" {
		reasoning = "No reasoning provided"
	}

	return ScoreResult{
		Score:       score,
		Significant: score >= s.threshold,
		Reasoning:   reasoning,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
