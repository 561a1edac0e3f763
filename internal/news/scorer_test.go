package news

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeLLM struct {
	response string
	err      error
	prompt   string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func TestScore_Significant(t *testing.T) {
	fake := &fakeLLM{response: `{"significance_score": 92, "is_significant": true, "reasoning": "Fed rate cut moves everything"}`}
	s := NewScorer(fake, 60)

	result := s.Score(context.Background(), "Fed cuts rates 50bp", "Surprise cut")
	assert.Equal(t, 92, result.Score)
	assert.True(t, result.Significant)
	assert.Equal(t, "Fed rate cut moves everything", result.Reasoning)
}

func TestScore_BelowThreshold(t *testing.T) {
	fake := &fakeLLM{response: `{"significance_score": 5, "is_significant": false, "reasoning": "entertainment"}`}
	s := NewScorer(fake, 60)

	result := s.Score(context.Background(), "Celebrity breakfast", "")
	assert.Equal(t, 5, result.Score)
	assert.False(t, result.Significant)
}

func TestScore_ThresholdIsInclusive(t *testing.T) {
	fake := &fakeLLM{response: `{"significance_score": 60, "reasoning": "edge"}`}
	s := NewScorer(fake, 60)

	assert.True(t, s.Score(context.Background(), "h", "").Significant)
}

func TestScore_ClampsOutOfRange(t *testing.T) {
	fake := &fakeLLM{response: `{"significance_score": 250, "reasoning": "overexcited model"}`}
	s := NewScorer(fake, 60)

	assert.Equal(t, 100, s.Score(context.Background(), "h", "").Score)
}

func TestScore_NonNumericScoreIsZero(t *testing.T) {
	fake := &fakeLLM{response: `{"significance_score": "very high", "reasoning": "r"}`}
	s := NewScorer(fake, 60)

	result := s.Score(context.Background(), "h", "")
	assert.Equal(t, 0, result.Score)
	assert.False(t, result.Significant)
}

func TestScore_ProseAroundJSON(t *testing.T) {
	fake := &fakeLLM{response: "Sure! Here is the analysis:\n{\"significance_score\": 71, \"reasoning\": \"earnings\"}\nLet me know."}
	s := NewScorer(fake, 60)

	result := s.Score(context.Background(), "h", "")
	assert.Equal(t, 71, result.Score)
	assert.True(t, result.Significant)
}

func TestScore_LLMFailure(t *testing.T) {
	fake := &fakeLLM{err: errors.New("timeout")}
	s := NewScorer(fake, 60)

	result := s.Score(context.Background(), "h", "")
	assert.Equal(t, 0, result.Score)
	assert.False(t, result.Significant)
	assert.Error(t, result.Err)
	assert.Contains(t, result.Reasoning, "timeout")
}

func TestScore_TruncatesSummary(t *testing.T) {
	fake := &fakeLLM{response: `{"significance_score": 10, "reasoning": "r"}`}
	s := NewScorer(fake, 60)

	s.Score(context.Background(), "h", strings.Repeat("x", 2000))
	assert.NotContains(t, fake.prompt, strings.Repeat("x", 501))
	assert.Contains(t, fake.prompt, strings.Repeat("x", 500))
}
