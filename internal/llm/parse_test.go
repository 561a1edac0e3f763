package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON_Plain(t *testing.T) {
	got, ok := ExtractJSON(`{"score": 42}`)
	assert.True(t, ok)
	assert.Equal(t, `{"score": 42}`, got)
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	got, ok := ExtractJSON("Here is my analysis:\n{\"score\": 42, \"nested\": {\"a\": 1}}\nHope that helps!")
	assert.True(t, ok)
	assert.Equal(t, `{"score": 42, "nested": {"a": 1}}`, got)
}

func TestExtractJSON_CodeFence(t *testing.T) {
	got, ok := ExtractJSON("```json\n{\"score\": 42}\n```")
	assert.True(t, ok)
	assert.Equal(t, `{"score": 42}`, got)
}

func TestExtractJSON_NoObject(t *testing.T) {
	_, ok := ExtractJSON("the market will go up")
	assert.False(t, ok)
}

func TestStripCodeFence_NoFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence(`{"a":1}`))
}

func TestStripCodeFence_PlainFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```\n{\"a\":1}\n```"))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-5, 0, 100))
	assert.Equal(t, 100, Clamp(250, 0, 100))
	assert.Equal(t, 73, Clamp(73, 0, 100))
}
