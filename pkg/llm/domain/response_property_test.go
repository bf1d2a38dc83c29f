package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// Property: NewTokenUsage always derives Total = Prompt + Completion,
// regardless of the two input magnitudes.
func TestProperty_NewTokenUsage_TotalIsSumOfPromptAndCompletion(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		prompt := rapid.IntRange(0, 1_000_000).Draw(rt, "prompt")
		completion := rapid.IntRange(0, 1_000_000).Draw(rt, "completion")

		usage := NewTokenUsage(prompt, completion)

		assert.Equal(t, prompt, usage.Prompt)
		assert.Equal(t, completion, usage.Completion)
		assert.Equal(t, prompt+completion, usage.Total)
		assert.True(t, usage.Valid())
	})
}

// Property: any TokenUsage with a Total that doesn't match Prompt+Completion
// is invalid, whichever direction the mismatch runs.
func TestProperty_TokenUsage_InvalidWhenTotalDisagrees(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		prompt := rapid.IntRange(0, 1000).Draw(rt, "prompt")
		completion := rapid.IntRange(0, 1000).Draw(rt, "completion")
		drift := rapid.IntRange(1, 100).Draw(rt, "drift")

		usage := TokenUsage{Prompt: prompt, Completion: completion, Total: prompt + completion + drift}
		assert.False(t, usage.Valid())
	})
}

// Property: negative Prompt or Completion is never valid even when Total
// happens to add up.
func TestProperty_TokenUsage_InvalidWhenNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		completion := rapid.IntRange(0, 1000).Draw(rt, "completion")
		negativePrompt := rapid.IntRange(-1000, -1).Draw(rt, "negativePrompt")

		usage := TokenUsage{Prompt: negativePrompt, Completion: completion, Total: negativePrompt + completion}
		assert.False(t, usage.Valid())
	})
}
