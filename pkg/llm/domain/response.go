package domain

import "fmt"

// TokenUsage holds prompt/completion/total token counts. Total must equal
// prompt+completion; NewTokenUsage enforces this rather than trusting a
// caller-supplied total.
type TokenUsage struct {
	Prompt     int
	Completion int
	Total      int
}

// NewTokenUsage builds a TokenUsage with Total derived from Prompt and
// Completion, matching the invariant of spec §3.
func NewTokenUsage(prompt, completion int) TokenUsage {
	return TokenUsage{Prompt: prompt, Completion: completion, Total: prompt + completion}
}

// Valid reports whether the usage respects the non-negativity and sum
// invariants.
func (u TokenUsage) Valid() bool {
	return u.Prompt >= 0 && u.Completion >= 0 && u.Total == u.Prompt+u.Completion
}

// ProviderResponse is the immutable result of a successful provider
// invocation.
type ProviderResponse struct {
	Text         string
	LatencyMs    int64
	TokenUsage   TokenUsage
	Model        string
	FinishReason string
	Raw          map[string]interface{}
}

// Score extracts a numeric score from Raw (e.g. raw.score), used by the
// max_score consensus strategy. ok is false when no numeric score is
// present.
func (r ProviderResponse) Score() (value float64, ok bool) {
	if r.Raw == nil {
		return 0, false
	}
	v, present := r.Raw["score"]
	if !present {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func (u TokenUsage) String() string {
	return fmt.Sprintf("prompt=%d completion=%d total=%d", u.Prompt, u.Completion, u.Total)
}
