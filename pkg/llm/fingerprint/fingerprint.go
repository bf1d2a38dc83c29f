// Package fingerprint computes the stable request fingerprint used as a
// run's deterministic run_id (spec §6.2).
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	jsoniter "github.com/json-iterator/go"
)

// canonicalJSON is configured the same way as the teacher's pkg/util/json
// wrapper (jsoniter.ConfigCompatibleWithStandardLibrary); Go map keys are
// serialized in sorted order, which is what makes this hash stable across
// repeated runs for the same inputs.
var canonicalJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// tuple is the canonical shape hashed: (tag, prompt_text, options, max_tokens).
type tuple struct {
	Tag        string                 `json:"tag"`
	PromptText string                 `json:"prompt_text"`
	Options    map[string]interface{} `json:"options"`
	MaxTokens  *int                   `json:"max_tokens"`
}

// Compute returns the hex-encoded stable hash over
// (tag, prompt_text, options, max_tokens), per spec §6.2. Identical inputs
// yield an identical fingerprint regardless of execution fabric or map
// iteration order, since canonicalJSON sorts map keys before hashing.
func Compute(tag, promptText string, options map[string]interface{}, maxTokens *int) string {
	payload, err := canonicalJSON.Marshal(tuple{
		Tag:        tag,
		PromptText: promptText,
		Options:    options,
		MaxTokens:  maxTokens,
	})
	if err != nil {
		// Marshal of this tuple (strings, a map, and a *int) cannot fail;
		// treat it as an invariant violation rather than a hash failure.
		panic("fingerprint: canonical marshal failed: " + err.Error())
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
