package consensus

import (
	"encoding/json"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
	sdomain "github.com/nilfrost/llmorch/pkg/schema/domain"
)

var canonicalJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// bucket groups observations whose response text normalizes to the same
// key, per spec §4.6 step 3.
type bucket struct {
	key      string
	members  []domain.ConsensusObservation
	complete bool
}

// normalizeText implements the plain-text normalization: trim, collapse
// internal whitespace, lowercase.
func normalizeText(text string) string {
	fields := strings.Fields(text)
	return strings.ToLower(strings.Join(fields, " "))
}

// bucketKey computes the key an observation's response text buckets under.
// When schema is non-nil and the text parses as JSON, the canonical
// sorted-key JSON serialization is used instead of the plain-text
// normalization, so semantically-identical JSON responses with differing
// key order or whitespace bucket together.
func bucketKey(schema *sdomain.Schema, text string) string {
	if schema != nil {
		var payload interface{}
		if err := json.Unmarshal([]byte(text), &payload); err == nil {
			if canonical, err := canonicalJSON.Marshal(payload); err == nil {
				return string(canonical)
			}
		}
	}
	return normalizeText(text)
}

// buildBuckets groups observations by bucketKey, recording whether each
// bucket is schema-complete (spec §4.6 step 3's "schema-complete" bucket
// preference).
func buildBuckets(schema *sdomain.Schema, observations []domain.ConsensusObservation, isComplete func(text string) bool) []*bucket {
	byKey := map[string]*bucket{}
	var order []string
	for _, obs := range observations {
		key := bucketKey(schema, obs.Response.Text)
		b, ok := byKey[key]
		if !ok {
			b = &bucket{key: key, complete: isComplete(obs.Response.Text)}
			byKey[key] = b
			order = append(order, key)
		}
		b.members = append(b.members, obs)
	}
	out := make([]*bucket, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}

func weightOf(weights map[string]float64, providerID string) float64 {
	if weights == nil {
		return 1.0
	}
	if w, ok := weights[providerID]; ok {
		return w
	}
	return 1.0
}

func (b *bucket) totalWeight(weights map[string]float64) float64 {
	var total float64
	for _, m := range b.members {
		total += weightOf(weights, m.ProviderID)
	}
	return total
}
