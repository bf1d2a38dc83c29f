// Package gate implements the consensus engine's schema admission check:
// a candidate response must parse as JSON and, when a schema is configured,
// carry every required top-level key.
package gate

import (
	"encoding/json"
	"fmt"

	sdomain "github.com/nilfrost/llmorch/pkg/schema/domain"
)

// Check validates text against schema. A nil schema only checks that text is
// well-formed JSON; this keeps the gate usable even when callers don't
// configure a schema but still want malformed candidates excluded from
// consensus voting.
func Check(schema *sdomain.Schema, text string) *sdomain.ValidationResult {
	var payload interface{}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return &sdomain.ValidationResult{
			Valid:  false,
			Errors: []string{fmt.Sprintf("invalid json: %v", err)},
		}
	}

	if schema == nil || len(schema.Required) == 0 {
		return &sdomain.ValidationResult{Valid: true}
	}

	obj, ok := payload.(map[string]interface{})
	if !ok {
		return &sdomain.ValidationResult{
			Valid:  false,
			Errors: []string{"schema requires a JSON object"},
		}
	}

	var missing []string
	for _, key := range schema.Required {
		if _, present := obj[key]; !present {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &sdomain.ValidationResult{Valid: false, Missing: missing}
	}
	return &sdomain.ValidationResult{Valid: true}
}

// IsComplete reports whether text carries every required key of schema,
// without caring whether text parses to anything else invalid. Used by the
// consensus engine's bucket-completeness tiebreak, which prefers a
// schema-complete bucket over an equally-sized incomplete one.
func IsComplete(schema *sdomain.Schema, text string) bool {
	if schema == nil || len(schema.Required) == 0 {
		return true
	}
	result := Check(schema, text)
	return result.Valid
}
