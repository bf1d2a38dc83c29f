// Package sink provides EventSink implementations: a memory sink for tests,
// and a JSONL file sink for production use. Both serialize writes so JSONL
// lines remain whole under concurrent emission (spec §5).
package sink

import (
	"os"
	"sync"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
	ujson "github.com/nilfrost/llmorch/pkg/util/json"
)

// MemorySink accumulates events in order; used by tests to assert on event
// sequences and field values.
type MemorySink struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Emit(e domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events returns a snapshot of the events recorded so far.
func (s *MemorySink) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByType returns the subset of recorded events matching t, in emission
// order.
func (s *MemorySink) ByType(t domain.EventType) []domain.Event {
	var out []domain.Event
	for _, e := range s.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// JSONLSink appends one JSON object per line to an underlying file. Writes
// are serialized with a mutex so concurrent emitters never interleave
// partial lines. Per spec §4.4/§7, write failures are swallowed rather than
// surfaced to the caller of Run/RunAsync.
type JSONLSink struct {
	mu   sync.Mutex
	file *os.File
}

// OpenJSONLSink opens path for append-only JSONL writes, creating it if
// needed; existing content is kept and new lines are appended after it.
func OpenJSONLSink(path string) (*JSONLSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLSink{file: f}, nil
}

func (s *JSONLSink) Emit(e domain.Event) {
	line := flatten(e)
	data, err := ujson.Marshal(line)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.file.Write(data) // sink write failures are non-fatal, per spec §7
}

// Close closes the underlying file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// flatten merges an Event's envelope and Fields into a single map so each
// JSONL line is a flat object rather than a nested {envelope, fields}
// shape, matching the field lists of spec §6.2.
func flatten(e domain.Event) map[string]interface{} {
	out := map[string]interface{}{
		"event":               e.Type,
		"ts":                  e.Ts,
		"run_id":              e.RunID,
		"request_fingerprint": e.RequestFingerprint,
		"mode":                e.Mode,
		"providers":           e.Providers,
		"shadow_used":         e.ShadowUsed,
	}
	if e.ShadowProviderID != "" {
		out["shadow_provider_id"] = e.ShadowProviderID
	}
	if e.TraceID != "" {
		out["trace_id"] = e.TraceID
	}
	if e.ProjectID != "" {
		out["project_id"] = e.ProjectID
	}
	for k, v := range e.Fields {
		out[k] = v
	}
	return out
}
