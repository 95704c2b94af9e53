package condition

import (
	"bytes"
	"encoding/json"
)

// Results maps condition names to their outcomes while remembering first
// insertion order. Re-setting a name overwrites its value but keeps its
// original position, so the ordering always mirrors the evaluated list.
type Results struct {
	names  []string
	values map[string]bool
}

func newResults(capacity int) *Results {
	return &Results{
		names:  make([]string, 0, capacity),
		values: make(map[string]bool, capacity),
	}
}

func (r *Results) set(name string, value bool) {
	if _, exists := r.values[name]; !exists {
		r.names = append(r.names, name)
	}
	r.values[name] = value
}

// Get reports the outcome for name and whether it was evaluated.
func (r *Results) Get(name string) (value, ok bool) {
	value, ok = r.values[name]
	return value, ok
}

// Names returns the condition names in evaluation order.
func (r *Results) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of distinct condition names.
func (r *Results) Len() int {
	return len(r.names)
}

// Map returns a plain copy for callers that do not care about order.
func (r *Results) Map() map[string]bool {
	out := make(map[string]bool, len(r.values))
	for name, value := range r.values {
		out[name] = value
	}
	return out
}

// MarshalJSON writes an object whose keys appear in evaluation order.
func (r *Results) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if r.values[name] {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
