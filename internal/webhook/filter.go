package webhook

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/diegoholiveira/jsonlogic/v3"
)

// ErrInvalidFilter is returned when an endpoint filter is not valid JSON Logic.
var ErrInvalidFilter = errors.New("invalid filter: not valid JSON Logic")

// matchesFilter applies an endpoint's JSON Logic filter to the event
// payload. An empty filter matches everything; an invalid filter or an
// evaluation error suppresses delivery.
func matchesFilter(filter json.RawMessage, payload []byte) (bool, error) {
	if len(filter) == 0 {
		return true, nil
	}

	var result bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(filter), bytes.NewReader(payload), &result); err != nil {
		return false, ErrInvalidFilter
	}

	var value any
	if err := json.Unmarshal(result.Bytes(), &value); err != nil {
		return false, err
	}
	return isTruthy(value), nil
}

// ValidateFilter checks an endpoint filter at load time so broken rules
// surface before the first delivery.
func ValidateFilter(filter json.RawMessage) error {
	if len(filter) == 0 {
		return nil
	}
	var rule any
	if err := json.Unmarshal(filter, &rule); err != nil {
		return ErrInvalidFilter
	}
	var result bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(filter), bytes.NewReader([]byte("{}")), &result); err != nil {
		return ErrInvalidFilter
	}
	return nil
}

// isTruthy follows JavaScript-like truthiness rules for filter results.
func isTruthy(v any) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
