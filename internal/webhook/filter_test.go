package webhook

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestMatchesFilter(t *testing.T) {
	payload := []byte(`{"event":"template.published","version":5,"actor":"admin"}`)

	tests := []struct {
		name    string
		filter  string
		want    bool
		wantErr bool
	}{
		{"empty filter matches", "", true, false},
		{"event equality match", `{"==":[{"var":"event"},"template.published"]}`, true, false},
		{"event equality mismatch", `{"==":[{"var":"event"},"template.rolled_back"]}`, false, false},
		{"numeric comparison", `{">":[{"var":"version"},3]}`, true, false},
		{"numeric comparison mismatch", `{">":[{"var":"version"},10]}`, false, false},
		{"missing variable is falsy", `{"var":"nope"}`, false, false},
		{"constant true", `true`, true, false},
		{"invalid json", `{"==":`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var filter json.RawMessage
			if tt.filter != "" {
				filter = json.RawMessage(tt.filter)
			}
			got, err := matchesFilter(filter, payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("matchesFilter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("matchesFilter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateFilter(t *testing.T) {
	if err := ValidateFilter(nil); err != nil {
		t.Errorf("ValidateFilter(nil) = %v, want nil", err)
	}
	if err := ValidateFilter(json.RawMessage(`{"==":[{"var":"event"},"x"]}`)); err != nil {
		t.Errorf("ValidateFilter(valid) = %v, want nil", err)
	}
	if err := ValidateFilter(json.RawMessage(`{"==":`)); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("ValidateFilter(broken) = %v, want ErrInvalidFilter", err)
	}
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"nil", nil, false},
		{"true", true, true},
		{"false", false, false},
		{"zero", float64(0), false},
		{"nonzero", float64(1.5), true},
		{"empty string", "", false},
		{"string", "x", true},
		{"empty array", []any{}, false},
		{"array", []any{1}, true},
		{"empty object", map[string]any{}, false},
		{"object", map[string]any{"k": "v"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTruthy(tt.in); got != tt.want {
				t.Errorf("isTruthy(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
