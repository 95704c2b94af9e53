package condition

import (
	"testing"
)

func signalCtx(key string, value any) Context {
	return Context{Signals: map[string]any{key: value}}
}

func TestStringOperators(t *testing.T) {
	eval := testEvaluator()

	tests := []struct {
		name    string
		op      SignalOperator
		actual  any
		targets []string
		want    bool
	}{
		{"contains substring", SignalStringContains, "xcdx", []string{"cd"}, true},
		{"contains any target", SignalStringContains, "xcdx", []string{"zz", "cd"}, true},
		{"contains no target", SignalStringContains, "xcdx", []string{"zz", "yy"}, false},
		{"contains stringified number", SignalStringContains, 1234.0, []string{"23"}, true},
		{"does not contain", SignalStringDoesNotContain, "xcdx", []string{"zz", "yy"}, true},
		{"does not contain negates any match", SignalStringDoesNotContain, "xcdx", []string{"zz", "cd"}, false},
		{"exactly matches", SignalStringExactlyMatches, "hello", []string{"hello"}, true},
		{"exactly matches trims both sides", SignalStringExactlyMatches, "  hello ", []string{"hello  "}, true},
		{"exactly matches any target", SignalStringExactlyMatches, "b", []string{"a", "b"}, true},
		{"exactly matches is case sensitive", SignalStringExactlyMatches, "Hello", []string{"hello"}, false},
		{"no partial exact match", SignalStringExactlyMatches, "hello world", []string{"hello"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := CustomSignal{Operator: tt.op, Key: "sig", Targets: tt.targets}
			got := eval.EvaluateOne(tt.name, cond, signalCtx("sig", tt.actual))
			if got != tt.want {
				t.Errorf("%s %v vs %v = %v, want %v", tt.op, tt.actual, tt.targets, got, tt.want)
			}
		})
	}
}

func TestRegexOperator(t *testing.T) {
	eval := testEvaluator()

	tests := []struct {
		name    string
		actual  any
		targets []string
		want    bool
	}{
		{"anchored match", "abcd", []string{"^ab.*d$"}, true},
		{"substring match", "xx-prod-01", []string{"prod-\\d+"}, true},
		{"no match", "staging", []string{"^prod"}, false},
		{"invalid pattern matches nothing", "anything", []string{"("}, false},
		{"invalid pattern does not block later targets", "abcd", []string{"(", "bc"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := CustomSignal{Operator: SignalStringContainsRegex, Key: "sig", Targets: tt.targets}
			got := eval.EvaluateOne(tt.name, cond, signalCtx("sig", tt.actual))
			if got != tt.want {
				t.Errorf("CONTAINS_REGEX %v vs %v = %v, want %v", tt.actual, tt.targets, got, tt.want)
			}
		})
	}
}

func TestNumericOperators(t *testing.T) {
	eval := testEvaluator()

	tests := []struct {
		name    string
		op      SignalOperator
		actual  any
		targets []string
		want    bool
	}{
		{"string five equals five", SignalNumericEqual, "5", []string{"5"}, true},
		{"float five equals five", SignalNumericEqual, 5.0, []string{"5"}, true},
		{"int five equals five", SignalNumericEqual, 5, []string{"5"}, true},
		{"equal with decimals", SignalNumericEqual, "5.0", []string{"5"}, true},
		{"not equal", SignalNumericNotEqual, "5", []string{"6"}, true},
		{"not equal on equal values", SignalNumericNotEqual, "5", []string{"5"}, false},
		{"less than", SignalNumericLessThan, "4.9", []string{"5"}, true},
		{"less than on equal values", SignalNumericLessThan, "5", []string{"5"}, false},
		{"less or equal on equal values", SignalNumericLessEqual, "5", []string{"5"}, true},
		{"greater than", SignalNumericGreaterThan, "5.1", []string{"5"}, true},
		{"greater or equal", SignalNumericGreaterEqual, "5", []string{"5"}, true},
		{"negative numbers", SignalNumericLessThan, "-3", []string{"-2"}, true},
		{"only first target is used", SignalNumericEqual, "5", []string{"5", "9"}, true},
		{"later targets never match", SignalNumericEqual, "9", []string{"5", "9"}, false},
		{"non-numeric actual", SignalNumericEqual, "abc", []string{"5"}, false},
		{"non-numeric target", SignalNumericEqual, "5", []string{"abc"}, false},
		{"whitespace tolerated", SignalNumericEqual, " 5 ", []string{" 5"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := CustomSignal{Operator: tt.op, Key: "sig", Targets: tt.targets}
			got := eval.EvaluateOne(tt.name, cond, signalCtx("sig", tt.actual))
			if got != tt.want {
				t.Errorf("%s %v vs %v = %v, want %v", tt.op, tt.actual, tt.targets, got, tt.want)
			}
		})
	}
}

func TestVersionOperators(t *testing.T) {
	eval := testEvaluator()

	tests := []struct {
		name    string
		op      SignalOperator
		actual  any
		targets []string
		want    bool
	}{
		{"patch below", SignalVersionLessThan, "1.2.3", []string{"1.2.4"}, true},
		{"patch above", SignalVersionGreaterThan, "1.2.4", []string{"1.2.3"}, true},
		{"short form equals padded form", SignalVersionEqual, "1.2", []string{"1.2.0"}, true},
		{"padded form equals short form", SignalVersionEqual, "1.2.0.0", []string{"1.2"}, true},
		{"numeric segment compare not lexical", SignalVersionGreaterThan, "10.2", []string{"9.9"}, true},
		{"not equal", SignalVersionNotEqual, "1.2.3", []string{"1.2.4"}, true},
		{"less or equal on equal", SignalVersionLessEqual, "2.0", []string{"2"}, true},
		{"greater or equal on greater", SignalVersionGreaterEqual, "2.1", []string{"2.0.9"}, true},
		{"five segments", SignalVersionLessThan, "1.2.3.4.5", []string{"1.2.3.4.6"}, true},
		{"non-numeric segment", SignalVersionEqual, "1.2.x", []string{"1.2.0"}, false},
		{"non-numeric target segment", SignalVersionLessThan, "1.2", []string{"1.2.beta"}, false},
		{"non-numeric segment past the deciding one", SignalVersionGreaterThan, "1.3.x", []string{"1.2"}, false},
		{"empty actual", SignalVersionEqual, "", []string{"0"}, false},
		{"only first target is used", SignalVersionEqual, "2.0", []string{"1.0", "2.0"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := CustomSignal{Operator: tt.op, Key: "sig", Targets: tt.targets}
			got := eval.EvaluateOne(tt.name, cond, signalCtx("sig", tt.actual))
			if got != tt.want {
				t.Errorf("%s %v vs %v = %v, want %v", tt.op, tt.actual, tt.targets, got, tt.want)
			}
		})
	}
}

func TestSignalPreconditions(t *testing.T) {
	eval := testEvaluator()
	ctx := signalCtx("plan", "premium")

	tests := []struct {
		name string
		cond CustomSignal
	}{
		{"missing operator", CustomSignal{Key: "plan", Targets: []string{"premium"}}},
		{"missing key", CustomSignal{Operator: SignalStringContains, Targets: []string{"premium"}}},
		{"empty targets", CustomSignal{Operator: SignalStringContains, Key: "plan"}},
		{"unknown operator", CustomSignal{Operator: "STRING_SOUNDS_LIKE", Key: "plan", Targets: []string{"premium"}}},
		{"absent signal", CustomSignal{Operator: SignalStringContains, Key: "tier", Targets: []string{"premium"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := eval.EvaluateOne(tt.name, tt.cond, ctx); got {
				t.Errorf("EvaluateOne() = true, want false")
			}
		})
	}
}

func TestAbsentSignalNeverNegates(t *testing.T) {
	// DOES_NOT_CONTAIN is still false when the signal is absent: the missing
	// value fails the condition before the operator is consulted.
	eval := testEvaluator()
	cond := CustomSignal{Operator: SignalStringDoesNotContain, Key: "plan", Targets: []string{"zz"}}

	if got := eval.EvaluateOne("absent", cond, Context{}); got {
		t.Errorf("DOES_NOT_CONTAIN with absent signal = true, want false")
	}
}
