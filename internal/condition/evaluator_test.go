package condition

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func testEvaluator() *Evaluator {
	return NewEvaluator(zerolog.Nop())
}

func TestEvaluateLiterals(t *testing.T) {
	eval := testEvaluator()
	ctx := Context{}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"true literal", True{}, true},
		{"false literal", False{}, false},
		{"nil condition", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := eval.EvaluateOne(tt.name, tt.cond, ctx); got != tt.want {
				t.Errorf("EvaluateOne() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateOrAnd(t *testing.T) {
	eval := testEvaluator()
	ctx := Context{}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"empty or never matches", Or{}, false},
		{"empty and always matches", And{}, true},
		{"or any true", Or{Conditions: []Condition{False{}, True{}}}, true},
		{"or all false", Or{Conditions: []Condition{False{}, False{}}}, false},
		{"and all true", And{Conditions: []Condition{True{}, True{}}}, true},
		{"and any false", And{Conditions: []Condition{True{}, False{}}}, false},
		{"nil child is false", Or{Conditions: []Condition{nil}}, false},
		{"nested", Or{Conditions: []Condition{
			And{Conditions: []Condition{True{}, False{}}},
			And{Conditions: []Condition{True{}, True{}}},
		}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := eval.EvaluateOne(tt.name, tt.cond, ctx); got != tt.want {
				t.Errorf("EvaluateOne() = %v, want %v", got, tt.want)
			}
		})
	}
}

// nestedAnd builds a chain of n And nodes around a True leaf, so the leaf
// sits at recursion depth n.
func nestedAnd(n int) Condition {
	var c Condition = True{}
	for i := 0; i < n; i++ {
		c = And{Conditions: []Condition{c}}
	}
	return c
}

func TestRecursionLimit(t *testing.T) {
	eval := testEvaluator()
	ctx := Context{}

	if got := eval.EvaluateOne("within limit", nestedAnd(9), ctx); !got {
		t.Errorf("chain with leaf at depth 9 = false, want true")
	}
	if got := eval.EvaluateOne("beyond limit", nestedAnd(10), ctx); got {
		t.Errorf("chain with leaf at depth 10 = true, want false")
	}
}

func TestRecursionLimitLogs(t *testing.T) {
	var buf bytes.Buffer
	eval := NewEvaluator(zerolog.New(&buf))

	eval.EvaluateOne("deep", nestedAnd(10), Context{})

	if !strings.Contains(buf.String(), "recursion limit") {
		t.Errorf("expected a recursion limit diagnostic, got %q", buf.String())
	}
}

func TestShortCircuit(t *testing.T) {
	// A satisfied Or must not visit later children. The over-deep chain
	// would emit a recursion warning if it were evaluated.
	var buf bytes.Buffer
	eval := NewEvaluator(zerolog.New(&buf))
	ctx := Context{}

	or := Or{Conditions: []Condition{True{}, nestedAnd(20)}}
	if got := eval.EvaluateOne("or", or, ctx); !got {
		t.Fatalf("EvaluateOne(or) = false, want true")
	}
	if buf.Len() != 0 {
		t.Errorf("or visited children past the first match: %q", buf.String())
	}

	buf.Reset()
	and := And{Conditions: []Condition{False{}, nestedAnd(20)}}
	if got := eval.EvaluateOne("and", and, ctx); got {
		t.Fatalf("EvaluateOne(and) = true, want false")
	}
	if buf.Len() != 0 {
		t.Errorf("and visited children past the first miss: %q", buf.String())
	}
}

func TestEvaluatePreservesOrder(t *testing.T) {
	eval := testEvaluator()

	conditions := []NamedCondition{
		{Name: "zulu", Condition: True{}},
		{Name: "alpha", Condition: False{}},
		{Name: "mike", Condition: True{}},
	}
	results := eval.Evaluate(conditions, Context{})

	wantNames := []string{"zulu", "alpha", "mike"}
	gotNames := results.Names()
	if len(gotNames) != len(wantNames) {
		t.Fatalf("Names() = %v, want %v", gotNames, wantNames)
	}
	for i, name := range wantNames {
		if gotNames[i] != name {
			t.Errorf("Names()[%d] = %q, want %q", i, gotNames[i], name)
		}
	}
	for name, want := range map[string]bool{"zulu": true, "alpha": false, "mike": true} {
		if got, ok := results.Get(name); !ok || got != want {
			t.Errorf("Get(%q) = %v, %v, want %v, true", name, got, ok, want)
		}
	}
}

func TestEvaluateDuplicateNames(t *testing.T) {
	eval := testEvaluator()

	conditions := []NamedCondition{
		{Name: "dup", Condition: True{}},
		{Name: "other", Condition: True{}},
		{Name: "dup", Condition: False{}},
	}
	results := eval.Evaluate(conditions, Context{})

	if results.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", results.Len())
	}
	gotNames := results.Names()
	if gotNames[0] != "dup" || gotNames[1] != "other" {
		t.Errorf("Names() = %v, want [dup other]", gotNames)
	}
	if got, _ := results.Get("dup"); got {
		t.Errorf("Get(dup) = true, want false (last write wins)")
	}
}
