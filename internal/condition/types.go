package condition

// PercentOperator selects how a percent condition compares the computed
// micro-percentile against its configured bounds.
type PercentOperator string

// Recognised percent operators. Anything else (including an explicit
// UNKNOWN) never matches.
const (
	PercentLessOrEqual PercentOperator = "LESS_OR_EQUAL"
	PercentGreaterThan PercentOperator = "GREATER_THAN"
	PercentBetween     PercentOperator = "BETWEEN"
	PercentUnknown     PercentOperator = "UNKNOWN"
)

// SignalOperator selects the comparison a custom-signal condition applies
// between the context value and its target values.
type SignalOperator string

// Recognised custom-signal operators, grouped by comparison family.
const (
	SignalStringContains       SignalOperator = "STRING_CONTAINS"
	SignalStringDoesNotContain SignalOperator = "STRING_DOES_NOT_CONTAIN"
	SignalStringExactlyMatches SignalOperator = "STRING_EXACTLY_MATCHES"
	SignalStringContainsRegex  SignalOperator = "STRING_CONTAINS_REGEX"

	SignalNumericLessThan     SignalOperator = "NUMERIC_LESS_THAN"
	SignalNumericLessEqual    SignalOperator = "NUMERIC_LESS_EQUAL"
	SignalNumericEqual        SignalOperator = "NUMERIC_EQUAL"
	SignalNumericNotEqual     SignalOperator = "NUMERIC_NOT_EQUAL"
	SignalNumericGreaterThan  SignalOperator = "NUMERIC_GREATER_THAN"
	SignalNumericGreaterEqual SignalOperator = "NUMERIC_GREATER_EQUAL"

	SignalVersionLessThan     SignalOperator = "SEMANTIC_VERSION_LESS_THAN"
	SignalVersionLessEqual    SignalOperator = "SEMANTIC_VERSION_LESS_EQUAL"
	SignalVersionEqual        SignalOperator = "SEMANTIC_VERSION_EQUAL"
	SignalVersionNotEqual     SignalOperator = "SEMANTIC_VERSION_NOT_EQUAL"
	SignalVersionGreaterThan  SignalOperator = "SEMANTIC_VERSION_GREATER_THAN"
	SignalVersionGreaterEqual SignalOperator = "SEMANTIC_VERSION_GREATER_EQUAL"
)

// Condition is one node of a condition expression tree. The six concrete
// variants below are the only implementations. A nil Condition is the defined
// "unsatisfied" node: it is not an error and always evaluates to false.
type Condition interface {
	isCondition()
}

// NamedCondition pairs a unique name with the root of a condition tree.
type NamedCondition struct {
	Name      string
	Condition Condition
}

// Or matches when any child matches, short-circuiting left to right.
// An empty child list never matches.
type Or struct {
	Conditions []Condition
}

// And matches when every child matches, short-circuiting left to right.
// An empty child list always matches.
type And struct {
	Conditions []Condition
}

// True is the literal leaf that always matches.
type True struct{}

// False is the literal leaf that never matches.
type False struct{}

// Percent buckets the context's randomization ID into [0, 100_000_000)
// micro-percent units and compares the bucket against the configured bounds.
// See Bucket for the hashing contract.
type Percent struct {
	// Seed namespaces the hash so independent rollouts bucket independently.
	Seed         string
	Operator     PercentOperator
	MicroPercent uint32
	// Range is consulted only by the BETWEEN operator. Absent bounds
	// default to zero.
	Range *MicroPercentRange
}

// MicroPercentRange bounds a BETWEEN percent condition: the lower bound is
// exclusive, the upper bound inclusive.
type MicroPercentRange struct {
	LowerBound uint32 `json:"microPercentLowerBound"`
	UpperBound uint32 `json:"microPercentUpperBound"`
}

// CustomSignal compares one value from the evaluation context against a list
// of target values using the configured operator.
type CustomSignal struct {
	Operator SignalOperator
	// Key selects the signal from Context.Signals.
	Key string
	// Targets holds the comparison values. String-family operators match if
	// any target satisfies the predicate; numeric and version operators use
	// only the first target.
	Targets []string
}

func (Or) isCondition()           {}
func (And) isCondition()          {}
func (True) isCondition()         {}
func (False) isCondition()        {}
func (Percent) isCondition()      {}
func (CustomSignal) isCondition() {}

// Context carries the per-call inputs a condition tree is evaluated against.
// It is read-only for the duration of an Evaluate call.
type Context struct {
	// RandomizationID is the stable per-client identifier hashed by percent
	// conditions. When empty, every percent condition evaluates to false.
	RandomizationID string `json:"randomizationId,omitempty"`
	// Signals holds caller-supplied key/value pairs compared by
	// custom-signal conditions. Values are strings or numbers.
	Signals map[string]any `json:"signals,omitempty"`
}
