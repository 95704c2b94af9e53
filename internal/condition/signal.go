package condition

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// signalHandler implements one custom-signal operator. Handlers are pure:
// they see the context value and the target list and report whether the
// condition is satisfied.
type signalHandler interface {
	check(actual any, targets []string) bool
}

// signalHandlers maps each recognised operator to its implementation.
// Unknown operators fall through to false at the dispatch site.
var signalHandlers = map[SignalOperator]signalHandler{
	SignalStringContains:       stringMatchHandler{match: strings.Contains},
	SignalStringDoesNotContain: negateHandler{inner: stringMatchHandler{match: strings.Contains}},
	SignalStringExactlyMatches: stringMatchHandler{match: trimmedEquals},
	SignalStringContainsRegex:  regexMatchHandler{},

	SignalNumericLessThan:     numericHandler{cmp: func(sign int) bool { return sign < 0 }},
	SignalNumericLessEqual:    numericHandler{cmp: func(sign int) bool { return sign <= 0 }},
	SignalNumericEqual:        numericHandler{cmp: func(sign int) bool { return sign == 0 }},
	SignalNumericNotEqual:     numericHandler{cmp: func(sign int) bool { return sign != 0 }},
	SignalNumericGreaterThan:  numericHandler{cmp: func(sign int) bool { return sign > 0 }},
	SignalNumericGreaterEqual: numericHandler{cmp: func(sign int) bool { return sign >= 0 }},

	SignalVersionLessThan:     versionHandler{cmp: func(sign int) bool { return sign < 0 }},
	SignalVersionLessEqual:    versionHandler{cmp: func(sign int) bool { return sign <= 0 }},
	SignalVersionEqual:        versionHandler{cmp: func(sign int) bool { return sign == 0 }},
	SignalVersionNotEqual:     versionHandler{cmp: func(sign int) bool { return sign != 0 }},
	SignalVersionGreaterThan:  versionHandler{cmp: func(sign int) bool { return sign > 0 }},
	SignalVersionGreaterEqual: versionHandler{cmp: func(sign int) bool { return sign >= 0 }},
}

func (e *Evaluator) evaluateSignal(name string, node CustomSignal, ctx Context) bool {
	if node.Operator == "" || node.Key == "" || len(node.Targets) == 0 {
		e.log.Debug().Str("condition", name).Msg("custom signal condition is missing operator, key or targets")
		return false
	}
	actual, ok := ctx.Signals[node.Key]
	if !ok {
		return false
	}
	handler, ok := signalHandlers[node.Operator]
	if !ok {
		e.log.Debug().Str("condition", name).Str("operator", string(node.Operator)).Msg("unknown custom signal operator")
		return false
	}
	return handler.check(actual, node.Targets)
}

// stringMatchHandler satisfies the condition when any target matches the
// stringified context value under the configured predicate.
type stringMatchHandler struct {
	match func(actual, target string) bool
}

func (h stringMatchHandler) check(actual any, targets []string) bool {
	s := signalString(actual)
	for _, target := range targets {
		if h.match(s, target) {
			return true
		}
	}
	return false
}

// negateHandler inverts the wrapped handler. Used for DOES_NOT_CONTAIN,
// which is defined as the logical NOT of the any-target contains result.
type negateHandler struct {
	inner signalHandler
}

func (h negateHandler) check(actual any, targets []string) bool {
	return !h.inner.check(actual, targets)
}

func trimmedEquals(actual, target string) bool {
	return strings.TrimSpace(actual) == strings.TrimSpace(target)
}

// regexMatchHandler satisfies the condition when any target, treated as an
// RE2 pattern, matches a substring of the stringified context value.
// Targets that fail to compile match nothing; the remaining targets are
// still tried.
type regexMatchHandler struct{}

func (h regexMatchHandler) check(actual any, targets []string) bool {
	s := signalString(actual)
	for _, target := range targets {
		re, ok := compiledPattern(target)
		if !ok {
			continue
		}
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

var regexCache sync.Map // pattern string -> *regexp.Regexp

// compiledPattern compiles and caches target patterns. Templates reuse a
// small set of patterns across many evaluations, so compiling once pays off.
func compiledPattern(pattern string) (*regexp.Regexp, bool) {
	if cached, ok := regexCache.Load(pattern); ok {
		if cached == nil {
			return nil, false
		}
		return cached.(*regexp.Regexp), true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		regexCache.Store(pattern, nil)
		return nil, false
	}
	regexCache.Store(pattern, re)
	return re, true
}

// numericHandler parses the context value and the first target as numbers
// and applies cmp to the sign of actual - target. Either side failing to
// parse makes the condition false.
type numericHandler struct {
	cmp func(sign int) bool
}

func (h numericHandler) check(actual any, targets []string) bool {
	actualNum, ok := signalNumber(actual)
	if !ok {
		return false
	}
	targetNum, err := strconv.ParseFloat(strings.TrimSpace(targets[0]), 64)
	if err != nil || math.IsNaN(targetNum) {
		return false
	}
	return h.cmp(compareSign(actualNum, targetNum))
}

func compareSign(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// versionHandler compares the context value and the first target as dotted
// numeric versions and applies cmp to the resulting sign. Either side
// failing to parse makes the condition false.
type versionHandler struct {
	cmp func(sign int) bool
}

func (h versionHandler) check(actual any, targets []string) bool {
	sign, ok := compareVersions(signalString(actual), targets[0])
	if !ok {
		return false
	}
	return h.cmp(sign)
}

// compareVersions splits both versions on "." and compares integer segments
// left to right, treating missing trailing segments as zero so "1.2" equals
// "1.2.0". It returns the sign of actual - target. Every segment of both
// sides must parse as an integer, even ones past the first difference;
// otherwise ok is false.
func compareVersions(actual, target string) (sign int, ok bool) {
	actualSegs, ok := versionSegments(actual)
	if !ok {
		return 0, false
	}
	targetSegs, ok := versionSegments(target)
	if !ok {
		return 0, false
	}
	n := len(actualSegs)
	if len(targetSegs) > n {
		n = len(targetSegs)
	}
	for i := 0; i < n; i++ {
		var a, b int64
		if i < len(actualSegs) {
			a = actualSegs[i]
		}
		if i < len(targetSegs) {
			b = targetSegs[i]
		}
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		}
	}
	return 0, true
}

func versionSegments(version string) ([]int64, bool) {
	parts := strings.Split(strings.TrimSpace(version), ".")
	segments := make([]int64, len(parts))
	for i, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, false
		}
		segments[i] = n
	}
	return segments, true
}

// signalString renders a context value the way it would appear in a config
// payload: strings pass through, numbers use their shortest decimal form.
func signalString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case uint64:
		return strconv.FormatUint(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// signalNumber coerces a context value to a float64, accepting native
// numbers and numeric strings.
func signalNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
