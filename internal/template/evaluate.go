package template

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/TimurManjosov/goconfigship/internal/condition"
)

// ValueSource records where a resolved parameter value came from.
type ValueSource string

const (
	// SourceDefault means the parameter's default value applied.
	SourceDefault ValueSource = "default"
	// SourceConditional means a satisfied condition supplied the value.
	SourceConditional ValueSource = "conditional"
	// SourceStatic means no value is delivered; the client keeps its
	// in-app default.
	SourceStatic ValueSource = "static"
)

// Value is one resolved parameter value.
type Value struct {
	Raw    string      `json:"value"`
	Source ValueSource `json:"source"`
	// Condition names the satisfied condition that supplied the value.
	// Empty unless Source is conditional.
	Condition string `json:"condition,omitempty"`
}

// Config is the result of resolving a template against one context.
type Config struct {
	Values     map[string]Value   `json:"values"`
	Conditions *condition.Results `json:"conditions"`
	Version    int64              `json:"version"`
}

// Evaluate resolves a template into a per-client config.
//
// Every named condition is evaluated exactly once, in template order. Each
// parameter then takes the value of the FIRST satisfied condition (again in
// template order) that has an entry in its ConditionalValues, falling back
// to the parameter default, falling back to "use in-app default".
//
// Preconditions:
//   - tpl must be non-nil; eval must be non-nil
//   - ctx may be empty (percent conditions then never match)
//
// Postconditions:
//   - the result always has one Value per template parameter
//   - Conditions preserves template condition order
//   - evaluation never fails; malformed conditions count as unsatisfied
func Evaluate(tpl *Template, ctx condition.Context, eval *condition.Evaluator) *Config {
	results := eval.Evaluate(tpl.Conditions, ctx)

	values := make(map[string]Value, len(tpl.Parameters))
	for name, param := range tpl.Parameters {
		values[name] = resolve(param, tpl.Conditions, results)
	}
	return &Config{
		Values:     values,
		Conditions: results,
		Version:    tpl.Version.VersionNumber,
	}
}

func resolve(p Parameter, ordered []condition.NamedCondition, results *condition.Results) Value {
	for _, nc := range ordered {
		satisfied, ok := results.Get(nc.Name)
		if !ok || !satisfied {
			continue
		}
		pv, exists := p.ConditionalValues[nc.Name]
		if !exists {
			continue
		}
		return makeValue(pv, SourceConditional, nc.Name)
	}
	if p.DefaultValue != nil {
		return makeValue(*p.DefaultValue, SourceDefault, "")
	}
	return Value{Source: SourceStatic}
}

func makeValue(pv ParameterValue, source ValueSource, conditionName string) Value {
	if pv.UseInAppDefault || pv.Value == nil {
		return Value{Source: SourceStatic, Condition: conditionName}
	}
	return Value{Raw: *pv.Value, Source: source, Condition: conditionName}
}

// boolStrings are the accepted truthy spellings for GetBool, compared
// case-insensitively.
var boolStrings = []string{"1", "true", "t", "yes", "y", "on"}

// Value returns the resolved value for key.
func (c *Config) Value(key string) (Value, bool) {
	v, ok := c.Values[key]
	return v, ok
}

// GetString returns the resolved value for key, or "" when the key is
// unknown or carries no delivered value.
func (c *Config) GetString(key string) string {
	v, ok := c.Values[key]
	if !ok || v.Source == SourceStatic {
		return ""
	}
	return v.Raw
}

// GetBool interprets the value as a boolean. The spellings 1, true, t,
// yes, y and on (any case) are true; everything else is false.
func (c *Config) GetBool(key string) bool {
	raw := strings.ToLower(strings.TrimSpace(c.GetString(key)))
	for _, s := range boolStrings {
		if raw == s {
			return true
		}
	}
	return false
}

// GetInt interprets the value as an integer, returning 0 when it does not
// parse.
func (c *Config) GetInt(key string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(c.GetString(key)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// GetFloat interprets the value as a float, returning 0 when it does not
// parse.
func (c *Config) GetFloat(key string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(c.GetString(key)), 64)
	if err != nil {
		return 0
	}
	return f
}

// GetJSON unmarshals the value into dest.
func (c *Config) GetJSON(key string, dest any) error {
	return json.Unmarshal([]byte(c.GetString(key)), dest)
}
