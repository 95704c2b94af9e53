package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/TimurManjosov/goconfigship/internal/condition"
)

const (
	// MaxParameters is the maximum number of parameters per template.
	MaxParameters = 2000
	// MaxConditions is the maximum number of named conditions per template.
	MaxConditions = 500
	// MaxKeyLength is the maximum length for parameter keys and condition names.
	MaxKeyLength = 256
	// MaxValueSize is the maximum size of a single parameter value in bytes.
	MaxValueSize = 100 * 1024 // 100KB
	// MaxDescriptionLength is the maximum length for descriptions.
	MaxDescriptionLength = 500
)

// keyPattern matches alphanumeric characters, underscores, and hyphens.
var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidationResult holds the result of template validation.
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// NewValidationResult creates a passing validation result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  true,
		Errors: make(map[string]string),
	}
}

// AddError adds a field error and marks the result as invalid.
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// Validate checks a template before it is published. The evaluator tolerates
// malformed conditions at runtime by treating them as unsatisfied; Validate
// exists so that junk is rejected at the door instead of silently shipped.
func Validate(tpl *Template) *ValidationResult {
	result := NewValidationResult()
	if tpl == nil {
		result.AddError("template", "template is required")
		return result
	}

	if len(tpl.Parameters) > MaxParameters {
		result.AddError("parameters", fmt.Sprintf("too many parameters (max %d)", MaxParameters))
	}
	if len(tpl.Conditions) > MaxConditions {
		result.AddError("conditions", fmt.Sprintf("too many conditions (max %d)", MaxConditions))
	}

	names := make(map[string]bool, len(tpl.Conditions))
	for i, nc := range tpl.Conditions {
		field := fmt.Sprintf("conditions[%d]", i)
		validateConditionName(result, field, nc.Name, names)
		validateTree(result, field, nc.Condition, 0)
	}

	for key, param := range tpl.Parameters {
		field := "parameters." + key
		validateKey(result, field, key)
		if len(param.Description) > MaxDescriptionLength {
			result.AddError(field+".description", fmt.Sprintf("description exceeds %d characters", MaxDescriptionLength))
		}
		if param.DefaultValue != nil {
			validateValue(result, field+".defaultValue", *param.DefaultValue, param.ValueType)
		}
		for condName, pv := range param.ConditionalValues {
			if !names[condName] {
				result.AddError(field, fmt.Sprintf("conditional value references unknown condition %q", condName))
			}
			validateValue(result, field+".conditionalValues."+condName, pv, param.ValueType)
		}
	}
	return result
}

func validateConditionName(result *ValidationResult, field, name string, seen map[string]bool) {
	switch {
	case name == "":
		result.AddError(field+".name", "condition name is required")
	case len(name) > MaxKeyLength:
		result.AddError(field+".name", fmt.Sprintf("condition name exceeds %d characters", MaxKeyLength))
	case seen[name]:
		result.AddError(field+".name", fmt.Sprintf("duplicate condition name %q", name))
	}
	seen[name] = true
}

func validateKey(result *ValidationResult, field, key string) {
	switch {
	case key == "":
		result.AddError(field, "parameter key is required")
	case len(key) > MaxKeyLength:
		result.AddError(field, fmt.Sprintf("parameter key exceeds %d characters", MaxKeyLength))
	case !keyPattern.MatchString(key):
		result.AddError(field, "parameter key may only contain letters, numbers, underscores, and hyphens")
	}
}

func validateTree(result *ValidationResult, field string, c condition.Condition, depth int) {
	if depth >= condition.DefaultMaxDepth {
		result.AddError(field, fmt.Sprintf("condition tree deeper than %d levels", condition.DefaultMaxDepth))
		return
	}
	switch node := c.(type) {
	case condition.Or:
		for i, child := range node.Conditions {
			validateTree(result, fmt.Sprintf("%s.or[%d]", field, i), child, depth+1)
		}
	case condition.And:
		for i, child := range node.Conditions {
			validateTree(result, fmt.Sprintf("%s.and[%d]", field, i), child, depth+1)
		}
	case condition.True, condition.False:
	case condition.Percent:
		validatePercent(result, field, node)
	case condition.CustomSignal:
		validateSignal(result, field, node)
	default:
		result.AddError(field, "condition has no recognised variant")
	}
}

func validatePercent(result *ValidationResult, field string, node condition.Percent) {
	switch node.Operator {
	case condition.PercentLessOrEqual, condition.PercentGreaterThan:
		if node.MicroPercent > condition.TotalMicroPercent {
			result.AddError(field, fmt.Sprintf("microPercent exceeds %d", condition.TotalMicroPercent))
		}
	case condition.PercentBetween:
		if node.Range == nil {
			result.AddError(field, "BETWEEN requires microPercentRange")
			return
		}
		if node.Range.UpperBound > condition.TotalMicroPercent {
			result.AddError(field, fmt.Sprintf("microPercentRange upper bound exceeds %d", condition.TotalMicroPercent))
		}
		if node.Range.LowerBound > node.Range.UpperBound {
			result.AddError(field, "microPercentRange lower bound exceeds upper bound")
		}
	default:
		result.AddError(field, fmt.Sprintf("unknown percent operator %q", node.Operator))
	}
}

func validateSignal(result *ValidationResult, field string, node condition.CustomSignal) {
	if node.Key == "" {
		result.AddError(field, "customSignalKey is required")
	}
	if len(node.Targets) == 0 {
		result.AddError(field, "targetCustomSignalValues must not be empty")
	}
	switch node.Operator {
	case condition.SignalStringContains, condition.SignalStringDoesNotContain,
		condition.SignalStringExactlyMatches:
	case condition.SignalStringContainsRegex:
		for i, target := range node.Targets {
			if _, err := regexp.Compile(target); err != nil {
				result.AddError(fmt.Sprintf("%s.targets[%d]", field, i), "invalid regular expression")
			}
		}
	case condition.SignalNumericLessThan, condition.SignalNumericLessEqual,
		condition.SignalNumericEqual, condition.SignalNumericNotEqual,
		condition.SignalNumericGreaterThan, condition.SignalNumericGreaterEqual,
		condition.SignalVersionLessThan, condition.SignalVersionLessEqual,
		condition.SignalVersionEqual, condition.SignalVersionNotEqual,
		condition.SignalVersionGreaterThan, condition.SignalVersionGreaterEqual:
	default:
		result.AddError(field, fmt.Sprintf("unknown custom signal operator %q", node.Operator))
	}
}

func validateValue(result *ValidationResult, field string, pv ParameterValue, vt ValueType) {
	if pv.UseInAppDefault {
		return
	}
	if pv.Value == nil {
		result.AddError(field, "value or useInAppDefault is required")
		return
	}
	raw := *pv.Value
	if len(raw) > MaxValueSize {
		result.AddError(field, fmt.Sprintf("value exceeds %d bytes", MaxValueSize))
		return
	}
	switch vt {
	case TypeBoolean:
		if !isBoolString(raw) {
			result.AddError(field, "value is not a boolean")
		}
	case TypeNumber:
		if _, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err != nil {
			result.AddError(field, "value is not a number")
		}
	case TypeJSON:
		if !json.Valid([]byte(raw)) {
			result.AddError(field, "value is not valid JSON")
		}
	}
}

func isBoolString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y", "on", "0", "false", "f", "no", "n", "off":
		return true
	}
	return false
}
