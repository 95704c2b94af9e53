// Package template defines the config template model and resolves templates
// into per-client configs using the condition evaluator.
package template

import (
	"encoding/json"
	"time"

	"github.com/TimurManjosov/goconfigship/internal/condition"
)

// ValueType declares how a parameter's string value should be interpreted
// by clients. It is advisory for delivery and enforced at publish time.
type ValueType string

const (
	TypeString  ValueType = "STRING"
	TypeBoolean ValueType = "BOOLEAN"
	TypeNumber  ValueType = "NUMBER"
	TypeJSON    ValueType = "JSON"
)

// UpdateType records how a template version came to exist.
type UpdateType string

const (
	UpdatePublish  UpdateType = "publish"
	UpdateRollback UpdateType = "rollback"
	UpdateSeed     UpdateType = "seed"
)

// Template is one immutable config version: the parameters to deliver and
// the named conditions that gate them. Condition order is significant; it is
// both evaluation order and conditional-value priority.
type Template struct {
	Parameters map[string]Parameter       `json:"parameters,omitempty"`
	Conditions []condition.NamedCondition `json:"conditions,omitempty"`
	Version    Version                    `json:"version"`
}

// Parameter is a single deliverable config key.
type Parameter struct {
	// DefaultValue applies when no referenced condition is satisfied.
	// A nil default means clients fall back to their in-app value.
	DefaultValue *ParameterValue `json:"defaultValue,omitempty"`
	// ConditionalValues maps condition names to the value delivered when
	// that condition is the first satisfied one in template order.
	ConditionalValues map[string]ParameterValue `json:"conditionalValues,omitempty"`
	Description       string                    `json:"description,omitempty"`
	ValueType         ValueType                 `json:"valueType,omitempty"`
}

// ParameterValue either carries an explicit value or directs the client to
// use its in-app default (no value delivered).
type ParameterValue struct {
	Value           *string `json:"value,omitempty"`
	UseInAppDefault bool    `json:"useInAppDefault,omitempty"`
}

// NewValue returns an explicit parameter value.
func NewValue(s string) ParameterValue {
	return ParameterValue{Value: &s}
}

// InAppDefault returns the "use in-app default" marker value.
func InAppDefault() ParameterValue {
	return ParameterValue{UseInAppDefault: true}
}

// Version is the metadata attached to one stored template version.
type Version struct {
	VersionNumber int64      `json:"versionNumber"`
	Description   string     `json:"description,omitempty"`
	UpdateTime    time.Time  `json:"updateTime"`
	UpdateUser    string     `json:"updateUser,omitempty"`
	UpdateType    UpdateType `json:"updateType,omitempty"`
}

// Parse decodes a template from its JSON wire form.
func Parse(data []byte) (*Template, error) {
	var tpl Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Marshal encodes the template to its JSON wire form, the format shared by
// the API, the store and CLI files.
func (t *Template) Marshal() ([]byte, error) {
	return json.Marshal(t)
}

// ConditionNames returns the condition names in template order.
func (t *Template) ConditionNames() []string {
	names := make([]string, 0, len(t.Conditions))
	for _, nc := range t.Conditions {
		names = append(names, nc.Name)
	}
	return names
}
