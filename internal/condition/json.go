package condition

import (
	"encoding/json"
)

// Wire representation of a condition node. Exactly one variant field should
// be populated; when several are, decoding resolves them in the fixed
// priority order orCondition, andCondition, true, false, percent,
// customSignal so every implementation of this format agrees on the result.
type conditionWire struct {
	Or           *orWire           `json:"orCondition,omitempty"`
	And          *andWire          `json:"andCondition,omitempty"`
	True         *literalWire      `json:"true,omitempty"`
	False        *literalWire      `json:"false,omitempty"`
	Percent      *percentWire      `json:"percent,omitempty"`
	CustomSignal *customSignalWire `json:"customSignal,omitempty"`
}

type orWire struct {
	Conditions []conditionWire `json:"conditions"`
}

type andWire struct {
	Conditions []conditionWire `json:"conditions"`
}

type literalWire struct{}

type percentWire struct {
	Operator     PercentOperator    `json:"percentOperator,omitempty"`
	Seed         string             `json:"seed,omitempty"`
	MicroPercent uint32             `json:"microPercent,omitempty"`
	Range        *MicroPercentRange `json:"microPercentRange,omitempty"`
}

type customSignalWire struct {
	Operator SignalOperator `json:"customSignalOperator,omitempty"`
	Key      string         `json:"customSignalKey,omitempty"`
	Targets  []string       `json:"targetCustomSignalValues,omitempty"`
}

type namedConditionWire struct {
	Name      string         `json:"name"`
	Condition *conditionWire `json:"condition,omitempty"`
}

// decode resolves the populated variant into its tree node. A nil or empty
// envelope decodes to nil, the always-false node.
func (w *conditionWire) decode() Condition {
	switch {
	case w == nil:
		return nil
	case w.Or != nil:
		return Or{Conditions: decodeList(w.Or.Conditions)}
	case w.And != nil:
		return And{Conditions: decodeList(w.And.Conditions)}
	case w.True != nil:
		return True{}
	case w.False != nil:
		return False{}
	case w.Percent != nil:
		return Percent{
			Seed:         w.Percent.Seed,
			Operator:     w.Percent.Operator,
			MicroPercent: w.Percent.MicroPercent,
			Range:        w.Percent.Range,
		}
	case w.CustomSignal != nil:
		return CustomSignal{
			Operator: w.CustomSignal.Operator,
			Key:      w.CustomSignal.Key,
			Targets:  w.CustomSignal.Targets,
		}
	default:
		return nil
	}
}

func decodeList(wires []conditionWire) []Condition {
	if wires == nil {
		return nil
	}
	out := make([]Condition, 0, len(wires))
	for i := range wires {
		out = append(out, wires[i].decode())
	}
	return out
}

func encode(c Condition) *conditionWire {
	switch node := c.(type) {
	case Or:
		return &conditionWire{Or: &orWire{Conditions: encodeList(node.Conditions)}}
	case And:
		return &conditionWire{And: &andWire{Conditions: encodeList(node.Conditions)}}
	case True:
		return &conditionWire{True: &literalWire{}}
	case False:
		return &conditionWire{False: &literalWire{}}
	case Percent:
		return &conditionWire{Percent: &percentWire{
			Operator:     node.Operator,
			Seed:         node.Seed,
			MicroPercent: node.MicroPercent,
			Range:        node.Range,
		}}
	case CustomSignal:
		return &conditionWire{CustomSignal: &customSignalWire{
			Operator: node.Operator,
			Key:      node.Key,
			Targets:  node.Targets,
		}}
	default:
		return nil
	}
}

func encodeList(nodes []Condition) []conditionWire {
	out := make([]conditionWire, 0, len(nodes))
	for _, n := range nodes {
		w := encode(n)
		if w == nil {
			w = &conditionWire{}
		}
		out = append(out, *w)
	}
	return out
}

// UnmarshalJSON decodes the wire envelope into the sealed tree form. Unknown
// or absent variants become the nil node rather than an error; evaluation
// reports them as unsatisfied.
func (nc *NamedCondition) UnmarshalJSON(data []byte) error {
	var w namedConditionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	nc.Name = w.Name
	nc.Condition = w.Condition.decode()
	return nil
}

// MarshalJSON writes the wire envelope form. A nil tree marshals with no
// condition field at all.
func (nc NamedCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(namedConditionWire{Name: nc.Name, Condition: encode(nc.Condition)})
}

// Parse decodes a single condition tree from its wire envelope.
func Parse(data []byte) (Condition, error) {
	var w conditionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return w.decode(), nil
}

// Marshal encodes a condition tree back to its wire envelope.
func Marshal(c Condition) ([]byte, error) {
	w := encode(c)
	if w == nil {
		w = &conditionWire{}
	}
	return json.Marshal(w)
}
