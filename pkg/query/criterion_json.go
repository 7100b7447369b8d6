package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

type conditionJSON struct {
	Column string      `json:"column"`
	Op     Op          `json:"op"`
	Value  interface{} `json:"value,omitempty"`
}

type groupJSON struct {
	Logic Logic             `json:"logic"`
	Items []json.RawMessage `json:"items"`
}

type rawJSON struct {
	SQL  string                 `json:"sql"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// MarshalJSON encodes a condition as {"column","op","value"}
func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(conditionJSON{Column: c.Column, Op: c.Op, Value: c.Value})
}

// MarshalJSON encodes a group as {"logic","items"}
func (g Group) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, 0, len(g.Items))
	for _, item := range g.Items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		items = append(items, data)
	}
	return json.Marshal(groupJSON{Logic: g.Logic, Items: items})
}

// MarshalJSON encodes a raw fragment as {"sql","args"}
func (r Raw) MarshalJSON() ([]byte, error) {
	return json.Marshal(rawJSON{SQL: r.SQL, Args: r.Args})
}

// ParseCriterion decodes the JSON form of a criterion tree. The variant is
// chosen by its keys: "column" for a condition, "logic" for a group and
// "sql" for a raw fragment. An empty document or null yields nil.
func ParseCriterion(data []byte) (Criterion, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("criterion must be a JSON object: %w", err)
	}

	switch {
	case keys["column"] != nil:
		var c conditionJSON
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		op := Op(strings.ToUpper(string(c.Op)))
		if !op.Valid() {
			return nil, fmt.Errorf("unknown criterion operator %q", c.Op)
		}
		return Condition{Column: c.Column, Op: op, Value: c.Value}, nil

	case keys["logic"] != nil:
		var g groupJSON
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, err
		}
		logic := Logic(strings.ToUpper(string(g.Logic)))
		if logic != And && logic != Or {
			return nil, fmt.Errorf("unknown group logic %q", g.Logic)
		}
		items := make([]Criterion, 0, len(g.Items))
		for _, raw := range g.Items {
			item, err := ParseCriterion(raw)
			if err != nil {
				return nil, err
			}
			if item != nil {
				items = append(items, item)
			}
		}
		return Group{Logic: logic, Items: items}, nil

	case keys["sql"] != nil:
		var r rawJSON
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		return Raw{SQL: r.SQL, Args: r.Args}, nil
	}

	return nil, fmt.Errorf("criterion needs one of the keys column, logic or sql")
}
