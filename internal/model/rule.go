package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Rule is one detection rule as read from a rules file. Every option must
// match for the rule to fire.
type Rule struct {
	GID      uint32   `yaml:"gid,omitempty" json:"gid,omitempty"`
	SID      uint32   `yaml:"sid" json:"sid"`
	Rev      uint32   `yaml:"rev,omitempty" json:"rev,omitempty"`
	Msg      string   `yaml:"msg" json:"msg"`
	Priority int      `yaml:"priority,omitempty" json:"priority,omitempty"`
	Severity string   `yaml:"severity,omitempty" json:"severity,omitempty"`
	Enabled  *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Options  []Option `yaml:"options" json:"options"`
}

// IsEnabled defaults to true when the file does not say otherwise.
func (r *Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// ID renders gid:sid:rev.
func (r *Rule) ID() string {
	gid := r.GID
	if gid == 0 {
		gid = 1
	}
	return fmt.Sprintf("%d:%d:%d", gid, r.SID, r.Rev)
}

// Option is one rule option reference: a kind name plus its parameters in
// the order written. A Param with an empty name is the positional value.
type Option struct {
	Name   string  `json:"name"`
	Params []Param `json:"params"`
}

type Param struct {
	Name  string `json:"name,omitempty"`
	Value string `json:"value"`
}

// UnmarshalYAML accepts `kind: value` and `kind: {param: value, ...}`.
func (o *Option) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("line %d: rule option must be a single `kind: params` entry", node.Line)
	}
	key, val := node.Content[0], node.Content[1]
	o.Name = key.Value
	o.Params = nil

	switch val.Kind {
	case yaml.ScalarNode:
		if val.Tag != "!!null" {
			o.Params = []Param{{Value: val.Value}}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(val.Content); i += 2 {
			k, v := val.Content[i], val.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: %s.%s must be a scalar", v.Line, o.Name, k.Value)
			}
			o.Params = append(o.Params, Param{Name: k.Value, Value: v.Value})
		}
	default:
		return fmt.Errorf("line %d: %s: unsupported parameter form", val.Line, o.Name)
	}
	return nil
}

// UnmarshalJSON accepts {"kind": "value"} and {"kind": {"param": "value"}}.
// Named parameters are applied in key order.
func (o *Option) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("rule option must be a single {\"kind\": params} entry")
	}
	for name, body := range raw {
		o.Name = name
		o.Params = nil

		var positional string
		if err := json.Unmarshal(body, &positional); err == nil {
			o.Params = []Param{{Value: positional}}
			return nil
		}

		var named map[string]string
		if err := json.Unmarshal(body, &named); err != nil {
			return fmt.Errorf("%s: unsupported parameter form: %v", name, err)
		}
		keys := make([]string, 0, len(named))
		for k := range named {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			o.Params = append(o.Params, Param{Name: k, Value: named[k]})
		}
	}
	return nil
}

// MarshalYAML writes the same forms UnmarshalYAML reads, keeping order.
func (o Option) MarshalYAML() (interface{}, error) {
	str := func(s string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	}

	var val *yaml.Node
	switch {
	case len(o.Params) == 0:
		val = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case len(o.Params) == 1 && o.Params[0].Name == "":
		val = str(o.Params[0].Value)
	default:
		val = &yaml.Node{Kind: yaml.MappingNode}
		for _, p := range o.Params {
			val.Content = append(val.Content, str(p.Name), str(p.Value))
		}
	}
	return &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{str(o.Name), val}}, nil
}

// MarshalJSON writes the same forms UnmarshalJSON reads.
func (o Option) MarshalJSON() ([]byte, error) {
	if len(o.Params) == 1 && o.Params[0].Name == "" {
		return json.Marshal(map[string]string{o.Name: o.Params[0].Value})
	}
	named := make(map[string]string, len(o.Params))
	for _, p := range o.Params {
		named[p.Name] = p.Value
	}
	return json.Marshal(map[string]map[string]string{o.Name: named})
}

// Alert is the verdict context handed to downstream consumers when a rule
// fires.
type Alert struct {
	Type      string    `json:"type"`
	RuleID    string    `json:"rule_id"`
	SID       uint32    `json:"sid"`
	Severity  string    `json:"severity"`
	Priority  int       `json:"priority"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Packet    *Packet   `json:"packet,omitempty"`
}
