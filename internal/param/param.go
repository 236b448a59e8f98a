// Package param describes the options a configurable kind accepts and
// converts textual values into typed values against that schema.
package param

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrInvalidValue     = errors.New("invalid value")
)

// Kind is the value kind of a Parameter.
type Kind uint8

const (
	String Kind = iota
	Int
	Bool
	Enum
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Enum:
		return "enum"
	default:
		return "unknown"
	}
}

// Parameter is one entry of a kind's schema table.
//
// Range is "lo:hi" for Int (either side may be empty) and "A | B | C" for
// Enum. A name starting with '~' is positional: rule text that gives a bare
// value binds to it.
type Parameter struct {
	Name    string
	Type    Kind
	Range   string
	Default string
	Help    string
}

// Positional reports whether the parameter takes an unnamed value.
func (p *Parameter) Positional() bool {
	return strings.HasPrefix(p.Name, "~")
}

// Tokens returns the enum tokens in declaration order.
func (p *Parameter) Tokens() []string {
	if p.Type != Enum {
		return nil
	}
	var toks []string
	for _, t := range strings.Split(p.Range, "|") {
		if t = strings.TrimSpace(t); t != "" {
			toks = append(toks, t)
		}
	}
	return toks
}

// Table is the ordered schema of a kind.
type Table []Parameter

// Find looks a parameter up by name.
func (t Table) Find(name string) (*Parameter, bool) {
	for i := range t {
		if t[i].Name == name {
			return &t[i], true
		}
	}
	return nil, false
}

// Positional returns the first positional parameter, if any.
func (t Table) Positional() (*Parameter, bool) {
	for i := range t {
		if t[i].Positional() {
			return &t[i], true
		}
	}
	return nil, false
}

// Value is a converted parameter value.
type Value struct {
	name string
	kind Kind
	str  string
	num  int64
}

// Is reports whether the value belongs to the named parameter.
func (v Value) Is(name string) bool { return v.name == name }

func (v Value) Name() string   { return v.name }
func (v Value) Kind() Kind     { return v.kind }
func (v Value) String() string { return v.str }
func (v Value) Int() int64     { return v.num }
func (v Value) Bool() bool     { return v.num != 0 }

// Enum returns the index of the token within the parameter's range.
func (v Value) Enum() int { return int(v.num) }

// Convert validates text against p and returns the typed value.
func Convert(p *Parameter, text string) (Value, error) {
	v := Value{name: p.Name, kind: p.Type, str: strings.TrimSpace(text)}

	switch p.Type {
	case String:
		return v, nil

	case Int:
		n, err := strconv.ParseInt(v.str, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s: %q is not an integer", ErrInvalidValue, p.Name, text)
		}
		lo, hi, err := intBounds(p.Range)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s: %v", ErrInvalidValue, p.Name, err)
		}
		if n < lo || n > hi {
			return Value{}, fmt.Errorf("%w: %s: %d out of range %s", ErrInvalidValue, p.Name, n, p.Range)
		}
		v.num = n
		return v, nil

	case Bool:
		switch strings.ToLower(v.str) {
		case "true", "yes", "1":
			v.num = 1
		case "false", "no", "0":
			v.num = 0
		default:
			return Value{}, fmt.Errorf("%w: %s: %q is not a boolean", ErrInvalidValue, p.Name, text)
		}
		return v, nil

	case Enum:
		for i, tok := range p.Tokens() {
			if tok == v.str {
				v.num = int64(i)
				return v, nil
			}
		}
		return Value{}, fmt.Errorf("%w: %s: %q not one of %s", ErrInvalidValue, p.Name, text, p.Range)
	}

	return Value{}, fmt.Errorf("%w: %s: unsupported kind %s", ErrInvalidValue, p.Name, p.Type)
}

// Lookup finds name in t and converts text.
func Lookup(t Table, name, text string) (Value, error) {
	p, ok := t.Find(name)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	return Convert(p, text)
}

func intBounds(r string) (int64, int64, error) {
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if strings.TrimSpace(r) == "" {
		return lo, hi, nil
	}
	loTok, hiTok, ok := strings.Cut(r, ":")
	if !ok {
		return 0, 0, fmt.Errorf("bad range %q", r)
	}
	var err error
	if loTok = strings.TrimSpace(loTok); loTok != "" {
		if lo, err = strconv.ParseInt(loTok, 10, 64); err != nil {
			return 0, 0, fmt.Errorf("bad range %q", r)
		}
	}
	if hiTok = strings.TrimSpace(hiTok); hiTok != "" {
		if hi, err = strconv.ParseInt(hiTok, 10, 64); err != nil {
			return 0, 0, fmt.Errorf("bad range %q", r)
		}
	}
	return lo, hi, nil
}
