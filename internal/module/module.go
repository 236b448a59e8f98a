// Package module drives the begin/set/end configuration protocol shared by
// every rule option and logger kind.
package module

import (
	"errors"
	"fmt"

	"ips-guard/internal/param"
)

var ErrNotAccumulating = errors.New("configuration not accumulating")

// Module is the configuration builder of one kind. Begin resets working
// state, Set stores one validated value and End performs cross-field
// finalization once all values are in.
type Module interface {
	Name() string
	Help() string
	Params() param.Table
	Begin() error
	Set(v param.Value) error
	End() error
}

// State is the position of a Lifecycle in the configuration protocol.
type State uint8

const (
	Uninitialized State = iota
	Accumulating
	Finalized
	Rejected
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Accumulating:
		return "accumulating"
	case Finalized:
		return "finalized"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Lifecycle wraps a Module and enforces the order of calls.
type Lifecycle struct {
	mod   Module
	state State
}

// NewLifecycle returns a Lifecycle for m in the Uninitialized state.
func NewLifecycle(m Module) *Lifecycle {
	return &Lifecycle{mod: m}
}

func (l *Lifecycle) Module() Module { return l.mod }
func (l *Lifecycle) State() State   { return l.state }

// Begin resets the module and applies every declared default. It is valid
// from any state.
func (l *Lifecycle) Begin() error {
	l.state = Accumulating

	if err := l.mod.Begin(); err != nil {
		return l.reject(fmt.Errorf("%s: begin: %w", l.mod.Name(), err))
	}

	params := l.mod.Params()
	for i := range params {
		p := &params[i]
		if p.Default == "" {
			continue
		}
		v, err := param.Convert(p, p.Default)
		if err != nil {
			return l.reject(fmt.Errorf("%s: default: %w", l.mod.Name(), err))
		}
		if err := l.mod.Set(v); err != nil {
			return l.reject(fmt.Errorf("%s: default %s: %w", l.mod.Name(), p.Name, err))
		}
	}
	return nil
}

// Set validates name against the schema, converts text and hands the
// value to the module. An empty name binds to the positional parameter.
// Any failure rejects the configuration.
func (l *Lifecycle) Set(name, text string) error {
	if l.state != Accumulating {
		return fmt.Errorf("%s: set %s: %w (state %s)", l.mod.Name(), name, ErrNotAccumulating, l.state)
	}
	if name == "" {
		pos, ok := l.mod.Params().Positional()
		if !ok {
			return l.reject(fmt.Errorf("%s: %w: does not take a bare value", l.mod.Name(), param.ErrUnknownParameter))
		}
		name = pos.Name
	}

	v, err := param.Lookup(l.mod.Params(), name, text)
	if err != nil {
		return l.reject(fmt.Errorf("%s: %w", l.mod.Name(), err))
	}
	if err := l.mod.Set(v); err != nil {
		return l.reject(fmt.Errorf("%s: %s: %w", l.mod.Name(), name, err))
	}
	return nil
}

// End finalizes the configuration.
func (l *Lifecycle) End() error {
	if l.state != Accumulating {
		return fmt.Errorf("%s: end: %w (state %s)", l.mod.Name(), ErrNotAccumulating, l.state)
	}
	if err := l.mod.End(); err != nil {
		return l.reject(fmt.Errorf("%s: end: %w", l.mod.Name(), err))
	}
	l.state = Finalized
	return nil
}

func (l *Lifecycle) reject(err error) error {
	l.state = Rejected
	return err
}

// Pair is one parameter from rule or config text. Name is empty for a
// bare value.
type Pair struct {
	Name  string
	Value string
}

// Configure runs the whole protocol over params in order.
func Configure(m Module, params []Pair) error {
	l := NewLifecycle(m)
	if err := l.Begin(); err != nil {
		return err
	}
	for _, p := range params {
		if err := l.Set(p.Name, p.Value); err != nil {
			return err
		}
	}
	return l.End()
}
