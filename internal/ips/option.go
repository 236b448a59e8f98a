// Package ips defines the rule option contract: a content identity used to
// merge equal options across the rule set, and a per-packet evaluation.
package ips

import (
	"ips-guard/internal/hashfn"
	"ips-guard/internal/model"
	"ips-guard/internal/profile"
	"ips-guard/internal/rangecheck"
)

// KindID identifies an option kind. It is assigned by the plugin registry
// and compared instead of kind names.
type KindID uint16

// Result is the verdict of one option on one packet.
type Result uint8

const (
	NoMatch Result = iota
	Match
	// NoAlert matched but asks the rule chain not to raise an alert.
	NoAlert
)

func (r Result) String() string {
	switch r {
	case NoMatch:
		return "no_match"
	case Match:
		return "match"
	case NoAlert:
		return "no_alert"
	default:
		return "unknown"
	}
}

// Option is a configured, immutable rule option. Options that are Equal
// must have the same Hash and must return the same Result for any packet;
// the rule compiler relies on this to evaluate them once.
type Option interface {
	Kind() KindID
	Name() string
	Hash() uint32
	Equal(other Option) bool
	Eval(p *model.Packet, w *profile.Worker) Result
}

// RangeOption is the shared base of options configured by a single
// rangecheck.RangeCheck. Concrete kinds embed it and add Eval.
type RangeOption struct {
	kind   KindID
	name   string
	config rangecheck.RangeCheck
}

func NewRangeOption(kind KindID, name string, rc rangecheck.RangeCheck) RangeOption {
	return RangeOption{kind: kind, name: name, config: rc}
}

func (o *RangeOption) Kind() KindID                 { return o.kind }
func (o *RangeOption) Name() string                 { return o.name }
func (o *RangeOption) Range() rangecheck.RangeCheck { return o.config }

func (o *RangeOption) Hash() uint32 {
	return hashfn.Tuple(uint32(o.config.Op), o.config.Min, o.config.Max, o.name)
}

type rangeConfigured interface {
	Kind() KindID
	Range() rangecheck.RangeCheck
}

// Equal is false for any other kind, even with identical bounds.
func (o *RangeOption) Equal(other Option) bool {
	if other == nil || other.Kind() != o.kind {
		return false
	}
	rhs, ok := other.(rangeConfigured)
	if !ok {
		return false
	}
	return o.config == rhs.Range()
}

// Check profiles the comparison of v against the configured range.
func (o *RangeOption) Check(w *profile.Worker, v uint32) Result {
	start := w.Start()
	rval := NoMatch
	if o.config.Eval(v) {
		rval = Match
	}
	w.Stop(int(o.kind), start)
	return rval
}
