package rules

import (
	"ips-guard/internal/ips"
	"ips-guard/internal/model"
	"ips-guard/internal/profile"
)

// Evaluator runs a RuleSet against packets for one worker goroutine. It
// remembers each option's verdict for the current packet so an option
// shared by several rules is evaluated once.
type Evaluator struct {
	worker *profile.Worker
	set    *RuleSet
	memo   []ips.Result
	stamp  []uint32
	gen    uint32
}

func NewEvaluator(w *profile.Worker) *Evaluator {
	return &Evaluator{worker: w}
}

func (e *Evaluator) Worker() *profile.Worker { return e.worker }

// Match returns the rules of set that fire on p. A rule fires when every
// option returns Match.
func (e *Evaluator) Match(set *RuleSet, p *model.Packet) []*CompiledRule {
	if set == nil || p == nil {
		return nil
	}
	e.prepare(set)

	var fired []*CompiledRule
	for i := range set.Rules {
		r := &set.Rules[i]
		if e.all(r, p) {
			fired = append(fired, r)
		}
	}
	return fired
}

func (e *Evaluator) all(r *CompiledRule, p *model.Packet) bool {
	for _, idx := range r.Options {
		if e.eval(idx, p) != ips.Match {
			return false
		}
	}
	return true
}

func (e *Evaluator) eval(idx int, p *model.Packet) ips.Result {
	if e.stamp[idx] == e.gen {
		return e.memo[idx]
	}
	res := e.set.table.Get(idx).Eval(p, e.worker)
	e.memo[idx] = res
	e.stamp[idx] = e.gen
	return res
}

// prepare starts a new packet generation and resizes the memo when the
// rule set changed.
func (e *Evaluator) prepare(set *RuleSet) {
	if e.set != set {
		n := set.table.Len()
		e.set = set
		e.memo = make([]ips.Result, n)
		e.stamp = make([]uint32, n)
		e.gen = 0
	}
	e.gen++
	if e.gen == 0 {
		clear(e.stamp)
		e.gen = 1
	}
}
