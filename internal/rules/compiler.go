package rules

import (
	"fmt"
	"time"

	"ips-guard/internal/ips"
	"ips-guard/internal/model"
	"ips-guard/internal/module"
	"ips-guard/internal/plugin"

	"github.com/sirupsen/logrus"
)

// CompiledRule is an enabled rule whose options have been resolved to
// indices in the owning RuleSet's option table.
type CompiledRule struct {
	Rule    model.Rule
	Options []int
}

// RuleSet is an immutable compiled rule set. Equal options from different
// rules share one table entry.
type RuleSet struct {
	Rules    []CompiledRule
	Loaded   time.Time
	table    *ips.Table
	dtors    []func(ips.Option)
	disabled int
}

func (s *RuleSet) Table() *ips.Table { return s.table }

// Disabled counts rules that were skipped because enabled is false.
func (s *RuleSet) Disabled() int { return s.disabled }

// Close destroys every unique option exactly once.
func (s *RuleSet) Close() {
	if s == nil {
		return
	}
	s.table.Each(func(idx int, opt ips.Option) {
		s.dtors[idx](opt)
	})
	s.dtors = nil
	s.table = ips.NewTable()
}

// Compile resolves, configures and deduplicates the options of every
// enabled rule. The first configuration error fails the whole load and
// every option built so far is destroyed.
func Compile(reg *plugin.Registry, rules []model.Rule, logger *logrus.Logger) (*RuleSet, error) {
	set := &RuleSet{Loaded: time.Now(), table: ips.NewTable()}
	seen := make(map[string]struct{}, len(rules))
	total := 0

	for i := range rules {
		r := &rules[i]
		if !r.IsEnabled() {
			set.disabled++
			continue
		}
		key := fmt.Sprintf("%d:%d", r.GID, r.SID)
		if _, dup := seen[key]; dup {
			set.Close()
			return nil, fmt.Errorf("rule %s: duplicate gid:sid", r.ID())
		}
		seen[key] = struct{}{}

		cr, err := set.compileRule(reg, r)
		if err != nil {
			set.Close()
			return nil, fmt.Errorf("rule %s: %w", r.ID(), err)
		}
		total += len(cr.Options)
		set.Rules = append(set.Rules, cr)
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"rules":    len(set.Rules),
			"disabled": set.disabled,
			"options":  total,
			"unique":   set.table.Len(),
			"merged":   set.table.Merged(),
		}).Info("Compiled rule set")
	}
	return set, nil
}

func (s *RuleSet) compileRule(reg *plugin.Registry, r *model.Rule) (CompiledRule, error) {
	if len(r.Options) == 0 {
		return CompiledRule{}, fmt.Errorf("no options")
	}

	cr := CompiledRule{Rule: *r, Options: make([]int, 0, len(r.Options))}
	perKind := make(map[ips.KindID]int, len(r.Options))

	for _, o := range r.Options {
		entry, err := reg.Ips(o.Name)
		if err != nil {
			return CompiledRule{}, err
		}
		api := entry.Ips

		perKind[entry.Kind]++
		if api.MaxPerRule > 0 && perKind[entry.Kind] > api.MaxPerRule {
			return CompiledRule{}, fmt.Errorf("%s: at most %d per rule", o.Name, api.MaxPerRule)
		}

		opt, err := buildOption(entry, o)
		if err != nil {
			return CompiledRule{}, err
		}

		idx, merged := s.table.Add(opt)
		if merged {
			api.Dtor(opt)
		} else {
			s.dtors = append(s.dtors, api.Dtor)
		}
		cr.Options = append(cr.Options, idx)
	}
	return cr, nil
}

func buildOption(entry *plugin.Entry, o model.Option) (ips.Option, error) {
	api := entry.Ips
	m := api.ModCtor()
	defer api.ModDtor(m)

	l := module.NewLifecycle(m)
	if err := l.Begin(); err != nil {
		return nil, err
	}
	for _, p := range o.Params {
		if err := l.Set(p.Name, p.Value); err != nil {
			return nil, err
		}
	}
	if err := l.End(); err != nil {
		return nil, err
	}

	opt, err := api.Ctor(entry.Kind, m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.Name, err)
	}
	return opt, nil
}
