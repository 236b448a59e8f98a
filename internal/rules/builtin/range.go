// Package builtin provides the rule option kinds compiled into ips-guard.
// Every kind here tests one numeric header field against a range.
package builtin

import (
	"errors"
	"fmt"

	"ips-guard/internal/ips"
	"ips-guard/internal/module"
	"ips-guard/internal/param"
	"ips-guard/internal/plugin"
	"ips-guard/internal/rangecheck"
)

var errRangeRequired = errors.New("range is required")

// rangeModule is the configuration builder shared by range-backed kinds.
// The single positional parameter is parsed in Set and checked against
// the width of the field in End.
type rangeModule struct {
	name  string
	help  string
	limit uint32

	data rangecheck.RangeCheck
	set  bool
}

func (m *rangeModule) Name() string { return m.name }
func (m *rangeModule) Help() string { return m.help }

func (m *rangeModule) Params() param.Table {
	return param.Table{
		{Name: "~range", Type: param.String, Help: fmt.Sprintf("check if %s is in given range", m.name)},
	}
}

func (m *rangeModule) Begin() error {
	m.data = rangecheck.RangeCheck{}
	m.set = false
	return nil
}

func (m *rangeModule) Set(v param.Value) error {
	if !v.Is("~range") {
		return fmt.Errorf("%w: %s", param.ErrUnknownParameter, v.Name())
	}
	rc, err := rangecheck.Parse(v.String())
	if err != nil {
		return err
	}
	m.data = rc
	m.set = true
	return nil
}

func (m *rangeModule) End() error {
	if !m.set {
		return errRangeRequired
	}
	return checkWidth(m.data, m.limit)
}

// Range returns the finalized configuration.
func (m *rangeModule) Range() rangecheck.RangeCheck { return m.data }

// checkWidth rejects bounds the field can never take. "<limit+1" is
// allowed since it still admits every value.
func checkWidth(rc rangecheck.RangeCheck, limit uint32) error {
	var bound, ceil uint32
	switch rc.Op {
	case rangecheck.OpEqual, rangecheck.OpGreater:
		bound, ceil = rc.Min, limit
	case rangecheck.OpLess:
		bound, ceil = rc.Max, limit+1
	case rangecheck.OpBetween:
		bound, ceil = rc.Max, limit
	}
	if bound > ceil {
		return fmt.Errorf("%w: %s exceeds %d", rangecheck.ErrMalformed, rc, limit)
	}
	return nil
}

type rangeKind struct {
	name      string
	help      string
	limit     uint32
	protocols plugin.Protocols
	build     func(ips.RangeOption) ips.Option
}

func (k rangeKind) api() *plugin.IpsApi {
	return &plugin.IpsApi{
		BaseApi: plugin.BaseApi{
			Type:    plugin.TypeIpsOption,
			Name:    k.name,
			Help:    k.help,
			Version: plugin.ApiVersion,
			ModCtor: func() module.Module {
				return &rangeModule{name: k.name, help: k.help, limit: k.limit}
			},
			ModDtor: func(module.Module) {},
		},
		Category:   plugin.CategoryDetection,
		MaxPerRule: 1,
		Protocols:  k.protocols,
		Ctor: func(kind ips.KindID, m module.Module) (ips.Option, error) {
			rm, ok := m.(*rangeModule)
			if !ok {
				return nil, fmt.Errorf("%s: unexpected module %T", k.name, m)
			}
			return k.build(ips.NewRangeOption(kind, k.name, rm.Range())), nil
		},
		Dtor: func(ips.Option) {},
	}
}
