package builtin

import (
	"ips-guard/internal/ips"
	"ips-guard/internal/model"
	"ips-guard/internal/plugin"
	"ips-guard/internal/profile"
)

var dsizeKind = rangeKind{
	name:      "dsize",
	help:      "rule option to test payload size",
	limit:     65535,
	protocols: plugin.ProtoAny,
	build:     func(ro ips.RangeOption) ips.Option { return &dsizeOption{ro} },
}

type dsizeOption struct {
	ips.RangeOption
}

func (o *dsizeOption) Eval(p *model.Packet, w *profile.Worker) ips.Result {
	n, ok := p.DataSize()
	if !ok {
		return ips.NoMatch
	}
	return o.Check(w, uint32(n))
}
