package builtin

import (
	"ips-guard/internal/ips"
	"ips-guard/internal/model"
	"ips-guard/internal/plugin"
	"ips-guard/internal/profile"
)

var itypeKind = rangeKind{
	name:      "itype",
	help:      "rule option to check ICMP type",
	limit:     255,
	protocols: plugin.ProtoICMP,
	build:     func(ro ips.RangeOption) ips.Option { return &itypeOption{ro} },
}

type itypeOption struct {
	ips.RangeOption
}

func (o *itypeOption) Eval(p *model.Packet, w *profile.Worker) ips.Result {
	t, ok := p.ICMPType()
	if !ok {
		return ips.NoMatch
	}
	return o.Check(w, uint32(t))
}
