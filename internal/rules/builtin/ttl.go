package builtin

import (
	"ips-guard/internal/ips"
	"ips-guard/internal/model"
	"ips-guard/internal/plugin"
	"ips-guard/internal/profile"
)

var ttlKind = rangeKind{
	name:      "ttl",
	help:      "rule option to check time to live field",
	limit:     255,
	protocols: plugin.ProtoIP,
	build:     func(ro ips.RangeOption) ips.Option { return &ttlOption{ro} },
}

type ttlOption struct {
	ips.RangeOption
}

func (o *ttlOption) Eval(p *model.Packet, w *profile.Worker) ips.Result {
	ttl, ok := p.TTL()
	if !ok {
		return ips.NoMatch
	}
	return o.Check(w, uint32(ttl))
}
