package builtin

import (
	"ips-guard/internal/ips"
	"ips-guard/internal/model"
	"ips-guard/internal/plugin"
	"ips-guard/internal/profile"
)

var windowKind = rangeKind{
	name:      "window",
	help:      "rule option to check TCP window field",
	limit:     65535,
	protocols: plugin.ProtoTCP,
	build:     func(ro ips.RangeOption) ips.Option { return &windowOption{ro} },
}

type windowOption struct {
	ips.RangeOption
}

// Eval never reaches the profiler when the packet has no TCP header.
func (o *windowOption) Eval(p *model.Packet, w *profile.Worker) ips.Result {
	win, ok := p.TCPWindow()
	if !ok {
		return ips.NoMatch
	}
	return o.Check(w, uint32(win))
}
