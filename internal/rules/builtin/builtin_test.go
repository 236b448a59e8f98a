package builtin

import (
	"testing"

	"ips-guard/internal/ips"
	"ips-guard/internal/model"
	"ips-guard/internal/module"
	"ips-guard/internal/plugin"
	"ips-guard/internal/profile"
	"ips-guard/internal/rangecheck"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*plugin.Registry, *profile.Accumulator) {
	t.Helper()
	acc := profile.NewAccumulator()
	reg := plugin.NewRegistry(acc)
	require.NoError(t, Register(reg))
	return reg, acc
}

func build(t *testing.T, reg *plugin.Registry, name, text string) ips.Option {
	t.Helper()
	e, err := reg.Ips(name)
	require.NoError(t, err)

	m := e.Ips.ModCtor()
	defer e.Ips.ModDtor(m)
	require.NoError(t, module.Configure(m, []module.Pair{{Name: "~range", Value: text}}))

	opt, err := e.Ips.Ctor(e.Kind, m)
	require.NoError(t, err)
	return opt
}

func tcpPacket(window uint16) *model.Packet {
	return &model.Packet{
		IP:  &model.IPv4{Source: "10.0.0.1", Destination: "10.0.0.2", TTL: 64, TTLKnown: true, Protocol: 6},
		TCP: &model.TCP{SourcePort: 4000, DestinationPort: 80, Window: window, WindowKnown: true},
	}
}

func TestRegister_AllKinds(t *testing.T) {
	reg, acc := newRegistry(t)
	assert.Equal(t, []string{"window", "ttl", "dsize", "itype"}, reg.Names(plugin.TypeIpsOption))
	assert.Equal(t, 4, acc.Kinds())

	require.Error(t, Register(reg), "second registration must collide")
}

func TestWindow_EndToEnd(t *testing.T) {
	reg, acc := newRegistry(t)
	opt := build(t, reg, "window", "1024<>65535")
	w := acc.NewWorker()

	assert.Equal(t, ips.Match, opt.Eval(tcpPacket(2048), w))
	assert.Equal(t, ips.NoMatch, opt.Eval(tcpPacket(500), w))

	udp := &model.Packet{
		IP:  &model.IPv4{Source: "10.0.0.1", Destination: "10.0.0.2", Protocol: 17},
		UDP: &model.UDP{SourcePort: 53, DestinationPort: 53},
	}
	assert.Equal(t, ips.NoMatch, opt.Eval(udp, w))

	w.Flush()
	snap := acc.Snapshot()
	require.NotEmpty(t, snap)
	assert.Equal(t, "window", snap[opt.Kind()].Name)
	assert.Equal(t, uint64(2), snap[opt.Kind()].Checks, "absent field is not profiled")
}

func TestWindow_UnknownWindowOnFlow(t *testing.T) {
	reg, _ := newRegistry(t)
	opt := build(t, reg, "window", "<65536")

	p := tcpPacket(1000)
	p.TCP.WindowKnown = false
	assert.Equal(t, ips.NoMatch, opt.Eval(p, nil))
}

func TestWindow_BoundsWiderThanField(t *testing.T) {
	reg, _ := newRegistry(t)
	e, err := reg.Ips("window")
	require.NoError(t, err)

	for _, text := range []string{"70000", ">65536", "0<>65536"} {
		err := module.Configure(e.Ips.ModCtor(), []module.Pair{{Name: "~range", Value: text}})
		assert.ErrorIs(t, err, rangecheck.ErrMalformed, text)
	}
	require.NoError(t, module.Configure(e.Ips.ModCtor(), []module.Pair{{Name: "~range", Value: "<65536"}}))
}

func TestRangeModule_Errors(t *testing.T) {
	reg, _ := newRegistry(t)
	e, err := reg.Ips("ttl")
	require.NoError(t, err)

	err = module.Configure(e.Ips.ModCtor(), nil)
	assert.ErrorIs(t, err, errRangeRequired)

	err = module.Configure(e.Ips.ModCtor(), []module.Pair{{Name: "~range", Value: "10<>5"}})
	assert.ErrorIs(t, err, rangecheck.ErrInvertedRange)

	err = module.Configure(e.Ips.ModCtor(), []module.Pair{{Name: "~range", Value: "abc"}})
	assert.ErrorIs(t, err, rangecheck.ErrMalformed)
}

func TestTTL(t *testing.T) {
	reg, _ := newRegistry(t)
	opt := build(t, reg, "ttl", "<5")

	p := tcpPacket(0)
	p.IP.TTL = 3
	assert.Equal(t, ips.Match, opt.Eval(p, nil))
	p.IP.TTL = 5
	assert.Equal(t, ips.NoMatch, opt.Eval(p, nil))
	p.IP.TTLKnown = false
	assert.Equal(t, ips.NoMatch, opt.Eval(p, nil))
}

func TestDsize(t *testing.T) {
	reg, _ := newRegistry(t)
	opt := build(t, reg, "dsize", ">100")

	p := tcpPacket(0)
	p.Payload = make([]byte, 101)
	assert.Equal(t, ips.Match, opt.Eval(p, nil))

	p.Payload = make([]byte, 100)
	assert.Equal(t, ips.NoMatch, opt.Eval(p, nil))

	p.Payload, p.PayloadSize = nil, 200
	assert.Equal(t, ips.Match, opt.Eval(p, nil))

	p.PayloadSize = -1
	assert.Equal(t, ips.NoMatch, opt.Eval(p, nil))
}

func TestItype(t *testing.T) {
	reg, _ := newRegistry(t)
	opt := build(t, reg, "itype", "8")

	echo := &model.Packet{IP: &model.IPv4{Protocol: 1}, ICMP: &model.ICMP{Type: 8}}
	reply := &model.Packet{IP: &model.IPv4{Protocol: 1}, ICMP: &model.ICMP{Type: 0}}
	assert.Equal(t, ips.Match, opt.Eval(echo, nil))
	assert.Equal(t, ips.NoMatch, opt.Eval(reply, nil))
	assert.Equal(t, ips.NoMatch, opt.Eval(tcpPacket(8), nil))
}

func TestEqualAcrossKinds(t *testing.T) {
	reg, _ := newRegistry(t)
	win := build(t, reg, "window", "64")
	win2 := build(t, reg, "window", " 64 ")
	ttl := build(t, reg, "ttl", "64")

	assert.True(t, win.Equal(win2))
	assert.Equal(t, win.Hash(), win2.Hash())
	assert.False(t, win.Equal(ttl))
	assert.False(t, ttl.Equal(win))
}
