package rules

import (
	"testing"

	"ips-guard/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func windowPacket(win uint16) *model.Packet {
	return &model.Packet{
		IP:  &model.IPv4{Source: "192.0.2.1", Destination: "192.0.2.2", TTL: 3, TTLKnown: true, Protocol: 6},
		TCP: &model.TCP{SourcePort: 1234, DestinationPort: 80, Window: win, WindowKnown: true},
	}
}

func TestEvaluator_SharedOptionEvaluatedOncePerPacket(t *testing.T) {
	reg, _ := newTestRegistry(t)
	set, err := Compile(reg, []model.Rule{
		rule(1, opt("window", "1024<>65535"), opt("tag", "a")),
		rule(2, opt("window", "1024<>65535"), opt("tag", "b")),
		rule(3, opt("window", "1024<>65535"), opt("ttl", "<5")),
	}, nil)
	require.NoError(t, err)

	window, err := reg.Ips("window")
	require.NoError(t, err)
	ttl, err := reg.Ips("ttl")
	require.NoError(t, err)

	w := reg.Profile().NewWorker()
	ev := NewEvaluator(w)

	fired := ev.Match(set, windowPacket(2048))
	require.Len(t, fired, 3)
	assert.Equal(t, uint64(1), w.Pending(int(window.Kind)))
	assert.Equal(t, uint64(1), w.Pending(int(ttl.Kind)))

	fired = ev.Match(set, windowPacket(2048))
	assert.Len(t, fired, 3)
	assert.Equal(t, uint64(2), w.Pending(int(window.Kind)), "memo is per packet")
}

func TestEvaluator_AllOptionsMustMatch(t *testing.T) {
	reg, _ := newTestRegistry(t)
	set, err := Compile(reg, []model.Rule{
		rule(1, opt("window", "1024<>65535")),
		rule(2, opt("window", "<1024"), opt("tag", "a")),
		rule(3, opt("ttl", ">200"), opt("window", "1024<>65535")),
	}, nil)
	require.NoError(t, err)

	ev := NewEvaluator(nil)

	fired := ev.Match(set, windowPacket(2048))
	require.Len(t, fired, 1)
	assert.Equal(t, uint32(1), fired[0].Rule.SID)

	fired = ev.Match(set, windowPacket(500))
	require.Len(t, fired, 1)
	assert.Equal(t, uint32(2), fired[0].Rule.SID)

	udp := &model.Packet{IP: &model.IPv4{Protocol: 17}, UDP: &model.UDP{SourcePort: 53, DestinationPort: 53}}
	assert.Empty(t, ev.Match(set, udp))
	assert.Nil(t, ev.Match(nil, udp))
}

func TestEvaluator_FollowsRuleSetChange(t *testing.T) {
	reg, _ := newTestRegistry(t)
	small, err := Compile(reg, []model.Rule{rule(1, opt("tag", "a"))}, nil)
	require.NoError(t, err)
	large, err := Compile(reg, []model.Rule{
		rule(1, opt("tag", "a")),
		rule(2, opt("tag", "bb")),
		rule(3, opt("window", "2048")),
	}, nil)
	require.NoError(t, err)

	ev := NewEvaluator(nil)
	assert.Len(t, ev.Match(small, windowPacket(2048)), 1)
	assert.Len(t, ev.Match(large, windowPacket(2048)), 3)
	assert.Len(t, ev.Match(small, windowPacket(2048)), 1)
}
