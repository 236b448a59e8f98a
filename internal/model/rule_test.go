package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestOption_UnmarshalYAML(t *testing.T) {
	src := `
sid: 1000001
msg: large window
options:
  - window: "1024<>65535"
  - ttl:
      ~range: "<5"
  - flag:
`
	var r Rule
	require.NoError(t, yaml.Unmarshal([]byte(src), &r))

	require.Len(t, r.Options, 3)
	assert.Equal(t, Option{Name: "window", Params: []Param{{Value: "1024<>65535"}}}, r.Options[0])
	assert.Equal(t, Option{Name: "ttl", Params: []Param{{Name: "~range", Value: "<5"}}}, r.Options[1])
	assert.Equal(t, "flag", r.Options[2].Name)
	assert.Empty(t, r.Options[2].Params)

	assert.True(t, r.IsEnabled())
	assert.Equal(t, "1:1000001:0", r.ID())
}

func TestOption_UnmarshalYAML_Invalid(t *testing.T) {
	var r Rule
	err := yaml.Unmarshal([]byte("options:\n  - window: 1\n    ttl: 2\n"), &r)
	assert.Error(t, err)

	err = yaml.Unmarshal([]byte("options:\n  - window: [1, 2]\n"), &r)
	assert.Error(t, err)
}

func TestOption_UnmarshalJSON(t *testing.T) {
	src := `{"sid": 7, "gid": 3, "rev": 2, "msg": "m", "enabled": false,
		"options": [{"dsize": ">100"}, {"alert_fast": {"units": "K", "limit": "10"}}]}`

	var r Rule
	require.NoError(t, json.Unmarshal([]byte(src), &r))

	require.Len(t, r.Options, 2)
	assert.Equal(t, []Param{{Value: ">100"}}, r.Options[0].Params)
	assert.Equal(t, []Param{{Name: "limit", Value: "10"}, {Name: "units", Value: "K"}}, r.Options[1].Params)
	assert.False(t, r.IsEnabled())
	assert.Equal(t, "3:7:2", r.ID())

	var o Option
	assert.Error(t, json.Unmarshal([]byte(`{"a": "1", "b": "2"}`), &o))
}

func TestOption_MarshalRoundTrip(t *testing.T) {
	in := []Option{
		{Name: "window", Params: []Param{{Value: "1024<>65535"}}},
		{Name: "alert_fast", Params: []Param{{Name: "units", Value: "K"}, {Name: "limit", Value: "10"}}},
	}

	out, err := yaml.Marshal(in)
	require.NoError(t, err)
	var back []Option
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, in, back, "yaml keeps parameter order")

	js, err := json.Marshal(in[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"window": "1024<>65535"}`, string(js))
}

func TestPacket_Accessors(t *testing.T) {
	var nilPacket *Packet
	assert.False(t, nilPacket.HasTCP())
	_, ok := nilPacket.DataSize()
	assert.False(t, ok)

	p := &Packet{
		IP:          &IPv4{Source: "10.0.0.1", Destination: "10.0.0.2", TTL: 9},
		TCP:         &TCP{SourcePort: 1, DestinationPort: 2, Window: 100, Flags: &TCPFlags{SYN: true, ACK: true}},
		PayloadSize: -1,
	}
	_, ok = p.TCPWindow()
	assert.False(t, ok)
	_, ok = p.TTL()
	assert.False(t, ok)
	_, ok = p.DataSize()
	assert.False(t, ok)

	p.TCP.WindowKnown = true
	win, ok := p.TCPWindow()
	assert.True(t, ok)
	assert.Equal(t, uint16(100), win)

	assert.Equal(t, "TCP", p.Protocol())
	assert.Equal(t, "SA", p.TCP.Flags.String())
	src, dst := p.Endpoints()
	assert.Equal(t, "10.0.0.1:1", src)
	assert.Equal(t, "10.0.0.2:2", dst)
}
