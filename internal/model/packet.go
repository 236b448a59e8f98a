package model

import (
	"net"
	"strconv"
	"time"
)

// Packet is the read-only decoded view of one packet that rule options
// test. A nil header means the protocol is not present on this packet.
// Options must not keep a reference beyond the evaluation call.
type Packet struct {
	Time    time.Time `json:"time"`
	IP      *IPv4     `json:"ip,omitempty"`
	TCP     *TCP      `json:"tcp,omitempty"`
	UDP     *UDP      `json:"udp,omitempty"`
	ICMP    *ICMP     `json:"icmp,omitempty"`
	Payload []byte    `json:"-"`

	// PayloadSize is set by sources that know the transport payload length
	// without carrying the bytes (flow streams). Negative means unknown.
	PayloadSize int `json:"payload_size"`
}

// IPv4 represents IP layer information
type IPv4 struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	TTL         uint8  `json:"ttl"`
	ID          uint16 `json:"id"`
	Protocol    uint8  `json:"protocol"`
	// TTLKnown is false for sources that carry addresses but not the header.
	TTLKnown bool `json:"-"`
}

// TCP represents TCP information
type TCP struct {
	SourcePort      uint16    `json:"source_port"`
	DestinationPort uint16    `json:"destination_port"`
	Seq             uint32    `json:"seq"`
	Ack             uint32    `json:"ack"`
	Window          uint16    `json:"window"`
	Flags           *TCPFlags `json:"flags,omitempty"`
	// WindowKnown is false for sources that do not decode the TCP header.
	WindowKnown bool `json:"-"`
}

// UDP represents UDP information
type UDP struct {
	SourcePort      uint16 `json:"source_port"`
	DestinationPort uint16 `json:"destination_port"`
}

// ICMP represents ICMPv4 information
type ICMP struct {
	Type uint8 `json:"type"`
	Code uint8 `json:"code"`
}

// TCPFlags represents TCP flags
type TCPFlags struct {
	SYN bool `json:"syn"`
	ACK bool `json:"ack"`
	FIN bool `json:"fin"`
	RST bool `json:"rst"`
	PSH bool `json:"psh"`
	URG bool `json:"urg"`
}

func (f *TCPFlags) String() string {
	var flags []byte
	if f.SYN {
		flags = append(flags, 'S')
	}
	if f.ACK {
		flags = append(flags, 'A')
	}
	if f.FIN {
		flags = append(flags, 'F')
	}
	if f.RST {
		flags = append(flags, 'R')
	}
	if f.PSH {
		flags = append(flags, 'P')
	}
	if f.URG {
		flags = append(flags, 'U')
	}

	if len(flags) == 0 {
		return "NONE"
	}
	return string(flags)
}

func (p *Packet) HasIP() bool   { return p != nil && p.IP != nil }
func (p *Packet) HasTCP() bool  { return p != nil && p.TCP != nil }
func (p *Packet) HasUDP() bool  { return p != nil && p.UDP != nil }
func (p *Packet) HasICMP() bool { return p != nil && p.ICMP != nil }

// TCPWindow returns the TCP window field when the TCP header was decoded.
func (p *Packet) TCPWindow() (uint16, bool) {
	if !p.HasTCP() || !p.TCP.WindowKnown {
		return 0, false
	}
	return p.TCP.Window, true
}

// TTL returns the IPv4 time-to-live when the IP header was decoded.
func (p *Packet) TTL() (uint8, bool) {
	if !p.HasIP() || !p.IP.TTLKnown {
		return 0, false
	}
	return p.IP.TTL, true
}

// ICMPType returns the ICMP type field.
func (p *Packet) ICMPType() (uint8, bool) {
	if !p.HasICMP() {
		return 0, false
	}
	return p.ICMP.Type, true
}

// DataSize returns the transport payload length.
func (p *Packet) DataSize() (int, bool) {
	if p == nil {
		return 0, false
	}
	if p.Payload != nil {
		return len(p.Payload), true
	}
	if p.PayloadSize >= 0 && (p.TCP != nil || p.UDP != nil || p.ICMP != nil) {
		return p.PayloadSize, true
	}
	return 0, false
}

// Protocol names the highest decoded layer.
func (p *Packet) Protocol() string {
	switch {
	case p.HasTCP():
		return "TCP"
	case p.HasUDP():
		return "UDP"
	case p.HasICMP():
		return "ICMP"
	case p.HasIP():
		return "IP"
	default:
		return "UNKNOWN"
	}
}

// Endpoints returns "src:port" and "dst:port" strings for display.
func (p *Packet) Endpoints() (string, string) {
	src, dst := "-", "-"
	if p.HasIP() {
		src, dst = p.IP.Source, p.IP.Destination
	}
	switch {
	case p.HasTCP():
		return joinPort(src, p.TCP.SourcePort), joinPort(dst, p.TCP.DestinationPort)
	case p.HasUDP():
		return joinPort(src, p.UDP.SourcePort), joinPort(dst, p.UDP.DestinationPort)
	}
	return src, dst
}

func joinPort(host string, port uint16) string {
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}
