package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"ips-guard/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/sirupsen/logrus"
)

var ErrNotDecoded = errors.New("packet could not be decoded")

// PcapSource replays a pcap capture.
type PcapSource struct {
	name     string
	closer   io.Closer
	reader   *pcapgo.Reader
	logger   *logrus.Logger
	packets  int
	failures int
	onError  func(error)
}

// OpenPcap opens a capture file for replay.
func OpenPcap(path string, logger *logrus.Logger) (*PcapSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture %s: %w", path, err)
	}
	s, err := NewPcapSource(path, f, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// NewPcapSource reads a capture from r.
func NewPcapSource(name string, r io.Reader, logger *logrus.Logger) (*PcapSource, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read pcap header of %s: %w", name, err)
	}
	return &PcapSource{name: name, reader: reader, logger: logger}, nil
}

func (s *PcapSource) Name() string { return "pcap" }

// OnDecodeError registers fn to be called for every skipped record.
func (s *PcapSource) OnDecodeError(fn func(err error)) { s.onError = fn }

// Failures counts records that could not be decoded.
func (s *PcapSource) Failures() int { return s.failures }

func (s *PcapSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Next returns the next decoded packet or io.EOF. Records that fail to
// decode are skipped.
func (s *PcapSource) Next() (*model.Packet, error) {
	for {
		data, ci, err := s.reader.ReadPacketData()
		if err != nil {
			return nil, err
		}
		p, err := DecodePacket(data, s.reader.LinkType(), ci.Timestamp)
		if err != nil {
			s.failures++
			if s.onError != nil {
				s.onError(err)
			}
			if s.logger != nil {
				s.logger.WithField("record", s.packets+s.failures).Debugf("Skipping record: %v", err)
			}
			continue
		}
		s.packets++
		return p, nil
	}
}

func (s *PcapSource) Stream(ctx context.Context, handle func(*model.Packet)) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		p, err := s.Next()
		if err == io.EOF {
			if s.logger != nil {
				s.logger.Infof("Capture %s done: %d packets, %d undecodable", s.name, s.packets, s.failures)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", s.name, err)
		}
		handle(p)
	}
}

// DecodePacket converts one link-layer frame. Non-IPv4 frames decode to a
// packet without headers, which no rule option matches.
func DecodePacket(data []byte, link layers.LinkType, ts time.Time) (*model.Packet, error) {
	pkt := gopacket.NewPacket(data, link, gopacket.DecodeOptions{Lazy: true, NoCopy: true})

	p := &model.Packet{Time: ts, PayloadSize: -1}

	ip4, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok {
		if errLayer := pkt.ErrorLayer(); errLayer != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotDecoded, errLayer.Error())
		}
		return p, nil
	}
	p.IP = &model.IPv4{
		Source:      ip4.SrcIP.String(),
		Destination: ip4.DstIP.String(),
		TTL:         ip4.TTL,
		ID:          ip4.Id,
		Protocol:    uint8(ip4.Protocol),
		TTLKnown:    true,
	}

	switch l := pkt.TransportLayer().(type) {
	case *layers.TCP:
		p.TCP = &model.TCP{
			SourcePort:      uint16(l.SrcPort),
			DestinationPort: uint16(l.DstPort),
			Seq:             l.Seq,
			Ack:             l.Ack,
			Window:          l.Window,
			WindowKnown:     true,
			Flags: &model.TCPFlags{
				SYN: l.SYN, ACK: l.ACK, FIN: l.FIN,
				RST: l.RST, PSH: l.PSH, URG: l.URG,
			},
		}
		setPayload(p, l.LayerPayload())
	case *layers.UDP:
		p.UDP = &model.UDP{SourcePort: uint16(l.SrcPort), DestinationPort: uint16(l.DstPort)}
		setPayload(p, l.LayerPayload())
	default:
		if icmp, ok := pkt.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4); ok {
			p.ICMP = &model.ICMP{Type: icmp.TypeCode.Type(), Code: icmp.TypeCode.Code()}
			setPayload(p, icmp.LayerPayload())
		}
	}

	if p.TCP == nil && p.UDP == nil && p.ICMP == nil {
		if errLayer := pkt.ErrorLayer(); errLayer != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotDecoded, errLayer.Error())
		}
	}
	return p, nil
}

func setPayload(p *model.Packet, payload []byte) {
	p.Payload = payload
	p.PayloadSize = len(payload)
}
