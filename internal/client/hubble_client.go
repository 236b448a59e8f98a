package client

import (
	"context"
	"fmt"
	"io"
	"time"

	"ips-guard/internal/model"

	flowpb "github.com/cilium/cilium/api/v1/flow"
	"github.com/cilium/cilium/api/v1/observer"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
)

// HubbleGRPCClient follows the flow stream of a Hubble relay. Flows carry
// addresses, ports, TCP flags and ICMP type but no TTL, window or
// payload, so options testing those fields never match a flow.
type HubbleGRPCClient struct {
	conn       *grpc.ClientConn
	server     string
	namespaces []string
	logger     *logrus.Logger
}

func NewHubbleGRPCClient(server string, namespaces []string, logger *logrus.Logger) (*HubbleGRPCClient, error) {
	conn, err := grpc.NewClient(server, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Hubble server: %w", err)
	}

	return &HubbleGRPCClient{
		conn:       conn,
		server:     server,
		namespaces: namespaces,
		logger:     logger,
	}, nil
}

func (c *HubbleGRPCClient) Name() string { return "hubble" }

func (c *HubbleGRPCClient) Close() error {
	return c.conn.Close()
}

// TestConnection waits up to 10s for the connection to become ready.
func (c *HubbleGRPCClient) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c.conn.Connect()
	for {
		state := c.conn.GetState()
		if state == connectivity.Ready {
			c.logger.Infof("Successfully connected to Hubble relay at %s", c.server)
			return nil
		}
		if !c.conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("connection test failed: connection state is %s", state)
		}
	}
}

func (c *HubbleGRPCClient) request() *observer.GetFlowsRequest {
	req := &observer.GetFlowsRequest{
		Follow: true,
	}
	for _, ns := range c.namespaces {
		req.Whitelist = append(req.Whitelist,
			&flowpb.FlowFilter{
				SourceLabel: []string{"k8s:io.kubernetes.pod.namespace=" + ns},
			},
			&flowpb.FlowFilter{
				DestinationLabel: []string{"k8s:io.kubernetes.pod.namespace=" + ns},
			},
		)
	}
	return req
}

func (c *HubbleGRPCClient) Stream(ctx context.Context, handle func(*model.Packet)) error {
	client := observer.NewObserverClient(c.conn)

	stream, err := client.GetFlows(ctx, c.request())
	if err != nil {
		return fmt.Errorf("failed to start flow streaming: %w", err)
	}
	c.logger.WithField("namespaces", c.namespaces).Infof("Streaming flows from %s", c.server)

	flowCount := 0
	lastLogTime := time.Now()

	for {
		response, err := stream.Recv()
		if err == io.EOF {
			c.logger.Info("Stream ended")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to receive flow: %w", err)
		}

		if p := FlowToPacket(response.GetFlow()); p != nil {
			flowCount++
			handle(p)
		}

		if time.Since(lastLogTime) >= 10*time.Second {
			c.logger.Debugf("Processed %d flows in the last 10 seconds", flowCount)
			lastLogTime = time.Now()
			flowCount = 0
		}
	}
}

// FlowToPacket converts an IPv4 flow into a packet view. Other flows
// return nil.
func FlowToPacket(f *flowpb.Flow) *model.Packet {
	if f == nil || f.GetIP() == nil || f.GetIP().GetIpVersion() == flowpb.IPVersion_IPv6 {
		return nil
	}

	p := &model.Packet{PayloadSize: -1}
	if f.GetTime() != nil {
		p.Time = f.GetTime().AsTime()
	}

	p.IP = &model.IPv4{
		Source:      f.GetIP().GetSource(),
		Destination: f.GetIP().GetDestination(),
	}

	l4 := f.GetL4()
	if tcp := l4.GetTCP(); tcp != nil {
		p.IP.Protocol = 6
		p.TCP = &model.TCP{
			SourcePort:      uint16(tcp.GetSourcePort()),
			DestinationPort: uint16(tcp.GetDestinationPort()),
		}
		if flags := tcp.GetFlags(); flags != nil {
			p.TCP.Flags = &model.TCPFlags{
				SYN: flags.GetSYN(),
				ACK: flags.GetACK(),
				FIN: flags.GetFIN(),
				RST: flags.GetRST(),
				PSH: flags.GetPSH(),
				URG: flags.GetURG(),
			}
		}
	} else if udp := l4.GetUDP(); udp != nil {
		p.IP.Protocol = 17
		p.UDP = &model.UDP{
			SourcePort:      uint16(udp.GetSourcePort()),
			DestinationPort: uint16(udp.GetDestinationPort()),
		}
	} else if icmp := l4.GetICMPv4(); icmp != nil {
		p.IP.Protocol = 1
		p.ICMP = &model.ICMP{Type: uint8(icmp.GetType()), Code: uint8(icmp.GetCode())}
	}
	return p
}
