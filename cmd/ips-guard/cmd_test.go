package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunVersion(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runVersion(cmd, []string{}))

	output := buf.String()
	assert.Contains(t, output, "ips-guard ")
	assert.Contains(t, output, "Plugin API: 1")
	assert.Contains(t, output, "Go version:")
}

func TestRunOptions_JSON(t *testing.T) {
	optionsFormat = "json"
	t.Cleanup(func() { optionsFormat = "table" })

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	require.NoError(t, runOptions(cmd, nil))

	var kinds []kindInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &kinds))

	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, k.Name)
	}
	assert.Equal(t, []string{"window", "ttl", "dsize", "itype", "alert_fast"}, names)
	assert.Equal(t, "tcp", kinds[0].Protocols)
	assert.Equal(t, "~range", kinds[0].Params[0].Name)
}

func TestRunOptions_Table(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	require.NoError(t, runOptions(cmd, nil))

	assert.Contains(t, buf.String(), "alert_fast")
	assert.Contains(t, buf.String(), "B | K | M | G")
}

func tcpFrame(t *testing.T, window uint16, ttl uint8) []byte {
	t.Helper()
	ip := &layers.IPv4{
		Version: 4, IHL: 5, TTL: ttl, Protocol: layers.IPProtocolTCP,
		SrcIP: net.IPv4(192, 0, 2, 10), DstIP: net.IPv4(198, 51, 100, 20),
	}
	tcp := &layers.TCP{SrcPort: 40000, DstPort: 443, Window: window, ACK: true}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp))
	return buf.Bytes()
}

func writePcap(t *testing.T, path string, frames ...[]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	for i, frame := range frames {
		ci := gopacket.CaptureInfo{Timestamp: time.Unix(1700000000+int64(i), 0), CaptureLength: len(frame), Length: len(frame)}
		require.NoError(t, w.WritePacket(ci, frame))
	}
}

func TestRunReplay(t *testing.T) {
	dir := t.TempDir()

	rulesPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(`
rules:
  - sid: 1000001
    msg: "TCP zero window"
    options:
      - window: "0"
  - sid: 1000002
    msg: "Low TTL"
    options:
      - ttl: "<5"
`), 0o644))

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("rules:\n  files: ["+rulesPath+"]\nlogging:\n  level: error\n"), 0o644))

	pcapPath := filepath.Join(dir, "capture.pcap")
	writePcap(t, pcapPath, tcpFrame(t, 0, 64), tcpFrame(t, 0, 3), tcpFrame(t, 8192, 64))

	prev := configFile
	configFile, replayWorkers = cfgPath, 2
	t.Cleanup(func() { configFile, replayWorkers = prev, 0 })

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	require.NoError(t, runReplay(cmd, []string{pcapPath}))

	out := buf.String()
	assert.Regexp(t, `1:1000001:0\s+2\s+TCP zero window`, out)
	assert.Regexp(t, `1:1000002:0\s+1\s+Low TTL`, out)
	assert.Regexp(t, `window\s+checks=3\s`, out)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	prev := configFile
	configFile = filepath.Join(t.TempDir(), "missing.yaml")
	ruleFiles = []string{"a.yaml"}
	t.Cleanup(func() { configFile, ruleFiles = prev, nil })

	config, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.yaml"}, config.Rules.Files)
	assert.Equal(t, ":8080", config.Application.ListenAddress)
}
