package alert

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ips-guard/internal/model"
	"ips-guard/internal/module"
	"ips-guard/internal/param"
	"ips-guard/internal/plugin"
)

const fastName = "alert_fast"

var fastParams = param.Table{
	{Name: "file", Type: param.String, Default: "stdout", Help: "name of alert file"},
	{Name: "packet", Type: param.Bool, Default: "true", Help: "output packet dump with alert"},
	{Name: "limit", Type: param.Int, Range: "0:", Default: "0", Help: "set limit (0 is unlimited)"},
	{Name: "units", Type: param.Enum, Range: "B | K | M | G", Default: "B", Help: "bytes | KB | MB | GB"},
}

// FastModule configures the alert_fast logger. End turns limit into bytes.
type FastModule struct {
	File   string
	Packet bool
	Limit  uint64
	units  int
}

func (m *FastModule) Name() string        { return fastName }
func (m *FastModule) Help() string        { return "output event with brief text format" }
func (m *FastModule) Params() param.Table { return fastParams }

func (m *FastModule) Begin() error {
	*m = FastModule{Packet: true}
	return nil
}

func (m *FastModule) Set(v param.Value) error {
	switch {
	case v.Is("file"):
		m.File = v.String()
	case v.Is("packet"):
		m.Packet = v.Bool()
	case v.Is("limit"):
		m.Limit = uint64(v.Int())
	case v.Is("units"):
		m.units = v.Enum()
	default:
		return fmt.Errorf("%w: %s", param.ErrUnknownParameter, v.Name())
	}
	return nil
}

func (m *FastModule) End() error {
	for ; m.units > 0; m.units-- {
		if m.Limit > math.MaxUint64/1024 {
			return fmt.Errorf("%w: limit overflows 64 bits in bytes", param.ErrInvalidValue)
		}
		m.Limit *= 1024
	}
	return nil
}

// FastLogger writes one line per alert, optionally followed by a packet
// summary. A file output is rolled to "<file>.<unix nanos>" when the next
// record would pass the byte limit.
type FastLogger struct {
	path   string
	packet bool
	limit  uint64

	mu   sync.Mutex
	file *os.File
	out  *bufio.Writer
	size uint64
}

func NewFastLogger(m *FastModule) *FastLogger {
	return &FastLogger{path: m.File, packet: m.Packet, limit: m.Limit}
}

func (l *FastLogger) toStdout() bool {
	return l.path == "" || l.path == "stdout"
}

func (l *FastLogger) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.toStdout() {
		l.out = bufio.NewWriter(os.Stdout)
		return nil
	}
	return l.openFile()
}

func (l *FastLogger) openFile() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("%s: create directory for %s: %w", fastName, l.path, err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("%s: open %s: %w", fastName, l.path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("%s: stat %s: %w", fastName, l.path, err)
	}
	l.file = f
	l.out = bufio.NewWriter(f)
	l.size = uint64(st.Size())
	return nil
}

func (l *FastLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out == nil {
		return nil
	}
	err := l.out.Flush()
	l.out = nil
	if l.file != nil {
		if cerr := l.file.Close(); err == nil {
			err = cerr
		}
		l.file = nil
	}
	return err
}

func (l *FastLogger) Alert(a model.Alert) error {
	rec := l.format(a)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out == nil {
		return fmt.Errorf("%s: not open", fastName)
	}
	if l.file != nil && l.limit > 0 && l.size > 0 && l.size+uint64(len(rec)) > l.limit {
		if err := l.roll(); err != nil {
			return err
		}
	}
	n, err := io.WriteString(l.out, rec)
	l.size += uint64(n)
	if err != nil {
		return fmt.Errorf("%s: write: %w", fastName, err)
	}
	return l.out.Flush()
}

func (l *FastLogger) roll() error {
	if err := l.out.Flush(); err != nil {
		return err
	}
	if err := l.file.Close(); err != nil {
		return err
	}
	l.file, l.out = nil, nil

	rolled := fmt.Sprintf("%s.%d", l.path, time.Now().UnixNano())
	if err := os.Rename(l.path, rolled); err != nil {
		return fmt.Errorf("%s: roll %s: %w", fastName, l.path, err)
	}
	return l.openFile()
}

// format renders
//
//	MM/DD-hh:mm:ss.uuuuuu [**] [gid:sid:rev] msg [**] [Priority: N] {PROTO} src -> dst
func (l *FastLogger) format(a model.Alert) string {
	var b strings.Builder
	b.WriteString(a.Timestamp.Format("01/02-15:04:05.000000"))
	fmt.Fprintf(&b, " [**] [%s] %s [**] ", a.RuleID, a.Message)

	p := a.Packet
	if p.HasIP() {
		fmt.Fprintf(&b, "[Priority: %d] {%s} ", a.Priority, p.Protocol())
		src, dst := p.Endpoints()
		fmt.Fprintf(&b, "%s -> %s", src, dst)
	}
	b.WriteByte('\n')

	if l.packet && p.HasIP() {
		writePacket(&b, p)
	}
	return b.String()
}

func writePacket(b *strings.Builder, p *model.Packet) {
	if ttl, ok := p.TTL(); ok {
		fmt.Fprintf(b, "%s TTL:%d ID:%d", p.Protocol(), ttl, p.IP.ID)
	} else {
		b.WriteString(p.Protocol())
	}
	if n, ok := p.DataSize(); ok {
		fmt.Fprintf(b, " DgmLen:%d", n)
	}
	b.WriteByte('\n')

	switch {
	case p.HasTCP():
		flags := "NONE"
		if p.TCP.Flags != nil {
			flags = p.TCP.Flags.String()
		}
		fmt.Fprintf(b, "***%s*** Seq: 0x%X  Ack: 0x%X", flags, p.TCP.Seq, p.TCP.Ack)
		if win, ok := p.TCPWindow(); ok {
			fmt.Fprintf(b, "  Win: 0x%X", win)
		}
		b.WriteByte('\n')
	case p.HasICMP():
		fmt.Fprintf(b, "Type:%d  Code:%d\n", p.ICMP.Type, p.ICMP.Code)
	}

	if len(p.Payload) > 0 {
		b.WriteString(hex.Dump(p.Payload))
	}
	b.WriteString("\n")
}

// FastApi is the alert_fast logger descriptor.
var FastApi = &plugin.LoggerApi{
	BaseApi: plugin.BaseApi{
		Type:    plugin.TypeLogger,
		Name:    fastName,
		Help:    "output event with brief text format",
		Version: plugin.ApiVersion,
		ModCtor: func() module.Module { return &FastModule{} },
		ModDtor: func(module.Module) {},
	},
	Ctor: func(m module.Module) (plugin.Logger, error) {
		fm, ok := m.(*FastModule)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected module %T", fastName, m)
		}
		return NewFastLogger(fm), nil
	},
	Dtor: func(plugin.Logger) {},
}
