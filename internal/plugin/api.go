// Package plugin holds the static descriptors that bind a kind name to its
// configuration module and its constructor/destructor pair, and the
// registry the rule compiler consults by name.
package plugin

import (
	"strings"

	"ips-guard/internal/ips"
	"ips-guard/internal/model"
	"ips-guard/internal/module"
)

// ApiVersion is stamped into every descriptor; a mismatch is a packaging
// defect and registration fails.
const ApiVersion uint32 = 1

// Type tags the descriptor shape.
type Type uint8

const (
	TypeIpsOption Type = iota
	TypeLogger
)

func (t Type) String() string {
	switch t {
	case TypeIpsOption:
		return "ips_option"
	case TypeLogger:
		return "logger"
	default:
		return "unknown"
	}
}

// Protocols is the set of protocols an option applies to.
type Protocols uint8

const (
	ProtoIP Protocols = 1 << iota
	ProtoICMP
	ProtoTCP
	ProtoUDP

	ProtoAny = ProtoIP | ProtoICMP | ProtoTCP | ProtoUDP
)

func (p Protocols) String() string {
	if p == ProtoAny {
		return "any"
	}
	var names []string
	for _, b := range []struct {
		bit  Protocols
		name string
	}{{ProtoIP, "ip"}, {ProtoICMP, "icmp"}, {ProtoTCP, "tcp"}, {ProtoUDP, "udp"}} {
		if p&b.bit != 0 {
			names = append(names, b.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Category is the option category used by the rule compiler for ordering.
type Category uint8

const (
	CategoryDetection Category = iota
	CategoryData
	CategoryMeta
)

func (c Category) String() string {
	switch c {
	case CategoryDetection:
		return "detection"
	case CategoryData:
		return "data"
	case CategoryMeta:
		return "meta"
	default:
		return "unknown"
	}
}

// BaseApi is common to every kind.
type BaseApi struct {
	Type    Type
	Name    string
	Help    string
	Version uint32
	ModCtor func() module.Module
	ModDtor func(module.Module)
}

// IpsApi describes a rule option kind. Ctor receives a module that has
// completed the configuration lifecycle.
type IpsApi struct {
	BaseApi
	Category   Category
	MaxPerRule int
	Protocols  Protocols
	Ctor       func(kind ips.KindID, m module.Module) (ips.Option, error)
	Dtor       func(ips.Option)
}

// Logger consumes alerts downstream of detection.
type Logger interface {
	Open() error
	Close() error
	Alert(a model.Alert) error
}

// LoggerApi describes a logger kind.
type LoggerApi struct {
	BaseApi
	Ctor func(m module.Module) (Logger, error)
	Dtor func(Logger)
}
