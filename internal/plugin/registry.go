package plugin

import (
	"errors"
	"fmt"

	"ips-guard/internal/ips"
	"ips-guard/internal/profile"

	"github.com/samber/lo"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	ErrDuplicate  = errors.New("duplicate plugin")
	ErrInvalidApi = errors.New("invalid plugin descriptor")
	ErrNotFound   = errors.New("no such plugin")
)

// Entry is one registered kind.
type Entry struct {
	Base   *BaseApi
	Ips    *IpsApi
	Logger *LoggerApi
	Kind   ips.KindID
}

// Registry maps kind names to descriptors in registration order. It is
// populated once at startup and read-only afterwards.
type Registry struct {
	entries  *orderedmap.OrderedMap[string, *Entry]
	nextKind ips.KindID
	profile  *profile.Accumulator
}

// NewRegistry returns an empty registry. Every registered option kind gets
// a slot in acc.
func NewRegistry(acc *profile.Accumulator) *Registry {
	if acc == nil {
		acc = profile.NewAccumulator()
	}
	return &Registry{
		entries: orderedmap.New[string, *Entry](),
		profile: acc,
	}
}

func (r *Registry) Profile() *profile.Accumulator { return r.profile }

func (r *Registry) checkBase(b *BaseApi, want Type) error {
	switch {
	case b.Name == "":
		return fmt.Errorf("%w: missing name", ErrInvalidApi)
	case b.Type != want:
		return fmt.Errorf("%w: %s: type %s, want %s", ErrInvalidApi, b.Name, b.Type, want)
	case b.Version != ApiVersion:
		return fmt.Errorf("%w: %s: version %d, want %d", ErrInvalidApi, b.Name, b.Version, ApiVersion)
	case b.ModCtor == nil || b.ModDtor == nil:
		return fmt.Errorf("%w: %s: missing module constructor or destructor", ErrInvalidApi, b.Name)
	}
	if _, exists := r.entries.Get(b.Name); exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, b.Name)
	}
	return nil
}

// RegisterIps adds an option kind and returns its KindID.
func (r *Registry) RegisterIps(api *IpsApi) (ips.KindID, error) {
	if api == nil {
		return 0, fmt.Errorf("%w: nil", ErrInvalidApi)
	}
	if err := r.checkBase(&api.BaseApi, TypeIpsOption); err != nil {
		return 0, err
	}
	if api.Ctor == nil || api.Dtor == nil {
		return 0, fmt.Errorf("%w: %s: missing constructor or destructor", ErrInvalidApi, api.Name)
	}

	kind := r.nextKind
	r.nextKind++
	r.entries.Set(api.Name, &Entry{Base: &api.BaseApi, Ips: api, Kind: kind})
	r.profile.Register(int(kind), api.Name)
	return kind, nil
}

// RegisterLogger adds a logger kind.
func (r *Registry) RegisterLogger(api *LoggerApi) error {
	if api == nil {
		return fmt.Errorf("%w: nil", ErrInvalidApi)
	}
	if err := r.checkBase(&api.BaseApi, TypeLogger); err != nil {
		return err
	}
	if api.Ctor == nil || api.Dtor == nil {
		return fmt.Errorf("%w: %s: missing constructor or destructor", ErrInvalidApi, api.Name)
	}
	r.entries.Set(api.Name, &Entry{Base: &api.BaseApi, Logger: api})
	return nil
}

// Ips looks up an option kind by the name used in rule text.
func (r *Registry) Ips(name string) (*Entry, error) {
	e, ok := r.entries.Get(name)
	if !ok || e.Ips == nil {
		return nil, fmt.Errorf("%w: rule option %q", ErrNotFound, name)
	}
	return e, nil
}

// Logger looks up a logger kind by name.
func (r *Registry) Logger(name string) (*Entry, error) {
	e, ok := r.entries.Get(name)
	if !ok || e.Logger == nil {
		return nil, fmt.Errorf("%w: logger %q", ErrNotFound, name)
	}
	return e, nil
}

// Entries returns every registered kind in registration order.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, 0, r.entries.Len())
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Names returns the registered names of type t.
func (r *Registry) Names(t Type) []string {
	return lo.FilterMap(r.Entries(), func(e *Entry, _ int) (string, bool) {
		return e.Base.Name, e.Base.Type == t
	})
}
