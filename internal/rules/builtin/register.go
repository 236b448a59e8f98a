package builtin

import (
	"fmt"

	"ips-guard/internal/plugin"
)

var kinds = []rangeKind{windowKind, ttlKind, dsizeKind, itypeKind}

// Register adds every builtin option kind to reg.
func Register(reg *plugin.Registry) error {
	for _, k := range kinds {
		if _, err := reg.RegisterIps(k.api()); err != nil {
			return fmt.Errorf("register %s: %w", k.name, err)
		}
	}
	return nil
}
