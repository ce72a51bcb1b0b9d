//go:build (linux || darwin || freebsd) && cgo

package goplugin

import (
	"fmt"
	"plugin"
)

func open(path string) (Symbols, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return Symbols{}, err
	}
	var sym Symbols
	if err := lookup(p, "Init", &sym.Init); err != nil {
		return Symbols{}, err
	}
	if err := lookup(p, "Name", &sym.Name); err != nil {
		return Symbols{}, err
	}
	if err := lookup(p, "Remaining", &sym.Remaining); err != nil {
		return Symbols{}, err
	}
	// Rank is optional.
	_ = lookup(p, "Rank", &sym.Rank)
	return sym, nil
}

func lookup[F any](p *plugin.Plugin, name string, dst *F) error {
	s, err := p.Lookup(name)
	if err != nil {
		return err
	}
	f, ok := s.(F)
	if !ok {
		return fmt.Errorf("plugin symbol %s has type %T", name, s)
	}
	*dst = f
	return nil
}
