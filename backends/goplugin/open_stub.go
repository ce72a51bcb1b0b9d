//go:build !((linux || darwin || freebsd) && cgo)

package goplugin

func open(string) (Symbols, error) { return Symbols{}, ErrUnsupported }
