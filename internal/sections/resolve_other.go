//go:build !linux && !windows

package sections

// Resolve is not available on this platform; use Open on a file instead.
func Resolve(target Target) ([]Section, error) {
	return nil, ErrUnsupported
}

// Mapped always reports false on this platform.
func Mapped(addr, size uint64) bool {
	return false
}
