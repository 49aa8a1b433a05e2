// Package analysis finds string constants in data sections and the functions
// whose code refers to them, for x86, x86-64 and AArch64.
package analysis

import (
	"errors"
	"fmt"

	"siglocate/internal/disasm"
)

// ErrNotFound is returned when no function in the code region references
// the target address.
var ErrNotFound = errors.New("no function references target")

// Resolver finds the start of the first function in code whose body
// references target. code is mapped at base.
type Resolver interface {
	Resolve(code []byte, base, target uint64) (uint64, error)
}

// ResolverFor returns the resolver for arch.
func ResolverFor(arch disasm.Arch) (Resolver, error) {
	switch arch {
	case disasm.ArchAMD64:
		return X86Resolver{Mode: 64}, nil
	case disasm.Arch386:
		return X86Resolver{Mode: 32}, nil
	case disasm.ArchARM64:
		return ARM64Resolver{}, nil
	default:
		return nil, fmt.Errorf("resolver for %s: %w", arch, disasm.ErrUnsupportedArch)
	}
}
