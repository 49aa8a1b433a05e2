package disasm

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrUnsupportedArch is returned for instruction sets other than x86,
// x86-64 and AArch64.
var ErrUnsupportedArch = errors.New("unsupported architecture")

// Arch identifies an instruction set.
type Arch int

const (
	ArchUnknown Arch = iota
	ArchAMD64
	Arch386
	ArchARM64
)

func (a Arch) String() string {
	switch a {
	case ArchAMD64:
		return "amd64"
	case Arch386:
		return "386"
	case ArchARM64:
		return "arm64"
	default:
		return "unknown"
	}
}

// Bits returns the x86 decoder mode for a, or 64 for AArch64.
func (a Arch) Bits() int {
	if a == Arch386 {
		return 32
	}
	return 64
}

// ParseArch accepts Go and toolchain spellings ("amd64", "x86_64", "aarch64", ...).
// The empty string selects the host architecture.
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return HostArch(), nil
	case "amd64", "x86_64", "x86-64", "x64":
		return ArchAMD64, nil
	case "386", "i386", "x86":
		return Arch386, nil
	case "arm64", "aarch64":
		return ArchARM64, nil
	default:
		return ArchUnknown, fmt.Errorf("parse arch %q: %w", s, ErrUnsupportedArch)
	}
}

// HostArch returns the architecture this binary was built for.
func HostArch() Arch {
	switch runtime.GOARCH {
	case "amd64":
		return ArchAMD64
	case "386":
		return Arch386
	case "arm64":
		return ArchARM64
	default:
		return ArchUnknown
	}
}
