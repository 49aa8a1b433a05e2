//go:build linux

package sections

import (
	"debug/elf"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Resolve enumerates the sections of target as mapped in this process. The
// module is found in /proc/self/maps, its file is re-read from disk, and
// each section is placed at base + sh_offset.
//
// A library that is not already loaded is reported as ErrModuleNotFound;
// Resolve never loads anything.
func Resolve(target Target) ([]Section, error) {
	maps, err := readMaps("/proc/self/maps")
	if err != nil {
		return nil, err
	}

	exe, err := os.Executable()
	if err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
	}

	mod, err := findModule(maps, target, exe)
	if err != nil {
		return nil, fmt.Errorf("resolve sections: %w", err)
	}

	f, err := os.Open(mod.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve sections: %w", err)
	}
	defer f.Close()

	pageSize := unix.Getpagesize()
	secs, err := ParseELF(f, mod.Base, func(addr uint64, h elf.SectionHeader) Region {
		// .bss and friends have an offset but no file bytes behind it.
		if h.Type == elf.SHT_NOBITS || !covered(maps, addr, h.Size, pageSize) {
			return nil
		}
		return liveRegion{addr: uintptr(addr), size: uintptr(h.Size)}
	})
	if err != nil {
		return nil, fmt.Errorf("resolve sections for %s: %w", mod.Path, err)
	}
	return secs, nil
}

// Mapped reports whether [addr, addr+size) is readable in this process.
func Mapped(addr, size uint64) bool {
	maps, err := readMaps("/proc/self/maps")
	if err != nil {
		return false
	}
	return covered(maps, addr, size, unix.Getpagesize())
}
