package sections

import (
	"debug/elf"
	"fmt"
	"io"

	"siglocate/internal/disasm"
)

// ParseELF reads the section table of the ELF image in r. Each section's
// address is base + sh_offset, not sh_addr. That matches the in-memory
// layout only when file offsets and virtual addresses differ by the same
// constant for every section of interest, which holds for the images this
// tool targets but not for arbitrary segment layouts.
//
// view supplies the bytes behind each section; it may return nil.
func ParseELF(r io.ReaderAt, base uint64, view func(addr uint64, h elf.SectionHeader) Region) ([]Section, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("parse elf: %w", err)
	}
	defer f.Close()

	return elfSections(f, func(h elf.SectionHeader) uint64 { return base + h.Offset }, view)
}

func elfSections(f *elf.File, addrOf func(elf.SectionHeader) uint64, view func(uint64, elf.SectionHeader) Region) ([]Section, error) {
	if len(f.Sections) == 0 {
		return nil, fmt.Errorf("parse elf: %w", ErrNoSections)
	}

	secs := make([]Section, 0, len(f.Sections))
	for _, s := range f.Sections {
		addr := addrOf(s.SectionHeader)
		sec := Section{Name: s.Name, Addr: addr, Size: s.Size}
		if view != nil {
			sec.region = view(addr, s.SectionHeader)
		}
		secs = append(secs, sec)
	}
	return secs, nil
}

// elfArch maps e_machine to an instruction set.
func elfArch(f *elf.File) disasm.Arch {
	switch f.Machine {
	case elf.EM_X86_64:
		return disasm.ArchAMD64
	case elf.EM_386:
		return disasm.Arch386
	case elf.EM_AARCH64:
		return disasm.ArchARM64
	default:
		return disasm.ArchUnknown
	}
}

// elfSymbols collects function and object symbols from .symtab and .dynsym.
func elfSymbols(f *elf.File) []Symbol {
	var out []Symbol
	add := func(syms []elf.Symbol) {
		for _, s := range syms {
			typ := elf.ST_TYPE(s.Info)
			if s.Value == 0 || (typ != elf.STT_FUNC && typ != elf.STT_OBJECT) {
				continue
			}
			out = append(out, Symbol{Name: s.Name, Addr: s.Value, Size: s.Size})
		}
	}
	if syms, err := f.Symbols(); err == nil {
		add(syms)
	}
	if syms, err := f.DynamicSymbols(); err == nil {
		add(syms)
	}
	return out
}
