package sections

import (
	"bytes"
	"debug/elf"
	"fmt"
	"os"

	"siglocate/internal/disasm"
)

// Image is a module read from disk rather than from the running process.
type Image struct {
	Path     string
	Format   string // "elf" or "pe"
	Arch     disasm.Arch
	Base     uint64
	Sections []Section
	Symbols  []Symbol

	data []byte
}

// Open reads the ELF or PE image at path. Section addresses are the image's
// own virtual addresses (sh_addr for ELF, ImageBase + VirtualAddress for PE),
// so references found in its code resolve without relocation.
func Open(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}

	img := &Image{Path: path, data: data}
	switch {
	case bytes.HasPrefix(data, []byte(elf.ELFMAG)):
		err = img.loadELF()
	case bytes.HasPrefix(data, []byte("MZ")):
		err = img.loadPE()
	default:
		err = ErrUnknownFormat
	}
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	return img, nil
}

func (img *Image) loadELF() error {
	f, err := elf.NewFile(bytes.NewReader(img.data))
	if err != nil {
		return fmt.Errorf("parse elf: %w", err)
	}
	defer f.Close()

	img.Format = "elf"
	img.Arch = elfArch(f)
	img.Base = elfLoadBias(f)

	img.Sections, err = elfSections(f,
		func(h elf.SectionHeader) uint64 { return h.Addr },
		func(_ uint64, h elf.SectionHeader) Region {
			if h.Type == elf.SHT_NOBITS {
				return nil
			}
			return clip(img.data, h.Offset, h.Size)
		})
	if err != nil {
		return err
	}
	img.Symbols = elfSymbols(f)
	return nil
}

func (img *Image) loadPE() error {
	p, err := newPEImage(img.data)
	if err != nil {
		return err
	}
	img.Format = "pe"
	img.Arch = p.arch()
	img.Base = p.imageBase()
	img.Sections, err = p.sections(img.data, img.Base, false)
	return err
}

// elfLoadBias returns vaddr - offset of the first PT_LOAD segment.
func elfLoadBias(f *elf.File) uint64 {
	for _, p := range f.Progs {
		if p.Type == elf.PT_LOAD {
			return p.Vaddr - p.Off
		}
	}
	return 0
}

// ReadAt returns up to n bytes at virtual address va.
func (img *Image) ReadAt(va uint64, n int) ([]byte, bool) {
	for _, s := range img.Sections {
		b := s.Bytes()
		if va < s.Addr || va >= s.Addr+uint64(len(b)) {
			continue
		}
		off := va - s.Addr
		end := min(off+uint64(n), uint64(len(b)))
		return b[off:end], true
	}
	return nil, false
}
