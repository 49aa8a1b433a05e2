package sections

import (
	"fmt"
	"strings"

	"github.com/saferwall/pe"

	"siglocate/internal/disasm"
)

// peImage is the parsed header view of a PE image.
type peImage struct {
	file *pe.File
}

func newPEImage(data []byte) (*peImage, error) {
	// Fast stops after the section table; data directories are laid out by
	// file offset and would be misread in a mapped image.
	f, err := pe.NewBytes(data, &pe.Options{Fast: true, OmitSecurityDirectory: true})
	if err != nil {
		return nil, fmt.Errorf("parse pe: %w", err)
	}
	if err := f.Parse(); err != nil {
		return nil, fmt.Errorf("parse pe: %w", err)
	}
	// No f.Close: data belongs to the caller and Close would unmap it.
	return &peImage{file: f}, nil
}

func (p *peImage) imageBase() uint64 {
	switch oh := p.file.NtHeader.OptionalHeader.(type) {
	case pe.ImageOptionalHeader64:
		return oh.ImageBase
	case pe.ImageOptionalHeader32:
		return uint64(oh.ImageBase)
	default:
		return 0
	}
}

func (p *peImage) arch() disasm.Arch {
	switch p.file.NtHeader.FileHeader.Machine {
	case pe.ImageFileMachineAMD64:
		return disasm.ArchAMD64
	case pe.ImageFileMachineI386:
		return disasm.Arch386
	case pe.ImageFileMachineARM64:
		return disasm.ArchARM64
	default:
		return disasm.ArchUnknown
	}
}

// sections lists the section table. Addresses are base + VirtualAddress and
// sizes are VirtualSize. In a mapped image the bytes sit at VirtualAddress;
// on disk they sit at PointerToRawData.
func (p *peImage) sections(data []byte, base uint64, mapped bool) ([]Section, error) {
	if len(p.file.Sections) == 0 {
		return nil, fmt.Errorf("parse pe: %w", ErrNoSections)
	}

	secs := make([]Section, 0, len(p.file.Sections))
	for _, s := range p.file.Sections {
		h := s.Header
		sec := Section{
			Name: strings.TrimRight(string(h.Name[:]), "\x00"),
			Addr: base + uint64(h.VirtualAddress),
			Size: uint64(h.VirtualSize),
		}

		start, length := uint64(h.VirtualAddress), uint64(h.VirtualSize)
		if !mapped {
			start = uint64(h.PointerToRawData)
			length = min(uint64(h.SizeOfRawData), uint64(h.VirtualSize))
		}
		sec.region = clip(data, start, length)
		secs = append(secs, sec)
	}
	return secs, nil
}

// ParsePE reads the section table of a PE image. Set mapped when data is the
// image as the loader laid it out in memory rather than the file on disk.
func ParsePE(data []byte, base uint64, mapped bool) ([]Section, error) {
	img, err := newPEImage(data)
	if err != nil {
		return nil, err
	}
	return img.sections(data, base, mapped)
}

// clip returns data[start:start+length], trimmed to what data holds.
func clip(data []byte, start, length uint64) sliceRegion {
	if start >= uint64(len(data)) {
		return nil
	}
	end := min(start+length, uint64(len(data)))
	return sliceRegion(data[start:end])
}
