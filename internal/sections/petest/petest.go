// Package petest builds minimal PE32+ images for tests.
package petest

import "encoding/binary"

const (
	MachineAMD64 = 0x8664
	MachineI386  = 0x14c
	MachineARM64 = 0xaa64

	// Common section characteristics.
	Code = 0x60000020 // CNT_CODE | MEM_EXECUTE | MEM_READ
	Data = 0x40000040 // CNT_INITIALIZED_DATA | MEM_READ

	fileAlign    = 0x200
	sectionAlign = 0x1000
	headerSize   = 0x200
	lfanew       = 0x80
	optSize      = 0xF0
)

// Section describes one section of the image. VA must be a multiple of
// 0x1000 and the sections must be in ascending VA order.
type Section struct {
	Name            string
	VA              uint32
	Data            []byte
	Characteristics uint32
}

func align(n, a uint32) uint32 {
	return (n + a - 1) &^ (a - 1)
}

// Build returns a PE32+ image. With mapped set the section bytes are placed
// at their virtual addresses, the way the loader lays out a module in
// memory; otherwise they follow the headers at file-aligned offsets.
func Build(machine uint16, imageBase uint64, secs []Section, mapped bool) []byte {
	sizeOfImage := uint32(sectionAlign)
	rawPtr := make([]uint32, len(secs))
	next := uint32(headerSize)
	for i, s := range secs {
		rawPtr[i] = next
		next += align(uint32(len(s.Data)), fileAlign)
		if end := align(s.VA+uint32(len(s.Data)), sectionAlign); end > sizeOfImage {
			sizeOfImage = end
		}
	}
	fileSize := next

	size := fileSize
	if mapped {
		size = sizeOfImage
	}
	b := make([]byte, size)
	le := binary.LittleEndian

	// DOS header
	b[0], b[1] = 'M', 'Z'
	le.PutUint32(b[0x3C:], lfanew)

	// NT signature and file header
	copy(b[lfanew:], "PE\x00\x00")
	fh := lfanew + 4
	le.PutUint16(b[fh:], machine)
	le.PutUint16(b[fh+2:], uint16(len(secs)))
	le.PutUint16(b[fh+16:], optSize)
	le.PutUint16(b[fh+18:], 0x22) // EXECUTABLE_IMAGE | LARGE_ADDRESS_AWARE

	// Optional header (PE32+)
	oh := fh + 20
	le.PutUint16(b[oh:], 0x20B)
	if len(secs) > 0 {
		le.PutUint32(b[oh+16:], secs[0].VA) // AddressOfEntryPoint
		le.PutUint32(b[oh+20:], secs[0].VA) // BaseOfCode
	}
	le.PutUint64(b[oh+24:], imageBase)
	le.PutUint32(b[oh+32:], sectionAlign)
	le.PutUint32(b[oh+36:], fileAlign)
	le.PutUint16(b[oh+40:], 6) // MajorOperatingSystemVersion
	le.PutUint16(b[oh+48:], 6) // MajorSubsystemVersion
	le.PutUint32(b[oh+56:], sizeOfImage)
	le.PutUint32(b[oh+60:], headerSize)
	le.PutUint16(b[oh+68:], 3) // IMAGE_SUBSYSTEM_WINDOWS_CUI
	le.PutUint64(b[oh+72:], 0x100000) // SizeOfStackReserve
	le.PutUint64(b[oh+80:], 0x1000)   // SizeOfStackCommit
	le.PutUint64(b[oh+88:], 0x100000) // SizeOfHeapReserve
	le.PutUint64(b[oh+96:], 0x1000)   // SizeOfHeapCommit
	le.PutUint32(b[oh+108:], 16)      // NumberOfRvaAndSizes

	// Section table
	st := oh + optSize
	for i, s := range secs {
		h := b[st+40*i:]
		copy(h[:8], s.Name)
		le.PutUint32(h[8:], uint32(len(s.Data)))
		le.PutUint32(h[12:], s.VA)
		le.PutUint32(h[16:], align(uint32(len(s.Data)), fileAlign))
		le.PutUint32(h[20:], rawPtr[i])
		le.PutUint32(h[36:], s.Characteristics)

		at := rawPtr[i]
		if mapped {
			at = s.VA
		}
		copy(b[at:], s.Data)
	}
	return b
}
