// Package sections enumerates the named regions of a loaded module, either
// in the running process or from an image on disk.
package sections

import (
	"errors"
	"unsafe"
)

var (
	// ErrModuleNotFound is returned when the target module is not loaded.
	ErrModuleNotFound = errors.New("module not found")
	// ErrNoSections is returned for images without a section table.
	ErrNoSections = errors.New("no section headers")
	// ErrUnsupported is returned on platforms without a live resolver.
	ErrUnsupported = errors.New("section discovery not supported on this platform")
	// ErrUnknownFormat is returned for files that are neither ELF nor PE.
	ErrUnknownFormat = errors.New("unknown image format")
)

// Region is a read-only window onto bytes owned by someone else. A live
// region aliases process memory and is only valid while the module stays
// mapped; callers must not write through the returned slice.
type Region interface {
	Bytes() []byte
}

// liveRegion views mapped memory in place.
type liveRegion struct {
	addr uintptr
	size uintptr
}

func (r liveRegion) Bytes() []byte {
	if r.addr == 0 || r.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(r.addr)), r.size)
}

// sliceRegion views a slice owned by an image or a test.
type sliceRegion []byte

func (r sliceRegion) Bytes() []byte { return r }

// Section is one named region of a module's image.
type Section struct {
	Name string
	Addr uint64
	Size uint64

	region Region
}

// NewSection returns a section backed by data, mapped at addr.
func NewSection(name string, addr uint64, data []byte) Section {
	return Section{Name: name, Addr: addr, Size: uint64(len(data)), region: sliceRegion(data)}
}

// Bytes returns the section contents, or nil if the section has no backing
// (for example .bss, or a window that is not mapped).
func (s Section) Bytes() []byte {
	if s.region == nil {
		return nil
	}
	return s.region.Bytes()
}

// Find returns the first section called name.
func Find(secs []Section, name string) (Section, bool) {
	for _, s := range secs {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Filter returns the sections whose name is in names, keeping the order of
// secs rather than the order of names.
func Filter(secs []Section, names ...string) []Section {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Section
	for _, s := range secs {
		if want[s.Name] {
			out = append(out, s)
		}
	}
	return out
}

// Symbol is a named address from an image's symbol table.
type Symbol struct {
	Name string
	Addr uint64
	Size uint64
}

// Target selects the module to resolve. An empty Name is the running
// executable.
type Target struct {
	Name string
}

// Module is a located, loaded image: where its file lives and where it is
// mapped.
type Module struct {
	Path string
	Base uint64
}
