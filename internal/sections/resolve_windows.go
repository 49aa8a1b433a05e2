//go:build windows

package sections

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Resolve enumerates the sections of target as mapped in this process. The
// image is parsed in place; each section sits at base + VirtualAddress.
func Resolve(target Target) ([]Section, error) {
	var name *uint16
	if target.Name != "" {
		var err error
		if name, err = windows.UTF16PtrFromString(target.Name); err != nil {
			return nil, fmt.Errorf("resolve sections: %w", err)
		}
	}

	var h windows.Handle
	if err := windows.GetModuleHandleEx(0, name, &h); err != nil {
		return nil, fmt.Errorf("resolve sections: %q: %w: %w", target.Name, ErrModuleNotFound, err)
	}
	// GetModuleHandleEx took a reference; the module itself stays loaded.
	defer windows.FreeLibrary(h)

	var mi windows.ModuleInfo
	if err := windows.GetModuleInformation(windows.CurrentProcess(), h, &mi, uint32(unsafe.Sizeof(mi))); err != nil {
		return nil, fmt.Errorf("resolve sections: module information: %w", err)
	}

	image := unsafe.Slice((*byte)(unsafe.Pointer(mi.BaseOfDll)), mi.SizeOfImage)
	secs, err := ParsePE(image, uint64(mi.BaseOfDll), true)
	if err != nil {
		return nil, fmt.Errorf("resolve sections: %w", err)
	}
	return secs, nil
}

// Mapped reports whether [addr, addr+size) is readable in this process.
func Mapped(addr, size uint64) bool {
	var mbi windows.MemoryBasicInformation
	for cur, end := addr, addr+size; cur < end; {
		if err := windows.VirtualQuery(uintptr(cur), &mbi, unsafe.Sizeof(mbi)); err != nil {
			return false
		}
		if mbi.State != windows.MEM_COMMIT || mbi.Protect&windows.PAGE_NOACCESS != 0 || mbi.Protect&windows.PAGE_GUARD != 0 {
			return false
		}
		cur = uint64(mbi.BaseAddress) + uint64(mbi.RegionSize)
	}
	return size != 0
}
