package sections

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// mapping is one line of /proc/<pid>/maps.
type mapping struct {
	start, end uint64
	offset     uint64
	perms      string
	path       string
}

func readMaps(path string) ([]mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read maps: %w", err)
	}
	defer f.Close()
	return parseMaps(f)
}

// parseMaps parses lines of the form
//
//	7f2c4e600000-7f2c4e628000 r--p 00000000 08:01 1835 /usr/lib/libc.so.6
func parseMaps(r io.Reader) ([]mapping, error) {
	var out []mapping
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 {
			continue
		}

		addrRange := strings.SplitN(fields[0], "-", 2)
		if len(addrRange) != 2 {
			continue
		}
		start, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil {
			continue
		}
		offset, err := strconv.ParseUint(fields[2], 16, 64)
		if err != nil {
			continue
		}

		m := mapping{start: start, end: end, offset: offset, perms: fields[1]}
		if len(fields) >= 6 {
			m.path = strings.TrimSuffix(strings.Join(fields[5:], " "), " (deleted)")
		}
		out = append(out, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read maps: %w", err)
	}
	return out, nil
}

// findModule locates target among the mappings. The running executable is
// matched by its resolved path; anything else by full path or basename.
// The base is the lowest start-minus-offset over the module's mappings.
func findModule(maps []mapping, target Target, exe string) (Module, error) {
	name := target.Name
	if name == "" {
		name = exe
	}
	if name == "" {
		return Module{}, ErrModuleNotFound
	}

	var (
		mod   Module
		found bool
	)
	for _, m := range maps {
		if m.path == "" || (m.path != name && filepath.Base(m.path) != name) {
			continue
		}
		base := m.start - m.offset
		if !found || base < mod.Base {
			mod = Module{Path: m.path, Base: base}
			found = true
		}
	}
	if !found {
		return Module{}, fmt.Errorf("%s: %w", name, ErrModuleNotFound)
	}
	return mod, nil
}

// covered reports whether [addr, addr+size) lies entirely in readable
// mappings. The window is widened to page boundaries first.
func covered(maps []mapping, addr, size uint64, pageSize int) bool {
	if size == 0 {
		return false
	}
	ps := uint64(pageSize)
	lo := addr &^ (ps - 1)
	hi := (addr + size + ps - 1) &^ (ps - 1)

	for lo < hi {
		advanced := false
		for _, m := range maps {
			if lo >= m.start && lo < m.end && strings.HasPrefix(m.perms, "r") {
				lo = m.end
				advanced = true
				break
			}
		}
		if !advanced {
			return false
		}
	}
	return true
}
