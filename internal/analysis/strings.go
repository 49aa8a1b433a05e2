package analysis

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FindString returns the address of the first occurrence of text followed by
// a NUL terminator in data, where data starts at base. The terminator keeps
// "AB" from matching inside "ABC".
func FindString(data []byte, text string, base uint64) (uint64, bool) {
	pattern := make([]byte, 0, len(text)+1)
	pattern = append(pattern, text...)
	pattern = append(pattern, 0)

	idx := bytes.Index(data, pattern)
	if idx < 0 {
		return 0, false
	}
	return base + uint64(idx), true
}

// ReadCString returns the NUL-terminated string starting at off, reading at
// most maxLen bytes.
func ReadCString(data []byte, off uint64, maxLen int) (string, bool) {
	if off >= uint64(len(data)) {
		return "", false
	}
	b := data[off:]
	if len(b) > maxLen {
		b = b[:maxLen]
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b), true
}

// EscapeUnprintable returns a string where printable Unicode runes are preserved.
// Control and unprintable runes are escaped as \uXXXX. Invalid UTF-8 is escaped as \xXX.
func EscapeUnprintable(b []byte) string {
	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			fmt.Fprintf(&sb, "\\x%02X", b[0])
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
		} else {
			fmt.Fprintf(&sb, "\\u%04X", r)
		}
		b = b[size:]
	}
	return sb.String()
}
