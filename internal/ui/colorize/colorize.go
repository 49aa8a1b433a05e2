// Package colorize highlights disassembly listings for the terminal.
package colorize

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"siglocate/internal/disasm"
)

// NoColorEnv disables all highlighting when set to any value.
const NoColorEnv = "SIGLOCATE_NO_COLOR"

// Enabled reports whether output should carry ANSI colors.
func Enabled() bool {
	return os.Getenv(NoColorEnv) == ""
}

// lexerFor returns an assembly lexer for arch with fallbacks
func lexerFor(arch disasm.Arch) chroma.Lexer {
	candidates := []string{"gas", "GAS", "nasm"}
	if arch == disasm.ArchARM64 {
		candidates = []string{"armasm", "gas", "GAS"}
	}
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

// getDisasmStyle returns the disassembly style with fallbacks
func getDisasmStyle() *chroma.Style {
	candidates := []string{"disasm-dark", "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

func highlight(lexer chroma.Lexer, code string) (string, error) {
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}
	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getDisasmStyle(), iterator); err != nil {
		return code, err
	}
	// lexers append a newline to single lines
	return strings.ReplaceAll(buf.String(), "\n", ""), nil
}

// Listing colorizes a newline-terminated disassembly listing line by line, keeping the
// address column gray.
func Listing(arch disasm.Arch, listing string) string {
	if !Enabled() {
		return listing
	}
	lines := strings.Split(strings.TrimSuffix(listing, "\n"), "\n")
	for i, line := range lines {
		lines[i] = InstructionLine(arch, line)
	}
	return strings.Join(lines, "\n") + "\n"
}

// InstructionLine colorizes one "addr  text" line. Lines that do not start
// with a hex address are highlighted whole.
func InstructionLine(arch disasm.Arch, line string) string {
	if !Enabled() {
		return line
	}
	lexer := lexerFor(arch)
	if lexer == nil {
		return line
	}

	addr, rest, ok := strings.Cut(line, " ")
	if !ok || !isHex(addr) {
		out, _ := highlight(lexer, line)
		return out
	}

	// Color address in gray (79, 79, 79)
	out, _ := highlight(lexer, rest)
	return fmt.Sprintf("\033[38;2;79;79;79m%s\033[0m %s", addr, out)
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !((ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')) {
			return false
		}
	}
	return true
}

// StripANSI removes ANSI escape sequences.
func StripANSI(s string) string {
	var result strings.Builder
	inEscape := false

	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
		} else if inEscape {
			if r == 'm' {
				inEscape = false
			}
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}
