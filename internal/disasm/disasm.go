// Package disasm defines a common instruction representation used
// across architecture-specific disassemblers.
package disasm

import (
	"fmt"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

// Inst is a simplified decoded instruction.
type Inst struct {
	VA   uint64 // virtual address of instruction
	Len  int    // encoded length in bytes
	Text string // formatted disassembly string
	Op   string // mnemonic in lowercase
	Ret  bool   // function return
}

// Stream is a linear sequence of instructions.
type Stream []Inst

// String renders the stream one instruction per line as "address  text".
func (s Stream) String() string {
	var sb strings.Builder
	for _, inst := range s {
		fmt.Fprintf(&sb, "%x  %s\n", inst.VA, inst.Text)
	}
	return sb.String()
}

// UntilReturn disassembles code starting at base and stops after the first
// return instruction or after maxInsns instructions.
func UntilReturn(arch Arch, code []byte, base uint64, maxInsns int) (Stream, error) {
	switch arch {
	case ArchAMD64, Arch386:
		return x86UntilReturn(code, base, arch.Bits(), maxInsns), nil
	case ArchARM64:
		return arm64UntilReturn(code, base, maxInsns), nil
	default:
		return nil, fmt.Errorf("disassemble %s: %w", arch, ErrUnsupportedArch)
	}
}

func x86UntilReturn(code []byte, base uint64, mode, maxInsns int) Stream {
	var out Stream
	for off := 0; off < len(code) && len(out) < maxInsns; {
		pc := base + uint64(off)
		inst, err := x86asm.Decode(code[off:], mode)
		if err != nil || inst.Len == 0 {
			out = append(out, Inst{VA: pc, Len: 1, Text: fmt.Sprintf(".byte 0x%02x", code[off]), Op: ".byte"})
			off++
			continue
		}
		ret := inst.Op == x86asm.RET
		out = append(out, Inst{
			VA:   pc,
			Len:  inst.Len,
			Text: x86asm.GNUSyntax(inst, pc, nil),
			Op:   strings.ToLower(inst.Op.String()),
			Ret:  ret,
		})
		if ret {
			break
		}
		off += inst.Len
	}
	return out
}

func arm64UntilReturn(code []byte, base uint64, maxInsns int) Stream {
	var out Stream
	for off := 0; off+4 <= len(code) && len(out) < maxInsns; off += 4 {
		pc := base + uint64(off)
		word := Word(code[off:])
		inst, err := arm64asm.Decode(code[off : off+4])
		if err != nil {
			out = append(out, Inst{VA: pc, Len: 4, Text: fmt.Sprintf(".inst 0x%08x", word), Op: ".inst"})
			continue
		}
		text := inst.String()
		// ADRP prints a pc-relative page; show the absolute one instead.
		if form, ok := DecodeARM64(word); ok && form.Form == FormADRP {
			text = fmt.Sprintf("ADRP X%d, 0x%x", form.Rd, form.Page(pc))
		}
		ret := word == ret64
		out = append(out, Inst{
			VA:   pc,
			Len:  4,
			Text: text,
			Op:   strings.ToLower(inst.Op.String()),
			Ret:  ret,
		})
		if ret {
			break
		}
	}
	return out
}
