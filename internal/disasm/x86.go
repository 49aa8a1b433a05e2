package disasm

import "golang.org/x/arch/x86/x86asm"

// MemRef returns the absolute address named by the first memory operand of
// inst, decoded at pc in the given mode. RIP/EIP-relative operands resolve
// against the address of the next instruction; everything else yields the
// sign-extended displacement.
func MemRef(inst x86asm.Inst, pc uint64, mode int) (uint64, bool) {
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		m, ok := arg.(x86asm.Mem)
		if !ok {
			continue
		}
		// The decoder zero-extends disp32; the CPU sign-extends it.
		disp := uint64(int64(int32(m.Disp)))
		var ref uint64
		switch m.Base {
		case x86asm.RIP, x86asm.EIP:
			ref = pc + uint64(inst.Len) + disp
		default:
			ref = disp
		}
		if mode == 32 {
			ref = uint64(uint32(ref))
		}
		return ref, true
	}
	return 0, false
}

// Operands counts the non-nil arguments of inst.
func Operands(inst x86asm.Inst) int {
	n := 0
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		n++
	}
	return n
}
