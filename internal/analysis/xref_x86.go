package analysis

import (
	"golang.org/x/arch/x86/x86asm"

	"siglocate/internal/disasm"
)

type x86State int

const (
	outsideFunc x86State = iota // waiting for a push
	inFunc                      // candidate open, no reference yet
	refSeen                     // candidate references target, waiting for ret
)

// X86Resolver walks x86 code linearly. A single-operand push opens a
// candidate function, ret closes it, and the first candidate that touches
// the target before its ret wins.
type X86Resolver struct {
	Mode int // 32 or 64
}

// Resolve implements Resolver.
func (r X86Resolver) Resolve(code []byte, base, target uint64) (uint64, error) {
	mode := r.Mode
	if mode == 0 {
		mode = 64
	}

	state := outsideFunc
	var start uint64

	for off := 0; off < len(code); {
		pc := base + uint64(off)
		inst, err := x86asm.Decode(code[off:], mode)
		if err != nil || inst.Len == 0 {
			// Not an instruction; step over the byte.
			off++
			continue
		}
		off += inst.Len

		switch state {
		case outsideFunc:
			if inst.Op == x86asm.PUSH && disasm.Operands(inst) == 1 {
				start = pc
				state = inFunc
			}
		case inFunc:
			if inst.Op == x86asm.RET {
				state = outsideFunc
			} else if ref, ok := disasm.MemRef(inst, pc, mode); ok && ref == target {
				state = refSeen
			}
		case refSeen:
			if inst.Op == x86asm.RET {
				return start, nil
			}
		}
	}

	return 0, ErrNotFound
}
