package analysis

import "siglocate/internal/disasm"

// ARM64Resolver scans fixed-width AArch64 code. Frame setup (stp x29, x30 or
// sub sp) opens a candidate, an adrp immediately followed by an add into the
// same register forms a literal address, and ret closes the candidate.
type ARM64Resolver struct{}

type pendingADRP struct {
	rd   uint8
	page uint64
	ok   bool
}

// Resolve implements Resolver.
func (ARM64Resolver) Resolve(code []byte, base, target uint64) (uint64, error) {
	var (
		start   uint64
		active  bool
		matched bool
		adrp    pendingADRP
	)

	for off := 0; off+4 <= len(code); off += 4 {
		pc := base + uint64(off)
		inst, _ := disasm.DecodeARM64(disasm.Word(code[off:]))

		switch {
		case inst.Form == disasm.FormRET:
			if active && matched {
				return start, nil
			}
			active, matched = false, false
			adrp = pendingADRP{}

		case inst.Form == disasm.FormADRP:
			adrp = pendingADRP{rd: inst.Rd, page: inst.Page(pc), ok: true}

		case inst.Form == disasm.FormADDImm:
			if adrp.ok && inst.Rd == adrp.rd && inst.Rn == adrp.rd {
				if adrp.page+inst.Addend() == target {
					matched = true
				}
			}
			adrp = pendingADRP{}

		case inst.Prologue():
			if !active {
				start, active, matched = pc, true, false
			}
			adrp = pendingADRP{}

		default:
			// An adrp must be consumed by the very next instruction.
			adrp = pendingADRP{}
		}
	}

	return 0, ErrNotFound
}
