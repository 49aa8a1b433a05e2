package disasm

import "encoding/binary"

// Form is one of the AArch64 encodings the reference scanner understands.
// Everything else decodes to FormOther.
type Form uint8

const (
	FormOther    Form = iota
	FormRET           // ret (x30)
	FormADRP          // adrp xd, page
	FormADDImm        // add xd, xn, #imm{, lsl #12}
	FormSTPFrame      // stp x29, x30, [sp, #-N]!
	FormSUBSP         // sub sp, sp, #imm
)

func (f Form) String() string {
	switch f {
	case FormRET:
		return "ret"
	case FormADRP:
		return "adrp"
	case FormADDImm:
		return "add"
	case FormSTPFrame:
		return "stp"
	case FormSUBSP:
		return "sub"
	default:
		return "other"
	}
}

const (
	ret64 = 0xD65F03C0

	adrpMask = 0x9F000000
	adrpBits = 0x90000000

	// 64-bit ADD (immediate), sh bit 22 left free.
	addImmMask = 0xFF800000
	addImmBits = 0x91000000

	stpFrameMask = 0xFFC07FFF
	stpFrameBits = 0xA9807BFD

	subSPMask = 0xFFC003FF
	subSPBits = 0xD10003FF
)

// ARM64Inst is the decoded form of a single instruction word.
type ARM64Inst struct {
	Form  Form
	Rd    uint8
	Rn    uint8
	Imm   uint64 // ADD: imm12
	Shift bool   // ADD: imm12 is shifted left by 12
	Delta int64  // ADRP: signed page delta (imm21 << 12)
}

// Page returns the address an ADRP at pc loads into Rd.
func (i ARM64Inst) Page(pc uint64) uint64 {
	return (pc &^ 0xFFF) + uint64(i.Delta)
}

// Addend returns the effective immediate of an ADD.
func (i ARM64Inst) Addend() uint64 {
	if i.Shift {
		return i.Imm << 12
	}
	return i.Imm
}

// Word reads a little-endian instruction word from the start of b.
func Word(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

// DecodeARM64 matches word against the closed template set. It never fails:
// an unrecognised word yields FormOther and ok == false.
func DecodeARM64(word uint32) (ARM64Inst, bool) {
	switch {
	case word == ret64:
		return ARM64Inst{Form: FormRET}, true
	case word&adrpMask == adrpBits:
		imm := (word>>5&0x7FFFF)<<2 | word>>29&3
		// sign-extend the 21-bit immediate
		delta := int64(int32(imm<<11)>>11) << 12
		return ARM64Inst{Form: FormADRP, Rd: uint8(word & 0x1F), Delta: delta}, true
	case word&addImmMask == addImmBits:
		return ARM64Inst{
			Form:  FormADDImm,
			Rd:    uint8(word & 0x1F),
			Rn:    uint8(word >> 5 & 0x1F),
			Imm:   uint64(word >> 10 & 0xFFF),
			Shift: word>>22&1 == 1,
		}, true
	case word&stpFrameMask == stpFrameBits:
		return ARM64Inst{Form: FormSTPFrame}, true
	case word&subSPMask == subSPBits:
		return ARM64Inst{Form: FormSUBSP, Rd: 31, Rn: 31, Imm: uint64(word >> 10 & 0xFFF)}, true
	default:
		return ARM64Inst{Form: FormOther}, false
	}
}

// Prologue reports whether the form opens a stack frame.
func (i ARM64Inst) Prologue() bool {
	return i.Form == FormSTPFrame || i.Form == FormSUBSP
}
