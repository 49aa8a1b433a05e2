package analysis

import (
	"encoding/binary"
	"errors"
	"testing"

	"siglocate/internal/disasm"
)

// arm64 encodings used throughout the tests.
const (
	insnSTP   = 0xA9BF7BFD // stp x29, x30, [sp, #-16]!
	insnSUBSP = 0xD10083FF // sub sp, sp, #0x20
	insnRET   = 0xD65F03C0 // ret
	insnNOP   = 0xD503201F // nop
	insnMOV   = 0x910003FD // mov x29, sp
)

func arm64Code(ws ...uint32) []byte {
	b := make([]byte, 4*len(ws))
	for i, w := range ws {
		binary.LittleEndian.PutUint32(b[4*i:], w)
	}
	return b
}

// adrp returns "adrp xRd, pc_page + pages*4096".
func adrp(rd uint32, pages int32) uint32 {
	imm := uint32(pages) & 0x1FFFFF
	return 0x90000000 | (imm&3)<<29 | (imm>>2&0x7FFFF)<<5 | rd&0x1F
}

// addImm returns "add xRd, xRn, #imm{, lsl #12}".
func addImm(rd, rn, imm uint32, shift bool) uint32 {
	w := 0x91000000 | (imm&0xFFF)<<10 | (rn&0x1F)<<5 | rd&0x1F
	if shift {
		w |= 1 << 22
	}
	return w
}

func TestARM64Resolver(t *testing.T) {
	const base = 0x10000

	tests := []struct {
		name    string
		code    []byte
		target  uint64
		want    uint64
		wantErr error
	}{
		{
			name:   "stp adrp add ret",
			code:   arm64Code(insnSTP, adrp(0, 1), addImm(0, 0, 0x10, false), insnRET),
			target: 0x11010,
			want:   0x10000,
		},
		{
			name: "mismatched add registers moves to next candidate",
			code: arm64Code(
				insnSTP, adrp(0, 1), addImm(1, 0, 0x10, false), insnRET,
				insnSTP, adrp(0, 1), addImm(0, 0, 0x10, false), insnRET,
			),
			target: 0x11010,
			want:   0x10010,
		},
		{
			name:    "mismatched registers only",
			code:    arm64Code(insnSTP, adrp(0, 1), addImm(1, 0, 0x10, false), insnRET),
			target:  0x11010,
			wantErr: ErrNotFound,
		},
		{
			name:    "intervening instruction drops adrp",
			code:    arm64Code(insnSTP, adrp(0, 1), insnNOP, addImm(0, 0, 0x10, false), insnRET),
			target:  0x11010,
			wantErr: ErrNotFound,
		},
		{
			name:   "shifted add",
			code:   arm64Code(insnSTP, adrp(2, 0), addImm(2, 2, 1, true), insnRET),
			target: 0x11000,
			want:   0x10000,
		},
		{
			name:   "sub sp prologue",
			code:   arm64Code(insnSUBSP, adrp(8, 2), addImm(8, 8, 0x123, false), insnNOP, insnRET),
			target: 0x12123,
			want:   0x10000,
		},
		{
			name:   "second prologue inside candidate is ignored",
			code:   arm64Code(insnSTP, insnMOV, insnSUBSP, adrp(0, 1), addImm(0, 0, 8, false), insnRET),
			target: 0x11008,
			want:   0x10000,
		},
		{
			name:    "reference outside any function",
			code:    arm64Code(adrp(0, 1), addImm(0, 0, 0x10, false), insnRET),
			target:  0x11010,
			wantErr: ErrNotFound,
		},
		{
			name:    "no ret after reference",
			code:    arm64Code(insnSTP, adrp(0, 1), addImm(0, 0, 0x10, false), insnNOP),
			target:  0x11010,
			wantErr: ErrNotFound,
		},
		{
			name:    "unrelated code",
			code:    arm64Code(insnSTP, insnNOP, insnNOP, insnRET, insnNOP),
			target:  0x11010,
			wantErr: ErrNotFound,
		},
		{
			name:   "negative page",
			code:   arm64Code(insnNOP, insnNOP, insnNOP, insnNOP, insnSTP, adrp(1, -1), addImm(1, 1, 0x40, false), insnRET),
			target: 0xF040,
			want:   0x10010,
		},
		{
			name:    "trailing partial word",
			code:    append(arm64Code(insnSTP), 0xC0, 0x03),
			target:  0,
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ARM64Resolver{}.Resolve(tt.code, base, tt.target)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %#x, %v", tt.wantErr, got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestX86Resolver(t *testing.T) {
	const base = 0x400000

	pushRBP := []byte{0x55}
	movAbs := []byte{0x8B, 0x04, 0x25, 0x00, 0x10, 0x00, 0x00} // mov eax, [0x1000]
	ret := []byte{0xC3}
	nop := []byte{0x90}
	int3 := []byte{0xCC}

	cat := func(parts ...[]byte) []byte {
		var out []byte
		for _, p := range parts {
			out = append(out, p...)
		}
		return out
	}

	tests := []struct {
		name    string
		mode    int
		code    []byte
		target  uint64
		want    uint64
		wantErr error
	}{
		{
			name:   "push mov ret",
			mode:   64,
			code:   cat(pushRBP, movAbs, ret),
			target: 0x1000,
			want:   base,
		},
		{
			name:    "missing ret",
			mode:    64,
			code:    cat(pushRBP, movAbs),
			target:  0x1000,
			wantErr: ErrNotFound,
		},
		{
			name:   "second function",
			mode:   64,
			code:   cat(pushRBP, nop, ret, int3, int3, pushRBP, movAbs, ret),
			target: 0x1000,
			want:   base + 5,
		},
		{
			name:    "reference after ret is ignored",
			mode:    64,
			code:    cat(pushRBP, ret, movAbs, ret),
			target:  0x1000,
			wantErr: ErrNotFound,
		},
		{
			name: "rip relative lea",
			mode: 64,
			// push rbp; lea rdi, [rip+0x20]; pop rbp; ret
			code:   cat(pushRBP, []byte{0x48, 0x8D, 0x3D, 0x20, 0x00, 0x00, 0x00}, []byte{0x5D}, ret),
			target: base + 1 + 7 + 0x20,
			want:   base,
		},
		{
			name: "rip relative lea backwards",
			mode: 64,
			// push rbp; lea rdi, [rip-0x100]; ret
			code:   cat(pushRBP, []byte{0x48, 0x8D, 0x3D, 0x00, 0xFF, 0xFF, 0xFF}, ret),
			target: 0x3FFF08,
			want:   base,
		},
		{
			name: "32-bit absolute",
			mode: 32,
			// push ebp; mov eax, [0x8049000]; pop ebp; ret
			code:   cat(pushRBP, []byte{0x8B, 0x05, 0x00, 0x90, 0x04, 0x08}, []byte{0x5D}, ret),
			target: 0x8049000,
			want:   base,
		},
		{
			name:    "unrelated code",
			mode:    64,
			code:    cat(pushRBP, nop, nop, ret, int3),
			target:  0x1000,
			wantErr: ErrNotFound,
		},
		{
			name:    "empty",
			mode:    64,
			code:    nil,
			target:  0x1000,
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := X86Resolver{Mode: tt.mode}.Resolve(tt.code, base, tt.target)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %#x, %v", tt.wantErr, got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	code := arm64Code(insnSTP, adrp(0, 1), addImm(0, 0, 0x10, false), insnRET)
	first, err := ARM64Resolver{}.Resolve(code, 0x10000, 0x11010)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ARM64Resolver{}.Resolve(code, 0x10000, 0x11010)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("results differ: %#x vs %#x", first, second)
	}
}

func TestResolverFor(t *testing.T) {
	tests := []struct {
		arch disasm.Arch
		want Resolver
	}{
		{disasm.ArchAMD64, X86Resolver{Mode: 64}},
		{disasm.Arch386, X86Resolver{Mode: 32}},
		{disasm.ArchARM64, ARM64Resolver{}},
	}
	for _, tt := range tests {
		got, err := ResolverFor(tt.arch)
		if err != nil {
			t.Fatalf("ResolverFor(%s): %v", tt.arch, err)
		}
		if got != tt.want {
			t.Errorf("ResolverFor(%s) = %#v, want %#v", tt.arch, got, tt.want)
		}
	}
	if _, err := ResolverFor(disasm.ArchUnknown); !errors.Is(err, disasm.ErrUnsupportedArch) {
		t.Errorf("expected ErrUnsupportedArch, got %v", err)
	}
}
