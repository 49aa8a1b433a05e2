package disasm

import (
	"encoding/binary"
	"testing"

	"golang.org/x/arch/x86/x86asm"
)

func words(ws ...uint32) []byte {
	b := make([]byte, 4*len(ws))
	for i, w := range ws {
		binary.LittleEndian.PutUint32(b[4*i:], w)
	}
	return b
}

func TestDecodeARM64(t *testing.T) {
	tests := []struct {
		name  string
		word  uint32
		form  Form
		ok    bool
		check func(t *testing.T, i ARM64Inst)
	}{
		{name: "ret", word: 0xD65F03C0, form: FormRET, ok: true},
		{name: "ret x1 is not a boundary", word: 0xD65F0020, form: FormOther},
		{name: "nop", word: 0xD503201F, form: FormOther},
		{
			name: "adrp x0, 0", word: 0x90000000, form: FormADRP, ok: true,
			check: func(t *testing.T, i ARM64Inst) {
				if i.Rd != 0 || i.Delta != 0 {
					t.Errorf("got rd=%d delta=%d", i.Rd, i.Delta)
				}
			},
		},
		{
			name: "adrp x1, +1 page", word: 0xB0000001, form: FormADRP, ok: true,
			check: func(t *testing.T, i ARM64Inst) {
				if i.Rd != 1 || i.Delta != 0x1000 {
					t.Errorf("got rd=%d delta=%#x", i.Rd, i.Delta)
				}
			},
		},
		{
			name: "adrp x2, -1 page", word: 0xF0FFFFE2, form: FormADRP, ok: true,
			check: func(t *testing.T, i ARM64Inst) {
				if i.Rd != 2 || i.Delta != -0x1000 {
					t.Errorf("got rd=%d delta=%d", i.Rd, i.Delta)
				}
				if got := i.Page(0x5123); got != 0x4000 {
					t.Errorf("Page = %#x, want 0x4000", got)
				}
			},
		},
		{
			name: "add x0, x0, #0x10", word: 0x91004000, form: FormADDImm, ok: true,
			check: func(t *testing.T, i ARM64Inst) {
				if i.Rd != 0 || i.Rn != 0 || i.Addend() != 0x10 {
					t.Errorf("got rd=%d rn=%d addend=%#x", i.Rd, i.Rn, i.Addend())
				}
			},
		},
		{
			name: "add x3, x3, #1, lsl #12", word: 0x91400463, form: FormADDImm, ok: true,
			check: func(t *testing.T, i ARM64Inst) {
				if !i.Shift || i.Addend() != 0x1000 || i.Rd != 3 || i.Rn != 3 {
					t.Errorf("got shift=%v addend=%#x rd=%d rn=%d", i.Shift, i.Addend(), i.Rd, i.Rn)
				}
			},
		},
		{name: "add w0, w0, #1 (32-bit)", word: 0x11000400, form: FormOther},
		{name: "stp x29, x30, [sp, #-16]!", word: 0xA9BF7BFD, form: FormSTPFrame, ok: true},
		{name: "stp x29, x30, [sp, #-32]!", word: 0xA9BE7BFD, form: FormSTPFrame, ok: true},
		{name: "stp x29, x30, [sp, #16] (no writeback)", word: 0xA9017BFD, form: FormOther},
		{name: "sub sp, sp, #0x20", word: 0xD10083FF, form: FormSUBSP, ok: true},
		{name: "sub x0, x0, #0x20", word: 0xD1008000, form: FormOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeARM64(tt.word)
			if ok != tt.ok {
				t.Fatalf("DecodeARM64(%#08x) ok = %v, want %v", tt.word, ok, tt.ok)
			}
			if got.Form != tt.form {
				t.Fatalf("DecodeARM64(%#08x) form = %s, want %s", tt.word, got.Form, tt.form)
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestPrologue(t *testing.T) {
	for _, w := range []uint32{0xA9BF7BFD, 0xD10083FF} {
		if i, _ := DecodeARM64(w); !i.Prologue() {
			t.Errorf("%#08x should open a frame", w)
		}
	}
	if i, _ := DecodeARM64(0xD65F03C0); i.Prologue() {
		t.Error("ret should not open a frame")
	}
}

func TestMemRef(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		mode int
		pc   uint64
		want uint64
		ok   bool
	}{
		{
			name: "absolute disp32",
			code: []byte{0x8B, 0x04, 0x25, 0x00, 0x10, 0x00, 0x00}, // mov eax, [0x1000]
			mode: 64, pc: 0x400000, want: 0x1000, ok: true,
		},
		{
			name: "rip relative",
			code: []byte{0x48, 0x8D, 0x3D, 0x10, 0x00, 0x00, 0x00}, // lea rdi, [rip+0x10]
			mode: 64, pc: 0x400000, want: 0x400017, ok: true,
		},
		{
			name: "rip relative backwards",
			code: []byte{0x8B, 0x05, 0xF0, 0xFF, 0xFF, 0xFF}, // mov eax, [rip-0x10]
			mode: 64, pc: 0x400100, want: 0x4000F6, ok: true,
		},
		{
			name: "negative disp32 in 64-bit mode",
			code: []byte{0x8B, 0x04, 0x25, 0x00, 0x00, 0x00, 0x90}, // mov eax, [0xffffffff90000000]
			mode: 64, pc: 0x400000, want: 0xFFFFFFFF90000000, ok: true,
		},
		{
			name: "32-bit absolute",
			code: []byte{0x8B, 0x05, 0x00, 0x00, 0x00, 0x90}, // mov eax, [0x90000000]
			mode: 32, pc: 0x8048000, want: 0x90000000, ok: true,
		},
		{
			name: "register only",
			code: []byte{0x48, 0x89, 0xE5}, // mov rbp, rsp
			mode: 64, pc: 0x1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := x86asm.Decode(tt.code, tt.mode)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			got, ok := MemRef(inst, tt.pc, tt.mode)
			if ok != tt.ok || got != tt.want {
				t.Errorf("MemRef = %#x, %v; want %#x, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestUntilReturn(t *testing.T) {
	t.Run("x86-64", func(t *testing.T) {
		code := []byte{
			0x55,             // push rbp
			0x48, 0x89, 0xE5, // mov rbp, rsp
			0xC3,             // ret
			0x90,             // nop (after ret)
		}
		s, err := UntilReturn(ArchAMD64, code, 0x1000, 100)
		if err != nil {
			t.Fatal(err)
		}
		if len(s) != 3 {
			t.Fatalf("expected 3 instructions, got %d:\n%s", len(s), s)
		}
		if !s[2].Ret || s[2].VA != 0x1004 {
			t.Errorf("last instruction = %+v, want ret at 0x1004", s[2])
		}
	})

	t.Run("arm64", func(t *testing.T) {
		code := words(0xA9BF7BFD, 0x90000000, 0x91004000, 0xD65F03C0, 0xD503201F)
		s, err := UntilReturn(ArchARM64, code, 0x2000, 100)
		if err != nil {
			t.Fatal(err)
		}
		if len(s) != 4 {
			t.Fatalf("expected 4 instructions, got %d:\n%s", len(s), s)
		}
		if s[1].Text != "ADRP X0, 0x2000" {
			t.Errorf("adrp text = %q", s[1].Text)
		}
		if !s[3].Ret {
			t.Errorf("expected ret last, got %+v", s[3])
		}
	})

	t.Run("limit", func(t *testing.T) {
		code := words(0xD503201F, 0xD503201F, 0xD503201F)
		s, _ := UntilReturn(ArchARM64, code, 0, 2)
		if len(s) != 2 {
			t.Errorf("expected limit of 2, got %d", len(s))
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if _, err := UntilReturn(ArchUnknown, nil, 0, 1); err == nil {
			t.Error("expected error for unknown arch")
		}
	})
}

func TestParseArch(t *testing.T) {
	tests := map[string]Arch{
		"amd64":   ArchAMD64,
		"x86_64":  ArchAMD64,
		"386":     Arch386,
		"i386":    Arch386,
		"aarch64": ArchARM64,
		"ARM64":   ArchARM64,
		"":        HostArch(),
	}
	for in, want := range tests {
		got, err := ParseArch(in)
		if err != nil || got != want {
			t.Errorf("ParseArch(%q) = %s, %v; want %s", in, got, err, want)
		}
	}
	if _, err := ParseArch("mips"); err == nil {
		t.Error("expected error for mips")
	}
}
