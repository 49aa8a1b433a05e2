package analysis

import (
	"testing"

	"siglocate/internal/sections"
)

func TestSymbolize(t *testing.T) {
	syms := []sections.Symbol{
		{Name: "_ZN4Game4initEv", Addr: 0x2000, Size: 0x40},
		{Name: "main", Addr: 0x1000},
		{Name: "", Addr: 0x1800},
		{Name: "undefined", Addr: 0},
	}

	tests := []struct {
		addr   uint64
		want   string
		wantOK bool
	}{
		{0x2000, "Game::init()", true},
		{0x2010, "Game::init()+0x10", true},
		{0x2040, "", false}, // past the sized symbol
		{0x1900, "main+0x900", true},
		{0x0800, "", false},
	}
	for _, tt := range tests {
		got, ok := Symbolize(syms, tt.addr)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Symbolize(%#x) = %q, %v; want %q, %v", tt.addr, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCachedDemangle(t *testing.T) {
	const name = "_ZN5Chunk12heightLimitsEv"
	first := CachedDemangle(name)
	second := CachedDemangle(name)
	if first != "Chunk::heightLimits()" || first != second {
		t.Errorf("CachedDemangle = %q, %q", first, second)
	}
	if entries, hits := DemangleCacheStats(); entries == 0 || hits == 0 {
		t.Errorf("cache stats = %d entries, %d hits", entries, hits)
	}
	if got := CachedDemangle("plain_c_name"); got != "plain_c_name" {
		t.Errorf("non-mangled name changed: %q", got)
	}
}
