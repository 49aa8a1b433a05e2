package analysis

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ianlancetaylor/demangle"

	"siglocate/internal/sections"
)

// symbolCache memoizes demangled names; listings ask for the same symbol
// many times.
type symbolCache struct {
	mu            sync.RWMutex
	demangleCache map[string]string
	hits          map[string]int
	cacheEnabled  bool
}

var cache = &symbolCache{
	demangleCache: make(map[string]string),
	hits:          make(map[string]int),
	cacheEnabled:  true,
}

// DisableDemangleCache turns memoization off. Used by tests.
func DisableDemangleCache() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.cacheEnabled = false
}

// CachedDemangle performs demangling with caching support.
func CachedDemangle(mangled string) string {
	cache.mu.RLock()
	if !cache.cacheEnabled {
		cache.mu.RUnlock()
		return demangle.Filter(mangled, demangle.NoClones)
	}
	if cached, exists := cache.demangleCache[mangled]; exists {
		cache.mu.RUnlock()
		cache.mu.Lock()
		cache.hits[mangled]++
		cache.mu.Unlock()
		return cached
	}
	cache.mu.RUnlock()

	demangled := demangle.Filter(mangled, demangle.NoClones)

	cache.mu.Lock()
	cache.demangleCache[mangled] = demangled
	cache.hits[mangled] = 0
	cache.mu.Unlock()
	return demangled
}

// DemangleCacheStats returns the number of cached names and the number of
// lookups served from the cache.
func DemangleCacheStats() (entries, hits int) {
	cache.mu.RLock()
	defer cache.mu.RUnlock()
	for _, n := range cache.hits {
		hits += n
	}
	return len(cache.demangleCache), hits
}

// Symbolize names addr using the closest symbol at or below it. The result
// looks like "Foo::bar()+0x10". It only decorates output; nothing in the
// locator depends on symbols.
func Symbolize(syms []sections.Symbol, addr uint64) (string, bool) {
	sorted := make([]sections.Symbol, 0, len(syms))
	for _, s := range syms {
		if s.Name != "" && s.Addr != 0 {
			sorted = append(sorted, s)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Addr < sorted[j].Addr })

	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].Addr > addr })
	if i == 0 {
		return "", false
	}
	sym := sorted[i-1]
	if sym.Size != 0 && addr >= sym.Addr+sym.Size {
		return "", false
	}

	name := CachedDemangle(sym.Name)
	if off := addr - sym.Addr; off != 0 {
		return fmt.Sprintf("%s+%#x", name, off), true
	}
	return name, true
}
