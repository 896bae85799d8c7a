package elfx

import (
	lru "github.com/elastic/go-freelru"
	"github.com/ianlancetaylor/demangle"
	"github.com/zeebo/xxh3"
)

const demangleCacheSize = 8192

var demangled *lru.SyncedLRU[string, string]

func init() {
	var err error
	demangled, err = lru.NewSynced[string, string](demangleCacheSize, hashString)
	if err != nil {
		panic(err)
	}
}

func hashString(s string) uint32 {
	return uint32(xxh3.HashString(s))
}

// Demangle returns the demangled form of a C++ or Rust symbol name, or name
// itself when it is not mangled.
func Demangle(name string) string {
	if name == "" {
		return ""
	}
	if d, ok := demangled.Get(name); ok {
		return d
	}
	d := demangle.Filter(name, demangle.NoClones)
	demangled.Add(name, d)
	return d
}
