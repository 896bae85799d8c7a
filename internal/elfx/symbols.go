package elfx

import (
	"debug/elf"
)

// Symbol is one .symtab or .dynsym entry with its demangled name.
type Symbol struct {
	Name      string
	Demangled string
	Value     uint64
	Size      uint64
	Type      elf.SymType
	Bind      elf.SymBind
	Vis       elf.SymVis
	Section   elf.SectionIndex
	Dynamic   bool
}

// Defined reports whether the symbol has an address in this image.
func (s *Symbol) Defined() bool { return s.Value > 0 }

// Contains reports whether addr lies in [Value, Value+Size).
func (s *Symbol) Contains(addr uint64) bool {
	return addr >= s.Value && addr-s.Value < s.Size
}

// DisplayName is the demangled name when demangle is set.
func (s *Symbol) DisplayName(demangle bool) string {
	if demangle && s.Demangled != "" {
		return s.Demangled
	}
	return s.Name
}

func loadSymbols(read func() ([]elf.Symbol, error), dynamic bool) []Symbol {
	syms, err := read()
	if err != nil {
		// Stripped or no dynamic section.
		return nil
	}
	out := make([]Symbol, 0, len(syms))
	for _, s := range syms {
		out = append(out, Symbol{
			Name:      s.Name,
			Demangled: Demangle(s.Name),
			Value:     s.Value,
			Size:      s.Size,
			Type:      elf.ST_TYPE(s.Info),
			Bind:      elf.ST_BIND(s.Info),
			Vis:       elf.ST_VISIBILITY(s.Other),
			Section:   s.Section,
			Dynamic:   dynamic,
		})
	}
	return out
}

// Symbols returns .dynsym when dynamic is set, else .symtab.
func (im *Image) Symbols(dynamic bool) []Symbol {
	if dynamic {
		return im.Dynsym
	}
	return im.Symtab
}
