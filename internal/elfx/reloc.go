package elfx

import (
	"debug/elf"
	"fmt"

	"elfinfo/internal/diag"
)

// Relocation is one REL or RELA entry.
type Relocation struct {
	Offset    uint64
	Type      uint32
	SymIndex  uint32
	Symbol    *Symbol
	Addend    int64
	HasAddend bool
}

// RelocSection is a relocation section and its decoded entries.
type RelocSection struct {
	Section *elf.Section
	Entries []Relocation
}

// Relocations decodes every SHT_REL and SHT_RELA section in file order.
func (im *Image) Relocations() ([]RelocSection, error) {
	var out []RelocSection
	for _, s := range im.File.Sections {
		if s.Type != elf.SHT_REL && s.Type != elf.SHT_RELA {
			continue
		}
		entries, err := im.relocEntries(s)
		if err != nil {
			return out, fmt.Errorf("%s: %w", s.Name, err)
		}
		out = append(out, RelocSection{Section: s, Entries: entries})
	}
	return out, nil
}

func (im *Image) relocEntries(s *elf.Section) ([]Relocation, error) {
	data, err := im.SectionBytes(s)
	if err != nil {
		return nil, err
	}
	rela := s.Type == elf.SHT_RELA
	is64 := im.Is64()

	// r_offset, r_info and, for RELA, r_addend, each one word wide.
	word := 4
	if is64 {
		word = 8
	}
	entsize := 2 * word
	if rela {
		entsize += word
	}
	if len(data)%entsize != 0 {
		return nil, diag.Malformedf(s.Offset, "size %d is not a multiple of the %d byte entry", len(data), entsize)
	}

	// sh_link names the symbol table the entries index into.
	var syms []Symbol
	if int(s.Link) < len(im.File.Sections) {
		switch im.File.Sections[s.Link].Type {
		case elf.SHT_DYNSYM:
			syms = im.Dynsym
		case elf.SHT_SYMTAB:
			syms = im.Symtab
		}
	}

	order := im.File.ByteOrder
	n := len(data) / entsize
	out := make([]Relocation, 0, n)
	for i := 0; i < n; i++ {
		e := data[i*entsize:]
		var r Relocation
		if is64 {
			info := order.Uint64(e[8:])
			r.Offset = order.Uint64(e)
			r.SymIndex, r.Type = uint32(info>>32), uint32(info)
			if rela {
				r.Addend, r.HasAddend = int64(order.Uint64(e[16:])), true
			}
		} else {
			info := order.Uint32(e[4:])
			r.Offset = uint64(order.Uint32(e))
			r.SymIndex, r.Type = info>>8, info&0xff
			if rela {
				r.Addend, r.HasAddend = int64(int32(order.Uint32(e[8:]))), true
			}
		}
		// Symbol tables are 1-indexed here; debug/elf drops the null entry.
		if r.SymIndex > 0 && int(r.SymIndex) <= len(syms) {
			r.Symbol = &syms[r.SymIndex-1]
		}
		out = append(out, r)
	}
	return out, nil
}

// RelocTypeName names a relocation type for machine m.
func RelocTypeName(m elf.Machine, t uint32) string {
	switch m {
	case elf.EM_X86_64:
		return elf.R_X86_64(t).String()
	case elf.EM_AARCH64:
		return elf.R_AARCH64(t).String()
	case elf.EM_386:
		return elf.R_386(t).String()
	case elf.EM_ARM:
		return elf.R_ARM(t).String()
	case elf.EM_RISCV:
		return elf.R_RISCV(t).String()
	case elf.EM_PPC64:
		return elf.R_PPC64(t).String()
	case elf.EM_S390:
		return elf.R_390(t).String()
	default:
		return fmt.Sprintf("%d", t)
	}
}
