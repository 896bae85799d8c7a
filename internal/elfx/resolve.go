package elfx

import (
	"cmp"
	"debug/elf"
	"fmt"
	"slices"
	"sort"

	"elfinfo/internal/diag"
)

// FindSymbol looks name up in .symtab then .dynsym, first by raw name and
// then by demangled name.
func (im *Image) FindSymbol(name string) (*Symbol, error) {
	tables := [][]Symbol{im.Symtab, im.Dynsym}
	for _, tab := range tables {
		for i := range tab {
			if tab[i].Name == name {
				return &tab[i], nil
			}
		}
	}
	for _, tab := range tables {
		for i := range tab {
			if tab[i].Demangled == name {
				return &tab[i], nil
			}
		}
	}
	return nil, diag.NotFoundf(name, "couldn't find symbol")
}

// SymbolContaining returns the first defined symbol whose range contains addr.
// Function symbols win over other types.
func (im *Image) SymbolContaining(addr uint64) (*Symbol, error) {
	var found *Symbol
	for _, tab := range [][]Symbol{im.Symtab, im.Dynsym} {
		for i := range tab {
			s := &tab[i]
			if !s.Defined() || !s.Contains(addr) {
				continue
			}
			if s.Type == elf.STT_FUNC {
				return s, nil
			}
			if found == nil {
				found = s
			}
		}
	}
	if found != nil {
		return found, nil
	}
	return nil, diag.NotFoundf(fmt.Sprintf("%#x", addr), "couldn't find symbol at address")
}

// NearestSymbol returns the named symbol with the greatest value <= addr.
func (im *Image) NearestSymbol(addr uint64) (*Symbol, bool) {
	idx := im.addrIndex()
	i := sort.Search(len(idx), func(i int) bool { return idx[i].Value > addr })
	if i == 0 {
		return nil, false
	}
	return idx[i-1], true
}

// addrIndex lazily sorts the named, defined symbols of both tables by value.
// Of several symbols at one value only the first one seen is kept.
func (im *Image) addrIndex() []*Symbol {
	if im.byAddr != nil {
		return im.byAddr
	}
	idx := make([]*Symbol, 0, len(im.Symtab)+len(im.Dynsym))
	for _, tab := range [][]Symbol{im.Symtab, im.Dynsym} {
		for i := range tab {
			s := &tab[i]
			if s.Defined() && s.Name != "" && s.Type != elf.STT_SECTION && s.Type != elf.STT_FILE {
				idx = append(idx, s)
			}
		}
	}
	slices.SortStableFunc(idx, func(a, b *Symbol) int { return cmp.Compare(a.Value, b.Value) })
	im.byAddr = slices.CompactFunc(idx, func(a, b *Symbol) bool { return a.Value == b.Value })
	return im.byAddr
}

// SymbolName resolves addr to the symbol covering it, for operand rewriting
// in disassembly. It returns the symbol's name and value.
func (im *Image) SymbolName(addr uint64, demangle bool) (string, uint64, bool) {
	s, ok := im.NearestSymbol(addr)
	if !ok {
		return "", 0, false
	}
	if s.Size > 0 && !s.Contains(addr) {
		return "", 0, false
	}
	if s.Size == 0 && s.Value != addr {
		return "", 0, false
	}
	return s.DisplayName(demangle), s.Value, true
}

// SegmentForVA returns the PT_LOAD segment whose memory image holds va.
func (im *Image) SegmentForVA(va uint64) (*elf.Prog, error) {
	for _, p := range im.Loads {
		if va >= p.Vaddr && va-p.Vaddr < p.Memsz {
			return p, nil
		}
	}
	return nil, diag.NotFoundf(fmt.Sprintf("%#x", va), "no loadable segment maps address")
}

// FileOffset translates a virtual address into a file offset using the
// containing PT_LOAD segment.
func (im *Image) FileOffset(va uint64) (uint64, error) {
	p, err := im.SegmentForVA(va)
	if err != nil {
		return 0, err
	}
	if va-p.Vaddr >= p.Filesz {
		return 0, diag.NotFoundf(fmt.Sprintf("%#x", va), "address is in the zero filled part of its segment")
	}
	return p.Off + (va - p.Vaddr), nil
}

// SliceVA returns the mapped bytes of [va, va+size). The range must lie in
// the file backed part of a single segment.
func (im *Image) SliceVA(va, size uint64) ([]byte, error) {
	off, err := im.FileOffset(va)
	if err != nil {
		return nil, err
	}
	end := off + size
	if end < off || end > uint64(len(im.All)) {
		return nil, diag.Malformedf(off, "%d bytes at %#x run past the end of file", size, va)
	}
	return im.All[off:end], nil
}

// SectionContaining returns the section whose address range holds va.
func (im *Image) SectionContaining(va uint64) (*elf.Section, bool) {
	for _, s := range im.File.Sections {
		if s.Addr != 0 && va >= s.Addr && va-s.Addr < s.Size {
			return s, true
		}
	}
	return nil, false
}
