// Package elfx opens ELF binaries as a read-only memory map and exposes their
// program headers, sections, symbols and relocations, plus the address
// lookups the report views need.
package elfx

import (
	"debug/elf"
	"fmt"
	"os"
	"syscall"

	"elfinfo/internal/diag"
)

type Image struct {
	Path   string
	File   *elf.File
	All    []byte
	Loads  []*elf.Prog
	Symtab []Symbol
	Dynsym []Symbol

	byAddr []*Symbol
	f      *os.File
}

func Open(path string) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open elf: %w", err)
	}

	of, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open file: %w", err)
	}

	fi, err := of.Stat()
	if err != nil {
		of.Close()
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	var all []byte
	if fi.Size() > 0 {
		all, err = syscall.Mmap(int(of.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
		if err != nil {
			of.Close()
			f.Close()
			return nil, fmt.Errorf("mmap file: %w", err)
		}
	}

	im := &Image{Path: path, File: f, All: all, f: of}
	for _, p := range f.Progs {
		if p.Type == elf.PT_LOAD {
			im.Loads = append(im.Loads, p)
		}
	}
	im.Symtab = loadSymbols(f.Symbols, false)
	im.Dynsym = loadSymbols(f.DynamicSymbols, true)
	return im, nil
}

// Close unmaps the memory and closes the underlying files.
func (im *Image) Close() error {
	var err1, err2 error
	if im.All != nil {
		err1 = syscall.Munmap(im.All)
		im.All = nil
	}
	if im.f != nil {
		err2 = im.f.Close()
		im.f = nil
	}
	if im.File != nil {
		err3 := im.File.Close()
		if err3 != nil && err2 == nil {
			err2 = err3
		}
		im.File = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// Is64 reports whether the image is ELFCLASS64.
func (im *Image) Is64() bool { return im.File.Class == elf.ELFCLASS64 }

// PtrSize is the native pointer size in bytes.
func (im *Image) PtrSize() int {
	if im.Is64() {
		return 8
	}
	return 4
}

// Section returns the first section called name.
func (im *Image) Section(name string) (*elf.Section, error) {
	if s := im.File.Section(name); s != nil {
		return s, nil
	}
	return nil, diag.NotFoundf(name, "couldn't find section")
}

// SectionBytes returns the file content of s as a view into the mapping.
// NOBITS sections have no content and return nil. Compressed sections are
// inflated into a fresh buffer.
func (im *Image) SectionBytes(s *elf.Section) ([]byte, error) {
	if s.Type == elf.SHT_NOBITS {
		return nil, nil
	}
	if s.Flags&elf.SHF_COMPRESSED != 0 {
		data, err := s.Data()
		if err != nil {
			return nil, diag.Malformedf(s.Offset, "couldn't decompress section %s", s.Name).Wrap(err)
		}
		return data, nil
	}
	end := s.Offset + s.Size
	if end < s.Offset || end > uint64(len(im.All)) {
		return nil, diag.Malformedf(s.Offset, "section %s extends past end of file (%d bytes)", s.Name, len(im.All))
	}
	return im.All[s.Offset:end], nil
}

// Interpreter returns the PT_INTERP path, if any.
func (im *Image) Interpreter() (string, bool) {
	for _, p := range im.File.Progs {
		if p.Type != elf.PT_INTERP {
			continue
		}
		end := p.Off + p.Filesz
		if end > uint64(len(im.All)) || p.Filesz == 0 {
			return "", false
		}
		b := im.All[p.Off:end]
		for i, c := range b {
			if c == 0 {
				b = b[:i]
				break
			}
		}
		return string(b), true
	}
	return "", false
}

// SOName returns the DT_SONAME entry, if any.
func (im *Image) SOName() (string, bool) {
	names, err := im.File.DynString(elf.DT_SONAME)
	if err != nil || len(names) == 0 {
		return "", false
	}
	return names[0], true
}
