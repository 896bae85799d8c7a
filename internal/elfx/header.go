package elfx

import (
	"bytes"
	"debug/elf"
	"encoding/binary"

	"elfinfo/internal/diag"
)

// Header holds the ELF header fields debug/elf does not keep.
type Header struct {
	Version   uint32
	Flags     uint32
	PhOff     uint64
	ShOff     uint64
	EhSize    uint16
	PhEntSize uint16
	PhNum     uint16
	ShEntSize uint16
	ShNum     uint16
	ShStrNdx  uint16
}

// Header decodes the raw file header from the mapping.
func (im *Image) Header() (*Header, error) {
	r := bytes.NewReader(im.All)
	order := im.File.ByteOrder
	if order == nil {
		order = binary.LittleEndian
	}

	if im.Is64() {
		var h elf.Header64
		if err := binary.Read(r, order, &h); err != nil {
			return nil, diag.Malformedf(0, "truncated ELF64 header").Wrap(err)
		}
		return &Header{
			Version: h.Version, Flags: h.Flags, PhOff: h.Phoff, ShOff: h.Shoff,
			EhSize: h.Ehsize, PhEntSize: h.Phentsize, PhNum: h.Phnum,
			ShEntSize: h.Shentsize, ShNum: h.Shnum, ShStrNdx: h.Shstrndx,
		}, nil
	}

	var h elf.Header32
	if err := binary.Read(r, order, &h); err != nil {
		return nil, diag.Malformedf(0, "truncated ELF32 header").Wrap(err)
	}
	return &Header{
		Version: h.Version, Flags: h.Flags, PhOff: uint64(h.Phoff), ShOff: uint64(h.Shoff),
		EhSize: h.Ehsize, PhEntSize: h.Phentsize, PhNum: h.Phnum,
		ShEntSize: h.Shentsize, ShNum: h.Shnum, ShStrNdx: h.Shstrndx,
	}, nil
}
