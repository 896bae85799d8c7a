package ehframe

import "elfinfo/internal/diag"

// TableEntry is one row of the .eh_frame_hdr binary search table.
type TableEntry struct {
	Start     Value
	FDE       Value
	StartAddr uint64
	FDEAddr   uint64
}

// Hdr is a decoded .eh_frame_hdr section.
type Hdr struct {
	Version        uint8
	EhFramePtrEnc  Encoding
	FDECountEnc    Encoding
	TableEnc       Encoding
	EhFramePtr     Value
	EhFramePtrAddr uint64
	Count          uint64
	Entries        []TableEntry
}

// ParseHdr decodes an .eh_frame_hdr section loaded at addr. The table is
// only read when both the count and table encodings carry values.
func ParseHdr(data []byte, addr uint64, codec Codec) (*Hdr, error) {
	if len(data) < 4 {
		return nil, diag.Malformedf(0, ".eh_frame_hdr is %d bytes, header needs 4", len(data))
	}
	c := newCursor(data, 0, addr, codec)
	h := &Hdr{
		Version:       c.u8(),
		EhFramePtrEnc: Encoding(c.u8()),
		FDECountEnc:   Encoding(c.u8()),
		TableEnc:      Encoding(c.u8()),
	}

	if !h.EhFramePtrEnc.Omit() {
		h.EhFramePtr, h.EhFramePtrAddr = readResolved(&c, h.EhFramePtrEnc, addr)
	}
	if h.FDECountEnc.Omit() || h.TableEnc.Omit() {
		return h, c.err
	}

	at := c.offset()
	count, _ := c.value(h.FDECountEnc)
	if c.err != nil {
		return h, c.err
	}
	if count.Signed && count.Int() < 0 {
		return h, diag.Malformedf(at, "negative FDE count %d", count.Int())
	}
	h.Count = count.Bits

	size, err := codec.Size(h.TableEnc)
	if err != nil {
		return h, anchor(err, c.offset())
	}
	if h.Count > uint64(c.remaining())/uint64(2*size) {
		return h, diag.Malformedf(at, "FDE count %d needs %d bytes, %d left", h.Count, h.Count*uint64(2*size), c.remaining())
	}

	h.Entries = make([]TableEntry, 0, h.Count)
	for i := uint64(0); i < h.Count; i++ {
		var e TableEntry
		e.Start, e.StartAddr = readResolved(&c, h.TableEnc, addr)
		e.FDE, e.FDEAddr = readResolved(&c, h.TableEnc, addr)
		if c.err != nil {
			return h, c.err
		}
		h.Entries = append(h.Entries, e)
	}
	return h, nil
}

// readResolved decodes one value and resolves it against its own address.
func readResolved(c *cursor, enc Encoding, tableStart uint64) (Value, uint64) {
	pc, at := c.pc(), c.offset()
	v, _ := c.value(enc)
	if c.err != nil {
		return Value{}, 0
	}
	addr, err := c.codec.Resolve(enc, v, pc, tableStart)
	if err != nil {
		c.fail(anchor(err, at))
		return v, 0
	}
	return v, addr
}
