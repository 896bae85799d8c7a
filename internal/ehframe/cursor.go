package ehframe

import (
	"errors"

	"elfinfo/internal/diag"
)

// cursor is a bounds checked reader over part of a section. The first
// failure is sticky: later reads return zero values and Err reports the
// offset where decoding went wrong.
type cursor struct {
	data  []byte
	pos   int
	off   uint64 // section offset of data[0]
	addr  uint64 // virtual address of data[0]
	codec Codec
	err   error
}

func newCursor(data []byte, off, addr uint64, codec Codec) cursor {
	return cursor{data: data, off: off, addr: addr, codec: codec}
}

// offset returns the section offset of the next byte.
func (c *cursor) offset() uint64 { return c.off + uint64(c.pos) }

// pc returns the virtual address of the next byte.
func (c *cursor) pc() uint64 { return c.addr + uint64(c.pos) }

func (c *cursor) hasData() bool { return c.err == nil && c.pos < len(c.data) }

func (c *cursor) remaining() int { return len(c.data) - c.pos }

func (c *cursor) fail(err error) {
	if c.err == nil {
		c.err = err
	}
	c.pos = len(c.data)
}

func (c *cursor) need(n int) bool {
	if c.err != nil {
		return false
	}
	if n < 0 || n > c.remaining() {
		c.fail(diag.Malformedf(c.offset(), "need %d bytes, only %d left", n, c.remaining()))
		return false
	}
	return true
}

func (c *cursor) skip(n int) {
	if c.need(n) {
		c.pos += n
	}
}

func (c *cursor) u8() uint8 {
	if !c.need(1) {
		return 0
	}
	v := c.data[c.pos]
	c.pos++
	return v
}

func (c *cursor) u16() uint16 {
	if !c.need(2) {
		return 0
	}
	v := c.codec.Order.Uint16(c.data[c.pos:])
	c.pos += 2
	return v
}

func (c *cursor) u32() uint32 {
	if !c.need(4) {
		return 0
	}
	v := c.codec.Order.Uint32(c.data[c.pos:])
	c.pos += 4
	return v
}

func (c *cursor) u64() uint64 {
	if !c.need(8) {
		return 0
	}
	v := c.codec.Order.Uint64(c.data[c.pos:])
	c.pos += 8
	return v
}

// uleb reads one unsigned little endian base-128 value.
func (c *cursor) uleb() uint64 {
	start := c.offset()
	var val uint64
	for shift := uint(0); ; shift += 7 {
		if !c.need(1) {
			return 0
		}
		b := c.data[c.pos]
		c.pos++
		if shift < 64 {
			val |= uint64(b&0x7f) << shift
		}
		if b&0x80 == 0 {
			return val
		}
		if shift > 70 {
			c.fail(diag.Malformedf(start, "LEB128 value too long"))
			return 0
		}
	}
}

// sleb reads one signed little endian base-128 value.
func (c *cursor) sleb() int64 {
	start := c.offset()
	var val int64
	shift := uint(0)
	for {
		if !c.need(1) {
			return 0
		}
		b := c.data[c.pos]
		c.pos++
		if shift < 64 {
			val |= int64(b&0x7f) << shift
		}
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				val |= -1 << shift
			}
			return val
		}
		if shift > 70 {
			c.fail(diag.Malformedf(start, "LEB128 value too long"))
			return 0
		}
	}
}

// cstring reads a zero terminated string.
func (c *cursor) cstring() string {
	if c.err != nil {
		return ""
	}
	for i := c.pos; i < len(c.data); i++ {
		if c.data[i] == 0 {
			s := string(c.data[c.pos:i])
			c.pos = i + 1
			return s
		}
	}
	c.fail(diag.Malformedf(c.offset(), "unterminated string"))
	return ""
}

// bytes returns the next n bytes without copying.
func (c *cursor) bytes(n uint64) []byte {
	if c.err != nil {
		return nil
	}
	if n > uint64(c.remaining()) {
		c.fail(diag.Malformedf(c.offset(), "need %d bytes, only %d left", n, c.remaining()))
		return nil
	}
	b := c.data[c.pos : c.pos+int(n)]
	c.pos += int(n)
	return b
}

// sub returns a cursor over the next n bytes and advances past them.
func (c *cursor) sub(n uint64) cursor {
	off, addr := c.offset(), c.pc()
	b := c.bytes(n)
	return cursor{data: b, off: off, addr: addr, codec: c.codec, err: c.err}
}

// value decodes one encoded value without resolving it.
func (c *cursor) value(enc Encoding) (Value, int) {
	if c.err != nil {
		return Value{}, 0
	}
	at := c.offset()
	n, v, err := c.codec.Decode(enc, c.data[c.pos:])
	if err != nil {
		c.fail(anchor(err, at))
		return Value{}, 0
	}
	c.pos += n
	return v, n
}

// ptr decodes and resolves one encoded pointer. Data relative values use
// dataBase.
func (c *cursor) ptr(enc Encoding, dataBase uint64) uint64 {
	if c.err != nil || enc.Omit() {
		return 0
	}
	pc := c.pc()
	at := c.offset()
	v, _ := c.value(enc)
	if c.err != nil {
		return 0
	}
	addr, err := c.codec.Resolve(enc, v, pc, dataBase)
	if err != nil {
		c.fail(anchor(err, at))
		return 0
	}
	return addr
}

// anchor attaches a section offset to diag errors that lack one.
func anchor(err error, off uint64) error {
	var de *diag.Error
	if errors.As(err, &de) {
		return de.At(off)
	}
	return err
}
