// Package ehframe decodes DWARF call frame information as found in the
// .eh_frame, .debug_frame and .eh_frame_hdr sections.
//
// References:
// http://dwarfstd.org/doc/DWARF5.pdf §6.4
// https://refspecs.linuxfoundation.org/LSB_5.0.0/LSB-Core-generic/LSB-Core-generic/ehframechpt.html
package ehframe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"elfinfo/internal/diag"
)

// Encoding is a DW_EH_PE pointer encoding byte. The low nibble selects the
// value format, bits 4-6 the base it is relative to, bit 7 indirection.
type Encoding uint8

const (
	EncAbsPtr  Encoding = 0x00
	EncULEB128 Encoding = 0x01
	EncUData2  Encoding = 0x02
	EncUData4  Encoding = 0x03
	EncUData8  Encoding = 0x04
	EncSLEB128 Encoding = 0x09
	EncSData2  Encoding = 0x0a
	EncSData4  Encoding = 0x0b
	EncSData8  Encoding = 0x0c

	EncPCRel   Encoding = 0x10
	EncTextRel Encoding = 0x20
	EncDataRel Encoding = 0x30
	EncFuncRel Encoding = 0x40
	EncAligned Encoding = 0x50

	EncIndirect Encoding = 0x80
	EncOmit     Encoding = 0xff

	encFormatMask Encoding = 0x0f
	encApplyMask  Encoding = 0x70
)

// ErrNoValue is returned when decoding with the 0xff "omit" encoding.
var ErrNoValue = errors.New("encoding 0xff carries no value")

// Omit reports whether e is the "no value" sentinel.
func (e Encoding) Omit() bool { return e == EncOmit }

// Format returns the value format nibble.
func (e Encoding) Format() Encoding { return e & encFormatMask }

// Application returns the base selector bits.
func (e Encoding) Application() Encoding { return e & encApplyMask }

func (e Encoding) formatName() string {
	switch e.Format() {
	case EncAbsPtr:
		return "native"
	case EncULEB128:
		return "unsigned LEB128"
	case EncUData2:
		return "u16"
	case EncUData4:
		return "u32"
	case EncUData8:
		return "u64"
	case EncSLEB128:
		return "signed LEB128"
	case EncSData2:
		return "i16"
	case EncSData4:
		return "i32"
	case EncSData8:
		return "i64"
	default:
		return "???"
	}
}

func (e Encoding) applicationName() string {
	switch e.Application() {
	case 0:
		return "as is"
	case EncPCRel:
		return "relative to program counter"
	case EncTextRel:
		return "relative to .text"
	case EncDataRel:
		return "relative to .eh_frame_hdr start"
	case EncFuncRel:
		return "relative to function start"
	case EncAligned:
		return "aligned"
	default:
		return "???"
	}
}

// Describe renders e the way the unwind table header shows it, for example
// "0x1b (i32, relative to program counter)".
func (e Encoding) Describe() string {
	if e.Omit() {
		return fmt.Sprintf("%#04x (no value)", uint8(e))
	}
	s := fmt.Sprintf("%#04x (%s, %s", uint8(e), e.formatName(), e.applicationName())
	if e&EncIndirect != 0 {
		s += ", indirect"
	}
	return s + ")"
}

// Value is a decoded, not yet resolved, encoded value.
type Value struct {
	Signed bool
	Bits   uint64
}

// Int returns the value as a signed integer.
func (v Value) Int() int64 { return int64(v.Bits) }

func (v Value) String() string {
	if v.Signed {
		return strconv.FormatInt(int64(v.Bits), 10)
	}
	return strconv.FormatUint(v.Bits, 10)
}

// Codec decodes and resolves encoded pointers for one ELF image.
type Codec struct {
	Order   binary.ByteOrder
	PtrSize int
}

// DefaultCodec is little endian with 8 byte native pointers.
var DefaultCodec = Codec{Order: binary.LittleEndian, PtrSize: 8}

// Size returns the number of bytes a value of encoding e occupies.
func (c Codec) Size(e Encoding) (int, error) {
	switch e.Format() {
	case EncAbsPtr:
		return c.PtrSize, nil
	case EncUData2, EncSData2:
		return 2, nil
	case EncUData4, EncSData4:
		return 4, nil
	case EncUData8, EncSData8:
		return 8, nil
	case EncULEB128, EncSLEB128:
		return 0, diag.Unsupportedf("%s pointer encoding %#02x", e.formatName(), uint8(e))
	default:
		return 0, diag.Invalidf("unknown pointer format in encoding %#02x", uint8(e))
	}
}

// Decode reads one value of encoding e from the start of data and returns
// the number of bytes consumed. LEB128 formats are reported as unsupported.
// Error offsets are relative to data; callers anchor them with diag.Error.At.
func (c Codec) Decode(e Encoding, data []byte) (int, Value, error) {
	if e.Omit() {
		return 0, Value{}, ErrNoValue
	}
	n, err := c.Size(e)
	if err != nil {
		return 0, Value{}, err
	}
	if len(data) < n {
		return 0, Value{}, diag.Invalidf("encoded value needs %d bytes, %d left", n, len(data))
	}

	var v Value
	switch e.Format() {
	case EncAbsPtr:
		if n == 4 {
			v.Bits = uint64(c.Order.Uint32(data))
		} else {
			v.Bits = c.Order.Uint64(data)
		}
	case EncUData2:
		v.Bits = uint64(c.Order.Uint16(data))
	case EncUData4:
		v.Bits = uint64(c.Order.Uint32(data))
	case EncUData8:
		v.Bits = c.Order.Uint64(data)
	case EncSData2:
		v = Value{Signed: true, Bits: uint64(int64(int16(c.Order.Uint16(data))))}
	case EncSData4:
		v = Value{Signed: true, Bits: uint64(int64(int32(c.Order.Uint32(data))))}
	case EncSData8:
		v = Value{Signed: true, Bits: c.Order.Uint64(data)}
	}
	return n, v, nil
}

// Resolve turns v into an absolute address. pc is the address of the encoded
// value itself and tableStart the base used by data relative encodings.
func (c Codec) Resolve(e Encoding, v Value, pc, tableStart uint64) (uint64, error) {
	if e.Omit() {
		return 0, ErrNoValue
	}
	if e&EncIndirect != 0 {
		return 0, diag.Unsupportedf("indirect pointer encoding %#02x", uint8(e))
	}

	var base uint64
	switch e.Application() {
	case 0:
	case EncPCRel:
		base = pc
	case EncDataRel:
		base = tableStart
	case EncTextRel, EncFuncRel, EncAligned:
		return 0, diag.Unsupportedf("pointer base %q in encoding %#02x", e.applicationName(), uint8(e))
	default:
		return 0, diag.Invalidf("unknown pointer base in encoding %#02x", uint8(e))
	}

	// Unsigned and two's complement addition agree modulo 2^64.
	addr := base + v.Bits
	if c.PtrSize == 4 {
		addr &= 0xffffffff
	}
	return addr, nil
}
