package ehframe

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elfinfo/internal/diag"
)

func TestDescribe(t *testing.T) {
	tests := map[Encoding]string{
		0x1b: "0x1b (i32, relative to program counter)",
		0x03: "0x03 (u32, as is)",
		0x3b: "0x3b (i32, relative to .eh_frame_hdr start)",
		0x9b: "0x9b (i32, relative to program counter, indirect)",
		0x00: "0x00 (native, as is)",
		0xff: "0xff (no value)",
	}
	for enc, want := range tests {
		assert.Equal(t, want, enc.Describe())
	}
}

func TestDecodeResolve(t *testing.T) {
	le := binary.LittleEndian
	formats := []struct {
		enc  Encoding
		data []byte
		val  uint64 // value as added to the base, modulo 2^64
	}{
		{enc: EncUData2, data: le.AppendUint16(nil, 0xbeef), val: 0xbeef},
		{enc: EncUData4, data: le.AppendUint32(nil, 0x401000), val: 0x401000},
		{enc: EncUData8, data: le.AppendUint64(nil, 0x7f0000001000), val: 0x7f0000001000},
		{enc: EncSData2, data: le.AppendUint16(nil, 0xfff0), val: ^uint64(0xf)},
		{enc: EncSData4, data: le.AppendUint32(nil, 0xfffff000), val: ^uint64(0xfff)},
		{enc: EncSData8, data: le.AppendUint64(nil, ^uint64(0)), val: ^uint64(0)},
	}
	const pc, table = 0x3000, 0x5000
	bases := []struct {
		app  Encoding
		base uint64
	}{
		{app: 0, base: 0},
		{app: EncPCRel, base: pc},
		{app: EncDataRel, base: table},
	}

	for _, f := range formats {
		for _, b := range bases {
			enc := b.app | f.enc
			t.Run(enc.Describe(), func(t *testing.T) {
				n, v, err := DefaultCodec.Decode(enc, f.data)
				require.NoError(t, err)
				assert.Equal(t, len(f.data), n)
				addr, err := DefaultCodec.Resolve(enc, v, pc, table)
				require.NoError(t, err)
				assert.Equal(t, b.base+f.val, addr)
			})
		}
	}

	n, v, err := DefaultCodec.Decode(EncAbsPtr, le.AppendUint64(nil, 0x1234))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	addr, err := DefaultCodec.Resolve(EncAbsPtr, v, pc, table)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1234), addr)
}

func TestDecodeSignedValue(t *testing.T) {
	_, v, err := DefaultCodec.Decode(EncSData4, []byte{0xfe, 0xff, 0xff, 0xff})
	require.NoError(t, err)
	assert.True(t, v.Signed)
	assert.Equal(t, int64(-2), v.Int())
	assert.Equal(t, "-2", v.String())

	_, v, err = DefaultCodec.Decode(EncUData4, []byte{0xfe, 0xff, 0xff, 0xff})
	require.NoError(t, err)
	assert.Equal(t, "4294967294", v.String())
}

func TestCodec32BitWraps(t *testing.T) {
	codec := Codec{Order: binary.LittleEndian, PtrSize: 4}
	n, v, err := codec.Decode(EncAbsPtr|EncPCRel, []byte{0x00, 0x00, 0x00, 0x80})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	addr, err := codec.Resolve(EncAbsPtr|EncPCRel, v, 0x80001000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1000), addr)
}

func TestCodecErrors(t *testing.T) {
	_, _, err := DefaultCodec.Decode(EncOmit, []byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrNoValue)

	_, _, err = DefaultCodec.Decode(EncULEB128, []byte{1})
	assert.True(t, diag.Is(err, diag.Unsupported))

	_, _, err = DefaultCodec.Decode(EncUData4, []byte{1, 2})
	assert.True(t, diag.Is(err, diag.Malformed))

	_, _, err = DefaultCodec.Decode(Encoding(0x07), []byte{1, 2, 3, 4})
	assert.True(t, diag.Is(err, diag.Malformed))

	_, err = DefaultCodec.Resolve(EncIndirect|EncPCRel|EncSData4, Value{Bits: 4}, 0, 0)
	assert.True(t, diag.Is(err, diag.Unsupported))

	_, err = DefaultCodec.Resolve(EncTextRel|EncUData4, Value{Bits: 4}, 0, 0)
	assert.True(t, diag.Is(err, diag.Unsupported))
}

func TestCursorAnchorsCodecErrors(t *testing.T) {
	c := newCursor([]byte{0xaa, 0x01, 0x02}, 0x40, 0x1000, DefaultCodec)
	c.skip(1)
	c.value(EncUData4)
	require.Error(t, c.err)

	var de *diag.Error
	require.ErrorAs(t, c.err, &de)
	assert.True(t, de.HasOffset)
	assert.Equal(t, uint64(0x41), de.Offset)
}

func TestLEB128(t *testing.T) {
	c := newCursor([]byte{0xe5, 0x8e, 0x26, 0x7f, 0x80, 0x7f}, 0, 0, DefaultCodec)
	assert.Equal(t, uint64(624485), c.uleb())
	assert.Equal(t, int64(-1), c.sleb())
	assert.Equal(t, int64(-128), c.sleb())
	assert.NoError(t, c.err)
	assert.False(t, c.hasData())
}
