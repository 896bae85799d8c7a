package ehframe

import (
	"errors"
	"fmt"

	"elfinfo/internal/diag"
)

// ErrUnresolvedCIE is wrapped by errors for FDEs whose CIE was not seen
// earlier in the same entry stream.
var ErrUnresolvedCIE = errors.New("unresolved CIE reference")

// Section is the raw content of a call frame information section.
type Section struct {
	Name       string
	Data       []byte
	Addr       uint64
	DebugFrame bool
	Codec      Codec
}

// NewSection wraps the bytes of .eh_frame or .debug_frame. addr is the
// section's virtual address, the base of pc relative pointers.
func NewSection(name string, data []byte, addr uint64, codec Codec) *Section {
	return &Section{
		Name:       name,
		Data:       data,
		Addr:       addr,
		DebugFrame: name == ".debug_frame",
		Codec:      codec,
	}
}

// CIE is one Common Information Entry.
type CIE struct {
	Offset          uint64
	Length          uint64
	Version         uint8
	Augmentation    string
	AddressSize     uint8
	SegmentSize     uint8
	CodeAlign       uint64
	DataAlign       int64
	ReturnRegister  uint64
	PointerEncoding Encoding
	LSDAEncoding    Encoding
	Personality     uint64
	HasPersonality  bool
	SignalFrame     bool
	Instructions    []byte

	hasAugData bool
	prog       cursor
	dataBase   uint64
}

// Program decodes the CIE's initial instructions.
func (c *CIE) Program() ([]Instruction, error) {
	return decodeProgram(c.prog, c.PointerEncoding, c.dataBase)
}

// FDE is one Frame Description Entry, already resolved against its CIE.
type FDE struct {
	Offset         uint64
	Length         uint64
	CIE            *CIE
	InitialAddress uint64
	AddressRange   uint64
	LSDA           uint64
	HasLSDA        bool
	Instructions   []byte

	prog     cursor
	dataBase uint64
}

// Contains reports whether addr lies in [InitialAddress, InitialAddress+AddressRange).
func (f *FDE) Contains(addr uint64) bool {
	return addr >= f.InitialAddress && addr-f.InitialAddress < f.AddressRange
}

// End returns the first address past the FDE's range.
func (f *FDE) End() uint64 { return f.InitialAddress + f.AddressRange }

// Program decodes the FDE's instructions.
func (f *FDE) Program() ([]Instruction, error) {
	return decodeProgram(f.prog, f.CIE.PointerEncoding, f.dataBase)
}

// Entry is either a CIE or an FDE. Err is set instead when the entry's
// framing was intact but its content could not be decoded; iteration
// continues with the next entry.
type Entry struct {
	Offset uint64
	CIE    *CIE
	FDE    *FDE
	Err    error
}

// Entries walks a section in file order. Each call starts a new walk with
// an empty CIE arena.
func (s *Section) Entries() *Entries {
	return &Entries{
		sec:  s,
		cur:  newCursor(s.Data, 0, s.Addr, s.Codec),
		cies: make(map[uint64]*CIE),
	}
}

// Entries is a lazy iterator over CIEs and FDEs.
type Entries struct {
	sec   *Section
	cur   cursor
	cies  map[uint64]*CIE
	entry Entry
	err   error
	done  bool
}

// Next advances to the next entry. It returns false at the end of the
// section, at a zero terminator, or on a framing error reported by Err.
func (it *Entries) Next() bool {
	if it.done || it.err != nil || !it.cur.hasData() {
		return false
	}
	entry, ok := it.sec.next(&it.cur, it.cies)
	if it.cur.err != nil {
		it.err = it.cur.err
		return false
	}
	if !ok {
		it.done = true
		return false
	}
	it.entry = entry
	return true
}

// Entry returns the current entry.
func (it *Entries) Entry() Entry { return it.entry }

// Err returns the error that stopped the walk, if any.
func (it *Entries) Err() error { return it.err }

// next reads one entry. It returns false on a zero length terminator.
func (s *Section) next(c *cursor, cies map[uint64]*CIE) (Entry, bool) {
	start := c.offset()
	length := uint64(c.u32())
	if c.err != nil {
		return Entry{}, false
	}
	if length == 0 {
		return Entry{}, false
	}

	is64 := false
	switch {
	case length == 0xffffffff:
		is64 = true
		length = c.u64()
	case length >= 0xfffffff0:
		c.fail(diag.Malformedf(start, "reserved initial length %#x", length))
		return Entry{}, false
	}

	body := c.sub(length)
	if c.err != nil {
		return Entry{}, false
	}

	idPos := body.offset()
	var id, marker uint64
	if is64 {
		id = body.u64()
		marker = 0xffffffffffffffff
	} else {
		id = uint64(body.u32())
		marker = 0xffffffff
	}
	if !s.DebugFrame {
		// In .eh_frame the CIE id is zero.
		marker = 0
	}
	if body.err != nil {
		return Entry{Offset: start, Err: body.err}, true
	}

	if id == marker {
		cie, err := s.parseCIE(start, length, &body)
		if err != nil {
			return Entry{Offset: start, Err: err}, true
		}
		cies[start] = cie
		return Entry{Offset: start, CIE: cie}, true
	}

	ciePos := id
	if !s.DebugFrame {
		// The .eh_frame CIE pointer is relative to its own position.
		if id > idPos {
			return Entry{Offset: start, Err: diag.Malformedf(start, "CIE pointer %#x points before the section", id)}, true
		}
		ciePos = idPos - id
	}
	cie, ok := cies[ciePos]
	if !ok {
		err := diag.Malformedf(start, "FDE references CIE %#x", ciePos).Wrap(ErrUnresolvedCIE)
		return Entry{Offset: start, Err: err}, true
	}
	fde, err := s.parseFDE(start, length, cie, &body)
	if err != nil {
		return Entry{Offset: start, Err: err}, true
	}
	return Entry{Offset: start, FDE: fde}, true
}

func (s *Section) parseCIE(start, length uint64, body *cursor) (*CIE, error) {
	cie := &CIE{
		Offset:          start,
		Length:          length,
		PointerEncoding: EncAbsPtr,
		LSDAEncoding:    EncOmit,
		dataBase:        s.Addr,
	}

	cie.Version = body.u8()
	if v := cie.Version; v != 1 && v != 3 && v != 4 && body.err == nil {
		return nil, diag.Unsupportedf("CIE version %d", v).At(start)
	}
	cie.Augmentation = body.cstring()
	if cie.Version == 4 {
		cie.AddressSize = body.u8()
		cie.SegmentSize = body.u8()
	}
	cie.CodeAlign = body.uleb()
	cie.DataAlign = body.sleb()
	if cie.Version == 1 {
		cie.ReturnRegister = uint64(body.u8())
	} else {
		cie.ReturnRegister = body.uleb()
	}

	if aug := cie.Augmentation; aug != "" {
		if aug[0] != 'z' {
			return nil, diag.Unsupportedf("augmentation string %q", aug).At(start)
		}
		cie.hasAugData = true
		data := body.sub(body.uleb())
	letters:
		for _, ch := range aug[1:] {
			switch ch {
			case 'L':
				cie.LSDAEncoding = Encoding(data.u8())
			case 'R':
				cie.PointerEncoding = Encoding(data.u8())
			case 'P':
				enc := Encoding(data.u8()) &^ EncIndirect
				cie.Personality = data.ptr(enc, s.Addr)
				cie.HasPersonality = data.err == nil
			case 'S':
				cie.SignalFrame = true
			default:
				// The augmentation data length lets us skip what we don't know.
				break letters
			}
		}
		if data.err != nil {
			return nil, fmt.Errorf("CIE %#x augmentation: %w", start, data.err)
		}
	}
	if body.err != nil {
		return nil, body.err
	}

	cie.prog = newCursor(body.data[body.pos:], body.offset(), body.pc(), body.codec)
	cie.Instructions = cie.prog.data
	return cie, nil
}

func (s *Section) parseFDE(start, length uint64, cie *CIE, body *cursor) (*FDE, error) {
	fde := &FDE{Offset: start, Length: length, CIE: cie, dataBase: s.Addr}

	fde.InitialAddress = body.ptr(cie.PointerEncoding, s.Addr)
	// The range uses the same format but is never relative to anything.
	fde.AddressRange = body.ptr(cie.PointerEncoding&encFormatMask, 0)
	if cie.hasAugData {
		data := body.sub(body.uleb())
		if !cie.LSDAEncoding.Omit() && len(data.data) > 0 {
			fde.LSDA = data.ptr(cie.LSDAEncoding&^EncIndirect, s.Addr)
			fde.HasLSDA = data.err == nil && fde.LSDA != 0
		}
	}
	if body.err != nil {
		return nil, body.err
	}

	fde.prog = newCursor(body.data[body.pos:], body.offset(), body.pc(), body.codec)
	fde.Instructions = fde.prog.data
	return fde, nil
}

// CodeFactor is the code alignment factor advances are scaled by. A zero
// factor is treated as 1.
func (c *CIE) CodeFactor() uint64 {
	if c.CodeAlign == 0 {
		return 1
	}
	return c.CodeAlign
}

// FDEFor returns the first FDE whose range contains addr. When none does
// and some entry could not be parsed, the first such error is returned since
// the broken entry may be the one covering addr.
func (s *Section) FDEFor(addr uint64) (*FDE, error) {
	var entryErr error
	it := s.Entries()
	for it.Next() {
		e := it.Entry()
		if e.Err != nil && entryErr == nil {
			entryErr = e.Err
		}
		if e.FDE != nil && e.FDE.Contains(addr) {
			return e.FDE, nil
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	if entryErr != nil {
		return nil, entryErr
	}
	return nil, diag.NotFoundf(fmt.Sprintf("%#x", addr), "no unwind data in %s for address", s.Name)
}
