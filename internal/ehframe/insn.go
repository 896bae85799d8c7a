package ehframe

import (
	"fmt"

	"elfinfo/internal/diag"
)

// Op is a DW_CFA opcode. The three compact opcodes keep only their high two
// bits; the operand in the low six bits is moved to the Instruction.
type Op uint8

const (
	OpNop                  Op = 0x00
	OpSetLoc               Op = 0x01
	OpAdvanceLoc1          Op = 0x02
	OpAdvanceLoc2          Op = 0x03
	OpAdvanceLoc4          Op = 0x04
	OpOffsetExtended       Op = 0x05
	OpRestoreExtended      Op = 0x06
	OpUndefined            Op = 0x07
	OpSameValue            Op = 0x08
	OpRegister             Op = 0x09
	OpRememberState        Op = 0x0a
	OpRestoreState         Op = 0x0b
	OpDefCFA               Op = 0x0c
	OpDefCFARegister       Op = 0x0d
	OpDefCFAOffset         Op = 0x0e
	OpDefCFAExpression     Op = 0x0f
	OpExpression           Op = 0x10
	OpOffsetExtendedSf     Op = 0x11
	OpDefCFASf             Op = 0x12
	OpDefCFAOffsetSf       Op = 0x13
	OpValOffset            Op = 0x14
	OpValOffsetSf          Op = 0x15
	OpValExpression        Op = 0x16
	OpGNUWindowSave        Op = 0x2d
	OpGNUArgsSize          Op = 0x2e
	OpGNUNegOffsetExtended Op = 0x2f

	OpAdvanceLoc Op = 0x40
	OpOffset     Op = 0x80
	OpRestore    Op = 0xc0
)

var opNames = map[Op]string{
	OpNop:                  "DW_CFA_nop",
	OpSetLoc:               "DW_CFA_set_loc",
	OpAdvanceLoc1:          "DW_CFA_advance_loc1",
	OpAdvanceLoc2:          "DW_CFA_advance_loc2",
	OpAdvanceLoc4:          "DW_CFA_advance_loc4",
	OpOffsetExtended:       "DW_CFA_offset_extended",
	OpRestoreExtended:      "DW_CFA_restore_extended",
	OpUndefined:            "DW_CFA_undefined",
	OpSameValue:            "DW_CFA_same_value",
	OpRegister:             "DW_CFA_register",
	OpRememberState:        "DW_CFA_remember_state",
	OpRestoreState:         "DW_CFA_restore_state",
	OpDefCFA:               "DW_CFA_def_cfa",
	OpDefCFARegister:       "DW_CFA_def_cfa_register",
	OpDefCFAOffset:         "DW_CFA_def_cfa_offset",
	OpDefCFAExpression:     "DW_CFA_def_cfa_expression",
	OpExpression:           "DW_CFA_expression",
	OpOffsetExtendedSf:     "DW_CFA_offset_extended_sf",
	OpDefCFASf:             "DW_CFA_def_cfa_sf",
	OpDefCFAOffsetSf:       "DW_CFA_def_cfa_offset_sf",
	OpValOffset:            "DW_CFA_val_offset",
	OpValOffsetSf:          "DW_CFA_val_offset_sf",
	OpValExpression:        "DW_CFA_val_expression",
	OpGNUWindowSave:        "DW_CFA_GNU_window_save",
	OpGNUArgsSize:          "DW_CFA_GNU_args_size",
	OpGNUNegOffsetExtended: "DW_CFA_GNU_negative_offset_extended",
	OpAdvanceLoc:           "DW_CFA_advance_loc",
	OpOffset:               "DW_CFA_offset",
	OpRestore:              "DW_CFA_restore",
}

func (op Op) String() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return fmt.Sprintf("DW_CFA_%#02x", uint8(op))
}

// Instruction is one decoded call frame instruction.
type Instruction struct {
	Op Op
	// Offset is the section offset of the opcode byte.
	Offset uint64
	Reg    uint64
	Reg2   uint64
	// Operand holds the raw delta, offset or size, unfactored.
	Operand int64
	// Address is the DW_CFA_set_loc target.
	Address uint64
	Expr    []byte
}

// IsAdvance reports whether the instruction moves the location.
func (in Instruction) IsAdvance() bool {
	switch in.Op {
	case OpAdvanceLoc, OpAdvanceLoc1, OpAdvanceLoc2, OpAdvanceLoc4, OpSetLoc:
		return true
	}
	return false
}

// DecodeProgram decodes a free standing instruction stream, using cie for
// DW_CFA_set_loc. Offsets in the result and in errors start at zero.
func DecodeProgram(data []byte, cie *CIE) ([]Instruction, error) {
	enc := EncAbsPtr
	if cie != nil {
		enc = cie.PointerEncoding
	}
	return decodeProgram(newCursor(data, 0, 0, DefaultCodec), enc, 0)
}

func decodeProgram(c cursor, enc Encoding, dataBase uint64) ([]Instruction, error) {
	var out []Instruction
	for c.hasData() {
		in := Instruction{Offset: c.offset()}
		b := c.u8()
		in.Op = Op(b)
		if hi := Op(b) & 0xc0; hi != 0 {
			in.Op = hi
			low := uint64(b & 0x3f)
			switch hi {
			case OpAdvanceLoc:
				in.Operand = int64(low)
			case OpOffset:
				in.Reg = low
				in.Operand = int64(c.uleb())
			case OpRestore:
				in.Reg = low
			}
			if c.err != nil {
				return out, c.err
			}
			out = append(out, in)
			continue
		}

		switch in.Op {
		case OpNop, OpRememberState, OpRestoreState, OpGNUWindowSave:
		case OpSetLoc:
			in.Address = c.ptr(enc, dataBase)
		case OpAdvanceLoc1:
			in.Operand = int64(c.u8())
		case OpAdvanceLoc2:
			in.Operand = int64(c.u16())
		case OpAdvanceLoc4:
			in.Operand = int64(c.u32())
		case OpOffsetExtended, OpValOffset, OpGNUNegOffsetExtended:
			in.Reg = c.uleb()
			in.Operand = int64(c.uleb())
		case OpRestoreExtended, OpUndefined, OpSameValue, OpDefCFARegister:
			in.Reg = c.uleb()
		case OpRegister:
			in.Reg = c.uleb()
			in.Reg2 = c.uleb()
		case OpDefCFA:
			in.Reg = c.uleb()
			in.Operand = int64(c.uleb())
		case OpDefCFAOffset, OpGNUArgsSize:
			in.Operand = int64(c.uleb())
		case OpDefCFAExpression:
			in.Expr = c.bytes(c.uleb())
		case OpExpression, OpValExpression:
			in.Reg = c.uleb()
			in.Expr = c.bytes(c.uleb())
		case OpOffsetExtendedSf, OpValOffsetSf, OpDefCFASf:
			in.Reg = c.uleb()
			in.Operand = c.sleb()
		case OpDefCFAOffsetSf:
			in.Operand = c.sleb()
		default:
			return out, diag.Unsupportedf("call frame opcode %#02x", b).At(in.Offset)
		}
		if c.err != nil {
			return out, c.err
		}
		out = append(out, in)
	}
	return out, c.err
}
