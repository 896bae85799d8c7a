package ehframe

import (
	"fmt"
	"maps"
	"strings"

	"elfinfo/internal/diag"
	"elfinfo/internal/render"
)

// RuleKind says how a register is recovered in the caller's frame.
type RuleKind uint8

const (
	RuleUndefined RuleKind = iota + 1
	RuleSameValue
	RuleOffset
	RuleValOffset
	RuleRegister
	RuleExpression
	RuleValExpression
)

// Rule is the recovery rule of one register.
type Rule struct {
	Kind   RuleKind
	Offset int64
	Reg    uint64
	Expr   []byte
}

// RuleSet is the unwind state at one location.
type RuleSet struct {
	CFARegister uint64
	CFAOffset   int64
	CFAExpr     []byte
	Registers   map[uint64]Rule
}

func (rs RuleSet) clone() RuleSet {
	rs.Registers = maps.Clone(rs.Registers)
	return rs
}

func (rs *RuleSet) set(reg uint64, r Rule) {
	if rs.Registers == nil {
		rs.Registers = make(map[uint64]Rule)
	}
	rs.Registers[reg] = r
}

// Tracker replays call frame instructions, keeping the current location and
// rule set, and renders each instruction with its effect.
type Tracker struct {
	names     RegisterNames
	sp        render.SizePrint
	loc       uint64
	codeAlign uint64
	dataAlign int64
	rules     RuleSet
	initial   RuleSet
	stack     []RuleSet
}

// NewTracker returns a tracker naming registers with names.
func NewTracker(names RegisterNames, sp render.SizePrint) *Tracker {
	return &Tracker{names: names, sp: sp, codeAlign: 1, dataAlign: 1}
}

// Reset starts a new instruction stream at loc using the alignment factors
// of cie. All rules and saved states are dropped.
func (t *Tracker) Reset(loc uint64, cie *CIE) {
	t.loc = loc
	t.codeAlign, t.dataAlign = 1, 1
	if cie != nil {
		t.codeAlign, t.dataAlign = cie.CodeFactor(), cie.DataAlign
	}
	t.rules = RuleSet{}
	t.initial = RuleSet{}
	t.stack = t.stack[:0]
}

// MarkInitial records the current rules as the ones DW_CFA_restore returns to.
// It is called once the CIE's initial instructions have been applied.
func (t *Tracker) MarkInitial() { t.initial = t.rules.clone() }

// Prime applies the CIE's initial instructions without rendering them and
// marks the result as the initial rules.
func (t *Tracker) Prime(prog []Instruction) error {
	o := render.New(render.Discard)
	var err error
	for _, in := range prog {
		if e := t.Apply(o, in); e != nil && err == nil {
			err = e
		}
	}
	t.MarkInitial()
	return err
}

// Loc returns the current location.
func (t *Tracker) Loc() uint64 { return t.loc }

// State returns a copy of the current rules.
func (t *Tracker) State() RuleSet { return t.rules.clone() }

// Apply updates the state with in and renders one line for it. Only
// advisories are returned; the line is always written.
func (t *Tracker) Apply(o *render.Out, in Instruction) error {
	var err error
	switch in.Op {
	case OpNop:
		o.Put(render.Dim, "DW_CFA_nop()")

	case OpSetLoc:
		t.head(o, in.Op).Putf(render.Number, "%#x", in.Address).Text(")\tloc = ")
		if in.Address < t.loc {
			o.Put(render.Address, t.sp.Hex(t.loc)).Text(" ").Put(render.Warning, "(backward, ignored)")
			err = diag.Malformedf(in.Offset, "DW_CFA_set_loc(%#x) moves the location back from %#x", in.Address, t.loc)
			break
		}
		t.loc = in.Address
		o.Put(render.Address, t.sp.Hex(t.loc))

	case OpAdvanceLoc, OpAdvanceLoc1, OpAdvanceLoc2, OpAdvanceLoc4:
		delta := uint64(in.Operand) * t.codeAlign
		t.loc += delta
		t.head(o, in.Op).Putf(render.Number, "%d", in.Operand).Text(")\tloc += ").
			Putf(render.Number, "%d", delta).Text("\tloc = ").Put(render.Address, t.sp.Hex(t.loc))

	case OpDefCFA, OpDefCFASf:
		off := in.Operand
		if in.Op == OpDefCFASf {
			off *= t.dataAlign
		}
		t.rules.CFARegister, t.rules.CFAOffset, t.rules.CFAExpr = in.Reg, off, nil
		t.head(o, in.Op).Putf(render.Number, "%d", in.Reg).Text(", ").Putf(render.Number, "%d", in.Operand).
			Text(")\t\tcfa = ")
		t.reg(o, in.Reg)
		t.signed(o, off)

	case OpDefCFARegister:
		t.rules.CFARegister, t.rules.CFAExpr = in.Reg, nil
		t.head(o, in.Op).Putf(render.Number, "%d", in.Reg).Text(")\tcfa = ")
		t.reg(o, in.Reg)
		o.Put(render.Dim, signedText(t.rules.CFAOffset))

	case OpDefCFAOffset, OpDefCFAOffsetSf:
		off := in.Operand
		if in.Op == OpDefCFAOffsetSf {
			off *= t.dataAlign
		}
		t.rules.CFAOffset = off
		t.head(o, in.Op).Putf(render.Number, "%d", in.Operand).Text(")\tcfa = ").
			Put(render.Dim, "%"+RegisterName(t.names, t.rules.CFARegister))
		t.signed(o, off)

	case OpDefCFAExpression:
		t.rules.CFAExpr = in.Expr
		t.head(o, in.Op).Text(exprText(in.Expr) + ")\tcfa = ...")

	case OpUndefined:
		t.rules.set(in.Reg, Rule{Kind: RuleUndefined})
		t.head(o, in.Op).Putf(render.Number, "%d", in.Reg).Text(")\t\t")
		t.reg(o, in.Reg)
		o.Text(" @ ??? (unrecoverable)")

	case OpSameValue:
		t.rules.set(in.Reg, Rule{Kind: RuleSameValue})
		t.head(o, in.Op).Putf(render.Number, "%d", in.Reg).Text(")\t\t")
		t.reg(o, in.Reg)
		o.Text(" untouched")

	case OpOffset, OpOffsetExtended, OpOffsetExtendedSf, OpGNUNegOffsetExtended,
		OpValOffset, OpValOffsetSf:
		off := in.Operand * t.dataAlign
		if in.Op == OpGNUNegOffsetExtended {
			off = -off
		}
		kind, sep := RuleOffset, " @ cfa"
		if in.Op == OpValOffset || in.Op == OpValOffsetSf {
			kind, sep = RuleValOffset, " = cfa"
		}
		t.rules.set(in.Reg, Rule{Kind: kind, Offset: off})
		t.head(o, in.Op).Putf(render.Number, "%d", in.Reg).Text(", ").Putf(render.Number, "%d", in.Operand).
			Text(")\t\t")
		t.reg(o, in.Reg)
		o.Text(sep)
		t.signed(o, off)

	case OpRegister:
		t.rules.set(in.Reg, Rule{Kind: RuleRegister, Reg: in.Reg2})
		t.head(o, in.Op).Putf(render.Number, "%d", in.Reg).Text(", ").Putf(render.Number, "%d", in.Reg2).
			Text(")\t")
		t.reg(o, in.Reg)
		o.Text(" = ")
		t.reg(o, in.Reg2)

	case OpExpression, OpValExpression:
		kind := RuleExpression
		if in.Op == OpValExpression {
			kind = RuleValExpression
		}
		t.rules.set(in.Reg, Rule{Kind: kind, Expr: in.Expr})
		t.head(o, in.Op).Putf(render.Number, "%d", in.Reg).Text(", " + exprText(in.Expr) + ")\t\t")
		t.reg(o, in.Reg)
		o.Text(" = ...")

	case OpRestore, OpRestoreExtended:
		if r, ok := t.initial.Registers[in.Reg]; ok {
			t.rules.set(in.Reg, r)
		} else {
			delete(t.rules.Registers, in.Reg)
		}
		t.head(o, in.Op).Putf(render.Number, "%d", in.Reg).Text(")\t\t")
		t.reg(o, in.Reg)
		o.Text(" @ (initial rule)")

	case OpRememberState:
		t.stack = append(t.stack, t.rules.clone())
		t.head(o, in.Op).Textf(")\t\tsaved (depth %d)", len(t.stack))

	case OpRestoreState:
		t.head(o, in.Op).Text(")\t\t")
		if len(t.stack) == 0 {
			o.Put(render.Warning, "nothing to restore")
			err = diag.Advisoryf("DW_CFA_restore_state without saved state").At(in.Offset)
			break
		}
		t.rules = t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		o.Text("cfa = ")
		t.reg(o, t.rules.CFARegister)
		t.signed(o, t.rules.CFAOffset)

	case OpGNUArgsSize:
		t.head(o, in.Op).Putf(render.Number, "%d", in.Operand).Text(")")

	case OpGNUWindowSave:
		t.head(o, in.Op).Text(")")

	default:
		t.head(o, in.Op).Text(")")
	}
	o.Nl()
	return err
}

func (t *Tracker) head(o *render.Out, op Op) *render.Out {
	return o.Text(op.String() + "(")
}

func (t *Tracker) reg(o *render.Out, id uint64) {
	o.Put(render.Register, "%"+RegisterName(t.names, id))
}

func (t *Tracker) signed(o *render.Out, off int64) {
	o.Text(signedText(off))
}

// signedText renders " + n" or " − n" with a true minus sign.
func signedText(off int64) string {
	if off < 0 {
		return fmt.Sprintf(" − %d", -off)
	}
	return fmt.Sprintf(" + %d", off)
}

// exprText renders expression bytes as "[01, 02]".
func exprText(expr []byte) string {
	parts := make([]string, len(expr))
	for i, b := range expr {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
