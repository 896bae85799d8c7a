// Package disasm defines a common instruction representation used
// across architecture-specific disassemblers.
package disasm

import (
	"debug/elf"
	"fmt"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"

	"elfinfo/internal/diag"
)

// Inst is a simplified decoded instruction.
type Inst struct {
	VA    uint64 // virtual address of instruction
	Len   int    // encoded length in bytes
	Bytes []byte // raw encoding
	Text  string // formatted disassembly string
	Op    string // mnemonic in lowercase
	Bad   bool   // bytes did not decode
}

// Stream is a linear sequence of instructions.
type Stream []Inst

// Syntax selects the x86 operand order.
type Syntax int

const (
	ATT Syntax = iota
	Intel
)

// ParseSyntax accepts "att" and "intel".
func ParseSyntax(s string) (Syntax, error) {
	switch strings.ToLower(s) {
	case "", "att", "at&t", "gnu":
		return ATT, nil
	case "intel":
		return Intel, nil
	}
	return ATT, diag.Unsupportedf("assembly syntax %q", s)
}

func (s Syntax) String() string {
	if s == Intel {
		return "intel"
	}
	return "att"
}

// Resolver maps an absolute address to a display name and the address the
// name starts at.
type Resolver func(addr uint64) (name string, base uint64, ok bool)

// Decoder turns machine code into formatted instructions.
type Decoder struct {
	Machine elf.Machine
	Syntax  Syntax

	resolve Resolver
	used    map[string]struct{}
	decode  func(d *Decoder, code []byte, pc uint64) Inst
}

// New returns a decoder for machine m. resolve may be nil.
func New(m elf.Machine, syntax Syntax, resolve Resolver) (*Decoder, error) {
	d := &Decoder{Machine: m, Syntax: syntax, resolve: resolve, used: make(map[string]struct{})}
	switch m {
	case elf.EM_X86_64:
		d.decode = func(d *Decoder, code []byte, pc uint64) Inst { return d.decodeX86(code, pc, 64) }
	case elf.EM_386:
		d.decode = func(d *Decoder, code []byte, pc uint64) Inst { return d.decodeX86(code, pc, 32) }
	case elf.EM_AARCH64:
		d.decode = (*Decoder).decodeARM64
	default:
		return nil, diag.Unsupportedf("disassembly for machine %s", m)
	}
	return d, nil
}

// Decode decodes the instruction at the start of code, located at pc. Bytes
// that do not decode produce a one unit "(bad)" instruction so that linear
// sweeps can continue.
func (d *Decoder) Decode(code []byte, pc uint64) Inst {
	return d.decode(d, code, pc)
}

// Disassemble decodes code linearly from pc.
func (d *Decoder) Disassemble(code []byte, pc uint64) Stream {
	var out Stream
	for off := 0; off < len(code); {
		in := d.Decode(code[off:], pc+uint64(off))
		out = append(out, in)
		off += in.Len
	}
	return out
}

// Used returns the symbol names substituted into operands so far.
func (d *Decoder) Used() []string {
	out := make([]string, 0, len(d.used))
	for n := range d.used {
		out = append(out, n)
	}
	return out
}

func (d *Decoder) lookup(addr uint64) (string, uint64) {
	if d.resolve == nil {
		return "", 0
	}
	name, base, ok := d.resolve(addr)
	if !ok || name == "" {
		return "", 0
	}
	d.used[name] = struct{}{}
	return name, base
}

func bad(code []byte, pc uint64, unit int) Inst {
	n := min(unit, len(code))
	return Inst{VA: pc, Len: n, Bytes: code[:n], Text: "(bad)", Bad: true}
}

func (d *Decoder) decodeX86(code []byte, pc uint64, mode int) Inst {
	inst, err := x86asm.Decode(code, mode)
	if err != nil || inst.Len == 0 {
		return bad(code, pc, 1)
	}
	var text string
	if d.Syntax == Intel {
		text = x86asm.IntelSyntax(inst, pc, d.lookup)
	} else {
		text = x86asm.GNUSyntax(inst, pc, d.lookup)
	}
	return Inst{
		VA:    pc,
		Len:   inst.Len,
		Bytes: code[:inst.Len],
		Text:  text,
		Op:    strings.ToLower(inst.Op.String()),
	}
}

func (d *Decoder) decodeARM64(code []byte, pc uint64) Inst {
	if len(code) < 4 {
		return bad(code, pc, 4)
	}
	inst, err := arm64asm.Decode(code[:4])
	if err != nil {
		return bad(code, pc, 4)
	}
	text := arm64asm.GNUSyntax(inst)

	// Show pc relative operands as absolute targets, objdump style.
	for _, arg := range inst.Args {
		rel, ok := arg.(arm64asm.PCRel)
		if !ok {
			continue
		}
		target := pc + uint64(int64(rel))
		text = strings.Replace(text, strings.ToLower(rel.String()), fmt.Sprintf("%#x", target), 1)
		if name, base := d.lookup(target); name != "" {
			if target == base {
				text += fmt.Sprintf(" <%s>", name)
			} else {
				text += fmt.Sprintf(" <%s+%#x>", name, target-base)
			}
		}
	}
	return Inst{
		VA:    pc,
		Len:   4,
		Bytes: code[:4],
		Text:  text,
		Op:    strings.ToLower(inst.Op.String()),
	}
}
