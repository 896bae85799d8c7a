package ehframe

import (
	"debug/elf"
	"fmt"
)

// RegisterNames maps DWARF register numbers to display names.
type RegisterNames interface {
	RegisterName(id uint64) (string, bool)
}

// RegisterTable is a fixed DWARF register numbering.
type RegisterTable struct {
	Arch  string
	names map[uint64]string
}

// RegisterName implements RegisterNames.
func (t RegisterTable) RegisterName(id uint64) (string, bool) {
	n, ok := t.names[id]
	return n, ok
}

// RegisterName returns the display name of id, or "???" for unknown ids.
func RegisterName(names RegisterNames, id uint64) string {
	if names != nil {
		if n, ok := names.RegisterName(id); ok {
			return n
		}
	}
	return "???"
}

// RegistersFor returns the numbering used by machine m. Machines without a
// table get one that knows no registers.
func RegistersFor(m elf.Machine) RegisterNames {
	switch m {
	case elf.EM_X86_64:
		return X86_64
	case elf.EM_AARCH64:
		return AArch64
	case elf.EM_386:
		return I386
	default:
		return RegisterTable{Arch: m.String()}
	}
}

// X86_64 follows the System V AMD64 psABI DWARF numbering.
var X86_64 = RegisterTable{Arch: "x86_64", names: buildNames(
	map[uint64]string{
		0: "rax", 1: "rdx", 2: "rcx", 3: "rbx",
		4: "rsi", 5: "rdi", 6: "rbp", 7: "rsp",
		16: "rip",
		49: "rflags",
		50: "es", 51: "cs", 52: "ss", 53: "ds", 54: "fs", 55: "gs",
		58: "fs.base", 59: "gs.base",
		62: "tr", 63: "ldtr",
		64: "mxcsr", 65: "fcw", 66: "fsw",
	},
	numbered("r", 8, 8, 8),
	numbered("xmm", 17, 0, 16),
	numbered("st", 33, 0, 8),
	numbered("mm", 41, 0, 8),
)}

// AArch64 follows the Arm DWARF numbering.
var AArch64 = RegisterTable{Arch: "aarch64", names: buildNames(
	map[uint64]string{
		31: "sp",
		33: "elr_mode",
		34: "ra_sign_state",
	},
	numbered("x", 0, 0, 31),
	numbered("v", 64, 0, 32),
)}

// I386 follows the System V i386 psABI DWARF numbering.
var I386 = RegisterTable{Arch: "i386", names: map[uint64]string{
	0: "eax", 1: "ecx", 2: "edx", 3: "ebx",
	4: "esp", 5: "ebp", 6: "esi", 7: "edi",
	8: "eip", 9: "eflags",
}}

// numbered returns count names prefix<first>.. starting at register id.
func numbered(prefix string, id, first, count uint64) map[uint64]string {
	m := make(map[uint64]string, count)
	for i := uint64(0); i < count; i++ {
		m[id+i] = fmt.Sprintf("%s%d", prefix, first+i)
	}
	return m
}

func buildNames(parts ...map[uint64]string) map[uint64]string {
	out := make(map[uint64]string)
	for _, p := range parts {
		for k, v := range p {
			out[k] = v
		}
	}
	return out
}
