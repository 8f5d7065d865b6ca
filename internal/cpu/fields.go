package cpu

import "github.com/skypartan/lc3-vm/internal/machine"

// Instruction field extraction. LC-3 packs destination/source register
// numbers, mode flags, and sign-extended offsets into fixed bit ranges
// of a 16-bit word; these helpers name each field instead of repeating
// mask-and-shift at every call site.

func destReg(instr uint16) machine.Register {
	return machine.Register((instr >> 9) & 0x7)
}

// srcReg extracts the bits-11:9 register field when the instruction
// uses it as a source (ST, STI, STR) rather than a destination. Same
// bit position as destReg; named separately for readability at call
// sites.
func srcReg(instr uint16) machine.Register {
	return destReg(instr)
}

func srcReg1(instr uint16) machine.Register {
	return machine.Register((instr >> 6) & 0x7)
}

func srcReg2(instr uint16) machine.Register {
	return machine.Register(instr & 0x7)
}

func baseReg(instr uint16) machine.Register {
	return machine.Register((instr >> 6) & 0x7)
}

func isImmediate(instr uint16) bool {
	return (instr>>5)&0x1 != 0
}

func imm5(instr uint16) uint16 {
	return machine.SignExtend(instr&0x1F, 5)
}

func offset6(instr uint16) uint16 {
	return machine.SignExtend(instr&0x3F, 6)
}

func pcOffset9(instr uint16) uint16 {
	return machine.SignExtend(instr&0x1FF, 9)
}

func pcOffset11(instr uint16) uint16 {
	return machine.SignExtend(instr&0x7FF, 11)
}

func trapVector(instr uint16) uint16 {
	return instr & 0xFF
}

func condFlags(instr uint16) uint16 {
	return (instr >> 9) & 0x7
}
