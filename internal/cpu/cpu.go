/*
 * lc3-vm - Instruction decoder and driver loop.
 *
 * The top 4 bits of every instruction word select one of sixteen
 * handlers from a fixed dispatch table, built once at package init
 * rather than as a bare switch. RTI and RES have no handler (nil
 * entries), and Step reports them as an IllegalOpcodeError; every other
 * opcode is a closed, exhaustive entry.
 */

package cpu

import (
	"fmt"

	"github.com/skypartan/lc3-vm/internal/hexfmt"
	"github.com/skypartan/lc3-vm/internal/machine"
)

// IllegalOpcodeError reports that the driver loop decoded RTI, RES, or
// (defensively) any opcode outside 0..15.
type IllegalOpcodeError struct {
	Instr uint16
}

func (e *IllegalOpcodeError) Error() string {
	return fmt.Sprintf("illegal opcode: %s", hexfmt.Binary(e.Instr, 16))
}

// HostIOError reports that a host-side I/O operation backing GETC or IN
// failed. It wraps the underlying error for inspection with errors.As.
type HostIOError struct {
	Err error
}

func (e *HostIOError) Error() string {
	return fmt.Sprintf("host I/O failure: %s", e.Err)
}

func (e *HostIOError) Unwrap() error {
	return e.Err
}

type handler func(m *machine.Machine, instr uint16) error

var dispatch [16]handler

func init() {
	dispatch[0x0] = opBR
	dispatch[0x1] = opADD
	dispatch[0x2] = opLD
	dispatch[0x3] = opST
	dispatch[0x4] = opJSR
	dispatch[0x5] = opAND
	dispatch[0x6] = opLDR
	dispatch[0x7] = opSTR
	dispatch[0x8] = nil // RTI: illegal in this implementation
	dispatch[0x9] = opNOT
	dispatch[0xA] = opLDI
	dispatch[0xB] = opSTI
	dispatch[0xC] = opJMP
	dispatch[0xD] = nil // RES: illegal
	dispatch[0xE] = opLEA
	dispatch[0xF] = opTRAP
}

// Step executes exactly one fetch-decode-execute cycle: fetch the word
// at PC, increment PC (so PC-relative offsets are measured from the
// instruction following the one being decoded), dispatch on the top 4
// bits, and run the matching handler.
func Step(m *machine.Machine) error {
	instr := m.MemRead(m.Reg(machine.PC))
	m.SetReg(machine.PC, m.Reg(machine.PC)+1)

	op := instr >> 12
	h := dispatch[op]
	if h == nil {
		return &IllegalOpcodeError{Instr: instr}
	}
	return h(m, instr)
}

// Run drives the machine from its current state until HALT sets
// running false or Step returns an error (an illegal opcode or a
// *HostIOError from GETC/IN).
func Run(m *machine.Machine) error {
	for m.Running() {
		if err := Step(m); err != nil {
			return err
		}
	}
	return nil
}

func opBR(m *machine.Machine, instr uint16) error {
	nzp := condFlags(instr)
	if nzp&m.Reg(machine.COND) != 0 {
		m.SetReg(machine.PC, m.Reg(machine.PC)+pcOffset9(instr))
	}
	return nil
}

func opADD(m *machine.Machine, instr uint16) error {
	dr := destReg(instr)
	sr1 := m.Reg(srcReg1(instr))
	var operand uint16
	if isImmediate(instr) {
		operand = imm5(instr)
	} else {
		operand = m.Reg(srcReg2(instr))
	}
	m.SetReg(dr, sr1+operand)
	m.UpdateFlags(dr)
	return nil
}

func opAND(m *machine.Machine, instr uint16) error {
	dr := destReg(instr)
	sr1 := m.Reg(srcReg1(instr))
	var operand uint16
	if isImmediate(instr) {
		operand = imm5(instr)
	} else {
		operand = m.Reg(srcReg2(instr))
	}
	m.SetReg(dr, sr1&operand)
	m.UpdateFlags(dr)
	return nil
}

func opNOT(m *machine.Machine, instr uint16) error {
	dr := destReg(instr)
	sr := m.Reg(srcReg1(instr))
	m.SetReg(dr, ^sr)
	m.UpdateFlags(dr)
	return nil
}

func opLD(m *machine.Machine, instr uint16) error {
	dr := destReg(instr)
	addr := m.Reg(machine.PC) + pcOffset9(instr)
	m.SetReg(dr, m.MemRead(addr))
	m.UpdateFlags(dr)
	return nil
}

func opLDI(m *machine.Machine, instr uint16) error {
	dr := destReg(instr)
	addr := m.Reg(machine.PC) + pcOffset9(instr)
	m.SetReg(dr, m.MemRead(m.MemRead(addr)))
	m.UpdateFlags(dr)
	return nil
}

func opLDR(m *machine.Machine, instr uint16) error {
	dr := destReg(instr)
	addr := m.Reg(baseReg(instr)) + offset6(instr)
	m.SetReg(dr, m.MemRead(addr))
	m.UpdateFlags(dr)
	return nil
}

func opLEA(m *machine.Machine, instr uint16) error {
	dr := destReg(instr)
	m.SetReg(dr, m.Reg(machine.PC)+pcOffset9(instr))
	m.UpdateFlags(dr)
	return nil
}

func opST(m *machine.Machine, instr uint16) error {
	sr := srcReg(instr)
	addr := m.Reg(machine.PC) + pcOffset9(instr)
	m.MemWrite(addr, m.Reg(sr))
	return nil
}

func opSTI(m *machine.Machine, instr uint16) error {
	sr := srcReg(instr)
	addr := m.Reg(machine.PC) + pcOffset9(instr)
	m.MemWrite(m.MemRead(addr), m.Reg(sr))
	return nil
}

func opSTR(m *machine.Machine, instr uint16) error {
	sr := srcReg(instr)
	addr := m.Reg(baseReg(instr)) + offset6(instr)
	m.MemWrite(addr, m.Reg(sr))
	return nil
}

func opJMP(m *machine.Machine, instr uint16) error {
	m.SetReg(machine.PC, m.Reg(baseReg(instr)))
	return nil
}

func opJSR(m *machine.Machine, instr uint16) error {
	m.SetReg(machine.R7, m.Reg(machine.PC))
	if (instr>>11)&0x1 != 0 {
		m.SetReg(machine.PC, m.Reg(machine.PC)+pcOffset11(instr))
	} else {
		m.SetReg(machine.PC, m.Reg(baseReg(instr)))
	}
	return nil
}
