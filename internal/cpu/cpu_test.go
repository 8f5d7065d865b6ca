package cpu

import (
	"bytes"
	"testing"

	"github.com/skypartan/lc3-vm/internal/machine"
)

func newTestMachine() (*machine.Machine, *bytes.Buffer) {
	var out bytes.Buffer
	m := machine.New(nil, &out)
	m.Reset()
	return m, &out
}

func load(m *machine.Machine, origin uint16, words ...uint16) {
	m.LoadWords(origin, words)
}

func TestADDImmediate(t *testing.T) {
	m, _ := newTestMachine()
	// ADD R1, R0, #0
	load(m, machine.PCStart, 0x1220)
	if err := Step(m); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := m.Reg(machine.R1); got != 0 {
		t.Errorf("R1 = %#x, want 0", got)
	}
	if got := m.Reg(machine.COND); got != machine.FlagZ {
		t.Errorf("COND = %#x, want FlagZ", got)
	}
}

func TestADDRegisterMode(t *testing.T) {
	m, _ := newTestMachine()
	m.SetReg(machine.R0, 5)
	m.SetReg(machine.R1, 3)
	// ADD R2, R0, R1  -> 0001 010 000 000 001
	load(m, machine.PCStart, 0b0001_010_000_0_00_001)
	if err := Step(m); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := m.Reg(machine.R2); got != 8 {
		t.Errorf("R2 = %d, want 8", got)
	}
}

func TestANDImmediateMatchesSignExtendedOperand(t *testing.T) {
	m, _ := newTestMachine()
	m.SetReg(machine.R0, 0xFFFF)
	// AND R0, R0, #-1 (imm5 = 0b11111)
	load(m, machine.PCStart, 0b0101_000_000_1_11111)
	if err := Step(m); err != nil {
		t.Fatalf("Step: %v", err)
	}
	want := 0xFFFF & machine.SignExtend(0b11111, 5)
	if got := m.Reg(machine.R0); got != want {
		t.Errorf("R0 = %#x, want %#x", got, want)
	}
}

func TestNOT(t *testing.T) {
	m, _ := newTestMachine()
	m.SetReg(machine.R0, 0x00FF)
	// NOT R1, R0
	load(m, machine.PCStart, 0b1001_001_000_111111)
	if err := Step(m); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := m.Reg(machine.R1); got != ^uint16(0x00FF) {
		t.Errorf("R1 = %#x, want %#x", got, ^uint16(0x00FF))
	}
}

func TestSTAndLDRoundTrip(t *testing.T) {
	m, _ := newTestMachine()
	m.SetReg(machine.R0, 0xCAFE)
	// ST R0, #1 ; LD R1, #0 (relative to each instruction's own PC+1)
	load(m, machine.PCStart,
		0b0011_000_000000001, // ST R0, #1 -> writes to PCStart+1+1
		0b0010_001_000000000, // LD R1, #0 -> reads PCStart+1+1+0
	)
	if err := Step(m); err != nil {
		t.Fatalf("ST Step: %v", err)
	}
	if err := Step(m); err != nil {
		t.Fatalf("LD Step: %v", err)
	}
	if got := m.Reg(machine.R1); got != 0xCAFE {
		t.Errorf("R1 = %#x, want 0xCAFE", got)
	}
}

func TestSTIAndLDIRoundTrip(t *testing.T) {
	m, _ := newTestMachine()
	m.SetReg(machine.R0, 0xBEEF)
	pointerAddr := machine.PCStart + 6
	m.MemWrite(pointerAddr, 0x5000)
	// STI R0, #5 ; LDI R1, #4 (both resolve to pointerAddr)
	load(m, machine.PCStart,
		0b1011_000_000000101,
		0b1010_001_000000100,
	)
	if err := Step(m); err != nil {
		t.Fatalf("STI Step: %v", err)
	}
	if err := Step(m); err != nil {
		t.Fatalf("LDI Step: %v", err)
	}
	if got := m.Reg(machine.R1); got != 0xBEEF {
		t.Errorf("R1 = %#x, want 0xBEEF", got)
	}
}

func TestLDRAndSTR(t *testing.T) {
	m, _ := newTestMachine()
	m.SetReg(machine.R2, machine.PCStart+0x10)
	m.SetReg(machine.R0, 0x1357)
	// STR R0, R2, #0
	load(m, machine.PCStart, 0b0111_000_010_000000)
	if err := Step(m); err != nil {
		t.Fatalf("STR Step: %v", err)
	}
	if got := m.MemRead(machine.PCStart + 0x10); got != 0x1357 {
		t.Errorf("memory[R2] = %#x, want 0x1357", got)
	}

	m.SetReg(machine.PC, machine.PCStart)
	// LDR R1, R2, #0
	load(m, machine.PCStart, 0b0110_001_010_000000)
	if err := Step(m); err != nil {
		t.Fatalf("LDR Step: %v", err)
	}
	if got := m.Reg(machine.R1); got != 0x1357 {
		t.Errorf("R1 = %#x, want 0x1357", got)
	}
}

func TestLEA(t *testing.T) {
	m, _ := newTestMachine()
	// LEA R0, #2
	load(m, machine.PCStart, 0b1110_000_000000010)
	if err := Step(m); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := m.Reg(machine.R0); got != machine.PCStart+1+2 {
		t.Errorf("R0 = %#x, want %#x", got, machine.PCStart+1+2)
	}
}

func TestBRNeverBranchesWhenNZPZero(t *testing.T) {
	m, _ := newTestMachine()
	m.SetReg(machine.COND, machine.FlagZ)
	// BR with nzp=000, offset=100
	load(m, machine.PCStart, 0b0000_000_001100100)
	startPC := m.Reg(machine.PC)
	if err := Step(m); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := m.Reg(machine.PC); got != startPC+1 {
		t.Errorf("PC = %#x, want %#x (no branch)", got, startPC+1)
	}
}

func TestBRAlwaysBranchesWhenNZPAllSet(t *testing.T) {
	for _, cond := range []uint16{machine.FlagP, machine.FlagZ, machine.FlagN} {
		m, _ := newTestMachine()
		m.SetReg(machine.COND, cond)
		// BR nzp=111, offset=1
		load(m, machine.PCStart, 0b0000_111_000000001)
		if err := Step(m); err != nil {
			t.Fatalf("Step: %v", err)
		}
		want := machine.PCStart + 1 + 1
		if got := m.Reg(machine.PC); got != want {
			t.Errorf("COND=%#x: PC = %#x, want %#x", cond, got, want)
		}
	}
}

func TestJMPAndRET(t *testing.T) {
	m, _ := newTestMachine()
	m.SetReg(machine.R7, 0x4000)
	// JMP R7 (RET)
	load(m, machine.PCStart, 0b1100_000_111_000000)
	if err := Step(m); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := m.Reg(machine.PC); got != 0x4000 {
		t.Errorf("PC = %#x, want 0x4000", got)
	}
}

func TestJSRSavesR7AndJumps(t *testing.T) {
	m, _ := newTestMachine()
	// JSR #1 (PCoffset11)
	load(m, machine.PCStart, 0b0100_1_00000000001)
	startPC := m.Reg(machine.PC)
	if err := Step(m); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := m.Reg(machine.R7); got != startPC+1 {
		t.Errorf("R7 = %#x, want %#x", got, startPC+1)
	}
	if got := m.Reg(machine.PC); got != startPC+1+1 {
		t.Errorf("PC = %#x, want %#x", got, startPC+1+1)
	}
}

func TestJSRRRegisterMode(t *testing.T) {
	m, _ := newTestMachine()
	m.SetReg(machine.R3, 0x5000)
	// JSRR R3 -> 0100 0 00 011 000000
	load(m, machine.PCStart, 0b0100_0_00_011_000000)
	if err := Step(m); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := m.Reg(machine.PC); got != 0x5000 {
		t.Errorf("PC = %#x, want 0x5000", got)
	}
}

func TestPCWraparoundDuringFetch(t *testing.T) {
	m, _ := newTestMachine()
	m.SetReg(machine.PC, 0xFFFF)
	// AND R0, R0, R0 (non-branching)
	load(m, 0xFFFF, 0b0101_000_000_0_00_000)
	if err := Step(m); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := m.Reg(machine.PC); got != 0 {
		t.Errorf("PC = %#x, want 0 after wraparound", got)
	}
}

func TestIllegalOpcodeRTI(t *testing.T) {
	m, _ := newTestMachine()
	load(m, machine.PCStart, 0x8000)
	err := Step(m)
	var illegal *IllegalOpcodeError
	if err == nil {
		t.Fatal("Step returned nil error for RTI")
	}
	if !asIllegal(err, &illegal) {
		t.Fatalf("error %v is not *IllegalOpcodeError", err)
	}
	if got := illegal.Error(); got == "" {
		t.Error("IllegalOpcodeError.Error() is empty")
	}
}

func TestIllegalOpcodeRES(t *testing.T) {
	m, _ := newTestMachine()
	load(m, machine.PCStart, 0xD000)
	if err := Step(m); err == nil {
		t.Fatal("Step returned nil error for RES")
	}
}

func asIllegal(err error, target **IllegalOpcodeError) bool {
	ie, ok := err.(*IllegalOpcodeError)
	if ok {
		*target = ie
	}
	return ok
}
