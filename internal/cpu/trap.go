package cpu

import (
	"fmt"
	"io"

	"github.com/skypartan/lc3-vm/internal/machine"
)

// Trap vectors for the six service routines this implementation
// provides. Any other vector is a no-op after the PC/R7 save.
const (
	trapGETC  uint16 = 0x20
	trapOUT   uint16 = 0x21
	trapPUTS  uint16 = 0x22
	trapIN    uint16 = 0x23
	trapPUTSP uint16 = 0x24
	trapHALT  uint16 = 0x25
)

// flusher is implemented by writers (e.g. *bufio.Writer) that buffer
// output and need an explicit flush. Traps call it after every write.
type flusher interface {
	Flush() error
}

func opTRAP(m *machine.Machine, instr uint16) error {
	// Saves R7 then resumes at the instruction after TRAP once the
	// service routine returns, without an intermediate jump through a
	// trap-vector table; no service-routine table is mapped into
	// memory here, so that jump would have nothing to land on.
	ret := m.Reg(machine.PC)
	m.SetReg(machine.R7, ret)

	var err error
	switch trapVector(instr) {
	case trapGETC:
		err = trapGetc(m)
	case trapOUT:
		trapOut(m)
	case trapPUTS:
		trapPuts(m)
	case trapIN:
		err = trapIn(m)
	case trapPUTSP:
		trapPutsp(m)
	case trapHALT:
		trapHaltRoutine(m)
	}

	m.SetReg(machine.PC, ret)
	return err
}

func flush(w io.Writer) {
	if f, ok := w.(flusher); ok {
		_ = f.Flush()
	}
}

// trapGetc reads one byte from the keyboard device into R0, unechoed.
// A host I/O failure is reported as *HostIOError rather than silently
// leaving R0 untouched.
func trapGetc(m *machine.Machine) error {
	b, err := readByte(m)
	if err != nil {
		return &HostIOError{Err: err}
	}
	m.SetReg(machine.R0, uint16(b))
	return nil
}

// trapOut writes the low byte of R0 to the console.
func trapOut(m *machine.Machine) {
	out := m.Out()
	_, _ = out.Write([]byte{byte(m.Reg(machine.R0))})
	flush(out)
}

// trapPuts emits the NUL-terminated, one-character-per-word string
// starting at memory[R0].
func trapPuts(m *machine.Machine) {
	out := m.Out()
	addr := m.Reg(machine.R0)
	for {
		w := m.MemRead(addr)
		if w == 0 {
			break
		}
		_, _ = out.Write([]byte{byte(w)})
		addr++
	}
	flush(out)
}

// trapIn prompts, reads and echoes one byte, and stores it in R0. A
// host I/O failure is reported as *HostIOError after the prompt has
// already been flushed.
func trapIn(m *machine.Machine) error {
	out := m.Out()
	_, _ = fmt.Fprint(out, "Enter a character: ")
	b, err := readByte(m)
	if err != nil {
		flush(out)
		return &HostIOError{Err: err}
	}
	_, _ = out.Write([]byte{b})
	flush(out)
	m.SetReg(machine.R0, uint16(b))
	return nil
}

// trapPutsp emits two characters per word (low byte, then high byte)
// starting at memory[R0], stopping at a zero word. A zero high byte
// does not get emitted, allowing an odd-length string to end mid-word.
func trapPutsp(m *machine.Machine) {
	out := m.Out()
	addr := m.Reg(machine.R0)
	for {
		w := m.MemRead(addr)
		if w == 0 {
			break
		}
		lo := byte(w & 0xFF)
		hi := byte(w >> 8)
		_, _ = out.Write([]byte{lo})
		if hi != 0 {
			_, _ = out.Write([]byte{hi})
		}
		addr++
	}
	flush(out)
}

// trapHaltRoutine prints the halt banner and stops the driver loop.
func trapHaltRoutine(m *machine.Machine) {
	out := m.Out()
	_, _ = fmt.Fprint(out, "HALT\n")
	flush(out)
	m.Halt()
}

func readByte(m *machine.Machine) (byte, error) {
	dev := m.Keyboard()
	if dev == nil {
		return 0, io.EOF
	}
	return dev.ReadByte()
}
