package machine

// MemRead returns the word at addr. Reading KBSR is side-effectful: it
// re-probes the keyboard device on every call, which is essential for
// correctness since a program polls KBSR in a tight loop waiting for
// the ready bit.
func (m *Machine) MemRead(addr uint16) uint16 {
	if addr == KBSR {
		m.pollKeyboard()
	}
	return m.mem[addr]
}

// MemWrite stores val at addr unconditionally.
func (m *Machine) MemWrite(addr, val uint16) {
	m.mem[addr] = val
}

// pollKeyboard implements the memory-mapped keyboard protocol: if a
// key is available, set the ready bit in KBSR and latch the byte into
// KBDR; otherwise clear KBSR. No-op (KBSR stays clear) if the machine
// has no keyboard device attached.
func (m *Machine) pollKeyboard() {
	if m.keyboard == nil || !m.keyboard.KeyAvailable() {
		m.mem[KBSR] = 0
		return
	}
	b, err := m.keyboard.ReadByte()
	if err != nil {
		m.mem[KBSR] = 0
		return
	}
	m.mem[KBSR] = 0x8000
	m.mem[KBDR] = uint16(b)
}
