//go:build windows

package term

import (
	"os"

	"golang.org/x/term"

	"github.com/skypartan/lc3-vm/internal/machine"
)

var _ machine.KeyboardDevice = (*Adapter)(nil)

// Adapter implements machine.KeyboardDevice over the process's stdin.
// The Windows build has no non-blocking syscall.Read equivalent handy,
// so KeyAvailable degrades to "never ready" and ReadByte falls back to
// a plain blocking read through golang.org/x/term's raw-mode stdin.
type Adapter struct {
	fd       int
	oldState *term.State
	started  bool
}

// New returns an Adapter bound to os.Stdin.
func New() *Adapter {
	return &Adapter{fd: int(os.Stdin.Fd())}
}

// Start switches stdin into raw mode.
func (a *Adapter) Start() error {
	oldState, err := term.MakeRaw(a.fd)
	if err != nil {
		return err
	}
	a.oldState = oldState
	a.started = true
	return nil
}

// Stop restores stdin to its state before Start. Idempotent.
func (a *Adapter) Stop() {
	if a.oldState != nil {
		_ = term.Restore(a.fd, a.oldState)
		a.oldState = nil
	}
	a.started = false
}

// KeyAvailable always reports false on this platform; callers relying
// on the keyboard-status poll see GETC/IN as the only way in.
func (a *Adapter) KeyAvailable() bool {
	return false
}

// ReadByte blocks until one byte is available on stdin.
func (a *Adapter) ReadByte() (byte, error) {
	var buf [1]byte
	n, err := os.Stdin.Read(buf[:])
	if n > 0 {
		return buf[0], nil
	}
	return 0, err
}
