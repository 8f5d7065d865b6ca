//go:build !windows

/*
 * lc3-vm - Host terminal adapter.
 *
 * Puts the controlling TTY into raw mode (no line buffering, no echo)
 * for the duration of a run, and gives the machine's memory bus and
 * TRAP handlers the two primitives spec.md requires of this
 * collaborator: a non-blocking key-available probe, and a blocking
 * single-byte read. Restoration on every exit path is the caller's
 * responsibility (Stop must be deferred).
 */

package term

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/skypartan/lc3-vm/internal/machine"
)

var _ machine.KeyboardDevice = (*Adapter)(nil)

// Adapter implements machine.KeyboardDevice over the process's stdin.
type Adapter struct {
	fd          int
	oldState    *term.State
	nonblockSet bool
	started     bool
	pending     []byte
}

// New returns an Adapter bound to os.Stdin. Call Start before using it
// as a machine.KeyboardDevice, and Stop when the run ends.
func New() *Adapter {
	return &Adapter{fd: int(os.Stdin.Fd())}
}

// Start switches stdin into raw, non-blocking mode. It is safe to call
// Stop even if Start failed partway through.
func (a *Adapter) Start() error {
	oldState, err := term.MakeRaw(a.fd)
	if err != nil {
		return err
	}
	a.oldState = oldState

	if err := syscall.SetNonblock(a.fd, true); err != nil {
		_ = term.Restore(a.fd, a.oldState)
		a.oldState = nil
		return err
	}
	a.nonblockSet = true
	a.started = true
	return nil
}

// Stop restores stdin to its state before Start. Idempotent.
func (a *Adapter) Stop() {
	if a.nonblockSet {
		_ = syscall.SetNonblock(a.fd, false)
		a.nonblockSet = false
	}
	if a.oldState != nil {
		_ = term.Restore(a.fd, a.oldState)
		a.oldState = nil
	}
	a.started = false
}

// KeyAvailable reports, without blocking, whether a byte can be read
// from stdin right now.
func (a *Adapter) KeyAvailable() bool {
	if !a.started {
		return false
	}
	var buf [1]byte
	n, err := syscall.Read(a.fd, buf[:])
	if n > 0 {
		a.pending = append(a.pending, buf[0])
		return true
	}
	_ = err
	return false
}

// ReadByte blocks until one byte is available on stdin and returns it.
// A byte buffered by a prior KeyAvailable probe is returned first.
func (a *Adapter) ReadByte() (byte, error) {
	if len(a.pending) > 0 {
		b := a.pending[0]
		a.pending = a.pending[1:]
		return b, nil
	}
	var buf [1]byte
	for {
		n, err := syscall.Read(a.fd, buf[:])
		if n > 0 {
			return buf[0], nil
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
			time.Sleep(2 * time.Millisecond)
			continue
		}
		if err != nil {
			return 0, err
		}
	}
}
