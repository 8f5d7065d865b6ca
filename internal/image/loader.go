/*
 * lc3-vm - Object image loader.
 *
 * An LC-3 object file is a sequence of big-endian 16-bit words with no
 * header beyond the leading origin word. Load places the body
 * contiguously starting at that origin, truncating silently if the
 * body would run past the end of addressable memory.
 */

package image

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/skypartan/lc3-vm/internal/machine"
)

// OpenError reports that an image path could not be opened for
// reading. It wraps the underlying error for inspection with errors.As.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to load image: %s", e.Path)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Target is the subset of *machine.Machine the loader needs.
type Target interface {
	LoadWords(origin uint16, words []uint16)
}

// LoadFile opens path and loads its contents into m. It returns
// *OpenError if the file cannot be opened; a malformed (empty) file
// is treated as a zero-word load, not an error.
func LoadFile(m Target, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &OpenError{Path: path, Err: err}
	}
	defer f.Close()
	return Load(m, f)
}

// Load reads an object image from r and places its body into m.
func Load(m Target, r io.Reader) error {
	br := bufio.NewReader(r)

	var originBuf [2]byte
	if _, err := io.ReadFull(br, originBuf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		return err
	}
	origin := binary.BigEndian.Uint16(originBuf[:])

	maxWords := int(machine.MemSize) - int(origin)
	words := make([]uint16, 0, 64)

	var wordBuf [2]byte
	for len(words) < maxWords {
		if _, err := io.ReadFull(br, wordBuf[:]); err != nil {
			break
		}
		words = append(words, binary.BigEndian.Uint16(wordBuf[:]))
	}

	m.LoadWords(origin, words)
	return nil
}
