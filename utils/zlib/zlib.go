// Package zlib provides abstractions on top of compress/flate to work with
// Discord's zlib-stream transport compression.
//
// The gateway compresses the whole connection as one zlib stream. Every
// message ends with a sync flush, so each complete message ends with Suffix,
// and back-references may point into the output of earlier messages.
package zlib

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// Suffix is the trailing marker of a sync-flushed deflate block.
var Suffix = [4]byte{'\x00', '\x00', '\xff', '\xff'}

// ErrPartial is returned by Flush if the buffer does not end with Suffix.
var ErrPartial = errors.New("only partial payload in buffer")

// windowSize is the maximum distance of a deflate back-reference.
const windowSize = 32 << 10

// Inflator accumulates compressed frames and inflates them once a complete
// message is buffered. An Inflator is bound to one connection and must be
// thrown away on reconnect. It is not thread-safe.
type Inflator struct {
	wbuf bytes.Buffer // compressed bytes of the message being accumulated
	rbuf bytes.Buffer // inflated bytes

	flate  io.ReadCloser
	window []byte // trailing inflated output shared across messages
	header bool   // true once the zlib header was consumed
}

func NewInflator() *Inflator {
	return &Inflator{}
}

// Write appends a compressed fragment.
func (i *Inflator) Write(p []byte) (n int, err error) {
	return i.wbuf.Write(p)
}

// Buffered returns the number of compressed bytes waiting for a flush.
func (i *Inflator) Buffered() int {
	return i.wbuf.Len()
}

// CanFlush returns if Flush() should be called.
func (i *Inflator) CanFlush() bool {
	if i.wbuf.Len() < 4 {
		return false
	}
	p := i.wbuf.Bytes()
	return bytes.Equal(p[len(p)-4:], Suffix[:])
}

// Flush inflates the buffered message and returns a copy of the output.
func (i *Inflator) Flush() ([]byte, error) {
	if !i.CanFlush() {
		return nil, ErrPartial
	}

	defer i.wbuf.Reset()
	defer i.rbuf.Reset()

	src := i.wbuf.Bytes()

	// Only the first message of the stream has the zlib header.
	if !i.header {
		if err := verifyHeader(src); err != nil {
			return nil, err
		}
		src = src[2:]
		i.header = true
	}

	// The previous message ended on a block boundary, so decoding restarts
	// from a fresh block with the earlier output preloaded as the dictionary.
	r := bytes.NewReader(src)

	if i.flate == nil {
		i.flate = flate.NewReaderDict(r, i.window)
	} else if err := i.flate.(flate.Resetter).Reset(r, i.window); err != nil {
		return nil, errors.Wrap(err, "failed to reset FLATE reader")
	}

	// The stream never ends, so running out of input after the sync flush is
	// the expected way for a message to finish.
	if _, err := i.rbuf.ReadFrom(i.flate); err != nil && err != io.ErrUnexpectedEOF {
		return nil, errors.Wrap(err, "failed to read from FLATE reader")
	}

	out := bytecopy(i.rbuf.Bytes())
	i.remember(out)

	return out, nil
}

// Reset clears all state, as if the Inflator was just created.
func (i *Inflator) Reset() {
	i.wbuf.Reset()
	i.rbuf.Reset()
	i.window = nil
	i.header = false
	if i.flate != nil {
		i.flate.Close()
		i.flate = nil
	}
}

func (i *Inflator) remember(out []byte) {
	i.window = append(i.window, out...)
	if len(i.window) > windowSize*2 {
		i.window = bytecopy(i.window[len(i.window)-windowSize:])
	}
}

// https://golang.org/src/compress/zlib/reader.go#L35
const zlibDeflate = 8

func verifyHeader(p []byte) error {
	if len(p) < 2 {
		return zlib.ErrHeader
	}
	h := uint(p[0])<<8 | uint(p[1])
	if (p[0]&0x0f != zlibDeflate) || (h%31 != 0) {
		return zlib.ErrHeader
	}
	return nil
}

func bytecopy(p []byte) []byte {
	cpy := make([]byte, len(p))
	copy(cpy, p)
	return cpy
}
