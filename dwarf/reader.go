// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/tsavola/wasmdwarf/internal/errors"
	"github.com/tsavola/wasmdwarf/internal/pan"
	"golang.org/x/xerrors"
)

// reader is a cursor over a debug section.  Decoding failures panic with
// TranscodeError.
type reader struct {
	data    []byte
	pos     int
	end     int
	section string
	unit    int
}

func newReader(data []byte, section string, unit int) *reader {
	return &reader{data: data, end: len(data), section: section, unit: unit}
}

// sub reader for the section range [pos, end).
func (r *reader) sub(pos, end int) *reader {
	if pos < 0 || end < pos || end > len(r.data) {
		r.failAt(int64(pos), io.ErrUnexpectedEOF)
	}
	return &reader{r.data, pos, end, r.section, r.unit}
}

func (r *reader) failAt(offset int64, cause error) {
	pan.Panic(&errors.TranscodeError{
		Unit:    r.unit,
		Section: r.section,
		Offset:  offset,
		Cause:   cause,
	})
}

func (r *reader) failf(format string, args ...interface{}) {
	r.failAt(int64(r.pos), xerrors.Errorf(format, args...))
}

func (r *reader) done() bool {
	return r.pos >= r.end
}

func (r *reader) skip(n int) []byte {
	if n < 0 || n > r.end-r.pos {
		r.failAt(int64(r.pos), io.ErrUnexpectedEOF)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u8() uint8 {
	return r.skip(1)[0]
}

func (r *reader) u16() uint16 {
	return binary.LittleEndian.Uint16(r.skip(2))
}

func (r *reader) u32() uint32 {
	return binary.LittleEndian.Uint32(r.skip(4))
}

func (r *reader) u64() uint64 {
	return binary.LittleEndian.Uint64(r.skip(8))
}

func (r *reader) uint(size int) uint64 {
	switch size {
	case 1:
		return uint64(r.u8())
	case 2:
		return uint64(r.u16())
	case 4:
		return uint64(r.u32())
	case 8:
		return r.u64()
	}

	r.failf("unsupported integer size: %d", size)
	return 0
}

func (r *reader) uleb() uint64 {
	var x uint64
	var shift uint

	for {
		b := r.u8()
		if shift < 64 {
			x |= uint64(b&0x7f) << shift
		}
		shift += 7
		if b&0x80 == 0 {
			return x
		}
	}
}

func (r *reader) sleb() int64 {
	var x int64
	var shift uint

	for {
		b := r.u8()
		if shift < 64 {
			x |= int64(b&0x7f) << shift
		}
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				x |= -1 << shift
			}
			return x
		}
	}
}

// cstring returns a NUL-terminated string without the terminator.
func (r *reader) cstring() []byte {
	i := bytes.IndexByte(r.data[r.pos:r.end], 0)
	if i < 0 {
		r.failAt(int64(r.pos), xerrors.New("unterminated string"))
	}
	s := r.data[r.pos : r.pos+i]
	r.pos += i + 1
	return s
}
