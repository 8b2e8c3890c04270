// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buffer

import (
	"encoding/binary"
	"math"

	wbinary "github.com/tsavola/wasmdwarf/binary"
	"github.com/tsavola/wasmdwarf/internal/pan"
)

// Limited is a growable buffer with a maximum size.  Methods panic (via pan)
// with ErrSizeLimit if the maximum size would be exceeded; the panic is meant
// to be recovered at an API boundary.
type Limited struct {
	buf     []byte
	maxSize int
}

// NewLimited buffer with a maximum size.  Non-positive maxSize means no
// limit.  The slice must be empty.
func NewLimited(b []byte, maxSize int) *Limited {
	if len(b) != 0 {
		panic("slice must be empty")
	}
	if maxSize <= 0 {
		maxSize = math.MaxInt
	}
	return &Limited{b, maxSize}
}

// Len doesn't panic.
func (l *Limited) Len() int {
	return len(l.buf)
}

// Bytes doesn't panic.
func (l *Limited) Bytes() []byte {
	return l.buf
}

// Extend panics with ErrSizeLimit if n bytes cannot be appended to the buffer.
func (l *Limited) Extend(n int) []byte {
	offset := len(l.buf)

	if n < 0 || n > l.maxSize-offset {
		pan.Panic(ErrSizeLimit)
	}

	if size := offset + n; size <= cap(l.buf) {
		l.buf = l.buf[:size]
	} else {
		l.grow(n)
	}

	return l.buf[offset:]
}

func (l *Limited) grow(addLen int) {
	newLen := len(l.buf) + addLen

	newCap := cap(l.buf)*2 + addLen
	if newCap < cap(l.buf) { // Handle overflow
		newCap = newLen
	}
	if newCap > l.maxSize {
		newCap = l.maxSize
	}

	newBuf := make([]byte, newLen, newCap)
	copy(newBuf, l.buf)
	l.buf = newBuf
}

func (l *Limited) PutByte(value byte) {
	l.Extend(1)[0] = value
}

func (l *Limited) PutBytes(b []byte) {
	copy(l.Extend(len(b)), b)
}

// PutString appends a NUL-terminated string.
func (l *Limited) PutString(s string) {
	b := l.Extend(len(s) + 1)
	copy(b, s)
	b[len(s)] = 0
}

func (l *Limited) PutUint16(x uint16) {
	binary.LittleEndian.PutUint16(l.Extend(2), x)
}

func (l *Limited) PutUint32(x uint32) {
	binary.LittleEndian.PutUint32(l.Extend(4), x)
}

func (l *Limited) PutUint64(x uint64) {
	binary.LittleEndian.PutUint64(l.Extend(8), x)
}

// PutUint appends a value of the given byte size (1, 2, 4 or 8).
func (l *Limited) PutUint(size int, x uint64) {
	SetUint(l.Extend(size), size, x)
}

func (l *Limited) PutUleb128(x uint64) {
	var tmp [binary.MaxVarintLen64]byte
	l.PutBytes(wbinary.AppendUleb128(tmp[:0], x))
}

func (l *Limited) PutSleb128(x int64) {
	var tmp [binary.MaxVarintLen64]byte
	l.PutBytes(wbinary.AppendSleb128(tmp[:0], x))
}

// SetUint overwrites a value of the given byte size at the start of b.
func SetUint(b []byte, size int, x uint64) {
	switch size {
	case 1:
		b[0] = uint8(x)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(x))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(x))
	case 8:
		binary.LittleEndian.PutUint64(b, x)
	default:
		panic(size)
	}
}
