// Copyright (c) 2021 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package binary implements WebAssembly and DWARF integer decoding and
// encoding.
//
// WebAssembly sections are decoded through the Reader interface, which is
// overly specific as a performance optimization; see
// https://savo.la/sneaky-go-interface-conversion.html for background.  DWARF
// sections are already resident in memory, so their LEB128 helpers operate on
// byte slices.
package binary

import (
	"encoding/binary"
	"io"
)

// Reader is appropriate for decoding WebAssembly modules.
type Reader interface {
	io.Reader
	io.ByteScanner
}

// Uint32 reads a little-endian value.  The number of bytes read is also
// returned (4 if successful).
func Uint32(r Reader) (uint32, int, error) {
	b := make([]byte, 4)

	n, err := io.ReadFull(r, b)
	if err != nil {
		return 0, n, err
	}

	return binary.LittleEndian.Uint32(b), n, nil
}

// Varuint32 reads variably encoded value.  The number of bytes read is also
// returned (up to 5).
func Varuint32(r Reader) (uint32, int, error) {
	var x uint32
	var n int
	var shift uint

	for n < 5 {
		b, err := r.ReadByte()
		if err != nil {
			return x, n, err
		}
		n++

		if b < 0x80 {
			if n == 5 && b > 0xf {
				return 0, n, moduleError("varuint32 value is too large")
			}
			return x | uint32(b)<<shift, n, nil
		}

		x |= (uint32(b) & 0x7f) << shift
		shift += 7
	}

	return 0, n, moduleError("varuint32 encoding is too long")
}

// Varuint64 reads variably encoded value.  The number of bytes read is also
// returned (up to 10).
func Varuint64(r Reader) (uint64, int, error) {
	var x uint64
	var n int
	var shift uint

	for n < 10 {
		b, err := r.ReadByte()
		if err != nil {
			return x, n, err
		}
		n++

		if b < 0x80 {
			if n == 10 && b > 1 {
				return 0, n, moduleError("varuint64 value is too large")
			}
			return x | uint64(b)<<shift, n, nil
		}

		x |= (uint64(b) & 0x7f) << shift
		shift += 7
	}

	return 0, n, moduleError("varuint64 encoding is too long")
}

type moduleError string

func (e moduleError) Error() string       { return string(e) }
func (e moduleError) PublicError() string { return string(e) }
func (e moduleError) ModuleError() bool   { return true }
