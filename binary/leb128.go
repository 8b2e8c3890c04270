// Copyright (c) 2021 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package binary

import (
	"encoding/binary"
)

// Uleb128 decodes an unsigned value from the start of b.  The number of bytes
// consumed is returned; it is 0 if b is truncated and negative if the value
// overflows 64 bits.
func Uleb128(b []byte) (uint64, int) {
	return binary.Uvarint(b)
}

// Sleb128 decodes a signed value from the start of b.  The number of bytes
// consumed is returned; it is 0 if b is truncated and negative if the encoding
// is longer than 10 bytes.
func Sleb128(b []byte) (int64, int) {
	var x int64
	var shift uint

	for i, c := range b {
		if i == binary.MaxVarintLen64 {
			return 0, -(i + 1)
		}

		x |= int64(c&0x7f) << shift
		shift += 7

		if c&0x80 == 0 {
			if shift < 64 && c&0x40 != 0 {
				x |= -1 << shift
			}
			return x, i + 1
		}
	}

	return 0, 0
}

// AppendUleb128 encodes an unsigned value.
func AppendUleb128(b []byte, x uint64) []byte {
	return binary.AppendUvarint(b, x)
}

// AppendSleb128 encodes a signed value.
func AppendSleb128(b []byte, x int64) []byte {
	for {
		c := byte(x & 0x7f)
		x >>= 7

		if (x == 0 && c&0x40 == 0) || (x == -1 && c&0x40 != 0) {
			return append(b, c)
		}

		b = append(b, c|0x80)
	}
}

// Uleb128Len is the encoded size of an unsigned value.
func Uleb128Len(x uint64) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}
