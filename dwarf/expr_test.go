// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWidenExpr(t *testing.T) {
	for name, c := range map[string]struct {
		in  []byte
		out []byte
	}{
		"addr": {
			[]byte{opAddr, 0x00, 0x04, 0x00, 0x00},
			[]byte{opAddr, 0x00, 0x04, 0x00, 0x00, 0, 0, 0, 0},
		},
		"branches": {
			[]byte{
				opAddr, 1, 2, 3, 4,
				opBra, 4, 0,
				opLit0,
				opSkip, 5, 0,
				opAddr, 5, 6, 7, 8,
				opStackValue,
			},
			[]byte{
				opAddr, 1, 2, 3, 4, 0, 0, 0, 0,
				opBra, 4, 0,
				opLit0,
				opSkip, 9, 0,
				opAddr, 5, 6, 7, 8, 0, 0, 0, 0,
				opStackValue,
			},
		},
		"backward": {
			[]byte{
				opLit0,
				opAddr, 1, 0, 0, 0,
				opSkip, 0xf7, 0xff, // -9
			},
			[]byte{
				opLit0,
				opAddr, 1, 0, 0, 0, 0, 0, 0, 0,
				opSkip, 0xf3, 0xff, // -13
			},
		},
		"unknown": {
			[]byte{opAddr, 1, 0, 0, 0, 0xfe, opAddr, 2},
			[]byte{opAddr, 1, 0, 0, 0, 0, 0, 0, 0, 0xfe, opAddr, 2},
		},
		"wasm location": {
			[]byte{opWasmLocation, 0x00, 0x05, opStackValue},
			[]byte{opWasmLocation, 0x00, 0x05, opStackValue},
		},
		"fbreg": {
			[]byte{opFbreg, 0x7c},
			[]byte{opFbreg, 0x7c},
		},
	} {
		t.Run(name, func(t *testing.T) {
			r := newReader(nil, SectionInfo, 0)
			assert.Equal(t, c.out, widenExpr(r, c.in, 4))
		})
	}
}

func TestWidenExprWideInput(t *testing.T) {
	in := []byte{opAddr, 1, 2, 3, 4, 5, 6, 7, 8}
	assert.Equal(t, in, widenExpr(newReader(nil, SectionInfo, 0), in, 8))
}
