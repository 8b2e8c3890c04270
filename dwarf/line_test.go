// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsavola/wasmdwarf/buffer"
)

func TestLineStep(t *testing.T) {
	h := &lineHeader{
		version:       4,
		minInstLength: 1,
		defaultIsStmt: true,
		lineBase:      -5,
		lineRange:     14,
		opcodeBase:    13,
	}

	s := initialLineState(true)
	s.addr = 0x100

	// Address +3, line +2.
	next, row, emit := s.step(h, lineOp{code: 13 + 7 + 3*14})
	require.True(t, emit)
	assert.Equal(t, uint64(0x103), row.addr)
	assert.Equal(t, uint64(3), row.line)
	assert.Equal(t, row.addr, next.addr)

	next, _, emit = next.step(h, lineOp{code: lnsNegateStmt})
	assert.False(t, emit)
	assert.False(t, next.isStmt)

	next, _, emit = next.step(h, lineOp{code: lnsConstAddPC})
	assert.False(t, emit)
	assert.Equal(t, uint64(0x103+17), next.addr)

	next, row, emit = next.step(h, lineOp{ext: lneEndSequence})
	require.True(t, emit)
	assert.True(t, row.endSequence)
	assert.Equal(t, initialLineState(true), next)
}

func TestLineEncoderRoundTrip(t *testing.T) {
	rows := []lineState{
		{addr: 0x1000, file: 1, line: 1, isStmt: true},
		{addr: 0x1000, file: 1, line: 2, column: 4, isStmt: true},
		{addr: 0x1001, file: 2, line: 1, isStmt: false},
		{addr: 0x1014, file: 2, line: 9, column: 1, isStmt: true, prologueEnd: true},
		{addr: 0x1100, file: 1, line: 1009, isStmt: true, discriminator: 3},
		{addr: 0x1111, file: 1, line: 1001, isStmt: true, basicBlock: true},
		{addr: 0x1111, file: 1, line: 1000, isStmt: true, epilogueBegin: true},
	}

	for _, version := range []uint16{2, 3, 4} {
		h := &lineHeader{
			version: version,
			dirs:    [][]byte{[]byte("/src")},
			files: []fileEntry{
				{name: []byte("a.c"), dir: 1},
				{name: []byte("b.h"), dir: 1},
			},
		}

		b := buffer.NewLimited(nil, 0)
		enc := newLineEncoder(b, h)
		enc.sequence(rows[0])
		for _, row := range rows[1:] {
			enc.row(row)
		}
		enc.endSequence(0x1200)
		enc.finish()

		decoded, seqs := decodeLineProgram(b.Bytes(), 0, 0)
		assert.Equal(t, version, decoded.version)
		assert.Equal(t, outOpcodeBase(version), decoded.opcodeBase)
		assert.Equal(t, int8(outLineBase), decoded.lineBase)
		assert.Equal(t, h.files, decoded.files)
		require.Len(t, seqs, 1)

		seq := seqs[0]
		require.Len(t, seq, len(rows)+1)

		for i, expect := range rows {
			if version < 3 {
				expect.prologueEnd = false
				expect.epilogueBegin = false
			}
			if version < 4 {
				expect.discriminator = 0
			}
			assert.Equal(t, expect, seq[i], "version %d, row %d", version, i)
		}

		end := seq[len(rows)]
		assert.True(t, end.endSequence)
		assert.Equal(t, uint64(0x1200), end.addr)
		assert.Equal(t, uint64(1000), end.line)
	}
}

func TestDecodeLineProgramDefineFile(t *testing.T) {
	h := &lineHeader{
		version: 3,
		files:   []fileEntry{{name: []byte("a.c")}},
	}

	b := buffer.NewLimited(nil, 0)
	enc := newLineEncoder(b, h)
	enc.sequence(lineState{addr: 0x10, file: 1, line: 1, isStmt: true})

	// DW_LNE_define_file "b.c", dir 0, mtime 0, length 0.
	b.PutByte(0)
	b.PutUleb128(1 + 4 + 3)
	b.PutByte(lneDefineFile)
	b.PutString("b.c")
	b.PutBytes([]byte{0, 0, 0})

	enc.row(lineState{addr: 0x12, file: 2, line: 1, isStmt: true})
	enc.endSequence(0x20)
	enc.finish()

	decoded, seqs := decodeLineProgram(b.Bytes(), 0, 0)
	require.Len(t, decoded.files, 2)
	assert.Equal(t, "b.c", string(decoded.files[1].name))
	require.Len(t, seqs, 1)
	assert.Equal(t, uint64(2), seqs[0][1].file)
}
