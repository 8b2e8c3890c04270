// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	wbinary "github.com/tsavola/wasmdwarf/binary"
	"github.com/tsavola/wasmdwarf/buffer"
)

// lineEncoder writes a line number program for 8-byte addresses.
type lineEncoder struct {
	b          *buffer.Limited
	start      int
	version    uint16
	opcodeBase uint8
	state      lineState
	inSequence bool
}

func newLineEncoder(b *buffer.Limited, h *lineHeader) *lineEncoder {
	e := &lineEncoder{
		b:          b,
		start:      b.Len(),
		version:    h.version,
		opcodeBase: outOpcodeBase(h.version),
	}

	b.PutUint32(0) // Unit length.
	b.PutUint16(h.version)
	headerLengthPos := b.Len()
	b.PutUint32(0)
	headerStart := b.Len()

	b.PutByte(1) // Minimum instruction length.
	if h.version >= 4 {
		b.PutByte(1) // Maximum operations per instruction.
	}
	b.PutByte(1) // Default is_stmt.
	b.PutByte(256 + outLineBase)
	b.PutByte(outLineRange)
	b.PutByte(e.opcodeBase)
	b.PutBytes(standardOpcodeLengths[:e.opcodeBase-1])

	for _, dir := range h.dirs {
		b.PutString(string(dir))
	}
	b.PutByte(0)

	for _, f := range h.files {
		b.PutString(string(f.name))
		b.PutUleb128(f.dir)
		b.PutUleb128(f.mtime)
		b.PutUleb128(f.length)
	}
	b.PutByte(0)

	buffer.SetUint(b.Bytes()[headerLengthPos:], 4, uint64(b.Len()-headerStart))
	return e
}

// finish patches the unit length.
func (e *lineEncoder) finish() {
	buffer.SetUint(e.b.Bytes()[e.start:], 4, uint64(e.b.Len()-e.start-4))
}

// sequence starts a new sequence at the row's address, and emits the row.
func (e *lineEncoder) sequence(row lineState) {
	e.state = initialLineState(true)
	e.state.addr = row.addr
	e.inSequence = true

	e.extended(lneSetAddress, 1+addrSize)
	e.b.PutUint64(row.addr)

	e.row(row)
}

func (e *lineEncoder) extended(op uint8, length uint64) {
	e.b.PutByte(0)
	e.b.PutUleb128(length)
	e.b.PutByte(op)
}

// row appends a row.  Its address must not be lower than the previous row's.
func (e *lineEncoder) row(row lineState) {
	s := &e.state

	if row.file != s.file {
		e.b.PutByte(lnsSetFile)
		e.b.PutUleb128(row.file)
		s.file = row.file
	}

	if row.column != s.column {
		e.b.PutByte(lnsSetColumn)
		e.b.PutUleb128(row.column)
		s.column = row.column
	}

	if row.isStmt != s.isStmt {
		e.b.PutByte(lnsNegateStmt)
		s.isStmt = row.isStmt
	}

	if row.basicBlock {
		e.b.PutByte(lnsSetBasicBlock)
	}

	if e.version >= 3 {
		if row.prologueEnd {
			e.b.PutByte(lnsSetPrologueEnd)
		}
		if row.epilogueBegin {
			e.b.PutByte(lnsSetEpilogueBegin)
		}
		if row.isa != s.isa {
			e.b.PutByte(lnsSetISA)
			e.b.PutUleb128(row.isa)
			s.isa = row.isa
		}
	}

	if e.version >= 4 && row.discriminator != 0 {
		e.extended(lneSetDiscriminator, 1+uint64(wbinary.Uleb128Len(row.discriminator)))
		e.b.PutUleb128(row.discriminator)
	}

	e.advance(row.addr-s.addr, int64(row.line)-int64(s.line))
	s.addr = row.addr
	s.line = row.line
}

// advance the address and line, and append a row.
func (e *lineEncoder) advance(addrDelta uint64, lineDelta int64) {
	if lineDelta < outLineBase || lineDelta >= outLineBase+outLineRange {
		e.b.PutByte(lnsAdvanceLine)
		e.b.PutSleb128(lineDelta)
		lineDelta = 0
	}

	if addrDelta == 0 && lineDelta == 0 {
		e.b.PutByte(lnsCopy)
		return
	}

	opcode := uint64(lineDelta-outLineBase) + uint64(e.opcodeBase)
	maxAddrDelta := (255 - opcode) / outLineRange

	if addrDelta <= maxAddrDelta {
		e.b.PutByte(byte(opcode + addrDelta*outLineRange))
		return
	}

	constAddrDelta := (255 - uint64(e.opcodeBase)) / outLineRange

	if addrDelta >= constAddrDelta && addrDelta-constAddrDelta <= maxAddrDelta {
		e.b.PutByte(lnsConstAddPC)
		e.b.PutByte(byte(opcode + (addrDelta-constAddrDelta)*outLineRange))
		return
	}

	e.b.PutByte(lnsAdvancePC)
	e.b.PutUleb128(addrDelta)
	e.b.PutByte(byte(opcode))
}

// endSequence at an address which is not lower than the last row's.
func (e *lineEncoder) endSequence(addr uint64) {
	if delta := addr - e.state.addr; delta > 0 {
		e.b.PutByte(lnsAdvancePC)
		e.b.PutUleb128(delta)
	}

	e.extended(lneEndSequence, 1)
	e.inSequence = false
}
