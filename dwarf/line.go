// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"github.com/tsavola/wasmdwarf/internal/errors"
	"github.com/tsavola/wasmdwarf/internal/pan"
	"golang.org/x/xerrors"
)

type fileEntry struct {
	name   []byte
	dir    uint64
	mtime  uint64
	length uint64
}

type lineHeader struct {
	offset        uint32
	version       uint16
	minInstLength uint8
	defaultIsStmt bool
	lineBase      int8
	lineRange     uint8
	opcodeBase    uint8
	stdLengths    []uint8
	dirs          [][]byte
	files         []fileEntry
}

// lineState holds the line number state machine registers.  A row is a copy
// of the state.
type lineState struct {
	addr          uint64
	file          uint64
	line          uint64
	column        uint64
	isa           uint64
	discriminator uint64
	isStmt        bool
	basicBlock    bool
	endSequence   bool
	prologueEnd   bool
	epilogueBegin bool
}

func initialLineState(defaultIsStmt bool) lineState {
	return lineState{
		file:   1,
		line:   1,
		isStmt: defaultIsStmt,
	}
}

// lineOp is a decoded line number program instruction.  Standard and special
// opcodes are in code; extended opcodes have zero code and a non-zero ext.
type lineOp struct {
	code uint8
	ext  uint8
	arg  uint64
	sarg int64
}

// step applies an instruction to the state.  If a row is appended to the
// matrix, it is returned with emit set.
func (s lineState) step(h *lineHeader, op lineOp) (next, row lineState, emit bool) {
	next = s

	switch {
	case op.code >= h.opcodeBase:
		adj := uint64(op.code - h.opcodeBase)
		next.addr += adj / uint64(h.lineRange) * uint64(h.minInstLength)
		next.line = uint64(int64(next.line) + int64(h.lineBase) + int64(adj%uint64(h.lineRange)))
		row, emit = next, true
		next.clearRowFlags()

	case op.code == lnsCopy:
		row, emit = next, true
		next.clearRowFlags()

	case op.code == lnsAdvancePC:
		next.addr += op.arg * uint64(h.minInstLength)

	case op.code == lnsAdvanceLine:
		next.line = uint64(int64(next.line) + op.sarg)

	case op.code == lnsSetFile:
		next.file = op.arg

	case op.code == lnsSetColumn:
		next.column = op.arg

	case op.code == lnsNegateStmt:
		next.isStmt = !next.isStmt

	case op.code == lnsSetBasicBlock:
		next.basicBlock = true

	case op.code == lnsConstAddPC:
		adj := uint64(255 - h.opcodeBase)
		next.addr += adj / uint64(h.lineRange) * uint64(h.minInstLength)

	case op.code == lnsFixedAdvancePC:
		next.addr += op.arg

	case op.code == lnsSetPrologueEnd:
		next.prologueEnd = true

	case op.code == lnsSetEpilogueBegin:
		next.epilogueBegin = true

	case op.code == lnsSetISA:
		next.isa = op.arg

	case op.code == 0:
		switch op.ext {
		case lneEndSequence:
			next.endSequence = true
			row, emit = next, true
			next = initialLineState(h.defaultIsStmt)

		case lneSetAddress:
			next.addr = op.arg

		case lneSetDiscriminator:
			next.discriminator = op.arg
		}
	}

	return
}

func (s *lineState) clearRowFlags() {
	s.basicBlock = false
	s.prologueEnd = false
	s.epilogueBegin = false
	s.discriminator = 0
}

// decodeLineProgram replays a line number program.  The returned sequences
// include their end_sequence rows.  Files defined by the program are appended
// to the header's file list.
func decodeLineProgram(data []byte, offset uint64, unit int) (h *lineHeader, seqs [][]lineState) {
	r := newReader(data, SectionLine, unit)
	if offset >= uint64(len(data)) {
		r.failAt(int64(offset), xerrors.New("line program offset is out of bounds"))
	}
	r.pos = int(offset)

	length := r.u32()
	if length == 0xffffffff {
		pan.Panic(&errors.UnsupportedVersionError{
			Unit:    unit,
			Section: SectionLine,
			Offset:  int64(offset),
			Reason:  "64-bit DWARF",
		})
	}
	if int64(length) > int64(r.end-r.pos) {
		r.failAt(int64(offset), xerrors.Errorf("line program length 0x%x exceeds section size", length))
	}
	end := r.pos + int(length)
	r.end = end

	h = &lineHeader{
		offset:  uint32(offset),
		version: r.u16(),
	}
	if h.version < 2 || h.version > 4 {
		pan.Panic(&errors.UnsupportedVersionError{
			Unit:    unit,
			Section: SectionLine,
			Offset:  int64(offset),
			Version: h.version,
		})
	}

	headerLength := r.u32()
	if int64(headerLength) > int64(r.end-r.pos) {
		r.failf("line program header length 0x%x exceeds program", headerLength)
	}
	programStart := r.pos + int(headerLength)

	h.minInstLength = r.u8()
	if h.version >= 4 {
		if maxOps := r.u8(); maxOps != 1 {
			r.failf("%d operations per instruction", maxOps)
		}
	}
	h.defaultIsStmt = r.u8() != 0
	h.lineBase = int8(r.u8())
	h.lineRange = r.u8()
	h.opcodeBase = r.u8()

	if h.lineRange == 0 {
		r.failf("zero line range")
	}
	if h.opcodeBase == 0 {
		r.failf("zero opcode base")
	}

	h.stdLengths = r.skip(int(h.opcodeBase) - 1)

	for {
		dir := r.cstring()
		if len(dir) == 0 {
			break
		}
		h.dirs = append(h.dirs, dir)
	}

	for {
		name := r.cstring()
		if len(name) == 0 {
			break
		}
		h.files = append(h.files, readFileEntry(r, name))
	}

	r.pos = programStart

	var (
		state = initialLineState(h.defaultIsStmt)
		seq   []lineState
	)

	for !r.done() {
		op := readLineOp(r, h)

		var (
			row  lineState
			emit bool
		)
		state, row, emit = state.step(h, op)
		if emit {
			seq = append(seq, row)
			if row.endSequence {
				seqs = append(seqs, seq)
				seq = nil
			}
		}
	}

	if len(seq) > 0 {
		r.failAt(int64(end), xerrors.New("line sequence is not terminated"))
	}

	return
}

func readFileEntry(r *reader, name []byte) fileEntry {
	return fileEntry{
		name:   name,
		dir:    r.uleb(),
		mtime:  r.uleb(),
		length: r.uleb(),
	}
}

func readLineOp(r *reader, h *lineHeader) (op lineOp) {
	op.code = r.u8()

	switch {
	case op.code >= h.opcodeBase:

	case op.code == 0:
		n := r.uleb()
		if n == 0 || n > uint64(r.end-r.pos) {
			r.failf("extended opcode length %d", n)
		}
		next := r.pos + int(n)

		op.ext = r.u8()
		switch op.ext {
		case lneSetAddress:
			op.arg = r.uint(int(n - 1))

		case lneSetDiscriminator:
			op.arg = r.uleb()

		case lneDefineFile:
			h.files = append(h.files, readFileEntry(r, r.cstring()))
		}

		if r.pos > next {
			r.failf("extended opcode overruns its length")
		}
		r.pos = next

	case op.code == lnsAdvancePC, op.code == lnsSetFile, op.code == lnsSetColumn, op.code == lnsSetISA:
		op.arg = r.uleb()

	case op.code == lnsAdvanceLine:
		op.sarg = r.sleb()

	case op.code == lnsFixedAdvancePC:
		op.arg = uint64(r.u16())

	case op.code <= lnsSetEpilogueBegin:

	default:
		// Unknown standard opcode.
		for i := uint8(0); i < h.stdLengths[op.code-1]; i++ {
			r.uleb()
		}
	}

	return
}
