// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"encoding/binary"

	wbinary "github.com/tsavola/wasmdwarf/binary"
)

// Operand encodings.
const (
	operandNone = iota
	operandU8
	operandU16
	operandU32
	operandU64
	operandUleb
	operandSleb
	operandUlebSleb
	operandUlebUleb
	operandBlock   // Uleb length and bytes.
	operandWasm    // DW_OP_WASM_location.
	operandAddr    // Widened.
	operandBranch  // Signed 2-byte offset, relocated.
	operandUnknown // Rest of the expression is copied as is.
)

func operandKind(op byte) int {
	switch {
	case op == opAddr:
		return operandAddr

	case op == opConst1u, op == opConst1s, op == opPick, op == opDerefSize, op == opXderefSize:
		return operandU8

	case op == opConst2u, op == opConst2s, op == opCall2:
		return operandU16

	case op == opConst4u, op == opConst4s, op == opCall4, op == opCallRef:
		return operandU32

	case op == opConst8u, op == opConst8s:
		return operandU64

	case op == opConstu, op == opPlusUconst, op == opRegx, op == opPiece:
		return operandUleb

	case op == opConsts, op == opFbreg:
		return operandSleb

	case op == opBra, op == opSkip:
		return operandBranch

	case op >= opBreg0 && op <= opBreg31:
		return operandSleb

	case op == opBregx:
		return operandUlebSleb

	case op == opBitPiece:
		return operandUlebUleb

	case op == opImplicitValue, op == opEntryValue, op == opGNUEntryValue:
		return operandBlock

	case op == opWasmLocation:
		return operandWasm

	case op >= 0x12 && op <= 0x27, op >= 0x29 && op <= 0x2e, op >= opLit0 && op < opBreg0,
		op == opNop, op == opPushObjectAddress, op == opFormTLSAddress, op == opCallFrameCFA,
		op == opStackValue, op == opGNUPushTLSAddress:
		return operandNone
	}

	return operandUnknown
}

type exprOp struct {
	pos    int // Input position.
	end    int
	outPos int
	kind   int
}

// widenExpr rewrites a location expression for 8-byte addresses.  DW_OP_addr
// operands are widened and branch offsets are adjusted.  Unknown operations
// and everything after them are copied unchanged.
func widenExpr(r *reader, expr []byte, inAddrSize int) []byte {
	if inAddrSize == addrSize {
		return expr
	}

	var ops []exprOp
	out := 0
	pos := 0

	for pos < len(expr) {
		op := exprOp{pos: pos, outPos: out, kind: operandKind(expr[pos])}
		n := operandLen(expr[pos+1:], op.kind, inAddrSize)
		if n < 0 {
			op.kind = operandUnknown
			n = len(expr) - pos - 1
		}
		if op.kind == operandUnknown {
			n = len(expr) - pos - 1
		}

		op.end = pos + 1 + n
		ops = append(ops, op)

		out += op.end - op.pos
		if op.kind == operandAddr {
			out += addrSize - inAddrSize
		}
		pos = op.end
	}

	if out == len(expr) {
		return expr
	}

	// Maps an input position to output position.
	mapPos := func(p int) (int, bool) {
		for i := range ops {
			switch {
			case ops[i].pos == p:
				return ops[i].outPos, true
			case ops[i].kind == operandUnknown && p > ops[i].pos && p <= ops[i].end:
				return ops[i].outPos + p - ops[i].pos, true
			}
		}
		if p == len(expr) {
			return out, true
		}
		return 0, false
	}

	b := make([]byte, 0, out)

	for _, op := range ops {
		switch op.kind {
		case operandAddr:
			b = append(b, expr[op.pos])
			var x uint64
			if inAddrSize == 4 {
				x = uint64(binary.LittleEndian.Uint32(expr[op.pos+1:]))
			}
			b = binary.LittleEndian.AppendUint64(b, x)

		case operandBranch:
			offset := int(int16(binary.LittleEndian.Uint16(expr[op.pos+1:])))
			target, ok := mapPos(op.end + offset)
			if !ok {
				r.failf("expression branch target is not an operation boundary")
			}
			b = append(b, expr[op.pos])
			b = binary.LittleEndian.AppendUint16(b, uint16(int16(target-(op.outPos+3))))

		default:
			b = append(b, expr[op.pos:op.end]...)
		}
	}

	return b
}

// operandLen returns -1 if the operand is truncated.
func operandLen(b []byte, kind, inAddrSize int) int {
	var n int

	switch kind {
	case operandNone, operandUnknown:
		return 0

	case operandU8:
		n = 1

	case operandU16, operandBranch:
		n = 2

	case operandU32:
		n = 4

	case operandU64:
		n = 8

	case operandAddr:
		n = inAddrSize

	case operandUleb, operandSleb:
		n = lebLen(b)

	case operandUlebSleb, operandUlebUleb:
		n = lebLen(b)
		if n > 0 {
			if m := lebLen(b[n:]); m > 0 {
				n += m
			} else {
				n = -1
			}
		}

	case operandBlock:
		x, m := wbinary.Uleb128(b)
		if m <= 0 || x > uint64(len(b)-m) {
			return -1
		}
		n = m + int(x)

	case operandWasm:
		if len(b) < 1 {
			return -1
		}
		if b[0] == 3 {
			n = 1 + 4
		} else if m := lebLen(b[1:]); m > 0 {
			n = 1 + m
		} else {
			return -1
		}
	}

	if n <= 0 || n > len(b) {
		return -1
	}
	return n
}

func lebLen(b []byte) int {
	for i, x := range b {
		if x&0x80 == 0 {
			return i + 1
		}
	}
	return -1
}
