// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"sort"

	"github.com/tsavola/wasmdwarf/addrmap"
	"github.com/tsavola/wasmdwarf/buffer"
	"golang.org/x/xerrors"
)

type fixupKind uint8

const (
	fixupStr fixupKind = iota
	fixupRefAddr
	fixupLine
	fixupRanges
	fixupLoc
)

// fixup is a value in a unit's .debug_info output which can be resolved only
// when units are merged.
type fixup struct {
	kind   fixupKind
	size   uint8
	pos    uint32 // Position in unit output.
	origin uint32 // Position in input .debug_info.
	value  uint64 // Unit-local offset or input DIE offset.
	str    string
}

type dieOffset struct {
	old uint32 // Position in input .debug_info.
	new uint32 // Position in unit output.
}

// unitOutput is the result of transcoding a unit.  Unit-local offsets are
// resolved during merge.
type unitOutput struct {
	index  int
	abbrev *abbrevTable
	info   []byte
	line   []byte
	ranges []byte
	loc    []byte
	fixups []fixup
	dies   []dieOffset
}

type localRef struct {
	pos    uint32
	origin uint32
	target uint32 // Input DIE offset.
}

type unitEncoder struct {
	tc  *transcoder
	u   *unit
	res *addrmap.Resolver

	info   *buffer.Limited
	line   *buffer.Limited
	ranges *buffer.Limited
	loc    *buffer.Limited

	fixups    []fixup
	localRefs []localRef

	lineOffsets   map[uint64]uint32
	rangesOffsets map[uint64]uint32
	locOffsets    map[uint64]uint32
}

func newUnitEncoder(tc *transcoder, u *unit) *unitEncoder {
	return &unitEncoder{
		tc:            tc,
		u:             u,
		res:           tc.res,
		info:          buffer.NewLimited(nil, tc.maxSize),
		line:          buffer.NewLimited(nil, tc.maxSize),
		ranges:        buffer.NewLimited(nil, tc.maxSize),
		loc:           buffer.NewLimited(nil, tc.maxSize),
		lineOffsets:   make(map[uint64]uint32),
		rangesOffsets: make(map[uint64]uint32),
		locOffsets:    make(map[uint64]uint32),
	}
}

func (e *unitEncoder) failAt(section string, offset uint32, cause error) {
	r := newReader(nil, section, e.u.index)
	r.failAt(int64(offset), cause)
}

func (e *unitEncoder) encode() *unitOutput {
	u := e.u
	b := e.info

	b.PutUint32(0) // Unit length.
	b.PutUint16(u.version)
	b.PutUint32(0) // Abbreviation table offset.
	b.PutByte(addrSize)

	dies := make([]dieOffset, len(u.entries))

	for i := range u.entries {
		ent := &u.entries[i]
		dies[i] = dieOffset{ent.offset, uint32(b.Len())}

		if ent.null() {
			b.PutByte(0)
			continue
		}

		b.PutUleb128(ent.abbrev.code)

		pc := e.pcRange(ent)
		for j, v := range u.attrs(ent) {
			e.putAttr(&ent.abbrev.attrs[j], v, pc)
		}
	}

	buffer.SetUint(b.Bytes(), 4, uint64(b.Len()-4))

	for _, ref := range e.localRefs {
		i := sort.Search(len(dies), func(i int) bool {
			return dies[i].old >= ref.target
		})
		if i == len(dies) || dies[i].old != ref.target {
			e.failAt(SectionInfo, ref.origin, xerrors.Errorf("reference to 0x%x is not an entry of the unit", ref.target))
		}
		buffer.SetUint(b.Bytes()[ref.pos:], 4, uint64(dies[i].new))
	}

	debugf("unit %d: %d entries, %d info bytes, %d line bytes", u.index, len(u.entries), b.Len(), e.line.Len())

	return &unitOutput{
		index:  u.index,
		abbrev: u.abbrevs,
		info:   b.Bytes(),
		line:   e.line.Bytes(),
		ranges: e.ranges.Bytes(),
		loc:    e.loc.Bytes(),
		fixups: e.fixups,
		dies:   dies,
	}
}

// pcRange is the native code range of an entry with DW_AT_low_pc and
// DW_AT_high_pc.
type pcRange struct {
	pair bool
	low  uint64
	high uint64
}

func (e *unitEncoder) pcRange(ent *entry) (pc pcRange) {
	low, found := e.u.lookup(ent, atLowPC)
	if !found || low.form != formAddr {
		return
	}
	high, found := e.u.lookup(ent, atHighPC)
	if !found {
		return
	}

	pc.pair = true

	end := high.val
	if high.form != formAddr {
		end += low.val
	}

	nativeLow, nativeHigh, ok, err := e.res.ResolveRange(low.val, end)
	if err != nil {
		e.failAt(SectionInfo, low.pos, err)
	}
	if ok {
		pc.low = nativeLow
		pc.high = nativeHigh
	}
	return
}

func (e *unitEncoder) resolve(v attrValue) uint64 {
	loc, err := e.res.Resolve(v.val)
	if err != nil {
		e.failAt(SectionInfo, v.pos, err)
	}
	return loc.Addr
}

func (e *unitEncoder) resolveEnd(v attrValue) uint64 {
	loc, err := e.res.ResolveEnd(v.val)
	if err != nil {
		e.failAt(SectionInfo, v.pos, err)
	}
	return loc.Addr
}

func offsetForm(f form) bool {
	return f == formSecOffset || f == formData4 || f == formData8
}

func (e *unitEncoder) loclistForm(f form) bool {
	return f == formSecOffset || (e.u.version < 4 && (f == formData4 || f == formData8))
}

func (e *unitEncoder) putAttr(spec *attrSpec, v attrValue, pc pcRange) {
	b := e.info

	outForm := spec.outForm
	if spec.form == formIndirect {
		outForm = normalizeForm(spec.attr, v.form)
		b.PutUleb128(uint64(outForm))
	}

	switch {
	case v.form == formAddr:
		var x uint64

		switch {
		case spec.attr == atLowPC && pc.pair:
			x = pc.low
		case spec.attr == atHighPC && pc.pair:
			x = pc.high
		case spec.attr == atHighPC:
			x = e.resolveEnd(v)
		default:
			x = e.resolve(v)
		}

		b.PutUint64(x)

	case spec.attr == atHighPC && v.form.constant() && pc.pair:
		b.PutUint(formSize(outForm), pc.high-pc.low)

	case spec.attr == atStmtList && offsetForm(v.form):
		e.putOffset(fixupLine, outForm, v, e.lineProgram(v))

	case spec.attr == atRanges && offsetForm(v.form):
		e.putOffset(fixupRanges, outForm, v, e.rangeList(v))

	case spec.attr.locationClass() && e.loclistForm(v.form):
		e.putOffset(fixupLoc, outForm, v, e.locList(v))

	case v.form == formExprloc || (spec.attr.locationClass() && v.form.block()):
		r := newReader(nil, SectionInfo, e.u.index)
		r.pos = int(v.pos)
		expr := widenExpr(r, v.data, int(e.u.addrSize))
		b.PutUleb128(uint64(len(expr)))
		b.PutBytes(expr)

	case v.form == formRefSig8:
		e.failAt(SectionInfo, v.pos, errTypeSignature)

	default:
		e.putValue(outForm, v)
	}
}

func formSize(f form) int {
	switch f {
	case formData1, formFlag:
		return 1
	case formData2:
		return 2
	case formData8:
		return 8
	default:
		return 4
	}
}

func (e *unitEncoder) putOffset(kind fixupKind, f form, v attrValue, offset uint32) {
	size := formSize(f)

	e.fixups = append(e.fixups, fixup{
		kind:   kind,
		size:   uint8(size),
		pos:    uint32(e.info.Len()),
		origin: v.pos,
		value:  uint64(offset),
	})
	e.info.PutUint(size, 0)
}

func (e *unitEncoder) putValue(f form, v attrValue) {
	b := e.info

	switch f {
	case formData1, formFlag:
		b.PutByte(byte(v.val))

	case formData2:
		b.PutUint16(uint16(v.val))

	case formData4, formSecOffset:
		b.PutUint32(uint32(v.val))

	case formData8:
		b.PutUint64(v.val)

	case formSdata:
		b.PutSleb128(int64(v.val))

	case formUdata:
		b.PutUleb128(v.val)

	case formString:
		b.PutString(string(v.data))

	case formStrp:
		e.fixups = append(e.fixups, fixup{
			kind:   fixupStr,
			size:   4,
			pos:    uint32(b.Len()),
			origin: v.pos,
			str:    string(v.data),
		})
		b.PutUint32(0)

	case formRef4:
		e.localRefs = append(e.localRefs, localRef{
			pos:    uint32(b.Len()),
			origin: v.pos,
			target: e.u.offset + uint32(v.val),
		})
		b.PutUint32(0)

	case formRefAddr:
		size := 4
		if e.u.version <= 2 {
			size = addrSize
		}
		e.fixups = append(e.fixups, fixup{
			kind:   fixupRefAddr,
			size:   uint8(size),
			pos:    uint32(b.Len()),
			origin: v.pos,
			value:  v.val,
		})
		b.PutUint(size, 0)

	case formBlock1:
		b.PutByte(uint8(len(v.data)))
		b.PutBytes(v.data)

	case formBlock2:
		b.PutUint16(uint16(len(v.data)))
		b.PutBytes(v.data)

	case formBlock4:
		b.PutUint32(uint32(len(v.data)))
		b.PutBytes(v.data)

	case formBlock, formExprloc:
		b.PutUleb128(uint64(len(v.data)))
		b.PutBytes(v.data)

	case formFlagPresent:

	default:
		e.failAt(SectionInfo, v.pos, errForm(f))
	}
}

func (e *unitEncoder) lineProgram(v attrValue) uint32 {
	if offset, found := e.lineOffsets[v.val]; found {
		return offset
	}

	offset := uint32(e.line.Len())
	e.lineOffsets[v.val] = offset

	h, seqs := decodeLineProgram(e.tc.line, v.val, e.u.index)
	e.encodeLines(h, seqs)
	return offset
}

// encodeLines resolves rows and writes a sequence per function.  Rows without
// native code are dropped and inexact rows are not statements.
func (e *unitEncoder) encodeLines(h *lineHeader, seqs [][]lineState) {
	var (
		groups = make(map[uint32][]lineState)
		funcs  = make(map[uint32]*addrmap.Func)
		order  []uint32
	)

	for _, seq := range seqs {
		for _, row := range seq {
			if row.endSequence {
				continue
			}

			loc, err := e.res.Resolve(row.addr)
			if err != nil {
				e.failAt(SectionLine, h.offset, err)
			}

			switch loc.Kind {
			case addrmap.NoCode:
				continue

			case addrmap.Inexact:
				row.isStmt = false
			}

			row.addr = loc.Addr

			if funcs[loc.Func] == nil {
				funcs[loc.Func], _ = e.res.Func(loc.Func)
				order = append(order, loc.Func)
			}
			groups[loc.Func] = append(groups[loc.Func], row)
		}
	}

	sort.Slice(order, func(i, j int) bool {
		fi := funcs[order[i]]
		fj := funcs[order[j]]
		if fi.NativeStart != fj.NativeStart {
			return fi.NativeStart < fj.NativeStart
		}
		return order[i] < order[j]
	})

	enc := newLineEncoder(e.line, h)

	for _, index := range order {
		rows := groups[index]
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].addr < rows[j].addr
		})

		enc.sequence(rows[0])
		for _, row := range rows[1:] {
			enc.row(row)
		}
		enc.endSequence(funcs[index].NativeEnd())
	}

	enc.finish()
}

func (e *unitEncoder) rangeList(v attrValue) uint32 {
	if offset, found := e.rangesOffsets[v.val]; found {
		return offset
	}

	offset := uint32(e.ranges.Len())
	e.rangesOffsets[v.val] = offset

	rewriteRanges(e.ranges, e.tc.ranges, v.val, e.u, e.res)
	return offset
}

func (e *unitEncoder) locList(v attrValue) uint32 {
	if offset, found := e.locOffsets[v.val]; found {
		return offset
	}

	offset := uint32(e.loc.Len())
	e.locOffsets[v.val] = offset

	rewriteLoc(e.loc, e.tc.loc, v.val, e.u, e.res)
	return offset
}
