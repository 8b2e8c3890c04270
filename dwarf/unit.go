// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"github.com/tsavola/wasmdwarf/internal/errors"
	"github.com/tsavola/wasmdwarf/internal/pan"
)

const unitHeaderSize = 11 // 32-bit DWARF 2 to 4.

type unitHeader struct {
	index        int
	offset       uint32 // Position in .debug_info.
	end          uint32
	version      uint16
	abbrevOffset uint32
	addrSize     uint8
}

func (h *unitHeader) refAddrSize() int {
	if h.version <= 2 {
		return int(h.addrSize)
	}
	return 4
}

// parseUnitHeaders walks .debug_info.  Panics with UnsupportedVersionError if
// a unit is not allowed by the policy.
func parseUnitHeaders(info []byte, policy *VersionPolicy) []unitHeader {
	var headers []unitHeader

	for pos := 0; pos < len(info); {
		index := len(headers)
		r := newReader(info, SectionInfo, index)
		r.pos = pos

		length := r.u32()
		switch {
		case length == 0xffffffff:
			pan.Panic(&errors.UnsupportedVersionError{
				Unit:    index,
				Section: SectionInfo,
				Offset:  int64(pos),
				Reason:  "64-bit DWARF",
			})

		case length >= 0xfffffff0:
			r.failAt(int64(pos), errReservedLength)

		case int64(length) > int64(len(info)-r.pos):
			r.failf("unit length 0x%x exceeds section size", length)

		case length < unitHeaderSize-4:
			r.failf("unit length 0x%x is too short", length)
		}

		end := r.pos + int(length)

		h := unitHeader{
			index:   index,
			offset:  uint32(pos),
			end:     uint32(end),
			version: r.u16(),
		}

		if !policy.Allows(h.version) {
			pan.Panic(&errors.UnsupportedVersionError{
				Unit:    index,
				Section: SectionInfo,
				Offset:  int64(pos),
				Version: h.version,
			})
		}

		h.abbrevOffset = r.u32()
		h.addrSize = r.u8()

		switch h.addrSize {
		case 4, 8:
		default:
			r.failAt(int64(pos), errAddrSize(h.addrSize))
		}

		headers = append(headers, h)
		pos = end
	}

	return headers
}

type attrValue struct {
	form form   // Actual form (DW_FORM_indirect is resolved).
	val  uint64 // Integer, address, reference or offset.
	data []byte // Block, expression or string.
	pos  uint32 // Position in .debug_info.
}

// entry is a debugging information entry or a null entry which terminates a
// sibling chain.
type entry struct {
	offset uint32 // Position in .debug_info.
	abbrev *abbrev
	first  int32 // Index of the first attribute value in unit arena.
}

func (e *entry) null() bool {
	return e.abbrev == nil
}

// unit is the arena of a compilation unit.  Entries are in preorder.
type unit struct {
	unitHeader
	abbrevs *abbrevTable
	entries []entry
	values  []attrValue
}

func (u *unit) attrs(e *entry) []attrValue {
	if e.null() {
		return nil
	}
	return u.values[e.first : int(e.first)+len(e.abbrev.attrs)]
}

// lookup an attribute of an entry.
func (u *unit) lookup(e *entry, at attr) (v attrValue, found bool) {
	if e.null() {
		return
	}
	for i, spec := range e.abbrev.attrs {
		if spec.attr == at {
			return u.values[int(e.first)+i], true
		}
	}
	return
}

// baseAddr is the WebAssembly base address of location and range lists.
func (u *unit) baseAddr() uint64 {
	if len(u.entries) > 0 {
		if v, found := u.lookup(&u.entries[0], atLowPC); found && v.form == formAddr {
			return v.val
		}
	}
	return 0
}

func decodeUnit(info, str []byte, h unitHeader, t *abbrevTable) *unit {
	u := &unit{
		unitHeader: h,
		abbrevs:    t,
	}

	r := newReader(info, SectionInfo, h.index)
	r.pos = int(h.offset) + unitHeaderSize
	r.end = int(h.end)

	for !r.done() {
		pos := r.pos
		code := r.uleb()
		if code == 0 {
			u.entries = append(u.entries, entry{offset: uint32(pos)})
			continue
		}

		a := t.byCode[code]
		if a == nil {
			r.failAt(int64(pos), errAbbrevCode(code))
		}

		u.entries = append(u.entries, entry{
			offset: uint32(pos),
			abbrev: a,
			first:  int32(len(u.values)),
		})

		for i := range a.attrs {
			u.values = append(u.values, readValue(r, str, &h, &a.attrs[i], a.attrs[i].form))
		}
	}

	return u
}

func readValue(r *reader, str []byte, h *unitHeader, spec *attrSpec, f form) (v attrValue) {
	v.form = f
	v.pos = uint32(r.pos)

	switch f {
	case formAddr:
		v.val = r.uint(int(h.addrSize))

	case formBlock1:
		v.data = r.skip(int(r.u8()))

	case formBlock2:
		v.data = r.skip(int(r.u16()))

	case formBlock4:
		v.data = r.skip(int(r.u32()))

	case formBlock, formExprloc:
		v.data = r.skip(blockLen(r, r.uleb()))

	case formData1, formRef1, formFlag:
		v.val = uint64(r.u8())

	case formData2, formRef2:
		v.val = uint64(r.u16())

	case formData4, formRef4, formSecOffset:
		v.val = uint64(r.u32())

	case formData8, formRef8, formRefSig8:
		v.val = r.u64()

	case formSdata:
		v.val = uint64(r.sleb())

	case formUdata, formRefUdata:
		v.val = r.uleb()

	case formString:
		v.data = r.cstring()

	case formStrp:
		v.val = uint64(r.u32())
		v.data = lookupString(str, v.val, r.unit)

	case formRefAddr:
		v.val = r.uint(h.refAddrSize())

	case formFlagPresent:
		v.val = 1

	case formImplicitConst:
		v.val = uint64(spec.implicit)

	case formIndirect:
		actual := form(r.uleb())
		if actual == formIndirect || actual == formImplicitConst {
			r.failAt(int64(v.pos), errForm(actual))
		}
		return readValue(r, str, h, spec, actual)

	default:
		r.failAt(int64(v.pos), errForm(f))
	}

	return
}

func blockLen(r *reader, n uint64) int {
	if n > uint64(r.end-r.pos) {
		r.failf("block length 0x%x exceeds unit", n)
	}
	return int(n)
}

func lookupString(str []byte, offset uint64, unit int) []byte {
	r := newReader(str, SectionStr, unit)
	if offset >= uint64(len(str)) {
		r.failAt(int64(offset), errStrOffset)
	}
	r.pos = int(offset)
	return r.cstring()
}
