// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	wbinary "github.com/tsavola/wasmdwarf/binary"
	"golang.org/x/xerrors"
)

type attrSpec struct {
	attr     attr
	form     form
	implicit int64 // Value of DW_FORM_implicit_const.
	outForm  form
}

type abbrev struct {
	code     uint64
	tag      tag
	children bool
	attrs    []attrSpec
}

// abbrevTable is parsed from .debug_abbrev and normalized.  It is immutable
// after parsing.
type abbrevTable struct {
	list    []*abbrev
	byCode  map[uint64]*abbrev
	encoded []byte // Normalized table.
}

func parseAbbrevTable(data []byte, offset uint32, unit int) *abbrevTable {
	r := newReader(data, SectionAbbrev, unit)
	if int(offset) > len(data) {
		r.failf("abbreviation table offset 0x%x is out of bounds", offset)
	}
	r.pos = int(offset)

	t := &abbrevTable{
		byCode: make(map[uint64]*abbrev),
	}

	for {
		code := r.uleb()
		if code == 0 {
			break
		}

		pos := r.pos
		a := &abbrev{
			code:     code,
			tag:      tag(r.uleb()),
			children: r.u8() != 0,
		}

		for {
			at := attr(r.uleb())
			f := form(r.uleb())
			if at == 0 && f == 0 {
				break
			}

			spec := attrSpec{attr: at, form: f}
			if f == formImplicitConst {
				spec.implicit = r.sleb()
			}
			spec.outForm = normalizeForm(at, f)
			a.attrs = append(a.attrs, spec)
		}

		if _, dup := t.byCode[code]; dup {
			r.failAt(int64(pos), xerrors.Errorf("duplicate abbreviation code %d", code))
		}
		t.byCode[code] = a
		t.list = append(t.list, a)
	}

	t.encoded = t.encode()
	return t
}

// normalizeForm chooses the output form of an attribute.  Local references
// become 4 bytes wide so that they can be patched after layout.
func normalizeForm(at attr, f form) form {
	switch {
	case f.localRef():
		return formRef4

	case at == atHighPC && f.constant():
		if f == formData8 {
			return formData8
		}
		return formData4

	case at.locationClass() && f.block():
		return formBlock

	case f == formImplicitConst:
		return formSdata
	}

	return f
}

func (t *abbrevTable) encode() []byte {
	var b []byte

	for _, a := range t.list {
		b = wbinary.AppendUleb128(b, a.code)
		b = wbinary.AppendUleb128(b, uint64(a.tag))
		if a.children {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
		for _, spec := range a.attrs {
			b = wbinary.AppendUleb128(b, uint64(spec.attr))
			b = wbinary.AppendUleb128(b, uint64(spec.outForm))
		}
		b = append(b, 0, 0)
	}

	return append(b, 0)
}
