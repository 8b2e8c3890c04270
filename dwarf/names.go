// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"sort"

	"github.com/tsavola/wasmdwarf/internal"
	"github.com/tsavola/wasmdwarf/internal/pan"
)

const (
	atAbstractOrigin attr = 0x31
	atSpecification  attr = 0x47
)

// FuncNames collects subprogram names by WebAssembly DW_AT_low_pc (code
// section offset).  Linkage names are preferred over plain names.  Names are
// looked up also via DW_AT_specification and DW_AT_abstract_origin within a
// unit.  The first subprogram at an address wins.
func FuncNames(debug map[string][]byte, versions *VersionPolicy) (names map[uint32]string, err error) {
	if internal.DontPanic() {
		defer func() {
			if x := transcodeError(pan.Error(recover()), -1); x != nil {
				names, err = nil, x
			}
		}()
	}

	names = make(map[uint32]string)

	info := debug[SectionInfo]
	if len(info) == 0 {
		return
	}

	abbrevs := make(map[uint32]*abbrevTable)

	for _, h := range parseUnitHeaders(info, versions) {
		t := abbrevs[h.abbrevOffset]
		if t == nil {
			t = parseAbbrevTable(debug[SectionAbbrev], h.abbrevOffset, h.index)
			abbrevs[h.abbrevOffset] = t
		}

		u := decodeUnit(info, debug[SectionStr], h, t)

		for i := range u.entries {
			e := &u.entries[i]
			if e.null() || e.abbrev.tag != tagSubprogram {
				continue
			}

			low, found := u.lookup(e, atLowPC)
			if !found || low.form != formAddr || low.val > 0xffffffff {
				continue
			}
			if _, found := names[uint32(low.val)]; found {
				continue
			}

			if name := u.subprogramName(e, 0); name != "" {
				names[uint32(low.val)] = name
			}
		}
	}

	return
}

func (u *unit) subprogramName(e *entry, depth int) string {
	for _, at := range []attr{atLinkageName, atMIPSLinkageName, atName} {
		if v, found := u.lookup(e, at); found && (v.form == formString || v.form == formStrp) && len(v.data) > 0 {
			return string(v.data)
		}
	}

	if depth < 4 {
		for _, at := range []attr{atSpecification, atAbstractOrigin} {
			if target := u.refEntry(e, at); target != nil {
				if name := u.subprogramName(target, depth+1); name != "" {
					return name
				}
			}
		}
	}

	return ""
}

// refEntry follows a unit-local reference.
func (u *unit) refEntry(e *entry, at attr) *entry {
	v, found := u.lookup(e, at)
	if !found || !v.form.localRef() {
		return nil
	}

	target := u.offset + uint32(v.val)
	i := sort.Search(len(u.entries), func(i int) bool {
		return u.entries[i].offset >= target
	})
	if i < len(u.entries) && u.entries[i].offset == target && !u.entries[i].null() {
		return &u.entries[i]
	}
	return nil
}
