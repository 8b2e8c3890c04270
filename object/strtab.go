// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

// StringTable of NUL-terminated names.  Offset zero is the empty string.
type StringTable struct {
	data    []byte
	offsets map[string]uint32
}

func (t *StringTable) Add(s string) uint32 {
	if t.data == nil {
		t.data = []byte{0}
		t.offsets = map[string]uint32{"": 0}
	}

	if offset, found := t.offsets[s]; found {
		return offset
	}

	offset := uint32(len(t.data))
	t.data = append(append(t.data, s...), 0)
	t.offsets[s] = offset
	return offset
}

func (t *StringTable) Bytes() []byte {
	if t.data == nil {
		return []byte{0}
	}
	return t.data
}
