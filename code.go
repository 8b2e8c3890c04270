// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasmdwarf

import (
	"github.com/tsavola/wasmdwarf/addrmap"
)

// CodeSource provides the native code of functions.
type CodeSource interface {
	FuncCode(index uint32) ([]byte, bool)
}

// CodeMap implements CodeSource.
type CodeMap map[uint32][]byte

func (m CodeMap) FuncCode(index uint32) (code []byte, found bool) {
	code, found = m[index]
	return
}

// TextCode implements CodeSource by slicing a contiguous text section which
// is located at Addr.  Function boundaries come from the address map.
type TextCode struct {
	Addr  uint64
	Text  []byte
	Funcs addrmap.Provider
}

func (t *TextCode) FuncCode(index uint32) ([]byte, bool) {
	f, found := t.Funcs.Func(index)
	if !found || f.NativeStart < t.Addr || f.NativeEnd()-t.Addr > uint64(len(t.Text)) {
		return nil, false
	}
	return t.Text[f.NativeStart-t.Addr : f.NativeEnd()-t.Addr], true
}
