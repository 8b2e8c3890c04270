// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"encoding/json"
	"os"

	"github.com/tsavola/wasmdwarf"
	"github.com/tsavola/wasmdwarf/addrmap"
	"golang.org/x/xerrors"
)

// mapFile is the JSON representation of an address map:
//
//	{
//	  "funcs": [
//	    {
//	      "index": 1,
//	      "start": 4096,
//	      "code": "554889e5...",
//	      "offsets": [[0, 4096], [3, 4100]]
//	    }
//	  ]
//	}
//
// Offsets are [wasm body offset, native address] pairs.  Native length is the
// length of the code.
type mapFile struct {
	Funcs []mapFunc `json:"funcs"`
}

type mapFunc struct {
	Index   uint32      `json:"index"`
	Start   uint64      `json:"start"`
	Code    string      `json:"code"`
	Offsets [][2]uint64 `json:"offsets"`
}

func loadMap(filename string) (m *mapFile, err error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return
	}

	m = new(mapFile)
	if err = json.Unmarshal(data, m); err != nil {
		err = xerrors.Errorf("%s: %w", filename, err)
	}
	return
}

func (m *mapFile) decode() (funcs addrmap.Map, code wasmdwarf.CodeMap, err error) {
	var list []addrmap.Func
	code = make(wasmdwarf.CodeMap, len(m.Funcs))

	for _, mf := range m.Funcs {
		b, decodeErr := hex.DecodeString(mf.Code)
		if decodeErr != nil {
			err = xerrors.Errorf("function %d code: %w", mf.Index, decodeErr)
			return
		}

		f := addrmap.Func{
			Index:        mf.Index,
			NativeStart:  mf.Start,
			NativeLength: uint32(len(b)),
		}
		for _, pair := range mf.Offsets {
			if pair[0] > 0xffffffff {
				err = xerrors.Errorf("function %d: wasm offset 0x%x is too large", mf.Index, pair[0])
				return
			}
			f.Offsets = append(f.Offsets, addrmap.Mapping{
				WasmOffset: uint32(pair[0]),
				NativeAddr: pair[1],
			})
		}

		list = append(list, f)
		code[mf.Index] = b
	}

	funcs = addrmap.NewMap(list...)
	err = funcs.Validate()
	return
}
