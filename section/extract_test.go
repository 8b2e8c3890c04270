// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package section_test

import (
	"bytes"
	"testing"

	"github.com/tsavola/wasmdwarf/errors"
	"github.com/tsavola/wasmdwarf/internal/wasmtest"
	"github.com/tsavola/wasmdwarf/section"
	"golang.org/x/xerrors"
)

func TestExtract(t *testing.T) {
	dwarf := &wasmtest.DWARF{
		Units: []wasmtest.Unit{{
			Name:  "a.c",
			Low:   2,
			High:  9,
			Files: []string{"a.c"},
			Funcs: []wasmtest.Func{{Name: "f", Low: 2, High: 9}},
		}},
	}

	m := &wasmtest.Module{
		Imports: []string{"print"},
		Bodies:  [][]byte{wasmtest.Body(7), wasmtest.Body(2)},
		Exports: map[string]uint32{"start": 2, "also": 2},
		Names:   map[uint32]string{1: "f"},
		Custom:  append(dwarf.Custom(), wasmtest.Custom{Name: "other", Data: []byte{1, 2, 3}}),
	}

	mod, err := section.Extract(m.Bytes())
	if err != nil {
		t.Fatal(err)
	}

	if mod.NumImportFuncs != 1 {
		t.Errorf("imports: %d", mod.NumImportFuncs)
	}

	starts := m.BodyStarts()
	if len(mod.FuncBodies) != 2 {
		t.Fatalf("bodies: %v", mod.FuncBodies)
	}
	for i, r := range mod.FuncBodies {
		if r.Offset != int64(starts[i]) || r.Length != int64(len(m.Bodies[i])) {
			t.Errorf("body %d: %v", i, r)
		}
	}
	if starts[0] != 2 || starts[1] != 10 {
		t.Errorf("body starts: %v", starts)
	}

	if mod.FuncIndex(1) != 2 {
		t.Error(mod.FuncIndex(1))
	}

	if s := mod.FuncNames[1]; s != "f" {
		t.Errorf("name: %q", s)
	}
	if s := mod.ExportNames[2]; s != "also" {
		t.Errorf("export name: %q", s)
	}

	expect := dwarf.Sections()
	if len(mod.Debug) != len(expect) {
		t.Errorf("debug sections: %d", len(mod.Debug))
	}
	for name, data := range expect {
		if !bytes.Equal(mod.Debug[name], data) {
			t.Errorf("%s differs", name)
		}
	}
	if _, found := mod.Debug["other"]; found {
		t.Error("non-debug custom section collected")
	}

	code := mod.Sections[section.Code]
	if code.Length == 0 || code.End() > int64(len(m.Bytes())) {
		t.Errorf("code section: %v", code)
	}
}

func TestExtractNoDebug(t *testing.T) {
	m := &wasmtest.Module{Bodies: [][]byte{wasmtest.Body(2)}}

	mod, err := section.Extract(m.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if mod.Debug == nil || len(mod.Debug) != 0 {
		t.Errorf("debug: %v", mod.Debug)
	}
}

func TestExtractMalformedNameSection(t *testing.T) {
	m := &wasmtest.Module{
		Bodies: [][]byte{wasmtest.Body(2)},
		Custom: []wasmtest.Custom{{Name: "name", Data: []byte{1, 100, 1}}},
	}

	mod, err := section.Extract(m.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(mod.FuncNames) != 0 {
		t.Errorf("names: %v", mod.FuncNames)
	}
}

func TestExtractMalformed(t *testing.T) {
	good := (&wasmtest.Module{Bodies: [][]byte{wasmtest.Body(4)}}).Bytes()

	for name, data := range map[string][]byte{
		"empty":     nil,
		"magic":     []byte("\x00wasm\x01\x00\x00\x00"),
		"version":   []byte("\x00asm\x02\x00\x00\x00"),
		"truncated": good[:len(good)-2],
		"oversized": append(append([]byte{}, good[:8]...), 1, 100, 0),
		"unknown":   append(append([]byte{}, good...), 99, 0),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := section.Extract(data)
			if err == nil {
				t.Fatal("no error")
			}

			var e *errors.ModuleError
			if !xerrors.As(err, &e) {
				t.Fatalf("%T: %v", err, err)
			}
			if !e.ModuleError() {
				t.Error(e)
			}
			t.Log(err)
		})
	}
}
