// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"bytes"
	"testing"

	"github.com/tsavola/wasmdwarf/internal/errors"
	"github.com/tsavola/wasmdwarf/symtab"
	"golang.org/x/xerrors"
)

func testObject() *Object {
	return &Object{
		Target: Target{ArchAMD64, FormatELF},
		Symbols: []symtab.Symbol{
			{Name: "f", Addr: 0x1000, Size: 4, Func: 0},
			{Name: "g", Addr: 0x1008, Size: 2, Func: 1},
		},
		Code: []Code{
			{Func: 1, Addr: 0x1008, Bytes: []byte{0x90, 0xc3}},
			{Func: 0, Addr: 0x1000, Bytes: []byte{0x55, 0x90, 0x5d, 0xc3}},
		},
	}
}

func TestText(t *testing.T) {
	text, err := testObject().Text()
	if err != nil {
		t.Fatal(err)
	}

	if text.Addr != 0x1000 {
		t.Errorf("address: 0x%x", text.Addr)
	}

	expect := []byte{0x55, 0x90, 0x5d, 0xc3, 0xcc, 0xcc, 0xcc, 0xcc, 0x90, 0xc3}
	if !bytes.Equal(text.Data, expect) {
		t.Errorf("text: %x", text.Data)
	}

	if text.End() != 0x100a {
		t.Errorf("end: 0x%x", text.End())
	}
}

func TestTextErrors(t *testing.T) {
	for name, modify := range map[string]func(*Object){
		"missing code": func(o *Object) {
			o.Code = o.Code[:1]
		},
		"size mismatch": func(o *Object) {
			o.Symbols[1].Size = 3
		},
		"overlap": func(o *Object) {
			o.Code[1].Addr = 0x1007
			o.Symbols[0].Addr = 0x1007
			o.Symbols = []symtab.Symbol{o.Symbols[1], o.Symbols[0]}
		},
		"gap": func(o *Object) {
			o.MaxTextGap = 3
		},
	} {
		t.Run(name, func(t *testing.T) {
			o := testObject()
			modify(o)

			if _, err := o.Text(); err == nil {
				t.Error("no error")
			} else {
				t.Log(err)
			}
		})
	}
}

func TestEmitError(t *testing.T) {
	cause := xerrors.New("test")

	err := EmitError(FormatMachO, cause)

	var e *errors.EmitError
	if !xerrors.As(err, &e) {
		t.Fatalf("%T", err)
	}
	if e.Format != "macho" || !xerrors.Is(err, cause) {
		t.Error(err)
	}

	if EmitError(FormatELF, err) != err {
		t.Error("wrapped twice")
	}
}

func TestParseTarget(t *testing.T) {
	for s, expect := range map[string]Target{
		"amd64/elf":    {ArchAMD64, FormatELF},
		"x86_64/macho": {ArchAMD64, FormatMachO},
		"aarch64/elf":  {ArchARM64, FormatELF},
		"arm64/mach-o": {ArchARM64, FormatMachO},
		"arm64":        {ArchARM64, HostTarget().Format},
	} {
		target, err := ParseTarget(s)
		if err != nil {
			t.Errorf("%s: %v", s, err)
		} else if target != expect {
			t.Errorf("%s: %v", s, target)
		}
	}

	for _, s := range []string{"", "mips", "amd64/pe", "amd64/"} {
		if _, err := ParseTarget(s); err == nil {
			t.Errorf("%q: no error", s)
		}
	}
}

func TestHostTarget(t *testing.T) {
	target := HostTarget()
	if target.Format == FormatUnknown {
		t.Error(target)
	}
	t.Log(target)
}

func TestStringTable(t *testing.T) {
	var st StringTable

	if st.Add("") != 0 {
		t.Error("empty string")
	}

	a := st.Add("abc")
	b := st.Add("de")
	if st.Add("abc") != a {
		t.Error("not interned")
	}

	expect := []byte("\x00abc\x00de\x00")
	if !bytes.Equal(st.Bytes(), expect) || a != 1 || b != 5 {
		t.Errorf("%q", st.Bytes())
	}
}
