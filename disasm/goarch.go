// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !capstone

package disasm

import (
	"github.com/tsavola/wasmdwarf/object"
	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
	"golang.org/x/xerrors"
)

func newDecoder(arch object.Arch, symbolName func(uint64) (string, uint64)) (decoder, error) {
	switch arch {
	case object.ArchAMD64:
		return x86Decoder{symbolName}, nil

	case object.ArchARM64:
		return arm64Decoder{}, nil

	default:
		return nil, xerrors.Errorf("disassembly not supported for architecture: %s", arch)
	}
}

type x86Decoder struct {
	symbolName func(uint64) (string, uint64)
}

func (d x86Decoder) decode(code []byte, addr uint64) (int, string, error) {
	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return 1, "", err
	}
	return inst.Len, x86asm.GNUSyntax(inst, addr, d.symbolName), nil
}

func (x86Decoder) close() {}

type arm64Decoder struct{}

func (arm64Decoder) decode(code []byte, addr uint64) (int, string, error) {
	if len(code) < 4 {
		return len(code), "", xerrors.New("truncated instruction")
	}

	inst, err := arm64asm.Decode(code)
	if err != nil {
		return 4, "", err
	}
	return 4, arm64asm.GNUSyntax(inst), nil
}

func (arm64Decoder) close() {}
