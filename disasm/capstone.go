// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build capstone

package disasm

import (
	"fmt"

	"github.com/bnagy/gapstone"
	"github.com/tsavola/wasmdwarf/object"
	"golang.org/x/xerrors"
)

type capstoneDecoder struct {
	engine  gapstone.Engine
	minSize int
}

func newDecoder(arch object.Arch, _ func(uint64) (string, uint64)) (decoder, error) {
	switch arch {
	case object.ArchAMD64:
		engine, err := gapstone.New(gapstone.CS_ARCH_X86, gapstone.CS_MODE_64)
		if err != nil {
			return nil, err
		}

		if err := engine.SetOption(gapstone.CS_OPT_SYNTAX, gapstone.CS_OPT_SYNTAX_ATT); err != nil {
			engine.Close()
			return nil, err
		}

		return &capstoneDecoder{engine, 1}, nil

	case object.ArchARM64:
		engine, err := gapstone.New(gapstone.CS_ARCH_ARM64, gapstone.CS_MODE_ARM)
		if err != nil {
			return nil, err
		}

		return &capstoneDecoder{engine, 4}, nil

	default:
		return nil, xerrors.Errorf("disassembly not supported for architecture: %s", arch)
	}
}

func (d *capstoneDecoder) decode(code []byte, addr uint64) (int, string, error) {
	insns, err := d.engine.Disasm(code, addr, 1)
	if err != nil || len(insns) == 0 {
		n := d.minSize
		if n > len(code) {
			n = len(code)
		}
		if err == nil {
			err = xerrors.New("invalid instruction")
		}
		return n, "", err
	}

	insn := insns[0]
	return int(insn.Size), fmt.Sprintf("%s\t%s", insn.Mnemonic, insn.OpStr), nil
}

func (d *capstoneDecoder) close() {
	d.engine.Close()
}
