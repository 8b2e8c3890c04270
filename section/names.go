// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package section

import (
	"bytes"

	"github.com/tsavola/wasmdwarf/internal"
	"github.com/tsavola/wasmdwarf/internal/errors"
	"github.com/tsavola/wasmdwarf/internal/loader"
	"github.com/tsavola/wasmdwarf/internal/pan"
)

const (
	maxFuncNames = 1000000 // Industry standard.
)

const CustomName = "name"

const (
	nameSubsectionModuleName byte = iota
	nameSubsectionFunctionNames
)

// NameSection holds the module and function names of a "name" section.
// Local names and other subsections are skipped.
type NameSection struct {
	ModuleName string
	FuncNames  map[uint32]string
}

// Load "name" section content.  Nothing is kept if the content is malformed.
func (ns *NameSection) Load(_ string, content []byte) (err error) {
	if internal.DontPanic() {
		defer func() {
			if x := pan.Error(recover()); x != nil {
				*ns = NameSection{}
				err = x
			}
		}()
	}

	load := loader.New(bytes.NewReader(content), 0)

	for load.Tell() < int64(len(content)) {
		ns.readSubsection(load)
	}
	return
}

func (ns *NameSection) readSubsection(load *loader.L) {
	id := load.Byte()
	contentSize := load.Varuint32()
	begin := load.Tell()

	switch id {
	case nameSubsectionModuleName:
		ns.ModuleName = load.Name("name section: module name")

	case nameSubsectionFunctionNames:
		if ns.FuncNames == nil {
			ns.FuncNames = make(map[uint32]string)
		}

		for range load.Count(maxFuncNames, "function name") {
			funcIndex := load.Varuint32()
			ns.FuncNames[funcIndex] = load.Name("name section: function name")
		}

	default:
		load.Discard(contentSize)
	}

	if n := load.Tell() - begin; n != int64(contentSize) {
		pan.Panic(errors.ModuleErrorf(begin, "name subsection size is %d but %d bytes was read", contentSize, n))
	}
}
