// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package object describes relocatable object files containing native code,
// function symbols and debug sections.  The file formats are implemented by
// subpackages.
package object

import (
	"sort"

	"github.com/tsavola/wasmdwarf/internal/errors"
	"github.com/tsavola/wasmdwarf/symtab"
	"golang.org/x/xerrors"
)

// DefaultMaxTextGap is the largest gap allowed between functions' native code.
const DefaultMaxTextGap = 1 << 20

// Section of debug information.
type Section struct {
	Name string // Such as ".debug_info".
	Data []byte
}

// Code of a function.
type Code struct {
	Func  uint32
	Addr  uint64
	Bytes []byte
}

// Object contents.  Code is placed in a single text section at its native
// addresses.
type Object struct {
	Target
	Sections []Section
	Symbols  []symtab.Symbol // Sorted by address.
	Code     []Code

	// MaxTextGap limits padding between functions.  Zero means
	// DefaultMaxTextGap.
	MaxTextGap uint64
}

// Emitter produces an object file.  The error is EmitError.
type Emitter interface {
	Emit(*Object) ([]byte, error)
}

// Text is the laid out code of an object.
type Text struct {
	Addr uint64
	Data []byte
}

// End address (exclusive).
func (t Text) End() uint64 {
	return t.Addr + uint64(len(t.Data))
}

// Text lays out code.  Every symbol must describe the code of its function
// exactly.  Gaps are filled with the target's padding byte.
func (o *Object) Text() (text Text, err error) {
	code := make([]Code, 0, len(o.Code))
	for _, c := range o.Code {
		if len(c.Bytes) > 0 {
			code = append(code, c)
		}
	}

	sort.SliceStable(code, func(i, j int) bool {
		return code[i].Addr < code[j].Addr
	})

	byFunc := make(map[uint32]*Code, len(code))
	for i := range code {
		byFunc[code[i].Func] = &code[i]
	}

	for _, s := range o.Symbols {
		c := byFunc[s.Func]
		switch {
		case c == nil:
			err = xerrors.Errorf("symbol %s has no code", s.Name)
			return

		case c.Addr != s.Addr || len(c.Bytes) != int(s.Size):
			err = xerrors.Errorf("symbol %s at 0x%x (size %d) does not match code at 0x%x (size %d)", s.Name, s.Addr, s.Size, c.Addr, len(c.Bytes))
			return
		}
	}

	if len(code) == 0 {
		return
	}

	maxGap := o.MaxTextGap
	if maxGap == 0 {
		maxGap = DefaultMaxTextGap
	}

	text.Addr = code[0].Addr
	pad := o.Arch.PadByte()

	for i, c := range code {
		end := text.End()

		if i > 0 {
			switch {
			case c.Addr < end:
				err = xerrors.Errorf("function %d code at 0x%x overlaps function %d", c.Func, c.Addr, code[i-1].Func)
				return

			case c.Addr-end > maxGap:
				err = xerrors.Errorf("gap of 0x%x bytes before function %d exceeds limit", c.Addr-end, c.Func)
				return
			}
		}

		for n := c.Addr - end; n > 0; n-- {
			text.Data = append(text.Data, pad)
		}
		text.Data = append(text.Data, c.Bytes...)
	}

	return
}

// EmitError wraps a cause.
func EmitError(format Format, cause error) error {
	var e *errors.EmitError
	if xerrors.As(cause, &e) {
		return cause
	}
	return &errors.EmitError{Format: format.String(), Cause: cause}
}
