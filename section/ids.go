// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package section

import (
	"fmt"
)

type ID byte

const (
	Custom ID = iota
	Type
	Import
	Function
	Table
	Memory
	Global
	Export
	Start
	Element
	Code
	Data
	DataCount
	Tag

	NumSections
)

var idStrings = [NumSections]string{
	Custom:    "custom",
	Type:      "type",
	Import:    "import",
	Function:  "function",
	Table:     "table",
	Memory:    "memory",
	Global:    "global",
	Export:    "export",
	Start:     "start",
	Element:   "element",
	Code:      "code",
	Data:      "data",
	DataCount: "datacount",
	Tag:       "tag",
}

func (id ID) String() string {
	if id < NumSections {
		return idStrings[id]
	}
	return fmt.Sprintf("<unknown section id %d>", byte(id))
}

const (
	moduleMagic   = "\x00asm"
	moduleVersion = 1
	headerSize    = 8
)

// ByteRange is a span of bytes.  The coordinate space depends on context.
type ByteRange struct {
	Offset int64
	Length int64
}

// End of the range.
func (r ByteRange) End() int64 {
	return r.Offset + r.Length
}

// Map of section payload positions within the WebAssembly binary module.
// Offset and Length are nonzero if a section is present.  Sections[Custom]
// holds information about the last custom section.
type Map struct {
	Sections [NumSections]ByteRange
}
