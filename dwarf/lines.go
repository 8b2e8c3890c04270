// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	godwarf "debug/dwarf"
	"io"

	"golang.org/x/xerrors"
)

// LineRow of a decoded line table.
type LineRow struct {
	Addr        uint64
	File        string
	Line        int
	Column      int
	IsStmt      bool
	EndSequence bool
}

// LineRows decodes the line tables of all units.  This is meant for
// transcoded sections; WebAssembly sections can be decoded too.
func LineRows(sections map[string][]byte) ([]LineRow, error) {
	d, err := godwarf.New(sections[SectionAbbrev], nil, nil, sections[SectionInfo], sections[SectionLine], nil, sections[SectionRanges], sections[SectionStr])
	if err != nil {
		return nil, xerrors.Errorf("line rows: %w", err)
	}

	var rows []LineRow

	r := d.Reader()
	for {
		e, err := r.Next()
		if err != nil {
			return nil, xerrors.Errorf("line rows: %w", err)
		}
		if e == nil {
			break
		}

		if e.Tag == godwarf.TagCompileUnit {
			lr, err := d.LineReader(e)
			if err != nil {
				return nil, xerrors.Errorf("line rows: %w", err)
			}

			if lr != nil {
				for {
					var le godwarf.LineEntry

					if err := lr.Next(&le); err != nil {
						if err == io.EOF {
							break
						}
						return nil, xerrors.Errorf("line rows: %w", err)
					}

					row := LineRow{
						Addr:        le.Address,
						Line:        le.Line,
						Column:      le.Column,
						IsStmt:      le.IsStmt,
						EndSequence: le.EndSequence,
					}
					if le.File != nil {
						row.File = le.File.Name
					}
					rows = append(rows, row)
				}
			}
		}

		r.SkipChildren()
	}

	return rows, nil
}
