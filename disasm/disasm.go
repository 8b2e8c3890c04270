// Copyright (c) 2016 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm prints native code annotated with function symbols and
// source locations.
package disasm

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tsavola/wasmdwarf/dwarf"
	"github.com/tsavola/wasmdwarf/object"
	"github.com/tsavola/wasmdwarf/symtab"
)

type decoder interface {
	// decode an instruction.  The length is positive even on error.
	decode(code []byte, addr uint64) (length int, text string, err error)
	close()
}

// Fprint disassembles text which is located at textAddr.  Symbols must be
// sorted by address.  Line rows are typically decoded from transcoded debug
// sections.
func Fprint(w io.Writer, arch object.Arch, text []byte, textAddr uint64, symbols []symtab.Symbol, rows []dwarf.LineRow) (err error) {
	if len(text) == 0 {
		return
	}

	symbolName := func(addr uint64) (string, uint64) {
		if s, found := symtab.Lookup(symbols, addr); found {
			return s.Name, s.Addr
		}
		return "", 0
	}

	dec, err := newDecoder(arch, symbolName)
	if err != nil {
		return
	}
	defer dec.close()

	lines := lineTable(rows)

	lastAddr := textAddr + uint64(len(text))
	addrWidth := (len(fmt.Sprintf("%x", lastAddr)) + 7) &^ 7
	addrFmt := fmt.Sprintf("%%0%dx", addrWidth)

	skipPad := false

	for pos := 0; pos < len(text); {
		addr := textAddr + uint64(pos)

		n, insn, decodeErr := dec.decode(text[pos:], addr)
		if decodeErr != nil {
			insn = fmt.Sprintf(".byte\t%s", byteList(text[pos:pos+n]))
		}

		if _, inside := symtab.Lookup(symbols, addr); !inside && len(symbols) > 0 {
			if !skipPad {
				fmt.Fprintf(w, addrFmt+"\t...\n", addr)
			}
			skipPad = true
			pos += n
			continue
		}
		skipPad = false

		if i := sort.Search(len(symbols), func(i int) bool { return symbols[i].Addr >= addr }); i < len(symbols) && symbols[i].Addr == addr {
			fmt.Fprintf(w, "\n%s:\n", symbols[i].Name)
		}

		for _, row := range lines.at(addr, uint64(n)) {
			fmt.Fprintf(w, "%s; %s:%d", strings.Repeat(" ", addrWidth), row.File, row.Line)
			if row.Column > 0 {
				fmt.Fprintf(w, ":%d", row.Column)
			}
			if !row.IsStmt {
				fmt.Fprint(w, " (inexact)")
			}
			fmt.Fprintln(w)
		}

		fmt.Fprintf(w, addrFmt+"\t%s\n", addr, strings.TrimSpace(insn))
		pos += n
	}

	fmt.Fprintln(w)
	return
}

type lines []dwarf.LineRow

func lineTable(rows []dwarf.LineRow) lines {
	var t lines
	for _, row := range rows {
		if !row.EndSequence {
			t = append(t, row)
		}
	}
	sort.SliceStable(t, func(i, j int) bool {
		return t[i].Addr < t[j].Addr
	})
	return t
}

// at returns the rows within an instruction.  Consecutive duplicates are
// omitted.
func (t lines) at(addr, length uint64) (rows []dwarf.LineRow) {
	i := sort.Search(len(t), func(i int) bool {
		return t[i].Addr >= addr
	})

	for ; i < len(t) && t[i].Addr < addr+length; i++ {
		row := t[i]
		if n := len(rows); n > 0 && rows[n-1].File == row.File && rows[n-1].Line == row.Line && rows[n-1].Column == row.Column {
			continue
		}
		rows = append(rows, row)
	}
	return
}

func byteList(b []byte) string {
	s := make([]string, len(b))
	for i, x := range b {
		s[i] = fmt.Sprintf("0x%02x", x)
	}
	return strings.Join(s, ", ")
}
