// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dwarf transcodes WebAssembly DWARF debug information so that it
// describes native code.
//
// Versions 2, 3 and 4 in the 32-bit DWARF format are supported.  The output
// uses the same versions with 8-byte addresses.
package dwarf

import (
	"math"
	"runtime"

	"github.com/tsavola/wasmdwarf/addrmap"
	"github.com/tsavola/wasmdwarf/buffer"
	"github.com/tsavola/wasmdwarf/internal"
	"github.com/tsavola/wasmdwarf/internal/errors"
	"github.com/tsavola/wasmdwarf/internal/pan"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Options of a transcoding pass.  The zero value is usable.
type Options struct {
	// Parallelism limits the number of units transcoded concurrently.
	// Non-positive value means GOMAXPROCS.
	Parallelism int

	// Versions which may be transcoded.  Nil means all supported versions.
	Versions *VersionPolicy

	// MaxSectionSize limits the size of each output section.  Non-positive
	// value means no limit (except for the 32-bit format).
	MaxSectionSize int
}

// Sections of transcoded debug information.
type Sections struct {
	Abbrev []byte
	Info   []byte
	Line   []byte
	Loc    []byte
	Ranges []byte
	Str    []byte
}

// Map non-empty sections by name.
func (s *Sections) Map() map[string][]byte {
	m := make(map[string][]byte)
	if s == nil {
		return m
	}

	for name, data := range map[string][]byte{
		SectionAbbrev: s.Abbrev,
		SectionInfo:   s.Info,
		SectionLine:   s.Line,
		SectionLoc:    s.Loc,
		SectionRanges: s.Ranges,
		SectionStr:    s.Str,
	} {
		if len(data) > 0 {
			m[name] = data
		}
	}
	return m
}

type transcoder struct {
	info    []byte
	abbrev  []byte
	line    []byte
	str     []byte
	ranges  []byte
	loc     []byte
	res     *addrmap.Resolver
	maxSize int

	headers []unitHeader
	abbrevs map[uint32]*abbrevTable
}

// Transcode WebAssembly debug sections (keyed by name) using a resolver which
// translates code section offsets to native addresses.  Nil sections are
// returned without error if there is no .debug_info section.
//
// The error is UnsupportedVersionError or TranscodeError.  Either all units
// are transcoded or none.
func Transcode(debug map[string][]byte, res *addrmap.Resolver, opt Options) (s *Sections, err error) {
	if internal.DontPanic() {
		defer func() {
			if x := transcodeError(pan.Error(recover()), -1); x != nil {
				s, err = nil, x
			}
		}()
	}

	tc := &transcoder{
		info:    debug[SectionInfo],
		abbrev:  debug[SectionAbbrev],
		line:    debug[SectionLine],
		str:     debug[SectionStr],
		ranges:  debug[SectionRanges],
		loc:     debug[SectionLoc],
		res:     res,
		maxSize: opt.MaxSectionSize,
		abbrevs: make(map[uint32]*abbrevTable),
	}

	if len(tc.info) == 0 {
		return
	}

	tc.headers = parseUnitHeaders(tc.info, opt.Versions)

	for _, h := range tc.headers {
		if tc.abbrevs[h.abbrevOffset] == nil {
			tc.abbrevs[h.abbrevOffset] = parseAbbrevTable(tc.abbrev, h.abbrevOffset, h.index)
		}
	}

	parallelism := opt.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	debugf("transcoding %d units with parallelism %d", len(tc.headers), parallelism)

	var (
		outputs = make([]*unitOutput, len(tc.headers))
		errs    = make([]error, len(tc.headers))
		g       errgroup.Group
	)

	g.SetLimit(parallelism)

	for i := range tc.headers {
		i := i
		g.Go(func() error {
			outputs[i], errs[i] = tc.transcodeUnit(i)
			return errs[i]
		})
	}

	g.Wait()

	// Report the first failed unit regardless of completion order.
	for _, e := range errs {
		if e != nil {
			err = e
			return
		}
	}

	s = tc.merge(outputs)
	return
}

func (tc *transcoder) transcodeUnit(index int) (out *unitOutput, err error) {
	if internal.DontPanic() {
		defer func() {
			if x := transcodeError(pan.Error(recover()), index); x != nil {
				out, err = nil, x
			}
		}()
	}

	h := tc.headers[index]
	u := decodeUnit(tc.info, tc.str, h, tc.abbrevs[h.abbrevOffset])
	out = newUnitEncoder(tc, u).encode()
	return
}

// merge units in input order.  Identical abbreviation tables and strings are
// shared.
func (tc *transcoder) merge(units []*unitOutput) *Sections {
	var (
		info   = buffer.NewLimited(nil, tc.maxSize)
		abbrev = buffer.NewLimited(nil, tc.maxSize)
		line   = buffer.NewLimited(nil, tc.maxSize)
		ranges = buffer.NewLimited(nil, tc.maxSize)
		loc    = buffer.NewLimited(nil, tc.maxSize)
		str    = buffer.NewLimited(nil, tc.maxSize)
	)

	dies := make(map[uint32]uint32)

	var size uint64
	for _, out := range units {
		if size+uint64(len(out.info)) > math.MaxUint32 {
			pan.Panic(&errors.TranscodeError{Unit: out.index, Section: SectionInfo, Offset: -1, Cause: errTooLarge})
		}
		for _, d := range out.dies {
			dies[d.old] = uint32(size) + d.new
		}
		size += uint64(len(out.info))
	}

	var (
		abbrevOffsets = make(map[string]uint32)
		strOffsets    = make(map[string]uint32)
	)

	intern := func(s string) uint64 {
		offset, found := strOffsets[s]
		if !found {
			offset = uint32(str.Len())
			str.PutString(s)
			strOffsets[s] = offset
		}
		return uint64(offset)
	}

	for _, out := range units {
		key := string(out.abbrev.encoded)
		abbrevOffset, found := abbrevOffsets[key]
		if !found {
			abbrevOffset = uint32(abbrev.Len())
			abbrev.PutBytes(out.abbrev.encoded)
			abbrevOffsets[key] = abbrevOffset
		}

		lineBase := uint64(line.Len())
		rangesBase := uint64(ranges.Len())
		locBase := uint64(loc.Len())

		line.PutBytes(out.line)
		ranges.PutBytes(out.ranges)
		loc.PutBytes(out.loc)

		pos := info.Len()
		info.PutBytes(out.info)
		b := info.Bytes()[pos:]

		buffer.SetUint(b[6:], 4, uint64(abbrevOffset))

		for _, f := range out.fixups {
			var x uint64

			switch f.kind {
			case fixupStr:
				x = intern(f.str)

			case fixupRefAddr:
				target, found := dies[uint32(f.value)]
				if !found {
					pan.Panic(&errors.TranscodeError{
						Unit:    out.index,
						Section: SectionInfo,
						Offset:  int64(f.origin),
						Cause:   xerrors.Errorf("reference to 0x%x is not an entry", f.value),
					})
				}
				x = uint64(target)

			case fixupLine:
				x = lineBase + f.value

			case fixupRanges:
				x = rangesBase + f.value

			case fixupLoc:
				x = locBase + f.value
			}

			buffer.SetUint(b[f.pos:], int(f.size), x)
		}
	}

	debugf("merged %d units: %d info bytes, %d strings", len(units), info.Len(), len(strOffsets))

	return &Sections{
		Abbrev: abbrev.Bytes(),
		Info:   info.Bytes(),
		Line:   line.Bytes(),
		Loc:    loc.Bytes(),
		Ranges: ranges.Bytes(),
		Str:    str.Bytes(),
	}
}
