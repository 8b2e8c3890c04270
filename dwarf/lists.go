// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"math"

	"github.com/tsavola/wasmdwarf/addrmap"
	"github.com/tsavola/wasmdwarf/buffer"
	"golang.org/x/xerrors"
)

// listReader iterates over range or location list entries.
type listReader struct {
	r        *reader
	addrSize int
	base     uint64
}

// next entry with absolute addresses.  Base address selection entries are
// consumed.  False is returned at the end of the list.
func (lr *listReader) next() (begin, end uint64, ok bool) {
	maxAddr := uint64(math.MaxUint64) >> (64 - 8*lr.addrSize)

	for {
		begin = lr.r.uint(lr.addrSize)
		end = lr.r.uint(lr.addrSize)

		switch {
		case begin == 0 && end == 0:
			return

		case begin == maxAddr:
			lr.base = end

		default:
			return lr.base + begin, lr.base + end, true
		}
	}
}

func newListReader(data []byte, section string, offset uint64, u *unit) *listReader {
	r := newReader(data, section, u.index)
	if offset >= uint64(len(data)) {
		r.failAt(int64(offset), xerrors.New("list offset is out of bounds"))
	}
	r.pos = int(offset)

	return &listReader{r, int(u.addrSize), u.baseAddr()}
}

// putBaseSelection makes the following entries absolute.
func putBaseSelection(b *buffer.Limited) {
	b.PutUint64(math.MaxUint64)
	b.PutUint64(0)
}

func putListEnd(b *buffer.Limited) {
	b.PutUint64(0)
	b.PutUint64(0)
}

// rewriteRanges translates a range list.  Ranges without native code are
// omitted.
func rewriteRanges(b *buffer.Limited, data []byte, offset uint64, u *unit, res *addrmap.Resolver) {
	lr := newListReader(data, SectionRanges, offset, u)
	putBaseSelection(b)

	for {
		begin, end, ok := lr.next()
		if !ok {
			break
		}

		low, high, covered, err := res.ResolveRange(begin, end)
		if err != nil {
			lr.r.failAt(int64(lr.r.pos), err)
		}
		if covered && high > low {
			b.PutUint64(low)
			b.PutUint64(high)
		}
	}

	putListEnd(b)
}

// rewriteLoc translates a location list.  Expressions are widened; entries
// without native code are omitted.
func rewriteLoc(b *buffer.Limited, data []byte, offset uint64, u *unit, res *addrmap.Resolver) {
	lr := newListReader(data, SectionLoc, offset, u)
	putBaseSelection(b)

	for {
		begin, end, ok := lr.next()
		if !ok {
			break
		}

		expr := lr.r.skip(int(lr.r.u16()))

		low, high, covered, err := res.ResolveRange(begin, end)
		if err != nil {
			lr.r.failAt(int64(lr.r.pos), err)
		}
		if !covered || high <= low {
			continue
		}

		expr = widenExpr(lr.r, expr, lr.addrSize)
		if len(expr) > math.MaxUint16 {
			lr.r.failf("location expression is too long")
		}

		b.PutUint64(low)
		b.PutUint64(high)
		b.PutUint16(uint16(len(expr)))
		b.PutBytes(expr)
	}

	putListEnd(b)
}
