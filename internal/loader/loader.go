// Copyright (c) 2015 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loader

import (
	"io"
	"unicode/utf8"

	"github.com/tsavola/wasmdwarf/binary"
	"github.com/tsavola/wasmdwarf/internal/errors"
	"github.com/tsavola/wasmdwarf/internal/pan"
)

// L provides panicking reading and integer decoding methods.  It keeps track
// of the read position.
type L struct {
	r   binary.Reader
	pos int64
}

// New loader which reports positions relative to the given base.
func New(r binary.Reader, pos int64) *L {
	return &L{r, pos}
}

func (load *L) Read(b []byte) (n int, err error) {
	n, err = load.r.Read(b)
	load.pos += int64(n)
	return
}

func (load *L) ReadByte() (b byte, err error) {
	b, err = load.r.ReadByte()
	if err == nil {
		load.pos++
	}
	return
}

func (load *L) UnreadByte() (err error) {
	err = load.r.UnreadByte()
	if err == nil {
		load.pos--
	}
	return
}

// Tell the current position.
func (load *L) Tell() int64 {
	return load.pos
}

func (load *L) Into(buf []byte) {
	if _, err := io.ReadFull(load, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		pan.Panic(err)
	}
}

func (load *L) Bytes(n uint32) (data []byte) {
	data = make([]byte, n)
	load.Into(data)
	return
}

// Discard n bytes.
func (load *L) Discard(n uint32) {
	if _, err := io.CopyN(io.Discard, load, int64(n)); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		pan.Panic(err)
	}
}

func (load *L) String(n uint32, name string) string {
	pos := load.pos
	b := load.Bytes(n)
	if !utf8.Valid(b) {
		pan.Panic(errors.ModuleErrorf(pos, "%s is not a valid UTF-8 string", name))
	}
	return string(b)
}

// Name reads a length-prefixed string.
func (load *L) Name(name string) string {
	return load.String(load.Varuint32(), name)
}

func (load *L) Byte() byte {
	x, err := load.ReadByte()
	pan.Check(err)
	return x
}

func (load *L) Uint32() uint32 {
	x, _, err := binary.Uint32(load)
	pan.Check(err)
	return x
}

func (load *L) Varuint32() uint32 {
	x, _, err := binary.Varuint32(load)
	pan.Check(err)
	return x
}

func (load *L) Varuint64() uint64 {
	x, _, err := binary.Varuint64(load)
	pan.Check(err)
	return x
}

// Count reads a varuint32 for iteration.
func (load *L) Count(maxCount uint32, name string) []struct{} {
	pos := load.pos
	count := load.Varuint32()
	if count > maxCount {
		pan.Panic(errors.ModuleErrorf(pos, "%s count is too large: 0x%x", name, count))
	}
	return make([]struct{}, int(count))
}
