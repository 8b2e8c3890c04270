// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buffer

import (
	"bytes"
	"testing"

	"github.com/tsavola/wasmdwarf/internal/pan"
	"golang.org/x/xerrors"
)

func TestLimited(t *testing.T) {
	b := NewLimited(nil, 0)
	b.PutByte(1)
	b.PutUint16(0x0302)
	b.PutUint32(0x07060504)
	b.PutUleb128(624485)
	b.PutSleb128(-2)
	b.PutString("ab")

	expect := []byte{1, 2, 3, 4, 5, 6, 7, 0xe5, 0x8e, 0x26, 0x7e, 'a', 'b', 0}
	if !bytes.Equal(b.Bytes(), expect) {
		t.Errorf("%x", b.Bytes())
	}

	SetUint(b.Bytes()[1:], 2, 0xbeef)
	if b.Bytes()[1] != 0xef || b.Bytes()[2] != 0xbe {
		t.Errorf("%x", b.Bytes())
	}
}

func TestLimitedSize(t *testing.T) {
	err := func() (err error) {
		defer func() { err = pan.Error(recover()) }()

		b := NewLimited(nil, 6)
		b.PutUint32(1)
		b.PutUint16(2)
		b.PutByte(3)
		return
	}()

	if !xerrors.Is(err, ErrSizeLimit) {
		t.Error(err)
	}
}
