// Copyright (c) 2021 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package binary

import (
	"bytes"
	"math"
	"testing"
)

func TestSleb128(t *testing.T) {
	for _, x := range []int64{0, 1, -1, 63, 64, -64, -65, 127, 128, -128, 1 << 40, math.MaxInt64, math.MinInt64} {
		b := AppendSleb128(nil, x)
		y, n := Sleb128(b)
		if n != len(b) {
			t.Errorf("%d: decoded %d bytes of %d", x, n, len(b))
		}
		if y != x {
			t.Errorf("%d: decoded as %d", x, y)
		}
	}
}

func TestSleb128Known(t *testing.T) {
	for _, c := range []struct {
		x int64
		b []byte
	}{
		{2, []byte{0x02}},
		{-2, []byte{0x7e}},
		{127, []byte{0xff, 0x00}},
		{-127, []byte{0x81, 0x7f}},
		{128, []byte{0x80, 0x01}},
		{-128, []byte{0x80, 0x7f}},
	} {
		if b := AppendSleb128(nil, c.x); !bytes.Equal(b, c.b) {
			t.Errorf("%d: encoded as %x", c.x, b)
		}
	}
}

func TestSleb128Truncated(t *testing.T) {
	if _, n := Sleb128([]byte{0x80, 0x80}); n != 0 {
		t.Error(n)
	}
}

func TestUleb128(t *testing.T) {
	for _, x := range []uint64{0, 1, 127, 128, 624485, math.MaxUint32, math.MaxUint64} {
		b := AppendUleb128(nil, x)
		if len(b) != Uleb128Len(x) {
			t.Errorf("%d: length %d, expected %d", x, Uleb128Len(x), len(b))
		}
		y, n := Uleb128(b)
		if n != len(b) || y != x {
			t.Errorf("%d: decoded %d (%d bytes)", x, y, n)
		}
	}
}

func TestVaruint32(t *testing.T) {
	x, n, err := Varuint32(bytes.NewReader([]byte{0xe5, 0x8e, 0x26}))
	if err != nil {
		t.Fatal(err)
	}
	if x != 624485 || n != 3 {
		t.Error(x, n)
	}

	if _, _, err := Varuint32(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})); err == nil {
		t.Error("overlong encoding accepted")
	}
}
