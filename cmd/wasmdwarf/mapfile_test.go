// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMap(t *testing.T, content string) string {
	t.Helper()

	filename := filepath.Join(t.TempDir(), "map.json")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0666))
	return filename
}

func TestLoadMap(t *testing.T) {
	filename := writeMap(t, `{
		"funcs": [
			{"index": 3, "start": 4112, "code": "31c0c3", "offsets": [[0, 4112]]},
			{"index": 2, "start": 4096, "code": "554889e55dc3", "offsets": [[0, 4096], [4, 4100]]}
		]
	}`)

	m, err := loadMap(filename)
	require.NoError(t, err)

	funcs, code, err := m.decode()
	require.NoError(t, err)

	assert.Equal(t, []uint32{2, 3}, funcs.Indexes())

	f, found := funcs.Func(2)
	require.True(t, found)
	assert.Equal(t, uint64(4096), f.NativeStart)
	assert.Equal(t, uint32(6), f.NativeLength)
	assert.Len(t, f.Offsets, 2)
	assert.Equal(t, uint64(4100), f.Offsets[1].NativeAddr)

	b, found := code.FuncCode(3)
	require.True(t, found)
	assert.Equal(t, []byte{0x31, 0xc0, 0xc3}, b)
}

func TestLoadMapErrors(t *testing.T) {
	_, err := loadMap(writeMap(t, `{"funcs": [`))
	assert.Error(t, err)

	for _, content := range []string{
		`{"funcs": [{"index": 0, "start": 0, "code": "zz"}]}`,
		`{"funcs": [{"index": 0, "start": 0, "code": "c3", "offsets": [[4294967296, 0]]}]}`,
		`{"funcs": [{"index": 0, "start": 16, "code": "c3", "offsets": [[0, 32]]}]}`,
		`{"funcs": [{"index": 0, "start": 0, "code": "c3"}, {"index": 0, "start": 16, "code": "c3"}]}`,
	} {
		m, err := loadMap(writeMap(t, content))
		require.NoError(t, err)

		_, _, err = m.decode()
		assert.Error(t, err, content)
	}
}
