// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"runtime"
)

// hostTarget guesses the target based on the build configuration.
func hostTarget() (t Target) {
	t.Arch, _ = ParseArch(runtime.GOARCH)

	switch runtime.GOOS {
	case "darwin", "ios":
		t.Format = FormatMachO
	default:
		t.Format = FormatELF
	}
	return
}
