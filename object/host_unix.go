// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package object

import (
	"golang.org/x/sys/unix"
)

// HostTarget describes the running system.  Architecture is unknown if it is
// not supported.
func HostTarget() (t Target) {
	t = hostTarget()

	var uts unix.Utsname
	if unix.Uname(&uts) != nil {
		return
	}

	if a, err := ParseArch(unix.ByteSliceToString(uts.Machine[:])); err == nil {
		t.Arch = a
	}

	switch unix.ByteSliceToString(uts.Sysname[:]) {
	case "Darwin":
		t.Format = FormatMachO
	default:
		t.Format = FormatELF
	}
	return
}
