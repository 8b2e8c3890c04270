// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"strings"

	"golang.org/x/xerrors"
)

type Arch uint8

const (
	ArchUnknown Arch = iota
	ArchAMD64
	ArchARM64
)

func (a Arch) String() string {
	switch a {
	case ArchAMD64:
		return "amd64"
	case ArchARM64:
		return "arm64"
	default:
		return "unknown"
	}
}

// PadByte fills gaps in code: int3 on amd64, zero elsewhere.
func (a Arch) PadByte() byte {
	if a == ArchAMD64 {
		return 0xcc
	}
	return 0
}

// ParseArch accepts Go and GNU architecture names.
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(s) {
	case "amd64", "x86_64", "x86-64":
		return ArchAMD64, nil
	case "arm64", "aarch64":
		return ArchARM64, nil
	default:
		return ArchUnknown, xerrors.Errorf("unsupported architecture: %q", s)
	}
}

type Format uint8

const (
	FormatUnknown Format = iota
	FormatELF
	FormatMachO
)

func (f Format) String() string {
	switch f {
	case FormatELF:
		return "elf"
	case FormatMachO:
		return "macho"
	default:
		return "unknown"
	}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "elf":
		return FormatELF, nil
	case "macho", "mach-o":
		return FormatMachO, nil
	default:
		return FormatUnknown, xerrors.Errorf("unsupported object format: %q", s)
	}
}

// Target architecture and object format.
type Target struct {
	Arch   Arch
	Format Format
}

// ParseTarget parses "arch" or "arch/format" (e.g. "arm64/macho").  The
// format defaults to the host's.
func ParseTarget(s string) (t Target, err error) {
	archName, formatName, found := strings.Cut(s, "/")

	if t.Arch, err = ParseArch(archName); err != nil {
		return
	}

	if found {
		t.Format, err = ParseFormat(formatName)
	} else {
		t.Format = HostTarget().Format
	}
	return
}

func (t Target) String() string {
	return t.Arch.String() + "/" + t.Format.String()
}
