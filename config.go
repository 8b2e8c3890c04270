// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasmdwarf

import (
	"github.com/tsavola/wasmdwarf/dwarf"
	"github.com/tsavola/wasmdwarf/object"
	"github.com/tsavola/wasmdwarf/object/elf"
	"github.com/tsavola/wasmdwarf/object/macho"
	"golang.org/x/xerrors"
)

// Config for a single Build invocation.  Zero values are replaced with
// effective defaults.
type Config struct {
	Target        object.Target  // Defaults to host.
	Emitter       object.Emitter // Defaults to Target.Format's emitter.
	Parallelism   int            // Defaults to GOMAXPROCS.
	DWARFVersions string         // Semantic version constraint; see dwarf.DefaultVersions.
	MaxDebugSize  int            // Limits size of each debug section.  No limit by default.
	MaxTextGap    uint64         // See object.DefaultMaxTextGap.

	// Warn is called with each non-fatal error.  The warnings are also
	// returned in Result.
	Warn func(error)
}

func (c *Config) target() object.Target {
	t := c.Target
	host := object.HostTarget()

	if t.Arch == object.ArchUnknown {
		t.Arch = host.Arch
	}
	if t.Format == object.FormatUnknown {
		t.Format = host.Format
	}
	return t
}

func (c *Config) emitter(t object.Target) (object.Emitter, error) {
	if c.Emitter != nil {
		return c.Emitter, nil
	}

	switch t.Format {
	case object.FormatELF:
		return elf.Emitter{}, nil

	case object.FormatMachO:
		return macho.Emitter{}, nil

	default:
		return nil, object.EmitError(t.Format, xerrors.New("unsupported object format"))
	}
}

func (c *Config) versionPolicy() (*dwarf.VersionPolicy, error) {
	return dwarf.NewVersionPolicy(c.DWARFVersions)
}
