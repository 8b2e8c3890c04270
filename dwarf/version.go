// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"github.com/Masterminds/semver/v3"
	"golang.org/x/xerrors"
)

// DefaultVersions is the constraint of DWARF versions which are transcoded by
// default.
const DefaultVersions = ">= 2, < 5"

// Implemented versions.
const (
	MinVersion = 2
	MaxVersion = 4
)

// VersionPolicy decides which DWARF versions are transcoded.  Versions outside
// of the implemented range are never allowed.  Nil policy allows all
// implemented versions.
type VersionPolicy struct {
	constraints *semver.Constraints
}

// NewVersionPolicy parses a semantic version constraint such as "4" or
// ">= 3".  Empty string means DefaultVersions.
func NewVersionPolicy(constraint string) (*VersionPolicy, error) {
	if constraint == "" {
		constraint = DefaultVersions
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, xerrors.Errorf("DWARF version constraint: %w", err)
	}

	return &VersionPolicy{c}, nil
}

func (p *VersionPolicy) Allows(version uint16) bool {
	if version < MinVersion || version > MaxVersion {
		return false
	}
	if p == nil {
		return true
	}
	return p.constraints.Check(semver.New(uint64(version), 0, 0, "", ""))
}

func (p *VersionPolicy) String() string {
	if p == nil {
		return DefaultVersions
	}
	return p.constraints.String()
}
