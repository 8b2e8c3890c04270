// Copyright (c) 2019 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errors

import (
	"fmt"
)

// ModuleError is returned when WebAssembly module bytes cannot be parsed
// enough to locate its sections.
type ModuleError struct {
	Offset int64 // Position in module.
	Text   string
	Cause  error
}

func ModuleErrorf(offset int64, format string, args ...interface{}) error {
	return &ModuleError{offset, fmt.Sprintf(format, args...), nil}
}

func WrapModuleError(offset int64, cause error) error {
	return &ModuleError{offset, "", cause}
}

func (e *ModuleError) Error() string {
	switch {
	case e.Text == "":
		return fmt.Sprintf("malformed module at offset 0x%x: %v", e.Offset, e.Cause)
	case e.Cause == nil:
		return fmt.Sprintf("malformed module at offset 0x%x: %s", e.Offset, e.Text)
	default:
		return fmt.Sprintf("malformed module at offset 0x%x: %s: %v", e.Offset, e.Text, e.Cause)
	}
}

func (e *ModuleError) PublicError() string { return e.Error() }
func (e *ModuleError) ModuleError() bool   { return true }
func (e *ModuleError) Unwrap() error       { return e.Cause }

// UnsupportedVersionError is returned when debug sections declare a format
// version (or a 64-bit format) which is not implemented or not allowed by
// configuration.
type UnsupportedVersionError struct {
	Unit    int // Unit index, or -1.
	Section string
	Offset  int64
	Version uint16 // Zero if the format itself is unsupported.
	Reason  string
}

func (e *UnsupportedVersionError) Error() string {
	s := fmt.Sprintf("%s+0x%x", e.Section, e.Offset)
	if e.Unit >= 0 {
		s = fmt.Sprintf("unit %d: %s", e.Unit, s)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: unsupported debug format: %s", s, e.Reason)
	}
	return fmt.Sprintf("%s: unsupported debug format version %d", s, e.Version)
}

func (e *UnsupportedVersionError) PublicError() string { return e.Error() }

// TranscodeError is returned when debug information is structurally corrupt,
// or inconsistent with the address mapping.
type TranscodeError struct {
	Unit    int // Unit index, or -1 if the error is not specific to a unit.
	Section string
	Offset  int64 // Position within section, or -1.
	Cause   error
}

func (e *TranscodeError) Error() string {
	s := e.Section
	if e.Offset >= 0 {
		s = fmt.Sprintf("%s+0x%x", s, e.Offset)
	}
	if e.Unit >= 0 {
		s = fmt.Sprintf("unit %d: %s", e.Unit, s)
	}
	return fmt.Sprintf("debug transcode: %s: %v", s, e.Cause)
}

func (e *TranscodeError) PublicError() string { return e.Error() }
func (e *TranscodeError) Unwrap() error       { return e.Cause }

// EmitError is returned when an object file cannot be produced.
type EmitError struct {
	Format string
	Cause  error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("%s object: %v", e.Format, e.Cause)
}

func (e *EmitError) PublicError() string { return e.Error() }
func (e *EmitError) Unwrap() error       { return e.Cause }
