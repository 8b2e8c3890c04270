// Copyright (c) 2019 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors exports common error types without unnecessary dependencies.
//
// All types implement the PublicError interface.  Module errors also
// implement ModuleError.
package errors

import (
	internal "github.com/tsavola/wasmdwarf/internal/errors"
)

// PublicError has a message which is safe to show to the user.
type PublicError interface {
	error
	PublicError() string
}

// ModuleError indicates that the WebAssembly module bytes are missing or
// malformed.  It may wrap an underlying error.
type ModuleError = internal.ModuleError

// UnsupportedVersionError indicates that the debug sections use a format
// version which is not transcoded.  Object emission proceeds without debug
// sections.
type UnsupportedVersionError = internal.UnsupportedVersionError

// TranscodeError indicates corrupt debug information, or debug information
// which is inconsistent with the address mapping.  Object emission proceeds
// without debug sections.
type TranscodeError = internal.TranscodeError

// EmitError indicates that an object file could not be produced.
type EmitError = internal.EmitError
