// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarf

import (
	"github.com/tsavola/wasmdwarf/buffer"
	"github.com/tsavola/wasmdwarf/internal/errors"
	"golang.org/x/xerrors"
)

var (
	errReservedLength = xerrors.New("reserved unit length")
	errStrOffset      = xerrors.New("string offset is out of bounds")
	errTooLarge       = xerrors.New("output exceeds 32-bit DWARF limits")
)

// .debug_types is not transcoded.
var errTypeSignature = xerrors.New("type signature reference is not supported")

func errAbbrevCode(code uint64) error {
	return xerrors.Errorf("unknown abbreviation code %d", code)
}

func errAddrSize(size uint8) error {
	return xerrors.Errorf("unsupported address size %d", size)
}

func errForm(f form) error {
	return xerrors.Errorf("unknown attribute form 0x%x", uint64(f))
}

// transcodeError makes sure that a recovered error is UnsupportedVersionError
// or TranscodeError.
func transcodeError(err error, unit int) error {
	if err == nil {
		return nil
	}

	var (
		version   *errors.UnsupportedVersionError
		transcode *errors.TranscodeError
	)
	if xerrors.As(err, &version) || xerrors.As(err, &transcode) {
		return err
	}

	section := SectionInfo
	if xerrors.Is(err, buffer.ErrSizeLimit) {
		section = "output"
	}

	return &errors.TranscodeError{
		Unit:    unit,
		Section: section,
		Offset:  -1,
		Cause:   err,
	}
}
