// Copyright (c) 2019 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package wasmdwarf converts the DWARF debug information of a WebAssembly module
so that it describes native code, and packages the code, function symbols and
debug sections into an object file.

The native code and its mapping to WebAssembly code offsets are produced by a
code generator; see the addrmap subpackage for the mapping interface.  See the
Build function's source code for an example of how to use the lower-level APIs
(implemented in subpackages).

# Errors

ModuleError, UnsupportedVersionError, TranscodeError and EmitError types are
accessible via errors subpackage.  Build returns only EmitError (or an error
caused by invalid arguments): problems with the module or its debug
information are reported as warnings, and the object is produced without
debug sections.
*/
package wasmdwarf
