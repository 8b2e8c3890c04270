// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasmdwarf

import (
	"sort"

	"github.com/tsavola/wasmdwarf/addrmap"
	"github.com/tsavola/wasmdwarf/dwarf"
	"github.com/tsavola/wasmdwarf/object"
	"github.com/tsavola/wasmdwarf/section"
	"github.com/tsavola/wasmdwarf/symtab"
	"golang.org/x/xerrors"
)

// Result of a Build.  The fields are roughly in order of appearance.
type Result struct {
	Module   *section.Module   // Nil if the module is malformed.
	Debug    map[string][]byte // Transcoded debug sections; empty if none.
	Symbols  []symtab.Symbol   // Sorted by address.
	Target   object.Target     // Effective target.
	Object   []byte            // Object file.
	Warnings []error           // ModuleError, UnsupportedVersionError or TranscodeError.
}

func (r *Result) warn(config *Config, err error) {
	debugf("warning: %v", err)

	r.Warnings = append(r.Warnings, err)
	if config.Warn != nil {
		config.Warn(err)
	}
}

// Build an object file from WebAssembly module bytes, the address map of
// compiled functions and their native code.  Malformed modules and unusable
// debug information degrade to an object without debug sections; the problems
// are reported as warnings.  Only invalid arguments and EmitError are fatal.
//
// The Result is constructed incrementally so that populated fields may be
// inspected on error.
func Build(config *Config, module []byte, funcs addrmap.Provider, code CodeSource) (result *Result, err error) {
	if config == nil {
		config = new(Config)
	}
	if funcs == nil || code == nil {
		err = xerrors.New("address map and code source are required")
		return
	}

	versions, err := config.versionPolicy()
	if err != nil {
		return
	}

	result = &Result{
		Debug:  make(map[string][]byte),
		Target: config.target(),
	}

	emitter, err := config.emitter(result.Target)
	if err != nil {
		return
	}

	// Locate function bodies, names and debug sections.  A module which
	// can't be parsed doesn't prevent symbol table and code output.

	mod, err := section.Extract(module)
	if err != nil {
		result.warn(config, err)
		err = nil
	} else {
		result.Module = mod
	}

	// Transcode debug information using the code offsets of the module's
	// function bodies.  All units are transcoded or none.

	var debugNames map[uint32]string

	if mod != nil && len(mod.Debug) > 0 {
		res := addrmap.NewResolver(bodies(mod), mod.NumImportFuncs, funcs)

		opt := dwarf.Options{
			Parallelism:    config.Parallelism,
			Versions:       versions,
			MaxSectionSize: config.MaxDebugSize,
		}

		sections, transcodeErr := dwarf.Transcode(mod.Debug, res, opt)
		if transcodeErr != nil {
			result.warn(config, transcodeErr)
		} else {
			result.Debug = sections.Map()

			// Subprogram names are best-effort; the same data was just
			// transcoded successfully.
			if names, namesErr := dwarf.FuncNames(mod.Debug, versions); namesErr == nil {
				debugNames = names
			} else {
				debugf("function names: %v", namesErr)
			}
		}
	}

	// Name the functions.  Symbol addresses and sizes come from the address
	// map; code must agree with them.

	result.Symbols = symtab.Build(mod, funcs, debugNames)

	obj := &object.Object{
		Target:     result.Target,
		Sections:   debugSections(result.Debug),
		Symbols:    result.Symbols,
		MaxTextGap: config.MaxTextGap,
	}

	for _, s := range result.Symbols {
		if b, found := code.FuncCode(s.Func); found {
			obj.Code = append(obj.Code, object.Code{Func: s.Func, Addr: s.Addr, Bytes: b})
		}
	}

	result.Object, err = emitter.Emit(obj)
	if err != nil {
		err = object.EmitError(result.Target.Format, err)
	}
	return
}

func bodies(mod *section.Module) []addrmap.Body {
	bs := make([]addrmap.Body, len(mod.FuncBodies))
	for i, r := range mod.FuncBodies {
		bs[i] = addrmap.Body{
			Start: uint32(r.Offset),
			End:   uint32(r.End()),
		}
	}
	return bs
}

// debugSections in name order.
func debugSections(debug map[string][]byte) []object.Section {
	sections := make([]object.Section, 0, len(debug))
	for name, data := range debug {
		sections = append(sections, object.Section{Name: name, Data: data})
	}
	sort.Slice(sections, func(i, j int) bool {
		return sections[i].Name < sections[j].Name
	})
	return sections
}
