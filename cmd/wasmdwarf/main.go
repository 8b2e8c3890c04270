// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Program wasmdwarf builds a native object file out of a WebAssembly module,
// a code generator's address map and the generated code.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/tsavola/wasmdwarf"
	"github.com/tsavola/wasmdwarf/disasm"
	"github.com/tsavola/wasmdwarf/dwarf"
	"github.com/tsavola/wasmdwarf/object"
	"golang.org/x/xerrors"
)

var verbose = false

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] -map mapfile wasmfile\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	var (
		output       = "a.o"
		target       = ""
		mapFile      = ""
		dump         = false
		versions     = dwarf.DefaultVersions
		parallelism  = runtime.GOMAXPROCS(0)
		maxDebugSize = 0
	)

	flag.BoolVar(&verbose, "v", verbose, "verbose logging")
	flag.StringVar(&output, "o", output, "object file to write")
	flag.StringVar(&target, "target", target, "arch or arch/format (default host)")
	flag.StringVar(&mapFile, "map", mapFile, "address map and code (JSON)")
	flag.BoolVar(&dump, "dump", dump, "disassemble the code with line info to stdout")
	flag.StringVar(&versions, "versions", versions, "supported DWARF versions")
	flag.IntVar(&parallelism, "parallelism", parallelism, "concurrently transcoded units")
	flag.IntVar(&maxDebugSize, "max-debug-size", maxDebugSize, "debug section size limit (0 is unlimited)")
	flag.Parse()

	if flag.NArg() != 1 || mapFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), mapFile, output, target, versions, parallelism, maxDebugSize, dump); err != nil {
		log.Fatal(err)
	}
}

func run(filename, mapFile, output, target, versions string, parallelism, maxDebugSize int, dump bool) error {
	config := &wasmdwarf.Config{
		Parallelism:   parallelism,
		DWARFVersions: versions,
		MaxDebugSize:  maxDebugSize,
		Warn: func(err error) {
			log.Printf("warning: %v", err)
		},
	}

	if target != "" {
		t, err := object.ParseTarget(target)
		if err != nil {
			return err
		}
		config.Target = t
	}

	module, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	m, err := loadMap(mapFile)
	if err != nil {
		return err
	}

	funcs, code, err := m.decode()
	if err != nil {
		return xerrors.Errorf("%s: %w", mapFile, err)
	}

	result, err := wasmdwarf.Build(config, module, funcs, code)
	if err != nil {
		return err
	}

	if verbose {
		log.Printf("target: %s", result.Target)
		log.Printf("symbols: %d", len(result.Symbols))
		for name, data := range result.Debug {
			log.Printf("section %s: %d bytes", name, len(data))
		}
	}

	if err := os.WriteFile(output, result.Object, 0666); err != nil {
		return err
	}

	if dump {
		return dumpText(result, code)
	}
	return nil
}

func dumpText(result *wasmdwarf.Result, code wasmdwarf.CodeMap) error {
	obj := &object.Object{
		Target:  result.Target,
		Symbols: result.Symbols,
	}
	for _, s := range result.Symbols {
		obj.Code = append(obj.Code, object.Code{Func: s.Func, Addr: s.Addr, Bytes: code[s.Func]})
	}

	text, err := obj.Text()
	if err != nil {
		return err
	}

	var rows []dwarf.LineRow
	if len(result.Debug) > 0 {
		rows, err = dwarf.LineRows(result.Debug)
		if err != nil {
			log.Printf("line info: %v", err)
		}
	}

	return disasm.Fprint(os.Stdout, result.Target.Arch, text.Data, text.Addr, result.Symbols, rows)
}
