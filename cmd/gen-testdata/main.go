// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// gen-testdata writes a synthetic product, its schema files and an
// envidump configuration into a directory.
package main

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bpowers/envisat/internal/synth"
)

func newSeed() int64 {
	var seedBytes [8]byte
	if _, err := crand.Read(seedBytes[:]); err != nil {
		panic(err)
	}
	return int64(binary.LittleEndian.Uint64(seedBytes[:]))
}

func main() {
	shape := synth.Default()
	var dir string
	var random bool

	flagSet := pflag.NewFlagSet("gen-testdata", pflag.ExitOnError)
	flagSet.StringVarP(&dir, "output", "o", "testdata", "output directory")
	flagSet.IntVar(&shape.Width, "width", 1121, "pixels per line")
	flagSet.IntVar(&shape.Lines, "lines", 1000, "measurement records")
	flagSet.IntVar(&shape.TieWidth, "tie-width", 71, "tie points per row")
	flagSet.IntVar(&shape.TieRows, "tie-rows", 64, "tie-point rows")
	flagSet.Int64Var(&shape.Seed, "seed", shape.Seed, "seed for the flags field")
	flagSet.BoolVar(&random, "random-seed", false, "seed the flags field from crypto/rand")
	_ = flagSet.Parse(os.Args[1:])

	if shape.Width < 1 || shape.Lines < 1 || shape.TieWidth < 1 || shape.TieRows < 1 {
		fmt.Fprintln(os.Stderr, "error: sizes must be positive")
		os.Exit(2)
	}
	if random {
		shape.Seed = newSeed()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	path, err := synth.WriteFiles(dir, shape)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d bytes, seed %d\n", path, shape.Size(), shape.Seed)
}
