// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Command pedump is a thin front end over the pe package: it opens a file,
// parses it, and prints the result as text or JSON. It carries no parsing
// logic of its own.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	pe "github.com/binref/winpe"
)

var (
	format       string
	full         bool
	wantImports  bool
	wantExports  bool
	wantReloc    bool
	wantResource bool
	wantAll      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pedump <path>",
		Short: "Dump a Portable Executable file's structure",
		Long:  "A PE parser and structure dumper built for malware-analysis tooling",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}

	rootCmd.Flags().StringVarP(&format, "format", "f", "text", `output format: "text" or "json"`)
	rootCmd.Flags().BoolVar(&full, "full", false, "use the byte-exact full JSON shape instead of the minimal one")
	rootCmd.Flags().BoolVar(&wantImports, "imports", false, "walk the import directory")
	rootCmd.Flags().BoolVar(&wantExports, "exports", false, "walk the export directory")
	rootCmd.Flags().BoolVar(&wantReloc, "relocations", false, "walk the base relocation directory")
	rootCmd.Flags().BoolVar(&wantResource, "resources", false, "walk the resource directory")
	rootCmd.Flags().BoolVar(&wantAll, "all", false, "walk every directory")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(3)
	}
}

func run(cmd *cobra.Command, args []string) error {
	path := args[0]

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "pedump: %s: no such file\n", path)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pedump: %s: %v\n", path, err)
		os.Exit(1)
	}
	if info.IsDir() {
		fmt.Fprintf(os.Stderr, "pedump: %s: is a directory, not a file\n", path)
		os.Exit(2)
	}

	source, err := pe.NewFileSource(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pedump: %s: %v\n", path, err)
		os.Exit(3)
	}
	defer source.Close()

	img, err := pe.Parse(source, pe.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "pedump: %s: parse error: %v\n", path, err)
		os.Exit(3)
	}

	if wantAll || wantImports {
		_ = img.ParseImports()
	}
	if wantAll || wantExports {
		_ = img.ParseExports()
	}
	if wantAll || wantReloc {
		_ = img.ParseRelocations()
	}
	if wantAll || wantResource {
		_ = img.ParseResources()
	}

	switch format {
	case "json":
		return printJSON(img)
	case "text":
		return img.Fprint(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "pedump: unknown format %q\n", format)
		os.Exit(3)
		return nil
	}
}

func printJSON(img *pe.Image) error {
	var buf []byte
	var err error
	if full {
		buf, err = json.MarshalIndent(img.ToFull(), "", "  ")
	} else {
		buf, err = json.MarshalIndent(img.ToMinimal(), "", "  ")
	}
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}
