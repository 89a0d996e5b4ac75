// elAmp: a high-performance tool for processing 16S rRNA amplicon
// sequencing data.
// Copyright (c) 2021-2024 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elamp/blob/master/LICENSE.txt>.

// elAmp is a high-performance tool for processing 16S rRNA amplicon
// sequencing data: quality filtering, chimera removal, OTU clustering,
// and taxonomic assignment.
//
// Please see https://github.com/exascience/elamp for a documentation
// of the tool.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/exascience/elamp/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: run, filter, pool, otu-table, taxa-tables, bundle")
	fmt.Fprint(os.Stderr, "\n", cmd.RunHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.FilterHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.PoolHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.OtuTableHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.TaxaTablesHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.BundleHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, cmd.HelpMessage, "\n")
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = cmd.Run()
	case "filter":
		err = cmd.Filter()
	case "pool":
		err = cmd.Pool()
	case "otu-table":
		err = cmd.OtuTable()
	case "taxa-tables":
		err = cmd.TaxaTables()
	case "bundle":
		err = cmd.Bundle()
	case "help", "-h", "--h", "-help", "--help":
		printHelp()
	default:
		log.Println("Unknown command: ", os.Args[1])
		fmt.Fprint(os.Stderr, cmd.HelpMessage, "\n")
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}
