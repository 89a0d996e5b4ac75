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

package cmd

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/exascience/elamp/project"
	"github.com/exascience/elamp/reports"
)

// BundleHelp is the help string for the elamp bundle command.
const BundleHelp = "\nbundle parameters:\n" +
	"elamp bundle project metadata-file\n" +
	"[--log-path path]\n" +
	"\nThe project name and the metadata file can also be passed in the\n" +
	"ELAMP_PROJECT and ELAMP_METADATA environment variables.\n"

// Bundle implements the elamp bundle command. It regenerates the
// project report and gathers the deliverables of the completed stages
// into the bundle directory.
func Bundle() error {
	var logPath string

	var flags flag.FlagSet

	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	projectName, next := getArgument(2, "ELAMP_PROJECT", BundleHelp)
	metadataFile, next := getArgument(next, "ELAMP_METADATA", BundleHelp)

	parseFlags(flags, next, BundleHelp)

	if !checkExist("", metadataFile) {
		fmt.Fprint(os.Stderr, BundleHelp)
		os.Exit(1)
	}

	setLogOutput(logPath)

	log.Println("Executing command:\n", os.Args[0], " bundle ", projectName, " ", metadataFile)

	p, err := project.NewProject(projectName, metadataFile)
	if err != nil {
		return err
	}
	if _, err := reports.Write(p); err != nil {
		return err
	}
	dir, err := reports.Bundle(p)
	if err != nil {
		return err
	}
	log.Println("Bundled the results in", dir)
	return nil
}
