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
)

// PoolHelp is the help string for the elamp pool command.
const PoolHelp = "\npool parameters:\n" +
	"elamp pool project metadata-file\n" +
	"[--timed]\n" +
	"[--log-path path]\n" +
	"\nThe project name and the metadata file can also be passed in the\n" +
	"ELAMP_PROJECT and ELAMP_METADATA environment variables.\n"

// Pool implements the elamp pool command. It pools the cleaned reads
// of all samples of a project into a single FASTA file, assuming the
// per-sample stages have run.
func Pool() error {
	var (
		logPath string
		timed   bool
	)

	var flags flag.FlagSet

	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	projectName, next := getArgument(2, "ELAMP_PROJECT", PoolHelp)
	metadataFile, next := getArgument(next, "ELAMP_METADATA", PoolHelp)

	parseFlags(flags, next, PoolHelp)

	if !checkExist("", metadataFile) {
		fmt.Fprint(os.Stderr, PoolHelp)
		os.Exit(1)
	}

	setLogOutput(logPath)

	log.Println("Executing command:\n", os.Args[0], " pool ", projectName, " ", metadataFile)

	p, err := project.NewProject(projectName, metadataFile)
	if err != nil {
		return err
	}

	return timedRun(timed, "", "Pooling the reads of all samples.", 1, func() error {
		n, err := p.PoolReads()
		if err != nil {
			return err
		}
		log.Printf("Pooled %v reads into %v.\n", n, p.PooledReads())
		return nil
	})
}
