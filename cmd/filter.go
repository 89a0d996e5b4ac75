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
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/exascience/elamp/fastq"
	"github.com/exascience/elamp/stages"
)

// FilterHelp is the help string for the elamp filter command.
const FilterHelp = "\nfilter parameters:\n" +
	"elamp filter fastq-file output-dir\n" +
	"[--sample-name name]\n" +
	"[--fwd-primer seq]\n" +
	"[--rev-primer seq]\n" +
	"[--primer-mismatches nr]\n" +
	"[--primer-max-dist nr]\n" +
	"[--min-read-length nr]\n" +
	"[--max-read-length nr]\n" +
	"[--phred-window-size nr]\n" +
	"[--phred-threshold nr]\n" +
	"[--nr-of-threads nr]\n" +
	"[--timed]\n" +
	"[--log-path path]\n" +
	"[--profile prefix]\n"

// Filter implements the elamp filter command. It validates a FASTQ
// file and runs the filter cascade on it, outside the context of a
// project.
func Filter() error {
	var (
		sampleName, logPath, profile string
		params                       stages.FilterParams
		nrOfThreads                  int
		timed                        bool
	)

	var flags flag.FlagSet

	flags.StringVar(&sampleName, "sample-name", "", "sample name used to rename the surviving reads")
	flags.StringVar(&params.FwdPrimer, "fwd-primer", "", "forward primer sequence")
	flags.StringVar(&params.RevPrimer, "rev-primer", "", "reverse primer sequence")
	flags.IntVar(&params.PrimerMismatches, "primer-mismatches", 0, "mismatches tolerated per primer")
	flags.IntVar(&params.PrimerMaxDist, "primer-max-dist", 0, "bases from the read ends within which primers must lie")
	flags.IntVar(&params.MinReadLength, "min-read-length", 0, "minimum read length")
	flags.IntVar(&params.MaxReadLength, "max-read-length", 0, "maximum read length")
	flags.IntVar(&params.PhredWindowSize, "phred-window-size", 0, "size of the sliding quality window")
	flags.Float64Var(&params.PhredThreshold, "phred-threshold", 0, "minimum mean quality of the sliding window")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	flags.StringVar(&profile, "profile", "", "write a CPU profile with the given prefix")

	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, FilterHelp)
		os.Exit(1)
	}

	input := getFilename(os.Args[2], FilterHelp)
	outputDir := getFilename(os.Args[3], FilterHelp)

	parseFlags(flags, 4, FilterHelp)

	if sampleName == "" {
		base := filepath.Base(input)
		sampleName = strings.TrimSuffix(base, filepath.Ext(base))
	}

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", input) {
		sanityChecksFailed = true
	}

	if nrOfThreads < 0 {
		sanityChecksFailed = true
		log.Println("Error: Invalid nr-of-threads: ", nrOfThreads)
	}

	if profile != "" && !checkCreate("--profile", profile+"1.prof") {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, FilterHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " filter ", input, " ", outputDir)
	fmt.Fprint(&command, " --sample-name ", sampleName)
	if params.FwdPrimer != "" {
		fmt.Fprint(&command, " --fwd-primer ", params.FwdPrimer)
	}
	if params.RevPrimer != "" {
		fmt.Fprint(&command, " --rev-primer ", params.RevPrimer)
	}
	if params.PrimerMismatches > 0 {
		fmt.Fprint(&command, " --primer-mismatches ", params.PrimerMismatches)
	}
	if params.PrimerMaxDist > 0 {
		fmt.Fprint(&command, " --primer-max-dist ", params.PrimerMaxDist)
	}
	if params.MinReadLength > 0 {
		fmt.Fprint(&command, " --min-read-length ", params.MinReadLength)
	}
	if params.MaxReadLength > 0 {
		fmt.Fprint(&command, " --max-read-length ", params.MaxReadLength)
	}
	if params.PhredWindowSize > 0 {
		fmt.Fprint(&command, " --phred-window-size ", params.PhredWindowSize)
	}
	if params.PhredThreshold > 0 {
		fmt.Fprint(&command, " --phred-threshold ", params.PhredThreshold)
	}
	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
		fmt.Fprint(&command, " --nr-of-threads ", nrOfThreads)
	}
	if timed {
		fmt.Fprint(&command, " --timed")
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}
	if profile != "" {
		fmt.Fprint(&command, " --profile ", profile)
	}

	// executing command

	setLogOutput(logPath)

	log.Println("Executing command:\n", command.String())

	return timedRun(timed, profile, "Running the filter cascade.", 1, func() error {
		if _, err := fastq.Validate(input); err != nil {
			return err
		}
		filter := stages.NewSeqFilter(sampleName, input, outputDir, params)
		if err := filter.Run(); err != nil {
			return err
		}
		log.Printf("Reads: %v raw, %v after primers, %v after N removal, %v after length, %v after quality.\n",
			filter.Counts.Input, filter.Counts.Primers, filter.Counts.NBases, filter.Counts.Length, filter.Counts.Score)
		log.Println("Wrote the cleaned reads to", filter.Artifact)
		return nil
	})
}
