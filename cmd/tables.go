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
	"path/filepath"
	"runtime"
	"strings"

	"github.com/exascience/elamp/otu"
	"github.com/exascience/elamp/stages"
)

// OtuTableHelp is the help string for the elamp otu-table command.
const OtuTableHelp = "\notu-table parameters:\n" +
	"elamp otu-table fasta-file output-dir\n" +
	"[--otu-threshold fraction]\n" +
	"[--nr-of-threads nr]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// OtuTable implements the elamp otu-table command. It clusters a
// pooled FASTA file into OTUs, outside the context of a project.
func OtuTable() error {
	var (
		logPath     string
		threshold   float64
		nrOfThreads int
		timed       bool
	)

	var flags flag.FlagSet

	flags.Float64Var(&threshold, "otu-threshold", 0.97, "clustering similarity fraction")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, OtuTableHelp)
		os.Exit(1)
	}

	input := getFilename(os.Args[2], OtuTableHelp)
	outputDir := getFilename(os.Args[3], OtuTableHelp)

	parseFlags(flags, 4, OtuTableHelp)

	var sanityChecksFailed bool

	if !checkExist("", input) {
		sanityChecksFailed = true
	}

	if threshold <= 0 || threshold > 1 {
		sanityChecksFailed = true
		log.Println("Error: Invalid otu-threshold: ", threshold)
	}

	if nrOfThreads < 0 {
		sanityChecksFailed = true
		log.Println("Error: Invalid nr-of-threads: ", nrOfThreads)
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, OtuTableHelp)
		os.Exit(1)
	}

	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
	}

	setLogOutput(logPath)

	log.Println("Executing command:\n", os.Args[0], " otu-table ", input, " ", outputDir)

	clustering := stages.NewClustering(
		input,
		filepath.Join(outputDir, "consensus.fasta"),
		filepath.Join(outputDir, "consensus.tsv"),
		threshold,
		0,
	)

	return timedRun(timed, "", "Clustering the reads into OTUs.", 1, func() error {
		if err := clustering.Run(nrOfThreads); err != nil {
			return err
		}
		log.Printf("Clustered into %v OTUs.\n", clustering.Count())
		return nil
	})
}

// TaxaTablesHelp is the help string for the elamp taxa-tables command.
const TaxaTablesHelp = "\ntaxa-tables parameters:\n" +
	"elamp taxa-tables otu-table-file assignments-file output-dir\n" +
	"[--ranks name,name,...]\n" +
	"[--log-path path]\n"

// TaxaTables implements the elamp taxa-tables command. It derives one
// taxa table per rank from an OTU table and a taxonomic assignment
// file.
func TaxaTables() error {
	var (
		logPath string
		ranks   string
	)

	var flags flag.FlagSet

	flags.StringVar(&ranks, "ranks", "Domain,Phylum,Class,Order,Family,Genus,Species", "comma-separated rank names")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	if len(os.Args) < 5 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, TaxaTablesHelp)
		os.Exit(1)
	}

	tableFile := getFilename(os.Args[2], TaxaTablesHelp)
	assignmentsFile := getFilename(os.Args[3], TaxaTablesHelp)
	outputDir := getFilename(os.Args[4], TaxaTablesHelp)

	parseFlags(flags, 5, TaxaTablesHelp)

	var sanityChecksFailed bool

	if !checkExist("", tableFile) {
		sanityChecksFailed = true
	}

	if !checkExist("", assignmentsFile) {
		sanityChecksFailed = true
	}

	rankNames := strings.Split(ranks, ",")
	for i, name := range rankNames {
		if rankNames[i] = strings.TrimSpace(name); rankNames[i] == "" {
			sanityChecksFailed = true
			log.Println("Error: Invalid ranks: ", ranks)
			break
		}
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, TaxaTablesHelp)
		os.Exit(1)
	}

	setLogOutput(logPath)

	log.Println("Executing command:\n", os.Args[0], " taxa-tables ", tableFile, " ", assignmentsFile, " ", outputDir)

	table, err := otu.ParseTable(tableFile)
	if err != nil {
		return err
	}
	assignments, err := otu.ParseAssignments(assignmentsFile)
	if err != nil {
		return err
	}
	if err := otu.WriteTaxaTables(outputDir, rankNames, table, assignments); err != nil {
		return err
	}
	log.Printf("Wrote %v taxa tables to %v.\n", len(rankNames), outputDir)
	return nil
}
