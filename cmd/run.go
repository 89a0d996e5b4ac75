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
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/exascience/elamp/fastq"
	"github.com/exascience/elamp/internal"
	"github.com/exascience/elamp/project"
	"github.com/exascience/elamp/reports"
	"github.com/exascience/elamp/stages"
	"github.com/exascience/pargo/parallel"
	"github.com/google/uuid"
)

// RunHelp is the help string for the elamp run command.
const RunHelp = "\nrun parameters:\n" +
	"elamp run project metadata-file\n" +
	"[--config toml-file]\n" +
	"[--nr-of-threads nr]\n" +
	"[--databases dir]\n" +
	"[--blast-db prefix]\n" +
	"[--timed]\n" +
	"[--log-path path]\n" +
	"[--profile prefix]\n" +
	"\nThe project name and the metadata file can also be passed in the\n" +
	"ELAMP_PROJECT and ELAMP_METADATA environment variables.\n"

// RunConfig holds the settings of the elamp run command that usually
// stay identical across runs, so they can be kept in a TOML file
// instead of being repeated on every command line. Command line flags
// override the file.
type RunConfig struct {
	NrOfThreads   int    `toml:"nr_of_threads"`
	DatabasesRoot string `toml:"databases_root"`
	BlastDatabase string `toml:"blast_database"`
	LogPath       string `toml:"log_path"`
}

// the configuration file picked up when --config is not given
const defaultConfigFile = "elamp.toml"

func loadRunConfig(filename string) (*RunConfig, error) {
	config := new(RunConfig)
	if filename == "" {
		if !internal.FileExists(defaultConfigFile) {
			return config, nil
		}
		filename = defaultConfigFile
	}
	if _, err := toml.DecodeFile(filename, config); err != nil {
		return nil, fmt.Errorf("%v, while parsing the configuration file %v", err, filename)
	}
	return config, nil
}

// Run implements the elamp run command. It runs the full pipeline for
// one project: validation, quality reports, the filter cascade,
// chimera removal, optional rRNA extraction, read pooling, OTU
// clustering, taxonomic assignment, taxa tables, the project report,
// and the result bundle. Stages whose artifacts already exist are
// skipped, so an interrupted run can be resumed.
func Run() error {
	var (
		configFile, databasesRoot, blastDatabase string
		logPath, profile                         string
		nrOfThreads                              int
		timed                                    bool
	)

	var flags flag.FlagSet

	flags.StringVar(&configFile, "config", "", "TOML configuration file")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.StringVar(&databasesRoot, "databases", "", "directory of the taxonomic reference databases")
	flags.StringVar(&blastDatabase, "blast-db", "", "path prefix of the formatted NCBI 16S database")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	flags.StringVar(&profile, "profile", "", "write a CPU profile per phase with the given prefix")

	projectName, next := getArgument(2, "ELAMP_PROJECT", RunHelp)
	metadataFile, next := getArgument(next, "ELAMP_METADATA", RunHelp)

	parseFlags(flags, next, RunHelp)

	config, err := loadRunConfig(configFile)
	if err != nil {
		return err
	}
	if nrOfThreads == 0 {
		nrOfThreads = config.NrOfThreads
	}
	if databasesRoot == "" {
		databasesRoot = config.DatabasesRoot
	}
	if blastDatabase == "" {
		blastDatabase = config.BlastDatabase
	}
	if logPath == "" {
		logPath = config.LogPath
	}

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", metadataFile) {
		sanityChecksFailed = true
	}

	if nrOfThreads < 0 {
		sanityChecksFailed = true
		log.Println("Error: Invalid nr-of-threads: ", nrOfThreads)
	}

	// timedRun writes one profile per phase
	if profile != "" && !checkCreate("--profile", profile+"1.prof") {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, RunHelp)
		os.Exit(1)
	}

	// the stages look these up through the environment
	if databasesRoot != "" {
		if err := os.Setenv("ELAMP_DATABASES", databasesRoot); err != nil {
			return err
		}
	}
	if blastDatabase != "" {
		if err := os.Setenv("ELAMP_BLAST_DB", blastDatabase); err != nil {
			return err
		}
	}
	if blastDatabase == "" {
		blastDatabase = stages.BlastDatabase()
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " run ", projectName, " ", metadataFile)
	if configFile != "" {
		fmt.Fprint(&command, " --config ", configFile)
	}
	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
		fmt.Fprint(&command, " --nr-of-threads ", nrOfThreads)
	}
	if databasesRoot != "" {
		fmt.Fprint(&command, " --databases ", databasesRoot)
	}
	if blastDatabase != "" {
		fmt.Fprint(&command, " --blast-db ", blastDatabase)
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
	log.Println("Run id:", uuid.New())

	p, err := project.NewProject(projectName, metadataFile)
	if err != nil {
		return err
	}
	log.Printf("Loaded the project %v with %v samples.\n", p.ShortName, len(p.Samples))

	phase := 0
	run := func(msg string, f func() error) {
		if err != nil {
			return
		}
		phase++
		err = timedRun(timed, profile, msg, phase, f)
	}

	run("Validating the samples.", func() error {
		return forEachSample(p, func(sample *project.Sample) error {
			if err := sample.Validate(); err != nil {
				return err
			}
			_, err := fastq.Validate(sample.Fastq())
			return err
		})
	})

	run("Running FastQC on the raw reads.", func() error {
		for _, sample := range p.Samples {
			fastqc := sample.FastQC()
			if fastqc.HasRun() {
				continue
			}
			if err := fastqc.Run(nrOfThreads); err != nil {
				return err
			}
		}
		return nil
	})

	run("Running the filter cascade.", func() error {
		return forEachSample(p, func(sample *project.Sample) error {
			filter := sample.SeqFilter()
			if filter.HasRun() {
				return nil
			}
			return filter.Run()
		})
	})

	toolThreads := stages.Threads(nrOfThreads)
	if len(p.Samples) > 1 {
		if toolThreads = toolThreads / len(p.Samples); toolThreads == 0 {
			toolThreads = 1
		}
	}

	run("Removing chimeric reads.", func() error {
		return forEachSample(p, func(sample *project.Sample) error {
			chimeras := sample.Chimeras()
			if chimeras.HasRun() {
				return nil
			}
			return chimeras.Run(toolThreads)
		})
	})

	run("Extracting ribosomal RNA genes.", func() error {
		return forEachSample(p, func(sample *project.Sample) error {
			if !sample.RunBarrnap {
				return nil
			}
			barrnap := sample.Barrnap()
			if barrnap.HasRun() {
				return nil
			}
			return barrnap.Run(toolThreads)
		})
	})

	run("Pooling the reads of all samples.", func() error {
		n, err := p.PoolReads()
		if err != nil {
			return err
		}
		log.Printf("Pooled %v reads.\n", n)
		return nil
	})

	clustering := p.Clustering()

	run("Clustering the pooled reads into OTUs.", func() error {
		if clustering.HasRun() {
			return nil
		}
		return clustering.Run(nrOfThreads)
	})

	if p.Samples[0].RunNcbiBlast {
		run("Matching the OTUs against the NCBI 16S database.", func() error {
			blast := p.BlastClassify(blastDatabase)
			if blast.HasRun() {
				return nil
			}
			return blast.Run(nrOfThreads)
		})
	}

	for _, database := range p.Databases(stages.DatabasesRoot()) {
		database := database
		run(fmt.Sprint("Assigning taxonomies with the ", database.Name, " database."), func() error {
			classify := p.Classify(database)
			if !classify.HasRun() {
				if err := classify.Run(nrOfThreads); err != nil {
					return err
				}
			}
			table, err := clustering.Table()
			if err != nil {
				return err
			}
			return classify.WriteTaxaTables(table)
		})
	}

	run("Writing the project report.", func() error {
		filename, err := reports.Write(p)
		if err != nil {
			return err
		}
		log.Println("Wrote the project report to", filename)
		return nil
	})

	run("Bundling the results.", func() error {
		dir, err := reports.Bundle(p)
		if err != nil {
			return err
		}
		log.Println("Bundled the results in", dir)
		return nil
	})

	return err
}

// forEachSample runs f for all samples of a project in parallel and
// reports the error of the first sample that failed.
func forEachSample(p *project.Project, f func(*project.Sample) error) error {
	errs := make([]error, len(p.Samples))
	parallel.Range(0, len(p.Samples), 1, func(low, high int) {
		for i := low; i < high; i++ {
			errs[i] = f(p.Samples[i])
		}
	})
	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("%v, while processing the sample %v", err, p.Samples[i].ShortName)
		}
	}
	return nil
}
