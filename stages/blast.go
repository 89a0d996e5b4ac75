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

package stages

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const blastURL = "https://blast.ncbi.nlm.nih.gov/Blast.cgi?PAGE_TYPE=BlastDocs&DOC_TYPE=Download"

// Blast search parameters against the NCBI 16S database.
const (
	blastMinEValue       = "1e-5"
	blastMinPercIdentity = "97"
	blastMaxTargetSeqs   = "5"
)

// BlastDatabase returns the path prefix of the formatted NCBI 16S
// database, the ELAMP_BLAST_DB environment variable, or the default
// location under the database directory when it is not set.
func BlastDatabase() string {
	if db := os.Getenv("ELAMP_BLAST_DB"); db != "" {
		return db
	}
	return filepath.Join(DatabasesRoot(), "ncbi", "16S_ribosomal_RNA")
}

// BlastClassify matches OTU consensus sequences against the NCBI 16S
// database with blastn, keeping the best hit per OTU as a
// species-level label.
type BlastClassify struct {
	Gate
	Source   string
	Database string
	DestDir  string
}

// NewBlastClassify returns the BLAST classification stage for the
// given consensus sequences. database is the path prefix of a
// formatted BLAST nucleotide database.
func NewBlastClassify(source, database, destDir string) *BlastClassify {
	return &BlastClassify{
		Gate:     Gate{Stage: "BLAST classification", Artifact: filepath.Join(destDir, "best_hits.tsv")},
		Source:   source,
		Database: database,
		DestDir:  destDir,
	}
}

func (b *BlastClassify) hits() string { return filepath.Join(b.DestDir, "hits.tsv") }

// Run runs the search and reduces the tabular output to the best hit
// per OTU. blastn reports hits in decreasing quality per query, so the
// first hit per query wins.
func (b *BlastClassify) Run(threads int) (err error) {
	if err := CheckInstalled("blastn", blastURL); err != nil {
		return err
	}
	if _, err := os.Stat(b.Database + ".nin"); err != nil {
		if _, err := os.Stat(b.Database + ".nal"); err != nil {
			return fmt.Errorf("the BLAST database %v does not seem to be accessible; download the NCBI 16S database and run makeblastdb first", b.Database)
		}
	}
	if err := os.MkdirAll(b.DestDir, 0700); err != nil {
		return err
	}
	err = runTool("", "", filepath.Join(b.DestDir, "stderr.txt"),
		"blastn",
		"-query", b.Source,
		"-db", b.Database,
		"-out", b.hits(),
		"-outfmt", "6 qseqid sseqid pident evalue stitle",
		"-evalue", blastMinEValue,
		"-perc_identity", blastMinPercIdentity,
		"-max_target_seqs", blastMaxTargetSeqs,
		"-num_threads", strconv.Itoa(Threads(threads)),
	)
	if err != nil {
		return err
	}
	return b.reduce()
}

// reduce writes the best hit per OTU to the artifact.
func (b *BlastClassify) reduce() (err error) {
	in, err := os.Open(b.hits())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := in.Close(); err == nil {
			err = cerr
		}
	}()
	out, err := os.Create(b.Artifact)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	buf := bufio.NewWriter(out)
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), "\t", 5)
		if len(fields) < 5 || seen[fields[0]] {
			continue
		}
		seen[fields[0]] = true
		if _, err := buf.WriteString(fields[0] + "\t" + fields[4] + "\n"); err != nil {
			return err
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	return b.Complete(n)
}
