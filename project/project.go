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

package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/exascience/elamp/fasta"
	"github.com/exascience/elamp/stages"
	"github.com/willf/bloom"
)

// Project is a named collection of samples that are pooled, clustered,
// and classified together. Attributes that drive the pooled stages
// must be uniform across the samples; NewProject enforces this.
type Project struct {
	ShortName string
	Samples   []*Sample
}

// NewProject loads the samples of the named project from one or more
// metadata sheets. Rows of other projects and rows whose used column
// is no are skipped.
func NewProject(shortName string, metadataFiles ...string) (*Project, error) {
	if !isIdentifier(shortName) || shortName != strings.ToLower(shortName) {
		return nil, fmt.Errorf("the project short name %v is not a valid identifier; use lowercase letters, digits, and underscores, and do not start with a digit", shortName)
	}
	if len(metadataFiles) == 0 {
		return nil, fmt.Errorf("no metadata sheets given for the project %v", shortName)
	}
	p := &Project{ShortName: shortName}
	num := 0
	for _, filename := range metadataFiles {
		rows, err := parseSheet(filename)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if r.str("project_short_name", "") != shortName {
				continue
			}
			used, err := r.boolean("used", true)
			if err != nil {
				return nil, err
			}
			if !used {
				continue
			}
			num++
			sample, err := newSample(r, num)
			if err != nil {
				return nil, err
			}
			p.Samples = append(p.Samples, sample)
		}
	}
	if len(p.Samples) == 0 {
		return nil, fmt.Errorf("the metadata sheets contain no used samples for the project %v", shortName)
	}
	seen := make(map[string]bool, len(p.Samples))
	for _, sample := range p.Samples {
		if seen[sample.ShortName] {
			return nil, fmt.Errorf("the sample short name %v occurs more than once in the project %v", sample.ShortName, shortName)
		}
		seen[sample.ShortName] = true
	}
	if err := p.checkHomogeneous(); err != nil {
		return nil, err
	}
	return p, nil
}

// checkHomogeneous verifies that the attributes consumed by the pooled
// stages carry the same value in every sample row.
func (p *Project) checkHomogeneous() error {
	first := p.Samples[0]
	attributes := []struct {
		name  string
		value func(*Sample) string
	}{
		{"project_long_name", func(s *Sample) string { return s.ProjectLongName }},
		{"output_dir", func(s *Sample) string { return s.OutputDir }},
		{"otu_threshold", func(s *Sample) string { return strconv.FormatFloat(s.OtuThreshold, 'f', -1, 64) }},
		{"otu_min_size", func(s *Sample) string { return strconv.Itoa(s.OtuMinSize) }},
		{"run_silva", func(s *Sample) string { return strconv.FormatBool(s.RunSilva) }},
		{"run_greengenes", func(s *Sample) string { return strconv.FormatBool(s.RunGreengenes) }},
		{"run_rdp", func(s *Sample) string { return strconv.FormatBool(s.RunRdp) }},
		{"run_ncbi_blast", func(s *Sample) string { return strconv.FormatBool(s.RunNcbiBlast) }},
	}
	for _, attribute := range attributes {
		want := attribute.value(first)
		for _, sample := range p.Samples[1:] {
			if got := attribute.value(sample); got != want {
				return fmt.Errorf("the attribute %v is not uniform across the samples of the project %v: the sample %v has %v, the sample %v has %v", attribute.name, p.ShortName, first.ShortName, want, sample.ShortName, got)
			}
		}
	}
	return nil
}

// LongName returns the description of the project.
func (p *Project) LongName() string {
	return p.Samples[0].ProjectLongName
}

// Dir returns the output directory of the project, with a trailing
// path separator.
func (p *Project) Dir() string {
	return filepath.Join(p.Samples[0].OutputDir, p.ShortName) + string(os.PathSeparator)
}

// PooledReads returns the path of the pooled reads of all samples.
func (p *Project) PooledReads() string {
	return filepath.Join(p.Dir(), "reads", "all_reads.fasta")
}

// Clustering constructs the OTU clustering stage for this project.
func (p *Project) Clustering() *stages.Clustering {
	dir := filepath.Join(p.Dir(), "otus")
	first := p.Samples[0]
	return stages.NewClustering(
		p.PooledReads(),
		filepath.Join(dir, "consensus.fasta"),
		filepath.Join(dir, "consensus.tsv"),
		first.OtuThreshold,
		first.OtuMinSize,
	)
}

// Databases returns the taxonomic reference databases enabled for this
// project, looked up under root.
func (p *Project) Databases(root string) []stages.Database {
	known := stages.KnownDatabases(root)
	first := p.Samples[0]
	enabled := map[string]bool{
		"silva":      first.RunSilva,
		"greengenes": first.RunGreengenes,
		"rdp":        first.RunRdp,
	}
	var databases []stages.Database
	for _, database := range known {
		if enabled[database.Name] {
			databases = append(databases, database)
		}
	}
	return databases
}

// Classify constructs the taxonomy assignment stage for one database.
func (p *Project) Classify(database stages.Database) *stages.Classify {
	return stages.NewClassify(
		p.Clustering().OTUs,
		filepath.Join(p.Dir(), "taxonomy", database.Name)+string(os.PathSeparator),
		database,
	)
}

// BlastClassify constructs the BLAST classification stage for this
// project. database is the path prefix of a formatted nucleotide
// database.
func (p *Project) BlastClassify(database string) *stages.BlastClassify {
	return stages.NewBlastClassify(
		p.Clustering().OTUs,
		database,
		filepath.Join(p.Dir(), "taxonomy", "ncbi_blast")+string(os.PathSeparator),
	)
}

// PoolReads concatenates the per-sample reads that survived all
// per-sample stages into a single FASTA file. Every sample must have
// run its last stage first. The pooled read count must equal the sum
// of the per-sample read counts, and read names must be unique across
// samples.
func (p *Project) PoolReads() (n int, err error) {
	expected := 0
	for _, sample := range p.Samples {
		input, cerr := sample.FinalStage().Results()
		if cerr != nil {
			return 0, fmt.Errorf("%v, while pooling the reads of the sample %v", cerr, sample.ShortName)
		}
		count, cerr := fasta.Count(input)
		if cerr != nil {
			return 0, fmt.Errorf("%v, while counting the reads of the sample %v", cerr, sample.ShortName)
		}
		expected += count
	}
	pooled := p.PooledReads()
	if err := os.MkdirAll(filepath.Dir(pooled), 0700); err != nil {
		return 0, err
	}
	output, err := fasta.Create(pooled)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := output.Close(); err == nil {
			err = cerr
		}
	}()
	// A Bloom filter screens for duplicate read names. Positives are
	// only candidates, so they are confirmed by an exact recount
	// afterwards.
	screen := bloom.NewWithEstimates(uint(expected)+1, 1e-4)
	suspects := make(map[string]int)
	for _, sample := range p.Samples {
		input, err := fasta.Open(sample.Final())
		if err != nil {
			return 0, err
		}
		for {
			record, err := input.Next()
			if err != nil {
				input.Close()
				return 0, err
			}
			if record == nil {
				break
			}
			if screen.TestAndAddString(record.Name) {
				suspects[record.Name] = 0
			}
			if err := output.Write(record); err != nil {
				input.Close()
				return 0, err
			}
			n++
		}
		if err := input.Close(); err != nil {
			return 0, err
		}
	}
	if len(suspects) > 0 {
		if err := confirmDuplicates(pooled, suspects); err != nil {
			return 0, err
		}
	}
	if n != expected {
		return 0, fmt.Errorf("pooled %v reads for the project %v, but the samples contain %v reads in total", n, p.ShortName, expected)
	}
	return n, nil
}

// confirmDuplicates recounts the occurrences of the suspect read names
// in the pooled file and reports the names that really occur more than
// once.
func confirmDuplicates(pooled string, suspects map[string]int) error {
	input, err := fasta.Open(pooled)
	if err != nil {
		return err
	}
	defer input.Close()
	for {
		record, err := input.Next()
		if err != nil {
			return err
		}
		if record == nil {
			break
		}
		if _, ok := suspects[record.Name]; ok {
			suspects[record.Name]++
		}
	}
	for name, count := range suspects {
		if count > 1 {
			return fmt.Errorf("the read name %v occurs %v times in the pooled reads; read names must be unique across samples", name, count)
		}
	}
	return nil
}
