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
	"strings"

	"github.com/exascience/elamp/stages"
)

// Sample holds the metadata of one sequenced sample and constructs the
// per-sample pipeline stages.
type Sample struct {
	Project         string
	ProjectLongName string
	ShortName       string
	LongName        string
	Num             int
	InputDir        string
	FastqFileName   string
	OutputDir       string
	Filter          stages.FilterParams
	BarrnapMode     stages.BarrnapMode
	RunBarrnap      bool
	OtuThreshold    float64
	OtuMinSize      int
	RunSilva        bool
	RunGreengenes   bool
	RunRdp          bool
	RunNcbiBlast    bool
}

// newSample builds a Sample from a metadata row. num is the 1-based
// position of the row in the sheet, used when sample_num is absent.
func newSample(r row, num int) (*Sample, error) {
	s := &Sample{
		Project:         r.str("project_short_name", ""),
		ProjectLongName: r.str("project_long_name", ""),
		ShortName:       r.str("sample_short_name", ""),
		LongName:        r.str("sample_long_name", ""),
		InputDir:        r.str("input_dir", ""),
		FastqFileName:   r.str("fastq_file_name", ""),
		OutputDir:       r.str("output_dir", ""),
	}
	var err error
	if s.Num, err = r.integer("sample_num", num); err != nil {
		return nil, err
	}
	s.Filter.FwdPrimer = r.str("fwd_primer", "")
	s.Filter.RevPrimer = r.str("rev_primer", "")
	if s.Filter.PrimerMismatches, err = r.integer("primer_mismatches", 0); err != nil {
		return nil, err
	}
	if s.Filter.PrimerMaxDist, err = r.integer("primer_max_dist", 0); err != nil {
		return nil, err
	}
	if s.Filter.MinReadLength, err = r.integer("min_read_length", 0); err != nil {
		return nil, err
	}
	if s.Filter.MaxReadLength, err = r.integer("max_read_length", 0); err != nil {
		return nil, err
	}
	if s.Filter.PhredWindowSize, err = r.integer("phred_window_size", 0); err != nil {
		return nil, err
	}
	if s.Filter.PhredThreshold, err = r.float("phred_threshold", 0); err != nil {
		return nil, err
	}
	if mode := r.str("barrnap_mode", "off"); mode != "off" {
		if s.BarrnapMode, err = stages.ParseBarrnapMode(mode); err != nil {
			return nil, err
		}
		s.RunBarrnap = true
	}
	if s.OtuThreshold, err = r.float("otu_threshold", 0.97); err != nil {
		return nil, err
	}
	if s.OtuMinSize, err = r.integer("otu_min_size", 2); err != nil {
		return nil, err
	}
	if s.RunSilva, err = r.boolean("run_silva", true); err != nil {
		return nil, err
	}
	if s.RunGreengenes, err = r.boolean("run_greengenes", false); err != nil {
		return nil, err
	}
	if s.RunRdp, err = r.boolean("run_rdp", false); err != nil {
		return nil, err
	}
	if s.RunNcbiBlast, err = r.boolean("run_ncbi_blast", false); err != nil {
		return nil, err
	}
	return s, nil
}

// isIdentifier tells whether name consists of letters, digits, and
// underscores, and does not start with a digit.
func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		switch c := name[i]; {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Validate checks the sample metadata and the presence of the raw
// reads. Directory attributes must end with a path separator so that
// they cannot be confused with file names.
func (s *Sample) Validate() error {
	if !isIdentifier(s.ShortName) {
		return fmt.Errorf("the sample short name %v is not a valid identifier; use letters, digits, and underscores, and do not start with a digit", s.ShortName)
	}
	for _, dir := range []struct{ column, value string }{
		{"input_dir", s.InputDir},
		{"output_dir", s.OutputDir},
	} {
		if dir.value == "" {
			return fmt.Errorf("the metadata column %v is missing for the sample %v", dir.column, s.ShortName)
		}
		if !strings.HasSuffix(dir.value, string(os.PathSeparator)) {
			return fmt.Errorf("the metadata column %v for the sample %v must end with a path separator, got %v", dir.column, s.ShortName, dir.value)
		}
	}
	if s.FastqFileName == "" {
		return fmt.Errorf("the metadata column fastq_file_name is missing for the sample %v", s.ShortName)
	}
	if _, err := os.Stat(s.Fastq()); err != nil {
		return fmt.Errorf("the raw reads of the sample %v are not accessible: %v", s.ShortName, err)
	}
	return nil
}

// Fastq returns the full path of the raw reads of this sample.
func (s *Sample) Fastq() string {
	return filepath.Join(s.InputDir, s.FastqFileName)
}

// Dir returns the output directory of this sample, with a trailing
// path separator.
func (s *Sample) Dir() string {
	return filepath.Join(s.OutputDir, s.Project, s.ShortName) + string(os.PathSeparator)
}

// FastQC constructs the raw read quality report stage for this sample.
func (s *Sample) FastQC() *stages.FastQC {
	return stages.NewFastQC(s.Fastq(), filepath.Join(s.Dir(), "fastqc")+string(os.PathSeparator))
}

// SeqFilter constructs the quality filter cascade for this sample.
func (s *Sample) SeqFilter() *stages.SeqFilter {
	return stages.NewSeqFilter(s.ShortName, s.Fastq(), filepath.Join(s.Dir(), "filtered")+string(os.PathSeparator), s.Filter)
}

// Chimeras constructs the chimera removal stage for this sample. Its
// input is the artifact of the filter cascade.
func (s *Sample) Chimeras() *stages.ChimeraRemoval {
	dir := filepath.Join(s.Dir(), "chimeras")
	return stages.NewChimeraRemoval(
		s.SeqFilter().Artifact,
		filepath.Join(dir, "no_chimeras.fasta"),
		filepath.Join(dir, "yes_chimeras.fasta"),
	)
}

// Barrnap constructs the rRNA extraction stage for this sample. It
// must only be called when RunBarrnap is true.
func (s *Sample) Barrnap() *stages.Barrnap {
	dir := filepath.Join(s.Dir(), "barrnap")
	return stages.NewBarrnap(
		s.Chimeras().Cleaned,
		filepath.Join(dir, "barrnap.gff"),
		filepath.Join(dir, "barrnap.fasta"),
		s.BarrnapMode,
	)
}

// Final returns the path of the reads of this sample after all
// per-sample stages, the input to read pooling.
func (s *Sample) Final() string {
	if s.RunBarrnap {
		return s.Barrnap().Output
	}
	return s.Chimeras().Cleaned
}

// FinalStage returns the gate of the stage that produces Final().
func (s *Sample) FinalStage() *stages.Gate {
	if s.RunBarrnap {
		return &s.Barrnap().Gate
	}
	return &s.Chimeras().Gate
}
