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
	"fmt"
	"os"
	"path/filepath"

	"github.com/exascience/elamp/filters"
)

// FilterParams are the parameters of the sequence filter cascade. A
// pass whose parameters are left at their zero values is skipped: its
// artifact is then an unmodified copy of the previous artifact.
type FilterParams struct {
	FwdPrimer, RevPrimer string
	PrimerMismatches     int
	PrimerMaxDist        int
	MinReadLength        int
	MaxReadLength        int
	PhredWindowSize      int
	PhredThreshold       float64
}

// FilterCounts records how many reads survived each pass of the
// cascade.
type FilterCounts struct {
	Input, Primers, NBases, Length, Score int
}

// SeqFilter is the sequence filter cascade stage of one sample. It
// runs four passes over the raw reads, each writing a named FASTQ
// artifact into Dir: primer location and trimming (primers.fastq),
// removal of reads with undetermined bases (n_base.fastq), read length
// bounds (length.fastq), and the sliding window quality filter
// (score.fastq). The surviving reads are finally renamed to
// <sample>:<n> (renamed.fastq), which is the cleaned result.
type SeqFilter struct {
	Gate
	Sample string
	Source string
	Dir    string
	Params FilterParams
	Counts FilterCounts
}

// NewSeqFilter returns the filter cascade stage for a sample with the
// given raw reads.
func NewSeqFilter(sample, source, dir string, params FilterParams) *SeqFilter {
	return &SeqFilter{
		Gate:   Gate{Stage: "sequence filter", Artifact: filepath.Join(dir, "renamed.fastq")},
		Sample: sample,
		Source: source,
		Dir:    dir,
		Params: params,
	}
}

// Artifact paths of the intermediate passes.
func (s *SeqFilter) primersFastq() string { return filepath.Join(s.Dir, "primers.fastq") }
func (s *SeqFilter) nBaseFastq() string   { return filepath.Join(s.Dir, "n_base.fastq") }
func (s *SeqFilter) lengthFastq() string  { return filepath.Join(s.Dir, "length.fastq") }
func (s *SeqFilter) scoreFastq() string   { return filepath.Join(s.Dir, "score.fastq") }

// Run runs the cascade. A cascade that leaves no reads at all is a
// hard error, since every downstream stage would be meaningless.
func (s *SeqFilter) Run() error {
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return err
	}
	input, err := countReads(s.Source)
	if err != nil {
		return err
	}
	s.Counts.Input = input
	var primerFilters []filters.ReadFilter
	if s.Params.FwdPrimer != "" && s.Params.RevPrimer != "" {
		primerFilters = append(primerFilters, filters.TrimPrimers(
			s.Params.FwdPrimer, s.Params.RevPrimer,
			s.Params.PrimerMismatches, s.Params.PrimerMaxDist,
		))
	}
	if s.Counts.Primers, err = filters.RunFilter(s.Source, s.primersFastq(), primerFilters...); err != nil {
		return err
	}
	if s.Counts.NBases, err = filters.RunFilter(s.primersFastq(), s.nBaseFastq(), filters.RemoveNBases()); err != nil {
		return err
	}
	var lengthFilters []filters.ReadFilter
	if s.Params.MinReadLength > 0 || s.Params.MaxReadLength > 0 {
		lengthFilters = append(lengthFilters, filters.FilterLength(s.Params.MinReadLength, s.Params.MaxReadLength))
	}
	if s.Counts.Length, err = filters.RunFilter(s.nBaseFastq(), s.lengthFastq(), lengthFilters...); err != nil {
		return err
	}
	var scoreFilters []filters.ReadFilter
	if s.Params.PhredWindowSize > 0 && s.Params.PhredThreshold > 0 {
		scoreFilters = append(scoreFilters, filters.FilterQuality(s.Params.PhredWindowSize, s.Params.PhredThreshold))
	}
	if s.Counts.Score, err = filters.RunFilter(s.lengthFastq(), s.scoreFastq(), scoreFilters...); err != nil {
		return err
	}
	if s.Counts.Score == 0 {
		return fmt.Errorf("no reads left after filtering the sample %v", s.Sample)
	}
	n, err := filters.Rename(s.scoreFastq(), s.Artifact, s.Sample)
	if err != nil {
		return err
	}
	return s.Complete(n)
}
