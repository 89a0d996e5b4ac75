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
	"strconv"

	"github.com/exascience/elamp/fasta"
	"github.com/exascience/elamp/intervals"
)

// A BarrnapMode selects what happens to the reads after rRNA gene
// prediction.
type BarrnapMode int

const (
	// BarrnapFilter keeps only reads with both a 16S and a 23S gene,
	// unmodified.
	BarrnapFilter BarrnapMode = iota
	// BarrnapExtract slices the 16S gene region out of each read that
	// has one.
	BarrnapExtract
	// BarrnapConcat concatenates the 16S and 23S gene regions of each
	// read that has a 16S gene, dropping the ITS between them.
	BarrnapConcat
)

func (m BarrnapMode) String() string {
	switch m {
	case BarrnapFilter:
		return "filter"
	case BarrnapExtract:
		return "extract"
	case BarrnapConcat:
		return "concat"
	default:
		return "unknown"
	}
}

// ParseBarrnapMode parses the mode names accepted in metadata and on
// the command line.
func ParseBarrnapMode(s string) (BarrnapMode, error) {
	switch s {
	case "filter":
		return BarrnapFilter, nil
	case "extract":
		return BarrnapExtract, nil
	case "concat":
		return BarrnapConcat, nil
	default:
		return 0, fmt.Errorf("unknown rRNA extraction mode %v; use filter, extract, or concat", s)
	}
}

const barrnapURL = "https://github.com/tseemann/barrnap"

// Predictions below this proportion of the expected gene length are
// rejected.
const barrnapRejectThreshold = 0.4

// Barrnap predicts ribosomal RNA genes on the reads of a sample with
// barrnap and processes the reads according to Mode.
type Barrnap struct {
	Gate
	Source string
	Gff    string
	Output string
	Mode   BarrnapMode
}

// NewBarrnap returns the rRNA prediction stage for the given FASTA
// file.
func NewBarrnap(source, gff, output string, mode BarrnapMode) *Barrnap {
	return &Barrnap{
		Gate:   Gate{Stage: "rRNA prediction", Artifact: output},
		Source: source,
		Gff:    gff,
		Output: output,
		Mode:   mode,
	}
}

// region returns the single merged gene region of a read, or false if
// the read has no hit for the gene. Overlapping and adjacent hits are
// merged; when disjoint regions remain, the leftmost one wins, so a
// read always keeps the first gene copy on its forward strand.
func region(hits map[string][]intervals.Interval, read string) (intervals.Interval, bool) {
	regions := hits[read]
	if len(regions) == 0 {
		return intervals.Interval{}, false
	}
	intervals.SortByStart(regions)
	return intervals.Flatten(regions)[0], true
}

// clip bounds an interval to the length of a read. barrnap can report
// a partial gene running up to the read end.
func clip(region intervals.Interval, length int) (int, int) {
	start, end := int(region.Start), int(region.End)
	if start < 0 {
		start = 0
	}
	if end > length {
		end = length
	}
	return start, end
}

// Run runs the gene prediction, then rewrites the reads per Mode.
func (b *Barrnap) Run(threads int) (err error) {
	if err := CheckInstalled("barrnap", barrnapURL); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(b.Gff), 0700); err != nil {
		return err
	}
	err = runTool("", b.Gff, "",
		"barrnap", b.Source,
		"--threads", strconv.Itoa(Threads(threads)),
		"--reject", strconv.FormatFloat(barrnapRejectThreshold, 'f', -1, 64),
	)
	if err != nil {
		return err
	}
	hits16s, err := intervals.FromGffFile(b.Gff, "16S_rRNA")
	if err != nil {
		return err
	}
	hits23s, err := intervals.FromGffFile(b.Gff, "23S_rRNA")
	if err != nil {
		return err
	}
	reader, err := fasta.Open(b.Source)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := reader.Close(); err == nil {
			err = cerr
		}
	}()
	writer, err := fasta.Create(b.Output)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := writer.Close(); err == nil {
			err = cerr
		}
	}()
	n := 0
	for {
		record, rerr := reader.Next()
		if rerr != nil {
			return rerr
		}
		if record == nil {
			break
		}
		out := b.process(record, hits16s, hits23s)
		if out == nil {
			continue
		}
		if werr := writer.Write(out); werr != nil {
			return werr
		}
		n++
	}
	return b.Complete(n)
}

func (b *Barrnap) process(record *fasta.Record, hits16s, hits23s map[string][]intervals.Interval) *fasta.Record {
	switch b.Mode {
	case BarrnapFilter:
		_, has16s := region(hits16s, record.Name)
		_, has23s := region(hits23s, record.Name)
		if has16s && has23s {
			return record
		}
		return nil
	case BarrnapExtract:
		gene, ok := region(hits16s, record.Name)
		if !ok {
			return nil
		}
		start, end := clip(gene, len(record.Seq))
		return &fasta.Record{Name: record.Name, Seq: record.Seq[start:end]}
	case BarrnapConcat:
		gene16s, ok := region(hits16s, record.Name)
		if !ok {
			return nil
		}
		start, end := clip(gene16s, len(record.Seq))
		seq := append([]byte(nil), record.Seq[start:end]...)
		if gene23s, ok := region(hits23s, record.Name); ok {
			start, end := clip(gene23s, len(record.Seq))
			seq = append(seq, record.Seq[start:end]...)
		}
		return &fasta.Record{Name: record.Name, Seq: seq}
	default:
		return nil
	}
}
