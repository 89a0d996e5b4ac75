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

// Package filters implements the quality filters that are applied to
// amplicon sequencing reads, and the parallel pipeline that streams
// reads from a FASTQ input file through the filters into a FASTQ
// output file.
package filters

import (
	"fmt"

	"github.com/exascience/elamp/fastq"
	"github.com/exascience/pargo/pipeline"
)

// A ReadFilter receives a read and returns the read that should be
// kept in its place, which may be the same read, a trimmed or
// reoriented copy, or nil if the read should be removed.
type ReadFilter func(*fastq.Read) *fastq.Read

const (
	minBatchSize = 512
	maxBatchSize = 16384
)

// ComposeFilters returns a pargo pipeline.Receiver that applies the
// given ReadFilter functions in order on the slices of Read pointers
// it receives, removing the reads for which a filter returns nil.
// ComposeFilters returns nil if there are no filters.
func ComposeFilters(filters []ReadFilter) (receiver pipeline.Receiver) {
	if len(filters) > 0 {
		receiver = func(_ int, data interface{}) interface{} {
			reads := data.([]*fastq.Read)
			kept := reads[:0]
		readLoop:
			for _, read := range reads {
				for _, filter := range filters {
					if read = filter(read); read == nil {
						continue readLoop
					}
				}
				kept = append(kept, read)
			}
			return kept
		}
	}
	return
}

// a formatted batch of reads, ready to be written out
type batch struct {
	n     int
	bytes []byte
}

// readsToBytes returns a pargo pipeline.Filter that formats slices of
// Read pointers into the byte representation of the FASTQ file format.
func readsToBytes() pipeline.Filter {
	return func(_ *pipeline.Pipeline, _ pipeline.NodeKind, _ *int) (receiver pipeline.Receiver, _ pipeline.Finalizer) {
		receiver = func(_ int, data interface{}) interface{} {
			reads := data.([]*fastq.Read)
			var buf []byte
			for _, read := range reads {
				buf = fastq.Format(read, buf)
			}
			return batch{n: len(reads), bytes: buf}
		}
		return
	}
}

// RunFilter streams the reads of the input FASTQ file through the
// given filters and writes the reads that survive to the output FASTQ
// file, preserving the input order. It returns the number of reads
// written.
func RunFilter(input, output string, filters ...ReadFilter) (kept int, err error) {
	in, err := fastq.Open(input)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := in.Close(); err == nil {
			err = cerr
		}
	}()
	out, err := fastq.Create(output)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	var p pipeline.Pipeline
	p.Source(in)
	p.SetVariableBatchSize(minBatchSize, maxBatchSize)
	if receiver := ComposeFilters(filters); receiver != nil {
		p.Add(pipeline.LimitedPar(0, pipeline.Receive(receiver)))
	}
	p.Add(
		pipeline.LimitedPar(0, readsToBytes()),
		pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
			b := data.(batch)
			if _, werr := out.WriteBytes(b.bytes); werr != nil {
				p.SetErr(fmt.Errorf("%v, while writing filtered reads to %v", werr, output))
				return data
			}
			kept += b.n
			return data
		})),
	)
	p.Run()
	return kept, p.Err()
}
