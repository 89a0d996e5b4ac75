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

// Package otu implements the OTU table produced by clustering the
// pooled reads, and the taxa tables derived from it by combining it
// with taxonomic assignments.
//
// The same OTU is spelled differently in different tool outputs: the
// table reports "s:1034", the consensus FASTA file reports
// "centroid=s:1034;seqs=128", and the classifier renames it to
// "s_1034". Canonical converts all three spellings to the last form,
// which is the one used as key throughout.
package otu

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/exascience/elamp/fasta"
	"github.com/willf/bitset"
)

// Canonical returns the canonical spelling of an OTU identifier.
func Canonical(id string) string {
	if strings.HasPrefix(id, "centroid=") {
		id = id[len("centroid="):]
		if i := strings.IndexByte(id, ';'); i >= 0 {
			id = id[:i]
		}
	}
	return strings.Replace(id, ":", "_", -1)
}

// A Table tracks how many reads of each sample ended up in each OTU.
type Table struct {
	Samples []string
	OTUs    []string
	counts  map[string][]int
}

// Counts returns the per-sample read counts for an OTU, in the order
// of the Samples slice, or nil if the OTU is not in the table.
func (t *Table) Counts(otu string) []int {
	return t.counts[Canonical(otu)]
}

// SampleSum returns the total number of reads of the given sample
// across all OTUs.
func (t *Table) SampleSum(sample string) int {
	column := -1
	for i, name := range t.Samples {
		if name == sample {
			column = i
			break
		}
	}
	if column < 0 {
		return 0
	}
	sum := 0
	for _, counts := range t.counts {
		sum += counts[column]
	}
	return sum
}

// Total returns the total number of reads in the table.
func (t *Table) Total() int {
	sum := 0
	for _, counts := range t.counts {
		for _, count := range counts {
			sum += count
		}
	}
	return sum
}

// ParseTable parses the TSV file that clustering produces. The first
// line is a header of the form "#OTU ID" followed by the sample names;
// each further line is an OTU identifier followed by per-sample read
// counts.
func ParseTable(filename string) (table *Table, err error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			table, err = nil, cerr
		}
	}()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	if !scanner.Scan() {
		return nil, fmt.Errorf("empty OTU table %v", filename)
	}
	header := strings.Split(scanner.Text(), "\t")
	if len(header) < 2 || !strings.HasPrefix(header[0], "#OTU") {
		return nil, fmt.Errorf("invalid OTU table header in %v", filename)
	}
	table = &Table{
		Samples: header[1:],
		counts:  make(map[string][]int),
	}
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != len(header) {
			return nil, fmt.Errorf("invalid OTU table row %v in %v", scanner.Text(), filename)
		}
		id := Canonical(fields[0])
		counts := make([]int, len(fields)-1)
		for i, field := range fields[1:] {
			count, cerr := strconv.Atoi(field)
			if cerr != nil {
				return nil, fmt.Errorf("%v, while parsing OTU table row %v in %v", cerr, scanner.Text(), filename)
			}
			counts[i] = count
		}
		if _, ok := table.counts[id]; ok {
			return nil, fmt.Errorf("duplicate OTU %v in %v", id, filename)
		}
		table.OTUs = append(table.OTUs, id)
		table.counts[id] = counts
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(table.OTUs) == 0 {
		return nil, fmt.Errorf("no OTUs in table %v", filename)
	}
	return table, nil
}

// VerifyAgainst checks that the OTUs in the table and the consensus
// sequences in the given FASTA file identify the same set, modulo the
// spelling differences that Canonical resolves.
func (t *Table) VerifyAgainst(fastaFile string) error {
	index := make(map[string]uint, len(t.OTUs))
	for i, id := range t.OTUs {
		index[id] = uint(i)
	}
	seen := bitset.New(uint(len(t.OTUs)))
	reader, err := fasta.Open(fastaFile)
	if err != nil {
		return err
	}
	defer reader.Close()
	for {
		record, err := reader.Next()
		if err != nil {
			return err
		}
		if record == nil {
			break
		}
		id := Canonical(record.Name)
		i, ok := index[id]
		if !ok {
			return fmt.Errorf("consensus sequence %v in %v is missing from the OTU table", id, fastaFile)
		}
		if seen.Test(i) {
			return fmt.Errorf("duplicate consensus sequence %v in %v", id, fastaFile)
		}
		seen.Set(i)
	}
	if seen.Count() != uint(len(t.OTUs)) {
		for i, id := range t.OTUs {
			if !seen.Test(uint(i)) {
				return fmt.Errorf("OTU %v has no consensus sequence in %v", id, fastaFile)
			}
		}
	}
	return nil
}
