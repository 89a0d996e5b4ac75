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

package otu

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Unassigned is the taxon used for OTUs without an assignment at a
// given rank.
const Unassigned = "Unassigned"

// Assignments maps canonical OTU identifiers to their taxonomic
// assignment, one term per rank from domain down.
type Assignments map[string][]string

// ParseAssignments parses the taxonomy file that the classifier
// produces: one line per OTU, with the identifier and a
// semicolon-separated list of taxa separated by a tab.
func ParseAssignments(filename string) (assignments Assignments, err error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			assignments, err = nil, cerr
		}
	}()
	assignments = make(Assignments)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		i := strings.IndexByte(line, '\t')
		if i <= 0 {
			return nil, fmt.Errorf("invalid taxonomy line %v in %v", line, filename)
		}
		taxa := strings.Split(strings.TrimRight(line[i+1:], ";"), ";")
		for j, term := range taxa {
			taxa[j] = strings.TrimSpace(strings.Trim(term, "\""))
		}
		assignments[Canonical(line[:i])] = taxa
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// TaxaTable aggregates the read counts of an OTU table at a single
// taxonomic rank. The result maps each taxon to per-sample read
// counts, in the order of the table's Samples slice. OTUs without an
// assignment, with an assignment that is too short for the rank, or
// with an empty term at the rank are counted as Unassigned.
func TaxaTable(table *Table, assignments Assignments, rank int) map[string][]int {
	result := make(map[string][]int)
	for _, id := range table.OTUs {
		term := Unassigned
		if assignment, ok := assignments[id]; ok && rank < len(assignment) && assignment[rank] != "" {
			term = assignment[rank]
		}
		counts := result[term]
		if counts == nil {
			counts = make([]int, len(table.Samples))
			result[term] = counts
		}
		for i, count := range table.counts[id] {
			counts[i] += count
		}
	}
	return result
}

// sortTaxa returns the taxa of an aggregated table sorted by their
// total read count, largest first, with ties broken alphabetically.
func sortTaxa(table map[string][]int) []string {
	taxa := make([]string, 0, len(table))
	sums := make(map[string]int, len(table))
	for term, counts := range table {
		taxa = append(taxa, term)
		sum := 0
		for _, count := range counts {
			sum += count
		}
		sums[term] = sum
	}
	sort.Slice(taxa, func(i, j int) bool {
		if sums[taxa[i]] != sums[taxa[j]] {
			return sums[taxa[i]] > sums[taxa[j]]
		}
		return taxa[i] < taxa[j]
	})
	return taxa
}

// WriteTaxaTable writes one aggregated taxa table as a TSV file, with
// one row per sample and one column per taxon, columns sorted by
// total read count.
func WriteTaxaTable(filename string, samples []string, table map[string][]int) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	buf := bufio.NewWriter(file)
	taxa := sortTaxa(table)
	for _, term := range taxa {
		if _, err := buf.WriteString("\t" + term); err != nil {
			return err
		}
	}
	if err := buf.WriteByte('\n'); err != nil {
		return err
	}
	for i, sample := range samples {
		if _, err := buf.WriteString(sample); err != nil {
			return err
		}
		for _, term := range taxa {
			if _, err := fmt.Fprintf(buf, "\t%d", table[term][i]); err != nil {
				return err
			}
		}
		if err := buf.WriteByte('\n'); err != nil {
			return err
		}
	}
	return buf.Flush()
}

// WriteTaxaTables writes one taxa table per rank into the given
// directory, named taxa_table_<rank>.tsv after the lowercased rank
// names.
func WriteTaxaTables(dir string, rankNames []string, table *Table, assignments Assignments) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	for rank, name := range rankNames {
		aggregated := TaxaTable(table, assignments, rank)
		filename := filepath.Join(dir, "taxa_table_"+strings.ToLower(name)+".tsv")
		if err := WriteTaxaTable(filename, table.Samples, aggregated); err != nil {
			return err
		}
	}
	return nil
}
