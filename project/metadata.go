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

// Package project implements the ingestion of sample metadata sheets
// and the Sample and Project types that drive the pipeline.
package project

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// The recognized metadata columns. A metadata sheet is a TSV or CSV
// file with one header row naming a subset of these columns, and one
// row per sample. Columns marked with a default are optional.
//
//	project_short_name  (required) project the sample belongs to
//	project_long_name   ""         description of the project
//	used                yes        yes/no, no = skip this row
//	sample_short_name   (required) identifier-shaped sample name
//	sample_long_name    ""         description of the sample
//	sample_num          row order  integer ordering of the samples
//	input_dir           (required) directory of the raw reads,
//	                               must end with a path separator
//	fastq_file_name     (required) raw reads file inside input_dir
//	output_dir          (required) output root, must end with a
//	                               path separator
//	fwd_primer          ""         forward primer, "" skips the
//	                               primer pass
//	rev_primer          ""         reverse primer
//	primer_mismatches   0          mismatches tolerated per primer
//	primer_max_dist     0          bases from the read ends within
//	                               which primers must lie, 0 = anywhere
//	min_read_length     0          0 = no lower bound
//	max_read_length     0          0 = no upper bound
//	phred_window_size   0          0 skips the quality pass
//	phred_threshold     0          minimum sliding window mean
//	barrnap_mode        off        off/filter/extract/concat
//	otu_threshold       0.97       clustering similarity fraction
//	otu_min_size        2          minimum cluster size
//	run_silva           yes        yes/no
//	run_greengenes      no         yes/no
//	run_rdp             no         yes/no
//	run_ncbi_blast      no         yes/no
//
// Columns outside this set are rejected, not silently ignored.
var recognizedColumns = map[string]bool{
	"project_short_name": true,
	"project_long_name":  true,
	"used":               true,
	"sample_short_name":  true,
	"sample_long_name":   true,
	"sample_num":         true,
	"input_dir":          true,
	"fastq_file_name":    true,
	"output_dir":         true,
	"fwd_primer":         true,
	"rev_primer":         true,
	"primer_mismatches":  true,
	"primer_max_dist":    true,
	"min_read_length":    true,
	"max_read_length":    true,
	"phred_window_size":  true,
	"phred_threshold":    true,
	"barrnap_mode":       true,
	"otu_threshold":      true,
	"otu_min_size":       true,
	"run_silva":          true,
	"run_greengenes":     true,
	"run_rdp":            true,
	"run_ncbi_blast":     true,
}

// a metadata row, keyed by column name
type row map[string]string

func (r row) str(column, dflt string) string {
	if value, ok := r[column]; ok && value != "" {
		return value
	}
	return dflt
}

func (r row) integer(column string, dflt int) (int, error) {
	value, ok := r[column]
	if !ok || value == "" {
		return dflt, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("the metadata column %v must be an integer, got %v", column, value)
	}
	return n, nil
}

func (r row) float(column string, dflt float64) (float64, error) {
	value, ok := r[column]
	if !ok || value == "" {
		return dflt, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("the metadata column %v must be a number, got %v", column, value)
	}
	return f, nil
}

func (r row) boolean(column string, dflt bool) (bool, error) {
	value, ok := r[column]
	if !ok || value == "" {
		return dflt, nil
	}
	switch strings.ToLower(value) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, fmt.Errorf("the metadata column %v must be yes or no, got %v", column, value)
	}
}

// parseSheet reads one metadata sheet. The column separator is decided
// by the file extension: tab for .tsv, comma for .csv.
func parseSheet(filename string) (rows []row, err error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			rows, err = nil, cerr
		}
	}()
	reader := csv.NewReader(file)
	switch filepath.Ext(filename) {
	case ".tsv", ".txt":
		reader.Comma = '\t'
	case ".csv":
		reader.Comma = ','
	default:
		return nil, fmt.Errorf("unknown metadata format %v; use a .tsv or .csv file", filename)
	}
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%v, while parsing the metadata sheet %v", err, filename)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("the metadata sheet %v contains no sample rows", filename)
	}
	header := records[0]
	for _, column := range header {
		if !recognizedColumns[column] {
			return nil, fmt.Errorf("the metadata sheet %v contains the unrecognized column %v", filename, column)
		}
	}
	for _, record := range records[1:] {
		r := make(row, len(header))
		for i, column := range header {
			if i < len(record) {
				r[column] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, r)
	}
	return rows, nil
}
