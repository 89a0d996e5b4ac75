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
	"os"
	"path/filepath"
	"strconv"

	"github.com/exascience/elamp/otu"
)

// Clustering clusters the pooled reads of a project into OTUs with
// vsearch --cluster_size. OTUs receives the consensus sequences and
// TableFile the per-sample abundance counts.
type Clustering struct {
	Gate
	Source    string
	OTUs      string
	TableFile string
	Threshold float64
	MinSize   int
}

// NewClustering returns the clustering stage for the pooled reads.
func NewClustering(source, otus, table string, threshold float64, minSize int) *Clustering {
	return &Clustering{
		Gate:      Gate{Stage: "clustering", Artifact: otus},
		Source:    source,
		OTUs:      otus,
		TableFile: table,
		Threshold: threshold,
		MinSize:   minSize,
	}
}

// Run runs the clustering. Afterwards the abundance table must parse,
// must be non-empty, and must identify the same OTU set as the
// consensus FASTA file; a silently truncated tool output fails here
// rather than in a downstream stage.
func (c *Clustering) Run(threads int) error {
	if err := CheckInstalled("vsearch", vsearchURL); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.OTUs), 0700); err != nil {
		return err
	}
	err := runTool("", "", "",
		"vsearch",
		"--cluster_size", c.Source,
		"--consout", c.OTUs,
		"--id", strconv.FormatFloat(c.Threshold, 'f', -1, 64),
		"--otutabout", c.TableFile,
		"--threads", strconv.Itoa(Threads(threads)),
	)
	if err != nil {
		return err
	}
	table, err := otu.ParseTable(c.TableFile)
	if err != nil {
		return err
	}
	if err := table.VerifyAgainst(c.OTUs); err != nil {
		return err
	}
	return c.Complete(len(table.OTUs))
}

// Table parses and returns the abundance table. It fails with a
// NotRunError if the stage has not run yet.
func (c *Clustering) Table() (*otu.Table, error) {
	if !c.HasRun() {
		return nil, &NotRunError{Stage: c.Stage}
	}
	return otu.ParseTable(c.TableFile)
}
