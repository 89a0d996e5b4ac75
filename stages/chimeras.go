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
)

const vsearchURL = "https://github.com/torognes/vsearch"

// ChimeraRemoval detects and removes chimeric reads with
// vsearch --uchime3_denovo. Cleaned receives the non-chimeric reads
// and Rejects the chimeric ones; every input read ends up in exactly
// one of the two.
type ChimeraRemoval struct {
	Gate
	Source  string
	Cleaned string
	Rejects string
}

// NewChimeraRemoval returns the chimera removal stage for the given
// cleaned reads.
func NewChimeraRemoval(source, cleaned, rejects string) *ChimeraRemoval {
	return &ChimeraRemoval{
		Gate:    Gate{Stage: "chimera removal", Artifact: cleaned},
		Source:  source,
		Cleaned: cleaned,
		Rejects: rejects,
	}
}

// Run runs the chimera detection and checks that no reads got lost:
// the cleaned and rejected read counts must add up to the input read
// count.
func (c *ChimeraRemoval) Run(threads int) error {
	if err := CheckInstalled("vsearch", vsearchURL); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.Cleaned), 0700); err != nil {
		return err
	}
	err := runTool("", "", "",
		"vsearch",
		"--uchime3_denovo", c.Source,
		"-chimeras", c.Rejects,
		"-nonchimeras", c.Cleaned,
		"--threads", strconv.Itoa(Threads(threads)),
		"-abskew", "1",
	)
	if err != nil {
		return err
	}
	source, err := countReads(c.Source)
	if err != nil {
		return err
	}
	cleaned, err := countReads(c.Cleaned)
	if err != nil {
		return err
	}
	rejects, err := countReads(c.Rejects)
	if err != nil {
		return err
	}
	if cleaned+rejects != source {
		return fmt.Errorf("chimera removal of %v lost reads: %v cleaned + %v rejected != %v input", c.Source, cleaned, rejects, source)
	}
	return c.Complete(cleaned)
}
