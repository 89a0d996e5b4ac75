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
)

// FastQC runs the FastQC quality report on the raw reads of a sample.
type FastQC struct {
	Gate
	Source string
	Dir    string
}

const fastqcURL = "https://www.bioinformatics.babraham.ac.uk/projects/fastqc/"

// NewFastQC returns the FastQC stage for the given FASTQ file,
// reporting into dir.
func NewFastQC(source, dir string) *FastQC {
	return &FastQC{
		Gate:   Gate{Stage: "FastQC", Artifact: filepath.Join(dir, stem(source)+"_fastqc.html")},
		Source: source,
		Dir:    dir,
	}
}

// Run runs FastQC.
func (f *FastQC) Run(threads int) error {
	if err := CheckInstalled("fastqc", fastqcURL); err != nil {
		return err
	}
	if err := os.MkdirAll(f.Dir, 0700); err != nil {
		return err
	}
	err := runTool("", "", "",
		"fastqc", f.Source,
		"--outdir", f.Dir,
		"--threads", strconv.Itoa(Threads(threads)),
	)
	if err != nil {
		return err
	}
	return f.Complete(0)
}
