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

// Package stages implements the processing stages of the pipeline,
// most of which wrap an external tool. Every stage embeds a Gate that
// tracks whether the stage has produced its artifacts on disk, so that
// results can never be read before the stage has run, and a completed
// stage is never run twice.
package stages

import (
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"
)

// A NotRunError is returned when the results of a stage are requested
// before the stage has run.
type NotRunError struct {
	Stage string
}

func (e *NotRunError) Error() string {
	return fmt.Sprintf("results of the %v stage were requested, but the stage has not run yet; run the stage first", e.Stage)
}

// A Gate guards the results of a stage. Stage is the stage name used
// in error messages; Artifact is the primary output file whose
// existence marks the stage as completed.
//
// Next to the artifact, a successful run writes a marker file
// recording the number of reads in the artifact. The marker guards
// against a truncated artifact left behind by an interrupted run: an
// artifact with a marker that does not parse does not count as
// completed.
type Gate struct {
	Stage    string
	Artifact string
}

func (g *Gate) marker() string {
	return g.Artifact + ".done"
}

// HasRun returns true if the stage has produced its artifact.
func (g *Gate) HasRun() bool {
	if _, err := os.Stat(g.Artifact); err != nil {
		return false
	}
	contents, err := ioutil.ReadFile(g.marker())
	if err != nil {
		// markerless artifacts from older runs still count
		return os.IsNotExist(err)
	}
	_, err = strconv.Atoi(strings.TrimSpace(string(contents)))
	return err == nil
}

// Complete writes the marker file that records the read count of the
// artifact.
func (g *Gate) Complete(count int) error {
	return ioutil.WriteFile(g.marker(), []byte(strconv.Itoa(count)+"\n"), 0644)
}

// Count returns the read count recorded in the marker file, or -1 if
// there is no marker.
func (g *Gate) Count() int {
	contents, err := ioutil.ReadFile(g.marker())
	if err != nil {
		return -1
	}
	count, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil {
		return -1
	}
	return count
}

// Results returns the path of the stage artifact. It fails with a
// NotRunError if the stage has not run yet.
func (g *Gate) Results() (string, error) {
	if !g.HasRun() {
		return "", &NotRunError{Stage: g.Stage}
	}
	return g.Artifact, nil
}
