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
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/exascience/elamp/fasta"
	"github.com/exascience/elamp/fastq"
)

// External tools never get more threads than this, no matter how many
// cores the machine has.
const maxThreads = 32

// Threads returns the number of threads to hand to an external tool:
// the requested number, or the number of available cores when the
// request is not positive, capped at maxThreads.
func Threads(n int) int {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n > maxThreads {
		n = maxThreads
	}
	return n
}

// CheckInstalled verifies that an external tool can be found on the
// PATH, and returns an error with an installation hint if it can't.
func CheckInstalled(tool, hint string) error {
	if _, err := exec.LookPath(tool); err != nil {
		return fmt.Errorf("the program %v does not seem to be installed or is not on the PATH; please install it first (see %v)", tool, hint)
	}
	return nil
}

// runTool runs an external command, optionally from a working
// directory and with standard output and standard error redirected to
// files.
func runTool(dir, stdout, stderr string, name string, args ...string) (err error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if stdout != "" {
		outFile, oerr := os.Create(stdout)
		if oerr != nil {
			return oerr
		}
		defer func() {
			if cerr := outFile.Close(); err == nil {
				err = cerr
			}
		}()
		cmd.Stdout = outFile
	} else {
		cmd.Stdout = os.Stdout
	}
	if stderr != "" {
		errFile, eerr := os.Create(stderr)
		if eerr != nil {
			return eerr
		}
		defer func() {
			if cerr := errFile.Close(); err == nil {
				err = cerr
			}
		}()
		cmd.Stderr = errFile
	} else {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%v, while running %v", err, strings.Join(append([]string{name}, args...), " "))
	}
	return nil
}

// countReads counts the reads in a FASTQ or FASTA file, deciding the
// format from the file name with any compression extension stripped.
func countReads(name string) (int, error) {
	stem := name
	switch filepath.Ext(stem) {
	case fastq.GzipExt, fastq.SnappyExt:
		stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	}
	switch filepath.Ext(stem) {
	case ".fasta", ".fa", ".fna":
		return fasta.Count(name)
	default:
		return fastq.Count(name)
	}
}

// stem returns the base name of a file with the compression and
// format extensions stripped. FastQC names its report files after this
// stem.
func stem(name string) string {
	s := filepath.Base(name)
	for {
		switch filepath.Ext(s) {
		case ".gz", ".sz", ".bz2", ".fastq", ".fq", ".fasta", ".fa", ".txt":
			s = strings.TrimSuffix(s, filepath.Ext(s))
		default:
			return s
		}
	}
}
