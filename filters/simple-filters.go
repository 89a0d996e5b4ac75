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

package filters

import (
	"bytes"
	"strconv"

	"github.com/exascience/elamp/fastq"
)

// RemoveNBases removes all reads that contain at least one
// undetermined base.
func RemoveNBases() ReadFilter {
	return func(read *fastq.Read) *fastq.Read {
		if bytes.IndexByte(read.Seq, 'N') >= 0 {
			return nil
		}
		return read
	}
}

// FilterLength removes all reads shorter than minLen or longer than
// maxLen. A bound of 0 disables the corresponding check.
func FilterLength(minLen, maxLen int) ReadFilter {
	return func(read *fastq.Read) *fastq.Read {
		if minLen > 0 && read.Len() < minLen {
			return nil
		}
		if maxLen > 0 && read.Len() > maxLen {
			return nil
		}
		return read
	}
}

// FilterQuality removes all reads in which the arithmetic mean of the
// PHRED quality scores inside any sliding window of the given size
// drops below the threshold. Reads shorter than the window size
// contain no full window and are kept.
func FilterQuality(window int, threshold float64) ReadFilter {
	limit := threshold * float64(window)
	return func(read *fastq.Read) *fastq.Read {
		if read.Len() < window {
			return read
		}
		sum := 0
		for i := 0; i < window; i++ {
			sum += read.Score(i)
		}
		if float64(sum) < limit {
			return nil
		}
		for i := window; i < read.Len(); i++ {
			sum += read.Score(i) - read.Score(i-window)
			if float64(sum) < limit {
				return nil
			}
		}
		return read
	}
}

// Rename streams the reads of the input FASTQ file to the output FASTQ
// file, replacing the name of each read by prefix:N, with N counting
// up from 1 in file order. It returns the number of reads written.
//
// Renaming is inherently sequential, so this does not go through
// RunFilter.
func Rename(input, output, prefix string) (n int, err error) {
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
	for {
		read, rerr := in.ParseRead()
		if rerr != nil {
			return n, rerr
		}
		if read == nil {
			return n, nil
		}
		n++
		read.Name = prefix + ":" + strconv.Itoa(n)
		if werr := out.Write(read); werr != nil {
			return n, werr
		}
	}
}
