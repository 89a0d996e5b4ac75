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

	"github.com/exascience/elamp/fastq"
)

// iupacMask maps a nucleotide code to its set of compatible bases,
// with bit 0 = A, bit 1 = C, bit 2 = G, bit 3 = T.
var iupacMask [256]byte

func init() {
	iupacMask['A'] = 1
	iupacMask['C'] = 2
	iupacMask['G'] = 4
	iupacMask['T'] = 8
	iupacMask['R'] = 1 | 4
	iupacMask['Y'] = 2 | 8
	iupacMask['S'] = 2 | 4
	iupacMask['W'] = 1 | 8
	iupacMask['K'] = 4 | 8
	iupacMask['M'] = 1 | 2
	iupacMask['B'] = 2 | 4 | 8
	iupacMask['D'] = 1 | 4 | 8
	iupacMask['H'] = 1 | 2 | 8
	iupacMask['V'] = 1 | 2 | 4
	iupacMask['N'] = 1 | 2 | 4 | 8
}

// baseMatch returns true if the primer code p is compatible with the
// read base g. Ambiguity codes are only honored on the primer side: a
// read base other than A, C, G, or T never matches.
func baseMatch(g, p byte) bool {
	if g != 'A' && g != 'C' && g != 'G' && g != 'T' {
		return false
	}
	return iupacMask[p]&iupacMask[g] != 0
}

func unambiguous(primer []byte) bool {
	for _, c := range primer {
		if c != 'A' && c != 'C' && c != 'G' && c != 'T' {
			return false
		}
	}
	return true
}

// findPrimer returns the start index of the leftmost occurrence of
// the primer in seq with at most maxMM mismatching positions, or -1.
func findPrimer(seq, primer []byte, maxMM int) int {
	pl := len(primer)
	if pl == 0 || len(seq) < pl {
		return -1
	}
	if maxMM == 0 && unambiguous(primer) {
		return bytes.Index(seq, primer)
	}
	end := len(seq) - pl
positionLoop:
	for pos := 0; pos <= end; pos++ {
		mm := 0
		for j := 0; j < pl; j++ {
			if !baseMatch(seq[pos+j], primer[j]) {
				if mm++; mm > maxMM {
					continue positionLoop
				}
			}
		}
		return pos
	}
	return -1
}

// TrimPrimers returns a ReadFilter that keeps only the reads in which
// both the forward and the reverse primer are found, in either strand
// orientation, and trims the reads down to the stretch between the
// primers.
//
// A read on the forward strand contains the forward primer followed by
// the reverse complement of the reverse primer. A read on the reverse
// strand contains the reverse primer followed by the reverse complement
// of the forward primer, and is reoriented to the forward strand after
// trimming. Reads in which both primers occur in the same form are
// removed, since these tend to be concatenation artifacts. If maxDist
// is positive, the outer end of each primer match must additionally
// lie within maxDist bases of the corresponding read end. Reads with
// an empty stretch between the primers are removed.
func TrimPrimers(fwd, rev string, mismatches, maxDist int) ReadFilter {
	fwdPrimer := []byte(fwd)
	revPrimer := []byte(rev)
	fwdRC := fastq.ReverseComplement(fwdPrimer)
	revRC := fastq.ReverseComplement(revPrimer)
	return func(read *fastq.Read) *fastq.Read {
		seq := read.Seq
		fwdSrt := findPrimer(seq, fwdPrimer, mismatches)
		revSrt := findPrimer(seq, revPrimer, mismatches)
		fwdRCSrt := findPrimer(seq, fwdRC, mismatches)
		revRCSrt := findPrimer(seq, revRC, mismatches)
		if fwdSrt < 0 && fwdRCSrt < 0 {
			return nil
		}
		if revSrt < 0 && revRCSrt < 0 {
			return nil
		}
		if fwdSrt >= 0 && revSrt >= 0 {
			return nil
		}
		if fwdRCSrt >= 0 && revRCSrt >= 0 {
			return nil
		}
		if fwdSrt >= 0 && revRCSrt >= 0 {
			// forward strand
			if maxDist > 0 {
				if fwdSrt > maxDist {
					return nil
				}
				if len(seq)-(revRCSrt+len(revRC)) > maxDist {
					return nil
				}
			}
			srt, end := fwdSrt+len(fwdPrimer), revRCSrt
			if end <= srt {
				return nil
			}
			return read.Slice(srt, end)
		}
		if fwdRCSrt >= 0 && revSrt >= 0 {
			// reverse strand
			if maxDist > 0 {
				if revSrt > maxDist {
					return nil
				}
				if len(seq)-(fwdRCSrt+len(fwdRC)) > maxDist {
					return nil
				}
			}
			srt, end := revSrt+len(revPrimer), fwdRCSrt
			if end <= srt {
				return nil
			}
			return read.Slice(srt, end).ReverseComplement()
		}
		return nil
	}
}
