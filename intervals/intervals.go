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

// Package intervals implements sets of read coordinate ranges, such as
// the ribosomal RNA gene regions that rRNA prediction reports per read.
package intervals

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/exascience/pargo/parallel"
	"github.com/exascience/pargo/pipeline"
	psort "github.com/exascience/pargo/sort"
)

// Interval is a generic struct with a start and an end position.
// Positions are 0-based, and the end position is exclusive.
type Interval struct {
	Start, End int32
}

// SortByStart sorts a slice of Interval by Start position.
func SortByStart(intervals []Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start < intervals[j].Start
	})
}

type stableIntervalSorter []Interval

func (s stableIntervalSorter) SequentialSort(i, j int) {
	SortByStart(s[i:j])
}

func (s stableIntervalSorter) NewTemp() psort.StableSorter {
	return stableIntervalSorter(make([]Interval, len(s)))
}

func (s stableIntervalSorter) Len() int {
	return len(s)
}

func (s stableIntervalSorter) Less(i, j int) bool {
	return s[i].Start < s[j].Start
}

func (s stableIntervalSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s, source.(stableIntervalSorter)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// ParallelSortByStart sorts a slice of Interval by Start position using
// a parallel stable sort.
func ParallelSortByStart(intervals []Interval) {
	psort.StableSort(stableIntervalSorter(intervals))
}

// Extend makes interval1 larger if it overlaps with interval2,
// by storing max(interval1.End, interval2.End) in interval1.End;
// otherwise, interval1 remains unchanged.
// Returns true if the two intervals overlap, false otherwise.
// interval2.Start >= interval1.Start must be true before
// calling Extend.
func (interval1 *Interval) Extend(interval2 Interval) bool {
	if interval2.Start > interval1.End {
		return false
	}
	if interval2.End > interval1.End {
		interval1.End = interval2.End
	}
	return true
}

// Flatten merges overlapping intervals into larger intervals.
// intervals must be sorted by Start before calling Flatten.
// The resulting slice is sorted by Start, and no two
// intervals in the result overlap with each other.
// The result shares memory with the intervals argument.
func Flatten(intervals []Interval) []Interval {
	for i, n := 0, len(intervals)-1; i < n; i++ {
		if intervals[i].Extend(intervals[i+1]) {
			n++
			for j := i + 1; j < n; j++ {
				if !intervals[i].Extend(intervals[j]) {
					i++
					intervals[i] = intervals[j]
				}
			}
			return intervals[:i+1]
		}
	}
	return intervals
}

const parallelFlattenGrainSize = 0x1000

// ParallelFlatten merges overlapping intervals into larger intervals,
// using a parallel algorithm.
// intervals must be sorted by Start before calling Flatten.
// The resulting slice is sorted by Start, and no two
// intervals in the result overlap with each other.
// The result shares memory with the intervals argument.
func ParallelFlatten(intervals []Interval) []Interval {
	if len(intervals) < parallelFlattenGrainSize {
		return Flatten(intervals)
	}
	half := len(intervals) >> 1
	left, right := intervals[:half], intervals[half:]
	parallel.Do(
		func() { left = ParallelFlatten(left) },
		func() { right = ParallelFlatten(right) },
	)
	for left[len(left)-1].Extend(right[0]) {
		right = right[1:]
	}
	return append(left, right...)
}

// Overlap determines whether the given start/end range overlaps
// with any of the given intervals.
// intervals must be Flattened and sorted by Start.
func Overlap(intervals []Interval, start, end int32) bool {
	for left, right := 0, len(intervals)-1; left <= right; {
		mid := (left + right) / 2
		intervalStart := intervals[mid].Start
		intervalEnd := intervals[mid].End
		if intervalStart > end-1 {
			right = mid - 1
		} else if intervalEnd <= start {
			left = mid + 1
		} else {
			return true
		}
	}
	return false
}

// Intersect returns a slice of all intervals that overlap with the
// given start/end range.
// intervals must be Flattened and sorted by Start.
// The result shares memory with the intervals argument.
func Intersect(intervals []Interval, start, end int32) []Interval {
	n := len(intervals)
	return intervals[sort.Search(n, func(i int) bool {
		return intervals[i].End > start
	}):sort.Search(n, func(i int) bool {
		return intervals[i].Start >= end
	})]
}

// FromGffFile loads the intervals of the features in a GFF3 file whose
// type is rRNA and whose attributes mention the given gene name, for
// example "16S_rRNA". The result maps each read name to the gene
// regions found on that read, converted from the 1-based inclusive
// coordinates of the GFF format to 0-based exclusive end positions.
// Comment lines and features for other genes are skipped.
func FromGffFile(filename, gene string) (intervals map[string][]Interval, err error) {
	pathname, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}
	in, err := os.Open(pathname)
	if err != nil {
		return nil, err
	}
	defer func() {
		if nerr := in.Close(); nerr != nil {
			if err == nil {
				intervals = nil
				err = nerr
			}
		}
	}()
	var p pipeline.Pipeline
	p.Source(pipeline.NewScanner(bufio.NewReader(in)))
	p.Add(pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
		strs := data.([]string)
		intervals := make(map[string][]Interval)
		for _, str := range strs {
			if str == "" || str[0] == '#' {
				continue
			}
			fields := strings.Split(str, "\t")
			if len(fields) < 9 {
				p.SetErr(fmt.Errorf("invalid GFF line %v in %v", str, filename))
				return intervals
			}
			if fields[2] != "rRNA" || !strings.Contains(fields[8], gene) {
				continue
			}
			start, serr := strconv.ParseInt(fields[3], 10, 32)
			if serr != nil {
				p.SetErr(fmt.Errorf("%v, while parsing GFF line %v in %v", serr, str, filename))
				return intervals
			}
			end, serr := strconv.ParseInt(fields[4], 10, 32)
			if serr != nil {
				p.SetErr(fmt.Errorf("%v, while parsing GFF line %v in %v", serr, str, filename))
				return intervals
			}
			intervals[fields[0]] = append(intervals[fields[0]], Interval{Start: int32(start) - 1, End: int32(end)})
		}
		return intervals
	})))
	intervals = make(map[string][]Interval)
	p.Add(pipeline.Ord(pipeline.Receive(func(_ int, data interface{}) interface{} {
		for read, ivals := range data.(map[string][]Interval) {
			intervals[read] = append(intervals[read], ivals...)
		}
		return data
	})))
	p.Run()
	if err = p.Err(); err != nil {
		return nil, err
	}
	return
}
