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

package intervals

import (
	"io/ioutil"
	"path/filepath"
	"testing"
)

func TestFlatten(t *testing.T) {
	intervals := []Interval{{10, 20}, {15, 30}, {40, 50}, {45, 45}, {60, 70}}
	flattened := Flatten(intervals)
	expected := []Interval{{10, 30}, {40, 50}, {60, 70}}
	if len(flattened) != len(expected) {
		t.Fatalf("expected %v intervals, got %v", len(expected), flattened)
	}
	for i, interval := range expected {
		if flattened[i] != interval {
			t.Errorf("expected %v at index %v, got %v", interval, i, flattened[i])
		}
	}
}

func TestOverlapAndIntersect(t *testing.T) {
	intervals := []Interval{{10, 30}, {40, 50}, {60, 70}}
	if !Overlap(intervals, 25, 45) {
		t.Error("expected an overlap")
	}
	if Overlap(intervals, 30, 40) {
		t.Error("expected no overlap between flattened intervals")
	}
	intersection := Intersect(intervals, 25, 65)
	if len(intersection) != 3 {
		t.Errorf("expected 3 intersecting intervals, got %v", intersection)
	}
	intersection = Intersect(intervals, 50, 60)
	if len(intersection) != 0 {
		t.Errorf("expected no intersecting intervals, got %v", intersection)
	}
}

func TestFromGffFile(t *testing.T) {
	contents := "##gff-version 3\n" +
		"s:1\tbarrnap:0.9\trRNA\t34\t1522\t0\t+\t.\tName=16S_rRNA;product=16S ribosomal RNA\n" +
		"s:1\tbarrnap:0.9\trRNA\t1612\t4519\t0\t+\t.\tName=23S_rRNA;product=23S ribosomal RNA\n" +
		"s:2\tbarrnap:0.9\trRNA\t1\t1489\t0\t-\t.\tName=16S_rRNA;product=16S ribosomal RNA\n"
	path := filepath.Join(t.TempDir(), "hits.gff")
	if err := ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	hits, err := FromGffFile(path, "16S_rRNA")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 16S hits on 2 reads, got %v", hits)
	}
	if regions := hits["s:1"]; len(regions) != 1 || regions[0] != (Interval{33, 1522}) {
		t.Errorf("unexpected regions for s:1: %v", regions)
	}
	if regions := hits["s:2"]; len(regions) != 1 || regions[0] != (Interval{0, 1489}) {
		t.Errorf("unexpected regions for s:2: %v", regions)
	}
	hits, err = FromGffFile(path, "23S_rRNA")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("expected 23S hits on 1 read, got %v", hits)
	}
}
