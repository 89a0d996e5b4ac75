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
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/exascience/elamp/fastq"
)

func newRead(seq string) *fastq.Read {
	qual := make([]byte, len(seq))
	for i := range qual {
		qual[i] = 'I'
	}
	return &fastq.Read{Name: "s:1", Seq: []byte(seq), Qual: qual}
}

func scoredRead(scores ...int) *fastq.Read {
	seq := make([]byte, len(scores))
	qual := make([]byte, len(scores))
	for i, s := range scores {
		seq[i] = 'A'
		qual[i] = byte(s + fastq.PhredOffset)
	}
	return &fastq.Read{Name: "s:1", Seq: seq, Qual: qual}
}

func TestTrimPrimersForwardStrand(t *testing.T) {
	filter := TrimPrimers("ATTTA", "AGGGA", 0, 0)
	read := filter(newRead("ATTTAGGGGGGGCGGGGGGGTCCCT"))
	if read == nil {
		t.Fatal("expected the read to be kept")
	}
	if string(read.Seq) != "GGGGGGGCGGGGGGG" {
		t.Errorf("unexpected trimmed sequence %v", string(read.Seq))
	}
	if len(read.Qual) != len(read.Seq) {
		t.Errorf("quality length %v does not match sequence length %v", len(read.Qual), len(read.Seq))
	}
}

func TestTrimPrimersOverlapping(t *testing.T) {
	filter := TrimPrimers("AAA", "TTT", 0, 0)
	if read := filter(newRead("AAAAAAAA")); read != nil {
		t.Errorf("expected the read to be removed, got %v", string(read.Seq))
	}
}

func TestTrimPrimersReverseStrand(t *testing.T) {
	filter := TrimPrimers("AATAA", "AAAAA", 0, 0)
	read := filter(newRead("AAAAAGGGGGGCGCGGGGGGTTATT"))
	if read == nil {
		t.Fatal("expected the read to be kept")
	}
	if string(read.Seq) != "CCCCCCGCGCCCCCC" {
		t.Errorf("unexpected trimmed sequence %v", string(read.Seq))
	}
}

func TestTrimPrimersMissingAndMixed(t *testing.T) {
	filter := TrimPrimers("ATTTA", "AGGGA", 0, 0)
	// forward primer absent
	if read := filter(newRead("GGGGGGGGGGGGTCCCT")); read != nil {
		t.Errorf("expected the read to be removed, got %v", string(read.Seq))
	}
	// both primers in forward form
	if read := filter(newRead("ATTTAGGGGGGGGAGGGAGGG")); read != nil {
		t.Errorf("expected the read to be removed, got %v", string(read.Seq))
	}
}

func TestTrimPrimersMaxDist(t *testing.T) {
	near := TrimPrimers("ATTTA", "AGGGA", 0, 2)
	if read := near(newRead("CCATTTAGGGGGGGTCCCT")); read == nil {
		t.Error("expected the read to be kept within the distance bound")
	}
	far := TrimPrimers("ATTTA", "AGGGA", 0, 2)
	if read := far(newRead("CCCCATTTAGGGGGGGTCCCT")); read != nil {
		t.Errorf("expected the read to be removed, got %v", string(read.Seq))
	}
}

func TestTrimPrimersMismatches(t *testing.T) {
	exact := TrimPrimers("ATTTA", "AGGGA", 0, 0)
	if read := exact(newRead("ATTGACACACTCCCT")); read != nil {
		t.Errorf("expected the read to be removed, got %v", string(read.Seq))
	}
	fuzzy := TrimPrimers("ATTTA", "AGGGA", 1, 0)
	read := fuzzy(newRead("ATTGACACACTCCCT"))
	if read == nil {
		t.Fatal("expected the read to be kept with one mismatch allowed")
	}
	if string(read.Seq) != "CACAC" {
		t.Errorf("unexpected trimmed sequence %v", string(read.Seq))
	}
}

func TestTrimPrimersAmbiguityCodes(t *testing.T) {
	filter := TrimPrimers("ATWTA", "AGGGA", 0, 0)
	if read := filter(newRead("ATTTAGGGGGGGTCCCT")); read == nil {
		t.Error("expected W to match T")
	}
	if read := filter(newRead("ATATAGGGGGGGTCCCT")); read == nil {
		t.Error("expected W to match A")
	}
}

func TestRemoveNBases(t *testing.T) {
	filter := RemoveNBases()
	if read := filter(newRead("ACGNT")); read != nil {
		t.Errorf("expected the read to be removed, got %v", string(read.Seq))
	}
	if read := filter(newRead("ACGT")); read == nil {
		t.Error("expected the read to be kept")
	}
}

func TestFilterLength(t *testing.T) {
	filter := FilterLength(3, 5)
	if read := filter(newRead("AC")); read != nil {
		t.Error("expected a too short read to be removed")
	}
	if read := filter(newRead("ACGTAC")); read != nil {
		t.Error("expected a too long read to be removed")
	}
	if read := filter(newRead("ACGT")); read == nil {
		t.Error("expected the read to be kept")
	}
	unbounded := FilterLength(0, 0)
	if read := unbounded(newRead("A")); read == nil {
		t.Error("expected disabled bounds to keep every read")
	}
}

func TestFilterQuality(t *testing.T) {
	filter := FilterQuality(4, 20)
	if read := filter(scoredRead(30, 30, 19, 19, 19, 19, 30)); read != nil {
		t.Error("expected a read with a low quality window to be removed")
	}
	if read := filter(scoredRead(30, 19, 19, 19, 30, 30, 30)); read == nil {
		t.Error("expected the read to be kept")
	}
	// shorter than the window
	if read := filter(scoredRead(2, 2)); read == nil {
		t.Error("expected a read shorter than the window to be kept")
	}
}

func TestFilterQualityIdempotent(t *testing.T) {
	filter := FilterQuality(4, 20)
	reads := []*fastq.Read{
		scoredRead(30, 30, 19, 19, 19, 19, 30),
		scoredRead(30, 19, 19, 19, 30, 30, 30),
		scoredRead(25, 25, 25, 25, 25),
	}
	var once []*fastq.Read
	for _, read := range reads {
		if read := filter(read); read != nil {
			once = append(once, read)
		}
	}
	for _, read := range once {
		if filter(read) != read {
			t.Error("expected the quality filter to keep its own output unchanged")
		}
	}
}

func TestRunFilter(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.fastq")
	contents := "@a\nATTTAGGGGGGGCGGGGGGGTCCCT\n+\nIIIIIIIIIIIIIIIIIIIIIIIII\n" +
		"@b\nGGGG\n+\nIIII\n" +
		"@c\nATTTAGGNGGGGTCCCT\n+\nIIIIIIIIIIIIIIIII\n"
	if err := ioutil.WriteFile(input, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "out.fastq")
	kept, err := RunFilter(input, output,
		TrimPrimers("ATTTA", "AGGGA", 0, 0),
		RemoveNBases(),
	)
	if err != nil {
		t.Fatal(err)
	}
	if kept != 1 {
		t.Errorf("expected 1 kept read, got %v", kept)
	}
	reader, err := fastq.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	read, err := reader.ParseRead()
	if err != nil {
		t.Fatal(err)
	}
	if read.Name != "a" || string(read.Seq) != "GGGGGGGCGGGGGGG" {
		t.Errorf("unexpected surviving read %v %v", read.Name, string(read.Seq))
	}
}

func TestRename(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.fastq")
	if err := ioutil.WriteFile(input, []byte("@x\nAC\n+\nII\n@y\nGT\n+\nII\n"), 0644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "renamed.fastq")
	n, err := Rename(input, output, "sample")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 renamed reads, got %v", n)
	}
	reader, err := fastq.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	for i := 1; i <= 2; i++ {
		read, err := reader.ParseRead()
		if err != nil {
			t.Fatal(err)
		}
		if want := "sample:" + string(rune('0'+i)); read.Name != want {
			t.Errorf("expected read name %v, got %v", want, read.Name)
		}
	}
}
