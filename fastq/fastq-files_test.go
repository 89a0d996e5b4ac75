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

package fastq

import (
	"io/ioutil"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseRead(t *testing.T) {
	path := writeFile(t, "in.fastq", "@s:1\nACGT\n+\nIIII\n@s:2\nNN\n+\n!!\n")
	input, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer input.Close()
	read, err := input.ParseRead()
	if err != nil {
		t.Fatal(err)
	}
	if read.Name != "s:1" || string(read.Seq) != "ACGT" || string(read.Qual) != "IIII" {
		t.Errorf("unexpected first read %v %v %v", read.Name, string(read.Seq), string(read.Qual))
	}
	if read.Score(0) != 40 {
		t.Errorf("expected score 40, got %v", read.Score(0))
	}
	read, err = input.ParseRead()
	if err != nil {
		t.Fatal(err)
	}
	if read.Name != "s:2" || read.Score(0) != 0 {
		t.Errorf("unexpected second read %v score %v", read.Name, read.Score(0))
	}
	read, err = input.ParseRead()
	if err != nil || read != nil {
		t.Errorf("expected end of input, got %v, %v", read, err)
	}
}

func TestParseReadErrors(t *testing.T) {
	for _, c := range []struct{ name, contents string }{
		{"header", "ACGT\nACGT\n+\nIIII\n"},
		{"separator", "@s:1\nACGT\nIIII\nIIII\n"},
		{"truncated", "@s:1\nACGT\n+\n"},
		{"lengths", "@s:1\nACGT\n+\nIII\n"},
	} {
		path := writeFile(t, c.name+".fastq", c.contents)
		input, err := Open(path)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := input.ParseRead(); err == nil {
			t.Errorf("expected a parse error for %v", c.name)
		}
		input.Close()
	}
}

func TestFormatRoundTrip(t *testing.T) {
	read := &Read{Name: "s:7", Seq: []byte("ACGTN"), Qual: []byte("IIII!")}
	if s := string(Format(read, nil)); s != "@s:7\nACGTN\n+\nIIII!\n" {
		t.Errorf("unexpected format %q", s)
	}
}

func TestWriteCompressed(t *testing.T) {
	reads := []*Read{
		{Name: "s:1", Seq: []byte("ACGT"), Qual: []byte("IIII")},
		{Name: "s:2", Seq: []byte("GGCC"), Qual: []byte("!!!!")},
	}
	for _, ext := range []string{FastqExt, FastqExt + GzipExt, FastqExt + SnappyExt} {
		path := filepath.Join(t.TempDir(), "out"+ext)
		output, err := Create(path)
		if err != nil {
			t.Fatal(err)
		}
		for _, read := range reads {
			if err := output.Write(read); err != nil {
				t.Fatal(err)
			}
		}
		if err := output.Close(); err != nil {
			t.Fatal(err)
		}
		n, err := Count(path)
		if err != nil {
			t.Fatal(err)
		}
		if n != len(reads) {
			t.Errorf("expected %v reads in %v, got %v", len(reads), ext, n)
		}
	}
}

func TestFetch(t *testing.T) {
	path := writeFile(t, "in.fastq", "@s:1\nAC\n+\nII\n@s:2\nGT\n+\nII\n@s:3\nTT\n+\nII\n")
	input, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer input.Close()
	if n := input.Fetch(2); n != 2 {
		t.Errorf("expected 2 reads, got %v", n)
	}
	if reads := input.Data().([]*Read); reads[1].Name != "s:2" {
		t.Errorf("unexpected batch %v", reads)
	}
	if n := input.Fetch(2); n != 1 {
		t.Errorf("expected 1 read, got %v", n)
	}
	if err := input.Err(); err != nil {
		t.Error(err)
	}
}

func TestReverseComplement(t *testing.T) {
	if s := string(ReverseComplement([]byte("ATTTA"))); s != "TAAAT" {
		t.Errorf("unexpected reverse complement %v", s)
	}
	if s := string(ReverseComplement([]byte("ACGTRYSWKMN"))); s != "NKMWSRYACGT" {
		t.Errorf("unexpected reverse complement %v", s)
	}
	read := &Read{Name: "s:1", Seq: []byte("AACG"), Qual: []byte("!!II")}
	rc := read.ReverseComplement()
	if string(rc.Seq) != "CGTT" || string(rc.Qual) != "II!!" {
		t.Errorf("unexpected reverse complement read %v %v", string(rc.Seq), string(rc.Qual))
	}
	if string(read.Seq) != "AACG" {
		t.Error("reverse complement modified its input")
	}
}

func TestValidate(t *testing.T) {
	good := writeFile(t, "good.fastq", "@s:1\nACGT\n+\nIIII\n")
	if n, err := Validate(good); err != nil || n != 1 {
		t.Errorf("expected 1 valid read, got %v, %v", n, err)
	}
	empty := writeFile(t, "empty.fastq", "")
	if _, err := Validate(empty); err == nil {
		t.Error("expected an error for an empty file")
	}
	illegal := writeFile(t, "illegal.fastq", "@s:1\nACXT\n+\nIIII\n")
	if _, err := Validate(illegal); err == nil {
		t.Error("expected an error for an illegal sequence character")
	}
}
