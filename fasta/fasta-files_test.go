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

package fasta

import (
	"io/ioutil"
	"path/filepath"
	"testing"
)

func TestReaderMultiLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.fasta")
	contents := ">centroid=s:1;seqs=12\nACGT\nACGT\n>s:2\nGG\n"
	if err := ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	reader, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	record, err := reader.Next()
	if err != nil {
		t.Fatal(err)
	}
	if record.Name != "centroid=s:1;seqs=12" || string(record.Seq) != "ACGTACGT" {
		t.Errorf("unexpected first record %v %v", record.Name, string(record.Seq))
	}
	record, err = reader.Next()
	if err != nil {
		t.Fatal(err)
	}
	if record.Name != "s:2" || string(record.Seq) != "GG" {
		t.Errorf("unexpected second record %v %v", record.Name, string(record.Seq))
	}
	record, err = reader.Next()
	if err != nil || record != nil {
		t.Errorf("expected end of input, got %v, %v", record, err)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	for _, ext := range []string{".fasta", ".fasta.gz", ".fasta.sz"} {
		path := filepath.Join(t.TempDir(), "out"+ext)
		writer, err := Create(path)
		if err != nil {
			t.Fatal(err)
		}
		for _, record := range []*Record{
			{Name: "s:1", Seq: []byte("ACGT")},
			{Name: "s:2", Seq: []byte("GGCC")},
		} {
			if err := writer.Write(record); err != nil {
				t.Fatal(err)
			}
		}
		if err := writer.Close(); err != nil {
			t.Fatal(err)
		}
		n, err := Count(path)
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 {
			t.Errorf("expected 2 records in %v, got %v", ext, n)
		}
	}
}

func TestFromFastq(t *testing.T) {
	dir := t.TempDir()
	fastqPath := filepath.Join(dir, "in.fastq")
	if err := ioutil.WriteFile(fastqPath, []byte("@s:1\nACGT\n+\nIIII\n@s:2\nGG\n+\nII\n"), 0644); err != nil {
		t.Fatal(err)
	}
	fastaPath := filepath.Join(dir, "out.fasta")
	n, err := FromFastq(fastqPath, fastaPath)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 converted reads, got %v", n)
	}
	reader, err := Open(fastaPath)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	record, err := reader.Next()
	if err != nil {
		t.Fatal(err)
	}
	if record.Name != "s:1" || string(record.Seq) != "ACGT" {
		t.Errorf("unexpected record %v %v", record.Name, string(record.Seq))
	}
}
