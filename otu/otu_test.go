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

package otu

import (
	"io/ioutil"
	"path/filepath"
	"testing"
)

func TestCanonical(t *testing.T) {
	for _, c := range []struct{ id, want string }{
		{"s:1034", "s_1034"},
		{"centroid=s:1034;seqs=128", "s_1034"},
		{"s_1034", "s_1034"},
		{"centroid=s:1034", "s_1034"},
	} {
		if got := Canonical(c.id); got != c.want {
			t.Errorf("Canonical(%v) = %v, want %v", c.id, got, c.want)
		}
	}
}

func writeTable(t *testing.T, dir string) string {
	t.Helper()
	contents := "#OTU ID\tsoil\twater\n" +
		"s:1\t10\t0\n" +
		"s:2\t3\t7\n" +
		"s:3\t0\t5\n"
	path := filepath.Join(dir, "table.tsv")
	if err := ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseTable(t *testing.T) {
	table, err := ParseTable(writeTable(t, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Samples) != 2 || table.Samples[0] != "soil" || table.Samples[1] != "water" {
		t.Errorf("unexpected samples %v", table.Samples)
	}
	if len(table.OTUs) != 3 {
		t.Errorf("expected 3 OTUs, got %v", table.OTUs)
	}
	if counts := table.Counts("s:2"); len(counts) != 2 || counts[0] != 3 || counts[1] != 7 {
		t.Errorf("unexpected counts for s:2: %v", counts)
	}
	if sum := table.SampleSum("soil"); sum != 13 {
		t.Errorf("expected sample sum 13, got %v", sum)
	}
	if total := table.Total(); total != 25 {
		t.Errorf("expected total 25, got %v", total)
	}
}

func TestVerifyAgainst(t *testing.T) {
	dir := t.TempDir()
	table, err := ParseTable(writeTable(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(dir, "good.fasta")
	contents := ">centroid=s:1;seqs=10\nACGT\n>centroid=s:2;seqs=10\nACGT\n>centroid=s:3;seqs=5\nACGT\n"
	if err := ioutil.WriteFile(good, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	if err := table.VerifyAgainst(good); err != nil {
		t.Error(err)
	}
	missing := filepath.Join(dir, "missing.fasta")
	if err := ioutil.WriteFile(missing, []byte(">centroid=s:1;seqs=10\nACGT\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := table.VerifyAgainst(missing); err == nil {
		t.Error("expected an error for a missing consensus sequence")
	}
	extra := filepath.Join(dir, "extra.fasta")
	if err := ioutil.WriteFile(extra, []byte(contents+">centroid=s:4;seqs=1\nACGT\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := table.VerifyAgainst(extra); err == nil {
		t.Error("expected an error for an extra consensus sequence")
	}
}

func TestParseAssignments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assignments.txt")
	contents := "s_1\tBacteria;Proteobacteria;Gammaproteobacteria;\n" +
		"s:2\tBacteria;Firmicutes;\n"
	if err := ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	assignments, err := ParseAssignments(path)
	if err != nil {
		t.Fatal(err)
	}
	taxa := assignments["s_1"]
	if len(taxa) != 3 || taxa[0] != "Bacteria" || taxa[2] != "Gammaproteobacteria" {
		t.Errorf("unexpected assignment %v", taxa)
	}
	if taxa := assignments["s_2"]; len(taxa) != 2 {
		t.Errorf("expected the OTU name to be canonicalized, got %v", assignments)
	}
}

func TestTaxaTable(t *testing.T) {
	dir := t.TempDir()
	table, err := ParseTable(writeTable(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	assignments := Assignments{
		"s_1": {"Bacteria", "Proteobacteria"},
		"s_2": {"Bacteria", "Firmicutes"},
	}
	domain := TaxaTable(table, assignments, 0)
	if counts := domain["Bacteria"]; counts[0] != 13 || counts[1] != 7 {
		t.Errorf("unexpected domain counts %v", domain)
	}
	if counts := domain[Unassigned]; counts[0] != 0 || counts[1] != 5 {
		t.Errorf("unexpected unassigned counts %v", domain)
	}
	phylum := TaxaTable(table, assignments, 1)
	if len(phylum) != 3 {
		t.Errorf("expected 3 phylum rows, got %v", phylum)
	}
	// ranks beyond the assignment length fall back to Unassigned
	class := TaxaTable(table, assignments, 2)
	if counts := class[Unassigned]; counts[0] != 13 || counts[1] != 12 {
		t.Errorf("unexpected class counts %v", class)
	}
}

func TestWriteTaxaTables(t *testing.T) {
	dir := t.TempDir()
	table, err := ParseTable(writeTable(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	assignments := Assignments{
		"s_1": {"Bacteria"},
		"s_2": {"Bacteria"},
	}
	if err := WriteTaxaTables(dir, []string{"Domain"}, table, assignments); err != nil {
		t.Fatal(err)
	}
	contents, err := ioutil.ReadFile(filepath.Join(dir, "taxa_table_domain.tsv"))
	if err != nil {
		t.Fatal(err)
	}
	want := "\tBacteria\tUnassigned\nsoil\t13\t0\nwater\t7\t5\n"
	if string(contents) != want {
		t.Errorf("unexpected taxa table %q", string(contents))
	}
}
