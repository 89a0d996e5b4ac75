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

package reports

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/exascience/elamp/project"
)

func mkfile(t *testing.T, name, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0700); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(name, []byte(contents), 0600); err != nil {
		t.Fatal(err)
	}
}

// completedProject lays out the artifacts of a finished single-sample
// run on disk.
func completedProject(t *testing.T) *project.Project {
	t.Helper()
	root := t.TempDir()
	in := filepath.Join(root, "in") + string(os.PathSeparator)
	out := filepath.Join(root, "out") + string(os.PathSeparator)
	sample := &project.Sample{
		Project:         "soil",
		ProjectLongName: "soil metagenomics",
		ShortName:       "s1",
		Num:             1,
		InputDir:        in,
		FastqFileName:   "s1.fastq",
		OutputDir:       out,
		RunSilva:        true,
	}
	p := &project.Project{ShortName: "soil", Samples: []*project.Sample{sample}}

	read := func(name string) string { return "@" + name + "\nACGT\n+\nIIII\n" }
	mkfile(t, sample.Fastq(), read("r1")+read("r2")+read("r3"))
	filtered := filepath.Join(sample.Dir(), "filtered")
	mkfile(t, filepath.Join(filtered, "primers.fastq"), read("r1")+read("r2")+read("r3"))
	mkfile(t, filepath.Join(filtered, "n_base.fastq"), read("r1")+read("r2")+read("r3"))
	mkfile(t, filepath.Join(filtered, "length.fastq"), read("r1")+read("r2"))
	mkfile(t, filepath.Join(filtered, "score.fastq"), read("r1")+read("r2"))
	mkfile(t, filepath.Join(filtered, "renamed.fastq"), read("s1:1")+read("s1:2"))
	mkfile(t, filepath.Join(filtered, "renamed.fastq.done"), "2\n")
	chimeras := filepath.Join(sample.Dir(), "chimeras")
	mkfile(t, filepath.Join(chimeras, "no_chimeras.fasta"), ">s1:1\nACGT\n>s1:2\nACGT\n")
	mkfile(t, filepath.Join(chimeras, "no_chimeras.fasta.done"), "2\n")
	mkfile(t, p.PooledReads(), ">s1:1\nACGT\n>s1:2\nACGT\n")
	clustering := p.Clustering()
	mkfile(t, clustering.OTUs, ">centroid=s1:1;seqs=2\nACGT\n")
	mkfile(t, clustering.TableFile, "#OTU ID\ts1\ns1:1\t13\n")
	mkfile(t, clustering.Artifact+".done", "1\n")
	silva := filepath.Join(p.Dir(), "taxonomy", "silva")
	mkfile(t, filepath.Join(silva, "assignments.txt"), "s1_1\tBacteria;Proteobacteria;\n")
	mkfile(t, filepath.Join(silva, "assignments.txt.done"), "1\n")
	return p
}

func TestSummarize(t *testing.T) {
	p := completedProject(t)
	summary, err := Summarize(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Samples) != 1 {
		t.Fatalf("expected 1 sample summary, got %v", len(summary.Samples))
	}
	s := summary.Samples[0]
	if s.Input != 3 || s.Primers != 3 || s.NBases != 3 || s.Length != 2 || s.Score != 2 || s.Cleaned != 2 {
		t.Errorf("unexpected sample counts %+v", s)
	}
	if survival := s.Survival(); survival < 66 || survival > 67 {
		t.Errorf("expected a survival around 66.7, got %v", survival)
	}
	if summary.PooledReads != 2 {
		t.Errorf("expected 2 pooled reads, got %v", summary.PooledReads)
	}
	if summary.OTUCount != 1 {
		t.Errorf("expected 1 OTU, got %v", summary.OTUCount)
	}
	if len(summary.Databases) != 1 || summary.Databases[0].Name != "silva" {
		t.Fatalf("expected a silva summary, got %+v", summary.Databases)
	}
	taxa := summary.Databases[0].TopTaxa
	if len(taxa) != 1 || taxa[0].Name != "Proteobacteria" || taxa[0].Count != 13 {
		t.Errorf("unexpected top taxa %+v", taxa)
	}
}

func TestSummarizePartialRun(t *testing.T) {
	root := t.TempDir() + string(os.PathSeparator)
	sample := &project.Sample{
		Project:       "soil",
		ShortName:     "s1",
		InputDir:      root,
		FastqFileName: "s1.fastq",
		OutputDir:     root,
	}
	p := &project.Project{ShortName: "soil", Samples: []*project.Sample{sample}}
	summary, err := Summarize(p)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Samples[0].Input != 0 || summary.OTUCount != 0 {
		t.Errorf("expected zero counts for a run that has not started, got %+v", summary)
	}
}

func TestWriteReport(t *testing.T) {
	p := completedProject(t)
	filename, err := Write(p)
	if err != nil {
		t.Fatal(err)
	}
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	report := string(contents)
	for _, want := range []string{
		"Project soil (soil metagenomics)",
		"Sample 1: s1",
		"raw reads          3",
		"after chimeras     2",
		"Pooled reads: 2",
		"OTUs: 1",
		"Most abundant taxa according to silva:",
		"Proteobacteria: 13",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("the report does not mention %q:\n%v", want, report)
		}
	}
}

func TestBundle(t *testing.T) {
	p := completedProject(t)
	if _, err := Write(p); err != nil {
		t.Fatal(err)
	}
	dir, err := Bundle(p)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"report.txt",
		"otus.fasta",
		"otu_table.tsv",
		filepath.Join("silva", "assignments.txt"),
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("the bundle misses %v: %v", name, err)
		}
	}
}
