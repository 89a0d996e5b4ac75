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

// Package reports summarizes the pipeline results of a project into a
// plain text report, and gathers the deliverables into a bundle
// directory.
package reports

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/exascience/elamp/fasta"
	"github.com/exascience/elamp/fastq"
	"github.com/exascience/elamp/otu"
	"github.com/exascience/elamp/project"
	"github.com/exascience/elamp/stages"
)

// SampleSummary holds the per-sample numbers of the report: the read
// counts after each pass of the filter cascade and after chimera
// removal and rRNA extraction.
type SampleSummary struct {
	ShortName string
	LongName  string
	Num       int
	Input     int
	Primers   int
	NBases    int
	Length    int
	Score     int
	Cleaned   int
	RRNA      int
	RanRRNA   bool
}

// Survival returns the fraction of raw reads that reached the pooled
// stage, as a percentage.
func (s *SampleSummary) Survival() float64 {
	if s.Input == 0 {
		return 0
	}
	final := s.Cleaned
	if s.RanRRNA {
		final = s.RRNA
	}
	return 100 * float64(final) / float64(s.Input)
}

// TaxonCount is one taxon with its total abundance across all samples.
type TaxonCount struct {
	Name  string
	Count int
}

// DatabaseSummary holds the most abundant phyla assigned by one
// reference database.
type DatabaseSummary struct {
	Name    string
	TopTaxa []TaxonCount
}

// ProjectSummary is the complete input of the report template.
type ProjectSummary struct {
	ShortName   string
	LongName    string
	Samples     []SampleSummary
	PooledReads int
	OTUCount    int
	Databases   []DatabaseSummary
}

// how many taxa a database summary lists
const topTaxaCount = 5

// Summarize collects the numbers of all completed stages of a project.
// Stages that have not run are reported as zero rather than failing,
// so that a report can also be produced for a partial run.
func Summarize(p *project.Project) (*ProjectSummary, error) {
	summary := &ProjectSummary{
		ShortName: p.ShortName,
		LongName:  p.LongName(),
	}
	for _, sample := range p.Samples {
		s, err := summarizeSample(sample)
		if err != nil {
			return nil, err
		}
		summary.Samples = append(summary.Samples, *s)
	}
	if n, err := fasta.Count(p.PooledReads()); err == nil {
		summary.PooledReads = n
	}
	clustering := p.Clustering()
	if clustering.HasRun() {
		table, err := clustering.Table()
		if err != nil {
			return nil, err
		}
		summary.OTUCount = len(table.OTUs)
		for _, database := range p.Databases(stages.DatabasesRoot()) {
			classify := p.Classify(database)
			if !classify.HasRun() {
				continue
			}
			assignments, err := classify.Assignments()
			if err != nil {
				return nil, err
			}
			summary.Databases = append(summary.Databases, summarizeDatabase(database, table, assignments))
		}
	}
	return summary, nil
}

func summarizeSample(sample *project.Sample) (*SampleSummary, error) {
	s := &SampleSummary{
		ShortName: sample.ShortName,
		LongName:  sample.LongName,
		Num:       sample.Num,
		RanRRNA:   sample.RunBarrnap,
	}
	filter := sample.SeqFilter()
	if !filter.HasRun() {
		return s, nil
	}
	counts := []struct {
		file  string
		count *int
	}{
		{sample.Fastq(), &s.Input},
		{filepath.Join(filter.Dir, "primers.fastq"), &s.Primers},
		{filepath.Join(filter.Dir, "n_base.fastq"), &s.NBases},
		{filepath.Join(filter.Dir, "length.fastq"), &s.Length},
		{filepath.Join(filter.Dir, "score.fastq"), &s.Score},
	}
	for _, c := range counts {
		n, err := fastq.Count(c.file)
		if err != nil {
			return nil, fmt.Errorf("%v, while summarizing the sample %v", err, sample.ShortName)
		}
		*c.count = n
	}
	if chimeras := sample.Chimeras(); chimeras.HasRun() {
		s.Cleaned = chimeras.Count()
	}
	if sample.RunBarrnap {
		if barrnap := sample.Barrnap(); barrnap.HasRun() {
			s.RRNA = barrnap.Count()
		}
	}
	return s, nil
}

// summarizeDatabase ranks the taxa of the phylum level by their total
// abundance across all samples.
func summarizeDatabase(database stages.Database, table *otu.Table, assignments otu.Assignments) DatabaseSummary {
	summary := DatabaseSummary{Name: database.Name}
	rank := 1
	if len(database.RankNames) < 2 {
		rank = 0
	}
	taxa := otu.TaxaTable(table, assignments, rank)
	for name, counts := range taxa {
		total := 0
		for _, count := range counts {
			total += count
		}
		summary.TopTaxa = append(summary.TopTaxa, TaxonCount{Name: name, Count: total})
	}
	sort.Slice(summary.TopTaxa, func(i, j int) bool {
		ti, tj := summary.TopTaxa[i], summary.TopTaxa[j]
		if ti.Count != tj.Count {
			return ti.Count > tj.Count
		}
		return ti.Name < tj.Name
	})
	if len(summary.TopTaxa) > topTaxaCount {
		summary.TopTaxa = summary.TopTaxa[:topTaxaCount]
	}
	return summary
}

const reportTemplate = `Project {{.ShortName}}{{if .LongName}} ({{.LongName}}){{end}}
{{range .Samples}}
Sample {{.Num}}: {{.ShortName}}{{if .LongName}} ({{.LongName}}){{end}}
  raw reads          {{.Input}}
  after primers      {{.Primers}}
  after N removal    {{.NBases}}
  after length       {{.Length}}
  after quality      {{.Score}}
  after chimeras     {{.Cleaned}}
{{- if .RanRRNA}}
  after rRNA         {{.RRNA}}
{{- end}}
  survival           {{printf "%.1f" .Survival}}%
{{end}}
Pooled reads: {{.PooledReads}}
OTUs: {{.OTUCount}}
{{range .Databases}}
Most abundant taxa according to {{.Name}}:
{{- range .TopTaxa}}
  {{.Name}}: {{.Count}}
{{- end}}
{{end}}`

// Write renders the project summary into <project>/report/report.txt
// and returns the path of the report.
func Write(p *project.Project) (filename string, err error) {
	summary, err := Summarize(p)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(p.Dir(), "report")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	filename = filepath.Join(dir, "report.txt")
	file, err := os.Create(filename)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	t := template.Must(template.New("report").Parse(reportTemplate))
	if err := t.Execute(file, summary); err != nil {
		return "", err
	}
	return filename, err
}
