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
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/exascience/elamp/project"
	"github.com/exascience/elamp/stages"
)

// Bundle gathers the deliverables of a project run under
// <project>/bundle/, in a stable layout that does not depend on where
// the stages put their artifacts:
//
//	bundle/report.txt
//	bundle/otus.fasta
//	bundle/otu_table.tsv
//	bundle/<database>/assignments.txt
//	bundle/<database>/taxa_table_<rank>.tsv
//	bundle/ncbi_blast/best_hits.tsv
//
// Artifacts of stages that have not run are skipped, so a bundle can
// also be made for a partial run. Bundle returns the bundle directory.
func Bundle(p *project.Project) (string, error) {
	dir := filepath.Join(p.Dir(), "bundle")
	if err := os.RemoveAll(dir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	report := filepath.Join(p.Dir(), "report", "report.txt")
	if err := bundleFile(report, filepath.Join(dir, "report.txt")); err != nil {
		return "", err
	}
	clustering := p.Clustering()
	if clustering.HasRun() {
		if err := bundleFile(clustering.OTUs, filepath.Join(dir, "otus.fasta")); err != nil {
			return "", err
		}
		if err := bundleFile(clustering.TableFile, filepath.Join(dir, "otu_table.tsv")); err != nil {
			return "", err
		}
	}
	for _, database := range p.Databases(stages.DatabasesRoot()) {
		classify := p.Classify(database)
		if !classify.HasRun() {
			continue
		}
		target := filepath.Join(dir, database.Name)
		if err := os.MkdirAll(target, 0700); err != nil {
			return "", err
		}
		if err := bundleFile(classify.Artifact, filepath.Join(target, "assignments.txt")); err != nil {
			return "", err
		}
		if err := bundleDir(classify.TaxaTablesDir(), target); err != nil {
			return "", err
		}
	}
	if p.Samples[0].RunNcbiBlast {
		blast := p.BlastClassify(stages.BlastDatabase())
		if blast.HasRun() {
			target := filepath.Join(dir, "ncbi_blast")
			if err := os.MkdirAll(target, 0700); err != nil {
				return "", err
			}
			if err := bundleFile(blast.Artifact, filepath.Join(target, "best_hits.tsv")); err != nil {
				return "", err
			}
		}
	}
	return dir, nil
}

// bundleFile copies one artifact into the bundle. Missing artifacts
// are skipped silently.
func bundleFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer func() {
		if cerr := in.Close(); err == nil {
			err = cerr
		}
	}()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}

// bundleDir copies the regular files of one directory into the bundle,
// without recursing.
func bundleDir(src, dst string) error {
	entries, err := ioutil.ReadDir(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := bundleFile(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
