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

package stages

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/exascience/elamp/internal"
	"github.com/exascience/elamp/otu"
)

const mothurURL = "https://mothur.org"

// A Database is a taxonomic reference database in the layout that the
// classifier expects: an alignment file and a taxonomy file, plus the
// nickname the classifier embeds in its output file names.
type Database struct {
	Name      string
	Nickname  string
	Alignment string
	Taxonomy  string
	RankNames []string
}

// silvaRanks are the ranks most reference taxonomies resolve.
var silvaRanks = []string{"Domain", "Phylum", "Class", "Order", "Family", "Genus", "Species"}

// DatabasesRoot returns the directory under which the reference
// databases are expected, the ELAMP_DATABASES environment variable, or
// ~/databases when it is not set.
func DatabasesRoot() string {
	if root := os.Getenv("ELAMP_DATABASES"); root != "" {
		return root
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, "databases")
}

// KnownDatabases returns the reference databases that can be enabled
// per project, rooted under the given directory.
func KnownDatabases(root string) []Database {
	return []Database{
		{
			Name:      "silva",
			Nickname:  "nr_v138",
			Alignment: filepath.Join(root, "silva", "silva.nr_v138.align"),
			Taxonomy:  filepath.Join(root, "silva", "silva.nr_v138.tax"),
			RankNames: silvaRanks,
		},
		{
			Name:      "greengenes",
			Nickname:  "gg_13_8_99",
			Alignment: filepath.Join(root, "greengenes", "gg_13_8_99.fasta"),
			Taxonomy:  filepath.Join(root, "greengenes", "gg_13_8_99.gg.tax"),
			RankNames: silvaRanks,
		},
		{
			Name:      "rdp",
			Nickname:  "pds",
			Alignment: filepath.Join(root, "rdp", "trainset18_062020.pds.fasta"),
			Taxonomy:  filepath.Join(root, "rdp", "trainset18_062020.pds.tax"),
			RankNames: silvaRanks,
		},
	}
}

// CheckAvailable verifies that the database files exist on disk.
func (d *Database) CheckAvailable() error {
	for _, file := range []string{d.Alignment, d.Taxonomy} {
		if _, err := os.Stat(file); err != nil {
			return fmt.Errorf("the %v reference database does not seem to be accessible: %v is missing; download it and place it under the configured database directory", d.Name, file)
		}
	}
	return nil
}

// Classify assigns a taxonomy to OTU consensus sequences by running
// classify.seqs in mothur against one reference database. All outputs
// land in DestDir, renamed to stable artifact names.
type Classify struct {
	Gate
	Source   string
	DestDir  string
	Database Database
}

// NewClassify returns the taxonomic assignment stage for the given
// consensus sequences and database.
func NewClassify(source, destDir string, database Database) *Classify {
	return &Classify{
		Gate:     Gate{Stage: "taxonomic assignment (" + database.Name + ")", Artifact: filepath.Join(destDir, "assignments.txt")},
		Source:   source,
		DestDir:  destDir,
		Database: database,
	}
}

func (c *Classify) centers() string { return filepath.Join(c.DestDir, "centers.fasta") }
func (c *Classify) stdout() string  { return filepath.Join(c.DestDir, "stdout.txt") }
func (c *Classify) stderr() string  { return filepath.Join(c.DestDir, "stderr.txt") }

// copyFile copies the consensus sequences into the destination
// directory, since mothur writes its outputs next to its input.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
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

// Run runs the classification. mothur reports many errors on standard
// output with a zero exit code, so the captured output is scanned for
// "ERROR" afterwards.
func (c *Classify) Run(threads int) error {
	if err := CheckInstalled("mothur", mothurURL); err != nil {
		return err
	}
	if err := c.Database.CheckAvailable(); err != nil {
		return err
	}
	// start from a clean slate, mothur does not overwrite reliably
	if err := os.RemoveAll(c.DestDir); err != nil {
		return err
	}
	if err := os.MkdirAll(c.DestDir, 0700); err != nil {
		return err
	}
	if err := copyFile(c.Source, c.centers()); err != nil {
		return err
	}
	// mothur runs with DestDir as working directory, so the batch
	// command must carry absolute paths
	centers, err := internal.FullPathname(c.centers())
	if err != nil {
		return err
	}
	alignment, err := internal.FullPathname(c.Database.Alignment)
	if err != nil {
		return err
	}
	taxonomy, err := internal.FullPathname(c.Database.Taxonomy)
	if err != nil {
		return err
	}
	batch := fmt.Sprintf("#classify.seqs(fasta=%v, reference=%v, taxonomy=%v, processors=%v, probs=F);",
		centers, alignment, taxonomy, Threads(threads))
	if err := runTool(c.DestDir, c.stdout(), c.stderr(), "mothur", batch); err != nil {
		return err
	}
	stdout, err := ioutil.ReadFile(c.stdout())
	if err != nil {
		return err
	}
	if strings.Contains(string(stdout), "ERROR") {
		return fmt.Errorf("the classification of %v against %v did not run correctly; check the log files in %v", c.Source, c.Database.Name, c.DestDir)
	}
	prefix := filepath.Join(c.DestDir, "centers."+c.Database.Nickname+".wang")
	if err := os.Rename(prefix+".taxonomy", c.Artifact); err != nil {
		return err
	}
	if err := os.Rename(prefix+".tax.summary", filepath.Join(c.DestDir, "summary.txt")); err != nil {
		return err
	}
	// only written when mothur had to flip reads
	if flipped := prefix + ".flip.accnos"; internal.FileExists(flipped) {
		if err := os.Rename(flipped, filepath.Join(c.DestDir, "flipped.txt")); err != nil {
			return err
		}
	}
	assignments, err := otu.ParseAssignments(c.Artifact)
	if err != nil {
		return err
	}
	return c.Complete(len(assignments))
}

// Assignments parses and returns the assignment table. It fails with
// a NotRunError if the stage has not run yet.
func (c *Classify) Assignments() (otu.Assignments, error) {
	if !c.HasRun() {
		return nil, &NotRunError{Stage: c.Stage}
	}
	return otu.ParseAssignments(c.Artifact)
}

func (c *Classify) String() string {
	return c.Database.Name
}

// TaxaTablesDir is where the taxa tables derived from this
// classification are written.
func (c *Classify) TaxaTablesDir() string {
	return filepath.Join(c.DestDir, "taxa_tables")
}

// WriteTaxaTables derives one taxa table per rank from an abundance
// table and this classification's assignments.
func (c *Classify) WriteTaxaTables(table *otu.Table) error {
	assignments, err := c.Assignments()
	if err != nil {
		return err
	}
	return otu.WriteTaxaTables(c.TaxaTablesDir(), c.Database.RankNames, table, assignments)
}
