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

package cmd

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckCreate(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "profiles", "run1.prof")
	if !checkCreate("--profile", filename) {
		t.Errorf("expected checkCreate to accept %v", filename)
	}
	if _, err := os.Stat(filename); err != nil {
		t.Errorf("expected checkCreate to create %v: %v", filename, err)
	}
	if checkCreate("--profile", "") {
		t.Error("expected checkCreate to reject an empty filename")
	}
	if checkCreate("--profile", "--timed") {
		t.Error("expected checkCreate to reject a flag in place of a filename")
	}
}

func TestLoadRunConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "elamp.toml")
	contents := `
nr_of_threads = 8
databases_root = "/data/databases"
blast_database = "/data/databases/ncbi/16S_ribosomal_RNA"
log_path = "/var/log"
`
	if err := ioutil.WriteFile(filename, []byte(contents), 0600); err != nil {
		t.Fatal(err)
	}
	config, err := loadRunConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if config.NrOfThreads != 8 {
		t.Errorf("expected 8 threads, got %v", config.NrOfThreads)
	}
	if config.DatabasesRoot != "/data/databases" {
		t.Errorf("unexpected databases root %v", config.DatabasesRoot)
	}
	if config.LogPath != "/var/log" {
		t.Errorf("unexpected log path %v", config.LogPath)
	}
}

func TestLoadRunConfigAbsent(t *testing.T) {
	config, err := loadRunConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if config.NrOfThreads != 0 || config.DatabasesRoot != "" {
		t.Errorf("expected an empty configuration, got %+v", config)
	}
}

func TestLoadRunConfigInvalid(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "elamp.toml")
	if err := ioutil.WriteFile(filename, []byte("nr_of_threads = \"many\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadRunConfig(filename); err == nil {
		t.Error("expected a parse error")
	}
}
