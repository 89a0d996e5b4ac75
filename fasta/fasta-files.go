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

// Package fasta implements streaming input and output of FASTA files.
// These are the files exchanged with the wrapped external tools
// (chimera detection, rRNA prediction, clustering, classification),
// and the format of the pooled project-wide read set.
package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/exascience/elamp/fastq"
	"github.com/golang/snappy"
)

// A Record is a single FASTA entry. The name is the header line
// without the leading '>'.
type Record struct {
	Name string
	Seq  []byte
}

// Reader streams through the records of a FASTA file, tolerating
// multi-line sequences.
type Reader struct {
	name string
	rc   io.Closer
	buf  *bufio.Reader
	next string
	eof  bool
}

// Open a FASTA file for input. Files ending in .gz or .sz are
// decompressed on the fly.
func Open(name string) (*Reader, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	reader := &Reader{name: name, rc: file}
	switch filepath.Ext(name) {
	case ".gz":
		gz, err := gzip.NewReader(file)
		if err != nil {
			_ = file.Close()
			return nil, err
		}
		reader.buf = bufio.NewReader(gz)
	case ".sz":
		reader.buf = bufio.NewReader(snappy.NewReader(file))
	default:
		reader.buf = bufio.NewReader(file)
	}
	return reader, nil
}

// Close closes the FASTA input file.
func (r *Reader) Close() error {
	return r.rc.Close()
}

// Next returns the next record, or nil at the end of the input.
func (r *Reader) Next() (*Record, error) {
	if r.eof {
		return nil, nil
	}
	for r.next == "" {
		line, err := r.readLine()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			continue
		}
		if line[0] != '>' {
			return nil, fmt.Errorf("invalid FASTA file %v: missing first header", r.name)
		}
		r.next = string(line[1:])
	}
	record := &Record{Name: r.next}
	r.next = ""
	for {
		line, err := r.readLine()
		if err == io.EOF {
			r.eof = true
			break
		}
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			r.next = string(line[1:])
			break
		}
		record.Seq = append(record.Seq, line...)
	}
	return record, nil
}

func (r *Reader) readLine() ([]byte, error) {
	line, err := r.buf.ReadBytes('\n')
	if len(line) > 0 {
		return bytes.TrimRight(line, "\r\n"), nil
	}
	return nil, err
}

// Writer writes FASTA records with single-line sequences.
type Writer struct {
	wc  io.Closer
	sz  *snappy.Writer
	gz  *gzip.Writer
	buf *bufio.Writer
}

// Create a FASTA file for output. Files ending in .gz or .sz are
// compressed on the fly.
func Create(name string) (*Writer, error) {
	file, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	writer := &Writer{wc: file}
	switch filepath.Ext(name) {
	case ".gz":
		writer.gz = gzip.NewWriter(file)
		writer.buf = bufio.NewWriter(writer.gz)
	case ".sz":
		writer.sz = snappy.NewBufferedWriter(file)
		writer.buf = bufio.NewWriter(writer.sz)
	default:
		writer.buf = bufio.NewWriter(file)
	}
	return writer, nil
}

// Write writes one record to the output file.
func (w *Writer) Write(record *Record) error {
	if _, err := w.buf.WriteString(">" + record.Name + "\n"); err != nil {
		return err
	}
	if _, err := w.buf.Write(record.Seq); err != nil {
		return err
	}
	return w.buf.WriteByte('\n')
}

// Close flushes and closes the FASTA output file.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if w.gz != nil {
		if err := w.gz.Close(); err != nil {
			return err
		}
	}
	if w.sz != nil {
		if err := w.sz.Close(); err != nil {
			return err
		}
	}
	return w.wc.Close()
}

// Count returns the number of records in a FASTA file.
func Count(name string) (int, error) {
	reader, err := Open(name)
	if err != nil {
		return 0, err
	}
	defer reader.Close()
	n := 0
	for {
		record, err := reader.Next()
		if err != nil {
			return n, err
		}
		if record == nil {
			return n, nil
		}
		n++
	}
}

// FromFastq converts a FASTQ file to a FASTA file, dropping the
// quality scores. It returns the number of reads converted.
func FromFastq(fastqName, fastaName string) (int, error) {
	input, err := fastq.Open(fastqName)
	if err != nil {
		return 0, err
	}
	defer input.Close()
	output, err := Create(fastaName)
	if err != nil {
		return 0, err
	}
	n := 0
	for {
		read, err := input.ParseRead()
		if err != nil {
			_ = output.Close()
			return n, err
		}
		if read == nil {
			break
		}
		if err := output.Write(&Record{Name: read.Name, Seq: read.Seq}); err != nil {
			_ = output.Close()
			return n, err
		}
		n++
	}
	return n, output.Close()
}
