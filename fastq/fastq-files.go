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

// Package fastq implements streaming input and output of FASTQ files,
// including transparent decompression/compression for .gz and .sz
// (snappy) files. InputFile values can act as sources for pargo
// pipelines so that filters operate on batches of reads with bounded
// memory.
package fastq

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
)

// PhredOffset is the ASCII offset of PHRED+33 encoded quality scores.
const PhredOffset = 33

// A Read is a single sequencing read. Seq and Qual always have the
// same length. Reads are treated as immutable once parsed: filters
// that trim or reorient a read allocate a new one.
type Read struct {
	Name string
	Seq  []byte
	Qual []byte
}

// Len returns the number of bases in the read.
func (r *Read) Len() int {
	return len(r.Seq)
}

// Score returns the PHRED quality score of the base at index i.
func (r *Read) Score(i int) int {
	return int(r.Qual[i]) - PhredOffset
}

// Slice returns a new read covering the half-open base range [start, end).
func (r *Read) Slice(start, end int) *Read {
	seq := make([]byte, end-start)
	qual := make([]byte, end-start)
	copy(seq, r.Seq[start:end])
	copy(qual, r.Qual[start:end])
	return &Read{Name: r.Name, Seq: seq, Qual: qual}
}

var complement [256]byte

func init() {
	for i := range complement {
		complement[i] = 'N'
	}
	complement['A'], complement['T'] = 'T', 'A'
	complement['C'], complement['G'] = 'G', 'C'
	complement['R'], complement['Y'] = 'Y', 'R'
	complement['S'], complement['W'] = 'S', 'W'
	complement['K'], complement['M'] = 'M', 'K'
	complement['B'], complement['V'] = 'V', 'B'
	complement['D'], complement['H'] = 'H', 'D'
	complement['N'] = 'N'
}

// ReverseComplement returns the reverse complement of a nucleotide
// sequence as a new slice. IUPAC ambiguity codes are complemented;
// any other byte becomes 'N'.
func ReverseComplement(seq []byte) []byte {
	n := len(seq)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = complement[seq[n-1-i]]
	}
	return out
}

// ReverseComplement returns a new read with the sequence reverse
// complemented and the quality scores reversed accordingly.
func (r *Read) ReverseComplement() *Read {
	n := len(r.Seq)
	qual := make([]byte, n)
	for i := 0; i < n; i++ {
		qual[i] = r.Qual[n-1-i]
	}
	return &Read{Name: r.Name, Seq: ReverseComplement(r.Seq), Qual: qual}
}

// FASTQ file extensions.
const (
	FastqExt  = ".fastq"
	GzipExt   = ".gz"
	SnappyExt = ".sz"
)

// InputFile represents a FASTQ file for input. It implements the
// pipeline.Source interface so it can feed a pargo pipeline with
// batches of reads.
type InputFile struct {
	name string
	rc   io.Closer
	buf  *bufio.Reader
	line int
	data []*Read
	err  error
}

// Open a FASTQ file for input.
//
// Files ending in .gz or .sz are decompressed on the fly. If the name
// is "/dev/stdin", the input is read from os.Stdin.
func Open(name string) (*InputFile, error) {
	var file *os.File
	if name == "/dev/stdin" {
		file = os.Stdin
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		file = f
	}
	input := &InputFile{name: name, rc: file}
	switch filepath.Ext(name) {
	case GzipExt:
		gz, err := gzip.NewReader(file)
		if err != nil {
			_ = file.Close()
			return nil, err
		}
		input.buf = bufio.NewReader(gz)
	case SnappyExt:
		input.buf = bufio.NewReader(snappy.NewReader(file))
	default:
		input.buf = bufio.NewReader(file)
	}
	return input, nil
}

// Close closes the FASTQ input file.
func (f *InputFile) Close() error {
	if f.rc == os.Stdin {
		return nil
	}
	return f.rc.Close()
}

func (f *InputFile) readLine() ([]byte, error) {
	line, err := f.buf.ReadBytes('\n')
	if len(line) > 0 {
		f.line++
		line = bytes.TrimRight(line, "\r\n")
		return line, nil
	}
	return nil, err
}

// ParseRead parses the next read from the file. It returns nil at the
// end of the input. Format violations are reported as errors that
// mention the file name and line number.
func (f *InputFile) ParseRead() (*Read, error) {
	header, err := f.readLine()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(header) == 0 || header[0] != '@' {
		return nil, fmt.Errorf("invalid FASTQ file %v: missing @ header at line %v", f.name, f.line)
	}
	seq, err := f.readLine()
	if err != nil {
		return nil, fmt.Errorf("invalid FASTQ file %v: truncated record at line %v", f.name, f.line)
	}
	plus, err := f.readLine()
	if err != nil || len(plus) == 0 || plus[0] != '+' {
		return nil, fmt.Errorf("invalid FASTQ file %v: missing + separator at line %v", f.name, f.line)
	}
	qual, err := f.readLine()
	if err != nil {
		return nil, fmt.Errorf("invalid FASTQ file %v: truncated quality line at line %v", f.name, f.line)
	}
	if len(seq) != len(qual) {
		return nil, fmt.Errorf("invalid FASTQ file %v: sequence and quality lengths differ at line %v", f.name, f.line)
	}
	return &Read{Name: string(header[1:]), Seq: seq, Qual: qual}, nil
}

// Err implements the method of the pipeline.Source interface.
func (f *InputFile) Err() error {
	return f.err
}

// Prepare implements the method of the pipeline.Source interface.
func (f *InputFile) Prepare(_ context.Context) int {
	return -1
}

// Fetch implements the method of the pipeline.Source interface.
func (f *InputFile) Fetch(size int) int {
	data := make([]*Read, 0, size)
	for len(data) < size {
		read, err := f.ParseRead()
		if err != nil {
			f.err = err
			break
		}
		if read == nil {
			break
		}
		data = append(data, read)
	}
	f.data = data
	return len(data)
}

// Data implements the method of the pipeline.Source interface.
func (f *InputFile) Data() interface{} {
	return f.data
}

// OutputFile represents a FASTQ file for output.
type OutputFile struct {
	wc  io.Closer
	sz  *snappy.Writer
	gz  *gzip.Writer
	buf *bufio.Writer
}

// Create a FASTQ file for output.
//
// Files ending in .gz or .sz are compressed on the fly. If the name
// is "/dev/stdout", the output is written to os.Stdout.
func Create(name string) (*OutputFile, error) {
	var file *os.File
	if name == "/dev/stdout" {
		file = os.Stdout
	} else {
		f, err := os.Create(name)
		if err != nil {
			return nil, err
		}
		file = f
	}
	output := &OutputFile{wc: file}
	switch filepath.Ext(name) {
	case GzipExt:
		output.gz = gzip.NewWriter(file)
		output.buf = bufio.NewWriter(output.gz)
	case SnappyExt:
		output.sz = snappy.NewBufferedWriter(file)
		output.buf = bufio.NewWriter(output.sz)
	default:
		output.buf = bufio.NewWriter(file)
	}
	return output, nil
}

// Format appends the FASTQ representation of a read to out.
func Format(read *Read, out []byte) []byte {
	out = append(out, '@')
	out = append(out, read.Name...)
	out = append(out, '\n')
	out = append(out, read.Seq...)
	out = append(out, "\n+\n"...)
	out = append(out, read.Qual...)
	out = append(out, '\n')
	return out
}

// Write writes one read to the output file.
func (f *OutputFile) Write(read *Read) error {
	_, err := f.buf.Write(Format(read, nil))
	return err
}

// WriteBytes writes pre-formatted FASTQ records to the output file.
func (f *OutputFile) WriteBytes(p []byte) (int, error) {
	return f.buf.Write(p)
}

// Close flushes and closes the FASTQ output file.
func (f *OutputFile) Close() error {
	if err := f.buf.Flush(); err != nil {
		return err
	}
	if f.gz != nil {
		if err := f.gz.Close(); err != nil {
			return err
		}
	}
	if f.sz != nil {
		if err := f.sz.Close(); err != nil {
			return err
		}
	}
	if f.wc == os.Stdout {
		return nil
	}
	return f.wc.Close()
}

// Count returns the number of reads in a FASTQ file.
func Count(name string) (int, error) {
	input, err := Open(name)
	if err != nil {
		return 0, err
	}
	defer input.Close()
	n := 0
	for {
		read, err := input.ParseRead()
		if err != nil {
			return n, err
		}
		if read == nil {
			return n, nil
		}
		n++
	}
}

var validBases = func() (table [256]bool) {
	for _, c := range []byte("ACGTUacgtuRYSWKMBDHVryswkmbdhvNn") {
		table[c] = true
	}
	return
}()

// Validate streams through a FASTQ file and checks that every record
// is well formed: a 4-line layout with an @ header and + separator,
// matching sequence and quality lengths, and only IUPAC nucleotide
// codes in the sequence. It returns the number of reads on success.
func Validate(name string) (int, error) {
	input, err := Open(name)
	if err != nil {
		return 0, err
	}
	defer input.Close()
	n := 0
	for {
		read, err := input.ParseRead()
		if err != nil {
			return n, err
		}
		if read == nil {
			break
		}
		for _, c := range read.Seq {
			if !validBases[c] {
				return n, fmt.Errorf("invalid FASTQ file %v: illegal character %q in sequence of read %v", name, c, read.Name)
			}
		}
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("empty FASTQ file %v", name)
	}
	return n, nil
}
