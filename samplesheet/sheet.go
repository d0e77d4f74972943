// Package samplesheet splits a sequencing sample sheet into fixed-size
// batches and writes the commands that demultiplex each batch.
package samplesheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/carbocation/seqbot"
)

// Column names that locate the i7 and i5 barcodes in the second header row.
const (
	I7Column = "index"
	I5Column = "index2"

	// SampleIDColumn is informational; sheets without it still batch.
	SampleIDColumn = "Sample_ID"
)

var (
	ErrShortSheet         = errors.New("sample sheet needs two header rows")
	ErrMissingIndexColumn = errors.New("sample sheet header lacks an index column")
	ErrRowLength          = errors.New("sample sheet row is too short")
)

// Sheet is a parsed sample sheet. The two header rows are kept as read and
// written back in front of every batch.
type Sheet struct {
	Header [2][]string
	Rows   [][]string

	I7 int
	I5 int
}

// ReadFile reads a sample sheet from disk. Gzip, bzip2, xz and zip
// compressed sheets are decompressed on the fly.
func ReadFile(path string) (*Sheet, error) {
	rc, dt, err := seqbot.OpenMaybeCompressed(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer rc.Close()

	if dt != seqbot.DataTypeNoCompression {
		log.Printf("Reading %s as %s\n", path, dt)
	}

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, pfx.Err(err)
	}

	if delim := seqbot.DetermineDelimiter(data); delim != ',' {
		log.Printf("Warning: %s looks %q-delimited; parsing it as comma-separated anyway\n", path, delim)
	}

	sheet, err := Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return sheet, nil
}

// Read parses a comma-separated sample sheet.
func Read(r io.Reader) (*Sheet, error) {
	cr := csv.NewReader(r)

	// Section rows such as [Data] rarely carry as many fields as the column
	// header, so the field count is not enforced here.
	cr.FieldsPerRecord = -1

	// Free-text columns carry things like 12" plate.
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, pfx.Err(err)
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("%w, found %d", ErrShortSheet, len(rows))
	}

	s := &Sheet{
		Header: [2][]string{rows[0], rows[1]},
		Rows:   rows[2:],
	}

	if s.I7, err = s.Column(I7Column); err != nil {
		return nil, err
	}
	if s.I5, err = s.Column(I5Column); err != nil {
		return nil, err
	}

	need := s.I7
	if s.I5 > need {
		need = s.I5
	}
	for i, row := range s.Rows {
		if len(row) <= need {
			return nil, fmt.Errorf("%w: data row %d has %d fields, the index columns need %d", ErrRowLength, i, len(row), need+1)
		}
	}

	return s, nil
}

// Column returns the position of name in the column header row.
func (s *Sheet) Column(name string) (int, error) {
	for i, v := range s.Header[1] {
		if strings.TrimSpace(v) == name {
			return i, nil
		}
	}

	return -1, fmt.Errorf("%w %q", ErrMissingIndexColumn, name)
}

// ReverseComplementColumn rewrites column col of every data row in place.
func (s *Sheet) ReverseComplementColumn(col int) error {
	for i, row := range s.Rows {
		rc, err := ReverseComplement(row[col])
		if err != nil {
			return fmt.Errorf("data row %d, column %q: %w", i, s.Header[1][col], err)
		}
		row[col] = rc
	}

	return nil
}

// HeaderText renders the two header rows as they appear at the top of each
// batch file, without a trailing newline.
func (s *Sheet) HeaderText() string {
	return JoinRow(s.Header[0]) + "\n" + JoinRow(s.Header[1])
}

// JoinRow comma-joins fields as they were read, without adding quotes.
func JoinRow(row []string) string {
	return strings.Join(row, ",")
}
