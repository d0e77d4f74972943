package samplesheet

import (
	"os"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// ManifestEntry summarises one batch file.
type ManifestEntry struct {
	Offset        int    `csv:"offset"`
	Rows          int    `csv:"rows"`
	SampleSheet   string `csv:"sample_sheet"`
	FirstSampleID string `csv:"first_sample_id"`
	LastSampleID  string `csv:"last_sample_id"`
}

// Manifest describes batches drawn from s. Sample IDs come from the
// Sample_ID column when present, else the first column.
func Manifest(s *Sheet, batches []Batch) []*ManifestEntry {
	col, err := s.Column(SampleIDColumn)
	if err != nil {
		col = 0
	}

	sampleID := func(row []string) string {
		if col < len(row) {
			return row[col]
		}
		return ""
	}

	out := make([]*ManifestEntry, 0, len(batches))
	for _, b := range batches {
		entry := &ManifestEntry{
			Offset:      b.Offset,
			Rows:        len(b.Rows),
			SampleSheet: b.FileName(),
		}
		if len(b.Rows) > 0 {
			entry.FirstSampleID = sampleID(b.Rows[0])
			entry.LastSampleID = sampleID(b.Rows[len(b.Rows)-1])
		}
		out = append(out, entry)
	}

	return out
}

func WriteManifest(path string, entries []*ManifestEntry) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pfx.Err(err)
	}

	if err := gocsv.MarshalFile(&entries, f); err != nil {
		f.Close()
		return pfx.Err(err)
	}

	return f.Close()
}

func ReadManifest(path string) ([]*ManifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	var entries []*ManifestEntry
	if err := gocsv.UnmarshalFile(f, &entries); err != nil {
		return nil, pfx.Err(err)
	}

	return entries, nil
}
