package samplesheet

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/carbocation/pfx"
)

// DefaultBatchSize is small enough that one bcl2fastq job per batch finishes
// without running out of memory.
const DefaultBatchSize = 300

// Batch is a contiguous run of data rows. Offset is the index of its first
// row among all data rows and also names the batch.
type Batch struct {
	Offset int
	Rows   [][]string
}

func (b Batch) FileName() string {
	return fmt.Sprintf("novaseq_batch_%d.csv", b.Offset)
}

// Partition splits rows into consecutive batches of n rows; the last batch
// may be shorter. The batches share rows with the input.
func Partition(rows [][]string, n int) ([]Batch, error) {
	if n <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", n)
	}

	batches := make([]Batch, 0, (len(rows)+n-1)/n)
	for offset := 0; offset < len(rows); offset += n {
		end := offset + n
		if end > len(rows) {
			end = len(rows)
		}
		batches = append(batches, Batch{Offset: offset, Rows: rows[offset:end]})
	}

	return batches, nil
}

// WriteBatch writes header followed by the batch rows to dir/b.FileName().
func WriteBatch(dir string, header [2][]string, b Batch) (string, error) {
	path := filepath.Join(dir, b.FileName())

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", pfx.Err(err)
	}

	w := bufio.NewWriter(f)
	for _, row := range append(header[:], b.Rows...) {
		w.WriteString(JoinRow(row))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return "", pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return path, f.Close()
}
