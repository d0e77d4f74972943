package samplesheet

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/carbocation/seqbot"
)

// Options configures BatchSheet.
type Options struct {
	SampleSheet string
	BatchSize   int

	ReverseCompI7 bool
	ReverseCompI5 bool

	Launch LaunchOptions
}

// Result lists what BatchSheet wrote.
type Result struct {
	Dir         string
	Batches     []Batch
	SheetPaths  []string
	Script      string
	Manifest    string
	Invocations int
}

// DefaultRunPrefix drops the last two '_'-separated fields of a run ID, so
// that 181214_A00111_0242_AHJ5JJDSXX becomes 181214_A00111.
func DefaultRunPrefix(run string) string {
	for i := 0; i < 2; i++ {
		j := strings.LastIndexByte(run, '_')
		if j < 0 {
			break
		}
		run = run[:j]
	}

	return run
}

// BatchSheet reads the sample sheet, fixes up its indexes, and writes the
// batch sheets, the manifest and the launcher script into a directory named
// after the run prefix next to the sheet.
func BatchSheet(opts Options) (*Result, error) {
	if opts.Launch.RunPrefix == "" {
		return nil, fmt.Errorf("a run prefix is required")
	}
	if len(opts.Launch.Runs()) == 0 {
		return nil, fmt.Errorf("at least one run ID is required")
	}

	sheetPath := seqbot.ExpandHome(opts.SampleSheet)

	sheet, err := ReadFile(sheetPath)
	if err != nil {
		return nil, err
	}

	fmt.Println(sheet.HeaderText())
	fmt.Println(len(sheet.Rows), "rows")

	if opts.ReverseCompI7 {
		if err := sheet.ReverseComplementColumn(sheet.I7); err != nil {
			return nil, err
		}
	}
	if opts.ReverseCompI5 {
		if err := sheet.ReverseComplementColumn(sheet.I5); err != nil {
			return nil, err
		}
	}

	batches, err := Partition(sheet.Rows, opts.BatchSize)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Dir:     filepath.Join(filepath.Dir(sheetPath), opts.Launch.RunPrefix),
		Batches: batches,
	}

	if err := os.MkdirAll(res.Dir, 0755); err != nil {
		return nil, pfx.Err(err)
	}

	// The whole directory needs to be uploaded to SampleSheetRoot before the
	// script is run.
	for _, b := range batches {
		path, err := WriteBatch(res.Dir, sheet.Header, b)
		if err != nil {
			return nil, err
		}
		res.SheetPaths = append(res.SheetPaths, path)
	}

	res.Manifest = filepath.Join(res.Dir, "manifest.csv")
	if err := WriteManifest(res.Manifest, Manifest(sheet, batches)); err != nil {
		return nil, err
	}

	res.Script = filepath.Join(res.Dir, opts.Launch.RunPrefix+".sh")
	f, err := os.OpenFile(res.Script, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		return nil, pfx.Err(err)
	}
	res.Invocations, err = WriteScript(f, opts.Launch, batches)
	if err != nil {
		f.Close()
		return nil, pfx.Err(err)
	}
	if err := f.Close(); err != nil {
		return nil, pfx.Err(err)
	}

	log.Printf("Wrote %d batches and %d launcher invocations to %s\n", len(batches), res.Invocations, res.Dir)

	return res, nil
}
