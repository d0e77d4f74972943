// batcher splits a NovaSeq sample sheet into batches that bcl2fastq can
// handle, and writes a script with one demux launch per batch and run.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/carbocation/seqbot/internal/cliutil"
	"github.com/carbocation/seqbot/samplesheet"
)

func main() {
	var (
		runA, runB           string
		inputDir, outputDir  string
		reportDir            string
		batchSize            int
		reverseI7, reverseI5 bool
		starStructure        bool
	)

	fs := flag.CommandLine
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] samplesheet_file [run_prefix]\n", os.Args[0])
		fmt.Fprintln(fs.Output(), "run_prefix defaults to --runA without its last two _-separated fields, e.g. 181214_A00111.")
		fs.PrintDefaults()
	}

	flag.StringVar(&runA, "runA", "", "The first of the sequencing runs to demux.")
	flag.StringVar(&runB, "runB", "", "(Optional) The second sequencing run to demux.")
	flag.IntVar(&batchSize, "n", samplesheet.DefaultBatchSize, "Number of samples per batch.")
	flag.BoolVar(&reverseI7, "reverse_comp_i7", false, "Reverse-complement the i7 indexes.")
	flag.BoolVar(&reverseI5, "reverse_comp_i5", false, "Reverse-complement the i5 indexes (e.g., for NextSeq runs).")
	flag.StringVar(&inputDir, "s3_input_dir", samplesheet.DefaultInputDir, "bcl2fastq option: location of the bcl input.")
	flag.StringVar(&outputDir, "s3_output_dir", samplesheet.DefaultOutputDir, "bcl2fastq option: location for the fastq output.")
	flag.StringVar(&reportDir, "s3_report_dir", samplesheet.DefaultReportDir, "bcl2fastq option: location for reports. Run ID and batch are appended.")
	flag.BoolVar(&starStructure, "star_structure", false, "bcl2fastq option: lay out fastqs the way the STAR alignment step expects.")

	flagArgs, posArgs := cliutil.SplitFlagsAndPositionals(fs, os.Args[1:])
	if err := fs.Parse(flagArgs); err != nil {
		log.Fatalln(err)
	}

	if len(posArgs) < 1 || len(posArgs) > 2 {
		fs.Usage()
		log.Fatalln("Please provide the path to a sample sheet and, optionally, a run prefix.")
	}

	if runA == "" && runB == "" {
		fs.Usage()
		log.Fatalln("Please provide at least --runA.")
	}

	if batchSize <= 0 {
		fs.Usage()
		log.Fatalln("--n cannot be set to 0 or fewer")
	}

	runPrefix := ""
	if len(posArgs) == 2 {
		runPrefix = posArgs[1]
	} else if runA != "" {
		runPrefix = samplesheet.DefaultRunPrefix(runA)
	} else {
		fs.Usage()
		log.Fatalln("Without --runA, a run prefix must be given.")
	}

	res, err := samplesheet.BatchSheet(samplesheet.Options{
		SampleSheet:   posArgs[0],
		BatchSize:     batchSize,
		ReverseCompI7: reverseI7,
		ReverseCompI5: reverseI5,
		Launch: samplesheet.LaunchOptions{
			RunPrefix:     runPrefix,
			RunA:          runA,
			RunB:          runB,
			InputDir:      inputDir,
			OutputDir:     outputDir,
			ReportDir:     reportDir,
			StarStructure: starStructure,
		},
	})
	if err != nil {
		log.Fatalln(err)
	}

	// Read the manifest back so that what gets uploaded is what was reported
	entries, err := samplesheet.ReadManifest(res.Manifest)
	if err != nil {
		log.Fatalln(err)
	}
	if len(entries) != len(res.Batches) {
		log.Fatalf("%s lists %d batches, expected %d\n", res.Manifest, len(entries), len(res.Batches))
	}
	for _, e := range entries {
		log.Printf("%s: %d rows (%s to %s)\n", e.SampleSheet, e.Rows, e.FirstSampleID, e.LastSampleID)
	}

	log.Printf("Upload %s to %s/%s, then run: sh %s\n", res.Dir, samplesheet.SampleSheetRoot, runPrefix, res.Script)
}
