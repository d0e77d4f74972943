package samplesheet

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Defaults for the demux job that each batch is handed to.
const (
	DefaultInputDir  = "s3://czbiohub-seqbot/bcl"
	DefaultOutputDir = "s3://czbiohub-seqbot/fastqs"
	DefaultReportDir = "s3://czbiohub-seqbot/reports"

	// SampleSheetRoot is where the batch directory is expected to be uploaded
	// before the script runs.
	SampleSheetRoot = "s3://czbiohub-seqbot/sample-sheets"

	Launcher     = "./aegea_launcher.py"
	DemuxScript  = "demux/bcl2fastq.py"
	CommandDelay = "sleep 10"
)

// LaunchOptions describes how each batch is demultiplexed.
type LaunchOptions struct {
	RunPrefix string

	// RunA and RunB are sequencing run IDs; RunB is optional.
	RunA string
	RunB string

	InputDir      string
	OutputDir     string
	ReportDir     string
	StarStructure bool
}

// Runs returns the configured run IDs in launch order.
func (o LaunchOptions) Runs() []string {
	var out []string
	for _, run := range []string{o.RunA, o.RunB} {
		if run != "" {
			out = append(out, run)
		}
	}

	return out
}

// Command renders the launcher invocation that demultiplexes batch b of run.
func (o LaunchOptions) Command(run string, b Batch) string {
	args := []string{
		"--exp_id", run,
		"--s3_input_dir", o.InputDir,
		"--s3_output_dir", o.OutputDir,
		"--s3_report_dir", fmt.Sprintf("%s/%s/batch_%d", strings.TrimSuffix(o.ReportDir, "/"), run, b.Offset),
		"--s3_sample_sheet_dir", SampleSheetRoot + "/" + o.RunPrefix,
		"--sample_sheet_name", b.FileName(),
		"--skip_undetermined",
	}
	if o.StarStructure {
		args = append(args, "--star_structure")
	}

	return fmt.Sprintf("%s %s \"%s\"", Launcher, DemuxScript, strings.Join(args, " "))
}

// WriteScript writes one launcher invocation per (batch, run) pair, each
// followed by a delay, and returns the number of invocations written.
func WriteScript(w io.Writer, o LaunchOptions, batches []Batch) (int, error) {
	bw := bufio.NewWriter(w)

	count := 0
	for _, b := range batches {
		for _, run := range o.Runs() {
			fmt.Fprintln(bw, o.Command(run, b))
			fmt.Fprintln(bw, CommandDelay)
			count++
		}
	}

	return count, bw.Flush()
}
