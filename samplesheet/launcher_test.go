package samplesheet

import (
	"bytes"
	"strings"
	"testing"
)

func testLaunch() LaunchOptions {
	return LaunchOptions{
		RunPrefix: "181214_A00111",
		RunA:      "181214_A00111_0242_AHJ5JJDSXX",
		InputDir:  DefaultInputDir,
		OutputDir: DefaultOutputDir,
		ReportDir: DefaultReportDir,
	}
}

func TestCommand(t *testing.T) {
	o := testLaunch()

	got := o.Command(o.RunA, Batch{Offset: 300})
	want := `./aegea_launcher.py demux/bcl2fastq.py "--exp_id 181214_A00111_0242_AHJ5JJDSXX` +
		` --s3_input_dir s3://czbiohub-seqbot/bcl` +
		` --s3_output_dir s3://czbiohub-seqbot/fastqs` +
		` --s3_report_dir s3://czbiohub-seqbot/reports/181214_A00111_0242_AHJ5JJDSXX/batch_300` +
		` --s3_sample_sheet_dir s3://czbiohub-seqbot/sample-sheets/181214_A00111` +
		` --sample_sheet_name novaseq_batch_300.csv` +
		` --skip_undetermined"`

	if got != want {
		t.Errorf("Got\n%s\nwant\n%s", got, want)
	}
}

func TestCommandStarStructure(t *testing.T) {
	o := testLaunch()
	o.StarStructure = true

	if got := o.Command(o.RunA, Batch{}); !strings.HasSuffix(got, ` --skip_undetermined --star_structure"`) {
		t.Errorf("Expected --star_structure at the end: %s", got)
	}
}

func TestWriteScriptOneRun(t *testing.T) {
	batches, _ := Partition(makeRows(650), 300)

	var buf bytes.Buffer
	n, err := WriteScript(&buf, testLaunch(), batches)
	if err != nil {
		t.Fatal(err)
	}

	if n != 3 {
		t.Errorf("Expected 3 invocations, got %d", n)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("Expected 6 lines, got %d", len(lines))
	}
	for i, line := range lines {
		isLaunch := strings.HasPrefix(line, Launcher+" ")
		if i%2 == 0 && !isLaunch {
			t.Errorf("Line %d should be a launch: %s", i, line)
		}
		if i%2 == 1 && line != CommandDelay {
			t.Errorf("Line %d should be %q: %s", i, CommandDelay, line)
		}
	}
}

func TestWriteScriptTwoRuns(t *testing.T) {
	batches, _ := Partition(makeRows(650), 300)

	o := testLaunch()
	o.RunB = "181214_A00111_0243_BHJ5JJDSXX"

	var buf bytes.Buffer
	n, err := WriteScript(&buf, o, batches)
	if err != nil {
		t.Fatal(err)
	}

	if n != 6 {
		t.Errorf("Expected 6 invocations, got %d", n)
	}

	// Runs alternate A, B within each batch
	var runs []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.HasPrefix(line, Launcher) {
			runs = append(runs, strings.Fields(line)[3])
		}
	}
	want := []string{o.RunA, o.RunB, o.RunA, o.RunB, o.RunA, o.RunB}
	if len(runs) != len(want) {
		t.Fatalf("Got runs %v", runs)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Errorf("Invocation %d is for %s, want %s", i, runs[i], want[i])
		}
	}
}

func TestRunsSkipsEmpty(t *testing.T) {
	o := LaunchOptions{RunB: "only_b"}
	if runs := o.Runs(); len(runs) != 1 || runs[0] != "only_b" {
		t.Errorf("Runs() = %v", runs)
	}
}
