package velocity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/carbocation/seqbot"
	"github.com/carbocation/seqbot/storage"
)

const testSample = "A1_B000123_S1"

const (
	testGTF  = "#!genome-build GRCh38\nchr1\tHAVANA\tgene\t11869\t14409\t.\t+\t.\tgene_id \"ENSG00000223972\"; gene_name \"DDX11L1\";\n"
	testMask = "chr1\thg38_rmsk\texon\t67108754\t67109046\t1892.000000\t+\t.\tgene_id \"L1P5\"; transcript_id \"L1P5\";\n"
)

// fakeVelocyto stands in for the velocyto binary. It writes the .loom that a
// real run would leave in the output directory.
type fakeVelocyto struct {
	calls []RunArgs
	fail  bool
}

func (f *fakeVelocyto) Run(ctx context.Context, args RunArgs) error {
	f.calls = append(f.calls, args)

	if _, err := os.Stat(args.InputPath); err != nil {
		return err
	}

	if f.fail {
		return errors.New("exit status 1")
	}

	return os.WriteFile(filepath.Join(args.OutputDir, args.SampleID+".loom"), []byte("loom"), 0644)
}

type fixture struct {
	store  *storage.Local
	root   string
	runner *fakeVelocyto
	driver *Driver
}

func put(t *testing.T, store *storage.Local, bucket, key, content string) string {
	t.Helper()

	path := filepath.Join(store.Root, bucket, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	return path
}

func location(store *storage.Local, bucket, prefix string) storage.Location {
	return storage.Location{
		Client: store,
		URL:    seqbot.ObjectURL{Scheme: seqbot.SchemeS3, Bucket: bucket, Key: prefix},
	}
}

func newFixture(t *testing.T) *fixture {
	store := &storage.Local{Root: t.TempDir()}

	put(t, store, "czbiohub-reference", "velocyto/HG38-PLUS.gtf", testGTF)
	put(t, store, "czbiohub-reference", "velocyto/hg38_rmsk.gtf", testMask)
	put(t, store, "input", "star/"+testSample+"/"+testSample+".homo.Aligned.out.sorted.bam", "bam")
	put(t, store, "input", "star/"+testSample+"/"+testSample+".homo.Log.final.out", "log")

	f := &fixture{
		store:  store,
		root:   filepath.Join(t.TempDir(), "job-1"),
		runner: &fakeVelocyto{},
	}

	f.driver = &Driver{
		Taxon:         Homo,
		Input:         location(store, "input", "star/"+testSample),
		Output:        location(store, "output", "velocyto"),
		Reference:     location(store, "czbiohub-reference", "velocyto"),
		Root:          f.root,
		Runner:        f.runner,
		SettleTimeout: 5 * time.Second,
		UploadTimeout: 5 * time.Second,
	}

	return f
}

func (f *fixture) outputExists(t *testing.T) bool {
	t.Helper()

	_, err := f.store.Stat(context.Background(), "output", "velocyto/"+testSample+".loom")
	if err != nil && !errors.Is(err, storage.ErrNotExist) {
		t.Fatal(err)
	}

	return err == nil
}

func TestDriverProcesses(t *testing.T) {
	f := newFixture(t)

	res, err := f.driver.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if res.Outcome != OutcomeProcessed {
		t.Fatalf("Expected processed, got %s", res.Outcome)
	}
	if res.Sample.ID != testSample || res.Sample.Plate != "B000123" {
		t.Errorf("Unexpected sample %+v", res.Sample)
	}
	if res.OutputKey != "velocyto/"+testSample+".loom" {
		t.Errorf("Unexpected output key %s", res.OutputKey)
	}
	if !f.outputExists(t) {
		t.Error("Expected the .loom to be uploaded")
	}

	if len(f.runner.calls) != 1 {
		t.Fatalf("Expected 1 velocyto call, got %d", len(f.runner.calls))
	}

	runDir := filepath.Join(f.root, "data")
	call := f.runner.calls[0]
	want := []string{
		"run-smartseq2",
		"-o", runDir,
		"-m", filepath.Join(runDir, "reference", "hg38_rmsk.gtf"),
		"-e", testSample,
		filepath.Join(runDir, "input", testSample+".homo.Aligned.out.sorted.bam"),
		filepath.Join(runDir, "reference", "HG38-PLUS.gtf"),
	}
	got := call.Argv()
	if len(got) != len(want) {
		t.Fatalf("Argv() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Argv()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// Local copies are cleaned up; references stay
	if _, err := os.Stat(call.InputPath); !os.IsNotExist(err) {
		t.Error("Expected the local input to be removed")
	}
	if _, err := os.Stat(filepath.Join(runDir, testSample+".loom")); !os.IsNotExist(err) {
		t.Error("Expected the local output to be removed")
	}
	if _, err := os.Stat(call.GTFPath); err != nil {
		t.Errorf("Expected the reference gtf to be downloaded: %v", err)
	}
}

func TestDriverSkipsCompleted(t *testing.T) {
	f := newFixture(t)
	put(t, f.store, "output", "velocyto/"+testSample+".loom", "old loom")

	res, err := f.driver.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if res.Outcome != OutcomeAlreadyDone {
		t.Errorf("Expected already done, got %s", res.Outcome)
	}
	if len(f.runner.calls) != 0 {
		t.Error("velocyto should not run for a completed sample")
	}
}

func TestDriverForceRedo(t *testing.T) {
	f := newFixture(t)
	put(t, f.store, "output", "velocyto/"+testSample+".loom", "old loom")
	f.driver.ForceRedo = true

	res, err := f.driver.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if res.Outcome != OutcomeProcessed || len(f.runner.calls) != 1 {
		t.Errorf("Expected a forced rerun, got %s with %d calls", res.Outcome, len(f.runner.calls))
	}
}

func TestDriverRedoesStaleOutput(t *testing.T) {
	f := newFixture(t)
	path := put(t, f.store, "output", "velocyto/"+testSample+".loom", "old loom")

	stale := time.Date(2018, 9, 1, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, stale, stale); err != nil {
		t.Fatal(err)
	}

	res, err := f.driver.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if res.Outcome != OutcomeProcessed {
		t.Errorf("Expected a loom from before the cutoff to be redone, got %s", res.Outcome)
	}
}

func TestDriverPlates(t *testing.T) {
	f := newFixture(t)
	f.driver.Plates = []string{"B999999"}

	res, err := f.driver.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeNotInPlates {
		t.Errorf("Expected not in plates, got %s", res.Outcome)
	}
	if f.outputExists(t) {
		t.Error("Nothing should be uploaded for a skipped plate")
	}

	f.driver.Plates = []string{"B999999", "B000123"}
	res, err = f.driver.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeProcessed {
		t.Errorf("Expected processed, got %s", res.Outcome)
	}
}

func TestDriverVelocytoFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.fail = true

	res, err := f.driver.Run(context.Background())
	if err != nil {
		t.Fatalf("A velocyto failure should not be fatal: %v", err)
	}

	if res.Outcome != OutcomeFailed {
		t.Errorf("Expected failed, got %s", res.Outcome)
	}
	if f.outputExists(t) {
		t.Error("Nothing should be uploaded when velocyto fails")
	}
	if _, err := os.Stat(f.runner.calls[0].InputPath); !os.IsNotExist(err) {
		t.Error("Expected the local input to be removed after a failure")
	}
}

func TestDriverAmbiguousInput(t *testing.T) {
	f := newFixture(t)
	put(t, f.store, "input", "star/"+testSample+"/A2_B000123_S2.homo.Aligned.out.sorted.bam", "bam")

	if _, err := f.driver.Run(context.Background()); !errors.Is(err, ErrAmbiguousInput) {
		t.Errorf("Expected ErrAmbiguousInput, got %v", err)
	}
}

func TestDriverMissingInput(t *testing.T) {
	f := newFixture(t)
	f.driver.Input = location(f.store, "input", "star/nobody")

	if _, err := f.driver.Run(context.Background()); !errors.Is(err, ErrAmbiguousInput) {
		t.Errorf("Expected ErrAmbiguousInput, got %v", err)
	}
}

func TestDriverSkipsDottedSampleID(t *testing.T) {
	f := newFixture(t)
	f.driver.Input = location(f.store, "input", "star/dotted")
	put(t, f.store, "input", "star/dotted/A1.rerun_B000123_S1.homo.Aligned.out.sorted.bam", "bam")

	res, err := f.driver.Run(context.Background())
	if err != nil {
		t.Fatalf("An unusable sample name should not be fatal: %v", err)
	}

	if res.Outcome != OutcomeBadName {
		t.Errorf("Expected a bad name skip, got %s", res.Outcome)
	}
	if res.InputKey != "star/dotted/A1.rerun_B000123_S1.homo.Aligned.out.sorted.bam" {
		t.Errorf("Unexpected input key %s", res.InputKey)
	}
	if len(f.runner.calls) != 0 {
		t.Error("velocyto should not run for an unusable sample name")
	}
}

func TestDriverInvalidTaxon(t *testing.T) {
	f := newFixture(t)
	f.driver.Taxon = Taxon("danio")

	if _, err := f.driver.Run(context.Background()); !errors.Is(err, ErrInvalidTaxon) {
		t.Errorf("Expected ErrInvalidTaxon, got %v", err)
	}
}

func TestDriverRejectsBrokenReference(t *testing.T) {
	f := newFixture(t)
	put(t, f.store, "czbiohub-reference", "velocyto/hg38_rmsk.gtf", "<html>AccessDenied</html>\n")

	if _, err := f.driver.Run(context.Background()); err == nil {
		t.Error("Expected a non-GTF reference to be rejected")
	}
	if len(f.runner.calls) != 0 {
		t.Error("velocyto should not run without valid references")
	}
}

func TestSelectInputIgnoresOtherTaxa(t *testing.T) {
	objects := []storage.Object{
		{Key: "run/A1_B1.mus.Aligned.out.sorted.bam"},
		{Key: "run/A1_B1.homo.Aligned.out.sorted.bam"},
		{Key: "run/A1_B1.homo.Aligned.out.sorted.bam.bai"},
	}

	obj, err := SelectInput(objects, Homo)
	if err != nil {
		t.Fatal(err)
	}
	if obj.Key != "run/A1_B1.homo.Aligned.out.sorted.bam" {
		t.Errorf("Selected %s", obj.Key)
	}
}

func TestJobRoot(t *testing.T) {
	if got := JobRoot("/mnt", ""); got != "/mnt" {
		t.Errorf("JobRoot without a job = %s", got)
	}
	if got := JobRoot("/mnt", "8f1a"); got != filepath.Join("/mnt", "8f1a") {
		t.Errorf("JobRoot with a job = %s", got)
	}
}
