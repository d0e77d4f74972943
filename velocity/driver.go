package velocity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/carbocation/pfx"
	"github.com/carbocation/seqbot/storage"
)

// JobIDEnv scopes the working root to one batch job when set.
const JobIDEnv = "AWS_BATCH_JOB_ID"

const (
	DefaultRoot          = "/mnt"
	DefaultReferenceURL  = "s3://czbiohub-reference/velocyto"
	ReferenceConcurrency = 2

	DefaultSettleTimeout = 10 * time.Second
	DefaultUploadTimeout = 30 * time.Second
)

var ErrAmbiguousInput = errors.New("there should be exactly one .bam file for the input sample folder")

// JobRoot returns root/jobID, or root when no job ID is given.
func JobRoot(root, jobID string) string {
	if jobID == "" {
		return root
	}
	return filepath.Join(root, jobID)
}

// Outcome records what happened to the sample a Driver looked at.
type Outcome int

const (
	OutcomeProcessed Outcome = iota
	OutcomeAlreadyDone
	OutcomeNotInPlates
	OutcomeFailed
	OutcomeBadName
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeAlreadyDone:
		return "skipped: already completed"
	case OutcomeNotInPlates:
		return "skipped: plate not requested"
	case OutcomeFailed:
		return "failed: velocyto exited with an error"
	case OutcomeBadName:
		return "skipped: sample id cannot name a .loom"
	}

	return fmt.Sprintf("Outcome(%d)", int(o))
}

type Result struct {
	Outcome Outcome
	Sample  SampleName

	// InputKey is the alignment object that was selected.
	InputKey string

	// OutputKey is set only when an artifact was uploaded.
	OutputKey string
}

// Driver holds everything one velocyto job needs. The zero value of the
// optional fields selects the defaults.
type Driver struct {
	Taxon     Taxon
	Input     storage.Location
	Output    storage.Location
	Reference storage.Location

	// Plates, when non-empty, restricts processing to samples on these plates.
	Plates    []string
	ForceRedo bool

	// Root is the job-scoped working root; data lands under Root/data.
	Root string

	// MinVersion is the completion cutoff; zero means the package default.
	MinVersion time.Time

	// Runner defaults to the velocyto binary on PATH.
	Runner Runner

	SettleTimeout time.Duration
	UploadTimeout time.Duration
}

func (d *Driver) runDir() string {
	return filepath.Join(d.Root, "data")
}

func (d *Driver) cutoff() time.Time {
	if d.MinVersion.IsZero() {
		return MinVersion
	}
	return d.MinVersion
}

// Prepare creates the working tree and downloads the taxon's reference files,
// returning their local paths.
func (d *Driver) Prepare(ctx context.Context) (gtfPath, maskPath string, err error) {
	refs, err := ReferencesFor(d.Taxon)
	if err != nil {
		return "", "", err
	}

	for _, dir := range []string{"reference", "input"} {
		if err := os.MkdirAll(filepath.Join(d.runDir(), dir), 0755); err != nil {
			return "", "", pfx.Err(err)
		}
	}

	gtfPath = filepath.Join(d.runDir(), "reference", refs.GTF)
	maskPath = filepath.Join(d.runDir(), "reference", refs.Mask)

	log.Printf("Run Info: gtf_file: %s mask_file: %s taxon: %s input: %s\n", refs.GTF, refs.Mask, d.Taxon, d.Input)

	err = storage.DownloadAll(ctx,
		d.Reference.Client,
		d.Reference.Bucket(),
		[]string{d.Reference.Key(refs.GTF), d.Reference.Key(refs.Mask)},
		[]string{gtfPath, maskPath},
		ReferenceConcurrency,
	)
	if err != nil {
		return "", "", pfx.Err(fmt.Errorf("downloading references: %w", err))
	}

	for _, p := range []string{gtfPath, maskPath} {
		if err := ValidateGTF(p); err != nil {
			return "", "", err
		}
	}

	return gtfPath, maskPath, nil
}

// SelectInput returns the single object under the input prefix whose name
// ends with the taxon's alignment suffix.
func SelectInput(objects []storage.Object, t Taxon) (storage.Object, error) {
	var matches []storage.Object
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, t.AlignmentSuffix()) {
			matches = append(matches, obj)
		}
	}

	if len(matches) != 1 {
		return storage.Object{}, fmt.Errorf("%w: found %d matching *%s", ErrAmbiguousInput, len(matches), t.AlignmentSuffix())
	}

	return matches[0], nil
}

// Completed lists the output folder, unless ForceRedo is set, in which case
// nothing counts as completed.
func (d *Driver) Completed(ctx context.Context) (CompletionSet, error) {
	if d.ForceRedo {
		return CompletionSet{}, nil
	}

	objects, err := d.Output.List(ctx)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return NewCompletionSet(objects, d.cutoff()), nil
}

// Decide reports whether a sample should be skipped, and why.
func (d *Driver) Decide(sample SampleName, completed CompletionSet) (Outcome, bool) {
	if completed.Has(sample.ID) {
		return OutcomeAlreadyDone, false
	}

	if len(d.Plates) == 0 {
		return OutcomeProcessed, true
	}

	for _, plate := range d.Plates {
		if plate == sample.Plate {
			return OutcomeProcessed, true
		}
	}

	return OutcomeNotInPlates, false
}

// Run performs the whole job. Skips, an unusable sample name and a velocyto
// failure are reported through the Result rather than as an error.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	gtfPath, maskPath, err := d.Prepare(ctx)
	if err != nil {
		return Result{}, err
	}

	completed, err := d.Completed(ctx)
	if err != nil {
		return Result{}, err
	}

	inputs, err := d.Input.List(ctx)
	if err != nil {
		return Result{}, pfx.Err(err)
	}

	input, err := SelectInput(inputs, d.Taxon)
	if err != nil {
		return Result{}, err
	}

	sample, err := ParseSampleKey(input.Key, d.Taxon)
	if errors.Is(err, ErrSampleName) {
		log.Println("Not processing:", err)
		return Result{Outcome: OutcomeBadName, InputKey: input.Key}, nil
	} else if err != nil {
		return Result{}, err
	}

	res := Result{Sample: sample, InputKey: input.Key}

	outcome, process := d.Decide(sample, completed)
	res.Outcome = outcome
	if !process {
		log.Printf("Not processing %s: %s\n", sample.ID, outcome)
		return res, nil
	}

	return d.process(ctx, res, gtfPath, maskPath)
}

func (d *Driver) process(ctx context.Context, res Result, gtfPath, maskPath string) (Result, error) {
	sample := res.Sample
	localInput := filepath.Join(d.runDir(), "input", path.Base(res.InputKey))

	if err := d.Input.Client.Download(ctx, d.Input.Bucket(), res.InputKey, localInput); err != nil {
		return res, pfx.Err(err)
	}
	defer os.Remove(localInput)

	runner := d.Runner
	if runner == nil {
		runner = Velocyto{}
	}

	err := runner.Run(ctx, RunArgs{
		OutputDir: d.runDir(),
		MaskPath:  maskPath,
		SampleID:  sample.ID,
		InputPath: localInput,
		GTFPath:   gtfPath,
	})
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	if err != nil {
		log.Printf("velocyto failed on %s: %v\n", sample.ID, err)
		res.Outcome = OutcomeFailed
		return res, nil
	}

	localOutput := filepath.Join(d.runDir(), sample.LoomName())
	defer os.Remove(localOutput)

	if err := storage.WaitForFile(ctx, localOutput, d.settleTimeout()); err != nil {
		return res, pfx.Err(err)
	}

	outputKey := d.Output.Key(sample.LoomName())
	log.Println("Uploading", localOutput, "to", outputKey)
	if err := d.Output.Client.Upload(ctx, localOutput, d.Output.Bucket(), outputKey); err != nil {
		return res, pfx.Err(err)
	}

	if _, err := storage.WaitForObject(ctx, d.Output.Client, d.Output.Bucket(), outputKey, d.uploadTimeout()); err != nil {
		return res, pfx.Err(err)
	}

	res.Outcome = OutcomeProcessed
	res.OutputKey = outputKey

	return res, nil
}

func (d *Driver) settleTimeout() time.Duration {
	if d.SettleTimeout > 0 {
		return d.SettleTimeout
	}
	return DefaultSettleTimeout
}

func (d *Driver) uploadTimeout() time.Duration {
	if d.UploadTimeout > 0 {
		return d.UploadTimeout
	}
	return DefaultUploadTimeout
}
