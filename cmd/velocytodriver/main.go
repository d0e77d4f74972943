// velocytodriver runs RNA velocity analysis with velocyto on one smartseq2
// sample folder aligned with STAR, and uploads the resulting .loom file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/araddon/dateparse"
	"github.com/carbocation/seqbot/internal/cliutil"
	"github.com/carbocation/seqbot/storage"
	"github.com/carbocation/seqbot/velocity"
)

func main() {
	var (
		taxonName     string
		inputPath     string
		outputPath    string
		referencePath string
		root          string
		minVersion    string
		velocytoBin   string
		forceRedo     bool
		plates        cliutil.StringList
		settleTimeout time.Duration
		uploadTimeout time.Duration
	)
	flag.StringVar(&taxonName, "taxon", "", fmt.Sprint("Reference genome for the velocyto run. One of: ", velocity.Taxa()))
	flag.StringVar(&inputPath, "s3_input_path", "", "Location of the input sample folder with STAR alignment results (s3://, gs:// or a local path).")
	flag.StringVar(&outputPath, "s3_output_path", "", "Location for the .loom output.")
	flag.Var(&plates, "plates", "(Optional) Plates to run. Repeat the flag, separate with commas, or list them after a single --plates.")
	flag.BoolVar(&forceRedo, "force_redo", false, "Process files even when results already exist.")
	flag.StringVar(&referencePath, "reference_path", velocity.DefaultReferenceURL, "Location of the gtf and repeat-mask reference files.")
	flag.StringVar(&root, "root", velocity.DefaultRoot, fmt.Sprintf("Local working root. If %s is set, it is appended.", velocity.JobIDEnv))
	flag.StringVar(&minVersion, "min_version", velocity.MinVersion.Format(time.RFC3339), "Existing .loom files last modified at or before this time are considered stale and redone.")
	flag.StringVar(&velocytoBin, "velocyto", "velocyto", "Path to the velocyto binary (if not already in your PATH as velocyto).")
	flag.DurationVar(&settleTimeout, "settle_timeout", velocity.DefaultSettleTimeout, "How long to wait for velocyto's .loom output to appear on disk.")
	flag.DurationVar(&uploadTimeout, "upload_timeout", velocity.DefaultUploadTimeout, "How long to wait for the uploaded .loom to become visible in storage.")

	if err := flag.CommandLine.Parse(cliutil.GatherNargs(os.Args[1:], "plates")); err != nil {
		log.Fatalln(err)
	}

	taxon, err := velocity.ParseTaxon(taxonName)
	if err != nil {
		flag.PrintDefaults()
		log.Fatalln(err)
	}

	if inputPath == "" || outputPath == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide --s3_input_path and --s3_output_path")
	}

	cutoff, err := dateparse.ParseIn(minVersion, time.UTC)
	if err != nil {
		log.Fatalf("Could not parse --min_version %q: %v\n", minVersion, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := &storage.Resolver{MaxAttempts: storage.DefaultMaxAttempts}

	driver := &velocity.Driver{
		Taxon:         taxon,
		Plates:        plates,
		ForceRedo:     forceRedo,
		Root:          velocity.JobRoot(root, os.Getenv(velocity.JobIDEnv)),
		MinVersion:    cutoff,
		Runner:        velocity.Velocyto{Binary: velocytoBin},
		SettleTimeout: settleTimeout,
		UploadTimeout: uploadTimeout,
	}

	if driver.Input, err = resolver.Resolve(ctx, inputPath); err != nil {
		log.Fatalln(err)
	}
	if driver.Output, err = resolver.Resolve(ctx, outputPath); err != nil {
		log.Fatalln(err)
	}
	if driver.Reference, err = resolver.Resolve(ctx, referencePath); err != nil {
		log.Fatalln(err)
	}

	res, err := driver.Run(ctx)
	if err != nil {
		log.Fatalln(err)
	}

	log.Printf("%s: %s\n", res.Sample.ID, res.Outcome)
	if res.OutputKey != "" {
		log.Println("Wrote", res.OutputKey, "under", driver.Output)
	}

	log.Println("Job completed")
}
