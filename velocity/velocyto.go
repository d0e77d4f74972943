package velocity

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"

	"github.com/carbocation/pfx"
)

// RunArgs are the inputs to one velocyto run-smartseq2 invocation.
type RunArgs struct {
	OutputDir string
	MaskPath  string
	SampleID  string
	InputPath string
	GTFPath   string
}

// Argv renders the arguments that follow the velocyto binary.
func (a RunArgs) Argv() []string {
	return []string{
		"run-smartseq2",
		"-o", a.OutputDir,
		"-m", a.MaskPath,
		"-e", a.SampleID,
		a.InputPath,
		a.GTFPath,
	}
}

// Runner executes velocyto. A non-nil error means the run produced no usable
// output.
type Runner interface {
	Run(ctx context.Context, args RunArgs) error
}

// Velocyto runs the velocyto binary found at Binary (or on PATH).
type Velocyto struct {
	Binary string
}

func (v Velocyto) binary() string {
	if v.Binary == "" {
		return "velocyto"
	}
	return v.Binary
}

// Run streams velocyto's combined stdout and stderr into the log as it is
// written.
func (v Velocyto) Run(ctx context.Context, args RunArgs) error {
	argv := args.Argv()
	log.Println("Running:", v.binary(), strings.Join(argv, " "))

	cmd := exec.CommandContext(ctx, v.binary(), argv...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return pfx.Err(err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("velocyto on %s: %w", args.SampleID, err)
	}

	lines := logLines(out, "velocyto:")

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("velocyto on %s: %w (%d lines of output)", args.SampleID, err, lines)
	}

	return nil
}

// logLines copies r to the log one line at a time until r is exhausted, and
// returns the number of lines logged.
func logLines(r io.Reader, prefix string) int {
	n := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		log.Println(prefix, scanner.Text())
		n++
	}

	// A line too long for the scanner would otherwise leave velocyto
	// blocked on a full pipe.
	io.Copy(io.Discard, r)

	return n
}
