// Package velocity drives a single velocyto run-smartseq2 job: it picks the
// one STAR alignment in an input folder, decides whether it still needs
// processing, runs velocyto and ships the resulting .loom file.
package velocity

import (
	"errors"
	"fmt"
)

var ErrInvalidTaxon = errors.New("invalid taxon")

// Taxon selects the reference genome.
type Taxon string

const (
	Homo Taxon = "homo"
	Mus  Taxon = "mus"
)

// Taxa lists the supported taxa in the order they are offered on the command
// line.
func Taxa() []Taxon {
	return []Taxon{Homo, Mus}
}

func ParseTaxon(s string) (Taxon, error) {
	for _, t := range Taxa() {
		if string(t) == s {
			return t, nil
		}
	}

	return "", fmt.Errorf("%w %q (expected one of %v)", ErrInvalidTaxon, s, Taxa())
}

// References names the annotation files velocyto needs for a taxon. Both
// live under the same prefix of the reference bucket.
type References struct {
	GTF  string // genome annotation
	Mask string // repeat-mask intervals excluded from the analysis
}

func ReferencesFor(t Taxon) (References, error) {
	switch t {
	case Homo:
		return References{GTF: "HG38-PLUS.gtf", Mask: "hg38_rmsk.gtf"}, nil
	case Mus:
		return References{GTF: "MM10-PLUS.gtf", Mask: "mm10_rmsk.gtf"}, nil
	}

	return References{}, fmt.Errorf("%w %q", ErrInvalidTaxon, string(t))
}
