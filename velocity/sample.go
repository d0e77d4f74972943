package velocity

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// AlignedSuffix follows the taxon in every STAR alignment file name.
const AlignedSuffix = ".Aligned.out.sorted.bam"

var ErrSampleName = errors.New("unrecognised sample file name")

// SampleName is the structured form of an alignment file name such as
// A1_B001234_S1.homo.Aligned.out.sorted.bam.
type SampleName struct {
	// ID is everything before the taxon. It labels the velocyto experiment
	// and names the .loom output.
	ID string

	// Plate is the second underscore-delimited token of ID, or empty if ID
	// has no underscore.
	Plate string

	Taxon Taxon
}

// AlignmentSuffix is the file-name ending that identifies an alignment for t.
func (t Taxon) AlignmentSuffix() string {
	return string(t) + AlignedSuffix
}

func (s SampleName) LoomName() string {
	return s.ID + ".loom"
}

func sampleNamePattern(t Taxon) *regexp.Regexp {
	return regexp.MustCompile(`^([^/]+)\.` + regexp.QuoteMeta(string(t)) + regexp.QuoteMeta(AlignedSuffix) + `$`)
}

// ParseSampleKey extracts the sample name from an object key. The ID may not
// contain a '.', since completed outputs are recognised by the part of their
// name before the first '.'.
func ParseSampleKey(key string, t Taxon) (SampleName, error) {
	base := path.Base(key)

	matched := sampleNamePattern(t).FindStringSubmatch(base)
	if matched == nil {
		return SampleName{}, fmt.Errorf("%w: %q does not end in %s", ErrSampleName, base, t.AlignmentSuffix())
	}

	id := matched[1]
	if strings.Contains(id, ".") {
		return SampleName{}, fmt.Errorf("%w: sample id %q in %q contains '.'", ErrSampleName, id, base)
	}

	out := SampleName{ID: id, Taxon: t}
	if parts := strings.Split(id, "_"); len(parts) > 1 {
		out.Plate = parts[1]
	}

	return out, nil
}
