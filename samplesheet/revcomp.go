package samplesheet

import (
	"errors"
	"fmt"
)

var ErrUndefinedNucleotide = errors.New("no complement defined for nucleotide")

var complement [256]byte

func init() {
	complement['A'] = 'T'
	complement['C'] = 'G'
	complement['G'] = 'C'
	complement['T'] = 'A'
}

// ReverseComplement reverses seq and complements each base. Only the
// uppercase bases A, C, G and T are accepted.
func ReverseComplement(seq string) (string, error) {
	n := len(seq)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b := seq[n-1-i]
		c := complement[b]
		if c == 0 {
			return "", fmt.Errorf("%w %q in %q", ErrUndefinedNucleotide, rune(b), seq)
		}
		out[i] = c
	}

	return string(out), nil
}
