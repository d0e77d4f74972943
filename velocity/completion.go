package velocity

import (
	"path"
	"strings"
	"time"

	"github.com/carbocation/seqbot/storage"
)

// MinVersion is the default completion cutoff. Looms written on or before it
// predate the current output format and are treated as absent.
var MinVersion = time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC)

// CompletionSet holds the sample IDs that already have a current .loom in the
// output folder.
type CompletionSet map[string]struct{}

// NewCompletionSet keeps .loom objects modified strictly after cutoff, keyed
// by the part of their base name before the first '.'.
func NewCompletionSet(objects []storage.Object, cutoff time.Time) CompletionSet {
	out := make(CompletionSet)

	for _, obj := range objects {
		if !strings.HasSuffix(obj.Key, ".loom") || !obj.LastModified.After(cutoff) {
			continue
		}

		out[stem(obj.Key)] = struct{}{}
	}

	return out
}

func (c CompletionSet) Has(id string) bool {
	_, exists := c[id]
	return exists
}

func stem(key string) string {
	base := path.Base(key)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}

	return base
}
