package seqbot

import (
	"fmt"
	"strings"
)

// Recognised object URL schemes. A path without a scheme is treated as
// SchemeFile.
const (
	SchemeS3   = "s3"
	SchemeGS   = "gs"
	SchemeFile = "file"
)

// ObjectURL is a storage location split into its scheme, bucket and key (or
// prefix). For local paths the bucket is empty and the key holds the path.
type ObjectURL struct {
	Scheme string
	Bucket string
	Key    string
}

func (u ObjectURL) String() string {
	if u.Scheme == SchemeFile {
		return u.Key
	}

	if u.Key == "" {
		return fmt.Sprintf("%s://%s", u.Scheme, u.Bucket)
	}

	return fmt.Sprintf("%s://%s/%s", u.Scheme, u.Bucket, u.Key)
}

// ParseObjectURL splits s3://bucket/key, gs://bucket/key, file:///path or a
// bare local path.
func ParseObjectURL(raw string) (ObjectURL, error) {
	scheme, rest, found := strings.Cut(raw, "://")
	if !found {
		return ObjectURL{Scheme: SchemeFile, Key: ExpandHome(raw)}, nil
	}

	switch scheme {
	case SchemeFile:
		if rest == "" {
			return ObjectURL{}, fmt.Errorf("%q has an empty path", raw)
		}
		return ObjectURL{Scheme: SchemeFile, Key: rest}, nil
	case SchemeS3, SchemeGS:
	default:
		return ObjectURL{}, fmt.Errorf("%q: unsupported scheme %q", raw, scheme)
	}

	// Detect the bucket and the path to the actual object
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return ObjectURL{}, fmt.Errorf("%q has no bucket", raw)
	}

	return ObjectURL{Scheme: scheme, Bucket: bucket, Key: key}, nil
}
