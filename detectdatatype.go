package seqbot

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"io"
	"os"

	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZ
	DataTypeBZip2
)

func (d DataType) String() string {
	switch d {
	case DataTypeNoCompression:
		return "uncompressed"
	case DataTypeGzip:
		return "gzip"
	case DataTypeZip:
		return "zip"
	case DataTypeXZ:
		return "xz"
	case DataTypeZ:
		return "zlib"
	case DataTypeBZip2:
		return "bzip2"
	}

	return "invalid"
}

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZ:     {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// DetectDataType checks the leading bytes of a stream against a set of known
// compression signatures. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(head []byte) DataType {
	for dt, sig := range byteCodeSigs {
		if bytes.HasPrefix(head, sig) {
			return dt
		}
	}

	return DataTypeNoCompression
}

// OpenMaybeCompressed opens a local file and, if it carries a known
// compression signature, transparently decompresses it. Closing the returned
// reader closes the underlying file.
func OpenMaybeCompressed(path string) (io.ReadCloser, DataType, error) {
	f, err := os.Open(ExpandHome(path))
	if err != nil {
		return nil, DataTypeInvalid, err
	}

	br := bufio.NewReader(f)

	// Short files are fine: Peek returns what it has alongside io.EOF.
	head, err := br.Peek(6)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, DataTypeInvalid, pfx.Err(err)
	}

	dt := DetectDataType(head)

	var r io.Reader
	switch dt {
	case DataTypeGzip:
		r, err = gzip.NewReader(br)
	case DataTypeZip:
		// Only the first member of an archive is read.
		zr := zipstream.NewReader(br)
		_, err = zr.Next()
		r = zr
	case DataTypeBZip2:
		r = bzip2.NewReader(br)
	case DataTypeXZ:
		r, err = xz.NewReader(br, 0)
	case DataTypeZ:
		r, err = zlib.NewReader(br)
	default:
		r = br
	}
	if err != nil {
		f.Close()
		return nil, DataTypeInvalid, pfx.Err(err)
	}

	return &fileBackedReader{Reader: r, file: f}, dt, nil
}

// fileBackedReader closes the file beneath whatever decompressor wraps it.
type fileBackedReader struct {
	io.Reader
	file *os.File
}

func (c *fileBackedReader) Close() error {
	if rc, ok := c.Reader.(io.Closer); ok {
		rc.Close()
	}

	return c.file.Close()
}
