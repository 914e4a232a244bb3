package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

const (
	AlgorithmGzip = "gzip"
	AlgorithmNone = "none"

	// GzipMimeType is the content type of a compressed artifact.
	GzipMimeType = "application/gzip"
	// GzipSuffix is appended to the file name of a compressed artifact.
	GzipSuffix = ".gz"
)

// ErrDecompressionFailed is returned when data is not valid gzip.
var ErrDecompressionFailed = errors.New("failed to decompress file")

// Result describes one compression attempt.
type Result struct {
	Compressed     bool
	OriginalSize   int64
	CompressedSize int64
	Ratio          float64
	Algorithm      string
	Data           []byte
}

// Artifact is the payload that should be stored after SmartCompress.
type Artifact struct {
	Name     string
	MimeType string
	Data     []byte
	Result   Result
}

func notCompressed(size int64) Result {
	return Result{
		Compressed:     false,
		OriginalSize:   size,
		CompressedSize: size,
		Ratio:          0,
		Algorithm:      AlgorithmNone,
	}
}

// Compress gzips data. It never fails: on error the returned Result has
// Compressed=false and no data, and the caller keeps the original bytes.
func Compress(data []byte) Result {
	size := int64(len(data))

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return notCompressed(size)
	}
	if _, err := zw.Write(data); err != nil {
		return notCompressed(size)
	}
	if err := zw.Close(); err != nil {
		return notCompressed(size)
	}

	compressedSize := int64(buf.Len())
	ratio := 0.0
	if size > 0 {
		ratio = 1 - float64(compressedSize)/float64(size)
	}

	return Result{
		Compressed:     true,
		OriginalSize:   size,
		CompressedSize: compressedSize,
		Ratio:          ratio,
		Algorithm:      AlgorithmGzip,
		Data:           buf.Bytes(),
	}
}

// Decompress is the inverse of Compress.
func Decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	return out, nil
}

// SmartCompress runs the selector, compresses when advised, and keeps the
// compressed bytes only when the ratio reaches p.MinRatio. Otherwise the
// original data, name and MIME type come back untouched.
func SmartCompress(data []byte, mimeType, name string, p Policy) Artifact {
	size := int64(len(data))
	original := Artifact{
		Name:     name,
		MimeType: mimeType,
		Data:     data,
		Result:   notCompressed(size),
	}

	if !ShouldCompress(size, mimeType, name, p) {
		return original
	}

	res := Compress(data)
	if !res.Compressed || res.Ratio < p.MinRatio {
		return original
	}

	return Artifact{
		Name:     name + GzipSuffix,
		MimeType: GzipMimeType,
		Data:     res.Data,
		Result:   res,
	}
}
