package png

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// Deflate compresses p into a zlib stream.
func Deflate(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(p); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Inflate decompresses the zlib stream p.
//
// If limit is positive, at most limit+1 bytes are decompressed
// so callers expecting exactly limit bytes can detect longer streams
// without inflating them fully.
func Inflate(p []byte, limit int64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(p))
	if err != nil {
		return nil, errors.WithMessage(ErrCorrupt, err.Error())
	}
	defer zr.Close()

	var r io.Reader = zr
	if limit > 0 {
		r = io.LimitReader(zr, limit+1)
	}

	q, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithMessage(ErrCorrupt, err.Error())
	}
	return q, nil
}
