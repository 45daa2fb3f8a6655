// Package png reads and writes the chunk framing of PNG files.
//
// Pixel data is never decoded. IDAT and other chunks are carried as opaque
// bytes, so files pass through unchanged apart from chunks explicitly added.
package png

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
)

// Signature is the 8 byte header every PNG file starts with.
const Signature = "\x89PNG\r\n\x1a\n"

const (
	chunkHeaderLen = 8  // length and type
	chunkOverhead  = 12 // length, type and crc

	// MaxChunkLen is the largest data length allowed in a chunk.
	MaxChunkLen = 1<<31 - 1
)

var (
	// ErrFormat is returned if the data is not framed as a PNG file,
	// such as a missing signature, a truncated chunk or a missing IEND.
	ErrFormat = errors.New("png: invalid format")

	// ErrCorrupt is returned if a chunk fails its integrity checks.
	ErrCorrupt = errors.New("png: corrupt chunk")

	// ErrNotFound is returned if a requested chunk is absent.
	ErrNotFound = errors.New("png: chunk not found")

	// ErrEncoding is returned for text not representable in a text chunk.
	ErrEncoding = errors.New("png: invalid text encoding")

	// ErrChunkType is returned for chunk types that are not 4 bytes long.
	ErrChunkType = errors.New("png: invalid chunk type")

	// ErrTooLong is returned if the chunk data is too long to be written in a png file.
	ErrTooLong = errors.New("png: encoded length too long")
)

// HasSignature reports whether p starts with the PNG signature.
func HasSignature(p []byte) bool {
	return len(p) >= len(Signature) && string(p[:len(Signature)]) == Signature
}

// Chunk is a single chunk of a PNG stream.
type Chunk struct {
	Offset int64  // offset of the length field
	Type   string // 4 byte chunk type
	Data   []byte // chunk data, aliasing the scanned buffer
	CRC    uint32 // crc as stored in the stream
}

// Len returns the encoded length of c including length, type and crc.
func (c Chunk) Len() int {
	return chunkOverhead + len(c.Data)
}

// End returns the offset of the first byte after c.
func (c Chunk) End() int64 {
	return c.Offset + int64(c.Len())
}

// Valid reports whether the stored CRC matches the type and data.
func (c Chunk) Valid() bool {
	return c.CRC == Checksum(c.Type, c.Data)
}

// IsAncillary reports if typ names a chunk decoders may ignore.
func IsAncillary(typ string) bool {
	return len(typ) == 4 && typ[0]&0x20 != 0
}

// Checksum returns the CRC-32 (IEEE) of the chunk type followed by data.
func Checksum(typ string, data []byte) uint32 {
	crc := crc32.NewIEEE()
	io.WriteString(crc, typ)
	crc.Write(data)
	return crc.Sum32()
}

// BuildChunk returns the encoded chunk of type typ holding data.
func BuildChunk(typ string, data []byte) ([]byte, error) {
	if err := checkChunk(typ, data); err != nil {
		return nil, err
	}

	n := len(data)
	p := make([]byte, chunkOverhead+n)
	binary.BigEndian.PutUint32(p[:4], uint32(n))
	copy(p[4:8], typ)
	copy(p[8:], data)
	binary.BigEndian.PutUint32(p[8+n:], crc32.ChecksumIEEE(p[4:8+n]))
	return p, nil
}

// WriteChunk writes the chunk of type typ holding data to w.
func WriteChunk(w io.Writer, typ string, data []byte) error {
	if err := checkChunk(typ, data); err != nil {
		return err
	}

	var buf [chunkHeaderLen]byte
	binary.BigEndian.PutUint32(buf[:4], uint32(len(data)))
	copy(buf[4:], typ)

	ww := errw{w: w}
	ww.write(buf[:])
	ww.write(data)
	binary.BigEndian.PutUint32(buf[:4], Checksum(typ, data))
	ww.write(buf[:4])
	return ww.err
}

func checkChunk(typ string, data []byte) error {
	if len(typ) != 4 {
		return errors.Wrapf(ErrChunkType, "%q", typ)
	}
	if uint64(len(data)) > MaxChunkLen {
		return ErrTooLong
	}
	return nil
}

type errw struct {
	w   io.Writer
	err error
}

func (w *errw) write(p []byte) {
	if w.err != nil {
		return
	}
	var n int
	n, w.err = w.w.Write(p)
	if w.err == nil && n != len(p) {
		w.err = io.ErrShortWrite
	}
}
