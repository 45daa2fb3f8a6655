package png

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Scanner iterates the chunks of an in-memory PNG file.
//
// Scanning stops after the IEND chunk has been returned,
// or when the remaining bytes are too few to hold a chunk.
// A Scanner is used once; create a new one to scan again.
type Scanner struct {
	// Strict enables CRC validation of every chunk scanned.
	Strict bool

	p   []byte
	off int

	c    Chunk
	done bool
	err  error
}

// NewScanner returns a Scanner reading chunks from p.
// It returns ErrFormat if p does not start with the PNG signature.
func NewScanner(p []byte) (*Scanner, error) {
	if !HasSignature(p) {
		return nil, errors.WithMessage(ErrFormat, "missing signature")
	}
	return &Scanner{p: p, off: len(Signature)}, nil
}

// Next advances to the next chunk, which is then available through Chunk.
// It returns false when scanning stops, either at the end of the stream or
// because of an error. Err returns the error, if any.
func (s *Scanner) Next() bool {
	if s.done || s.err != nil {
		return false
	}

	rest := s.p[s.off:]
	if len(rest) < chunkOverhead {
		// buffer exhausted
		s.done = true
		return false
	}

	n := binary.BigEndian.Uint32(rest[:4])
	typ := string(rest[4:8])
	if uint64(n) > uint64(len(rest)-chunkOverhead) {
		s.err = errors.WithMessagef(ErrFormat,
			"chunk %q at offset %d: length %d exceeds file", typ, s.off, n)
		return false
	}

	end := chunkHeaderLen + int(n)
	c := Chunk{
		Offset: int64(s.off),
		Type:   typ,
		Data:   rest[chunkHeaderLen:end:end],
		CRC:    binary.BigEndian.Uint32(rest[end : end+4]),
	}
	if s.Strict && !c.Valid() {
		s.err = errors.WithMessagef(ErrCorrupt,
			"chunk %q at offset %d: crc mismatch", c.Type, c.Offset)
		return false
	}

	s.c = c
	s.off += end + 4
	if c.Type == "IEND" {
		s.done = true
	}
	return true
}

// Chunk returns the most recent chunk found by Next.
// Its Data aliases the scanned buffer and must not be modified.
func (s *Scanner) Chunk() Chunk {
	return s.c
}

// Offset returns the offset of the first byte not yet scanned.
func (s *Scanner) Offset() int64 {
	return int64(s.off)
}

// Err returns the first error encountered during Next.
func (s *Scanner) Err() error {
	return s.err
}

// Find scans for the first chunk of type typ.
// It returns ErrNotFound if the scan stops before one is seen.
func (s *Scanner) Find(typ string) (Chunk, error) {
	for s.Next() {
		if c := s.Chunk(); c.Type == typ {
			return c, nil
		}
	}
	if err := s.Err(); err != nil {
		return Chunk{}, err
	}
	return Chunk{}, errors.WithMessagef(ErrNotFound, "no %s chunk", typ)
}

// FindIEND scans for the IEND chunk and returns the offset of its length field,
// so that the complete chunk is p[off:off+12].
func (s *Scanner) FindIEND() (int64, error) {
	c, err := s.Find("IEND")
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return 0, errors.WithMessage(ErrFormat, "missing IEND chunk")
		}
		return 0, err
	}
	if len(c.Data) != 0 {
		return 0, errors.WithMessagef(ErrFormat,
			"IEND at offset %d has length %d", c.Offset, len(c.Data))
	}
	return c.Offset, nil
}

// FindIEND returns the offset of the IEND chunk in p.
// It returns ErrFormat if p is not a PNG file or has no IEND chunk.
func FindIEND(p []byte) (int64, error) {
	s, err := NewScanner(p)
	if err != nil {
		return 0, err
	}
	return s.FindIEND()
}
