package png

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Header is the decoded IHDR chunk.
//
// https://www.w3.org/TR/PNG/#11IHDR
type Header struct {
	Width, Height uint32

	BitDepth    uint8
	ColorType   uint8
	Compression uint8
	Filter      uint8
	Interlace   uint8
}

const headerLen = 13

// MaxDimension is the largest image width or height allowed in IHDR.
const MaxDimension = 1<<31 - 1

// DecodeHeader decodes the IHDR chunk, which must be the first chunk of p.
func DecodeHeader(p []byte) (*Header, error) {
	s, err := NewScanner(p)
	if err != nil {
		return nil, err
	}
	if !s.Next() {
		if err := s.Err(); err != nil {
			return nil, err
		}
		return nil, errors.WithMessage(ErrFormat, "missing IHDR chunk")
	}
	c := s.Chunk()
	if c.Type != "IHDR" {
		return nil, errors.WithMessagef(ErrFormat, "first chunk is %q, not IHDR", c.Type)
	}
	return parseHeader(c.Data)
}

func parseHeader(data []byte) (*Header, error) {
	if len(data) != headerLen {
		return nil, errors.WithMessagef(ErrFormat, "IHDR length %d", len(data))
	}
	h := &Header{
		Width:       binary.BigEndian.Uint32(data[0:4]),
		Height:      binary.BigEndian.Uint32(data[4:8]),
		BitDepth:    data[8],
		ColorType:   data[9],
		Compression: data[10],
		Filter:      data[11],
		Interlace:   data[12],
	}
	if h.Width == 0 || h.Height == 0 || h.Width > MaxDimension || h.Height > MaxDimension {
		return nil, errors.WithMessagef(ErrFormat, "invalid dimensions %dx%d", h.Width, h.Height)
	}
	return h, nil
}
