package pngdepth

import (
	"github.com/pkg/errors"
	"github.com/tajtiattila/pngdepth/png"
)

// MetadataScanner iterates the tEXt, zTXt and iTXt chunks of a Document.
type MetadataScanner struct {
	s *png.Scanner

	c   png.Chunk
	t   *png.Text
	err error
}

// Metadata returns a scanner over the textual metadata chunks of d.
// Scanning stops at IEND.
func (d *Document) Metadata() (*MetadataScanner, error) {
	s, err := d.Chunks()
	if err != nil {
		return nil, err
	}
	return &MetadataScanner{s: s}, nil
}

// Next advances to the next text chunk.
func (m *MetadataScanner) Next() bool {
	if m.err != nil {
		return false
	}
	for m.s.Next() {
		c := m.s.Chunk()
		if !png.IsText(c.Type) {
			continue
		}
		t, err := png.DecodeText(c.Type, c.Data)
		if err != nil {
			m.err = errors.WithMessagef(err, "%s chunk at offset %d", c.Type, c.Offset)
			return false
		}
		m.c, m.t = c, t
		return true
	}
	m.err = m.s.Err()
	return false
}

// Chunk returns the raw chunk of the current text.
func (m *MetadataScanner) Chunk() png.Chunk { return m.c }

// Text returns the current decoded text.
func (m *MetadataScanner) Text() *png.Text { return m.t }

// Err returns the first error encountered during Next.
func (m *MetadataScanner) Err() error { return m.err }
