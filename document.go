// Package pngdepth stores depth maps and text metadata in PNG files.
//
// A Document holds the bytes of a single PNG file. New chunks are always
// inserted right before the IEND chunk. The rest of the file is left
// unchanged, including the compressed pixel data.
//
// Insertions never modify a buffer in place: each one builds a new buffer
// and makes it current. Slices returned by Bytes and Documents returned by
// Snapshot therefore stay valid and unchanged, and may be read concurrently
// while another goroutine inserts into the original Document.
// Insertions into the same Document must not run concurrently.
package pngdepth

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/tajtiattila/pngdepth/png"
)

// TextChunkType is the chunk type used by InsertText.
const TextChunkType = "tEXt"

// Document is an in-memory PNG file.
type Document struct {
	// Strict enables CRC validation of every chunk scanned.
	Strict bool

	// Size returns the image dimensions used to check and shape
	// depth maps. HeaderSize is used if Size is nil.
	Size SizeFunc

	p []byte
}

// New returns a Document for the PNG file p.
// The Document takes ownership of p, which must not be modified afterwards.
func New(p []byte) (*Document, error) {
	if !png.HasSignature(p) {
		return nil, errors.WithMessage(png.ErrFormat, "missing signature")
	}
	return &Document{p: p}, nil
}

// Parse reads a PNG file from r.
func Parse(r io.Reader) (*Document, error) {
	p, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return New(p)
}

// Open reads the PNG file named path.
func Open(path string) (*Document, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	d, err := New(p)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return d, nil
}

// Bytes returns the current file contents. It must not be modified.
func (d *Document) Bytes() []byte {
	return d.p
}

// Snapshot returns a copy of d sharing its current buffer.
func (d *Document) Snapshot() *Document {
	c := *d
	return &c
}

// WriteTo writes the current file contents to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.p)
	if err == nil && n != len(d.p) {
		err = io.ErrShortWrite
	}
	return int64(n), err
}

// WriteFile writes the current file contents to path.
//
// The data is written to a temporary file in the same directory
// which is then renamed to path, so an existing file at path
// is either replaced completely or left untouched.
// An existing file keeps its permissions, new files get 0644.
func (d *Document) WriteFile(path string) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return errors.WithStack(err)
	}
	tmp := f.Name()

	_, err = f.Write(d.p)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp, mode)
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		os.Remove(tmp)
		return errors.WithStack(err)
	}
	return nil
}

// Chunks returns a Scanner over the current file contents.
func (d *Document) Chunks() (*png.Scanner, error) {
	s, err := png.NewScanner(d.p)
	if err != nil {
		return nil, err
	}
	s.Strict = d.Strict
	return s, nil
}

// Dimensions returns the image width and height.
func (d *Document) Dimensions() (width, height int, err error) {
	size := d.Size
	if size == nil {
		size = HeaderSize
	}
	return size(d.p)
}

// InsertChunk inserts a chunk of type typ holding data before IEND.
func (d *Document) InsertChunk(typ string, data []byte) error {
	c, err := png.BuildChunk(typ, data)
	if err != nil {
		return err
	}

	s, err := d.Chunks()
	if err != nil {
		return err
	}
	off, err := s.FindIEND()
	if err != nil {
		return err
	}

	p, err := FileMod{Insert(off, c)}.Apply(d.p)
	if err != nil {
		return err
	}
	d.p = p
	return nil
}

// InsertDepth inserts m as a zlib compressed dEPh chunk.
// The size of m must match the image dimensions.
func (d *Document) InsertDepth(m *DepthMap) error {
	if !png.HasSignature(d.p) {
		return errors.WithMessage(png.ErrFormat, "missing signature")
	}
	if m == nil {
		return errors.WithMessage(ErrDimension, "nil depth map")
	}
	if !m.valid() {
		return errors.WithMessagef(ErrDimension,
			"depth map %dx%d has %d values", m.Width, m.Height, len(m.Pix))
	}

	w, h, err := d.Dimensions()
	if err != nil {
		return err
	}
	if m.Width != w || m.Height != h {
		return errors.WithStack(&DimensionError{
			Width: w, Height: h,
			DepthWidth: m.Width, DepthHeight: m.Height,
			Row: -1,
		})
	}

	z, err := png.Deflate(m.Pix)
	if err != nil {
		return errors.WithStack(err)
	}
	return d.InsertChunk(DepthChunkType, z)
}

// InsertText inserts a tEXt chunk for key and value,
// which must both be representable in Latin-1 without NUL.
func (d *Document) InsertText(key, value string) error {
	if !png.HasSignature(d.p) {
		return errors.WithMessage(png.ErrFormat, "missing signature")
	}
	data, err := png.EncodeText(key, value)
	if err != nil {
		return err
	}
	return d.InsertChunk(TextChunkType, data)
}

// Depth returns the depth map in the first dEPh chunk.
//
// It returns png.ErrNotFound if there is no dEPh chunk before IEND,
// and png.ErrCorrupt if the chunk does not hold exactly one value per pixel.
func (d *Document) Depth() (*DepthMap, error) {
	s, err := d.Chunks()
	if err != nil {
		return nil, err
	}
	c, err := s.Find(DepthChunkType)
	if err != nil {
		return nil, err
	}

	w, h, err := d.Dimensions()
	if err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 || int64(w) > math.MaxInt64/int64(h) {
		return nil, errors.WithMessagef(png.ErrFormat, "invalid image size %dx%d", w, h)
	}
	n := int64(w) * int64(h)

	pix, err := png.Inflate(c.Data, n)
	if err != nil {
		return nil, errors.WithMessagef(err, "dEPh chunk at offset %d", c.Offset)
	}
	if int64(len(pix)) != n {
		return nil, errors.WithMessagef(png.ErrCorrupt,
			"dEPh chunk at offset %d: got %d values for %dx%d image", c.Offset, len(pix), w, h)
	}
	return &DepthMap{Width: w, Height: h, Pix: pix}, nil
}

// TextValue returns the value of the first tEXt chunk having keyword key.
func (d *Document) TextValue(key string) (string, error) {
	_, v, err := d.FindText(key)
	return v, err
}

// FindText returns the first tEXt chunk having keyword key, and its value.
// It returns png.ErrNotFound if there is none before IEND.
func (d *Document) FindText(key string) (png.Chunk, string, error) {
	k, err := png.EncodeLatin1(key)
	if err != nil {
		return png.Chunk{}, "", err
	}

	s, err := d.Chunks()
	if err != nil {
		return png.Chunk{}, "", err
	}
	for s.Next() {
		c := s.Chunk()
		if c.Type != TextChunkType {
			continue
		}
		if v, ok := png.TextKeyPrefix(c.Data, k); ok {
			return c, png.DecodeLatin1(v), nil
		}
	}
	if err := s.Err(); err != nil {
		return png.Chunk{}, "", err
	}
	return png.Chunk{}, "", errors.WithMessagef(png.ErrNotFound, "no tEXt chunk %q", key)
}

// ReaderWithout returns a reader for the current file contents
// with the chunk c left out. c must have been scanned from d.
func (d *Document) ReaderWithout(c png.Chunk) (io.Reader, error) {
	end := c.End()
	if c.Offset < int64(len(png.Signature)) || end > int64(len(d.p)) ||
		string(d.p[c.Offset+4:c.Offset+8]) != c.Type {
		return nil, errors.Errorf("pngdepth: chunk %q at offset %d is not in document", c.Type, c.Offset)
	}
	mod := FileMod{Delete(c.Offset, c.Len())}
	return mod.Reader(bytes.NewReader(d.p)), nil
}
