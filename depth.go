package pngdepth

import (
	"fmt"
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// DepthChunkType is the private ancillary chunk holding a depth map.
const DepthChunkType = "dEPh"

// DepthMap is a row-major array of 8-bit depth values, one per pixel.
type DepthMap struct {
	Width, Height int

	// Pix holds Height rows of Width values each.
	Pix []uint8
}

// NewDepthMap returns a zeroed DepthMap of size w×h.
func NewDepthMap(w, h int) *DepthMap {
	if w < 0 || h < 0 {
		panic("pngdepth: negative depth map size")
	}
	return &DepthMap{Width: w, Height: h, Pix: make([]uint8, w*h)}
}

// DepthMapFromRows copies rows into a new DepthMap.
// All rows must have the same length.
func DepthMapFromRows(rows [][]uint8) (*DepthMap, error) {
	h := len(rows)
	if h == 0 {
		return NewDepthMap(0, 0), nil
	}
	w := len(rows[0])
	m := NewDepthMap(w, h)
	for y, row := range rows {
		if len(row) != w {
			return nil, errors.WithStack(&DimensionError{
				Width: w, Height: h,
				DepthWidth: len(row), DepthHeight: h,
				Row: y,
			})
		}
		copy(m.Pix[y*w:], row)
	}
	return m, nil
}

// DepthMapFromImage converts the luma of img into a DepthMap.
func DepthMapFromImage(img image.Image) *DepthMap {
	b := img.Bounds()
	m := NewDepthMap(b.Dx(), b.Dy())
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < m.Height; y++ {
			i := g.PixOffset(b.Min.X, b.Min.Y+y)
			copy(m.Pix[y*m.Width:(y+1)*m.Width], g.Pix[i:i+m.Width])
		}
		return m
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			m.Pix[y*m.Width+x] = c.Y
		}
	}
	return m
}

// At returns the depth at x, y.
func (m *DepthMap) At(x, y int) uint8 {
	return m.Pix[y*m.Width+x]
}

// Set sets the depth at x, y.
func (m *DepthMap) Set(x, y int, v uint8) {
	m.Pix[y*m.Width+x] = v
}

// Rows returns the rows of m. The rows share memory with m.Pix.
func (m *DepthMap) Rows() [][]uint8 {
	rows := make([][]uint8, m.Height)
	for y := range rows {
		rows[y] = m.Pix[y*m.Width : (y+1)*m.Width : (y+1)*m.Width]
	}
	return rows
}

// Gray returns m as a grayscale image sharing memory with m.Pix.
func (m *DepthMap) Gray() *image.Gray {
	return &image.Gray{
		Pix:    m.Pix,
		Stride: m.Width,
		Rect:   image.Rect(0, 0, m.Width, m.Height),
	}
}

func (m *DepthMap) valid() bool {
	return m.Width >= 0 && m.Height >= 0 && len(m.Pix) == m.Width*m.Height
}

// ErrDimension is the cause of every DimensionError.
var ErrDimension = errors.New("pngdepth: depth map dimension mismatch")

// DimensionError is returned when a depth map does not match
// the size of the image it belongs to.
type DimensionError struct {
	Width, Height           int // image size
	DepthWidth, DepthHeight int // depth map size

	// Row is the index of the first ragged row, or -1.
	Row int
}

func (e *DimensionError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("%v: row %d has %d values, want %d",
			ErrDimension, e.Row, e.DepthWidth, e.Width)
	}
	return fmt.Sprintf("%v: depth map is %dx%d, image is %dx%d",
		ErrDimension, e.DepthWidth, e.DepthHeight, e.Width, e.Height)
}

// Is reports whether target is ErrDimension.
func (e *DimensionError) Is(target error) bool {
	return target == ErrDimension
}

// Cause returns ErrDimension.
func (e *DimensionError) Cause() error {
	return ErrDimension
}
