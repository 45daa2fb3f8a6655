package pngdepth

import (
	"bytes"
	"image"
	_ "image/png" // register the decoder used by ImageConfigSize

	"github.com/pkg/errors"
	"github.com/tajtiattila/pngdepth/png"
)

// SizeFunc returns the pixel dimensions of the encoded image p.
type SizeFunc func(p []byte) (width, height int, err error)

// HeaderSize is a SizeFunc reading the IHDR chunk.
func HeaderSize(p []byte) (width, height int, err error) {
	h, err := png.DecodeHeader(p)
	if err != nil {
		return 0, 0, err
	}
	return int(h.Width), int(h.Height), nil
}

// ImageConfigSize is a SizeFunc that asks the image package
// for the dimensions of p.
func ImageConfigSize(p []byte) (width, height int, err error) {
	if !png.HasSignature(p) {
		return 0, 0, errors.WithMessage(png.ErrFormat, "missing signature")
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(p))
	if err != nil {
		return 0, 0, errors.WithMessage(png.ErrFormat, err.Error())
	}
	return cfg.Width, cfg.Height, nil
}
