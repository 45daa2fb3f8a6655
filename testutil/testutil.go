// Package testutil provides PNG fixtures for tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// MediaRoot returns the directory holding sample PNG files
// named by the PNG_TEST environment variable.
// The calling test is skipped if it is unset or not a directory.
func MediaRoot(t *testing.T) string {
	t.Helper()
	v := os.Getenv("PNG_TEST")
	if v == "" {
		t.Skip("PNG_TEST not set")
	}
	if s, err := os.Stat(v); err != nil || !s.Mode().IsDir() {
		t.Skipf("PNG_TEST %q is not a directory", v)
	}
	return v
}

// MediaFileNames returns the paths of PNG files under MediaRoot.
func MediaFileNames(t *testing.T) []string {
	t.Helper()
	root := MediaRoot(t)

	var files []string
	err := filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.Mode().IsRegular() && filepath.Ext(path) == ".png" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(files) == 0 {
		t.Skip("no test files found")
	}
	return files
}

// PNG returns an encoded RGBA image of size w×h with a deterministic pattern.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 7),
				G: uint8(y * 13),
				B: uint8(x ^ y),
				A: 255,
			})
		}
	}
	return Encode(t, m)
}

// Encode encodes m as PNG.
func Encode(t testing.TB, m image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// WriteFile writes p to a new file in a temporary directory
// removed when the test ends, and returns its path.
func WriteFile(t testing.TB, name string, p []byte) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(fn, p, 0o644); err != nil {
		t.Fatal(err)
	}
	return fn
}
