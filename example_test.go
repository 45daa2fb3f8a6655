package pngdepth_test

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log"

	"github.com/tajtiattila/pngdepth"
)

func encodeGray(w, h int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		log.Fatal(err)
	}
	return buf.Bytes()
}

// Store a depth map alongside the image and read it back.
func ExampleDocument_InsertDepth() {
	d, err := pngdepth.New(encodeGray(4, 3))
	if err != nil {
		log.Fatal(err)
	}

	m, err := pngdepth.DepthMapFromRows([][]uint8{
		{0, 10, 20, 30},
		{40, 50, 60, 70},
		{80, 90, 100, 110},
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := d.InsertDepth(m); err != nil {
		log.Fatal(err)
	}

	depth, err := d.Depth()
	if err != nil {
		log.Fatal(err)
	}
	for _, row := range depth.Rows() {
		fmt.Println(row)
	}
	// Output:
	// [0 10 20 30]
	// [40 50 60 70]
	// [80 90 100 110]
}

func ExampleDocument_Metadata() {
	d, err := pngdepth.New(encodeGray(1, 1))
	if err != nil {
		log.Fatal(err)
	}
	d.InsertText("Signature", "deadbeef")
	d.InsertText("Comment", "captured on the bench rig")

	ms, err := d.Metadata()
	if err != nil {
		log.Fatal(err)
	}
	for ms.Next() {
		t := ms.Text()
		fmt.Printf("%s %s=%q\n", t.Type, t.Keyword, t.Text)
	}
	if err := ms.Err(); err != nil {
		log.Fatal(err)
	}
	// Output:
	// tEXt Signature="deadbeef"
	// tEXt Comment="captured on the bench rig"
}
