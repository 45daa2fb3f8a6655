package png

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

func TestEncodeText(t *testing.T) {
	tests := []struct {
		key, value string
		want       string
	}{
		{"Signature", "deadbeef", "Signature\x00deadbeef"},
		{"Comment", "", "Comment\x00"},
		{"Author", "Zoë Ångström", "Author\x00Zo\xeb \xc5ngstr\xf6m"},
		{"k", "ÿ", "k\x00\xff"},
	}
	for _, tt := range tests {
		p, err := EncodeText(tt.key, tt.value)
		if err != nil {
			t.Errorf("EncodeText(%q, %q): %v", tt.key, tt.value, err)
			continue
		}
		if string(p) != tt.want {
			t.Errorf("EncodeText(%q, %q) = %q, want %q", tt.key, tt.value, p, tt.want)
		}

		x, err := DecodeText("tEXt", p)
		if err != nil {
			t.Errorf("DecodeText(%q): %v", p, err)
			continue
		}
		if x.Keyword != tt.key || x.Text != tt.value {
			t.Errorf("DecodeText(%q) = %q, %q", p, x.Keyword, x.Text)
		}
	}
}

func TestEncodeTextError(t *testing.T) {
	tests := []struct{ key, value string }{
		{"Sig\x00nature", "x"},
		{"Signature", "dead\x00beef"},
		{"Signature", "Ā"},
		{"日本", "x"},
		{"Signature", "\U0001f600"},
	}
	for _, tt := range tests {
		_, err := EncodeText(tt.key, tt.value)
		if errors.Cause(err) != ErrEncoding {
			t.Errorf("EncodeText(%q, %q) error %v, want ErrEncoding", tt.key, tt.value, err)
		}
	}
}

func TestDecodeTextCompressed(t *testing.T) {
	z := deflateString(t, "compressed \xe9t\xe9")
	ztxt := append([]byte("Comment\x00\x00"), z...)

	x, err := DecodeText("zTXt", ztxt)
	if err != nil {
		t.Fatal(err)
	}
	if x.Keyword != "Comment" || x.Text != "compressed été" || !x.Compressed {
		t.Errorf("zTXt decoded as %+v", x)
	}

	zi := deflateString(t, "日本語")
	itxt := bytes.Join([][]byte{
		[]byte("Title\x00\x01\x00ja\x00Titel\x00"),
		zi,
	}, nil)
	x, err = DecodeText("iTXt", itxt)
	if err != nil {
		t.Fatal(err)
	}
	want := Text{
		Type:              "iTXt",
		Keyword:           "Title",
		Text:              "日本語",
		Compressed:        true,
		Language:          "ja",
		TranslatedKeyword: "Titel",
	}
	if *x != want {
		t.Errorf("iTXt decoded as %+v, want %+v", x, want)
	}

	x, err = DecodeText("iTXt", []byte("XML:com.adobe.xmp\x00\x00\x00\x00\x00<x:xmpmeta/>"))
	if err != nil {
		t.Fatal(err)
	}
	if x.Keyword != "XML:com.adobe.xmp" || x.Text != "<x:xmpmeta/>" || x.Compressed {
		t.Errorf("uncompressed iTXt decoded as %+v", x)
	}
}

func TestDecodeTextMalformed(t *testing.T) {
	tests := []struct {
		typ  string
		data string
		want error
	}{
		{"tEXt", "no separator", ErrCorrupt},
		{"zTXt", "Comment\x00", ErrCorrupt},
		{"zTXt", "Comment\x00\x01xyz", ErrCorrupt},
		{"zTXt", "Comment\x00\x00not zlib", ErrCorrupt},
		{"iTXt", "Title\x00\x00", ErrCorrupt},
		{"iTXt", "Title\x00\x02\x00\x00\x00text", ErrCorrupt},
		{"IHDR", "", ErrChunkType},
	}
	for _, tt := range tests {
		_, err := DecodeText(tt.typ, []byte(tt.data))
		if errors.Cause(err) != tt.want {
			t.Errorf("DecodeText(%s, %q) error %v, want %v", tt.typ, tt.data, err, tt.want)
		}
	}
}

func TestTextKeyPrefix(t *testing.T) {
	tests := []struct {
		data, key string
		value     string
		ok        bool
	}{
		{"Signature\x00abc", "Signature", "abc", true},
		{"Signature\x00", "Signature", "", true},
		{"SignatureX\x00abc", "Signature", "", false},
		{"Sig\x00abc", "Signature", "", false},
		{"Signature", "Signature", "", false},
	}
	for _, tt := range tests {
		v, ok := TextKeyPrefix([]byte(tt.data), []byte(tt.key))
		if ok != tt.ok || string(v) != tt.value {
			t.Errorf("TextKeyPrefix(%q, %q) = %q, %v", tt.data, tt.key, v, ok)
		}
	}
}

func TestDeflateInflate(t *testing.T) {
	p := bytes.Repeat([]byte{0, 10, 20, 30, 40}, 300)
	z, err := Deflate(p)
	if err != nil {
		t.Fatal(err)
	}
	q, err := Inflate(z, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(p, q) {
		t.Error("inflated data differs")
	}

	q, err = Inflate(z, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(q) != 101 {
		t.Errorf("limited inflate returned %d bytes, want 101", len(q))
	}

	if _, err := Inflate(z[:len(z)/2], 0); errors.Cause(err) != ErrCorrupt {
		t.Errorf("truncated stream error %v, want ErrCorrupt", err)
	}
}

func TestDecodeTextTooLong(t *testing.T) {
	z, err := Deflate(make([]byte, MaxTextLen+1))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		typ    string
		header string
	}{
		{"zTXt", "Comment\x00\x00"},
		{"iTXt", "Title\x00\x01\x00\x00\x00"},
	}
	for _, tt := range tests {
		data := append([]byte(tt.header), z...)
		if _, err := DecodeText(tt.typ, data); errors.Cause(err) != ErrCorrupt {
			t.Errorf("DecodeText(%s) of %d bytes error %v, want ErrCorrupt", tt.typ, MaxTextLen+1, err)
		}
	}

	z, err = Deflate(make([]byte, MaxTextLen))
	if err != nil {
		t.Fatal(err)
	}
	x, err := DecodeText("zTXt", append([]byte("Comment\x00\x00"), z...))
	if err != nil || len(x.Text) != MaxTextLen {
		t.Errorf("DecodeText at limit: %v", err)
	}
}

func deflateString(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
