package png

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// Text is a decoded textual metadata chunk.
type Text struct {
	Type    string // tEXt, zTXt or iTXt
	Keyword string
	Text    string

	// Compressed reports whether the text was stored zlib compressed.
	Compressed bool

	// iTXt only
	Language          string
	TranslatedKeyword string
}

// IsText reports if typ is one of the standard textual chunk types.
func IsText(typ string) bool {
	switch typ {
	case "tEXt", "zTXt", "iTXt":
		return true
	}
	return false
}

// EncodeText returns the tEXt chunk data for key and value.
//
// Both must be representable in Latin-1 and may not contain NUL.
func EncodeText(key, value string) ([]byte, error) {
	k, err := EncodeLatin1(key)
	if err != nil {
		return nil, err
	}
	v, err := EncodeLatin1(value)
	if err != nil {
		return nil, err
	}
	p := make([]byte, 0, len(k)+1+len(v))
	p = append(p, k...)
	p = append(p, 0)
	return append(p, v...), nil
}

// EncodeLatin1 converts s to Latin-1 bytes.
// It returns ErrEncoding if s contains NUL or runes above U+00FF.
func EncodeLatin1(s string) ([]byte, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, errors.WithMessagef(ErrEncoding, "%q contains NUL", s)
	}
	p, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, errors.WithMessagef(ErrEncoding, "%q is not Latin-1", s)
	}
	return p, nil
}

// DecodeLatin1 converts Latin-1 bytes to a string.
func DecodeLatin1(p []byte) string {
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(p)
	if err != nil {
		// every byte is a valid Latin-1 character
		panic(err)
	}
	return string(s)
}

// DecodeText decodes the data of a tEXt, zTXt or iTXt chunk.
//
// https://www.w3.org/TR/PNG/#11textinfo
func DecodeText(typ string, data []byte) (*Text, error) {
	d := textDec{src: data}

	t := &Text{Type: typ}
	switch typ {
	case "tEXt":
		t.Keyword = DecodeLatin1(d.string())
		if !d.fail {
			t.Text = DecodeLatin1(d.rest())
		}

	case "zTXt":
		t.Keyword = DecodeLatin1(d.string())
		method := d.byte()
		if d.fail {
			break
		}
		p, err := inflateText(typ, method, d.rest())
		if err != nil {
			return nil, err
		}
		t.Text = DecodeLatin1(p)
		t.Compressed = true

	case "iTXt":
		t.Keyword = DecodeLatin1(d.string())
		compression := d.byte()
		method := d.byte()
		t.Language = string(d.string())
		t.TranslatedKeyword = string(d.string())
		if d.fail {
			break
		}
		p := d.rest()
		switch compression {
		case 0:
		case 1:
			var err error
			if p, err = inflateText(typ, method, p); err != nil {
				return nil, err
			}
			t.Compressed = true
		default:
			return nil, errors.WithMessagef(ErrCorrupt, "iTXt compression flag %d", compression)
		}
		t.Text = string(p)

	default:
		return nil, errors.WithMessagef(ErrChunkType, "%q is not a text chunk", typ)
	}

	if d.fail {
		return nil, errors.WithMessagef(ErrCorrupt, "malformed %s chunk", typ)
	}
	return t, nil
}

// MaxTextLen is the largest decompressed zTXt or iTXt text accepted.
const MaxTextLen = 1 << 24

func inflateText(typ string, method byte, p []byte) ([]byte, error) {
	if method != 0 {
		return nil, errors.WithMessagef(ErrCorrupt, "%s compression method %d", typ, method)
	}
	q, err := Inflate(p, MaxTextLen)
	if err != nil {
		return nil, err
	}
	if len(q) > MaxTextLen {
		return nil, errors.WithMessagef(ErrCorrupt, "%s text exceeds %d bytes", typ, MaxTextLen)
	}
	return q, nil
}

// TextKeyPrefix reports whether tEXt data starts with key followed by NUL,
// and returns the remaining value bytes if so.
func TextKeyPrefix(data, key []byte) ([]byte, bool) {
	if len(data) <= len(key) || data[len(key)] != 0 || !bytes.HasPrefix(data, key) {
		return nil, false
	}
	return data[len(key)+1:], true
}

type textDec struct {
	src  []byte
	pos  int
	fail bool
}

// string returns the bytes up to the next NUL and skips it.
func (d *textDec) string() []byte {
	if d.fail {
		return nil
	}

	i := bytes.IndexByte(d.src[d.pos:], 0)
	if i == -1 {
		d.fail = true
		return nil
	}

	p := d.pos
	n := d.pos + i
	d.pos = n + 1

	return d.src[p:n]
}

func (d *textDec) byte() byte {
	if d.fail || d.pos >= len(d.src) {
		d.fail = true
		return 0
	}

	b := d.src[d.pos]
	d.pos++
	return b
}

func (d *textDec) rest() []byte {
	if d.fail {
		return nil
	}
	p := d.src[d.pos:]
	d.pos = len(d.src)
	return p
}
