package pngdepth

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/rand"
	"testing"
)

func TestFileMod(t *testing.T) {
	const siz = 1 << 18
	p, err := io.ReadAll(rr(siz))
	if err != nil {
		t.Fatal(err)
	}

	bj := func(v ...[]byte) []byte {
		return bytes.Join(v, nil)
	}

	ofs, skip := 1<<10, 1<<7
	testFileMod(t,
		bj(p[:ofs], p[ofs+skip:]),
		p,
		Delete(int64(ofs), skip))

	ofs, skip = 100123, 987
	ins := []byte("foobar")
	testFileMod(t,
		bj(p[:ofs], ins, p[ofs+skip:]),
		p,
		FileOp{int64(ofs), skip, ins})

	ofs = 1<<16 - 3
	ins = bytes.Repeat([]byte("baz"), 1<<12)
	testFileMod(t,
		bj(p[:ofs], ins, p[ofs:]),
		p,
		Insert(int64(ofs), ins))

	// insert at the very end
	ins = []byte("IEND")
	testFileMod(t, bj(p, ins), p, Insert(siz, ins))

	// several ops
	testFileMod(t,
		bj(p[:10], []byte("a"), p[20:30], p[40:50], []byte("b"), p[50:]),
		p,
		FileOp{10, 10, []byte("a")},
		Delete(30, 10),
		Insert(50, []byte("b")))
}

func testFileMod(t *testing.T, want, src []byte, ops ...FileOp) {
	t.Helper()
	mod := FileMod(ops)

	if n := mod.Len(int64(len(src))); n != int64(len(want)) {
		t.Errorf("FileMod.Len = %d, want %d", n, len(want))
	}

	got, err := mod.Apply(src)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(want, got) {
		t.Error("FileMod.Apply data mismatch")
	}

	// set up pipe to test Copy from a streaming source
	pr, pw := io.Pipe()
	xch := make(chan []byte)
	go func() {
		buf := new(bytes.Buffer)
		_, err := mod.Copy(buf, pr)
		if err != nil {
			t.Error(err)
		}
		xch <- buf.Bytes()
	}()

	r := io.TeeReader(&logReader{"src", t, bytes.NewReader(src), 0, false}, pw)
	read, err := io.ReadAll(mod.Reader(oneByteReader{r}))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(want, read) {
		t.Error("FileMod.Reader data mismatch")
	}

	pw.Close()
	xcopy := <-xch
	if !bytes.Equal(want, xcopy) {
		t.Error("FileMod.Copy data mismatch")
	}
}

func TestFileModInvalid(t *testing.T) {
	src := []byte("0123456789")
	for _, mod := range []FileMod{
		{Insert(5, nil), Insert(3, nil)},
		{Delete(2, 4), Insert(4, []byte("x"))},
		{{Offset: 1, Size: -1}},
	} {
		if mod.Valid() {
			t.Errorf("%v: Valid", mod)
		}
		if _, err := mod.Apply(src); err == nil {
			t.Errorf("%v: Apply succeeded", mod)
		}
	}

	if _, err := (FileMod{Delete(8, 5)}).Apply(src); err != io.ErrUnexpectedEOF {
		t.Errorf("Apply past end error %v", err)
	}
	if _, err := (FileMod{Insert(11, []byte("x"))}).Apply(src); err != io.ErrUnexpectedEOF {
		t.Errorf("Apply past end error %v", err)
	}
}

func rr(n int64) io.Reader {
	return io.LimitReader(new(randReader), n)
}

// oneByteReader reads at most one byte at a time,
// so that every op boundary in modReader is exercised.
type oneByteReader struct{ r io.Reader }

func (r oneByteReader) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	return r.r.Read(p)
}

type logReader struct {
	tag string
	t   *testing.T
	r   io.Reader
	off int64
	log bool
}

func (r *logReader) Read(p []byte) (n int, err error) {
	n, err = r.r.Read(p)
	if r.log {
		r.t.Logf("%s %6x % x", r.tag, r.off, p[:n])
	}
	r.off += int64(n)
	return n, err
}

type randReader struct {
	off int
	buf [4]byte
	rnd *rand.Rand
}

func (r *randReader) Read(p []byte) (n int, err error) {
	for i := range p {
		p[i] = r.nextByte()
	}
	return len(p), nil
}

func (r *randReader) nextByte() byte {
	if r.off == 0 {
		if r.rnd == nil {
			r.rnd = rand.New(rand.NewSource(0))
		}
		binary.BigEndian.PutUint32(r.buf[:], r.rnd.Uint32())
	}
	o := r.off
	r.off = (r.off + 1) % 3
	return r.buf[o]
}
