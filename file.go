package pngdepth

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// FileOp represents a change that should be applied to a stream.
//
// Size bytes of the source at Offset are skipped, and Data is inserted in
// their place. A zero Size inserts, an empty Data deletes.
type FileOp struct {
	Offset int64  // source offset of this change
	Size   int    // number of bytes in the source to skip at Offset
	Data   []byte // data to insert at Offset
}

// Insert returns the FileOp inserting data at off.
func Insert(off int64, data []byte) FileOp {
	return FileOp{Offset: off, Data: data}
}

// Delete returns the FileOp removing n bytes at off.
func Delete(off int64, n int) FileOp {
	return FileOp{Offset: off, Size: n}
}

// FileMod represents modification, which is a (possibly empty)
// set of operations to be applied to a file.
//
// Elements of FileMod must be ordered with increasing Offset and must not overlap.
type FileMod []FileOp

var errInvalidMod = errors.New("pngdepth: FileMod has overlapping or unordered ops")

// Valid reports if ops has properly ordered non-overlapping elements.
func (ops FileMod) Valid() bool {
	var off int64
	for _, o := range ops {
		if o.Offset < off || o.Size < 0 {
			return false
		}
		off = o.Offset + int64(o.Size)
	}
	return true
}

// Len returns the length of a source of n bytes after ops are applied.
func (ops FileMod) Len(n int64) int64 {
	for _, o := range ops {
		n += int64(len(o.Data) - o.Size)
	}
	return n
}

// Apply returns a new slice holding p with ops applied. p is left unchanged.
func (ops FileMod) Apply(p []byte) ([]byte, error) {
	if !ops.Valid() {
		return nil, errInvalidMod
	}
	if last := len(ops) - 1; last >= 0 && ops[last].Offset+int64(ops[last].Size) > int64(len(p)) {
		return nil, io.ErrUnexpectedEOF
	}

	buf := bytes.NewBuffer(make([]byte, 0, int(ops.Len(int64(len(p))))))
	if _, err := ops.Copy(buf, bytes.NewReader(p)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Copy copies r to w with ops applied.
func (ops FileMod) Copy(w io.Writer, r io.Reader) (written int64, err error) {
	if !ops.Valid() {
		return 0, errInvalidMod
	}

	var read int64
	for _, o := range ops {
		if ncopy := o.Offset - read; ncopy > 0 {
			// copy bytes before o
			n, err := io.CopyN(w, r, ncopy)
			read += n
			written += n
			if err != nil {
				if err == io.EOF {
					// ops do not match with this source
					err = io.ErrUnexpectedEOF
				}
				return written, err
			}
		}

		if len(o.Data) != 0 {
			n, err := w.Write(o.Data)
			written += int64(n)
			if err != nil {
				return written, err
			}
			if n != len(o.Data) {
				return written, io.ErrShortWrite
			}
		}

		// discard deleted bytes from r
		if o.Size != 0 {
			n, err := io.CopyN(io.Discard, r, int64(o.Size))
			read += n
			if err != nil {
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				return written, err
			}
		}
	}

	// copy remaining bytes, if any
	n, err := io.Copy(w, r)
	written += n
	return written, err
}

// Reader returns an io.Reader that applies ops to r.
// It panics if ops is invalid.
func (ops FileMod) Reader(r io.Reader) io.Reader {
	if !ops.Valid() {
		panic("FileMod invalid")
	}

	if len(ops) == 0 {
		return r
	}
	return &modReader{r: r, ops: ops}
}

type modReader struct {
	r   io.Reader
	ops []FileOp

	ro int64 // source offset

	i  int // current op index
	do int // index into current op data

	tmp []byte
}

func (r *modReader) Read(p []byte) (n int, err error) {
	for r.i < len(r.ops) {
		o := r.ops[r.i]

		// read bytes from source before offset
		if ncopy := o.Offset - r.ro; ncopy > 0 {
			q := p
			if int64(len(q)) > ncopy {
				q = q[:int(ncopy)]
			}
			m, err := r.r.Read(q)
			p, n, r.ro = p[m:], n+m, r.ro+int64(m)
			if err == io.EOF {
				if r.ro < o.Offset {
					return n, io.ErrUnexpectedEOF
				}
				err = nil
			}
			if err != nil || r.ro < o.Offset {
				return n, err
			}
		}

		// yield op data
		m := copy(p, o.Data[r.do:])
		p, n, r.do = p[m:], n+m, r.do+m
		if r.do < len(o.Data) {
			return n, nil
		}

		// discard deleted bytes from source
		if err := r.skip(o.Offset + int64(o.Size)); err != nil {
			return n, err
		}
		r.i++
		r.do = 0

		if len(p) == 0 {
			return n, nil
		}
	}

	// past last op
	m, err := r.r.Read(p)
	return n + m, err
}

func (r *modReader) skip(end int64) error {
	for r.ro < end {
		if r.tmp == nil {
			r.tmp = make([]byte, 4096)
		}
		m := len(r.tmp)
		if left := end - r.ro; left < int64(m) {
			m = int(left)
		}
		m, err := r.r.Read(r.tmp[:m])
		r.ro += int64(m)
		if err == io.EOF && r.ro < end {
			return io.ErrUnexpectedEOF
		}
		if err != nil && err != io.EOF {
			return err
		}
	}
	return nil
}
