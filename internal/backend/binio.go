package backend

import (
	"bytes"
	"encoding/binary"
)

// Reader decodes little-endian values from an in-memory image.
// Every failure is a *FormatError carrying the absolute offset.
type Reader struct {
	data []byte
	off  int
}

// NewReader creates a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current absolute position.
func (r *Reader) Offset() int { return r.off }

// Len returns the size of the underlying image.
func (r *Reader) Len() int { return len(r.data) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// Seek moves to an absolute offset.
func (r *Reader) Seek(off int) error {
	if off < 0 || off > len(r.data) {
		return Errorf(r.off, "seek to %#x outside of %d byte input", off, len(r.data))
	}
	r.off = off
	return nil
}

func (r *Reader) need(n int) error {
	if n < 0 || r.Remaining() < n {
		return Errorf(r.off, "unexpected end of input: need %d bytes, have %d", n, r.Remaining())
	}
	return nil
}

// U8 reads one byte.
func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

// Bytes reads n bytes into a new slice.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.data[r.off:])
	r.off += n
	return out, nil
}

// Magic reads len(m) bytes and checks they spell m.
func (r *Reader) Magic(m string) error {
	start := r.off
	b, err := r.Bytes(len(m))
	if err != nil {
		return err
	}
	if string(b) != m {
		return Errorf(start, "bad magic %q, expected %q", b, m)
	}
	return nil
}

// Zero reads a uint32 that must be zero. what names the field in errors.
func (r *Reader) Zero(what string) error {
	start := r.off
	v, err := r.U32()
	if err != nil {
		return err
	}
	if v != 0 {
		return Errorf(start, "%s must be zero, got %#x", what, v)
	}
	return nil
}

// CString reads bytes up to a NUL terminator and consumes the terminator.
func (r *Reader) CString() ([]byte, error) {
	i := bytes.IndexByte(r.data[r.off:], 0)
	if i < 0 {
		return nil, Errorf(r.off, "unterminated string")
	}
	s, _ := r.Bytes(i)
	r.off++
	return s, nil
}

// ZeroPad consumes zero bytes up to the next multiple of align.
func (r *Reader) ZeroPad(align int) error {
	for r.off%align != 0 {
		start := r.off
		b, err := r.U8()
		if err != nil {
			return err
		}
		if b != 0 {
			return Errorf(start, "padding must be zero, got %#x", b)
		}
	}
	return nil
}

// Writer encodes little-endian values into a growing buffer.
type Writer struct {
	buf bytes.Buffer
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.buf.Len() }

// Bytes returns the written image.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// U8 writes one byte.
func (w *Writer) U8(v uint8) { w.buf.WriteByte(v) }

// U16 writes a little-endian uint16.
func (w *Writer) U16(v uint16) {
	w.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
}

// U32 writes a little-endian uint32.
func (w *Writer) U32(v uint32) {
	w.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

// Write appends raw bytes.
func (w *Writer) Write(b []byte) { w.buf.Write(b) }

// CString writes b followed by a NUL terminator.
func (w *Writer) CString(b []byte) {
	w.buf.Write(b)
	w.buf.WriteByte(0)
}

// Pad writes zero bytes up to the next multiple of align.
func (w *Writer) Pad(align int) {
	for w.buf.Len()%align != 0 {
		w.buf.WriteByte(0)
	}
}

// Align rounds n up to a multiple of align.
func Align(n, align int) int {
	return (n + align - 1) / align * align
}
