package types

import (
	"bytes"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/util"
)

// recordWriter appends Bitcoin-style serialised fields to a buffer.
type recordWriter struct {
	buf bytes.Buffer
}

func (w *recordWriter) writeByte(b byte) {
	w.buf.WriteByte(b)
}

func (w *recordWriter) writeBytes(b []byte) {
	w.buf.Write(b)
}

// writeVarBytes writes a varint length prefix followed by b.
func (w *recordWriter) writeVarBytes(b []byte) {
	w.buf.Write(util.VarInt(uint64(len(b))).Bytes())
	w.buf.Write(b)
}

func (w *recordWriter) writeVarString(s string) {
	w.writeVarBytes([]byte(s))
}

func (w *recordWriter) bytes() []byte {
	return w.buf.Bytes()
}

// recordReader consumes fields written by recordWriter. Every read returns
// ErrTruncated rather than panicking when the buffer runs out.
type recordReader struct {
	data []byte
	pos  int
}

func newRecordReader(data []byte) *recordReader {
	return &recordReader{data: data}
}

func (r *recordReader) remaining() int {
	return len(r.data) - r.pos
}

func (r *recordReader) readByte() (byte, error) {
	if r.remaining() < 1 {
		return 0, fmt.Errorf("%w: reading byte at offset %d", ErrTruncated, r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// readOptionalByte reads a trailing byte that older encodings may omit.
// ok is false only when the buffer is exhausted; it never masks other
// decode failures.
func (r *recordReader) readOptionalByte() (b byte, ok bool) {
	if r.remaining() == 0 {
		return 0, false
	}
	b = r.data[r.pos]
	r.pos++
	return b, true
}

func (r *recordReader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.pos, r.remaining())
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

func (r *recordReader) readVarInt() (uint64, error) {
	if r.remaining() < 1 {
		return 0, fmt.Errorf("%w: reading varint at offset %d", ErrTruncated, r.pos)
	}
	size := 1
	switch r.data[r.pos] {
	case 0xfd:
		size = 3
	case 0xfe:
		size = 5
	case 0xff:
		size = 9
	}
	if r.remaining() < size {
		return 0, fmt.Errorf("%w: varint needs %d bytes at offset %d", ErrTruncated, size, r.pos)
	}
	v, n := util.NewVarIntFromBytes(r.data[r.pos : r.pos+size])
	r.pos += n
	return uint64(v), nil
}

func (r *recordReader) readVarBytes() ([]byte, error) {
	n, err := r.readVarInt()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.remaining()) {
		return nil, fmt.Errorf("%w: length prefix %d exceeds remaining %d bytes", ErrTruncated, n, r.remaining())
	}
	return r.readBytes(int(n))
}

func (r *recordReader) readVarString() (string, error) {
	b, err := r.readVarBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
