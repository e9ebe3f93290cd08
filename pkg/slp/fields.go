package slp

import (
	"encoding/binary"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"

	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/utils"
)

// Encoding selects how FieldText decodes a push.
type Encoding int

const (
	// EncodingASCII accepts only 7-bit bytes.
	EncodingASCII Encoding = iota
	// EncodingUTF8 accepts any bytes; SLP text fields are free-form.
	EncodingUTF8
)

// FieldAccessor gives positional access to the data pushes of a script.
// Position 0 is the leading opcode. Out-of-range positions and positions
// holding a non-push opcode report an absent field rather than failing.
type FieldAccessor interface {
	Field(i int) ([]byte, bool)
	FieldText(i int, enc Encoding) (string, bool)
	FieldInt(i int) (uint64, bool)
	FieldCount() int
	IsMarker() bool
}

type field struct {
	op   byte
	data []byte
	push bool
}

// Fields is the FieldAccessor over a decoded locking script.
type Fields struct {
	fields []field
}

var _ FieldAccessor = (*Fields)(nil)

// ParseFields decodes a locking script into positional fields. Scripts that
// start with OP_RETURN keep the opcode as field 0 and decode the remaining
// bytes as pushes.
func ParseFields(s *script.Script) (*Fields, error) {
	if s == nil || len(*s) == 0 {
		return &Fields{}, nil
	}
	raw := []byte(*s)

	f := &Fields{}
	rest := raw
	if raw[0] == script.OpRETURN {
		f.fields = append(f.fields, field{op: script.OpRETURN})
		rest = raw[1:]
	}
	if len(rest) == 0 {
		return f, nil
	}

	chunks, err := script.NewFromBytes(rest).Chunks()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedScript, err)
	}
	for _, c := range chunks {
		f.fields = append(f.fields, field{
			op:   c.Op,
			data: c.Data,
			push: isDataPush(c.Op),
		})
	}
	return f, nil
}

// NewFields builds an accessor for an OP_RETURN script whose fields after the
// marker are the given pushes.
func NewFields(pushes ...[]byte) *Fields {
	f := &Fields{fields: make([]field, 0, len(pushes)+1)}
	f.fields = append(f.fields, field{op: script.OpRETURN})
	for _, p := range pushes {
		f.fields = append(f.fields, field{data: p, push: true})
	}
	return f
}

func isDataPush(op byte) bool {
	return op <= script.OpPUSHDATA4
}

// Field returns the raw bytes of push i.
func (f *Fields) Field(i int) ([]byte, bool) {
	if i < 0 || i >= len(f.fields) || !f.fields[i].push {
		return nil, false
	}
	return f.fields[i].data, true
}

// FieldText returns push i decoded as text.
func (f *Fields) FieldText(i int, enc Encoding) (string, bool) {
	b, ok := f.Field(i)
	if !ok {
		return "", false
	}
	if enc == EncodingASCII {
		for _, c := range b {
			if c >= 0x80 {
				return "", false
			}
		}
	}
	return utils.UTFBytesToString(b), true
}

// FieldInt returns push i as a big-endian unsigned integer. Pushes longer
// than 8 bytes are absent; an empty push is zero.
func (f *Fields) FieldInt(i int) (uint64, bool) {
	b, ok := f.Field(i)
	if !ok || len(b) > 8 {
		return 0, false
	}
	var buf [8]byte
	copy(buf[8-len(b):], b)
	return binary.BigEndian.Uint64(buf[:]), true
}

// FieldCount returns the number of fields including the leading opcode.
func (f *Fields) FieldCount() int {
	return len(f.fields)
}

// IsMarker reports whether field 0 is OP_RETURN.
func (f *Fields) IsMarker() bool {
	return len(f.fields) > 0 && f.fields[0].op == script.OpRETURN && !f.fields[0].push
}
