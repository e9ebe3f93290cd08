package types

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// ValueSize is the in-memory width of a token amount.
const ValueSize = 8

// Value is a token amount held as a fixed 8-byte big-endian buffer.
type Value [ValueSize]byte

// NewValue returns the 8-byte big-endian form of n.
func NewValue(n uint64) Value {
	var v Value
	binary.BigEndian.PutUint64(v[:], n)
	return v
}

// ValueFromBytes expands a big-endian buffer of at most 8 bytes.
func ValueFromBytes(b []byte) (Value, error) {
	return PadValue(b)
}

// Uint64 returns the amount as an integer.
func (v Value) Uint64() uint64 {
	return binary.BigEndian.Uint64(v[:])
}

// String renders the amount in base 10.
func (v Value) String() string {
	return strconv.FormatUint(v.Uint64(), 10)
}

// Minimal returns the minimally encoded form of the amount.
func (v Value) Minimal() []byte {
	return TrimLeadingZeros(v[:])
}

// TrimLeadingZeros returns a new buffer holding b without its leading zero
// bytes. An all-zero or empty input yields an empty buffer.
func TrimLeadingZeros(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	out := make([]byte, len(b)-i)
	copy(out, b[i:])
	return out
}

// PadValue left-pads a big-endian buffer of at most 8 bytes with zeros.
func PadValue(b []byte) (Value, error) {
	var v Value
	if len(b) > ValueSize {
		return v, fmt.Errorf("%w: %d bytes", ErrValueTooLong, len(b))
	}
	copy(v[ValueSize-len(b):], b)
	return v, nil
}

// ParseValue parses a base-10 amount.
func ParseValue(s string) (Value, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %q", ErrInvalidValue, s)
	}
	return NewValue(n), nil
}
