package utils

import (
	"encoding/hex"
	"strings"

	"github.com/bsv-blockchain/go-sdk/chainhash"
)

// UTFBytesToString decodes UTF-8 bytes to a string. Each run of invalid
// bytes becomes a single U+FFFD, so the result is always valid UTF-8.
func UTFBytesToString(data []byte) string {
	return strings.ToValidUTF8(string(data), "\uFFFD")
}

// BytesToHex converts bytes to lowercase hex string
func BytesToHex(data []byte) string {
	return hex.EncodeToString(data)
}

// HexToBytes converts hex string to bytes
func HexToBytes(hexStr string) ([]byte, error) {
	return hex.DecodeString(hexStr)
}

// ReverseBytes returns a reversed copy of data. Transaction ids are shown
// big-endian but stored little-endian, so this converts between the two.
func ReverseBytes(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[len(data)-1-i] = b
	}
	return out
}

// TxIDBytes returns the display (big-endian) bytes of a transaction hash.
func TxIDBytes(h *chainhash.Hash) []byte {
	return ReverseBytes(h[:])
}
