package types

import "errors"

// Decode and construction errors for stored records.
var (
	ErrTruncated         = errors.New("record truncated")
	ErrInvalidVersion    = errors.New("invalid record version")
	ErrInvalidCoinType   = errors.New("invalid coin type")
	ErrValueTooLong      = errors.New("value exceeds 8 bytes")
	ErrInvalidValue      = errors.New("invalid value")
	ErrInvalidLength     = errors.New("invalid field length")
	ErrUppercaseHex      = errors.New("hex text must be lowercase")
	ErrVaultHashMismatch = errors.New("vault script hash must be present iff version is 2")
)
