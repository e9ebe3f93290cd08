// Package types holds the SLP record types shared by the validator, the
// storage backends and the overlay services, together with their binary
// and JSON encodings.
package types

import (
	"encoding/hex"
	"fmt"
)

// Sizes of the fixed-width record fields.
const (
	TokenIDSize         = 32
	VaultScriptHashSize = 20
	DocumentHashSize    = 32
)

// Supported SLP versions.
const (
	Version1 uint8 = 1
	Version2 uint8 = 2
)

// TokenID identifies a token by the hash of its GENESIS transaction.
type TokenID [TokenIDSize]byte

// TokenIDFromBytes copies a 32-byte slice into a TokenID.
func TokenIDFromBytes(b []byte) (TokenID, error) {
	var id TokenID
	if len(b) != TokenIDSize {
		return id, fmt.Errorf("%w: token id must be %d bytes, got %d", ErrInvalidLength, TokenIDSize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// TokenIDFromHex parses a lowercase or uppercase hex token id.
func TokenIDFromHex(s string) (TokenID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return TokenID{}, fmt.Errorf("token id: %w", err)
	}
	return TokenIDFromBytes(b)
}

// String renders the token id as lowercase hex.
func (id TokenID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether the id is unset.
func (id TokenID) IsZero() bool {
	return id == TokenID{}
}

// CoinType classifies an SlpCoinRecord. The ordinals are persisted.
type CoinType uint8

const (
	CoinTypeGenesis CoinType = iota
	CoinTypeMint
	CoinTypeSend
	CoinTypeBaton
	CoinTypeBurn

	numCoinTypes
)

var coinTypeNames = [numCoinTypes]string{
	CoinTypeGenesis: "GENESIS",
	CoinTypeMint:    "MINT",
	CoinTypeSend:    "SEND",
	CoinTypeBaton:   "BATON",
	CoinTypeBurn:    "BURN",
}

// Valid reports whether t is one of the five known coin types.
func (t CoinType) Valid() bool {
	return t < numCoinTypes
}

func (t CoinType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("CoinType(%d)", uint8(t))
	}
	return coinTypeNames[t]
}

// ParseCoinType maps a type name back to its CoinType.
func ParseCoinType(s string) (CoinType, error) {
	for i, name := range coinTypeNames {
		if name == s {
			return CoinType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCoinType, s)
}

func validVersion(v uint8) bool {
	return v == Version1 || v == Version2
}

// SortOrder orders paginated lookup results.
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SLPQuery is the object form of an ls_slp lookup query.
type SLPQuery struct {
	TokenID   *string    `json:"tokenId,omitempty"`
	Outpoint  *string    `json:"outpoint,omitempty"`
	Coins     *bool      `json:"coins,omitempty"`
	FindAll   *bool      `json:"findAll,omitempty"`
	Limit     *int       `json:"limit,omitempty"`
	Skip      *int       `json:"skip,omitempty"`
	SortOrder *SortOrder `json:"sortOrder,omitempty"`
}
