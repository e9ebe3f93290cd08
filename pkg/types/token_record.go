package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/utils"
)

// MaxDecimals is the largest decimals value a token may declare.
const MaxDecimals = 9

// TokenRecord is the metadata a GENESIS transaction declares for a token.
//
// Binary layout:
//
//	[32 tokenId][var ticker][var name][var uri][var documentHash hex]
//	[1 decimals][1 version][20 vaultScriptHash iff version 2]
//
// TokenIndex is assigned by storage and is not part of the encoding.
type TokenRecord struct {
	TokenID         TokenID
	TokenIndex      uint32
	Ticker          string
	Name            string
	URI             string
	DocumentHash    string
	Decimals        uint8
	Version         uint8
	VaultScriptHash []byte
}

// Validate checks the record invariants that encoding relies on.
func (r *TokenRecord) Validate() error {
	if !validVersion(r.Version) {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, r.Version)
	}
	hasVault := len(r.VaultScriptHash) > 0
	if hasVault != (r.Version == Version2) {
		return ErrVaultHashMismatch
	}
	if hasVault && len(r.VaultScriptHash) != VaultScriptHashSize {
		return fmt.Errorf("%w: vault script hash must be %d bytes, got %d",
			ErrInvalidLength, VaultScriptHashSize, len(r.VaultScriptHash))
	}
	if r.Decimals > MaxDecimals {
		return fmt.Errorf("%w: decimals %d exceeds %d", ErrInvalidLength, r.Decimals, MaxDecimals)
	}
	if r.DocumentHash != "" {
		if r.DocumentHash != strings.ToLower(r.DocumentHash) {
			return fmt.Errorf("%w: document hash %q", ErrUppercaseHex, r.DocumentHash)
		}
		b, err := utils.HexToBytes(r.DocumentHash)
		if err != nil {
			return fmt.Errorf("document hash: %w", err)
		}
		if len(b) != DocumentHashSize {
			return fmt.Errorf("%w: document hash must be %d bytes, got %d", ErrInvalidLength, DocumentHashSize, len(b))
		}
	}
	return nil
}

// MarshalBinary encodes the record for storage.
func (r *TokenRecord) MarshalBinary() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var w recordWriter
	w.writeBytes(r.TokenID[:])
	w.writeVarString(r.Ticker)
	w.writeVarString(r.Name)
	w.writeVarString(r.URI)
	w.writeVarString(r.DocumentHash)
	w.writeByte(r.Decimals)
	w.writeByte(r.Version)
	if r.Version == Version2 {
		w.writeBytes(r.VaultScriptHash)
	}
	return w.bytes(), nil
}

// UnmarshalBinary decodes a stored record. Records written before the
// version byte existed decode as version 1. TokenIndex is left untouched.
func (r *TokenRecord) UnmarshalBinary(data []byte) error {
	rd := newRecordReader(data)

	id, err := rd.readBytes(TokenIDSize)
	if err != nil {
		return fmt.Errorf("token id: %w", err)
	}
	ticker, err := rd.readVarString()
	if err != nil {
		return fmt.Errorf("ticker: %w", err)
	}
	name, err := rd.readVarString()
	if err != nil {
		return fmt.Errorf("name: %w", err)
	}
	uri, err := rd.readVarString()
	if err != nil {
		return fmt.Errorf("uri: %w", err)
	}
	docHash, err := rd.readVarString()
	if err != nil {
		return fmt.Errorf("document hash: %w", err)
	}
	decimals, err := rd.readByte()
	if err != nil {
		return fmt.Errorf("decimals: %w", err)
	}

	version := Version1
	if v, ok := rd.readOptionalByte(); ok {
		if !validVersion(v) {
			return fmt.Errorf("%w: %d", ErrInvalidVersion, v)
		}
		version = v
	}

	var vault []byte
	if version == Version2 {
		vault, err = rd.readBytes(VaultScriptHashSize)
		if err != nil {
			return fmt.Errorf("vault script hash: %w", err)
		}
	}

	copy(r.TokenID[:], id)
	r.Ticker = ticker
	r.Name = name
	r.URI = uri
	r.DocumentHash = strings.ToLower(docHash)
	r.Decimals = decimals
	r.Version = version
	r.VaultScriptHash = vault
	return nil
}

type tokenRecordJSON struct {
	TokenID         string `json:"tokenId"`
	TokenIndex      uint32 `json:"tokenIndex"`
	Ticker          string `json:"ticker"`
	Name            string `json:"name"`
	URI             string `json:"uri"`
	DocumentHash    string `json:"documentHash,omitempty"`
	Decimals        uint8  `json:"decimals"`
	Version         uint8  `json:"version"`
	VaultScriptHash string `json:"vaultScriptHash,omitempty"`
}

// MarshalJSON renders the record for lookup answers.
func (r TokenRecord) MarshalJSON() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := tokenRecordJSON{
		TokenID:      r.TokenID.String(),
		TokenIndex:   r.TokenIndex,
		Ticker:       r.Ticker,
		Name:         r.Name,
		URI:          r.URI,
		DocumentHash: r.DocumentHash,
		Decimals:     r.Decimals,
		Version:      r.Version,
	}
	if len(r.VaultScriptHash) > 0 {
		out.VaultScriptHash = hex.EncodeToString(r.VaultScriptHash)
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the form produced by MarshalJSON.
func (r *TokenRecord) UnmarshalJSON(data []byte) error {
	var in tokenRecordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	id, err := TokenIDFromHex(in.TokenID)
	if err != nil {
		return err
	}
	var vault []byte
	if in.VaultScriptHash != "" {
		vault, err = utils.HexToBytes(in.VaultScriptHash)
		if err != nil {
			return fmt.Errorf("vault script hash: %w", err)
		}
	}
	rec := TokenRecord{
		TokenID:         id,
		TokenIndex:      in.TokenIndex,
		Ticker:          in.Ticker,
		Name:            in.Name,
		URI:             in.URI,
		DocumentHash:    strings.ToLower(in.DocumentHash),
		Decimals:        in.Decimals,
		Version:         in.Version,
		VaultScriptHash: vault,
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	*r = rec
	return nil
}
