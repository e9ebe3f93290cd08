package types

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// BatonValue is the sentinel amount recorded on mint baton outputs.
const BatonValue = 1

// SlpCoinRecord is the token balance carried by one transaction output.
//
// Binary layout:
//
//	[4 tokenIndex LE][var minimal big-endian value][1 type][1 version]
//
// OutputHash, OutputIndex and TokenID belong to the storage key (TokenID
// through the tokenIndex foreign key) and are not part of the encoding.
type SlpCoinRecord struct {
	// OutputHash is the txid in internal byte order.
	OutputHash  chainhash.Hash
	OutputIndex uint32
	TokenID     TokenID
	TokenIndex  uint32
	Value       Value
	Type        CoinType
	Version     uint8
}

// Outpoint returns the output the record describes.
func (r *SlpCoinRecord) Outpoint() *transaction.Outpoint {
	return &transaction.Outpoint{
		Txid:  r.OutputHash,
		Index: r.OutputIndex,
	}
}

// MarshalBinary encodes the record for storage. The amount is written
// minimally encoded; r.Value itself is never modified.
func (r *SlpCoinRecord) MarshalBinary() ([]byte, error) {
	if !r.Type.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCoinType, uint8(r.Type))
	}
	if !validVersion(r.Version) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, r.Version)
	}
	var w recordWriter
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], r.TokenIndex)
	w.writeBytes(idx[:])
	w.writeVarBytes(r.Value.Minimal())
	w.writeByte(byte(r.Type))
	w.writeByte(r.Version)
	return w.bytes(), nil
}

// UnmarshalBinary decodes a stored record, expanding the amount to 8 bytes.
// A missing trailing version byte decodes as version 1. Key-derived fields
// are left untouched.
func (r *SlpCoinRecord) UnmarshalBinary(data []byte) error {
	rd := newRecordReader(data)

	idx, err := rd.readBytes(4)
	if err != nil {
		return fmt.Errorf("token index: %w", err)
	}
	raw, err := rd.readVarBytes()
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	value, err := PadValue(raw)
	if err != nil {
		return err
	}
	t, err := rd.readByte()
	if err != nil {
		return fmt.Errorf("type: %w", err)
	}
	coinType := CoinType(t)
	if !coinType.Valid() {
		return fmt.Errorf("%w: ordinal %d", ErrInvalidCoinType, t)
	}

	version := Version1
	if v, ok := rd.readOptionalByte(); ok {
		if !validVersion(v) {
			return fmt.Errorf("%w: %d", ErrInvalidVersion, v)
		}
		version = v
	}

	r.TokenIndex = binary.LittleEndian.Uint32(idx)
	r.Value = value
	r.Type = coinType
	r.Version = version
	return nil
}

type coinRecordJSON struct {
	Hash       string `json:"hash"`
	Index      uint32 `json:"index"`
	TokenID    string `json:"tokenId"`
	TokenIndex uint32 `json:"tokenIndex"`
	Value      string `json:"value"`
	Type       string `json:"type"`
	Version    uint8  `json:"version"`
}

// MarshalJSON renders the record for lookup answers. The output hash is
// shown big-endian, the way block explorers display txids.
func (r SlpCoinRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(coinRecordJSON{
		Hash:       r.OutputHash.String(),
		Index:      r.OutputIndex,
		TokenID:    r.TokenID.String(),
		TokenIndex: r.TokenIndex,
		Value:      r.Value.String(),
		Type:       r.Type.String(),
		Version:    r.Version,
	})
}

// UnmarshalJSON parses the form produced by MarshalJSON.
func (r *SlpCoinRecord) UnmarshalJSON(data []byte) error {
	var in coinRecordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	hash, err := chainhash.NewHashFromHex(in.Hash)
	if err != nil {
		return fmt.Errorf("output hash: %w", err)
	}
	id, err := TokenIDFromHex(in.TokenID)
	if err != nil {
		return err
	}
	value, err := ParseValue(in.Value)
	if err != nil {
		return err
	}
	coinType, err := ParseCoinType(in.Type)
	if err != nil {
		return err
	}
	if !validVersion(in.Version) {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, in.Version)
	}
	*r = SlpCoinRecord{
		OutputHash:  *hash,
		OutputIndex: in.Index,
		TokenID:     id,
		TokenIndex:  in.TokenIndex,
		Value:       value,
		Type:        coinType,
		Version:     in.Version,
	}
	return nil
}
