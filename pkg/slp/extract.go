package slp

import (
	"encoding"
	"encoding/json"
	"fmt"

	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/types"
	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/utils"
	"github.com/bsv-blockchain/go-sdk/chainhash"
)

// Record is implemented by *types.TokenRecord and *types.SlpCoinRecord.
type Record interface {
	encoding.BinaryMarshaler
	json.Marshaler
}

// Records are the records derived from one SLP script.
type Records struct {
	// Token is set for GENESIS scripts only.
	Token *types.TokenRecord
	Coins []*types.SlpCoinRecord
}

// All returns the records in order, token metadata first.
func (r *Records) All() []Record {
	out := make([]Record, 0, len(r.Coins)+1)
	if r.Token != nil {
		out = append(out, r.Token)
	}
	for _, c := range r.Coins {
		out = append(out, c)
	}
	return out
}

type extractOptions struct {
	nonCanonical bool
}

// ExtractOption configures Extract.
type ExtractOption func(*extractOptions)

// WithNonCanonicalMarker tells Extract that the SLP output is not the first
// output of its transaction. Both flag-dependent indexes move by one: SEND
// values are assigned from output 0 instead of output 1, and the BURN record
// points at output 1 instead of output 0.
func WithNonCanonicalMarker() ExtractOption {
	return func(o *extractOptions) {
		o.nonCanonical = true
	}
}

// Extract derives the records described by s for the transaction txID, given
// in display byte order. Coin records carry the txid reversed into the
// internal order used by outpoints.
func Extract(s *Script, txID []byte, opts ...ExtractOption) (*Records, error) {
	return s.Extract(txID, opts...)
}

// Extract derives the records described by the script. See Extract.
func (s *Script) Extract(txID []byte, opts ...ExtractOption) (*Records, error) {
	if len(txID) != types.TokenIDSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidTxID, len(txID))
	}
	if s.result.Type == TypeBaton {
		return nil, ErrBatonType
	}
	if !s.result.Valid {
		return nil, ErrInvalidScript
	}

	var o extractOptions
	for _, opt := range opts {
		opt(&o)
	}

	var outputHash chainhash.Hash
	copy(outputHash[:], utils.ReverseBytes(txID))
	x := extractor{
		script:     s,
		outputHash: outputHash,
		version:    s.result.Version,
	}

	switch s.result.Type {
	case TypeGenesis:
		return x.genesis(txID)
	case TypeMint:
		return x.mint()
	case TypeSend:
		base := uint32(1)
		if o.nonCanonical {
			base = 0
		}
		return x.send(base)
	case TypeBurn:
		index := uint32(0)
		if o.nonCanonical {
			index = 1
		}
		return x.burn(index)
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidScript, s.result.Type)
}

type extractor struct {
	script     *Script
	outputHash chainhash.Hash
	version    uint8
}

func (x *extractor) field(i int) []byte {
	b, _ := x.script.fields.Field(i)
	return b
}

func (x *extractor) text(i int) string {
	s, _ := x.script.fields.FieldText(i, EncodingUTF8)
	return s
}

func (x *extractor) coin(tokenID types.TokenID, index uint32, value types.Value, t types.CoinType) *types.SlpCoinRecord {
	return &types.SlpCoinRecord{
		OutputHash:  x.outputHash,
		OutputIndex: index,
		TokenID:     tokenID,
		Value:       value,
		Type:        t,
		Version:     x.version,
	}
}

func (x *extractor) amount(i int) (types.Value, error) {
	v, err := types.PadValue(x.field(i))
	if err != nil {
		return v, fmt.Errorf("%w: field %d: %w", ErrInvalidAmount, i, err)
	}
	return v, nil
}

func (x *extractor) referencedToken() (types.TokenID, error) {
	return types.TokenIDFromBytes(x.field(fieldTokenID))
}

func (x *extractor) genesis(txID []byte) (*Records, error) {
	tokenID, err := types.TokenIDFromBytes(txID)
	if err != nil {
		return nil, err
	}
	token := &types.TokenRecord{
		TokenID:      tokenID,
		Ticker:       x.text(genesisTicker),
		Name:         x.text(genesisName),
		URI:          x.text(genesisURI),
		DocumentHash: utils.BytesToHex(x.field(genesisDocHash)),
		Decimals:     x.field(genesisDecimals)[0],
		Version:      x.version,
	}
	if x.version == types.Version2 {
		token.VaultScriptHash = append([]byte(nil), x.field(genesisBaton)...)
	}

	quantity, err := x.amount(genesisQuantity)
	if err != nil {
		return nil, err
	}
	recs := &Records{
		Token: token,
		Coins: []*types.SlpCoinRecord{x.coin(tokenID, 1, quantity, types.CoinTypeGenesis)},
	}
	if baton, ok := x.script.batonIndex(); ok {
		recs.Coins = append(recs.Coins, x.coin(tokenID, baton, types.NewValue(types.BatonValue), types.CoinTypeBaton))
	}
	return recs, nil
}

func (x *extractor) mint() (*Records, error) {
	tokenID, err := x.referencedToken()
	if err != nil {
		return nil, err
	}
	recs := &Records{}

	if x.version == types.Version2 {
		count := x.script.fields.FieldCount()
		for i := mintV2FirstQuantity; i < count; i++ {
			quantity, err := x.amount(i)
			if err != nil {
				return nil, err
			}
			index := uint32(i - mintV2FirstQuantity + 1)
			recs.Coins = append(recs.Coins, x.coin(tokenID, index, quantity, types.CoinTypeMint))
		}
		return recs, nil
	}

	quantity, err := x.amount(mintV1Quantity)
	if err != nil {
		return nil, err
	}
	recs.Coins = append(recs.Coins, x.coin(tokenID, 1, quantity, types.CoinTypeMint))
	if baton, ok := x.script.batonIndex(); ok {
		recs.Coins = append(recs.Coins, x.coin(tokenID, baton, types.NewValue(types.BatonValue), types.CoinTypeBaton))
	}
	return recs, nil
}

func (x *extractor) send(base uint32) (*Records, error) {
	tokenID, err := x.referencedToken()
	if err != nil {
		return nil, err
	}
	recs := &Records{}
	count := x.script.fields.FieldCount()
	for i := sendFirstValue; i < count; i++ {
		value, err := x.amount(i)
		if err != nil {
			return nil, err
		}
		index := base + uint32(i-sendFirstValue)
		recs.Coins = append(recs.Coins, x.coin(tokenID, index, value, types.CoinTypeSend))
	}
	return recs, nil
}

func (x *extractor) burn(index uint32) (*Records, error) {
	tokenID, err := x.referencedToken()
	if err != nil {
		return nil, err
	}
	quantity, err := x.amount(burnQuantity)
	if err != nil {
		return nil, err
	}
	return &Records{
		Coins: []*types.SlpCoinRecord{x.coin(tokenID, index, quantity, types.CoinTypeBurn)},
	}, nil
}
