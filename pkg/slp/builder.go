package slp

import (
	"encoding/binary"
	"fmt"

	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/types"
	"github.com/bsv-blockchain/go-sdk/script"
)

// GenesisParams describes a token to create.
type GenesisParams struct {
	// Version defaults to 1.
	Version      uint8
	Ticker       string
	Name         string
	URI          string
	DocumentHash []byte
	Decimals     uint8
	// BatonIndex is the version 1 mint baton output, or nil for a fixed supply.
	BatonIndex *uint8
	// VaultScriptHash is required for version 2.
	VaultScriptHash []byte
	Quantity        uint64
}

// BuildGenesis returns the OP_RETURN script creating a token.
func BuildGenesis(p GenesisParams) (*script.Script, error) {
	version := p.Version
	if version == 0 {
		version = types.Version1
	}

	var batonOrVault []byte
	switch version {
	case types.Version1:
		baton, err := batonBytes(p.BatonIndex)
		if err != nil {
			return nil, err
		}
		batonOrVault = baton
	case types.Version2:
		batonOrVault = p.VaultScriptHash
	}

	return build(
		[]byte{version},
		[]byte(TypeGenesis),
		[]byte(p.Ticker),
		[]byte(p.Name),
		[]byte(p.URI),
		p.DocumentHash,
		[]byte{p.Decimals},
		batonOrVault,
		amountBytes(p.Quantity),
	)
}

// BuildMint returns a version 1 MINT script. batonIndex nil ends minting.
func BuildMint(tokenID []byte, quantity uint64, batonIndex *uint8) (*script.Script, error) {
	baton, err := batonBytes(batonIndex)
	if err != nil {
		return nil, err
	}
	return build(
		[]byte{types.Version1},
		[]byte(TypeMint),
		tokenID,
		baton,
		amountBytes(quantity),
	)
}

// BuildMintV2 returns a version 2 MINT script minting one quantity per output,
// starting at output 1.
func BuildMintV2(tokenID []byte, quantities ...uint64) (*script.Script, error) {
	pushes := [][]byte{{types.Version2}, []byte(TypeMint), tokenID}
	for _, q := range quantities {
		pushes = append(pushes, amountBytes(q))
	}
	return build(pushes...)
}

// BuildSend returns a SEND script assigning one amount per output.
func BuildSend(tokenID []byte, amounts ...uint64) (*script.Script, error) {
	pushes := [][]byte{{types.Version1}, []byte(TypeSend), tokenID}
	for _, a := range amounts {
		pushes = append(pushes, amountBytes(a))
	}
	return build(pushes...)
}

// BuildBurn returns a BURN script destroying quantity tokens.
func BuildBurn(tokenID []byte, quantity uint64) (*script.Script, error) {
	return build(
		[]byte{types.Version1},
		[]byte(TypeBurn),
		tokenID,
		amountBytes(quantity),
	)
}

func batonBytes(index *uint8) ([]byte, error) {
	if index == nil {
		return nil, nil
	}
	if *index < minBatonIndex {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatonIndex, *index)
	}
	return []byte{*index}, nil
}

func amountBytes(n uint64) []byte {
	b := make([]byte, amountSize)
	binary.BigEndian.PutUint64(b, n)
	return b
}

// build assembles OP_RETURN <lokad> <pushes...> and refuses to return a
// script that does not verify.
func build(pushes ...[]byte) (*script.Script, error) {
	s := &script.Script{}
	if err := s.AppendOpcodes(script.OpRETURN); err != nil {
		return nil, err
	}
	if err := s.AppendPushData(LokadID); err != nil {
		return nil, err
	}
	for _, p := range pushes {
		if err := s.AppendPushData(p); err != nil {
			return nil, err
		}
	}

	parsed, err := Parse(s)
	if err != nil {
		return nil, err
	}
	if !parsed.IsValid() {
		return nil, fmt.Errorf("%w: built %s script does not verify", ErrInvalidScript, parsed.ProtocolType())
	}
	return s, nil
}
