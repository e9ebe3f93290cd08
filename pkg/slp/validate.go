package slp

import (
	"bytes"

	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/types"
	"github.com/bsv-blockchain/go-sdk/script"
)

// Result is the outcome of Verify. Type holds the tag in field 3 whenever
// the marker and LOKAD id match, even if the script is otherwise invalid.
// Version is set only when field 2 holds a supported version.
type Result struct {
	Valid   bool
	Type    string
	Version uint8
}

// Verify decides whether the fields form a structurally valid SLP script.
// It is pure and holds no state between calls.
func Verify(f FieldAccessor) Result {
	var res Result
	if f == nil || !f.IsMarker() {
		return res
	}
	lokad, ok := f.Field(fieldLokad)
	if !ok || !bytes.Equal(lokad, LokadID) {
		return res
	}
	if tag, ok := f.FieldText(fieldType, EncodingASCII); ok {
		res.Type = tag
	}

	v, ok := f.Field(fieldVersion)
	if !ok || len(v) != 1 || (v[0] != types.Version1 && v[0] != types.Version2) {
		return res
	}
	res.Version = v[0]

	switch res.Type {
	case TypeGenesis:
		res.Valid = verifyGenesis(f, res.Version)
	case TypeMint:
		res.Valid = verifyMint(f, res.Version)
	case TypeSend:
		res.Valid = verifySend(f)
	case TypeBurn:
		res.Valid = verifyBurn(f)
	}
	return res
}

func verifyGenesis(f FieldAccessor, version uint8) bool {
	if f.FieldCount() != genesisFields {
		return false
	}
	for _, i := range []int{genesisTicker, genesisName, genesisURI} {
		if _, ok := f.Field(i); !ok {
			return false
		}
	}
	doc, ok := f.Field(genesisDocHash)
	if !ok || (len(doc) != 0 && len(doc) != types.DocumentHashSize) {
		return false
	}
	decimals, ok := f.Field(genesisDecimals)
	if !ok || len(decimals) != 1 || decimals[0] > types.MaxDecimals {
		return false
	}
	if version == types.Version2 {
		if !hasLen(f, genesisBaton, types.VaultScriptHashSize) {
			return false
		}
	} else if !validBaton(f, genesisBaton) {
		return false
	}
	return hasLen(f, genesisQuantity, amountSize)
}

func verifyMint(f FieldAccessor, version uint8) bool {
	if version == types.Version2 {
		if f.FieldCount() < mintV2MinFields || !hasLen(f, fieldTokenID, types.TokenIDSize) {
			return false
		}
		return allAmounts(f, mintV2FirstQuantity)
	}
	return f.FieldCount() == mintV1Fields &&
		hasLen(f, fieldTokenID, types.TokenIDSize) &&
		validBaton(f, mintV1Baton) &&
		hasLen(f, mintV1Quantity, amountSize)
}

func verifySend(f FieldAccessor) bool {
	return f.FieldCount() >= sendMinFields &&
		hasLen(f, fieldTokenID, types.TokenIDSize) &&
		allAmounts(f, sendFirstValue)
}

func verifyBurn(f FieldAccessor) bool {
	return f.FieldCount() == burnFields &&
		hasLen(f, fieldTokenID, types.TokenIDSize) &&
		hasLen(f, burnQuantity, amountSize)
}

func hasLen(f FieldAccessor, i, n int) bool {
	b, ok := f.Field(i)
	return ok && len(b) == n
}

// validBaton accepts an empty push or a single byte naming output 2 or later.
func validBaton(f FieldAccessor, i int) bool {
	b, ok := f.Field(i)
	if !ok {
		return false
	}
	switch len(b) {
	case 0:
		return true
	case 1:
		return b[0] >= minBatonIndex
	default:
		return false
	}
}

func allAmounts(f FieldAccessor, from int) bool {
	for i := from; i < f.FieldCount(); i++ {
		if !hasLen(f, i, amountSize) {
			return false
		}
	}
	return true
}

// Script is a parsed locking script together with its verification result.
// It is immutable, so the result is computed once and may be shared between
// goroutines. Parsing new bytes yields a new Script.
type Script struct {
	fields FieldAccessor
	result Result
}

// NewScript verifies f and wraps it.
func NewScript(f FieldAccessor) *Script {
	return &Script{fields: f, result: Verify(f)}
}

// Parse decodes and verifies a locking script.
func Parse(s *script.Script) (*Script, error) {
	f, err := ParseFields(s)
	if err != nil {
		return nil, err
	}
	return NewScript(f), nil
}

// ParseBytes decodes and verifies raw locking script bytes.
func ParseBytes(b []byte) (*Script, error) {
	return Parse(script.NewFromBytes(b))
}

// Fields returns the underlying field accessor.
func (s *Script) Fields() FieldAccessor {
	return s.fields
}

// Result returns the verification result.
func (s *Script) Result() Result {
	return s.result
}

// IsValid reports whether the script is a structurally valid SLP script.
func (s *Script) IsValid() bool {
	return s.result.Valid
}

// ProtocolType returns the type tag, or "" when the script is not SLP.
func (s *Script) ProtocolType() string {
	return s.result.Type
}

// Version returns the SLP version, or 0 when field 2 is unsupported.
func (s *Script) Version() uint8 {
	return s.result.Version
}

// TokenID returns the token id referenced by a MINT, SEND or BURN script.
func (s *Script) TokenID() ([]byte, error) {
	if !s.result.Valid {
		return nil, ErrInvalidScript
	}
	if s.result.Type == TypeGenesis {
		return nil, ErrGenesisHasNoTokenID
	}
	b, _ := s.fields.Field(fieldTokenID)
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// batonIndex returns the mint baton output declared by a version 1 GENESIS
// or MINT script.
func (s *Script) batonIndex() (uint32, bool) {
	if s.result.Version != types.Version1 {
		return 0, false
	}
	var pos int
	switch s.result.Type {
	case TypeGenesis:
		pos = genesisBaton
	case TypeMint:
		pos = mintV1Baton
	default:
		return 0, false
	}
	b, ok := s.fields.Field(pos)
	if !ok || len(b) != 1 {
		return 0, false
	}
	return uint32(b[0]), true
}
