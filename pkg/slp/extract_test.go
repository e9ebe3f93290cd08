package slp

import (
	"encoding/hex"
	"encoding/json"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/types"
	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/utils"
)

const testTxIDHex = "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"

func testTxID(t *testing.T) []byte {
	t.Helper()
	b, err := hex.DecodeString(testTxIDHex)
	require.NoError(t, err)
	return b
}

func parsed(t *testing.T, f *Fields) *Script {
	t.Helper()
	return NewScript(f)
}

func assertCoin(t *testing.T, c *types.SlpCoinRecord, index uint32, value uint64, typ types.CoinType) {
	t.Helper()
	assert.Equal(t, index, c.OutputIndex)
	assert.Equal(t, value, c.Value.Uint64())
	assert.Equal(t, typ, c.Type)
}

func TestExtract_Genesis(t *testing.T) {
	txID := testTxID(t)
	s := parsed(t, slpFields(1, TypeGenesis, genesisPushes(8, nil)...))

	recs, err := Extract(s, txID)
	require.NoError(t, err)

	require.NotNil(t, recs.Token)
	assert.Equal(t, testTxIDHex, recs.Token.TokenID.String())
	assert.Equal(t, "TEST", recs.Token.Ticker)
	assert.Equal(t, "Test Token", recs.Token.Name)
	assert.Equal(t, "https://example.com", recs.Token.URI)
	assert.Empty(t, recs.Token.DocumentHash)
	assert.Equal(t, uint8(8), recs.Token.Decimals)
	assert.Equal(t, uint8(1), recs.Token.Version)
	assert.Nil(t, recs.Token.VaultScriptHash)

	require.Len(t, recs.Coins, 1)
	coin := recs.Coins[0]
	assertCoin(t, coin, 1, 1000, types.CoinTypeGenesis)
	assert.Equal(t, recs.Token.TokenID, coin.TokenID)
	assert.Equal(t, utils.ReverseBytes(txID), coin.OutputHash[:])
	assert.Equal(t, testTxIDHex, coin.OutputHash.String())
	assert.Equal(t, uint8(1), coin.Version)
}

func TestExtract_GenesisWithBaton(t *testing.T) {
	s := parsed(t, slpFields(1, TypeGenesis, genesisPushes(0, []byte{2})...))

	recs, err := s.Extract(testTxID(t))
	require.NoError(t, err)
	require.Len(t, recs.Coins, 2)
	assertCoin(t, recs.Coins[0], 1, 1000, types.CoinTypeGenesis)
	assertCoin(t, recs.Coins[1], 2, types.BatonValue, types.CoinTypeBaton)
}

func TestExtract_GenesisV2(t *testing.T) {
	pushes := genesisPushes(2, testVaultHash)
	pushes[3] = testDocHash
	s := parsed(t, slpFields(2, TypeGenesis, pushes...))

	recs, err := s.Extract(testTxID(t))
	require.NoError(t, err)
	assert.Equal(t, uint8(2), recs.Token.Version)
	assert.Equal(t, testVaultHash, recs.Token.VaultScriptHash)
	assert.Equal(t, hex.EncodeToString(testDocHash), recs.Token.DocumentHash)
	require.Len(t, recs.Coins, 1)
	assert.Equal(t, uint8(2), recs.Coins[0].Version)
}

func TestExtract_MintV1(t *testing.T) {
	s := parsed(t, slpFields(1, TypeMint, testTokenID, []byte{4}, amountBytes(500)))

	recs, err := s.Extract(testTxID(t))
	require.NoError(t, err)
	assert.Nil(t, recs.Token)
	require.Len(t, recs.Coins, 2)
	assertCoin(t, recs.Coins[0], 1, 500, types.CoinTypeMint)
	assertCoin(t, recs.Coins[1], 4, types.BatonValue, types.CoinTypeBaton)
	assert.Equal(t, hex.EncodeToString(testTokenID), recs.Coins[0].TokenID.String())
}

func TestExtract_MintV2(t *testing.T) {
	s := parsed(t, slpFields(2, TypeMint, testTokenID, amountBytes(5), amountBytes(6)))

	recs, err := s.Extract(testTxID(t))
	require.NoError(t, err)
	require.Len(t, recs.Coins, 2)
	assertCoin(t, recs.Coins[0], 1, 5, types.CoinTypeMint)
	assertCoin(t, recs.Coins[1], 2, 6, types.CoinTypeMint)
}

func TestExtract_Send(t *testing.T) {
	s := parsed(t, slpFields(1, TypeSend, testTokenID, amountBytes(10), amountBytes(0), amountBytes(30)))

	recs, err := s.Extract(testTxID(t))
	require.NoError(t, err)
	require.Len(t, recs.Coins, 3)
	for i, want := range []uint64{10, 0, 30} {
		assertCoin(t, recs.Coins[i], uint32(i+1), want, types.CoinTypeSend)
		assert.Equal(t, recs.Coins[0].TokenID, recs.Coins[i].TokenID)
	}
}

func TestExtract_SendNonCanonical(t *testing.T) {
	s := parsed(t, slpFields(1, TypeSend, testTokenID, amountBytes(10), amountBytes(20)))

	recs, err := s.Extract(testTxID(t), WithNonCanonicalMarker())
	require.NoError(t, err)
	require.Len(t, recs.Coins, 2)
	assertCoin(t, recs.Coins[0], 0, 10, types.CoinTypeSend)
	assertCoin(t, recs.Coins[1], 1, 20, types.CoinTypeSend)
}

func TestExtract_Burn(t *testing.T) {
	s := parsed(t, slpFields(1, TypeBurn, testTokenID, amountBytes(77)))

	recs, err := s.Extract(testTxID(t))
	require.NoError(t, err)
	require.Len(t, recs.Coins, 1)
	assertCoin(t, recs.Coins[0], 0, 77, types.CoinTypeBurn)
}

func TestExtract_BurnNonCanonical(t *testing.T) {
	s := parsed(t, slpFields(1, TypeBurn, testTokenID, amountBytes(77)))

	recs, err := s.Extract(testTxID(t), WithNonCanonicalMarker())
	require.NoError(t, err)
	require.Len(t, recs.Coins, 1)
	assertCoin(t, recs.Coins[0], 1, 77, types.CoinTypeBurn)
}

func TestExtract_Errors(t *testing.T) {
	valid := parsed(t, slpFields(1, TypeSend, testTokenID, amountBytes(1)))
	baton := parsed(t, slpFields(1, TypeBaton, testTokenID, amountBytes(1)))
	invalid := parsed(t, slpFields(1, TypeSend, testTokenID))

	_, err := valid.Extract(testTxID(t)[:31])
	require.ErrorIs(t, err, ErrInvalidTxID)

	_, err = baton.Extract(nil)
	require.ErrorIs(t, err, ErrInvalidTxID)

	_, err = baton.Extract(testTxID(t))
	require.ErrorIs(t, err, ErrBatonType)

	_, err = invalid.Extract(testTxID(t))
	require.ErrorIs(t, err, ErrInvalidScript)

	notSLP, err := ParseBytes([]byte{0x51})
	require.NoError(t, err)
	_, err = notSLP.Extract(testTxID(t))
	require.ErrorIs(t, err, ErrInvalidScript)
}

func TestRecords_All(t *testing.T) {
	s := parsed(t, slpFields(1, TypeGenesis, genesisPushes(8, []byte{2})...))
	recs, err := s.Extract(testTxID(t))
	require.NoError(t, err)

	all := recs.All()
	require.Len(t, all, 3)
	assert.Same(t, recs.Token, all[0])
	assert.Same(t, recs.Coins[0], all[1])
	assert.Same(t, recs.Coins[1], all[2])

	for _, r := range all {
		b, err := r.MarshalBinary()
		require.NoError(t, err)
		assert.NotEmpty(t, b)

		j, err := json.Marshal(r)
		require.NoError(t, err)
		assert.Contains(t, string(j), testTxIDHex)
	}

	send := &Records{Coins: recs.Coins[:1]}
	assert.Len(t, send.All(), 1)
}

func TestExtract_CoinRoundTrip(t *testing.T) {
	s := parsed(t, slpFields(1, TypeSend, testTokenID, amountBytes(123456789)))
	recs, err := s.Extract(testTxID(t))
	require.NoError(t, err)
	coin := recs.Coins[0]

	b, err := coin.MarshalBinary()
	require.NoError(t, err)

	decoded := &types.SlpCoinRecord{
		OutputHash:  coin.OutputHash,
		OutputIndex: coin.OutputIndex,
		TokenID:     coin.TokenID,
	}
	require.NoError(t, decoded.UnmarshalBinary(b))
	assert.Equal(t, coin, decoded)
}

func TestExtract_GenesisInvalidUTF8RoundTrip(t *testing.T) {
	pushes := genesisPushes(2, nil)
	pushes[0] = []byte{0xff, 0xfe}
	pushes[1] = []byte("name \xc3")
	s := parsed(t, slpFields(1, TypeGenesis, pushes...))
	require.True(t, s.IsValid())

	recs, err := s.Extract(testTxID(t))
	require.NoError(t, err)
	token := recs.Token
	assert.True(t, utf8.ValidString(token.Ticker))
	assert.True(t, utf8.ValidString(token.Name))
	assert.Equal(t, "\uFFFD", token.Ticker)
	assert.Equal(t, "name \uFFFD", token.Name)

	b, err := token.MarshalBinary()
	require.NoError(t, err)
	fromBinary := &types.TokenRecord{}
	require.NoError(t, fromBinary.UnmarshalBinary(b))
	assert.Equal(t, token, fromBinary)

	raw, err := json.Marshal(token)
	require.NoError(t, err)
	fromJSON := &types.TokenRecord{}
	require.NoError(t, json.Unmarshal(raw, fromJSON))
	assert.Equal(t, token, fromJSON)
}
