package slp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/types"
)

func newMockMongo(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func ns(mt *mtest.T, collection string) string {
	return mt.DB.Name() + "." + collection
}

func tokenDoc(t *testing.T, record *types.TokenRecord, index int64) bson.D {
	t.Helper()
	data, err := record.MarshalBinary()
	require.NoError(t, err)
	return bson.D{
		{Key: "_id", Value: record.TokenID.String()},
		{Key: "tokenIndex", Value: index},
		{Key: "data", Value: data},
	}
}

func coinDoc(t *testing.T, record *types.SlpCoinRecord) bson.D {
	t.Helper()
	data, err := record.MarshalBinary()
	require.NoError(t, err)
	return bson.D{
		{Key: "txid", Value: record.OutputHash.String()},
		{Key: "outputIndex", Value: int64(record.OutputIndex)},
		{Key: "tokenId", Value: record.TokenID.String()},
		{Key: "tokenIndex", Value: int64(record.TokenIndex)},
		{Key: "data", Value: data},
	}
}

func TestMongoStorage_EnsureIndexes(t *testing.T) {
	mt := newMockMongo(t)
	mt.Run("creates indexes", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)
		require.NoError(mt, s.EnsureIndexes(context.Background()))
	})
	mt.Run("reports failure", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11000,
			Message: "index build failed",
		}))
		err := s.EnsureIndexes(context.Background())
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "outpoint index")
	})
}

func TestMongoStorage_TokenIndex(t *testing.T) {
	mt := newMockMongo(t)
	token := testToken(0x01)

	mt.Run("existing", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, tokenIndexesCollection), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: token.TokenID.String()},
			{Key: "tokenIndex", Value: int64(5)},
		}))
		idx, err := s.TokenIndex(context.Background(), token.TokenID)
		require.NoError(mt, err)
		assert.Equal(mt, uint32(5), idx)
	})

	mt.Run("allocates", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt, tokenIndexesCollection), mtest.FirstBatch),
			bson.D{
				{Key: "ok", Value: 1},
				{Key: "value", Value: bson.D{
					{Key: "_id", Value: tokenIndexCounter},
					{Key: "seq", Value: int64(3)},
				}},
			},
			mtest.CreateSuccessResponse(),
		)
		idx, err := s.TokenIndex(context.Background(), token.TokenID)
		require.NoError(mt, err)
		assert.Equal(mt, uint32(2), idx)
	})

	mt.Run("lost allocation race", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt, tokenIndexesCollection), mtest.FirstBatch),
			bson.D{
				{Key: "ok", Value: 1},
				{Key: "value", Value: bson.D{
					{Key: "_id", Value: tokenIndexCounter},
					{Key: "seq", Value: int64(8)},
				}},
			},
			mtest.CreateWriteErrorsResponse(mtest.WriteError{
				Index:   0,
				Code:    11000,
				Message: "duplicate key error",
			}),
			mtest.CreateCursorResponse(0, ns(mt, tokenIndexesCollection), mtest.FirstBatch, bson.D{
				{Key: "_id", Value: token.TokenID.String()},
				{Key: "tokenIndex", Value: int64(6)},
			}),
		)
		idx, err := s.TokenIndex(context.Background(), token.TokenID)
		require.NoError(mt, err)
		assert.Equal(mt, uint32(6), idx)
	})
}

func TestMongoStorage_StoreTokenRecord(t *testing.T) {
	mt := newMockMongo(t)
	mt.Run("assigns index", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		token := testToken(0x02)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt, tokenIndexesCollection), mtest.FirstBatch, bson.D{
				{Key: "_id", Value: token.TokenID.String()},
				{Key: "tokenIndex", Value: int64(4)},
			}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)
		require.NoError(mt, s.StoreTokenRecord(context.Background(), token))
		assert.Equal(mt, uint32(4), token.TokenIndex)
	})

	mt.Run("invalid record", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		token := testToken(0x03)
		token.Version = 7
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, tokenIndexesCollection), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: token.TokenID.String()},
			{Key: "tokenIndex", Value: int64(0)},
		}))
		err := s.StoreTokenRecord(context.Background(), token)
		require.ErrorIs(mt, err, types.ErrInvalidVersion)
	})
}

func TestMongoStorage_FindTokenRecord(t *testing.T) {
	mt := newMockMongo(t)
	token := testToken(0x04)

	mt.Run("found", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, tokensCollection), mtest.FirstBatch, tokenDoc(mt.T, token, 9)))

		found, err := s.FindTokenRecord(context.Background(), token.TokenID)
		require.NoError(mt, err)
		assert.Equal(mt, uint32(9), found.TokenIndex)
		assert.Equal(mt, token.Ticker, found.Ticker)
		assert.Equal(mt, token.TokenID, found.TokenID)
	})

	mt.Run("missing", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, tokensCollection), mtest.FirstBatch))

		_, err := s.FindTokenRecord(context.Background(), token.TokenID)
		require.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestMongoStorage_CoinRecords(t *testing.T) {
	mt := newMockMongo(t)
	token := testToken(0x05)
	coin := testCoin(token, 0x30, 2, 1234)
	coin.TokenIndex = 1

	mt.Run("store", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt, tokenIndexesCollection), mtest.FirstBatch, bson.D{
				{Key: "_id", Value: token.TokenID.String()},
				{Key: "tokenIndex", Value: int64(1)},
			}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)
		stored := testCoin(token, 0x30, 2, 1234)
		require.NoError(mt, s.StoreCoinRecord(context.Background(), stored))
		assert.Equal(mt, uint32(1), stored.TokenIndex)
	})

	mt.Run("find", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, coinsCollection), mtest.FirstBatch, coinDoc(mt.T, coin)))

		found, err := s.FindCoinRecord(context.Background(), coin.Outpoint())
		require.NoError(mt, err)
		assert.Equal(mt, coin, found)
	})

	mt.Run("find missing", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, coinsCollection), mtest.FirstBatch))

		_, err := s.FindCoinRecord(context.Background(), coin.Outpoint())
		require.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("delete", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		require.NoError(mt, s.DeleteCoinRecord(context.Background(), coin.Outpoint()))
	})

	mt.Run("by token", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		second := testCoin(token, 0x31, 0, 1)
		second.TokenIndex = 1
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, coinsCollection), mtest.FirstBatch,
			coinDoc(mt.T, coin), coinDoc(mt.T, second)))

		coins, err := s.FindCoinsByToken(context.Background(), token.TokenID, ptr(10), ptr(0))
		require.NoError(mt, err)
		require.Len(mt, coins, 2)
		assert.Equal(mt, coin, coins[0])
		assert.Equal(mt, second, coins[1])
	})

	mt.Run("corrupt document", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		doc := coinDoc(mt.T, coin)
		doc[4] = bson.E{Key: "data", Value: []byte{0x01}}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, coinsCollection), mtest.FirstBatch, doc))

		_, err := s.FindCoinRecord(context.Background(), coin.Outpoint())
		require.ErrorIs(mt, err, types.ErrTruncated)
		require.ErrorIs(mt, err, ErrCorruptRecord)
	})

	mt.Run("by token skips corrupt document", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		corrupt := coinDoc(mt.T, testCoin(token, 0x32, 0, 1))
		corrupt[4] = bson.E{Key: "data", Value: []byte{0x01, 0x02}}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, coinsCollection), mtest.FirstBatch,
			coinDoc(mt.T, coin), corrupt))

		coins, err := s.FindCoinsByToken(context.Background(), token.TokenID, nil, nil)
		require.NoError(mt, err)
		require.Len(mt, coins, 1)
		assert.Equal(mt, coin, coins[0])
	})
}

func TestMongoStorage_FindAllTokens(t *testing.T) {
	mt := newMockMongo(t)
	mt.Run("decodes all", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		a, b := testToken(0x06), testToken(0x07)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, tokensCollection), mtest.FirstBatch,
			tokenDoc(mt.T, b, 1), tokenDoc(mt.T, a, 0)))

		desc := types.SortOrderDesc
		tokens, err := s.FindAllTokens(context.Background(), nil, nil, &desc)
		require.NoError(mt, err)
		require.Len(mt, tokens, 2)
		assert.Equal(mt, b.TokenID, tokens[0].TokenID)
		assert.Equal(mt, uint32(0), tokens[1].TokenIndex)
	})

	mt.Run("skips corrupt document", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		good, bad := testToken(0x08), testToken(0x09)
		corrupt := tokenDoc(mt.T, bad, 1)
		corrupt[2] = bson.E{Key: "data", Value: []byte{0x01, 0x02}}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, tokensCollection), mtest.FirstBatch,
			corrupt, tokenDoc(mt.T, good, 0)))

		tokens, err := s.FindAllTokens(context.Background(), nil, nil, nil)
		require.NoError(mt, err)
		require.Len(mt, tokens, 1)
		assert.Equal(mt, good.TokenID, tokens[0].TokenID)
	})

	mt.Run("query error", func(mt *mtest.T) {
		s := NewMongoStorage(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad query"}))
		_, err := s.FindAllTokens(context.Background(), nil, nil, nil)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to find SLP tokens")
	})
}
