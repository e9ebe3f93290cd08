package slp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/log"
	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/types"
)

// Collection names used by MongoStorage.
const (
	tokensCollection       = "slpTokens"
	coinsCollection        = "slpCoins"
	tokenIndexesCollection = "slpTokenIndexes"
	countersCollection     = "slpCounters"

	tokenIndexCounter = "tokenIndex"
)

type tokenDocument struct {
	TokenID    string    `bson:"_id"`
	TokenIndex int64     `bson:"tokenIndex"`
	Data       []byte    `bson:"data"`
	CreatedAt  time.Time `bson:"createdAt"`
}

type coinDocument struct {
	Txid        string    `bson:"txid"`
	OutputIndex int64     `bson:"outputIndex"`
	TokenID     string    `bson:"tokenId"`
	TokenIndex  int64     `bson:"tokenIndex"`
	Data        []byte    `bson:"data"`
	CreatedAt   time.Time `bson:"createdAt"`
}

type tokenIndexDocument struct {
	TokenID    string `bson:"_id"`
	TokenIndex int64  `bson:"tokenIndex"`
}

type counterDocument struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// MongoStorage implements StorageInterface on MongoDB. Every document keeps
// the binary record encoding in its data field next to the key fields it is
// queried by.
type MongoStorage struct {
	db           *mongo.Database
	tokens       *mongo.Collection
	coins        *mongo.Collection
	tokenIndexes *mongo.Collection
	counters     *mongo.Collection
}

var _ StorageInterface = (*MongoStorage)(nil)

// NewMongoStorage constructs a new MongoStorage instance with the provided MongoDB database.
//
// Parameters:
//   - db: A connected MongoDB database instance
//
// Returns:
//   - *MongoStorage: A new MongoStorage instance
func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{
		db:           db,
		tokens:       db.Collection(tokensCollection),
		coins:        db.Collection(coinsCollection),
		tokenIndexes: db.Collection(tokenIndexesCollection),
		counters:     db.Collection(countersCollection),
	}
}

// EnsureIndexes creates the indexes the queries rely on. It should be called
// once during application initialization.
//
// Returns:
//   - error: An error if index creation fails, nil otherwise
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coins.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "txid", Value: 1},
			{Key: "outputIndex", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create outpoint index for SLP coins: %w", err)
	}

	_, err = s.coins.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tokenId", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create token index for SLP coins: %w", err)
	}

	_, err = s.tokens.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tokenIndex", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create index for SLP tokens: %w", err)
	}

	return nil
}

// TokenIndex returns the sequence number of a token, allocating the next one
// from an atomic counter the first time the token is seen. Concurrent
// allocations for the same token settle on the first inserted mapping.
//
// Parameters:
//   - ctx: Context for the database operation
//   - tokenID: The token to resolve
//
// Returns:
//   - uint32: The token index
//   - error: An error if the lookup or allocation fails
func (s *MongoStorage) TokenIndex(ctx context.Context, tokenID types.TokenID) (uint32, error) {
	idx, err := s.findTokenIndex(ctx, tokenID)
	if err == nil {
		return idx, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, err
	}

	var counter counterDocument
	err = s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": tokenIndexCounter},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate token index: %w", err)
	}

	next := counter.Seq - 1
	_, err = s.tokenIndexes.InsertOne(ctx, tokenIndexDocument{
		TokenID:    tokenID.String(),
		TokenIndex: next,
	})
	if mongo.IsDuplicateKeyError(err) {
		return s.findTokenIndex(ctx, tokenID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to store token index: %w", err)
	}
	return uint32(next), nil
}

func (s *MongoStorage) findTokenIndex(ctx context.Context, tokenID types.TokenID) (uint32, error) {
	var doc tokenIndexDocument
	err := s.tokenIndexes.FindOne(ctx, bson.M{"_id": tokenID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("%w: token index of %s", ErrNotFound, tokenID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find token index: %w", err)
	}
	return uint32(doc.TokenIndex), nil
}

// StoreTokenRecord stores token metadata, replacing any previous version.
//
// Parameters:
//   - ctx: Context for the database operation
//   - record: The token record; its TokenIndex is assigned here
//
// Returns:
//   - error: An error if the storage operation fails, nil otherwise
func (s *MongoStorage) StoreTokenRecord(ctx context.Context, record *types.TokenRecord) error {
	idx, err := s.TokenIndex(ctx, record.TokenID)
	if err != nil {
		return err
	}
	record.TokenIndex = idx

	data, err := record.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode token record: %w", err)
	}

	doc := tokenDocument{
		TokenID:    record.TokenID.String(),
		TokenIndex: int64(idx),
		Data:       data,
		CreatedAt:  time.Now(),
	}
	_, err = s.tokens.ReplaceOne(ctx, bson.M{"_id": doc.TokenID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store token record: %w", err)
	}
	return nil
}

// FindTokenRecord loads token metadata by token id.
func (s *MongoStorage) FindTokenRecord(ctx context.Context, tokenID types.TokenID) (*types.TokenRecord, error) {
	var doc tokenDocument
	err := s.tokens.FindOne(ctx, bson.M{"_id": tokenID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: token %s", ErrNotFound, tokenID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find token record: %w", err)
	}
	return decodeTokenDocument(&doc)
}

func decodeTokenDocument(doc *tokenDocument) (*types.TokenRecord, error) {
	record := &types.TokenRecord{}
	if err := record.UnmarshalBinary(doc.Data); err != nil {
		return nil, fmt.Errorf("%w: token %s: %w", ErrCorruptRecord, doc.TokenID, err)
	}
	record.TokenIndex = uint32(doc.TokenIndex)
	return record, nil
}

// DeleteTokenRecord removes token metadata. The token keeps its index.
func (s *MongoStorage) DeleteTokenRecord(ctx context.Context, tokenID types.TokenID) error {
	_, err := s.tokens.DeleteOne(ctx, bson.M{"_id": tokenID.String()})
	if err != nil {
		return fmt.Errorf("failed to delete token record: %w", err)
	}
	return nil
}

// StoreCoinRecord stores a coin record under its outpoint.
//
// Parameters:
//   - ctx: Context for the database operation
//   - record: The coin record; its TokenIndex is assigned here
//
// Returns:
//   - error: An error if the storage operation fails, nil otherwise
func (s *MongoStorage) StoreCoinRecord(ctx context.Context, record *types.SlpCoinRecord) error {
	idx, err := s.TokenIndex(ctx, record.TokenID)
	if err != nil {
		return err
	}
	record.TokenIndex = idx

	data, err := record.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode coin record: %w", err)
	}

	doc := coinDocument{
		Txid:        record.OutputHash.String(),
		OutputIndex: int64(record.OutputIndex),
		TokenID:     record.TokenID.String(),
		TokenIndex:  int64(idx),
		Data:        data,
		CreatedAt:   time.Now(),
	}
	filter := bson.M{"txid": doc.Txid, "outputIndex": doc.OutputIndex}
	_, err = s.coins.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store coin record: %w", err)
	}
	return nil
}

func outpointFilter(outpoint *transaction.Outpoint) bson.M {
	return bson.M{
		"txid":        outpoint.Txid.String(),
		"outputIndex": int64(outpoint.Index),
	}
}

// FindCoinRecord loads the coin record of an outpoint.
func (s *MongoStorage) FindCoinRecord(ctx context.Context, outpoint *transaction.Outpoint) (*types.SlpCoinRecord, error) {
	var doc coinDocument
	err := s.coins.FindOne(ctx, outpointFilter(outpoint)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: coin %s", ErrNotFound, outpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find coin record: %w", err)
	}
	return decodeCoinDocument(&doc)
}

func decodeCoinDocument(doc *coinDocument) (*types.SlpCoinRecord, error) {
	hash, err := chainhash.NewHashFromHex(doc.Txid)
	if err != nil {
		return nil, fmt.Errorf("%w: coin txid %q: %w", ErrCorruptRecord, doc.Txid, err)
	}
	tokenID, err := types.TokenIDFromHex(doc.TokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: coin token id: %w", ErrCorruptRecord, err)
	}
	record := &types.SlpCoinRecord{
		OutputHash:  *hash,
		OutputIndex: uint32(doc.OutputIndex),
		TokenID:     tokenID,
	}
	if err := record.UnmarshalBinary(doc.Data); err != nil {
		return nil, fmt.Errorf("%w: coin %s.%d: %w", ErrCorruptRecord, doc.Txid, doc.OutputIndex, err)
	}
	return record, nil
}

// DeleteCoinRecord removes the coin record of an outpoint.
func (s *MongoStorage) DeleteCoinRecord(ctx context.Context, outpoint *transaction.Outpoint) error {
	_, err := s.coins.DeleteOne(ctx, outpointFilter(outpoint))
	if err != nil {
		return fmt.Errorf("failed to delete coin record: %w", err)
	}
	return nil
}

func applyPagination(findOpts *options.FindOptions, limit, skip *int) {
	if skip != nil && *skip > 0 {
		findOpts.SetSkip(int64(*skip))
	}
	if limit != nil && *limit > 0 {
		findOpts.SetLimit(int64(*limit))
	}
}

// FindCoinsByToken lists the coin records of a token in outpoint order.
//
// Parameters:
//   - ctx: Context for the database operation
//   - tokenID: The token whose coins are listed
//   - limit: Optional maximum number of results
//   - skip: Optional number of results to skip
//
// Returns:
//   - []*types.SlpCoinRecord: Matching coin records
//   - error: An error if the query operation fails, nil otherwise
func (s *MongoStorage) FindCoinsByToken(ctx context.Context, tokenID types.TokenID, limit, skip *int) ([]*types.SlpCoinRecord, error) {
	findOpts := options.Find().SetSort(bson.D{
		{Key: "txid", Value: 1},
		{Key: "outputIndex", Value: 1},
	})
	applyPagination(findOpts, limit, skip)

	cursor, err := s.coins.Find(ctx, bson.M{"tokenId": tokenID.String()}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to find SLP coins: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	results := []*types.SlpCoinRecord{}
	for cursor.Next(ctx) {
		var doc coinDocument
		if err := cursor.Decode(&doc); err != nil {
			log.Storage.Warn().Err(err).Msg("skipping undecodable SLP coin document")
			continue
		}
		record, err := decodeCoinDocument(&doc)
		if err != nil {
			log.Storage.Warn().Err(err).Str("txid", doc.Txid).Int64("outputIndex", doc.OutputIndex).Msg("skipping corrupt SLP coin document")
			continue
		}
		results = append(results, record)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error while finding SLP coins: %w", err)
	}
	return results, nil
}

// FindAllTokens lists token metadata ordered by token index, newest first
// unless sortOrder is asc.
func (s *MongoStorage) FindAllTokens(ctx context.Context, limit, skip *int, sortOrder *types.SortOrder) ([]*types.TokenRecord, error) {
	order := -1
	if sortOrder != nil && *sortOrder == types.SortOrderAsc {
		order = 1
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "tokenIndex", Value: order}})
	applyPagination(findOpts, limit, skip)

	cursor, err := s.tokens.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to find SLP tokens: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	results := []*types.TokenRecord{}
	for cursor.Next(ctx) {
		var doc tokenDocument
		if err := cursor.Decode(&doc); err != nil {
			log.Storage.Warn().Err(err).Msg("skipping undecodable SLP token document")
			continue
		}
		record, err := decodeTokenDocument(&doc)
		if err != nil {
			log.Storage.Warn().Err(err).Str("tokenId", doc.TokenID).Msg("skipping corrupt SLP token document")
			continue
		}
		results = append(results, record)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error while finding SLP tokens: %w", err)
	}
	return results, nil
}
