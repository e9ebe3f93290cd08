package slp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/kvstore"
	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/log"
	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/types"
)

// Key prefixes of the embedded index.
var (
	prefixToken      = []byte("t/") // t/<tokenId> -> TokenRecord
	prefixTokenIndex = []byte("x/") // x/<tokenId> -> tokenIndex
	prefixIndexToken = []byte("i/") // i/<tokenIndex> -> tokenId
	prefixCoin       = []byte("c/") // c/<outputHash><outputIndex> -> SlpCoinRecord
	prefixTokenCoin  = []byte("k/") // k/<tokenIndex><outputHash><outputIndex> -> empty
	keyNextIndex     = []byte("m/next")
)

// KVStorage implements StorageInterface on a key-value store.
type KVStorage struct {
	db kvstore.DB
	// mu serialises token index allocation and coin rewrites.
	mu sync.Mutex
}

var _ StorageInterface = (*KVStorage)(nil)

// NewKVStorage creates a storage backed by db.
func NewKVStorage(db kvstore.DB) *KVStorage {
	return &KVStorage{db: db}
}

func makeKey(prefix []byte, parts ...[]byte) []byte {
	n := len(prefix)
	for _, p := range parts {
		n += len(p)
	}
	key := make([]byte, 0, n)
	key = append(key, prefix...)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

func be32(n uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, n)
	return b
}

func coinKey(op *transaction.Outpoint) []byte {
	return makeKey(prefixCoin, op.Txid[:], be32(op.Index))
}

func tokenCoinKey(tokenIndex uint32, op *transaction.Outpoint) []byte {
	return makeKey(prefixTokenCoin, be32(tokenIndex), op.Txid[:], be32(op.Index))
}

// EnsureIndexes is a no-op; key prefixes are the indexes.
func (s *KVStorage) EnsureIndexes(_ context.Context) error {
	return nil
}

// TokenIndex returns the index of tokenID, allocating one if needed.
func (s *KVStorage) TokenIndex(_ context.Context, tokenID types.TokenID) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenIndexLocked(tokenID)
}

func (s *KVStorage) tokenIndexLocked(tokenID types.TokenID) (uint32, error) {
	v, err := s.db.Get(makeKey(prefixTokenIndex, tokenID[:]))
	if err == nil {
		if len(v) != 4 {
			return 0, fmt.Errorf("%w: token index entry for %s", types.ErrInvalidLength, tokenID)
		}
		return binary.BigEndian.Uint32(v), nil
	}
	if !errors.Is(err, kvstore.ErrNotFound) {
		return 0, fmt.Errorf("failed to read token index: %w", err)
	}

	var next uint32
	v, err = s.db.Get(keyNextIndex)
	switch {
	case err == nil && len(v) == 4:
		next = binary.BigEndian.Uint32(v)
	case err == nil:
		return 0, fmt.Errorf("%w: next token index entry", types.ErrInvalidLength)
	case !errors.Is(err, kvstore.ErrNotFound):
		return 0, fmt.Errorf("failed to read next token index: %w", err)
	}

	b := s.db.NewBatch()
	defer b.Discard()
	if err := b.Put(makeKey(prefixTokenIndex, tokenID[:]), be32(next)); err != nil {
		return 0, err
	}
	if err := b.Put(makeKey(prefixIndexToken, be32(next)), tokenID[:]); err != nil {
		return 0, err
	}
	if err := b.Put(keyNextIndex, be32(next+1)); err != nil {
		return 0, err
	}
	if err := b.Commit(); err != nil {
		return 0, fmt.Errorf("failed to allocate token index: %w", err)
	}
	return next, nil
}

// StoreTokenRecord stores token metadata under its token id.
func (s *KVStorage) StoreTokenRecord(ctx context.Context, record *types.TokenRecord) error {
	idx, err := s.TokenIndex(ctx, record.TokenID)
	if err != nil {
		return err
	}
	record.TokenIndex = idx

	data, err := record.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode token record: %w", err)
	}
	if err := s.db.Put(makeKey(prefixToken, record.TokenID[:]), data); err != nil {
		return fmt.Errorf("failed to store token record: %w", err)
	}
	return nil
}

// FindTokenRecord loads token metadata by token id.
func (s *KVStorage) FindTokenRecord(_ context.Context, tokenID types.TokenID) (*types.TokenRecord, error) {
	data, err := s.db.Get(makeKey(prefixToken, tokenID[:]))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: token %s", ErrNotFound, tokenID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token record: %w", err)
	}

	record := &types.TokenRecord{}
	if err := record.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: token %s: %w", ErrCorruptRecord, tokenID, err)
	}

	v, err := s.db.Get(makeKey(prefixTokenIndex, tokenID[:]))
	if err != nil {
		return nil, fmt.Errorf("failed to load token index of %s: %w", tokenID, err)
	}
	if len(v) == 4 {
		record.TokenIndex = binary.BigEndian.Uint32(v)
	}
	return record, nil
}

// DeleteTokenRecord removes token metadata. The index mapping is kept so
// coin records of the token stay resolvable.
func (s *KVStorage) DeleteTokenRecord(_ context.Context, tokenID types.TokenID) error {
	if err := s.db.Delete(makeKey(prefixToken, tokenID[:])); err != nil {
		return fmt.Errorf("failed to delete token record: %w", err)
	}
	return nil
}

// StoreCoinRecord stores a coin record and its by-token index entry.
func (s *KVStorage) StoreCoinRecord(_ context.Context, record *types.SlpCoinRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.tokenIndexLocked(record.TokenID)
	if err != nil {
		return err
	}
	record.TokenIndex = idx

	data, err := record.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode coin record: %w", err)
	}

	op := record.Outpoint()
	b := s.db.NewBatch()
	defer b.Discard()

	if old, err := s.loadCoin(op); err == nil && old.TokenIndex != idx {
		if err := b.Delete(tokenCoinKey(old.TokenIndex, op)); err != nil {
			return err
		}
	}
	if err := b.Put(coinKey(op), data); err != nil {
		return err
	}
	if err := b.Put(tokenCoinKey(idx, op), nil); err != nil {
		return err
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("failed to store coin record: %w", err)
	}
	return nil
}

// loadCoin decodes the stored coin without resolving its token id.
func (s *KVStorage) loadCoin(op *transaction.Outpoint) (*types.SlpCoinRecord, error) {
	data, err := s.db.Get(coinKey(op))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: coin %s", ErrNotFound, op)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load coin record: %w", err)
	}
	record := &types.SlpCoinRecord{
		OutputHash:  op.Txid,
		OutputIndex: op.Index,
	}
	if err := record.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: coin %s: %w", ErrCorruptRecord, op, err)
	}
	return record, nil
}

// FindCoinRecord loads the coin record of an outpoint.
func (s *KVStorage) FindCoinRecord(_ context.Context, outpoint *transaction.Outpoint) (*types.SlpCoinRecord, error) {
	record, err := s.loadCoin(outpoint)
	if err != nil {
		return nil, err
	}
	id, err := s.db.Get(makeKey(prefixIndexToken, be32(record.TokenIndex)))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token index %d: %w", record.TokenIndex, err)
	}
	if record.TokenID, err = types.TokenIDFromBytes(id); err != nil {
		return nil, fmt.Errorf("%w: token index %d: %w", ErrCorruptRecord, record.TokenIndex, err)
	}
	return record, nil
}

// DeleteCoinRecord removes the coin record of an outpoint.
func (s *KVStorage) DeleteCoinRecord(_ context.Context, outpoint *transaction.Outpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.loadCoin(outpoint)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	b := s.db.NewBatch()
	defer b.Discard()
	if err := b.Delete(coinKey(outpoint)); err != nil {
		return err
	}
	if err := b.Delete(tokenCoinKey(record.TokenIndex, outpoint)); err != nil {
		return err
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("failed to delete coin record: %w", err)
	}
	return nil
}

// FindCoinsByToken lists coin records of a token in outpoint order.
func (s *KVStorage) FindCoinsByToken(ctx context.Context, tokenID types.TokenID, limit, skip *int) ([]*types.SlpCoinRecord, error) {
	v, err := s.db.Get(makeKey(prefixTokenIndex, tokenID[:]))
	if errors.Is(err, kvstore.ErrNotFound) {
		return []*types.SlpCoinRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token index: %w", err)
	}

	prefix := makeKey(prefixTokenCoin, v)
	var outpoints []*transaction.Outpoint
	err = s.db.ForEach(prefix, func(key, _ []byte) error {
		rest := key[len(prefix):]
		if len(rest) != chainhash.HashSize+4 {
			return nil
		}
		op := &transaction.Outpoint{Index: binary.BigEndian.Uint32(rest[chainhash.HashSize:])}
		copy(op.Txid[:], rest[:chainhash.HashSize])
		outpoints = append(outpoints, op)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list coins of %s: %w", tokenID, err)
	}

	outpoints = paginate(outpoints, limit, skip)
	results := make([]*types.SlpCoinRecord, 0, len(outpoints))
	for _, op := range outpoints {
		record, err := s.FindCoinRecord(ctx, op)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if errors.Is(err, ErrCorruptRecord) {
			log.Storage.Warn().Err(err).Str("outpoint", op.String()).Msg("skipping corrupt SLP coin record")
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, record)
	}
	return results, nil
}

// FindAllTokens lists stored tokens by index, newest first unless sortOrder is asc.
func (s *KVStorage) FindAllTokens(ctx context.Context, limit, skip *int, sortOrder *types.SortOrder) ([]*types.TokenRecord, error) {
	var ids []types.TokenID
	err := s.db.ForEach(prefixIndexToken, func(key, value []byte) error {
		id, err := types.TokenIDFromBytes(value)
		if err != nil {
			return fmt.Errorf("index entry %x: %w", key, err)
		}
		if ok, err := s.db.Has(makeKey(prefixToken, id[:])); err != nil || !ok {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	if sortOrder == nil || *sortOrder != types.SortOrderAsc {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}

	ids = paginate(ids, limit, skip)
	results := make([]*types.TokenRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.FindTokenRecord(ctx, id)
		if errors.Is(err, ErrCorruptRecord) {
			log.Storage.Warn().Err(err).Str("tokenId", id.String()).Msg("skipping corrupt SLP token record")
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, record)
	}
	return results, nil
}

func paginate[T any](items []T, limit, skip *int) []T {
	if skip != nil && *skip > 0 {
		if *skip >= len(items) {
			return items[:0]
		}
		items = items[*skip:]
	}
	if limit != nil && *limit > 0 && *limit < len(items) {
		items = items[:*limit]
	}
	return items
}
