package slp

import (
	"context"

	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/types"
)

// StorageInterface defines the interface for SLP record storage operations.
// Implementations return ErrNotFound for missing records.
type StorageInterface interface {
	// EnsureIndexes ensures the necessary indexes are created
	EnsureIndexes(ctx context.Context) error

	// TokenIndex returns the sequence number of a token, allocating the next
	// one the first time the token is seen
	TokenIndex(ctx context.Context, tokenID types.TokenID) (uint32, error)

	// StoreTokenRecord stores token metadata, assigning its TokenIndex
	StoreTokenRecord(ctx context.Context, record *types.TokenRecord) error

	// FindTokenRecord loads token metadata by token id
	FindTokenRecord(ctx context.Context, tokenID types.TokenID) (*types.TokenRecord, error)

	// DeleteTokenRecord removes token metadata; the token keeps its index
	DeleteTokenRecord(ctx context.Context, tokenID types.TokenID) error

	// StoreCoinRecord stores a coin record under its outpoint, assigning its TokenIndex
	StoreCoinRecord(ctx context.Context, record *types.SlpCoinRecord) error

	// FindCoinRecord loads the coin record of an outpoint
	FindCoinRecord(ctx context.Context, outpoint *transaction.Outpoint) (*types.SlpCoinRecord, error)

	// DeleteCoinRecord removes the coin record of an outpoint, if any
	DeleteCoinRecord(ctx context.Context, outpoint *transaction.Outpoint) error

	// FindCoinsByToken lists the coin records of a token. Records that fail
	// to decode are logged and left out of the listing.
	FindCoinsByToken(ctx context.Context, tokenID types.TokenID, limit, skip *int) ([]*types.SlpCoinRecord, error)

	// FindAllTokens lists token metadata ordered by token index, leaving out
	// records that fail to decode
	FindAllTokens(ctx context.Context, limit, skip *int, sortOrder *types.SortOrder) ([]*types.TokenRecord, error)
}
