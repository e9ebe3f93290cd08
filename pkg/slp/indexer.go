package slp

import (
	"context"
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/rs/zerolog"

	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/log"
	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/utils"
)

// MarkerOutput finds the first output of tx carrying a valid SLP script.
// It returns the parsed script and the output index.
func MarkerOutput(tx *transaction.Transaction) (*Script, uint32, bool) {
	for i, out := range tx.Outputs {
		if out == nil || out.LockingScript == nil {
			continue
		}
		s, err := Parse(out.LockingScript)
		if err != nil || !s.IsValid() {
			continue
		}
		return s, uint32(i), true
	}
	return nil, 0, false
}

// ExtractTransaction derives the records of a whole transaction. Coins that
// point past the last output are dropped.
func ExtractTransaction(tx *transaction.Transaction) (*Records, error) {
	s, idx, ok := MarkerOutput(tx)
	if !ok {
		return nil, ErrNoMarkerOutput
	}

	var opts []ExtractOption
	if idx != 0 {
		opts = append(opts, WithNonCanonicalMarker())
	}
	recs, err := s.Extract(utils.TxIDBytes(tx.TxID()), opts...)
	if err != nil {
		return nil, err
	}

	coins := recs.Coins[:0]
	for _, c := range recs.Coins {
		if int(c.OutputIndex) < len(tx.Outputs) {
			coins = append(coins, c)
		}
	}
	recs.Coins = coins
	return recs, nil
}

// Indexer writes the records of connected transactions to storage and
// removes them again when a transaction is disconnected.
type Indexer struct {
	storage StorageInterface
	logger  zerolog.Logger
}

// NewIndexer creates an indexer backed by storage.
func NewIndexer(storage StorageInterface) *Indexer {
	return &Indexer{
		storage: storage,
		logger:  log.Indexer,
	}
}

// ConnectTransaction stores the records of tx. Transactions without an SLP
// output yield nil records and no error.
func (ix *Indexer) ConnectTransaction(ctx context.Context, tx *transaction.Transaction) (*Records, error) {
	recs, err := ExtractTransaction(tx)
	if errors.Is(err, ErrNoMarkerOutput) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if recs.Token != nil {
		if err := ix.storage.StoreTokenRecord(ctx, recs.Token); err != nil {
			return nil, fmt.Errorf("failed to store token %s: %w", recs.Token.TokenID, err)
		}
	}
	for _, c := range recs.Coins {
		if err := ix.storage.StoreCoinRecord(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to store coin %s: %w", c.Outpoint(), err)
		}
	}

	ix.logger.Debug().
		Str("txid", tx.TxID().String()).
		Int("coins", len(recs.Coins)).
		Bool("genesis", recs.Token != nil).
		Msg("connected SLP transaction")
	return recs, nil
}

// DisconnectTransaction removes the records ConnectTransaction stored for tx.
func (ix *Indexer) DisconnectTransaction(ctx context.Context, tx *transaction.Transaction) error {
	recs, err := ExtractTransaction(tx)
	if errors.Is(err, ErrNoMarkerOutput) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, c := range recs.Coins {
		if err := ix.storage.DeleteCoinRecord(ctx, c.Outpoint()); err != nil {
			return fmt.Errorf("failed to delete coin %s: %w", c.Outpoint(), err)
		}
	}
	if recs.Token != nil {
		if err := ix.storage.DeleteTokenRecord(ctx, recs.Token.TokenID); err != nil {
			return fmt.Errorf("failed to delete token %s: %w", recs.Token.TokenID, err)
		}
	}

	ix.logger.Debug().
		Str("txid", tx.TxID().String()).
		Int("coins", len(recs.Coins)).
		Msg("disconnected SLP transaction")
	return nil
}
