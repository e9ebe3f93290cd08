package slp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-overlay-services/pkg/core/engine"
	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/overlay"
	"github.com/bsv-blockchain/go-sdk/overlay/lookup"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/rs/zerolog"

	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/log"
	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/types"
	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/utils"
)

// Static error variables for err113 compliance
var (
	errMissingAtomicBEEF         = errors.New("SLP admission requires the admitted transaction as atomic BEEF")
	errOutpointMismatch          = errors.New("atomic BEEF does not contain the admitted transaction")
	errValidQueryMustBeProvided  = errors.New("a valid query must be provided")
	errLookupServiceNotSupported = errors.New("lookup service not supported")
	errInvalidStringQuery        = errors.New("invalid string query: only 'findAll' is supported")
	errQueryTokenIDInvalid       = errors.New("query.tokenId must be 64 hex characters if provided")
	errQueryOutpointInvalid      = errors.New("query.outpoint must be '<txid>.<index>' if provided")
	errQueryCoinsNeedsTokenID    = errors.New("query.coins requires query.tokenId")
	errQueryEmpty                = errors.New("query must set findAll, tokenId or outpoint")
	errQueryLimitInvalid         = errors.New("query.limit must be a positive number if provided")
	errQuerySkipInvalid          = errors.New("query.skip must be a non-negative number if provided")
	errQuerySortOrderInvalid     = errors.New("query.sortOrder must be 'asc' or 'desc' if provided")
)

// LookupService implements the BSV overlay LookupService interface for SLP
// tokens. It keeps the token and coin records of admitted outputs and
// answers queries about them.
type LookupService struct {
	// storage is the SLP storage implementation
	storage StorageInterface
	topic   string
	service string
	logger  zerolog.Logger
}

// LookupOption configures a LookupService.
type LookupOption func(*LookupService)

// WithTopic sets the topic whose outputs the service records. Defaults to Topic.
func WithTopic(topic string) LookupOption {
	return func(s *LookupService) { s.topic = topic }
}

// WithService sets the service name questions must address. Defaults to Service.
func WithService(service string) LookupOption {
	return func(s *LookupService) { s.service = service }
}

// Compile-time verification that LookupService implements engine.LookupService
var _ engine.LookupService = (*LookupService)(nil)

// NewLookupService creates a new SLP lookup service instance.
func NewLookupService(storage StorageInterface, opts ...LookupOption) *LookupService {
	s := &LookupService{
		storage: storage,
		topic:   Topic,
		service: Service,
		logger:  log.Lookup,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OutputAdmittedByTopic stores the records of an admitted SLP output.
// The SLP script lives in another output of the same transaction, so the
// payload must carry the transaction as atomic BEEF. The token record is
// stored along with the coin when the transaction is a GENESIS.
func (s *LookupService) OutputAdmittedByTopic(ctx context.Context, payload *engine.OutputAdmittedByTopic) error {
	if payload.Topic != s.topic {
		return nil
	}
	if len(payload.AtomicBEEF) == 0 {
		return errMissingAtomicBEEF
	}

	tx, err := transaction.NewTransactionFromBEEF(payload.AtomicBEEF)
	if err != nil {
		return fmt.Errorf("failed to parse atomic BEEF: %w", err)
	}
	if !tx.TxID().IsEqual(&payload.Outpoint.Txid) {
		return fmt.Errorf("%w: %s", errOutpointMismatch, payload.Outpoint)
	}

	recs, err := ExtractTransaction(tx)
	if err != nil {
		return err
	}

	if recs.Token != nil {
		if err := s.storage.StoreTokenRecord(ctx, recs.Token); err != nil {
			return err
		}
	}
	for _, c := range recs.Coins {
		if c.OutputIndex != payload.Outpoint.Index {
			continue
		}
		if err := s.storage.StoreCoinRecord(ctx, c); err != nil {
			return err
		}
		s.logger.Debug().
			Str("outpoint", payload.Outpoint.String()).
			Str("tokenId", c.TokenID.String()).
			Str("type", c.Type.String()).
			Msg("stored SLP coin")
		return nil
	}

	s.logger.Debug().Str("outpoint", payload.Outpoint.String()).Msg("admitted output carries no SLP coin")
	return nil
}

// OutputSpent removes the coin record of a spent output.
func (s *LookupService) OutputSpent(ctx context.Context, payload *engine.OutputSpent) error {
	if payload.Topic != s.topic {
		return nil
	}
	return s.storage.DeleteCoinRecord(ctx, payload.Outpoint)
}

// OutputEvicted removes the coin record of an evicted output.
func (s *LookupService) OutputEvicted(ctx context.Context, outpoint *transaction.Outpoint) error {
	return s.storage.DeleteCoinRecord(ctx, outpoint)
}

// OutputNoLongerRetainedInHistory is a no-op; spent coins are not retained.
func (s *LookupService) OutputNoLongerRetainedInHistory(_ context.Context, _ *transaction.Outpoint, _ string) error {
	return nil
}

// OutputBlockHeightUpdated is a no-op; records do not track block heights.
func (s *LookupService) OutputBlockHeightUpdated(_ context.Context, _ *chainhash.Hash, _ uint32, _ uint64) error {
	return nil
}

// Lookup performs a lookup query and returns matching results.
//
// Supported query formats:
//   - String "findAll": all tokens, newest first
//   - {"findAll": true, "limit", "skip", "sortOrder"}: paginated tokens
//   - {"tokenId": "<hex>"}: the token's metadata
//   - {"tokenId": "<hex>", "coins": true, "limit", "skip"}: the token's coins
//   - {"outpoint": "<txid>.<index>"}: the coin at that outpoint
//
// Every answer is a freeform JSON array; a miss yields an empty array.
func (s *LookupService) Lookup(ctx context.Context, question *lookup.LookupQuestion) (*lookup.LookupAnswer, error) {
	if len(question.Query) == 0 {
		return nil, errValidQueryMustBeProvided
	}

	if question.Service != s.service {
		return nil, fmt.Errorf("%w: expected '%s', got '%s'", errLookupServiceNotSupported, s.service, question.Service)
	}

	var queryInterface interface{}
	if err := json.Unmarshal(question.Query, &queryInterface); err != nil {
		return nil, fmt.Errorf("failed to parse query JSON: %w", err)
	}

	if queryStr, ok := queryInterface.(string); ok {
		if queryStr == "findAll" {
			tokens, err := s.storage.FindAllTokens(ctx, nil, nil, nil)
			if err != nil {
				return nil, err
			}
			return freeform(tokens), nil
		}
		return nil, fmt.Errorf("%w: got '%s'", errInvalidStringQuery, queryStr)
	}

	query, err := s.parseQueryObject(question.Query)
	if err != nil {
		return nil, fmt.Errorf("invalid query format: %w", err)
	}

	switch {
	case query.FindAll != nil && *query.FindAll:
		tokens, err := s.storage.FindAllTokens(ctx, query.Limit, query.Skip, query.SortOrder)
		if err != nil {
			return nil, err
		}
		return freeform(tokens), nil

	case query.Outpoint != nil:
		outpoint, _ := transaction.OutpointFromString(*query.Outpoint)
		coin, err := s.storage.FindCoinRecord(ctx, outpoint)
		if errors.Is(err, ErrNotFound) {
			return freeform([]*types.SlpCoinRecord{}), nil
		}
		if err != nil {
			return nil, err
		}
		return freeform([]*types.SlpCoinRecord{coin}), nil

	default:
		tokenID, _ := types.TokenIDFromHex(*query.TokenID)
		if query.Coins != nil && *query.Coins {
			coins, err := s.storage.FindCoinsByToken(ctx, tokenID, query.Limit, query.Skip)
			if err != nil {
				return nil, err
			}
			return freeform(coins), nil
		}
		token, err := s.storage.FindTokenRecord(ctx, tokenID)
		if errors.Is(err, ErrNotFound) {
			return freeform([]*types.TokenRecord{}), nil
		}
		if err != nil {
			return nil, err
		}
		return freeform([]*types.TokenRecord{token}), nil
	}
}

// parseQueryObject decodes and validates an object query
func (s *LookupService) parseQueryObject(raw json.RawMessage) (*types.SLPQuery, error) {
	var query types.SLPQuery
	if err := json.Unmarshal(raw, &query); err != nil {
		return nil, fmt.Errorf("failed to unmarshal query object: %w", err)
	}
	if err := validateQuery(&query); err != nil {
		return nil, err
	}
	return &query, nil
}

func validateQuery(query *types.SLPQuery) error {
	findAll := query.FindAll != nil && *query.FindAll
	if !findAll && query.TokenID == nil && query.Outpoint == nil {
		return errQueryEmpty
	}

	if query.TokenID != nil && !utils.IsHex32(*query.TokenID) {
		return errQueryTokenIDInvalid
	}
	if query.Outpoint != nil {
		if _, err := transaction.OutpointFromString(*query.Outpoint); err != nil {
			return fmt.Errorf("%w: %w", errQueryOutpointInvalid, err)
		}
	}
	if query.Coins != nil && *query.Coins && query.TokenID == nil {
		return errQueryCoinsNeedsTokenID
	}

	if query.Limit != nil && *query.Limit < 0 {
		return errQueryLimitInvalid
	}
	if query.Skip != nil && *query.Skip < 0 {
		return errQuerySkipInvalid
	}
	if query.SortOrder != nil {
		if *query.SortOrder != types.SortOrderAsc && *query.SortOrder != types.SortOrderDesc {
			return errQuerySortOrderInvalid
		}
	}
	return nil
}

func freeform(result interface{}) *lookup.LookupAnswer {
	return &lookup.LookupAnswer{
		Type:   lookup.AnswerTypeFreeform,
		Result: result,
	}
}

// GetDocumentation returns the service documentation.
func (s *LookupService) GetDocumentation() string {
	return LookupDocumentation
}

// GetMetaData returns the service metadata.
func (s *LookupService) GetMetaData() *overlay.MetaData {
	return &overlay.MetaData{
		Name:        "SLP Lookup Service",
		Description: "Provides lookup of SLP token metadata and token-carrying outputs.",
	}
}
