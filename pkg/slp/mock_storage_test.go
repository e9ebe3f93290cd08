package slp

import (
	"context"
	"errors"
	"testing"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/types"
)

// Static error variables for testing
var errTestStorage = errors.New("storage error")

// MockStorage is a mock implementation of StorageInterface
type MockStorage struct {
	mock.Mock
}

var _ StorageInterface = (*MockStorage)(nil)

func (m *MockStorage) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStorage) TokenIndex(ctx context.Context, tokenID types.TokenID) (uint32, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(uint32), args.Error(1)
}

func (m *MockStorage) StoreTokenRecord(ctx context.Context, record *types.TokenRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockStorage) FindTokenRecord(ctx context.Context, tokenID types.TokenID) (*types.TokenRecord, error) {
	args := m.Called(ctx, tokenID)
	record, _ := args.Get(0).(*types.TokenRecord)
	return record, args.Error(1)
}

func (m *MockStorage) DeleteTokenRecord(ctx context.Context, tokenID types.TokenID) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockStorage) StoreCoinRecord(ctx context.Context, record *types.SlpCoinRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockStorage) FindCoinRecord(ctx context.Context, outpoint *transaction.Outpoint) (*types.SlpCoinRecord, error) {
	args := m.Called(ctx, outpoint)
	record, _ := args.Get(0).(*types.SlpCoinRecord)
	return record, args.Error(1)
}

func (m *MockStorage) DeleteCoinRecord(ctx context.Context, outpoint *transaction.Outpoint) error {
	args := m.Called(ctx, outpoint)
	return args.Error(0)
}

func (m *MockStorage) FindCoinsByToken(ctx context.Context, tokenID types.TokenID, limit, skip *int) ([]*types.SlpCoinRecord, error) {
	args := m.Called(ctx, tokenID, limit, skip)
	records, _ := args.Get(0).([]*types.SlpCoinRecord)
	return records, args.Error(1)
}

func (m *MockStorage) FindAllTokens(ctx context.Context, limit, skip *int, sortOrder *types.SortOrder) ([]*types.TokenRecord, error) {
	args := m.Called(ctx, limit, skip, sortOrder)
	records, _ := args.Get(0).([]*types.TokenRecord)
	return records, args.Error(1)
}

// Test helper functions

// testTransaction returns a transaction whose output 0 is slpScript,
// followed by the given number of plain outputs.
func testTransaction(slpScript *script.Script, outputs int) *transaction.Transaction {
	tx := transaction.NewTransaction()
	tx.AddOutput(&transaction.TransactionOutput{
		Satoshis:      0,
		LockingScript: slpScript,
	})
	for i := 0; i < outputs; i++ {
		tx.AddOutput(&transaction.TransactionOutput{
			Satoshis:      546,
			LockingScript: script.NewFromBytes([]byte{0x51}), // OP_1
		})
	}
	return tx
}

func genesisScript(t *testing.T) *script.Script {
	t.Helper()
	s, err := BuildGenesis(GenesisParams{
		Ticker:     "TEST",
		Name:       "Test Token",
		Decimals:   8,
		BatonIndex: u8(2),
		Quantity:   1000,
	})
	require.NoError(t, err)
	return s
}

func sendScript(t *testing.T, amounts ...uint64) *script.Script {
	t.Helper()
	s, err := BuildSend(testTokenID, amounts...)
	require.NoError(t, err)
	return s
}

func ptr[T any](v T) *T { return &v }
