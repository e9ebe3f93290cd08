package slp

import (
	"context"

	"github.com/bsv-blockchain/go-sdk/overlay"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/rs/zerolog"

	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/log"
)

// TopicManager admits the token-carrying outputs of SLP transactions to the
// tm_slp topic. It only checks the structure of the SLP script; token
// balances across inputs are not checked.
type TopicManager struct {
	logger zerolog.Logger
}

// NewTopicManager creates a new SLP topic manager instance.
func NewTopicManager() *TopicManager {
	return &TopicManager{logger: log.Topic}
}

// IdentifyAdmissibleOutputs implements the engine.TopicManager interface.
// Undecodable BEEF admits nothing rather than failing the submission.
func (tm *TopicManager) IdentifyAdmissibleOutputs(_ context.Context, beef []byte, previousCoins map[uint32]*transaction.TransactionOutput) (overlay.AdmittanceInstructions, error) {
	parsedTransaction, err := transaction.NewTransactionFromBEEF(beef)
	if err != nil {
		tm.logger.Warn().Err(err).Msg("failed to parse BEEF")
		return overlay.AdmittanceInstructions{
			OutputsToAdmit: []uint32{},
			CoinsToRetain:  []uint32{},
		}, nil
	}

	outputsToAdmit := tm.AdmissibleOutputs(parsedTransaction)

	if len(outputsToAdmit) > 0 || len(previousCoins) > 0 {
		tm.logger.Info().
			Str("txid", parsedTransaction.TxID().String()).
			Int("admitted", len(outputsToAdmit)).
			Int("consumed", len(previousCoins)).
			Msg("SLP outputs admitted")
	} else {
		tm.logger.Debug().Msg("no SLP outputs admitted and no previous SLP coins consumed")
	}

	return overlay.AdmittanceInstructions{
		OutputsToAdmit: outputsToAdmit,
		CoinsToRetain:  []uint32{},
	}, nil
}

// AdmissibleOutputs returns the output indices of tx that carry SLP coins,
// in the order the script assigns them.
func (tm *TopicManager) AdmissibleOutputs(tx *transaction.Transaction) []uint32 {
	outputs := []uint32{}
	recs, err := ExtractTransaction(tx)
	if err != nil {
		return outputs
	}

	seen := make(map[uint32]struct{}, len(recs.Coins))
	for _, c := range recs.Coins {
		if _, dup := seen[c.OutputIndex]; dup {
			continue
		}
		seen[c.OutputIndex] = struct{}{}
		outputs = append(outputs, c.OutputIndex)
	}
	return outputs
}

// IdentifyNeededInputs implements the engine.TopicManager interface.
// SLP admission does not look at inputs.
func (tm *TopicManager) IdentifyNeededInputs(_ context.Context, _ []byte) ([]*transaction.Outpoint, error) {
	return []*transaction.Outpoint{}, nil
}

// GetDocumentation implements the engine.TopicManager interface
func (tm *TopicManager) GetDocumentation() string {
	return TopicManagerDocumentation
}

// GetMetaData implements the engine.TopicManager interface
func (tm *TopicManager) GetMetaData() *overlay.MetaData {
	return &overlay.MetaData{
		Name:        "SLP Topic Manager",
		Description: "Admits outputs carrying SLP tokens",
	}
}
