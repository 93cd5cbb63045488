// internal/blockchain/types.go
package blockchain

import (
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrTransactionExpired сигнализирует, что blockhash транзакции устарел до подтверждения.
var ErrTransactionExpired = errors.New("signature has expired: block height exceeded")

// Blockhash is a recent blockhash with its validity horizon.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

// SendOptions определяет опции для отправки транзакций.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// ConfirmRequest identifies the transaction being confirmed and the blockhash
// window it was built against.
type ConfirmRequest struct {
	Signature            solana.Signature
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// Confirmation is the outcome of one status lookup. Err carries the on-chain
// execution error, if any, rendered into readable text by the connector
// (e.g. "instruction 2: custom program error: 0x1774").
type Confirmation struct {
	Confirmed bool
	Slot      uint64
	Err       error
}

// Failed reports whether the transaction landed but failed to execute.
func (c *Confirmation) Failed() bool {
	return c != nil && c.Err != nil
}

// TxStatus is a readable snapshot of a signature, for display.
type TxStatus struct {
	Signature     string    `json:"signature"`
	Status        string    `json:"status"` // pending, processed, confirmed, finalized, failed
	Slot          uint64    `json:"slot,omitempty"`
	Confirmations uint64    `json:"confirmations,omitempty"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
