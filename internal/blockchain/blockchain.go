// internal/blockchain/blockchain.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Connector is the RPC surface the submission pipeline depends on.
// Implementations must be safe for concurrent use.
type Connector interface {
	// GetLatestBlockhash returns a recent blockhash and the last block height
	// at which a transaction referencing it can still land.
	GetLatestBlockhash(ctx context.Context) (Blockhash, error)
	// SendRawTransaction broadcasts an already signed, serialized transaction.
	SendRawTransaction(ctx context.Context, payload []byte, opts SendOptions) (solana.Signature, error)
	// ConfirmTransaction performs a single status lookup. It returns
	// ErrTransactionExpired once the blockhash has aged out and the
	// signature is still unknown to the cluster.
	ConfirmTransaction(ctx context.Context, req ConfirmRequest, commitment rpc.CommitmentType) (*Confirmation, error)
}
