// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txflow/internal/blockchain"
	noderpc "github.com/rovshanmuradov/solana-txflow/internal/blockchain/solbc/rpc"
)

// Client – адаптер blockchain.Connector поверх пула RPC узлов solana-go.
// Ошибки RPC приводятся к читаемому тексту через DescribeError.
type Client struct {
	pool   *noderpc.Pool
	logger *zap.Logger
}

// Гарантируем, что Client реализует интерфейс blockchain.Connector.
var _ blockchain.Connector = (*Client)(nil)

// NewClient создаёт клиент поверх пула узлов.
func NewClient(pool *noderpc.Pool, logger *zap.Logger) *Client {
	return &Client{
		pool:   pool,
		logger: logger.Named("solbc-client"),
	}
}

// Pool exposes the underlying node pool, e.g. for health checks.
func (c *Client) Pool() *noderpc.Pool {
	return c.pool
}

// GetLatestBlockhash получает последний blockhash и высоту, до которой он действителен.
func (c *Client) GetLatestBlockhash(ctx context.Context) (blockchain.Blockhash, error) {
	var result *rpc.GetLatestBlockhashResult
	err := c.pool.Execute(ctx, "getLatestBlockhash", func(ctx context.Context, api noderpc.API) error {
		var err error
		result, err = api.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		return err
	})
	if err != nil {
		c.logger.Debug("GetLatestBlockhash error", zap.Error(err))
		return blockchain.Blockhash{}, DescribeError(err)
	}
	if result == nil || result.Value == nil {
		return blockchain.Blockhash{}, fmt.Errorf("empty latest hash response")
	}
	return blockchain.Blockhash{
		Hash:                 result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

// SendRawTransaction отправляет подписанную сериализованную транзакцию.
func (c *Client) SendRawTransaction(ctx context.Context, payload []byte, opts blockchain.SendOptions) (solana.Signature, error) {
	var sig solana.Signature
	err := c.pool.Execute(ctx, "sendTransaction", func(ctx context.Context, api noderpc.API) error {
		var err error
		sig, err = api.SendRawTransactionWithOpts(ctx, payload, rpc.TransactionOpts{
			SkipPreflight:       opts.SkipPreflight,
			PreflightCommitment: opts.PreflightCommitment,
		})
		return err
	})
	if err != nil {
		c.logger.Error("SendRawTransaction error", zap.Error(err))
		return solana.Signature{}, DescribeError(err)
	}
	return sig, nil
}

// ConfirmTransaction performs one getSignatureStatuses lookup. While the
// signature is unknown it compares the current block height with the
// blockhash validity window. Once the window has closed the status is read
// again, and ErrTransactionExpired is reported only if it is still unknown.
func (c *Client) ConfirmTransaction(
	ctx context.Context,
	req blockchain.ConfirmRequest,
	commitment rpc.CommitmentType,
) (*blockchain.Confirmation, error) {
	status, err := c.signatureStatus(ctx, req.Signature)
	if err != nil {
		return nil, err
	}

	if status == nil {
		if req.LastValidBlockHeight == 0 {
			return &blockchain.Confirmation{}, nil
		}
		height, err := c.blockHeight(ctx, commitment)
		if err != nil {
			return nil, err
		}
		if height <= req.LastValidBlockHeight {
			return &blockchain.Confirmation{}, nil
		}

		// The transaction may have landed between the two reads.
		status, err = c.signatureStatus(ctx, req.Signature)
		if err != nil {
			return nil, err
		}
		if status == nil {
			c.logger.Debug("Blockhash validity window closed",
				zap.String("signature", req.Signature.String()),
				zap.Uint64("block_height", height),
				zap.Uint64("last_valid_block_height", req.LastValidBlockHeight))
			return nil, blockchain.ErrTransactionExpired
		}
	}

	conf := &blockchain.Confirmation{
		Slot:      status.Slot,
		Confirmed: reaches(status.ConfirmationStatus, commitment),
	}
	if status.Err != nil {
		conf.Err = DescribeTransactionError(status.Err)
	}
	return conf, nil
}

// Status returns a readable snapshot of a signature's state.
func (c *Client) Status(ctx context.Context, sig solana.Signature) (*blockchain.TxStatus, error) {
	status, err := c.signatureStatus(ctx, sig)
	if err != nil {
		return nil, err
	}

	out := &blockchain.TxStatus{
		Signature: sig.String(),
		Status:    "pending",
		Timestamp: time.Now(),
	}
	if status == nil {
		return out, nil
	}

	out.Slot = status.Slot
	if status.Confirmations != nil {
		out.Confirmations = *status.Confirmations
	}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		out.Status = "finalized"
	case rpc.ConfirmationStatusConfirmed:
		out.Status = "confirmed"
	case rpc.ConfirmationStatusProcessed:
		out.Status = "processed"
	}
	if status.Err != nil {
		out.Status = "failed"
		out.Error = DescribeTransactionError(status.Err).Error()
	}
	return out, nil
}

// GetBalance получает баланс аккаунта в лампортах.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	var result *rpc.GetBalanceResult
	err := c.pool.Execute(ctx, "getBalance", func(ctx context.Context, api noderpc.API) error {
		var err error
		result, err = api.GetBalance(ctx, pubkey, commitment)
		return err
	})
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, DescribeError(err)
	}
	return result.Value, nil
}

// GetTokenAccountBalance получает баланс токенного аккаунта
func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (*rpc.UiTokenAmount, error) {
	var result *rpc.GetTokenAccountBalanceResult
	err := c.pool.Execute(ctx, "getTokenAccountBalance", func(ctx context.Context, api noderpc.API) error {
		var err error
		result, err = api.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
		return err
	})
	if err != nil {
		c.logger.Debug("GetTokenAccountBalance error",
			zap.String("account", account.String()),
			zap.Error(err))
		return nil, DescribeError(err)
	}
	if result == nil || result.Value == nil {
		return nil, fmt.Errorf("account %s: empty token balance", account)
	}
	return result.Value, nil
}

func (c *Client) signatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	var result *rpc.GetSignatureStatusesResult
	err := c.pool.Execute(ctx, "getSignatureStatuses", func(ctx context.Context, api noderpc.API) error {
		var err error
		result, err = api.GetSignatureStatuses(ctx, false, sig)
		return err
	})
	if err != nil {
		c.logger.Debug("GetSignatureStatuses error", zap.Error(err))
		return nil, DescribeError(err)
	}
	if result == nil || len(result.Value) == 0 {
		return nil, nil
	}
	return result.Value[0], nil
}

func (c *Client) blockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	var height uint64
	err := c.pool.Execute(ctx, "getBlockHeight", func(ctx context.Context, api noderpc.API) error {
		var err error
		height, err = api.GetBlockHeight(ctx, commitment)
		return err
	})
	if err != nil {
		return 0, DescribeError(err)
	}
	return height, nil
}

var commitmentRank = map[rpc.ConfirmationStatusType]int{
	rpc.ConfirmationStatusProcessed: 1,
	rpc.ConfirmationStatusConfirmed: 2,
	rpc.ConfirmationStatusFinalized: 3,
}

// reaches reports whether a status satisfies the wanted commitment.
func reaches(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	have := commitmentRank[status]
	switch want {
	case rpc.CommitmentProcessed:
		return have >= 1
	case rpc.CommitmentFinalized:
		return have >= 3
	default:
		return have >= 2
	}
}
