// internal/transaction/send.go
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txflow/internal/blockchain"
	"github.com/rovshanmuradov/solana-txflow/internal/events"
	"github.com/rovshanmuradov/solana-txflow/internal/wallet"
)

// DefaultSendAttempts is the ceiling on full build/sign/send/confirm cycles.
const DefaultSendAttempts = 3

var (
	// ErrConfirmationTimeout is returned when the confirm policy ran out while
	// the signature was still pending. It classifies as NetworkBusy.
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")

	errPending = errors.New("signature pending")
)

// PayloadBuilder produces an unsigned transaction that references recent.
// It is called again for every attempt so a rebuilt payload always carries
// a fresh blockhash.
type PayloadBuilder func(ctx context.Context, recent solana.Hash) (*solana.Transaction, error)

// Hooks observe the progress of a submission. Every field is optional.
type Hooks struct {
	OnSigning    func(attempt int)
	OnSending    func(attempt int)
	OnSubmitted  func(attempt int, sig solana.Signature)
	OnConfirming func(attempt int, sig solana.Signature)
	OnRebuild    func(attempt int, cause *Error)
}

func (h Hooks) signing(attempt int) {
	if h.OnSigning != nil {
		h.OnSigning(attempt)
	}
}

func (h Hooks) sending(attempt int) {
	if h.OnSending != nil {
		h.OnSending(attempt)
	}
}

func (h Hooks) submitted(attempt int, sig solana.Signature) {
	if h.OnSubmitted != nil {
		h.OnSubmitted(attempt, sig)
	}
}

func (h Hooks) confirming(attempt int, sig solana.Signature) {
	if h.OnConfirming != nil {
		h.OnConfirming(attempt, sig)
	}
}

func (h Hooks) rebuild(attempt int, cause *Error) {
	if h.OnRebuild != nil {
		h.OnRebuild(attempt, cause)
	}
}

type driverOptions struct {
	sendAttempts    int
	blockhashPolicy RetryPolicy
	confirmPolicy   RetryPolicy
	commitment      rpc.CommitmentType
	skipPreflight   bool
	logger          *zap.Logger
	metrics         *Metrics
	hooks           Hooks

	// sender only
	name      string
	publisher events.Publisher
}

// Option configures a Driver or a Sender.
type Option func(*driverOptions)

// WithSendAttempts sets the ceiling on blockhash-expiry rebuilds, counting
// the first attempt. Values below 1 are ignored.
func WithSendAttempts(n int) Option {
	return func(o *driverOptions) {
		if n >= 1 {
			o.sendAttempts = n
		}
	}
}

// WithBlockhashPolicy sets the retry policy for fetching a recent blockhash.
func WithBlockhashPolicy(p RetryPolicy) Option {
	return func(o *driverOptions) { o.blockhashPolicy = p }
}

// WithConfirmPolicy sets the polling policy for confirmation.
func WithConfirmPolicy(p RetryPolicy) Option {
	return func(o *driverOptions) { o.confirmPolicy = p }
}

// WithCommitment sets the commitment level awaited on confirmation.
func WithCommitment(c rpc.CommitmentType) Option {
	return func(o *driverOptions) {
		if c != "" {
			o.commitment = c
		}
	}
}

// WithSkipPreflight disables node-side simulation before broadcast.
func WithSkipPreflight(skip bool) Option {
	return func(o *driverOptions) { o.skipPreflight = skip }
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(o *driverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics enables Prometheus recording.
func WithMetrics(m *Metrics) Option {
	return func(o *driverOptions) { o.metrics = m }
}

// WithHooks installs progress callbacks.
func WithHooks(h Hooks) Option {
	return func(o *driverOptions) { o.hooks = h }
}

// WithName labels a Sender in logs and events.
func WithName(name string) Option {
	return func(o *driverOptions) { o.name = name }
}

// WithPublisher makes a Sender publish phase and lifecycle events.
func WithPublisher(p events.Publisher) Option {
	return func(o *driverOptions) { o.publisher = p }
}

func newDriverOptions(opts []Option) driverOptions {
	o := driverOptions{
		sendAttempts:    DefaultSendAttempts,
		blockhashPolicy: DefaultBlockhashPolicy,
		confirmPolicy:   DefaultConfirmPolicy,
		commitment:      rpc.CommitmentConfirmed,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Driver broadcasts transactions and rebuilds them when, and only when, the
// blockhash they were built against expires before confirmation.
type Driver struct {
	conn blockchain.Connector
	opts driverOptions
}

// NewDriver creates a driver bound to conn.
func NewDriver(conn blockchain.Connector, opts ...Option) *Driver {
	o := newDriverOptions(opts)
	o.logger = o.logger.Named("send_driver")
	return &Driver{conn: conn, opts: o}
}

// SendWithRetry is the standalone form of Driver.Send for call sites that
// need the retry behaviour without phase tracking. A non-nil error is always
// a *Error.
func SendWithRetry(
	ctx context.Context,
	build PayloadBuilder,
	signer wallet.Signer,
	conn blockchain.Connector,
	opts ...Option,
) (solana.Signature, error) {
	sig, err := NewDriver(conn, opts...).Send(ctx, build, signer)
	if err != nil {
		return solana.Signature{}, err
	}
	return sig, nil
}

// Send runs build/sign/broadcast/confirm cycles until the transaction is
// confirmed, a non-retryable failure occurs or the attempt ceiling is hit.
func (d *Driver) Send(ctx context.Context, build PayloadBuilder, signer wallet.Signer) (solana.Signature, *Error) {
	return d.send(ctx, build, signer, d.opts.hooks)
}

func (d *Driver) send(ctx context.Context, build PayloadBuilder, signer wallet.Signer, hooks Hooks) (solana.Signature, *Error) {
	if d.conn == nil {
		return solana.Signature{}, invalid(ErrInvalidRequest, "connector is required")
	}
	if build == nil {
		return solana.Signature{}, invalid(ErrInvalidRequest, "payload builder is required")
	}
	if signer == nil {
		return solana.Signature{}, invalid(ErrInvalidRequest, "signer is required")
	}

	var last *Error
	for attempt := 1; attempt <= d.opts.sendAttempts; attempt++ {
		if attempt > 1 {
			d.opts.metrics.recordRebuild()
			hooks.rebuild(attempt, last)
		}

		sig, err := d.attempt(ctx, attempt, build, signer, hooks)
		if err == nil {
			return sig, nil
		}

		last = Classify(err)
		if !last.Code.Retryable() {
			d.opts.logger.Debug("Submission failed",
				zap.Int("attempt", attempt),
				zap.String("code", string(last.Code)),
				zap.Error(err))
			return solana.Signature{}, last
		}

		d.opts.logger.Warn("Blockhash expired before confirmation",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", d.opts.sendAttempts),
			zap.Error(err))
	}
	return solana.Signature{}, last
}

func (d *Driver) attempt(
	ctx context.Context,
	attempt int,
	build PayloadBuilder,
	signer wallet.Signer,
	hooks Hooks,
) (solana.Signature, error) {
	hooks.signing(attempt)

	recent, err := d.latestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	tx, err := build(ctx, recent.Hash)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build payload: %w", err)
	}
	if verr := validateBuilt(tx, recent.Hash); verr != nil {
		return solana.Signature{}, verr
	}

	signed, err := signer.SignTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sign: %w", err)
	}
	if verr := validateSigned(signed); verr != nil {
		return solana.Signature{}, verr
	}

	payload, err := signed.MarshalBinary()
	if err != nil {
		return solana.Signature{}, NewError(CodeUnknown, fmt.Errorf("serialize: %w", err))
	}

	hooks.sending(attempt)
	sig, err := d.conn.SendRawTransaction(ctx, payload, blockchain.SendOptions{
		SkipPreflight:       d.opts.skipPreflight,
		PreflightCommitment: d.opts.commitment,
	})
	d.opts.metrics.recordBroadcast(err)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("broadcast: %w", err)
	}
	hooks.submitted(attempt, sig)

	d.opts.logger.Debug("Transaction broadcast",
		zap.String("signature", sig.String()),
		zap.Int("attempt", attempt))

	hooks.confirming(attempt, sig)
	if err := d.confirm(ctx, blockchain.ConfirmRequest{
		Signature:            sig,
		Blockhash:            recent.Hash,
		LastValidBlockHeight: recent.LastValidBlockHeight,
	}); err != nil {
		return solana.Signature{}, err
	}
	return sig, nil
}

// latestBlockhash fetches a recent blockhash. A failure here is never an
// expiry of our transaction, so it is pinned to NetworkBusy: RPC errors for
// this call name the method, and the method name would otherwise classify as
// BlockhashExpired and trigger a rebuild loop.
func (d *Driver) latestBlockhash(ctx context.Context) (blockchain.Blockhash, error) {
	bh, err := RetryWithBackoff(ctx, func(ctx context.Context) (blockchain.Blockhash, error) {
		return d.conn.GetLatestBlockhash(ctx)
	}, d.opts.blockhashPolicy, func(err error, next time.Duration) {
		d.opts.logger.Debug("Retrying recent hash fetch", zap.Duration("next", next), zap.Error(err))
	})
	if err != nil {
		rec := Classify(err)
		if rec.Code == CodeBlockhashExpired {
			rec = NewError(CodeNetworkBusy, err)
		}
		return blockchain.Blockhash{}, rec
	}
	return bh, nil
}

// confirm polls until the signature reaches the configured commitment.
// Pending and transient lookup errors are retried; an on-chain failure or an
// expired blockhash ends polling at once.
func (d *Driver) confirm(ctx context.Context, req blockchain.ConfirmRequest) error {
	_, err := RetryWithBackoff(ctx, func(ctx context.Context) (struct{}, error) {
		st, err := d.conn.ConfirmTransaction(ctx, req, d.opts.commitment)
		switch {
		case errors.Is(err, blockchain.ErrTransactionExpired):
			return struct{}{}, backoff.Permanent(err)
		case err != nil:
			return struct{}{}, err
		case st.Failed():
			return struct{}{}, backoff.Permanent(fmt.Errorf("transaction failed on chain: %w", st.Err))
		case st == nil || !st.Confirmed:
			return struct{}{}, errPending
		}
		return struct{}{}, nil
	}, d.opts.confirmPolicy)

	if errors.Is(err, errPending) {
		return ErrConfirmationTimeout
	}
	return err
}
