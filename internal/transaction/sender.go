// internal/transaction/sender.go
package transaction

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txflow/internal/blockchain"
	"github.com/rovshanmuradov/solana-txflow/internal/events"
	"github.com/rovshanmuradov/solana-txflow/internal/wallet"
)

// Request is an unsigned transfer of intent: instructions plus the fee payer
// and the signer that will authorise them. The blockhash is filled in by the
// driver on every attempt.
type Request struct {
	Instructions []solana.Instruction
	FeePayer     solana.PublicKey
	Signer       wallet.Signer
	Priority     Priority
	Label        string
}

// NewRequest builds a request paid for by signer and validates it.
func NewRequest(signer wallet.Signer, label string, instructions ...solana.Instruction) (Request, error) {
	req := Request{
		Instructions: append([]solana.Instruction(nil), instructions...),
		Signer:       signer,
		Label:        label,
	}
	if signer != nil {
		req.FeePayer = signer.PublicKey()
	}
	if err := ValidateRequest(req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Builder returns a PayloadBuilder producing the request's transaction for a
// given recent blockhash. Compute budget instructions come first.
func (r Request) Builder() PayloadBuilder {
	return func(_ context.Context, recent solana.Hash) (*solana.Transaction, error) {
		instructions := append(r.Priority.Instructions(), r.Instructions...)
		tx, err := solana.NewTransaction(instructions, recent, solana.TransactionPayer(r.FeePayer))
		if err != nil {
			return nil, fmt.Errorf("failed to create new transaction: %w", err)
		}
		return tx, nil
	}
}

// Result is the outcome of SendTx. Exactly one of Signature and Err is set.
type Result struct {
	Signature solana.Signature
	Err       *Error
}

// OK reports whether the submission was confirmed.
func (r Result) OK() bool {
	return r.Err == nil
}

// Sender drives one submission at a time through
// idle -> signing -> sending -> confirming -> idle.
// A call made while another is in flight is rejected with ErrBusy.
type Sender struct {
	name   string
	phase  atomic.Int32
	flight atomic.Bool

	mu      sync.Mutex
	lastSig solana.Signature

	driver    *Driver
	publisher events.Publisher
	metrics   *Metrics
	logger    *zap.Logger
}

// NewSender creates an idle sender on top of conn.
func NewSender(conn blockchain.Connector, opts ...Option) *Sender {
	o := newDriverOptions(opts)
	name := o.name
	if name == "" {
		name = "default"
	}
	logger := o.logger.Named("sender").With(zap.String("sender", name))
	o.logger = logger
	return &Sender{
		name:      name,
		driver:    &Driver{conn: conn, opts: o},
		publisher: o.publisher,
		metrics:   o.metrics,
		logger:    logger,
	}
}

// Phase returns the current phase.
func (s *Sender) Phase() Phase {
	return Phase(s.phase.Load())
}

// IsInFlight reports whether a submission is running.
func (s *Sender) IsInFlight() bool {
	return s.flight.Load()
}

// LastSignature returns the most recently broadcast signature. It survives
// the return to idle.
func (s *Sender) LastSignature() (solana.Signature, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSig, !s.lastSig.IsZero()
}

// SendTx submits req and blocks until it is confirmed or fails. It never
// returns a raw error and never panics; every failure is classified.
func (s *Sender) SendTx(ctx context.Context, req Request) (res Result) {
	if !s.flight.CompareAndSwap(false, true) {
		s.metrics.recordBusy()
		return Result{Err: ErrBusy}
	}
	s.setPhase(PhaseSigning)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic during submission",
				zap.Any("panic", r),
				zap.Stack("stack"))
			res = Result{Err: NewError(CodeUnknown, fmt.Errorf("panic: %v", r))}
		}
		s.setPhase(PhaseIdle)
		s.flight.Store(false)
		s.finish(req.Label, res, time.Since(start))
	}()

	if err := ValidateRequest(req); err != nil {
		return Result{Err: err}
	}

	sig, err := s.driver.send(ctx, req.Builder(), req.Signer, s.hooks(req.Label))
	if err != nil {
		return Result{Err: err}
	}
	return Result{Signature: sig}
}

func (s *Sender) hooks(label string) Hooks {
	return Hooks{
		OnSigning: func(int) { s.setPhase(PhaseSigning) },
		OnSending: func(int) { s.setPhase(PhaseSending) },
		OnSubmitted: func(attempt int, sig solana.Signature) {
			s.mu.Lock()
			s.lastSig = sig
			s.mu.Unlock()
			s.publish(&events.TxSubmittedEvent{
				BaseEvent: events.NewBase(events.TxSubmitted),
				Sender:    s.name,
				Label:     label,
				Signature: sig.String(),
				Attempt:   attempt,
			})
		},
		OnConfirming: func(int, solana.Signature) { s.setPhase(PhaseConfirming) },
		OnRebuild: func(attempt int, _ *Error) {
			s.publish(&events.TxRebuiltEvent{
				BaseEvent: events.NewBase(events.TxRebuilt),
				Sender:    s.name,
				Label:     label,
				Attempt:   attempt,
			})
		},
	}
}

func (s *Sender) setPhase(to Phase) {
	from := Phase(s.phase.Swap(int32(to)))
	if from == to {
		return
	}
	s.logger.Debug("Phase changed", zap.Stringer("from", from), zap.Stringer("to", to))
	s.publish(&events.PhaseChangedEvent{
		BaseEvent: events.NewBase(events.PhaseChanged),
		Sender:    s.name,
		From:      from.String(),
		To:        to.String(),
	})
}

func (s *Sender) finish(label string, res Result, elapsed time.Duration) {
	if res.OK() {
		s.metrics.recordSubmission("ok", elapsed)
		s.logger.Info("Transaction confirmed",
			zap.String("label", label),
			zap.String("signature", res.Signature.String()),
			zap.Duration("elapsed", elapsed))
		s.publish(&events.TxConfirmedEvent{
			BaseEvent: events.NewBase(events.TxConfirmed),
			Sender:    s.name,
			Label:     label,
			Signature: res.Signature.String(),
			Duration:  elapsed,
		})
		return
	}

	s.metrics.recordSubmission(string(res.Err.Code), elapsed)
	s.logger.Warn("Transaction failed",
		zap.String("label", label),
		zap.String("code", string(res.Err.Code)),
		zap.NamedError("cause", res.Err.Unwrap()))
	s.publish(&events.TxFailedEvent{
		BaseEvent: events.NewBase(events.TxFailed),
		Sender:    s.name,
		Label:     label,
		Code:      string(res.Err.Code),
		Message:   res.Err.Message,
	})
}

func (s *Sender) publish(event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(event); err != nil {
		s.logger.Debug("Event not published",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}
