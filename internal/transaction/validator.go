package transaction

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Validation failures are programming errors on the caller's side. They are
// returned pre-classified as Unknown so their wording never trips the
// message-based classifier.
var (
	ErrInvalidRequest   = errors.New("invalid transaction request")
	ErrInvalidSignature = errors.New("invalid transaction signature")
	ErrStaleRecentHash  = errors.New("payload does not reference the fetched recent hash")
	ErrNoInstructions   = errors.New("transaction has no instructions")
)

func invalid(sentinel error, format string, args ...interface{}) *Error {
	if format == "" {
		return NewError(CodeUnknown, sentinel)
	}
	return NewError(CodeUnknown, fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)))
}

// ValidateRequest checks a request before any RPC traffic happens.
func ValidateRequest(req Request) *Error {
	if req.Signer == nil {
		return invalid(ErrInvalidRequest, "signer is required")
	}
	if len(req.Instructions) == 0 {
		return invalid(ErrNoInstructions, "")
	}
	for i, ix := range req.Instructions {
		if ix == nil {
			return invalid(ErrInvalidRequest, "instruction %d is nil", i)
		}
	}
	if req.FeePayer.IsZero() {
		return invalid(ErrInvalidRequest, "fee payer is required")
	}
	if !req.FeePayer.Equals(req.Signer.PublicKey()) {
		return invalid(ErrInvalidRequest, "fee payer %s does not match signer %s", req.FeePayer, req.Signer.PublicKey())
	}
	return nil
}

// validateBuilt checks the builder honoured the recent hash it was handed.
func validateBuilt(tx *solana.Transaction, recent solana.Hash) *Error {
	if tx == nil {
		return invalid(ErrInvalidRequest, "payload builder returned nil")
	}
	if len(tx.Message.Instructions) == 0 {
		return invalid(ErrNoInstructions, "")
	}
	if tx.Message.RecentBlockhash != recent {
		return invalid(ErrStaleRecentHash, "")
	}
	return nil
}

// validateSigned checks the signer produced a complete set of signatures.
func validateSigned(tx *solana.Transaction) *Error {
	if tx == nil {
		return invalid(ErrInvalidSignature, "signer returned nil")
	}
	want := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) == 0 || len(tx.Signatures) != want {
		return invalid(ErrInvalidSignature, "have %d signatures, need %d", len(tx.Signatures), want)
	}
	for i, sig := range tx.Signatures {
		if sig.IsZero() {
			return invalid(ErrInvalidSignature, "signature %d is empty", i)
		}
	}
	return nil
}
