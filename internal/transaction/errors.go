// internal/transaction/errors.go
package transaction

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Code is a member of the closed failure taxonomy surfaced to callers.
type Code string

const (
	CodeBusy              Code = "Busy"
	CodeUserRejected      Code = "UserRejected"
	CodeInsufficientFunds Code = "InsufficientFunds"
	CodeBlockhashExpired  Code = "BlockhashExpired"
	CodeNetworkBusy       Code = "NetworkBusy"
	CodeSlippage          Code = "Slippage"
	CodeNoPool            Code = "NoPool"
	CodeUnknown           Code = "Unknown"
)

// Retryable reports whether the driver may rebuild and resubmit after a
// failure of this kind. Only an expired blockhash qualifies.
func (c Code) Retryable() bool {
	return c == CodeBlockhashExpired
}

var messages = map[Code]string{
	CodeBusy:              "A transaction is already in progress. Wait for it to finish.",
	CodeUserRejected:      "The transaction was rejected in the wallet.",
	CodeInsufficientFunds: "Insufficient balance to cover this transaction. Top up and retry.",
	CodeBlockhashExpired:  "The transaction expired before it was confirmed. Please try again.",
	CodeNetworkBusy:       "The Solana network is congested or unreachable. Please try again shortly.",
	CodeSlippage:          "Price moved beyond your slippage tolerance. Adjust slippage and resubmit.",
	CodeNoPool:            "No liquidity pool was found for this token.",
	CodeUnknown:           "Something went wrong while sending the transaction. Please try again.",
}

// Error is a classified failure. Error() returns the user-facing message only;
// the raw cause stays reachable through Unwrap for logging.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error by code, so errors.Is(err, ErrBusy) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError builds a record with the canonical message for code.
func NewError(code Code, cause error) *Error {
	msg, ok := messages[code]
	if !ok {
		code = CodeUnknown
		msg = messages[CodeUnknown]
	}
	return &Error{Code: code, Message: msg, cause: cause}
}

// ErrBusy is returned when a submission is already in flight.
var ErrBusy = NewError(CodeBusy, nil)

type rule struct {
	code    Code
	phrases []string
	pattern *regexp.Regexp
}

func (r rule) match(msg string) bool {
	for _, p := range r.phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return r.pattern != nil && r.pattern.MatchString(msg)
}

// Order matters: a message may contain several phrases and the first rule wins.
var rules = []rule{
	{code: CodeUserRejected, phrases: []string{"user rejected", "user denied", "cancelled", "rejected the request"}},
	{
		code:    CodeInsufficientFunds,
		phrases: []string{"insufficient"},
		// SPL token InsufficientFunds; must not match 0x1774 and friends.
		pattern: regexp.MustCompile(`custom program error: 0x1\b`),
	},
	{code: CodeBlockhashExpired, phrases: []string{"blockhash", "block height exceeded", "has expired"}},
	{code: CodeNetworkBusy, phrases: []string{
		"network", "timeout", "timed out", "deadline exceeded",
		"too many requests", "connection refused", "connection reset",
	}},
	{code: CodeSlippage, phrases: []string{"slippage", "price impact", "0x1774"}},
	{code: CodeNoPool, phrases: []string{"pool not found", "no pool", "pool does not exist", "could not find pool"}},
}

// Classify maps a raw RPC or wallet error onto the closed taxonomy.
// It is pure and never returns nil.
func Classify(err error) *Error {
	if err == nil {
		return NewError(CodeUnknown, nil)
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(CodeNetworkBusy, err)
	case errors.Is(err, context.Canceled):
		return NewError(CodeUnknown, err)
	}

	msg := strings.ToLower(err.Error())
	for _, r := range rules {
		if r.match(msg) {
			return NewError(r.code, err)
		}
	}
	return NewError(CodeUnknown, err)
}
