package solbc

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// AnchorError represents an error from Anchor framework
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// RPCFailure is an RPC error flattened into one readable line: the node's
// message, the transaction error and the interesting program logs. The
// original error stays reachable through Unwrap.
type RPCFailure struct {
	Code   int
	Text   string
	Logs   []string
	Anchor *AnchorError
	err    error
}

func (e *RPCFailure) Error() string {
	return e.Text
}

func (e *RPCFailure) Unwrap() error {
	return e.err
}

var transportPrefix = regexp.MustCompile(`^(?:node \S+: )?(?:rpc call \w+\(\) on \S+: )?`)

// DescribeError flattens err for display and classification. Transport
// errors lose the "rpc call <method>() on <url>" prefix; node answers are
// expanded with the simulation error and logs.
func DescribeError(err error) error {
	if err == nil {
		return nil
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		text := transportPrefix.ReplaceAllString(err.Error(), "")
		if text == err.Error() {
			return err
		}
		return &RPCFailure{Text: text, err: err}
	}

	failure := &RPCFailure{
		Code: rpcErr.Code,
		err:  err,
	}
	parts := []string{rpcErr.Message}

	if data, ok := rpcErr.Data.(map[string]interface{}); ok {
		if txErr, ok := data["err"]; ok && txErr != nil {
			parts = append(parts, DescribeTransactionError(txErr).Error())
		}
		if logs, ok := data["logs"].([]interface{}); ok {
			for _, entry := range logs {
				line, ok := entry.(string)
				if !ok {
					continue
				}
				failure.Logs = append(failure.Logs, line)
				if strings.Contains(line, "AnchorError occurred") {
					anchor := parseAnchorErrorLog(line)
					failure.Anchor = &anchor
					parts = append(parts, fmt.Sprintf("anchor error %s (%d): %s", anchor.Name, anchor.Code, anchor.Msg))
				} else if interestingLog(line) {
					parts = append(parts, strings.TrimPrefix(line, "Program log: "))
				}
			}
		}
	}

	failure.Text = strings.Join(parts, "; ")
	return failure
}

func interestingLog(line string) bool {
	l := strings.ToLower(line)
	return strings.Contains(l, "error") || strings.Contains(l, "insufficient") || strings.Contains(l, "slippage")
}

// DescribeTransactionError renders a TransactionError as decoded from JSON
// (a string such as "AccountNotFound" or an object such as
// {"InstructionError":[2,{"Custom":6004}]}) into text.
func DescribeTransactionError(v interface{}) error {
	switch e := v.(type) {
	case nil:
		return nil
	case string:
		return errors.New(humanize(e))
	case map[string]interface{}:
		if ix, ok := e["InstructionError"].([]interface{}); ok && len(ix) == 2 {
			idx, _ := toUint64(ix[0])
			return fmt.Errorf("instruction %d: %s", idx, describeInstructionError(ix[1]))
		}
		for name, detail := range e {
			return fmt.Errorf("%s: %v", humanize(name), detail)
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%v", v)
	}
	return errors.New(string(raw))
}

func describeInstructionError(v interface{}) string {
	switch e := v.(type) {
	case string:
		return humanize(e)
	case map[string]interface{}:
		if code, ok := toUint64(e["Custom"]); ok {
			return fmt.Sprintf("custom program error: 0x%x", code)
		}
		for name, detail := range e {
			return fmt.Sprintf("%s: %v", humanize(name), detail)
		}
	}
	return fmt.Sprintf("%v", v)
}

func toUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		return uint64(n), true
	case json.Number:
		i, err := n.Int64()
		return uint64(i), err == nil
	case int:
		return uint64(n), true
	case uint64:
		return n, true
	}
	return 0, false
}

// humanize turns "InsufficientFundsForRent" into "insufficient funds for rent".
func humanize(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte(' ')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// parseAnchorErrorLog parses an Anchor error log string
// Example: "Program log: AnchorError occurred. Error Code: InstructionFallbackNotFound. Error Number: 101. Error Message: Fallback functions are not supported."
func parseAnchorErrorLog(logStr string) AnchorError {
	result := AnchorError{}

	if parts := strings.Split(logStr, "Error Number:"); len(parts) > 1 {
		numParts := strings.Split(parts[1], ".")
		_, _ = fmt.Sscanf(strings.TrimSpace(numParts[0]), "%d", &result.Code)
	}

	if parts := strings.Split(logStr, "Error Code:"); len(parts) > 1 {
		result.Name = strings.TrimSpace(strings.Split(parts[1], ".")[0])
	}

	if parts := strings.Split(logStr, "Error Message:"); len(parts) > 1 {
		result.Msg = strings.TrimSuffix(strings.TrimSpace(parts[1]), ".")
	}

	return result
}
