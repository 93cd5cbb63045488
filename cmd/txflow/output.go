package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/itchyny/gojq"
	"github.com/shopspring/decimal"
)

var lamportsPerSOL = decimal.New(1, 9)

// parseSOL converts a decimal SOL amount into lamports. Fractions below one
// lamport are rejected rather than rounded.
func parseSOL(amount string) (uint64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", amount)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %s", amount)
	}
	lamports := d.Mul(lamportsPerSOL)
	if !lamports.Equal(lamports.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than 9 decimal places", amount)
	}
	if !lamports.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount %s is too large", amount)
	}
	return lamports.BigInt().Uint64(), nil
}

// formatSOL renders lamports as SOL.
func formatSOL(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9).String()
}

// compileFilter parses a jq expression. An empty filter compiles to nil.
func compileFilter(filter string) (*gojq.Code, error) {
	if filter == "" {
		return nil, nil
	}
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}
	return code, nil
}

// writeJSON prints v as indented JSON. With a filter, v is first run
// through it and every result is printed.
func writeJSON(w io.Writer, v interface{}, code *gojq.Code) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if code == nil {
		return enc.Encode(v)
	}

	// gojq works on plain JSON values, not structs.
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var input interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return err
	}

	iter := code.Run(input)
	for {
		out, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := out.(error); isErr {
			return fmt.Errorf("jq: %w", err)
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
}
