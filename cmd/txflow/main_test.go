package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-txflow/internal/wallet"
)

func TestParseSOL(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		want    uint64
		wantErr bool
	}{
		{name: "whole", amount: "2", want: 2_000_000_000},
		{name: "fraction", amount: "0.05", want: 50_000_000},
		{name: "one lamport", amount: "0.000000001", want: 1},
		{name: "sub lamport", amount: "0.0000000001", wantErr: true},
		{name: "zero", amount: "0", wantErr: true},
		{name: "negative", amount: "-1", wantErr: true},
		{name: "garbage", amount: "abc", wantErr: true},
		{name: "overflow", amount: "100000000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSOL(tt.amount)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatSOL(t *testing.T) {
	assert.Equal(t, "1.5", formatSOL(1_500_000_000))
	assert.Equal(t, "0.000000001", formatSOL(1))
	assert.Equal(t, "0", formatSOL(0))
}

func TestWriteJSONWithFilter(t *testing.T) {
	value := []nodeOutput{
		{URL: "http://a", Healthy: true, LatencyMs: 12},
		{URL: "http://b", Healthy: false},
	}

	tests := []struct {
		name   string
		filter string
		want   []interface{}
	}{
		{name: "select healthy urls", filter: `.[] | select(.healthy) | .url`, want: []interface{}{"http://a"}},
		{name: "count", filter: `length`, want: []interface{}{float64(2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := compileFilter(tt.filter)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, writeJSON(&buf, value, code))

			dec := json.NewDecoder(&buf)
			var got []interface{}
			for dec.More() {
				var v interface{}
				require.NoError(t, dec.Decode(&v))
				got = append(got, v)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteJSONWithoutFilter(t *testing.T) {
	code, err := compileFilter("")
	require.NoError(t, err)
	assert.Nil(t, code)

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, balanceOutput{Address: "x", Lamports: 5, SOL: "0.000000005"}, code))
	assert.Contains(t, buf.String(), `"lamports": 5`)
}

func TestCompileFilterRejectsInvalid(t *testing.T) {
	_, err := compileFilter(".[")
	assert.Error(t, err)
}

func TestAppCommands(t *testing.T) {
	app := newApp()
	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.ElementsMatch(t, []string{"transfer", "balance", "position", "status", "nodes"}, names)
}

func TestTransferRejectsBadAmountBeforeLoadingConfig(t *testing.T) {
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run([]string{"txflow", "--config", "does-not-exist.json",
		"transfer", "--to", "11111111111111111111111111111111", "--amount", "1.0000000001"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "decimal places"), err.Error())
}

func TestStatusRejectsBadSignature(t *testing.T) {
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run([]string{"txflow", "status", "not-a-signature"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid signature")
}

func TestTokenAccountsResolvesAssociatedAccounts(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w := wallet.FromPrivateKey(key)
	mint := solana.NewWallet().PublicKey()

	got, err := tokenAccounts(w, []string{mint.String()})
	require.NoError(t, err)

	want, _, err := solana.FindAssociatedTokenAddress(w.PublicKey(), mint)
	require.NoError(t, err)
	assert.Equal(t, []solana.PublicKey{want}, got)

	_, err = tokenAccounts(w, []string{"not-a-mint"})
	assert.ErrorContains(t, err, "invalid mint")
}
