package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-txflow/internal/transaction"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{"rpc_list": ["https://api.devnet.solana.com"]}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://api.devnet.solana.com"}, cfg.RPCList)
	assert.Equal(t, rpc.CommitmentConfirmed, cfg.CommitmentType())
	assert.Equal(t, transaction.DefaultSendAttempts, cfg.SendMaxAttempts)
	assert.Equal(t, transaction.DefaultBlockhashPolicy, cfg.BlockhashRetry.Policy())
	assert.Equal(t, transaction.DefaultConfirmPolicy, cfg.ConfirmRetry.Policy())
	assert.Equal(t, DefaultWalletsFile, cfg.WalletsFile)
	assert.Equal(t, time.Duration(DefaultCacheTTLSeconds)*time.Second, cfg.CacheTTL())
	assert.False(t, cfg.LicenseRequired())
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
rpc_list:
  - http://127.0.0.1:8899
commitment: finalized
priority: high
send_max_attempts: 5
confirm_retry:
  max_attempts: 10
  base_delay_ms: 250
  multiplier: 1.5
  max_delay_ms: 2000
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, rpc.CommitmentFinalized, cfg.CommitmentType())
	assert.Equal(t, "high", cfg.Priority)
	assert.Equal(t, 5, cfg.SendMaxAttempts)
	assert.Equal(t, transaction.RetryPolicy{
		MaxAttempts: 10,
		BaseDelay:   250 * time.Millisecond,
		Multiplier:  1.5,
		MaxDelay:    2 * time.Second,
	}, cfg.ConfirmRetry.Policy())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, "config.json", `{"rpc_list": ["https://api.devnet.solana.com"], "send_max_attempts": 3}`)
	t.Setenv("TXFLOW_RPC_LIST", " http://a:8899 , ,http://b:8899")
	t.Setenv("TXFLOW_SEND_MAX_ATTEMPTS", "7")
	t.Setenv("TXFLOW_CONFIRM_RETRY_MAX_ATTEMPTS", "12")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"http://a:8899", "http://b:8899"}, cfg.RPCList)
	assert.Equal(t, 7, cfg.SendMaxAttempts)
	assert.Equal(t, 12, cfg.ConfirmRetry.MaxAttempts)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "no nodes", content: `{}`, wantErr: "rpc_list is empty"},
		{name: "bad scheme", content: `{"rpc_list": ["ws://node"]}`, wantErr: "invalid RPC URL"},
		{name: "bad commitment", content: `{"rpc_list": ["http://node"], "commitment": "instant"}`, wantErr: "invalid commitment"},
		{name: "bad priority", content: `{"rpc_list": ["http://node"], "priority": "ludicrous"}`, wantErr: "unknown priority level"},
		{name: "zero attempts", content: `{"rpc_list": ["http://node"], "send_max_attempts": 0}`, wantErr: "send_max_attempts"},
		{name: "bad confirm policy", content: `{"rpc_list": ["http://node"], "confirm_retry": {"multiplier": 0.5}}`, wantErr: "invalid confirm_retry"},
		{name: "bad cache size", content: `{"rpc_list": ["http://node"], "cache_size": -1}`, wantErr: "cache_size"},
		{name: "license missing", content: `{"rpc_list": ["http://node"], "keygen_account": "acc"}`, wantErr: "missing license"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, "config.json", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
