// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/solana-txflow/internal/transaction"
)

type RetryConfig struct {
	MaxAttempts int     `mapstructure:"max_attempts"`
	BaseDelayMs int     `mapstructure:"base_delay_ms"`
	Multiplier  float64 `mapstructure:"multiplier"`
	MaxDelayMs  int     `mapstructure:"max_delay_ms"`
}

// Policy converts the config block into a retry policy.
func (r RetryConfig) Policy() transaction.RetryPolicy {
	return transaction.RetryPolicy{
		MaxAttempts: r.MaxAttempts,
		BaseDelay:   time.Duration(r.BaseDelayMs) * time.Millisecond,
		Multiplier:  r.Multiplier,
		MaxDelay:    time.Duration(r.MaxDelayMs) * time.Millisecond,
	}
}

type Config struct {
	RPCList         []string    `mapstructure:"rpc_list"`
	Commitment      string      `mapstructure:"commitment"`
	SkipPreflight   bool        `mapstructure:"skip_preflight"`
	Priority        string      `mapstructure:"priority"`
	SendMaxAttempts int         `mapstructure:"send_max_attempts"`
	BlockhashRetry  RetryConfig `mapstructure:"blockhash_retry"`
	ConfirmRetry    RetryConfig `mapstructure:"confirm_retry"`

	WalletsFile   string `mapstructure:"wallets_file"`
	DefaultWallet string `mapstructure:"default_wallet"`

	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
	MetricsAddr  string `mapstructure:"metrics_addr"`

	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
	CacheSize       int `mapstructure:"cache_size"`

	License       string `mapstructure:"license"`
	KeygenAccount string `mapstructure:"keygen_account"`
	KeygenProduct string `mapstructure:"keygen_product"`
	KeygenToken   string `mapstructure:"keygen_token"`
}

const (
	EnvPrefix = "TXFLOW"

	DefaultCommitment      = "confirmed"
	DefaultWalletsFile     = "configs/wallets.csv"
	DefaultCacheTTLSeconds = 60
	DefaultCacheSize       = 512
)

func defaults() map[string]interface{} {
	bh := transaction.DefaultBlockhashPolicy
	cf := transaction.DefaultConfirmPolicy
	return map[string]interface{}{
		"rpc_list":                      []string{},
		"commitment":                    DefaultCommitment,
		"skip_preflight":                false,
		"priority":                      "",
		"send_max_attempts":             transaction.DefaultSendAttempts,
		"blockhash_retry.max_attempts":  bh.MaxAttempts,
		"blockhash_retry.base_delay_ms": bh.BaseDelay.Milliseconds(),
		"blockhash_retry.multiplier":    bh.Multiplier,
		"blockhash_retry.max_delay_ms":  bh.MaxDelay.Milliseconds(),
		"confirm_retry.max_attempts":    cf.MaxAttempts,
		"confirm_retry.base_delay_ms":   cf.BaseDelay.Milliseconds(),
		"confirm_retry.multiplier":      cf.Multiplier,
		"confirm_retry.max_delay_ms":    cf.MaxDelay.Milliseconds(),
		"wallets_file":                  DefaultWalletsFile,
		"default_wallet":                "",
		"debug_logging":                 false,
		"log_file":                      "",
		"metrics_addr":                  "",
		"cache_ttl_seconds":             DefaultCacheTTLSeconds,
		"cache_size":                    DefaultCacheSize,
		"license":                       "",
		"keygen_account":                "",
		"keygen_product":                "",
		"keygen_token":                  "",
	}
}

// LoadConfig reads path (JSON or YAML, by extension) and applies TXFLOW_*
// environment overrides, e.g. TXFLOW_CONFIRM_RETRY_MAX_ATTEMPTS.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	loadEnvironmentVariables(v, &cfg)

	return &cfg, validateConfig(&cfg)
}

// CommitmentType returns the configured commitment level.
func (c *Config) CommitmentType() rpc.CommitmentType {
	return rpc.CommitmentType(c.Commitment)
}

// CacheTTL returns the position cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// LicenseRequired reports whether a Keygen account is configured.
func (c *Config) LicenseRequired() bool {
	return c.KeygenAccount != ""
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", rpcURL, err)
		}
	}
	switch rpc.CommitmentType(cfg.Commitment) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return fmt.Errorf("invalid commitment %q", cfg.Commitment)
	}
	if _, err := transaction.PriorityFor(cfg.Priority); err != nil {
		return err
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if cfg.LicenseRequired() && cfg.License == "" {
		return errors.New("missing license in configuration")
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.SendMaxAttempts < 1 {
		return errors.New("invalid send_max_attempts")
	}
	if err := cfg.BlockhashRetry.Policy().Validate(); err != nil {
		return fmt.Errorf("invalid blockhash_retry: %w", err)
	}
	if err := cfg.ConfirmRetry.Policy().Validate(); err != nil {
		return fmt.Errorf("invalid confirm_retry: %w", err)
	}
	if cfg.CacheTTLSeconds <= 0 {
		return errors.New("invalid cache_ttl_seconds")
	}
	if cfg.CacheSize <= 0 {
		return errors.New("invalid cache_size")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// loadEnvironmentVariables re-reads TXFLOW_RPC_LIST as a comma separated
// list with blanks trimmed.
func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	envRPCList := v.GetString("RPC_LIST")
	if envRPCList == "" {
		return
	}
	var cleanRPCs []string
	for _, raw := range strings.Split(envRPCList, ",") {
		clean := strings.TrimSpace(raw)
		if clean != "" {
			cleanRPCs = append(cleanRPCs, clean)
		}
	}
	if len(cleanRPCs) > 0 {
		cfg.RPCList = cleanRPCs
	}
}
