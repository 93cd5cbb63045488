// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Signer is the only capability the submission pipeline needs from a wallet:
// it can report its address and sign, and never exposes key material.
type Signer interface {
	PublicKey() solana.PublicKey
	// SignTransaction returns a signed copy of tx. It may block on user
	// interaction and may fail, e.g. when the user declines.
	SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
}

// ErrUserRejected is returned by interactive signers when the user declines.
var ErrUserRejected = errors.New("user rejected the request")

// Wallet представляет кошелёк Solana на основе локального ключа.
type Wallet struct {
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey

	mu       sync.Mutex
	ataCache map[solana.PublicKey]solana.PublicKey // кеш ATA по mint
}

var _ Signer = (*Wallet)(nil)

// NewWallet создаёт новый кошелёк из base58-encoded приватного ключа.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	return FromPrivateKey(solana.PrivateKey(privateKeyBytes)), nil
}

// FromPrivateKey wraps an in-memory keypair.
func FromPrivateKey(key solana.PrivateKey) *Wallet {
	return &Wallet{
		privateKey: key,
		publicKey:  key.PublicKey(),
		ataCache:   make(map[solana.PublicKey]solana.PublicKey),
	}
}

// LoadWallets загружает кошельки из CSV-файла с колонками: [Name, PrivateKeyBase58].
// Rows that fail to parse are skipped and reported in the returned error
// only when no wallet could be loaded at all.
func LoadWallets(path string) (map[string]*Wallet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV file is empty or missing data")
	}

	wallets := make(map[string]*Wallet)
	var skipped []string
	for i, record := range records[1:] {
		if len(record) != 2 {
			skipped = append(skipped, fmt.Sprintf("row %d: expected 2 columns", i+2))
			continue
		}
		name := strings.TrimSpace(record[0])
		w, err := NewWallet(record[1])
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("row %d (%s): %v", i+2, name, err))
			continue
		}
		wallets[name] = w
	}
	if len(wallets) == 0 {
		return nil, fmt.Errorf("no valid wallets in %s: %s", path, strings.Join(skipped, "; "))
	}
	return wallets, nil
}

// PublicKey returns the wallet address.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.publicKey
}

// SignTransaction подписывает копию транзакции приватным ключом кошелька.
func (w *Wallet) SignTransaction(_ context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	if tx == nil {
		return nil, errors.New("nil transaction")
	}
	signed := *tx
	signed.Signatures = nil
	_, err := signed.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.publicKey) {
			return &w.privateKey
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return &signed, nil
}

// ATA возвращает адрес ассоциированного токен-аккаунта (ATA) для заданного mint.
// Если адрес уже был вычислен ранее, возвращается значение из кеша.
func (w *Wallet) ATA(mint solana.PublicKey) (solana.PublicKey, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ata, ok := w.ataCache[mint]; ok {
		return ata, nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(w.publicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	w.ataCache[mint] = ata
	return ata, nil
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.publicKey.String()
}
