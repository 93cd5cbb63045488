package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/manifoldco/promptui"
)

// Prompter asks the user to approve a signature request. It returns nil on
// approval, promptui.ErrAbort or promptui.ErrInterrupt when declined.
type Prompter func(label string) error

// TerminalPrompter asks for a y/N confirmation on the terminal.
func TerminalPrompter(label string) error {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	return err
}

// ConfirmingSigner puts a human approval step in front of another signer,
// the way a browser wallet pops up before signing.
type ConfirmingSigner struct {
	inner    Signer
	prompt   Prompter
	describe func(tx *solana.Transaction) string
}

var _ Signer = (*ConfirmingSigner)(nil)

// NewConfirmingSigner wraps inner. A nil prompt defaults to TerminalPrompter.
func NewConfirmingSigner(inner Signer, prompt Prompter) *ConfirmingSigner {
	if prompt == nil {
		prompt = TerminalPrompter
	}
	return &ConfirmingSigner{
		inner:    inner,
		prompt:   prompt,
		describe: describeTransaction,
	}
}

func (s *ConfirmingSigner) PublicKey() solana.PublicKey {
	return s.inner.PublicKey()
}

func (s *ConfirmingSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.prompt(s.describe(tx)); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil, ErrUserRejected
		}
		return nil, fmt.Errorf("signature prompt: %w", err)
	}
	return s.inner.SignTransaction(ctx, tx)
}

func describeTransaction(tx *solana.Transaction) string {
	if tx == nil {
		return "Sign transaction"
	}
	return fmt.Sprintf("Sign transaction with %d instruction(s), blockhash %s",
		len(tx.Message.Instructions), tx.Message.RecentBlockhash)
}
