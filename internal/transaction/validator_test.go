package transaction

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest(t *testing.T) {
	w := newTestWallet(t)
	other := newTestWallet(t)
	ix := system.NewTransferInstruction(1, w.PublicKey(), other.PublicKey()).Build()

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{name: "no signer", req: Request{Instructions: []solana.Instruction{ix}, FeePayer: w.PublicKey()}, want: ErrInvalidRequest},
		{name: "no instructions", req: Request{Signer: w, FeePayer: w.PublicKey()}, want: ErrNoInstructions},
		{name: "nil instruction", req: Request{Signer: w, FeePayer: w.PublicKey(), Instructions: []solana.Instruction{nil}}, want: ErrInvalidRequest},
		{name: "no fee payer", req: Request{Signer: w, Instructions: []solana.Instruction{ix}}, want: ErrInvalidRequest},
		{name: "payer mismatch", req: Request{Signer: w, FeePayer: other.PublicKey(), Instructions: []solana.Instruction{ix}}, want: ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			require.NotNil(t, err)
			assert.Equal(t, CodeUnknown, err.Code)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Nil(t, ValidateRequest(Request{Signer: w, FeePayer: w.PublicKey(), Instructions: []solana.Instruction{ix}}))
}

func TestNewRequestFillsFeePayer(t *testing.T) {
	w := newTestWallet(t)
	req := transferRequest(t, w)
	assert.Equal(t, w.PublicKey(), req.FeePayer)
	assert.Equal(t, "test-transfer", req.Label)

	_, err := NewRequest(w, "empty")
	assert.ErrorIs(t, err, ErrNoInstructions)
}

func TestRequestBuilderPrependsComputeBudget(t *testing.T) {
	w := newTestWallet(t)
	req := transferRequest(t, w)
	req.Priority = Priority{ComputeUnits: 200_000, MicroLamports: 1_000}

	tx, err := req.Builder()(context.Background(), testHash(7))
	require.NoError(t, err)
	require.Len(t, tx.Message.Instructions, 3)
	assert.Equal(t, testHash(7), tx.Message.RecentBlockhash)

	first, err := tx.Message.Program(tx.Message.Instructions[0].ProgramIDIndex)
	require.NoError(t, err)
	assert.Equal(t, solana.ComputeBudget, first)

	last, err := tx.Message.Program(tx.Message.Instructions[2].ProgramIDIndex)
	require.NoError(t, err)
	assert.Equal(t, solana.SystemProgramID, last)
	assert.Nil(t, validateBuilt(tx, testHash(7)))
}

func TestValidateBuilt(t *testing.T) {
	w := newTestWallet(t)
	tx, err := transferRequest(t, w).Builder()(context.Background(), testHash(1))
	require.NoError(t, err)

	assert.ErrorIs(t, validateBuilt(nil, testHash(1)), ErrInvalidRequest)
	assert.ErrorIs(t, validateBuilt(tx, testHash(2)), ErrStaleRecentHash)
	assert.Nil(t, validateBuilt(tx, testHash(1)))
}

func TestValidateSigned(t *testing.T) {
	w := newTestWallet(t)
	tx, err := transferRequest(t, w).Builder()(context.Background(), testHash(1))
	require.NoError(t, err)

	assert.ErrorIs(t, validateSigned(nil), ErrInvalidSignature)
	assert.ErrorIs(t, validateSigned(tx), ErrInvalidSignature, "unsigned")

	tx.Signatures = []solana.Signature{{}}
	assert.ErrorIs(t, validateSigned(tx), ErrInvalidSignature, "zero signature")

	signed, err := w.SignTransaction(context.Background(), tx)
	require.NoError(t, err)
	assert.Nil(t, validateSigned(signed))
}

func TestPriorityFor(t *testing.T) {
	p, err := PriorityFor("")
	require.NoError(t, err)
	assert.Empty(t, p.Instructions())

	p, err = PriorityFor("HIGH")
	require.NoError(t, err)
	assert.Equal(t, Priority{ComputeUnits: 800_000, MicroLamports: 10_000}, p)
	assert.Len(t, p.Instructions(), 2)

	_, err = PriorityFor("ludicrous")
	assert.Error(t, err)

	assert.Len(t, Priority{MicroLamports: 5}.Instructions(), 1)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "confirming", PhaseConfirming.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
