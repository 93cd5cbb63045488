// internal/transaction/fee_manager.go
package transaction

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// PriorityLevel names a preset compute budget.
type PriorityLevel string

const (
	PriorityNone    PriorityLevel = "none"
	PriorityLow     PriorityLevel = "low"
	PriorityMedium  PriorityLevel = "medium"
	PriorityHigh    PriorityLevel = "high"
	PriorityExtreme PriorityLevel = "extreme"
)

// Priority is the compute budget prepended to a transaction.
// Zero fields emit no instruction.
type Priority struct {
	ComputeUnits  uint32 // compute unit limit
	MicroLamports uint64 // price per compute unit
}

var priorityProfiles = map[PriorityLevel]Priority{
	PriorityNone:    {},
	PriorityLow:     {ComputeUnits: 200_000, MicroLamports: 1_000},
	PriorityMedium:  {ComputeUnits: 400_000, MicroLamports: 5_000},
	PriorityHigh:    {ComputeUnits: 800_000, MicroLamports: 10_000},
	PriorityExtreme: {ComputeUnits: 1_000_000, MicroLamports: 50_000},
}

// PriorityFor resolves a named level. An empty name means PriorityNone.
func PriorityFor(level string) (Priority, error) {
	if level == "" {
		return Priority{}, nil
	}
	p, ok := priorityProfiles[PriorityLevel(strings.ToLower(level))]
	if !ok {
		return Priority{}, fmt.Errorf("unknown priority level: %s", level)
	}
	return p, nil
}

// Instructions returns the compute budget instructions for p, limit first.
func (p Priority) Instructions() []solana.Instruction {
	var instructions []solana.Instruction
	if p.ComputeUnits > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitLimitInstruction(p.ComputeUnits).Build())
	}
	if p.MicroLamports > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitPriceInstruction(p.MicroLamports).Build())
	}
	return instructions
}
