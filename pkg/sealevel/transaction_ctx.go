package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/accounts"
)

const MaxInstructionStackDepth = 5

type TransactionAccounts struct {
	Accounts []*accounts.Account
	Touched  []bool
}

func NewTransactionAccounts(accts []accounts.Account) *TransactionAccounts {
	txAccounts := new(TransactionAccounts)
	for idx := range accts {
		txAccounts.Accounts = append(txAccounts.Accounts, &accts[idx])
	}
	txAccounts.Touched = make([]bool, len(accts))
	return txAccounts
}

func (txAccounts *TransactionAccounts) GetAccount(idx uint64) (*accounts.Account, error) {
	if idx >= uint64(len(txAccounts.Accounts)) {
		return nil, InstrErrNotEnoughAccountKeys
	}
	return txAccounts.Accounts[idx], nil
}

func (txAccounts *TransactionAccounts) Touch(idx uint64) error {
	if idx >= uint64(len(txAccounts.Touched)) {
		return InstrErrNotEnoughAccountKeys
	}
	txAccounts.Touched[idx] = true
	return nil
}

type TransactionCtx struct {
	Accounts                 *TransactionAccounts
	MaxInstructionStackDepth uint64
	instructionStack         []*InstructionCtx
	instructionTrace         []*InstructionCtx
}

func NewTransactionCtx(txAccts *TransactionAccounts, maxStackDepth uint64) *TransactionCtx {
	return &TransactionCtx{Accounts: txAccts, MaxInstructionStackDepth: maxStackDepth}
}

func (txCtx *TransactionCtx) KeyOfAccountAtIndex(index uint64) (solana.PublicKey, error) {
	acct, err := txCtx.Accounts.GetAccount(index)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return acct.Key, nil
}

func (txCtx *TransactionCtx) AccountAtIndex(index uint64) (*accounts.Account, error) {
	return txCtx.Accounts.GetAccount(index)
}

func (txCtx *TransactionCtx) IndexOfAccount(pubkey solana.PublicKey) (uint64, error) {
	for idx, acct := range txCtx.Accounts.Accounts {
		if acct.Key == pubkey {
			return uint64(idx), nil
		}
	}
	return 0, InstrErrMissingAccount
}

func (txCtx *TransactionCtx) InstructionCtxStackHeight() uint64 {
	return uint64(len(txCtx.instructionStack))
}

func (txCtx *TransactionCtx) InstructionCtxAtNestingLevel(level uint64) (*InstructionCtx, error) {
	if level >= txCtx.InstructionCtxStackHeight() {
		return nil, InstrErrCallDepth
	}
	return txCtx.instructionStack[level], nil
}

func (txCtx *TransactionCtx) CurrentInstructionCtx() (*InstructionCtx, error) {
	height := txCtx.InstructionCtxStackHeight()
	if height == 0 {
		return nil, InstrErrCallDepth
	}
	return txCtx.instructionStack[height-1], nil
}

func (txCtx *TransactionCtx) Push(instrCtx *InstructionCtx) error {
	if txCtx.InstructionCtxStackHeight() >= txCtx.MaxInstructionStackDepth {
		return InstrErrCallDepth
	}
	txCtx.instructionStack = append(txCtx.instructionStack, instrCtx)
	txCtx.instructionTrace = append(txCtx.instructionTrace, instrCtx)
	return nil
}

func (txCtx *TransactionCtx) Pop() error {
	height := txCtx.InstructionCtxStackHeight()
	if height == 0 {
		return InstrErrCallDepth
	}
	txCtx.instructionStack = txCtx.instructionStack[:height-1]
	return nil
}

// InstructionTraceLength counts every instruction executed so far,
// including cross-program invocations.
func (txCtx *TransactionCtx) InstructionTraceLength() uint64 {
	return uint64(len(txCtx.instructionTrace))
}
