package sealevel

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// limitHook accepts transfers up to limit and remembers the accounts and
// amount of each one it accepted.
type limitHook struct {
	limit   uint64
	amounts []uint64
	seen    [][]AccountMeta
}

func (h *limitHook) execute(execCtx *ExecutionCtx) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}
	if len(instrCtx.Data) != 16 || !bytes.HasPrefix(instrCtx.Data, TransferHookExecuteDiscriminator[:]) {
		return InstrErrInvalidInstructionData
	}
	amount := binary.LittleEndian.Uint64(instrCtx.Data[8:])
	if amount > h.limit {
		return InstrErrInvalidArgument
	}

	var metas []AccountMeta
	for idx := uint64(0); idx < instrCtx.NumberOfInstructionAccounts(); idx++ {
		key, err := instrCtx.InstructionAccountKey(txCtx, idx)
		if err != nil {
			return err
		}
		isSigner, _ := instrCtx.IsInstructionAccountSigner(idx)
		isWritable, _ := instrCtx.IsInstructionAccountWritable(idx)
		metas = append(metas, AccountMeta{Pubkey: key, IsSigner: isSigner, IsWritable: isWritable})
	}
	h.amounts = append(h.amounts, amount)
	h.seen = append(h.seen, metas)
	return nil
}

type hookFixture struct {
	*tokenFixture
	hookId        solana.PublicKey
	hookAuthority solana.PublicKey
	hook          *limitHook
}

func newHookFixture(t *testing.T, limit uint64) *hookFixture {
	hookId := newTestKey(t)
	hookAuthority := newTestKey(t)
	f := newTokenFixture(t, func(f *tokenFixture) Instruction {
		return NewTokenInitializeTransferHookInstruction(f.mint, hookAuthority, hookId)
	})
	hook := &limitHook{limit: limit}
	f.rt.Programs.Register(hookId, hook.execute)
	return &hookFixture{tokenFixture: f, hookId: hookId, hookAuthority: hookAuthority, hook: hook}
}

func TestTokenProgram_TransferHook_Initialize(t *testing.T) {
	f := newHookFixture(t, 100)

	mint := f.readMint(t)
	assert.Equal(t, f.hookAuthority, mint.TransferHookAuthority)
	assert.Equal(t, f.hookId, mint.TransferHookProgramId)

	err := execute(f.rt, f.signers(), NewTokenInitializeTransferHookInstruction(f.mint, f.hookAuthority, f.hookId))
	assert.ErrorIs(t, err, TokenErrAlreadyInUse)

	plain := newTokenFixture(t)
	assert.True(t, plain.readMint(t).TransferHookProgramId.IsZero())
}

func TestTokenProgram_TransferHook_InvokedOnTransfer(t *testing.T) {
	f := newHookFixture(t, 100)
	owner := newTestKey(t)
	alice := f.newTokenAccount(t, owner)
	bob := f.newTokenAccount(t, newTestKey(t))
	extra := newTestKey(t)
	require.NoError(t, execute(f.rt, f.signers(), NewTokenMintToInstruction(f.mint, alice, f.mintAuthority, 500, 6)))

	err := execute(f.rt, f.signers(owner), NewTokenTransferWithHookInstruction(alice, f.mint, bob, owner, 60, 6,
		AccountMeta{Pubkey: extra}, AccountMeta{Pubkey: f.hookId}))
	require.NoError(t, err)
	assert.Equal(t, uint64(60), f.readTokenAccount(t, bob).Amount)

	require.Len(t, f.hook.amounts, 1)
	assert.Equal(t, uint64(60), f.hook.amounts[0])
	assert.Equal(t, []AccountMeta{
		{Pubkey: alice},
		{Pubkey: f.mint},
		{Pubkey: bob},
		{Pubkey: owner},
		{Pubkey: extra},
	}, f.hook.seen[0])
}

func TestTokenProgram_TransferHook_RejectionReverts(t *testing.T) {
	f := newHookFixture(t, 100)
	owner := newTestKey(t)
	alice := f.newTokenAccount(t, owner)
	bob := f.newTokenAccount(t, newTestKey(t))
	require.NoError(t, execute(f.rt, f.signers(), NewTokenMintToInstruction(f.mint, alice, f.mintAuthority, 500, 6)))

	err := execute(f.rt, f.signers(owner), NewTokenTransferWithHookInstruction(alice, f.mint, bob, owner, 101, 6,
		AccountMeta{Pubkey: f.hookId}))
	assert.ErrorIs(t, err, InstrErrInvalidArgument)
	assert.Equal(t, uint64(500), f.readTokenAccount(t, alice).Amount)
	assert.Equal(t, uint64(0), f.readTokenAccount(t, bob).Amount)
	assert.Empty(t, f.hook.amounts)
}

func TestTokenProgram_TransferHook_MissingProgram(t *testing.T) {
	f := newHookFixture(t, 100)
	owner := newTestKey(t)
	alice := f.newTokenAccount(t, owner)
	bob := f.newTokenAccount(t, newTestKey(t))
	require.NoError(t, execute(f.rt, f.signers(), NewTokenMintToInstruction(f.mint, alice, f.mintAuthority, 500, 6)))

	err := execute(f.rt, f.signers(owner), NewTokenTransferInstruction(alice, f.mint, bob, owner, 10, 6))
	assert.ErrorIs(t, err, InstrErrMissingAccount)
	assert.Equal(t, uint64(500), f.readTokenAccount(t, alice).Amount)
}

func TestTokenProgram_TransferHook_Update(t *testing.T) {
	f := newHookFixture(t, 100)
	next := newTestKey(t)
	stranger := newTestKey(t)

	err := execute(f.rt, f.signers(stranger), NewTokenUpdateTransferHookInstruction(f.mint, stranger, next))
	assert.ErrorIs(t, err, TokenErrOwnerMismatch)

	err = execute(f.rt, f.signers(f.hookAuthority), NewTokenUpdateTransferHookInstruction(f.mint, f.hookAuthority, Token2022ProgramAddr))
	assert.ErrorIs(t, err, InstrErrIncorrectProgramId)

	require.NoError(t, execute(f.rt, f.signers(f.hookAuthority), NewTokenUpdateTransferHookInstruction(f.mint, f.hookAuthority, next)))
	assert.Equal(t, next, f.readMint(t).TransferHookProgramId)

	plain := newTokenFixture(t)
	err = execute(plain.rt, plain.signers(f.hookAuthority), NewTokenUpdateTransferHookInstruction(plain.mint, f.hookAuthority, next))
	assert.ErrorIs(t, err, TokenErrAuthorityTypeNotSupported)
}
