package sealevel

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/sectoken/pkg/accounts"
	pda "go.firedancer.io/sectoken/pkg/solana"
)

const (
	vaultOpTransfer = iota
	vaultOpRecurse
	vaultOpWriteForeign
	vaultOpMintLamports
)

// vaultProgram moves lamports out of a derived vault address, plus a few
// deliberately misbehaving operations.
func vaultProgram(execCtx *ExecutionCtx) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}
	if len(instrCtx.Data) == 0 {
		return InstrErrInvalidInstructionData
	}

	switch instrCtx.Data[0] {
	case vaultOpTransfer:
		vault, err := instrCtx.InstructionAccountKey(txCtx, 0)
		if err != nil {
			return err
		}
		dest, err := instrCtx.InstructionAccountKey(txCtx, 1)
		if err != nil {
			return err
		}
		seed := instrCtx.Data[1 : len(instrCtx.Data)-1]
		bump := instrCtx.Data[len(instrCtx.Data)-1]
		return execCtx.InvokeSigned(NewTransferInstruction(vault, dest, 100), SignerSeeds{seed, {bump}})

	case vaultOpRecurse:
		self, err := instrCtx.LastProgramKey(txCtx)
		if err != nil {
			return err
		}
		return execCtx.Invoke(Instruction{Accounts: []AccountMeta{{Pubkey: self}}, Data: []byte{vaultOpRecurse}, ProgramId: self})

	case vaultOpWriteForeign:
		acct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
		if err != nil {
			return err
		}
		return acct.SetData([]byte{1, 2, 3})

	case vaultOpMintLamports:
		acct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
		if err != nil {
			return err
		}
		return acct.CheckedAddLamports(1)
	}
	return InstrErrInvalidInstructionData
}

func newVaultRuntime(t *testing.T) (*Runtime, accounts.MemAccounts, solana.PublicKey) {
	rt, ledger := newTestRuntime(t)
	programId := newTestKey(t)
	rt.Programs.Register(programId, vaultProgram)
	return rt, ledger, programId
}

func vaultTransferIx(programId, vault, dest solana.PublicKey, seed []byte, bump uint8) Instruction {
	data := append([]byte{vaultOpTransfer}, seed...)
	data = append(data, bump)
	return Instruction{
		Accounts: []AccountMeta{
			{Pubkey: vault, IsWritable: true},
			{Pubkey: dest, IsWritable: true},
			{Pubkey: SystemProgramAddr},
		},
		Data:      data,
		ProgramId: programId,
	}
}

func TestInvokeSigned_DerivedSigner(t *testing.T) {
	rt, ledger, programId := newVaultRuntime(t)

	vault, bump, err := pda.FindProgramAddress([][]byte{[]byte("vault")}, programId)
	require.NoError(t, err)
	dest := newTestKey(t)
	fundAccount(t, ledger, vault, 1000)

	require.NoError(t, execute(rt, nil, vaultTransferIx(programId, vault, dest, []byte("vault"), bump)))

	assert.Equal(t, uint64(900), getAccount(t, ledger, vault).Lamports)
	assert.Equal(t, uint64(100), getAccount(t, ledger, dest).Lamports)
}

func TestInvokeSigned_ForeignSeedsEscalate(t *testing.T) {
	rt, ledger, programId := newVaultRuntime(t)

	vault, _, err := pda.FindProgramAddress([][]byte{[]byte("vault")}, programId)
	require.NoError(t, err)
	_, otherBump, err := pda.FindProgramAddress([][]byte{[]byte("other")}, programId)
	require.NoError(t, err)
	fundAccount(t, ledger, vault, 1000)

	err = execute(rt, nil, vaultTransferIx(programId, vault, newTestKey(t), []byte("other"), otherBump))
	assert.ErrorIs(t, err, InstrErrPrivilegeEscalation)
	assert.Equal(t, uint64(1000), getAccount(t, ledger, vault).Lamports)
}

func TestInvokeSigned_SeedsOfAnotherProgram(t *testing.T) {
	rt, ledger, programId := newVaultRuntime(t)

	// derived under a different program id, so the vault program cannot sign for it
	otherProgram := newTestKey(t)
	vault, bump, err := pda.FindProgramAddress([][]byte{[]byte("vault")}, otherProgram)
	require.NoError(t, err)
	fundAccount(t, ledger, vault, 1000)

	err = execute(rt, nil, vaultTransferIx(programId, vault, newTestKey(t), []byte("vault"), bump))
	assert.Error(t, err)
	assert.Equal(t, uint64(1000), getAccount(t, ledger, vault).Lamports)
}

func TestInvoke_CallDepth(t *testing.T) {
	rt, _, programId := newVaultRuntime(t)

	ix := Instruction{Accounts: []AccountMeta{{Pubkey: programId}}, Data: []byte{vaultOpRecurse}, ProgramId: programId}
	err := execute(rt, nil, ix)
	assert.ErrorIs(t, err, InstrErrCallDepth)
}

func TestExecute_ExternalDataModified(t *testing.T) {
	rt, ledger, programId := newVaultRuntime(t)

	victim := newTestKey(t)
	fundAccount(t, ledger, victim, 1000)

	ix := Instruction{Accounts: []AccountMeta{{Pubkey: victim, IsWritable: true}}, Data: []byte{vaultOpWriteForeign}, ProgramId: programId}
	err := execute(rt, nil, ix)
	assert.ErrorIs(t, err, InstrErrExternalAccountDataModified)
}

func TestExecute_ReadonlyDataModified(t *testing.T) {
	rt, ledger, programId := newVaultRuntime(t)

	owned := newTestKey(t)
	acct := &accounts.Account{Key: owned, Lamports: 1000, Data: []byte{0}, Owner: programId}
	require.NoError(t, ledger.SetAccount((*[32]byte)(&owned), acct))

	ix := Instruction{Accounts: []AccountMeta{{Pubkey: owned}}, Data: []byte{vaultOpWriteForeign}, ProgramId: programId}
	err := execute(rt, nil, ix)
	assert.ErrorIs(t, err, InstrErrReadonlyDataModified)
}

func TestExecute_UnbalancedInstruction(t *testing.T) {
	rt, ledger, programId := newVaultRuntime(t)

	owned := newTestKey(t)
	acct := &accounts.Account{Key: owned, Lamports: 1000, Data: []byte{0}, Owner: programId}
	require.NoError(t, ledger.SetAccount((*[32]byte)(&owned), acct))

	ix := Instruction{Accounts: []AccountMeta{{Pubkey: owned, IsWritable: true}}, Data: []byte{vaultOpMintLamports}, ProgramId: programId}
	err := execute(rt, nil, ix)
	assert.ErrorIs(t, err, InstrErrUnbalancedInstruction)
	assert.Equal(t, uint64(1000), getAccount(t, ledger, owned).Lamports)
}

func TestExecute_UnknownProgram(t *testing.T) {
	rt, _ := newTestRuntime(t)
	err := execute(rt, nil, Instruction{ProgramId: newTestKey(t)})
	assert.ErrorIs(t, err, InstrErrUnsupportedProgramId)
}
