package compliance

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/sectoken/pkg/accounts"
	"go.firedancer.io/sectoken/pkg/sealevel"
)

func newTestKey(t *testing.T) solana.PublicKey {
	privKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return privKey.PublicKey()
}

func newComplianceRuntime(t *testing.T, al *Allowlist) (*sealevel.Runtime, solana.PublicKey) {
	rt := sealevel.NewRuntime(accounts.NewMemAccounts())
	rt.Log = nil
	programId := newTestKey(t)
	Register(rt.Programs, programId, al)
	return rt, programId
}

func approveIx(programId solana.PublicKey, data []byte, keys ...solana.PublicKey) sealevel.Instruction {
	metas := make([]sealevel.AccountMeta, len(keys))
	for i, k := range keys {
		metas[i] = sealevel.AccountMeta{Pubkey: k}
	}
	return sealevel.Instruction{ProgramId: programId, Accounts: metas, Data: data}
}

func TestAllowlist(t *testing.T) {
	a, b := newTestKey(t), newTestKey(t)
	al := NewAllowlist(a)
	assert.True(t, al.Contains(a))
	assert.False(t, al.Contains(b))

	al.Add(b)
	assert.True(t, al.Contains(b))
	al.Remove(a)
	assert.False(t, al.Contains(a))

	al.AllowAll = true
	assert.True(t, al.Contains(a))
}

func TestProgram_Approves(t *testing.T) {
	a, b := newTestKey(t), newTestKey(t)
	rt, programId := newComplianceRuntime(t, NewAllowlist(a, b))

	res, err := rt.ExecuteTransaction(&sealevel.Transaction{
		Instructions: []sealevel.Instruction{approveIx(programId, []byte{6, 1}, a, b)},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Logs, "Approved 2 accounts")
	assert.GreaterOrEqual(t, res.ComputeUnitsUsed, uint64(CUComplianceDefaultComputeUnits))
}

func TestProgram_Rejects(t *testing.T) {
	a, stranger := newTestKey(t), newTestKey(t)
	rt, programId := newComplianceRuntime(t, NewAllowlist(a))

	_, err := rt.ExecuteTransaction(&sealevel.Transaction{
		Instructions: []sealevel.Instruction{approveIx(programId, []byte{6}, a, stranger)},
	})
	assert.ErrorIs(t, err, ErrNotAllowlisted)

	var txErr *sealevel.TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, 0, txErr.InstructionIndex)

	_, err = rt.ExecuteTransaction(&sealevel.Transaction{
		Instructions: []sealevel.Instruction{approveIx(programId, nil, a)},
	})
	assert.ErrorIs(t, err, ErrEmptyInstruction)

	code, ok := sealevel.CustomErrCode(err)
	require.True(t, ok)
	assert.Equal(t, uint32(0), code)
}
