package sealevel

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/sectoken/pkg/accounts"
)

func newTestKey(t *testing.T) solana.PublicKey {
	privKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return privKey.PublicKey()
}

func newTestRuntime(t *testing.T) (*Runtime, accounts.MemAccounts) {
	t.Helper()
	ledger := accounts.NewMemAccounts()
	rt := NewRuntime(ledger)
	rt.Log = nil
	return rt, ledger
}

func fundAccount(t *testing.T, ledger accounts.Accounts, key solana.PublicKey, lamports uint64) {
	acct := &accounts.Account{Key: key, Lamports: lamports, Data: []byte{}, Owner: SystemProgramAddr}
	require.NoError(t, ledger.SetAccount((*[32]byte)(&key), acct))
}

func getAccount(t *testing.T, ledger accounts.Accounts, key solana.PublicKey) *accounts.Account {
	acct, err := ledger.GetAccount((*[32]byte)(&key))
	require.NoError(t, err)
	return acct
}

func execute(rt *Runtime, signers []solana.PublicKey, instrs ...Instruction) error {
	_, err := rt.ExecuteTransaction(&Transaction{Instructions: instrs, Signers: signers})
	return err
}
