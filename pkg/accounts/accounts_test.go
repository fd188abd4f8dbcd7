package accounts

import (
	"bytes"
	"path/filepath"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(t *testing.T, lamports uint64, data []byte) *Account {
	privKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return &Account{Key: privKey.PublicKey(), Lamports: lamports, Data: data, Owner: solana.SystemProgramID, RentEpoch: 100}
}

func TestAccount_EncodeDecode(t *testing.T) {
	acct := newTestAccount(t, 1234, []byte{1, 2, 3})
	acct.Executable = true

	buf := new(bytes.Buffer)
	require.NoError(t, acct.MarshalWithEncoder(bin.NewBinEncoder(buf)))

	var decoded Account
	require.NoError(t, decoded.UnmarshalWithDecoder(bin.NewBinDecoder(buf.Bytes())))
	assert.Equal(t, acct.Lamports, decoded.Lamports)
	assert.Equal(t, acct.Data, decoded.Data)
	assert.Equal(t, acct.Owner, decoded.Owner)
	assert.True(t, decoded.Executable)
	assert.Equal(t, acct.RentEpoch, decoded.RentEpoch)
}

func TestAccount_DecodeTruncated(t *testing.T) {
	acct := newTestAccount(t, 1, []byte{1, 2, 3, 4})
	buf := new(bytes.Buffer)
	require.NoError(t, acct.MarshalWithEncoder(bin.NewBinEncoder(buf)))

	var decoded Account
	assert.Error(t, decoded.UnmarshalWithDecoder(bin.NewBinDecoder(buf.Bytes()[:12])))
}

func exerciseLedger(t *testing.T, accts Accounts) {
	a := newTestAccount(t, 10, []byte{9})
	b := newTestAccount(t, 20, nil)

	_, err := accts.GetAccount((*[32]byte)(&a.Key))
	assert.ErrorIs(t, err, ErrAccountNotFound)

	require.NoError(t, accts.SetAccount((*[32]byte)(&a.Key), a))
	require.NoError(t, accts.SetAccount((*[32]byte)(&b.Key), b))

	got, err := accts.GetAccount((*[32]byte)(&a.Key))
	require.NoError(t, err)
	assert.Equal(t, a.Key, got.Key)
	assert.Equal(t, uint64(10), got.Lamports)
	assert.Equal(t, []byte{9}, got.Data)

	// returned accounts are copies
	got.Data[0] = 1
	again, err := accts.GetAccount((*[32]byte)(&a.Key))
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, again.Data)

	var keys []solana.PublicKey
	require.NoError(t, accts.Range(func(acct *Account) bool {
		keys = append(keys, acct.Key)
		return true
	}))
	require.Len(t, keys, 2)
	assert.True(t, bytes.Compare(keys[0][:], keys[1][:]) < 0)

	hash1, err := StateHash(accts)
	require.NoError(t, err)

	require.NoError(t, accts.DeleteAccount((*[32]byte)(&b.Key)))
	_, err = accts.GetAccount((*[32]byte)(&b.Key))
	assert.ErrorIs(t, err, ErrAccountNotFound)

	hash2, err := StateHash(accts)
	require.NoError(t, err)
	assert.NotEqual(t, hash1, hash2)
}

func TestMemAccounts(t *testing.T) {
	exerciseLedger(t, NewMemAccounts())
}

func TestBoltAccounts(t *testing.T) {
	db, err := OpenBoltAccounts(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer db.Close()

	exerciseLedger(t, db)
}

func TestStateHash_SameContentSameHash(t *testing.T) {
	a := newTestAccount(t, 10, []byte{1})
	mem := NewMemAccounts()
	require.NoError(t, mem.SetAccount((*[32]byte)(&a.Key), a))

	db, err := OpenBoltAccounts(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.SetAccount((*[32]byte)(&a.Key), a))

	h1, err := StateHash(mem)
	require.NoError(t, err)
	h2, err := StateHash(db)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}
