package accounts

import (
	"bytes"

	"github.com/tidwall/btree"
)

type MemAccounts struct {
	tree *btree.BTreeG[*Account]
}

func byKey(a, b *Account) bool {
	return bytes.Compare(a.Key[:], b.Key[:]) < 0
}

func NewMemAccounts() MemAccounts {
	return MemAccounts{tree: btree.NewBTreeG[*Account](byKey)}
}

func (m MemAccounts) GetAccount(pubkey *[32]byte) (*Account, error) {
	acct, ok := m.tree.Get(&Account{Key: *pubkey})
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acct.Clone(), nil
}

func (m MemAccounts) SetAccount(pubkey *[32]byte, acc *Account) error {
	stored := acc.Clone()
	stored.Key = *pubkey
	m.tree.Set(stored)
	return nil
}

func (m MemAccounts) DeleteAccount(pubkey *[32]byte) error {
	m.tree.Delete(&Account{Key: *pubkey})
	return nil
}

func (m MemAccounts) Range(fn func(acct *Account) bool) error {
	m.tree.Scan(func(acct *Account) bool {
		return fn(acct.Clone())
	})
	return nil
}

func (m MemAccounts) Len() int {
	return m.tree.Len()
}
