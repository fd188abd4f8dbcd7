package accounts

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	bolt "go.etcd.io/bbolt"
	"go.firedancer.io/sectoken/pkg/base58"
)

var accountsBucket = []byte("accounts")

// BoltAccounts persists accounts in a single bbolt bucket keyed by address.
type BoltAccounts struct {
	db *bolt.DB
}

func OpenBoltAccounts(path string) (*BoltAccounts, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to open ledger %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(accountsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to create accounts bucket in %s: %w", path, err)
	}

	return &BoltAccounts{db: db}, nil
}

func (b *BoltAccounts) Close() error {
	return b.db.Close()
}

func (b *BoltAccounts) GetAccount(pubkey *[32]byte) (*Account, error) {
	var acct *Account
	err := b.db.View(func(tx *bolt.Tx) error {
		acctBytes := tx.Bucket(accountsBucket).Get(pubkey[:])
		if acctBytes == nil {
			return ErrAccountNotFound
		}
		var err error
		acct, err = decodeAccount(*pubkey, acctBytes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (b *BoltAccounts) SetAccount(pubkey *[32]byte, acct *Account) error {
	writer := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(writer)

	err := acct.MarshalWithEncoder(encoder)
	if err != nil {
		return fmt.Errorf("failed to serialize account %s: %w", base58.Encode(pubkey[:]), err)
	}

	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(accountsBucket).Put(pubkey[:], writer.Bytes())
	})
	if err != nil {
		return fmt.Errorf("error setting account for %s: %w", base58.Encode(pubkey[:]), err)
	}

	return nil
}

func (b *BoltAccounts) DeleteAccount(pubkey *[32]byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(accountsBucket).Delete(pubkey[:])
	})
}

func (b *BoltAccounts) Range(fn func(acct *Account) bool) error {
	return b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(accountsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			acct, err := decodeAccount(solana.PublicKeyFromBytes(k), v)
			if err != nil {
				return err
			}
			if !fn(acct) {
				return nil
			}
		}
		return nil
	})
}

func decodeAccount(key [32]byte, acctBytes []byte) (*Account, error) {
	// bbolt values are only valid for the life of the transaction
	decoder := bin.NewBinDecoder(bytes.Clone(acctBytes))
	acct := new(Account)

	err := acct.UnmarshalWithDecoder(decoder)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize account %s: %w", base58.Encode(key[:]), err)
	}
	acct.Key = key
	return acct, nil
}
