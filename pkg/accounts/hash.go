package accounts

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

func CalculateAcctHash(acct *Account) [32]byte {
	hasher := blake3.New()

	var lamportBytes [8]byte
	binary.LittleEndian.PutUint64(lamportBytes[:], acct.Lamports)
	_, _ = hasher.Write(lamportBytes[:])

	_, _ = hasher.Write(acct.Data)

	if acct.Executable {
		_, _ = hasher.Write([]byte{1})
	} else {
		_, _ = hasher.Write([]byte{0})
	}

	_, _ = hasher.Write(acct.Owner[:])
	_, _ = hasher.Write(acct.Key[:])

	var out [32]byte
	copy(out[:], hasher.Sum(nil))
	return out
}

// StateHash folds the per-account hashes of every account in key order.
func StateHash(accts Accounts) ([32]byte, error) {
	hasher := blake3.New()
	err := accts.Range(func(acct *Account) bool {
		h := CalculateAcctHash(acct)
		_, _ = hasher.Write(h[:])
		return true
	})
	var out [32]byte
	if err != nil {
		return out, err
	}
	copy(out[:], hasher.Sum(nil))
	return out, nil
}
