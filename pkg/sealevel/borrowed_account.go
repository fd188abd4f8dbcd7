package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/accounts"
	"go.firedancer.io/sectoken/pkg/safemath"
)

const MaxPermittedDataLength = 10 * 1024 * 1024

type BorrowedAccount struct {
	TxCtx              *TransactionCtx
	InstrCtx           *InstructionCtx
	IndexInTransaction uint64
	IndexInInstruction uint64
	Account            *accounts.Account
	isProgram          bool
}

func (acct *BorrowedAccount) Key() solana.PublicKey {
	return acct.Account.Key
}

func (acct *BorrowedAccount) Owner() solana.PublicKey {
	return acct.Account.Owner
}

func (acct *BorrowedAccount) Lamports() uint64 {
	return acct.Account.Lamports
}

func (acct *BorrowedAccount) Data() []byte {
	return acct.Account.Data
}

func (acct *BorrowedAccount) Touch() error {
	return acct.TxCtx.Accounts.Touch(acct.IndexInTransaction)
}

func (acct *BorrowedAccount) IsExecutable() bool {
	return acct.Account.Executable
}

func (acct *BorrowedAccount) IsSigner() bool {
	if acct.isProgram {
		return false
	}
	isSigner, err := acct.InstrCtx.IsInstructionAccountSigner(acct.IndexInInstruction)
	if err != nil {
		return false
	}
	return isSigner
}

func (acct *BorrowedAccount) IsWritable() bool {
	if acct.isProgram {
		return false
	}
	writable, err := acct.InstrCtx.IsInstructionAccountWritable(acct.IndexInInstruction)
	if err != nil {
		return false
	}
	return writable
}

func (acct *BorrowedAccount) IsOwnedByCurrentProgram() bool {
	lastProgramKey, err := acct.InstrCtx.LastProgramKey(acct.TxCtx)
	if err != nil {
		return false
	}
	return lastProgramKey == acct.Owner()
}

func (acct *BorrowedAccount) DataCanBeChanged() error {
	if acct.IsExecutable() {
		return InstrErrExecutableDataModified
	}
	if !acct.IsWritable() {
		return InstrErrReadonlyDataModified
	}
	if !acct.IsOwnedByCurrentProgram() {
		return InstrErrExternalAccountDataModified
	}
	return nil
}

func (acct *BorrowedAccount) SetData(data []byte) error {
	err := acct.DataCanBeChanged()
	if err != nil {
		return err
	}
	if uint64(len(data)) > MaxPermittedDataLength {
		return InstrErrInvalidRealloc
	}
	err = acct.Touch()
	if err != nil {
		return err
	}

	acct.Account.SetData(data)
	return nil
}

// SetDataLength resizes the account data, zero-filling on growth.
func (acct *BorrowedAccount) SetDataLength(newLength uint64) error {
	if uint64(len(acct.Data())) == newLength {
		return nil
	}
	err := acct.DataCanBeChanged()
	if err != nil {
		return err
	}
	if newLength > MaxPermittedDataLength {
		return InstrErrInvalidRealloc
	}
	err = acct.Touch()
	if err != nil {
		return err
	}

	data := acct.Account.Data
	if newLength < uint64(len(data)) {
		acct.Account.Data = data[:newLength]
	} else {
		acct.Account.Data = append(data, make([]byte, newLength-uint64(len(data)))...)
	}
	return nil
}

func (acct *BorrowedAccount) SetOwner(owner solana.PublicKey) error {
	if acct.Owner() == owner {
		return nil
	}
	if !acct.IsOwnedByCurrentProgram() || !acct.IsWritable() || acct.IsExecutable() {
		return InstrErrModifiedProgramId
	}
	for _, b := range acct.Data() {
		if b != 0 {
			return InstrErrModifiedProgramId
		}
	}
	err := acct.Touch()
	if err != nil {
		return err
	}

	acct.Account.Owner = owner
	return nil
}

func (acct *BorrowedAccount) SetLamports(lamports uint64) error {
	if acct.Lamports() == lamports {
		return nil
	}
	if !acct.IsOwnedByCurrentProgram() && lamports < acct.Lamports() {
		return InstrErrExternalAccountLamportSpend
	}
	if !acct.IsWritable() {
		return InstrErrReadonlyLamportChange
	}
	if acct.IsExecutable() {
		return InstrErrExecutableLamportChange
	}
	err := acct.Touch()
	if err != nil {
		return err
	}

	acct.Account.Lamports = lamports
	return nil
}

func (acct *BorrowedAccount) CheckedAddLamports(lamports uint64) error {
	sum, err := safemath.CheckedAddU64(acct.Lamports(), lamports)
	if err != nil {
		return InstrErrArithmeticOverflow
	}
	return acct.SetLamports(sum)
}

func (acct *BorrowedAccount) CheckedSubLamports(lamports uint64) error {
	diff, err := safemath.CheckedSubU64(acct.Lamports(), lamports)
	if err != nil {
		return InstrErrInsufficientFunds
	}
	return acct.SetLamports(diff)
}
