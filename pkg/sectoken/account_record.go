package sectoken

import (
	"go.firedancer.io/sectoken/pkg/sealevel"
	"k8s.io/klog/v2"
)

// initRecord allocates target through the system program, funded by payer
// at the rent exempt minimum, and writes record into it. It fails when the
// address already holds lamports, which is what makes receipts one-shot.
func (inv *invocation) initRecord(record Record, payer *sealevel.BorrowedAccount, target *sealevel.BorrowedAccount, address Address) error {
	if target.Key() != address.Key {
		return sealevel.InstrErrInvalidSeeds
	}

	space := record.Size()
	lamports := inv.execCtx.Rent.MinimumBalance(space)
	ix := sealevel.NewCreateAccountInstruction(payer.Key(), address.Key, lamports, space, inv.programId)
	err := inv.execCtx.InvokeSigned(ix, address.signer())
	if err != nil {
		klog.V(2).Infof("failed to create %s account %s: %s", RecordKind(record.Discriminator()), address.Key, err)
		return err
	}

	return writeRecord(target, record)
}

// writeRecord serializes record over the start of the account data. The
// account must already be large enough.
func writeRecord(target *sealevel.BorrowedAccount, record Record) error {
	encoded := MarshalRecord(record)
	if len(target.Data()) < len(encoded) {
		return sealevel.InstrErrAccountDataTooSmall
	}
	data := make([]byte, len(target.Data()))
	copy(data, target.Data())
	copy(data, encoded)
	return target.SetData(data)
}

// resizeAndRent changes the size of a program owned account and keeps it
// exactly rent exempt. Growth is paid by payer through the system program;
// on shrink the excess goes back to payer.
func (inv *invocation) resizeAndRent(target *sealevel.BorrowedAccount, newSize uint64, payer *sealevel.BorrowedAccount) error {
	if uint64(len(target.Data())) == newSize {
		return nil
	}

	required := inv.execCtx.Rent.MinimumBalance(newSize)
	current := target.Lamports()

	switch {
	case required > current:
		ix := sealevel.NewTransferInstruction(payer.Key(), target.Key(), required-current)
		err := inv.execCtx.Invoke(ix)
		if err != nil {
			return err
		}
	case required < current:
		excess := current - required
		err := target.CheckedSubLamports(excess)
		if err != nil {
			return err
		}
		err = payer.CheckedAddLamports(excess)
		if err != nil {
			return err
		}
	}

	return target.SetDataLength(newSize)
}

// closeRecord moves every lamport to destination and leaves a one byte
// tombstone. The runtime drops the account when the transaction commits.
func closeRecord(acct *sealevel.BorrowedAccount, destination *sealevel.BorrowedAccount) error {
	if acct.Key() == destination.Key() {
		return sealevel.InstrErrInvalidArgument
	}

	lamports := acct.Lamports()
	err := destination.CheckedAddLamports(lamports)
	if err != nil {
		return sealevel.InstrErrArithmeticOverflow
	}
	err = acct.SetLamports(0)
	if err != nil {
		return err
	}

	err = acct.SetData([]byte{DiscriminatorClosed})
	if err != nil {
		return err
	}
	return acct.SetDataLength(1)
}
