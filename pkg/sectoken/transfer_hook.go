package sectoken

import (
	"bytes"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/sealevel"
	"k8s.io/klog/v2"
)

const CUTransferHookDefaultComputeUnits = 1000

// TransferHookProgram returns the entrypoint Token-2022 calls on every
// TransferChecked of a mint created by securityTokenId. Transfers moved by
// the program itself through the permanent delegate pass; every other
// transfer runs the programs of the mint's Transfer verification config.
//
// Accounts: [source, mint, destination, authority, verification_config,
// ...programs]. Each configured program is invoked with all of them and
// data [Transfer, amount u64].
func TransferHookProgram(securityTokenId solana.PublicKey) sealevel.NativeProgramFn {
	return func(execCtx *sealevel.ExecutionCtx) error {
		err := execCtx.ComputeMeter.Consume(CUTransferHookDefaultComputeUnits)
		if err != nil {
			return sealevel.InstrErrComputationalBudgetExceeded
		}

		txCtx := execCtx.TransactionContext
		instrCtx, err := txCtx.CurrentInstructionCtx()
		if err != nil {
			return err
		}
		discriminator := sealevel.TransferHookExecuteDiscriminator
		data := instrCtx.Data
		if len(data) < len(discriminator) || !bytes.Equal(data[:len(discriminator)], discriminator[:]) {
			return sealevel.InstrErrInvalidInstructionData
		}
		err = instrCtx.CheckNumOfInstructionAccounts(4)
		if err != nil {
			return err
		}

		mint, err := instrCtx.InstructionAccountKey(txCtx, 1)
		if err != nil {
			return err
		}
		authority, err := instrCtx.InstructionAccountKey(txCtx, 3)
		if err != nil {
			return err
		}
		numAccts := instrCtx.NumberOfInstructionAccounts()

		delegate, err := FindPermanentDelegateAddress(securityTokenId, mint)
		if err != nil {
			return err
		}
		if authority == delegate.Key && numAccts == 4 {
			execCtx.Logf("Transfer by permanent delegate")
			return nil
		}

		err = instrCtx.CheckNumOfInstructionAccounts(5)
		if err != nil {
			return err
		}
		configAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 4)
		if err != nil {
			return err
		}
		hook := &invocation{execCtx: execCtx, txCtx: txCtx, instrCtx: instrCtx, programId: securityTokenId}
		config, err := hook.loadVerificationConfig(configAcct, mint, InstrTransfer)
		if err != nil {
			return err
		}
		if len(config.Programs) == 0 {
			klog.V(2).Infof("transfer verification config of %s lists no programs", mint)
			return sealevel.InstrErrInvalidAccountData
		}

		amount := data[len(discriminator):]
		if len(amount) < 8 {
			return sealevel.InstrErrInvalidInstructionData
		}
		ixData := make([]byte, 9)
		ixData[0] = InstrTransfer
		binary.LittleEndian.PutUint64(ixData[1:], binary.LittleEndian.Uint64(amount))

		metas := make([]sealevel.AccountMeta, numAccts)
		for idx := uint64(0); idx < numAccts; idx++ {
			key, err := instrCtx.InstructionAccountKey(txCtx, idx)
			if err != nil {
				return err
			}
			isSigner, err := instrCtx.IsInstructionAccountSigner(idx)
			if err != nil {
				return err
			}
			isWritable, err := instrCtx.IsInstructionAccountWritable(idx)
			if err != nil {
				return err
			}
			metas[idx] = sealevel.AccountMeta{Pubkey: key, IsSigner: isSigner, IsWritable: isWritable}
		}

		for _, program := range config.Programs {
			err = execCtx.Invoke(sealevel.Instruction{ProgramId: program, Accounts: metas, Data: ixData})
			if err != nil {
				klog.V(2).Infof("transfer of %s rejected by %s: %s", mint, program, err)
				verificationsTotal.WithLabelValues("transfer_hook", "failed").Inc()
				return err
			}
		}
		verificationsTotal.WithLabelValues("transfer_hook", "ok").Inc()
		execCtx.Logf("Transfer verified by %d programs", len(config.Programs))
		return nil
	}
}
