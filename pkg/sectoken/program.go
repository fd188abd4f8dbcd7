package sectoken

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/sealevel"
	"k8s.io/klog/v2"
)

const CUSecurityTokenDefaultComputeUnits = 3000

// invocation bundles the runtime state a handler works against.
type invocation struct {
	execCtx   *sealevel.ExecutionCtx
	txCtx     *sealevel.TransactionCtx
	instrCtx  *sealevel.InstructionCtx
	programId solana.PublicKey
	hookId    solana.PublicKey
	args      []byte
}

func (inv *invocation) account(idx uint64) (*sealevel.BorrowedAccount, error) {
	return inv.instrCtx.BorrowInstructionAccount(inv.txCtx, idx)
}

// accounts borrows the first n instruction accounts.
func (inv *invocation) accounts(n uint64) ([]*sealevel.BorrowedAccount, error) {
	err := inv.instrCtx.CheckNumOfInstructionAccounts(n)
	if err != nil {
		return nil, err
	}
	accts := make([]*sealevel.BorrowedAccount, n)
	for i := uint64(0); i < n; i++ {
		accts[i], err = inv.account(i)
		if err != nil {
			return nil, err
		}
	}
	return accts, nil
}

// Register installs the program under programId and its transfer hook
// under hookId.
func Register(registry *sealevel.ProgramRegistry, programId, hookId solana.PublicKey) {
	registry.Register(programId, Program(hookId))
	registry.Register(hookId, TransferHookProgram(programId))
}

// Program returns the native entrypoint. The program id is whatever key
// the program was registered under; mints it creates call hookId on every
// transfer.
func Program(hookId solana.PublicKey) sealevel.NativeProgramFn {
	return func(execCtx *sealevel.ExecutionCtx) error {
		return execute(execCtx, hookId)
	}
}

func execute(execCtx *sealevel.ExecutionCtx, hookId solana.PublicKey) error {
	err := execCtx.ComputeMeter.Consume(CUSecurityTokenDefaultComputeUnits)
	if err != nil {
		return sealevel.InstrErrComputationalBudgetExceeded
	}

	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}
	programId, err := instrCtx.LastProgramKey(txCtx)
	if err != nil {
		return err
	}

	if len(instrCtx.Data) == 0 {
		return sealevel.InstrErrInvalidInstructionData
	}
	ix := instrCtx.Data[0]

	inv := &invocation{
		execCtx:   execCtx,
		txCtx:     txCtx,
		instrCtx:  instrCtx,
		programId: programId,
		hookId:    hookId,
		args:      instrCtx.Data[1:],
	}

	execCtx.Logf("Instruction: %s", InstructionName(ix))
	err = inv.dispatch(ix)

	result := "ok"
	if err != nil {
		result = "failed"
		klog.V(2).Infof("%s failed: %s", InstructionName(ix), err)
	}
	instructionsTotal.WithLabelValues(InstructionName(ix), result).Inc()
	return err
}

func (inv *invocation) dispatch(ix uint8) error {
	switch ix {
	case InstrInitializeMint:
		return inv.initializeMint()
	case InstrUpdateMetadata:
		return sealevel.InstrErrInvalidInstructionData
	case InstrInitializeVerificationConfig:
		return inv.initializeVerificationConfig()
	case InstrUpdateVerificationConfig:
		return inv.updateVerificationConfig()
	case InstrTrimVerificationConfig:
		return inv.trimVerificationConfig()
	case InstrVerify:
		return inv.verify()
	case InstrMint:
		return inv.mint()
	case InstrBurn:
		return inv.burn()
	case InstrPause:
		return inv.setPaused(ix, true)
	case InstrResume:
		return inv.setPaused(ix, false)
	case InstrFreeze:
		return inv.setFrozen(ix, true)
	case InstrThaw:
		return inv.setFrozen(ix, false)
	case InstrTransfer:
		return inv.transfer()
	case InstrCreateRateAccount:
		return inv.createRateAccount()
	case InstrUpdateRateAccount:
		return inv.updateRateAccount()
	case InstrCloseRateAccount:
		return inv.closeRateAccount()
	case InstrSplit:
		return inv.split()
	case InstrConvert:
		return inv.convert()
	case InstrCreateProofAccount:
		return inv.createProofAccount()
	case InstrUpdateProofAccount:
		return inv.updateProofAccount()
	case InstrCreateDistributionEscrow:
		return inv.createDistributionEscrow()
	case InstrClaimDistribution:
		return inv.claimDistribution()
	case InstrCloseActionReceipt:
		return inv.closeActionReceipt()
	case InstrCloseClaimReceipt:
		return inv.closeClaimReceipt()
	default:
		klog.Errorf("unknown security token instruction %d", ix)
		return sealevel.InstrErrInvalidInstructionData
	}
}
