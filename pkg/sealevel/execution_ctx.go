package sealevel

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"go.firedancer.io/sectoken/pkg/accounts"
	"go.firedancer.io/sectoken/pkg/cu"
	pda "go.firedancer.io/sectoken/pkg/solana"
	"k8s.io/klog/v2"
)

type ExecutionCtx struct {
	Log                Logger
	Accounts           accounts.Accounts
	TransactionContext *TransactionCtx
	ComputeMeter       cu.ComputeMeter
	Rent               SysvarRent
	Programs           *ProgramRegistry
}

// SignerSeeds is one set of seeds, bump included, that the invoking program
// uses to sign for an address derived under its own program id.
type SignerSeeds [][]byte

func (execCtx *ExecutionCtx) Logf(format string, args ...interface{}) {
	if execCtx.Log == nil {
		return
	}
	execCtx.Log.Log(fmt.Sprintf(format, args...))
}

func (execCtx *ExecutionCtx) CurrentInstructionCtx() (*InstructionCtx, error) {
	return execCtx.TransactionContext.CurrentInstructionCtx()
}

func (execCtx *ExecutionCtx) PrepareInstruction(ix Instruction, signers []solana.PublicKey) ([]InstructionAccount, []uint64, error) {
	txCtx := execCtx.TransactionContext

	ixCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return nil, nil, err
	}

	dedupInstructionAccounts := make([]InstructionAccount, 0)
	duplicateIndices := make([]uint64, 0)

	for instructionAcctIndex, accountMeta := range ix.Accounts {
		indexInTx, err := txCtx.IndexOfAccount(accountMeta.Pubkey)
		if err != nil {
			klog.Errorf("instruction references unknown account %s", accountMeta.Pubkey)
			return nil, nil, err
		}

		duplicateIndex := -1
		for index, instrAcct := range dedupInstructionAccounts {
			if instrAcct.IndexInTransaction == indexInTx {
				duplicateIndex = index
				break
			}
		}

		if duplicateIndex != -1 {
			duplicateIndices = append(duplicateIndices, uint64(duplicateIndex))
			dedupInstructionAccounts[duplicateIndex].IsSigner = dedupInstructionAccounts[duplicateIndex].IsSigner || accountMeta.IsSigner
			dedupInstructionAccounts[duplicateIndex].IsWritable = dedupInstructionAccounts[duplicateIndex].IsWritable || accountMeta.IsWritable
		} else {
			indexInCaller, err := ixCtx.IndexOfInstructionAccount(txCtx, accountMeta.Pubkey)
			if err != nil {
				klog.Errorf("account %s is not available to the caller", accountMeta.Pubkey)
				return nil, nil, err
			}
			duplicateIndices = append(duplicateIndices, uint64(len(dedupInstructionAccounts)))

			instrAcct := InstructionAccount{IndexInTransaction: indexInTx,
				IndexInCaller: indexInCaller,
				IndexInCallee: uint64(instructionAcctIndex),
				IsSigner:      accountMeta.IsSigner,
				IsWritable:    accountMeta.IsWritable}

			dedupInstructionAccounts = append(dedupInstructionAccounts, instrAcct)
		}
	}

	for _, instructionAcct := range dedupInstructionAccounts {
		borrowedAcct, err := ixCtx.BorrowInstructionAccount(txCtx, instructionAcct.IndexInCaller)
		if err != nil {
			return nil, nil, err
		}

		// read-only in the caller cannot become writable in the callee
		if instructionAcct.IsWritable && !borrowedAcct.IsWritable() {
			klog.Errorf("%s writable privilege escalated", borrowedAcct.Key())
			return nil, nil, InstrErrPrivilegeEscalation
		}

		// a callee signer must be signed in the caller or by the program
		presentInSigners := false
		for _, addr := range signers {
			if addr == borrowedAcct.Key() {
				presentInSigners = true
				break
			}
		}
		if instructionAcct.IsSigner && !(borrowedAcct.IsSigner() || presentInSigners) {
			klog.Errorf("%s signer privilege escalated", borrowedAcct.Key())
			return nil, nil, InstrErrPrivilegeEscalation
		}
	}

	instructionAccounts := make([]InstructionAccount, 0, len(duplicateIndices))
	for _, duplicateIndex := range duplicateIndices {
		instructionAccounts = append(instructionAccounts, dedupInstructionAccounts[duplicateIndex])
	}

	calleeProgramId := ix.ProgramId
	programAcctIdx, err := ixCtx.IndexOfInstructionAccount(txCtx, calleeProgramId)
	if err != nil {
		klog.Errorf("unknown program %s", calleeProgramId)
		return nil, nil, err
	}

	borrowedProgramAcct, err := ixCtx.BorrowInstructionAccount(txCtx, programAcctIdx)
	if err != nil {
		return nil, nil, err
	}

	if !borrowedProgramAcct.IsExecutable() {
		klog.Errorf("account %s is not executable", calleeProgramId)
		return nil, nil, InstrErrAccountNotExecutable
	}

	return instructionAccounts, []uint64{borrowedProgramAcct.IndexInTransaction}, nil
}

func (execCtx *ExecutionCtx) instructionLamports(instructionAccts []InstructionAccount) (*uint256.Int, error) {
	sum := uint256.NewInt(0)
	seen := make(map[uint64]bool, len(instructionAccts))
	for _, instrAcct := range instructionAccts {
		if seen[instrAcct.IndexInTransaction] {
			continue
		}
		seen[instrAcct.IndexInTransaction] = true
		acct, err := execCtx.TransactionContext.AccountAtIndex(instrAcct.IndexInTransaction)
		if err != nil {
			return nil, err
		}
		sum.AddUint64(sum, acct.Lamports)
	}
	return sum, nil
}

func (execCtx *ExecutionCtx) ProcessInstruction(instrData []byte, instructionAccts []InstructionAccount, programIndices []uint64) error {
	nextInstrCtx := new(InstructionCtx)
	nextInstrCtx.Configure(programIndices, instructionAccts, instrData)

	preLamports, err := execCtx.instructionLamports(instructionAccts)
	if err != nil {
		return err
	}

	err = execCtx.Push(nextInstrCtx)
	if err != nil {
		return err
	}

	err1 := execCtx.ExecuteInstruction()

	err2 := execCtx.Pop()

	if err1 != nil {
		return err1
	} else if err2 != nil {
		return err2
	}

	postLamports, err := execCtx.instructionLamports(instructionAccts)
	if err != nil {
		return err
	}
	if !preLamports.Eq(postLamports) {
		klog.Errorf("instruction changed total lamports from %s to %s", preLamports, postLamports)
		return InstrErrUnbalancedInstruction
	}

	return nil
}

func (execCtx *ExecutionCtx) ExecuteInstruction() error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	programAcct, err := instrCtx.BorrowLastProgramAccount(txCtx)
	if err != nil {
		klog.Errorf("BorrowLastProgramAccount failed: %s", err)
		return InstrErrUnsupportedProgramId
	}

	if programAcct.Owner() != NativeLoaderAddr {
		klog.Errorf("program %s is not a builtin (owner %s)", programAcct.Key(), programAcct.Owner())
		return InstrErrUnsupportedProgramId
	}

	programId := programAcct.Key()
	klog.V(2).Infof("resolving native program (%s)", programId)
	nativeProgramFn, err := execCtx.Programs.Resolve(programId)
	if err != nil {
		return err
	}

	execCtx.Logf("Program %s invoke [%d]", programId, execCtx.StackHeight())
	err = nativeProgramFn(execCtx)
	if err != nil {
		execCtx.Logf("Program %s failed: %s", programId, err)
		return err
	}
	execCtx.Logf("Program %s success", programId)
	return nil
}

func (execCtx *ExecutionCtx) Push(instrCtx *InstructionCtx) error {
	txCtx := execCtx.TransactionContext

	programId, err := instrCtx.LastProgramKey(txCtx)
	if err != nil {
		return InstrErrUnsupportedProgramId
	}

	if txCtx.InstructionCtxStackHeight() != 0 {
		var contains bool
		for level := uint64(0); level < txCtx.InstructionCtxStackHeight(); level++ {
			ic, err := txCtx.InstructionCtxAtNestingLevel(level)
			if err != nil {
				continue
			}
			key, err := ic.LastProgramKey(txCtx)
			if err == nil && key == programId {
				contains = true
				break
			}
		}

		var isLast bool
		ic, err := txCtx.CurrentInstructionCtx()
		if err != nil {
			return err
		}
		key, err := ic.LastProgramKey(txCtx)
		if err == nil && key == programId {
			isLast = true
		}

		if contains && !isLast {
			klog.Errorf("reentrancy into %s rejected", programId)
			return InstrErrReentrancyNotAllowed
		}
	}

	return txCtx.Push(instrCtx)
}

func (execCtx *ExecutionCtx) Pop() error {
	return execCtx.TransactionContext.Pop()
}

func (execCtx *ExecutionCtx) StackHeight() uint64 {
	return execCtx.TransactionContext.InstructionCtxStackHeight()
}

func (execCtx *ExecutionCtx) NativeInvoke(instruction Instruction, signers []solana.PublicKey) error {
	instrAccts, programIndices, err := execCtx.PrepareInstruction(instruction, signers)
	if err != nil {
		return err
	}

	return execCtx.ProcessInstruction(instruction.Data, instrAccts, programIndices)
}

func (execCtx *ExecutionCtx) Invoke(instruction Instruction) error {
	return execCtx.InvokeSigned(instruction)
}

// InvokeSigned performs a cross-program invocation. Each seed set is
// re-derived under the calling program's id and the resulting address is
// granted signer privilege in the callee.
func (execCtx *ExecutionCtx) InvokeSigned(instruction Instruction, signerSeeds ...SignerSeeds) error {
	err := execCtx.ComputeMeter.Consume(CUInvokeUnits)
	if err != nil {
		return InstrErrComputationalBudgetExceeded
	}

	instrCtx, err := execCtx.TransactionContext.CurrentInstructionCtx()
	if err != nil {
		return err
	}
	callerProgramId, err := instrCtx.LastProgramKey(execCtx.TransactionContext)
	if err != nil {
		return err
	}

	signers := make([]solana.PublicKey, 0, len(signerSeeds))
	for _, seeds := range signerSeeds {
		err = execCtx.ComputeMeter.Consume(CUCreateProgramAddressUnits)
		if err != nil {
			return InstrErrComputationalBudgetExceeded
		}
		signer, err := pda.CreateProgramAddress(seeds, callerProgramId)
		if err != nil {
			klog.Errorf("failed to derive signer for %s: %s", callerProgramId, err)
			return InstrErrInvalidSeeds
		}
		signers = append(signers, signer)
	}

	return execCtx.NativeInvoke(instruction, signers)
}
