package sealevel

import (
	"errors"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/accounts"
	"go.firedancer.io/sectoken/pkg/cu"
	"k8s.io/klog/v2"
)

type Transaction struct {
	Instructions []Instruction
	Signers      []solana.PublicKey
}

// Runtime executes transactions atomically against a ledger. An Unmetered
// runtime logs instead of failing when a transaction runs past its compute
// budget.
type Runtime struct {
	Accounts      accounts.Accounts
	Programs      *ProgramRegistry
	Rent          SysvarRent
	ComputeBudget uint64
	Unmetered     bool
	Log           Logger
}

func NewRuntime(accts accounts.Accounts) *Runtime {
	return &Runtime{
		Accounts:      accts,
		Programs:      NewProgramRegistry(),
		Rent:          DefaultRent(),
		ComputeBudget: cu.DefaultComputeBudget,
		Log:           KlogLogger{},
	}
}

type TransactionResult struct {
	ComputeUnitsUsed uint64
	Logs             []string
}

type messageKey struct {
	key        solana.PublicKey
	isSigner   bool
	isWritable bool
}

func (rt *Runtime) isReadonlyKey(key solana.PublicKey) bool {
	return rt.Programs.IsRegistered(key) || key == SysvarRentAddr || key == SysvarInstructionsAddr
}

func (rt *Runtime) collectKeys(tx *Transaction) ([]messageKey, error) {
	signers := make(map[solana.PublicKey]bool, len(tx.Signers))
	for _, s := range tx.Signers {
		signers[s] = true
	}

	var keys []messageKey
	position := make(map[solana.PublicKey]int)
	add := func(key solana.PublicKey, isWritable bool) {
		if idx, ok := position[key]; ok {
			keys[idx].isWritable = keys[idx].isWritable || isWritable
			return
		}
		position[key] = len(keys)
		keys = append(keys, messageKey{key: key, isSigner: signers[key], isWritable: isWritable})
	}

	for _, ix := range tx.Instructions {
		for _, am := range ix.Accounts {
			if am.IsSigner && !signers[am.Pubkey] {
				klog.Errorf("account %s must sign the transaction", am.Pubkey)
				return nil, InstrErrMissingRequiredSignature
			}
			add(am.Pubkey, am.IsWritable)
		}
		add(ix.ProgramId, false)
	}

	for idx := range keys {
		if rt.isReadonlyKey(keys[idx].key) {
			keys[idx].isWritable = false
		}
	}
	return keys, nil
}

func (rt *Runtime) loadAccount(key solana.PublicKey, instrs []Instruction) (accounts.Account, error) {
	switch {
	case key == SysvarRentAddr:
		return *newRentSysvarAccount(rt.Rent), nil
	case key == SysvarInstructionsAddr:
		return accounts.Account{Key: key, Lamports: 1, Data: marshalInstructions(instrs), Owner: SysvarOwnerAddr}, nil
	case rt.Programs.IsRegistered(key):
		return accounts.Account{Key: key, Lamports: 1, Data: []byte{}, Owner: NativeLoaderAddr, Executable: true}, nil
	}

	acct, err := rt.Accounts.GetAccount((*[32]byte)(&key))
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return accounts.Account{Key: key, Data: []byte{}, Owner: SystemProgramAddr}, nil
	} else if err != nil {
		return accounts.Account{}, err
	}
	loaded := acct.Clone()
	loaded.Key = key
	return *loaded, nil
}

// ExecuteTransaction runs every instruction of tx in order. Account changes
// are committed to the ledger only if all of them succeed; accounts left
// with zero lamports are removed.
func (rt *Runtime) ExecuteTransaction(tx *Transaction) (*TransactionResult, error) {
	keys, err := rt.collectKeys(tx)
	if err != nil {
		return nil, &TransactionError{InstructionIndex: -1, Err: err}
	}

	loaded := make([]accounts.Account, 0, len(keys))
	for _, k := range keys {
		acct, err := rt.loadAccount(k.key, tx.Instructions)
		if err != nil {
			klog.Errorf("failed to load account %s: %s", k.key, err)
			return nil, &TransactionError{InstructionIndex: -1, Err: err}
		}
		loaded = append(loaded, acct)
	}

	txAccts := NewTransactionAccounts(loaded)
	txCtx := NewTransactionCtx(txAccts, MaxInstructionStackDepth)

	meter := cu.NewComputeMeter(rt.ComputeBudget)
	if rt.Unmetered {
		meter.Disable()
	}

	recorder := new(LogRecorder)
	execCtx := &ExecutionCtx{
		Log:                &teeLogger{recorder: recorder, sink: rt.Log},
		Accounts:           rt.Accounts,
		TransactionContext: txCtx,
		ComputeMeter:       meter,
		Rent:               rt.Rent,
		Programs:           rt.Programs,
	}

	instrSysvarIdx, instrSysvarErr := txCtx.IndexOfAccount(SysvarInstructionsAddr)

	for ixIdx, ix := range tx.Instructions {
		if instrSysvarErr == nil {
			StoreCurrentIndex(txAccts.Accounts[instrSysvarIdx].Data, uint16(ixIdx))
		}

		programIdx, err := txCtx.IndexOfAccount(ix.ProgramId)
		if err != nil {
			return nil, &TransactionError{InstructionIndex: ixIdx, Err: err}
		}

		instrAccts := make([]InstructionAccount, 0, len(ix.Accounts))
		for pos, am := range ix.Accounts {
			idxInTx, err := txCtx.IndexOfAccount(am.Pubkey)
			if err != nil {
				return nil, &TransactionError{InstructionIndex: ixIdx, Err: err}
			}
			idxInCallee := uint64(pos)
			for prev, instrAcct := range instrAccts {
				if instrAcct.IndexInTransaction == idxInTx {
					idxInCallee = uint64(prev)
					break
				}
			}
			k := keys[idxInTx]
			instrAccts = append(instrAccts, InstructionAccount{
				IndexInTransaction: idxInTx,
				IndexInCaller:      idxInTx,
				IndexInCallee:      idxInCallee,
				IsSigner:           k.isSigner,
				IsWritable:         k.isWritable,
			})
		}

		err = execCtx.ProcessInstruction(ix.Data, instrAccts, []uint64{programIdx})
		if err != nil {
			klog.Errorf("transaction failed at instruction %d (%s): %s", ixIdx, ix.ProgramId, err)
			return &TransactionResult{ComputeUnitsUsed: execCtx.ComputeMeter.Used(), Logs: recorder.Logs},
				&TransactionError{InstructionIndex: ixIdx, Err: err}
		}
	}

	for idx, acct := range txAccts.Accounts {
		if !txAccts.Touched[idx] || !keys[idx].isWritable {
			continue
		}
		key := [32]byte(acct.Key)
		if acct.Lamports == 0 {
			err = rt.Accounts.DeleteAccount(&key)
			if err != nil && !errors.Is(err, accounts.ErrAccountNotFound) {
				return nil, err
			}
			continue
		}
		err = rt.Accounts.SetAccount(&key, acct.Clone())
		if err != nil {
			return nil, err
		}
	}

	return &TransactionResult{ComputeUnitsUsed: execCtx.ComputeMeter.Used(), Logs: recorder.Logs}, nil
}

type teeLogger struct {
	recorder *LogRecorder
	sink     Logger
}

func (l *teeLogger) Log(s string) {
	l.recorder.Log(s)
	if l.sink != nil {
		l.sink.Log(s)
	}
}
