// Package compliance is a native allowlist program. It approves an
// instruction when every account it is handed is on its allowlist, and
// security token mints use it as a verification program in either
// introspection or CPI mode.
package compliance

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/sealevel"
	"k8s.io/klog/v2"
)

const CUComplianceDefaultComputeUnits = 500

var (
	ErrEmptyInstruction = sealevel.NewCustomErr(0, "ComplianceErrEmptyInstruction")
	ErrNotAllowlisted   = sealevel.NewCustomErr(1, "ComplianceErrNotAllowlisted")
)

// Allowlist is the set of accounts a compliance program approves. With
// AllowAll set every account passes.
type Allowlist struct {
	AllowAll bool
	keys     map[solana.PublicKey]struct{}
}

func NewAllowlist(keys ...solana.PublicKey) *Allowlist {
	al := &Allowlist{keys: make(map[solana.PublicKey]struct{}, len(keys))}
	al.Add(keys...)
	return al
}

func (al *Allowlist) Add(keys ...solana.PublicKey) {
	for _, k := range keys {
		al.keys[k] = struct{}{}
	}
}

func (al *Allowlist) Remove(key solana.PublicKey) {
	delete(al.keys, key)
}

func (al *Allowlist) Contains(key solana.PublicKey) bool {
	if al.AllowAll {
		return true
	}
	_, ok := al.keys[key]
	return ok
}

// Program returns the native entrypoint backed by al.
func Program(al *Allowlist) sealevel.NativeProgramFn {
	return func(execCtx *sealevel.ExecutionCtx) error {
		err := execCtx.ComputeMeter.Consume(CUComplianceDefaultComputeUnits)
		if err != nil {
			return sealevel.InstrErrComputationalBudgetExceeded
		}

		txCtx := execCtx.TransactionContext
		instrCtx, err := txCtx.CurrentInstructionCtx()
		if err != nil {
			return err
		}
		if len(instrCtx.Data) == 0 {
			return ErrEmptyInstruction
		}

		for idx := uint64(0); idx < instrCtx.NumberOfInstructionAccounts(); idx++ {
			key, err := instrCtx.InstructionAccountKey(txCtx, idx)
			if err != nil {
				return err
			}
			if !al.Contains(key) {
				klog.V(2).Infof("account %s is not allowlisted", key)
				execCtx.Logf("Account %s not allowlisted", key)
				return ErrNotAllowlisted
			}
		}

		execCtx.Logf("Approved %d accounts", instrCtx.NumberOfInstructionAccounts())
		return nil
	}
}

// Register installs an allowlist program under programId.
func Register(registry *sealevel.ProgramRegistry, programId solana.PublicKey, al *Allowlist) {
	registry.Register(programId, Program(al))
}
