package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/base58"
	"k8s.io/klog/v2"
)

const NativeLoaderAddrStr = "NativeLoader1111111111111111111111111111111"

var NativeLoaderAddr = solana.PublicKey(base58.MustDecodeFromString(NativeLoaderAddrStr))

const SystemProgramAddrStr = "11111111111111111111111111111111"

var SystemProgramAddr = solana.PublicKey(base58.MustDecodeFromString(SystemProgramAddrStr))

const Token2022ProgramAddrStr = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"

var Token2022ProgramAddr = solana.PublicKey(base58.MustDecodeFromString(Token2022ProgramAddrStr))

const SysvarOwnerAddrStr = "Sysvar1111111111111111111111111111111111111"

var SysvarOwnerAddr = solana.PublicKey(base58.MustDecodeFromString(SysvarOwnerAddrStr))

type NativeProgramFn func(execCtx *ExecutionCtx) error

// ProgramRegistry resolves builtin program ids to their entrypoints.
type ProgramRegistry struct {
	programs map[solana.PublicKey]NativeProgramFn
}

// NewProgramRegistry returns a registry preloaded with the system and
// token programs.
func NewProgramRegistry() *ProgramRegistry {
	registry := &ProgramRegistry{programs: make(map[solana.PublicKey]NativeProgramFn)}
	registry.Register(SystemProgramAddr, SystemProgramExecute)
	registry.Register(Token2022ProgramAddr, TokenProgramExecute)
	return registry
}

func (registry *ProgramRegistry) Register(programId solana.PublicKey, fn NativeProgramFn) {
	klog.V(2).Infof("registering native program %s", programId)
	registry.programs[programId] = fn
}

func (registry *ProgramRegistry) IsRegistered(programId solana.PublicKey) bool {
	_, ok := registry.programs[programId]
	return ok
}

func (registry *ProgramRegistry) Resolve(programId solana.PublicKey) (NativeProgramFn, error) {
	fn, ok := registry.programs[programId]
	if !ok {
		return nil, InstrErrUnsupportedProgramId
	}
	return fn, nil
}
