package sealevel

import (
	"github.com/gagliardetto/solana-go"
)

type Instruction struct {
	Accounts  []AccountMeta
	Data      []byte
	ProgramId solana.PublicKey
}

const AccountMetaSize = 34

type AccountMeta struct {
	Pubkey     solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

type InstructionAccount struct {
	IndexInTransaction uint64
	IndexInCaller      uint64
	IndexInCallee      uint64
	IsSigner           bool
	IsWritable         bool
}

// InstructionFromGeneric converts a solana-go built instruction into the
// runtime representation, addressed to programId.
func InstructionFromGeneric(programId solana.PublicKey, metas []*solana.AccountMeta, data []byte) Instruction {
	acctMetas := make([]AccountMeta, 0, len(metas))
	for _, am := range metas {
		acctMetas = append(acctMetas, AccountMeta{Pubkey: am.PublicKey, IsSigner: am.IsSigner, IsWritable: am.IsWritable})
	}
	return Instruction{Accounts: acctMetas, Data: data, ProgramId: programId}
}

func (ix Instruction) AccountKeys() []solana.PublicKey {
	keys := make([]solana.PublicKey, len(ix.Accounts))
	for i, am := range ix.Accounts {
		keys[i] = am.Pubkey
	}
	return keys
}
