package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

type genericInstruction interface {
	Accounts() []*solana.AccountMeta
	Data() ([]byte, error)
}

func fromTokenInstruction(inst genericInstruction) Instruction {
	data, err := inst.Data()
	if err != nil {
		panic("shouldn't fail")
	}
	return InstructionFromGeneric(Token2022ProgramAddr, inst.Accounts(), data)
}

func NewTokenInitializeMintInstruction(mint solana.PublicKey, decimals uint8, mintAuthority solana.PublicKey, freezeAuthority *solana.PublicKey) Instruction {
	builder := token.NewInitializeMint2InstructionBuilder().
		SetDecimals(decimals).
		SetMintAuthority(mintAuthority).
		SetMintAccount(mint)
	if freezeAuthority != nil {
		builder.SetFreezeAuthority(*freezeAuthority)
	}
	return fromTokenInstruction(builder.Build())
}

func NewTokenInitializeAccountInstruction(account solana.PublicKey, mint solana.PublicKey, owner solana.PublicKey) Instruction {
	return fromTokenInstruction(token.NewInitializeAccount3Instruction(owner, account, mint).Build())
}

func NewTokenMintToInstruction(mint solana.PublicKey, destination solana.PublicKey, authority solana.PublicKey, amount uint64, decimals uint8) Instruction {
	return fromTokenInstruction(token.NewMintToCheckedInstruction(amount, decimals, mint, destination, authority, nil).Build())
}

func NewTokenBurnInstruction(source solana.PublicKey, mint solana.PublicKey, authority solana.PublicKey, amount uint64, decimals uint8) Instruction {
	return fromTokenInstruction(token.NewBurnCheckedInstruction(amount, decimals, source, mint, authority, nil).Build())
}

func NewTokenTransferInstruction(source solana.PublicKey, mint solana.PublicKey, destination solana.PublicKey, authority solana.PublicKey, amount uint64, decimals uint8) Instruction {
	return fromTokenInstruction(token.NewTransferCheckedInstruction(amount, decimals, source, mint, destination, authority, nil).Build())
}

// NewTokenTransferWithHookInstruction is TransferChecked with extra
// accounts appended for the mint's transfer hook, the hook program among
// them.
func NewTokenTransferWithHookInstruction(source solana.PublicKey, mint solana.PublicKey, destination solana.PublicKey, authority solana.PublicKey, amount uint64, decimals uint8, extra ...AccountMeta) Instruction {
	ix := NewTokenTransferInstruction(source, mint, destination, authority, amount, decimals)
	ix.Accounts = append(ix.Accounts, extra...)
	return ix
}

func NewTokenFreezeInstruction(account solana.PublicKey, mint solana.PublicKey, authority solana.PublicKey) Instruction {
	return fromTokenInstruction(token.NewFreezeAccountInstruction(account, mint, authority, nil).Build())
}

func NewTokenThawInstruction(account solana.PublicKey, mint solana.PublicKey, authority solana.PublicKey) Instruction {
	return fromTokenInstruction(token.NewThawAccountInstruction(account, mint, authority, nil).Build())
}

func NewTokenSetAuthorityInstruction(mint solana.PublicKey, authority solana.PublicKey, authorityType token.AuthorityType, newAuthority solana.PublicKey) Instruction {
	return fromTokenInstruction(token.NewSetAuthorityInstruction(authorityType, newAuthority, mint, authority, nil).Build())
}

func NewTokenInitializePermanentDelegateInstruction(mint solana.PublicKey, delegate solana.PublicKey) Instruction {
	data := append([]byte{TokenInstrInitializePermanentDelegate}, delegate[:]...)
	return Instruction{
		Accounts:  []AccountMeta{{Pubkey: mint, IsWritable: true}},
		Data:      data,
		ProgramId: Token2022ProgramAddr,
	}
}

func NewTokenInitializeTransferHookInstruction(mint solana.PublicKey, authority solana.PublicKey, programId solana.PublicKey) Instruction {
	data := append([]byte{TokenInstrTransferHookExtension, TransferHookInstrInitialize}, authority[:]...)
	data = append(data, programId[:]...)
	return Instruction{
		Accounts:  []AccountMeta{{Pubkey: mint, IsWritable: true}},
		Data:      data,
		ProgramId: Token2022ProgramAddr,
	}
}

func NewTokenUpdateTransferHookInstruction(mint solana.PublicKey, authority solana.PublicKey, programId solana.PublicKey) Instruction {
	data := append([]byte{TokenInstrTransferHookExtension, TransferHookInstrUpdate}, programId[:]...)
	return Instruction{
		Accounts: []AccountMeta{
			{Pubkey: mint, IsWritable: true},
			{Pubkey: authority, IsSigner: true},
		},
		Data:      data,
		ProgramId: Token2022ProgramAddr,
	}
}

func NewTokenInitializePausableInstruction(mint solana.PublicKey, authority solana.PublicKey) Instruction {
	data := append([]byte{TokenInstrPausableExtension, PausableInstrInitialize}, authority[:]...)
	return Instruction{
		Accounts:  []AccountMeta{{Pubkey: mint, IsWritable: true}},
		Data:      data,
		ProgramId: Token2022ProgramAddr,
	}
}

func NewTokenPauseInstruction(mint solana.PublicKey, authority solana.PublicKey) Instruction {
	return newPausableToggle(mint, authority, PausableInstrPause)
}

func NewTokenResumeInstruction(mint solana.PublicKey, authority solana.PublicKey) Instruction {
	return newPausableToggle(mint, authority, PausableInstrResume)
}

func newPausableToggle(mint solana.PublicKey, authority solana.PublicKey, op byte) Instruction {
	return Instruction{
		Accounts: []AccountMeta{
			{Pubkey: mint, IsWritable: true},
			{Pubkey: authority, IsSigner: true},
		},
		Data:      []byte{TokenInstrPausableExtension, op},
		ProgramId: Token2022ProgramAddr,
	}
}
