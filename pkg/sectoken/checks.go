package sectoken

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/sealevel"
	"k8s.io/klog/v2"
)

func verifyWritable(acct *sealevel.BorrowedAccount) error {
	if !acct.IsWritable() {
		klog.V(2).Infof("account %s is not writable", acct.Key())
		return sealevel.InstrErrImmutable
	}
	return nil
}

func verifySigner(acct *sealevel.BorrowedAccount) error {
	if !acct.IsSigner() {
		klog.V(2).Infof("account %s did not sign", acct.Key())
		return sealevel.InstrErrMissingRequiredSignature
	}
	return nil
}

// verifyWritableSigner is the usual payer check.
func verifyWritableSigner(acct *sealevel.BorrowedAccount) error {
	err := verifySigner(acct)
	if err != nil {
		return err
	}
	return verifyWritable(acct)
}

func verifyOwner(acct *sealevel.BorrowedAccount, owner solana.PublicKey) error {
	if acct.Owner() != owner {
		klog.V(2).Infof("account %s owned by %s, expected %s", acct.Key(), acct.Owner(), owner)
		return sealevel.InstrErrInvalidAccountOwner
	}
	return nil
}

func verifyProgramKey(acct *sealevel.BorrowedAccount, programId solana.PublicKey) error {
	if acct.Key() != programId {
		return sealevel.InstrErrIncorrectProgramId
	}
	return nil
}

func verifySystemProgram(acct *sealevel.BorrowedAccount) error {
	return verifyProgramKey(acct, sealevel.SystemProgramAddr)
}

func verifyTokenProgram(acct *sealevel.BorrowedAccount) error {
	return verifyProgramKey(acct, sealevel.Token2022ProgramAddr)
}

func (inv *invocation) verifyTransferHookProgram(acct *sealevel.BorrowedAccount) error {
	return verifyProgramKey(acct, inv.hookId)
}

func verifyInstructionsSysvar(acct *sealevel.BorrowedAccount) error {
	return verifyProgramKey(acct, sealevel.SysvarInstructionsAddr)
}

func verifyRentSysvar(acct *sealevel.BorrowedAccount) error {
	return verifyProgramKey(acct, sealevel.SysvarRentAddr)
}

func verifyMintKeysMatch(verifiedMint solana.PublicKey, mint solana.PublicKey) error {
	if verifiedMint != mint {
		klog.V(2).Infof("verified mint %s does not match %s", verifiedMint, mint)
		return sealevel.InstrErrInvalidAccountData
	}
	return nil
}

func verifyAccountNotInitialized(acct *sealevel.BorrowedAccount) error {
	if len(acct.Data()) != 0 || acct.Lamports() != 0 {
		return sealevel.InstrErrAccountAlreadyInitialized
	}
	return nil
}

func verifyAccountInitialized(acct *sealevel.BorrowedAccount) error {
	if len(acct.Data()) == 0 || acct.Lamports() == 0 {
		return sealevel.InstrErrUninitializedAccount
	}
	return nil
}

func verifyPdaKeysMatch(acct *sealevel.BorrowedAccount, expected solana.PublicKey) error {
	if acct.Key() != expected {
		klog.V(2).Infof("account %s is not the derived address %s", acct.Key(), expected)
		return sealevel.InstrErrInvalidSeeds
	}
	return nil
}

// loadMint decodes a Token-2022 mint held by acct.
func loadMint(acct *sealevel.BorrowedAccount) (*sealevel.TokenMint, error) {
	err := verifyOwner(acct, sealevel.Token2022ProgramAddr)
	if err != nil {
		return nil, err
	}
	return sealevel.UnmarshalTokenMint(acct.Data())
}

// loadTokenAccount decodes a Token-2022 token account and checks it
// belongs to mint.
func loadTokenAccount(acct *sealevel.BorrowedAccount, mint solana.PublicKey) (uint64, error) {
	err := verifyOwner(acct, sealevel.Token2022ProgramAddr)
	if err != nil {
		return 0, err
	}
	tokenAcct, err := sealevel.UnmarshalTokenAccount(acct.Data())
	if err != nil {
		return 0, err
	}
	if tokenAcct.Mint != mint {
		klog.V(2).Infof("token account %s belongs to mint %s, not %s", acct.Key(), tokenAcct.Mint, mint)
		return 0, sealevel.InstrErrInvalidInstructionData
	}
	return tokenAcct.Amount, nil
}
