package sectoken

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/sealevel"
)

// expectAddress derives the address for seeds and requires acct to be it.
func (inv *invocation) expectAddress(acct *sealevel.BorrowedAccount, seeds [][]byte) (Address, error) {
	address, err := findAddress(inv.programId, seeds)
	if err != nil {
		return Address{}, err
	}
	err = verifyPdaKeysMatch(acct, address.Key)
	if err != nil {
		return Address{}, err
	}
	return address, nil
}

// loadMintAuthority checks the mint authority record for mint and returns
// the address the program signs with when minting. mismatchErr is returned
// when the record belongs to another mint.
func (inv *invocation) loadMintAuthority(authorityAcct *sealevel.BorrowedAccount, mint solana.PublicKey, mismatchErr error) (Address, error) {
	err := verifyOwner(authorityAcct, inv.programId)
	if err != nil {
		return Address{}, err
	}
	state, err := UnmarshalMintAuthority(authorityAcct.Data())
	if err != nil {
		return Address{}, err
	}
	if state.Mint != mint {
		return Address{}, mismatchErr
	}
	address, err := addressWithBump(inv.programId, mintAuthoritySeeds(state.Mint, state.MintCreator), state.Bump)
	if err != nil {
		return Address{}, err
	}
	err = verifyPdaKeysMatch(authorityAcct, address.Key)
	if err != nil {
		return Address{}, err
	}
	return address, nil
}

func mintDecimals(mintAcct *sealevel.BorrowedAccount) (uint8, error) {
	mint, err := loadMint(mintAcct)
	if err != nil {
		return 0, err
	}
	return mint.Decimals, nil
}

func (inv *invocation) mintTo(mintAcct, destination *sealevel.BorrowedAccount, authority Address, amount uint64) error {
	decimals, err := mintDecimals(mintAcct)
	if err != nil {
		return err
	}
	ix := sealevel.NewTokenMintToInstruction(mintAcct.Key(), destination.Key(), authority.Key, amount, decimals)
	return inv.execCtx.InvokeSigned(ix, authority.signer())
}

func (inv *invocation) burnFrom(mintAcct, source *sealevel.BorrowedAccount, delegate Address, amount uint64) error {
	decimals, err := mintDecimals(mintAcct)
	if err != nil {
		return err
	}
	ix := sealevel.NewTokenBurnInstruction(source.Key(), mintAcct.Key(), delegate.Key, amount, decimals)
	return inv.execCtx.InvokeSigned(ix, delegate.signer())
}

// transferFrom moves amount out of source signed by the permanent
// delegate. The hook program rides along for the token program to call.
func (inv *invocation) transferFrom(mintAcct, source, destination *sealevel.BorrowedAccount, delegate Address, amount uint64) error {
	decimals, err := mintDecimals(mintAcct)
	if err != nil {
		return err
	}
	ix := sealevel.NewTokenTransferWithHookInstruction(source.Key(), mintAcct.Key(), destination.Key(), delegate.Key, amount, decimals,
		sealevel.AccountMeta{Pubkey: inv.hookId})
	return inv.execCtx.InvokeSigned(ix, delegate.signer())
}

func (inv *invocation) mint() error {
	var args AmountArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(InstrMint)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 4)
	if err != nil {
		return err
	}
	authorityAcct, mintAcct, destination, tokenProgram := accts[0], accts[1], accts[2], accts[3]

	err = verifyMintKeysMatch(v.mint, mintAcct.Key())
	if err != nil {
		return err
	}
	err = verifyWritable(mintAcct)
	if err != nil {
		return err
	}
	err = verifyWritable(destination)
	if err != nil {
		return err
	}
	err = verifyTokenProgram(tokenProgram)
	if err != nil {
		return err
	}
	authority, err := inv.loadMintAuthority(authorityAcct, mintAcct.Key(), sealevel.InstrErrInvalidAccountData)
	if err != nil {
		return err
	}

	return inv.mintTo(mintAcct, destination, authority, args.Amount)
}

func (inv *invocation) burn() error {
	var args AmountArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(InstrBurn)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 4)
	if err != nil {
		return err
	}
	delegateAcct, mintAcct, tokenAcct, tokenProgram := accts[0], accts[1], accts[2], accts[3]

	err = verifyMintKeysMatch(v.mint, mintAcct.Key())
	if err != nil {
		return err
	}
	err = verifyWritable(mintAcct)
	if err != nil {
		return err
	}
	err = verifyWritable(tokenAcct)
	if err != nil {
		return err
	}
	err = verifyTokenProgram(tokenProgram)
	if err != nil {
		return err
	}
	delegate, err := inv.expectAddress(delegateAcct, permanentDelegateSeeds(mintAcct.Key()))
	if err != nil {
		return err
	}

	return inv.burnFrom(mintAcct, tokenAcct, delegate, args.Amount)
}

func (inv *invocation) setPaused(ix uint8, paused bool) error {
	err := DecodeArgs(inv.args, noArgs{})
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(ix)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 3)
	if err != nil {
		return err
	}
	pauseAcct, mintAcct, tokenProgram := accts[0], accts[1], accts[2]

	err = verifyMintKeysMatch(v.mint, mintAcct.Key())
	if err != nil {
		return err
	}
	err = verifyWritable(mintAcct)
	if err != nil {
		return err
	}
	err = verifyTokenProgram(tokenProgram)
	if err != nil {
		return err
	}
	authority, err := inv.expectAddress(pauseAcct, pauseAuthoritySeeds(mintAcct.Key()))
	if err != nil {
		return err
	}

	var toggle sealevel.Instruction
	if paused {
		toggle = sealevel.NewTokenPauseInstruction(mintAcct.Key(), authority.Key)
	} else {
		toggle = sealevel.NewTokenResumeInstruction(mintAcct.Key(), authority.Key)
	}
	return inv.execCtx.InvokeSigned(toggle, authority.signer())
}

func (inv *invocation) setFrozen(ix uint8, frozen bool) error {
	err := DecodeArgs(inv.args, noArgs{})
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(ix)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 4)
	if err != nil {
		return err
	}
	freezeAcct, mintAcct, tokenAcct, tokenProgram := accts[0], accts[1], accts[2], accts[3]

	err = verifyMintKeysMatch(v.mint, mintAcct.Key())
	if err != nil {
		return err
	}
	err = verifyWritable(tokenAcct)
	if err != nil {
		return err
	}
	err = verifyTokenProgram(tokenProgram)
	if err != nil {
		return err
	}
	authority, err := inv.expectAddress(freezeAcct, freezeAuthoritySeeds(mintAcct.Key()))
	if err != nil {
		return err
	}

	var toggle sealevel.Instruction
	if frozen {
		toggle = sealevel.NewTokenFreezeInstruction(tokenAcct.Key(), mintAcct.Key(), authority.Key)
	} else {
		toggle = sealevel.NewTokenThawInstruction(tokenAcct.Key(), mintAcct.Key(), authority.Key)
	}
	return inv.execCtx.InvokeSigned(toggle, authority.signer())
}

func (inv *invocation) transfer() error {
	var args AmountArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(InstrTransfer)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 6)
	if err != nil {
		return err
	}
	delegateAcct, mintAcct, from, to, hookProgram, tokenProgram := accts[0], accts[1], accts[2], accts[3], accts[4], accts[5]

	err = verifyMintKeysMatch(v.mint, mintAcct.Key())
	if err != nil {
		return err
	}
	err = verifyWritable(from)
	if err != nil {
		return err
	}
	err = verifyWritable(to)
	if err != nil {
		return err
	}
	err = inv.verifyTransferHookProgram(hookProgram)
	if err != nil {
		return err
	}
	err = verifyTokenProgram(tokenProgram)
	if err != nil {
		return err
	}
	delegate, err := inv.expectAddress(delegateAcct, permanentDelegateSeeds(mintAcct.Key()))
	if err != nil {
		return err
	}

	return inv.transferFrom(mintAcct, from, to, delegate, args.Amount)
}
