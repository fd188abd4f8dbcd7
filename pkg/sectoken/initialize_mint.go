package sectoken

import (
	"github.com/gagliardetto/solana-go/programs/token"
	"go.firedancer.io/sectoken/pkg/sealevel"
	"k8s.io/klog/v2"
)

// initializeMint creates a Token-2022 mint whose privileged authorities are
// all addresses derived from this program. The creator holds the mint
// authority only until the MintAuthority record is written.
func (inv *invocation) initializeMint() error {
	var args InitializeMintArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	accts, err := inv.accounts(6)
	if err != nil {
		return err
	}
	mintAcct, authorityAcct, creator, tokenProgram, systemProgram, rentSysvar := accts[0], accts[1], accts[2], accts[3], accts[4], accts[5]

	err = verifyWritableSigner(mintAcct)
	if err != nil {
		return err
	}
	err = verifyWritableSigner(creator)
	if err != nil {
		return err
	}
	err = verifyWritable(authorityAcct)
	if err != nil {
		return err
	}
	err = verifyTokenProgram(tokenProgram)
	if err != nil {
		return err
	}
	err = verifySystemProgram(systemProgram)
	if err != nil {
		return err
	}
	err = verifyRentSysvar(rentSysvar)
	if err != nil {
		return err
	}
	err = verifyAccountNotInitialized(mintAcct)
	if err != nil {
		return err
	}
	err = verifyAccountNotInitialized(authorityAcct)
	if err != nil {
		return err
	}

	mint := mintAcct.Key()
	if args.MintAuthority != creator.Key() {
		klog.V(2).Infof("mint authority %s in arguments is not the creator %s", args.MintAuthority, creator.Key())
		return sealevel.InstrErrInvalidArgument
	}
	freeze, err := FindFreezeAuthorityAddress(inv.programId, mint)
	if err != nil {
		return err
	}
	if args.FreezeAuthority != nil && *args.FreezeAuthority != freeze.Key {
		return sealevel.InstrErrInvalidArgument
	}
	authority, err := inv.expectAddress(authorityAcct, mintAuthoritySeeds(mint, creator.Key()))
	if err != nil {
		return err
	}
	pause, err := FindPauseAuthorityAddress(inv.programId, mint)
	if err != nil {
		return err
	}
	delegate, err := FindPermanentDelegateAddress(inv.programId, mint)
	if err != nil {
		return err
	}
	hook, err := FindTransferHookAddress(inv.programId, mint)
	if err != nil {
		return err
	}

	lamports := inv.execCtx.Rent.MinimumBalance(sealevel.MintLen)
	steps := []sealevel.Instruction{
		sealevel.NewCreateAccountInstruction(creator.Key(), mint, lamports, sealevel.MintLen, sealevel.Token2022ProgramAddr),
		sealevel.NewTokenInitializePermanentDelegateInstruction(mint, delegate.Key),
		sealevel.NewTokenInitializeTransferHookInstruction(mint, hook.Key, inv.hookId),
		sealevel.NewTokenInitializePausableInstruction(mint, pause.Key),
		sealevel.NewTokenInitializeMintInstruction(mint, args.Decimals, creator.Key(), &freeze.Key),
	}
	for _, step := range steps {
		err = inv.execCtx.Invoke(step)
		if err != nil {
			return err
		}
	}

	record := &MintAuthority{Mint: mint, MintCreator: creator.Key(), Bump: authority.Bump}
	err = inv.initRecord(record, creator, authorityAcct, authority)
	if err != nil {
		return err
	}

	err = inv.execCtx.Invoke(sealevel.NewTokenSetAuthorityInstruction(mint, creator.Key(), token.AuthorityMintTokens, authority.Key))
	if err != nil {
		return err
	}

	inv.execCtx.Logf("Initialized mint %s with %d decimals", mint, args.Decimals)
	return nil
}
