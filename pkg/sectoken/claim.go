package sectoken

import (
	"go.firedancer.io/sectoken/pkg/sealevel"
	"k8s.io/klog/v2"
)

func (inv *invocation) createDistributionEscrow() error {
	var args CreateDistributionEscrowArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(InstrCreateDistributionEscrow)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 6)
	if err != nil {
		return err
	}
	authorityAcct, mintAcct, escrowAcct, payer, tokenProgram, systemProgram := accts[0], accts[1], accts[2], accts[3], accts[4], accts[5]

	err = verifyMintKeysMatch(v.mint, mintAcct.Key())
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
	err = verifyWritableSigner(payer)
	if err != nil {
		return err
	}
	err = verifyWritableSigner(escrowAcct)
	if err != nil {
		return err
	}
	err = verifyAccountNotInitialized(escrowAcct)
	if err != nil {
		return err
	}

	mint := mintAcct.Key()
	authority, err := inv.expectAddress(authorityAcct, escrowAuthoritySeeds(mint, args.ActionId, args.MerkleRoot))
	if err != nil {
		return err
	}
	_, err = loadMint(mintAcct)
	if err != nil {
		return err
	}

	lamports := inv.execCtx.Rent.MinimumBalance(sealevel.TokenAccountLen)
	create := sealevel.NewCreateAccountInstruction(payer.Key(), escrowAcct.Key(), lamports, sealevel.TokenAccountLen, sealevel.Token2022ProgramAddr)
	err = inv.execCtx.Invoke(create)
	if err != nil {
		return err
	}
	err = inv.execCtx.Invoke(sealevel.NewTokenInitializeAccountInstruction(escrowAcct.Key(), mint, authority.Key))
	if err != nil {
		return err
	}

	inv.execCtx.Logf("Created distribution escrow %s for action %d", escrowAcct.Key(), args.ActionId)
	return nil
}

func (inv *invocation) claimDistribution() error {
	var args ClaimDistributionArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(InstrClaimDistribution)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 10)
	if err != nil {
		return err
	}
	payer, delegateAcct, mintAcct, eligibleAcct, escrowAcct := accts[0], accts[1], accts[2], accts[3], accts[4]
	receiptAcct, proofAcct, hookProgram, tokenProgram, systemProgram := accts[5], accts[6], accts[7], accts[8], accts[9]

	err = verifyMintKeysMatch(v.mint, mintAcct.Key())
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
	err = verifySystemProgram(systemProgram)
	if err != nil {
		return err
	}
	err = verifyWritableSigner(payer)
	if err != nil {
		return err
	}
	err = verifyWritable(receiptAcct)
	if err != nil {
		return err
	}
	err = verifyAccountNotInitialized(receiptAcct)
	if err != nil {
		return err
	}

	mint := mintAcct.Key()
	delegate, err := inv.expectAddress(delegateAcct, permanentDelegateSeeds(mint))
	if err != nil {
		return err
	}
	_, err = loadTokenAccount(eligibleAcct, mint)
	if err != nil {
		return err
	}

	proof, err := inv.resolveProof(args.MerkleProof, proofAcct, eligibleAcct, args.ActionId)
	if err != nil {
		return err
	}
	leaf := MerkleLeaf(eligibleAcct.Key(), mint, args.ActionId, args.Amount)
	if !VerifyMerkleProof(leaf, args.MerkleRoot, proof, args.LeafIndex) {
		klog.V(2).Infof("merkle proof for %s does not reach root %s", eligibleAcct.Key(), args.MerkleRoot)
		return InvalidMerkleProof.Err()
	}

	receiptAddress, err := inv.expectAddress(receiptAcct, claimReceiptSeeds(mint, eligibleAcct.Key(), args.ActionId, proof.Hash()))
	if err != nil {
		return err
	}

	settleExternally := escrowAcct.Key() == inv.programId
	if !settleExternally {
		err = inv.checkEscrow(escrowAcct, eligibleAcct, mintAcct, args)
		if err != nil {
			return err
		}
	}

	err = inv.issueReceipt("claim", receiptAcct, payer, receiptAddress, mint, args.ActionId)
	if err != nil {
		return err
	}

	if settleExternally {
		inv.execCtx.Logf("Claim of %d settled outside the program", args.Amount)
		return nil
	}
	return inv.transferFrom(mintAcct, escrowAcct, eligibleAcct, delegate, args.Amount)
}

// checkEscrow requires escrowAcct to be the funded escrow of the
// distribution identified by the claim's action id and root.
func (inv *invocation) checkEscrow(escrowAcct, eligibleAcct, mintAcct *sealevel.BorrowedAccount, args ClaimDistributionArgs) error {
	err := verifyWritable(escrowAcct)
	if err != nil {
		return err
	}
	err = verifyWritable(eligibleAcct)
	if err != nil {
		return err
	}
	if escrowAcct.Owner() != sealevel.Token2022ProgramAddr {
		return sealevel.InstrErrInvalidAccountOwner
	}
	escrow, err := sealevel.UnmarshalTokenAccount(escrowAcct.Data())
	if err != nil {
		return err
	}
	if escrow.Mint != mintAcct.Key() {
		return sealevel.InstrErrInvalidAccountData
	}
	authority, err := FindDistributionEscrowAuthorityAddress(inv.programId, mintAcct.Key(), args.ActionId, args.MerkleRoot)
	if err != nil {
		return err
	}
	if escrow.Owner != authority.Key {
		klog.V(2).Infof("escrow %s is owned by %s, not distribution authority %s", escrowAcct.Key(), escrow.Owner, authority.Key)
		return sealevel.InstrErrInvalidAccountData
	}
	if escrow.Amount < args.Amount {
		return sealevel.InstrErrInsufficientFunds
	}
	return nil
}

func (inv *invocation) closeClaimReceipt() error {
	var args CloseClaimReceiptArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(InstrCloseClaimReceipt)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 5)
	if err != nil {
		return err
	}
	receiptAcct, mintAcct, eligibleAcct, proofAcct, destination := accts[0], accts[1], accts[2], accts[3], accts[4]

	err = verifyMintKeysMatch(v.mint, mintAcct.Key())
	if err != nil {
		return err
	}
	err = verifyWritable(receiptAcct)
	if err != nil {
		return err
	}
	err = verifyWritable(destination)
	if err != nil {
		return err
	}
	err = verifyOwner(receiptAcct, inv.programId)
	if err != nil {
		return err
	}

	proof, err := inv.resolveProof(args.MerkleProof, proofAcct, eligibleAcct, args.ActionId)
	if err != nil {
		return err
	}
	_, err = inv.expectAddress(receiptAcct, claimReceiptSeeds(mintAcct.Key(), eligibleAcct.Key(), args.ActionId, proof.Hash()))
	if err != nil {
		return err
	}
	receipt, err := UnmarshalReceipt(receiptAcct.Data())
	if err != nil {
		return err
	}
	if receipt.Mint != mintAcct.Key() || receipt.ActionId != args.ActionId {
		return sealevel.InstrErrInvalidAccountData
	}

	return closeRecord(receiptAcct, destination)
}
