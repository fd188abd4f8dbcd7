package sectoken

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/sealevel"
	"k8s.io/klog/v2"
)

// issueReceipt creates the receipt record at address. A second issue at
// the same address fails in the system program.
func (inv *invocation) issueReceipt(kind string, receiptAcct, payer *sealevel.BorrowedAccount, address Address, mint solana.PublicKey, actionId uint64) error {
	receipt := &Receipt{Mint: mint, ActionId: actionId, Bump: address.Bump}
	err := receipt.Validate()
	if err != nil {
		return err
	}
	err = inv.initRecord(receipt, payer, receiptAcct, address)
	if err != nil {
		return err
	}
	receiptsIssuedTotal.WithLabelValues(kind).Inc()
	inv.execCtx.Logf("Issued %s receipt %s for action %d", kind, address.Key, actionId)
	return nil
}

func (inv *invocation) split() error {
	var args ActionArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(InstrSplit)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 9)
	if err != nil {
		return err
	}
	authorityAcct, delegateAcct, payer, mintAcct, tokenAcct := accts[0], accts[1], accts[2], accts[3], accts[4]
	rateAcct, receiptAcct, tokenProgram, systemProgram := accts[5], accts[6], accts[7], accts[8]

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
	err = verifySigner(payer)
	if err != nil {
		return err
	}
	err = verifyWritable(tokenAcct)
	if err != nil {
		return err
	}
	err = verifyWritable(receiptAcct)
	if err != nil {
		return err
	}
	err = verifyWritable(payer)
	if err != nil {
		return err
	}
	err = verifyWritable(mintAcct)
	if err != nil {
		return err
	}
	err = verifyOwner(authorityAcct, inv.programId)
	if err != nil {
		return err
	}
	err = verifyOwner(rateAcct, inv.programId)
	if err != nil {
		return err
	}
	err = verifyAccountNotInitialized(receiptAcct)
	if err != nil {
		return err
	}
	err = verifyAccountInitialized(rateAcct)
	if err != nil {
		return err
	}

	mint := mintAcct.Key()
	delegate, err := inv.expectAddress(delegateAcct, permanentDelegateSeeds(mint))
	if err != nil {
		return err
	}
	receiptAddress, err := inv.expectAddress(receiptAcct, actionReceiptSeeds(mint, args.ActionId))
	if err != nil {
		return err
	}
	rate, err := inv.loadRate(rateAcct, mintAcct, mintAcct, args.ActionId)
	if err != nil {
		return err
	}
	authority, err := inv.loadMintAuthority(authorityAcct, mint, sealevel.InstrErrInvalidInstructionData)
	if err != nil {
		return err
	}

	balance, err := loadTokenAccount(tokenAcct, mint)
	if err != nil {
		return err
	}
	if balance == 0 {
		return sealevel.InstrErrInsufficientFunds
	}

	newBalance, delta, err := rate.Split(balance)
	if err != nil {
		return err
	}
	switch {
	case delta.Amount == 0:
		inv.execCtx.Logf("No change in amount after split")
	case delta.Burn:
		err = inv.burnFrom(mintAcct, tokenAcct, delegate, delta.Amount)
	default:
		err = inv.mintTo(mintAcct, tokenAcct, authority, delta.Amount)
	}
	if err != nil {
		return err
	}
	klog.V(2).Infof("split %s: %d -> %d", tokenAcct.Key(), balance, newBalance)

	return inv.issueReceipt("action", receiptAcct, payer, receiptAddress, mint, args.ActionId)
}

func (inv *invocation) convert() error {
	var args ConvertArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(InstrConvert)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 11)
	if err != nil {
		return err
	}
	authorityAcct, delegateAcct, payer, mintFromAcct, mintToAcct := accts[0], accts[1], accts[2], accts[3], accts[4]
	tokenFrom, tokenTo, rateAcct, receiptAcct, tokenProgram, systemProgram := accts[5], accts[6], accts[7], accts[8], accts[9], accts[10]

	err = verifyMintKeysMatch(v.mint, mintToAcct.Key())
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
	err = verifySigner(payer)
	if err != nil {
		return err
	}
	err = verifyWritable(tokenFrom)
	if err != nil {
		return err
	}
	err = verifyWritable(tokenTo)
	if err != nil {
		return err
	}
	err = verifyWritable(receiptAcct)
	if err != nil {
		return err
	}
	err = verifyWritable(payer)
	if err != nil {
		return err
	}
	err = verifyWritable(mintFromAcct)
	if err != nil {
		return err
	}
	err = verifyWritable(mintToAcct)
	if err != nil {
		return err
	}
	err = verifyOwner(rateAcct, inv.programId)
	if err != nil {
		return err
	}
	err = verifyOwner(authorityAcct, inv.programId)
	if err != nil {
		return err
	}
	err = verifyAccountNotInitialized(receiptAcct)
	if err != nil {
		return err
	}
	err = verifyAccountInitialized(rateAcct)
	if err != nil {
		return err
	}

	mintFrom, mintTo := mintFromAcct.Key(), mintToAcct.Key()
	delegate, err := inv.expectAddress(delegateAcct, permanentDelegateSeeds(mintFrom))
	if err != nil {
		return err
	}
	receiptAddress, err := inv.expectAddress(receiptAcct, actionReceiptSeeds(v.mint, args.ActionId))
	if err != nil {
		return err
	}
	rate, err := inv.loadRate(rateAcct, mintFromAcct, mintToAcct, args.ActionId)
	if err != nil {
		return err
	}

	fromDecimals, err := mintDecimals(mintFromAcct)
	if err != nil {
		return err
	}
	toDecimals, err := mintDecimals(mintToAcct)
	if err != nil {
		return err
	}

	balance, err := loadTokenAccount(tokenFrom, mintFrom)
	if err != nil {
		return err
	}
	if balance == 0 || balance < args.Amount {
		return sealevel.InstrErrInsufficientFunds
	}
	_, err = loadTokenAccount(tokenTo, mintTo)
	if err != nil {
		return err
	}

	authority, err := inv.loadMintAuthority(authorityAcct, mintTo, sealevel.InstrErrInvalidInstructionData)
	if err != nil {
		return err
	}

	amountToMint, err := rate.Convert(args.Amount, fromDecimals, toDecimals)
	if err != nil {
		return err
	}
	if amountToMint == 0 {
		return sealevel.InstrErrInvalidInstructionData
	}

	err = inv.burnFrom(mintFromAcct, tokenFrom, delegate, args.Amount)
	if err != nil {
		return err
	}
	err = inv.mintTo(mintToAcct, tokenTo, authority, amountToMint)
	if err != nil {
		return err
	}

	return inv.issueReceipt("action", receiptAcct, payer, receiptAddress, v.mint, args.ActionId)
}

func (inv *invocation) closeActionReceipt() error {
	var args ActionArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(InstrCloseActionReceipt)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 3)
	if err != nil {
		return err
	}
	receiptAcct, mintAcct, destination := accts[0], accts[1], accts[2]

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
	_, err = inv.expectAddress(receiptAcct, actionReceiptSeeds(mintAcct.Key(), args.ActionId))
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
