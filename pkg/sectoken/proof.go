package sectoken

import (
	"go.firedancer.io/sectoken/pkg/sealevel"
)

// proofAccounts borrows and checks the accounts shared by proof creation
// and update: [token_account, mint, proof, payer, system_program].
func (inv *invocation) proofAccounts(ix uint8, actionId uint64) ([]*sealevel.BorrowedAccount, Address, error) {
	v, err := inv.verifyByStrategy(ix)
	if err != nil {
		return nil, Address{}, err
	}
	accts, err := inv.verifiedAccounts(v, 5)
	if err != nil {
		return nil, Address{}, err
	}
	tokenAcct, mintAcct, proofAcct, payer, systemProgram := accts[0], accts[1], accts[2], accts[3], accts[4]

	err = verifyMintKeysMatch(v.mint, mintAcct.Key())
	if err != nil {
		return nil, Address{}, err
	}
	err = verifyWritableSigner(payer)
	if err != nil {
		return nil, Address{}, err
	}
	err = verifyWritable(proofAcct)
	if err != nil {
		return nil, Address{}, err
	}
	err = verifySystemProgram(systemProgram)
	if err != nil {
		return nil, Address{}, err
	}
	_, err = loadTokenAccount(tokenAcct, mintAcct.Key())
	if err != nil {
		return nil, Address{}, err
	}

	address, err := inv.expectAddress(proofAcct, proofSeeds(tokenAcct.Key(), actionId))
	if err != nil {
		return nil, Address{}, err
	}
	return accts, address, nil
}

func (inv *invocation) createProofAccount() error {
	var args CreateProofArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	accts, address, err := inv.proofAccounts(InstrCreateProofAccount, args.ActionId)
	if err != nil {
		return err
	}
	proofAcct, payer := accts[2], accts[3]

	err = verifyAccountNotInitialized(proofAcct)
	if err != nil {
		return err
	}

	proof := &ProofAccount{Bump: address.Bump, Nodes: args.Data}
	err = proof.Validate()
	if err != nil {
		return sealevel.InstrErrInvalidArgument
	}
	return inv.initRecord(proof, payer, proofAcct, address)
}

func (inv *invocation) updateProofAccount() error {
	var args UpdateProofArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	accts, address, err := inv.proofAccounts(InstrUpdateProofAccount, args.ActionId)
	if err != nil {
		return err
	}
	proofAcct, payer := accts[2], accts[3]

	err = verifyOwner(proofAcct, inv.programId)
	if err != nil {
		return err
	}
	proof, err := UnmarshalProofAccount(proofAcct.Data())
	if err != nil {
		return err
	}
	if proof.Bump != address.Bump {
		return sealevel.InstrErrInvalidSeeds
	}

	err = proof.UpdateNodeAt(args.Node, args.Offset)
	if err != nil {
		return err
	}
	err = inv.resizeAndRent(proofAcct, proof.Size(), payer)
	if err != nil {
		return err
	}
	return writeRecord(proofAcct, proof)
}

// loadProofAccount reads the proof stored for tokenAccount and actionId.
func (inv *invocation) loadProofAccount(proofAcct *sealevel.BorrowedAccount, tokenAccount *sealevel.BorrowedAccount, actionId uint64) (ProofData, error) {
	err := verifyOwner(proofAcct, inv.programId)
	if err != nil {
		return nil, err
	}
	err = verifyAccountInitialized(proofAcct)
	if err != nil {
		return nil, err
	}
	_, err = inv.expectAddress(proofAcct, proofSeeds(tokenAccount.Key(), actionId))
	if err != nil {
		return nil, err
	}
	proof, err := UnmarshalProofAccount(proofAcct.Data())
	if err != nil {
		return nil, err
	}
	return proof.Nodes, nil
}

// resolveProof picks the merkle proof from the instruction arguments or
// from the proof account. Exactly one of them must be supplied; the
// program id in the proof account slot means "none".
func (inv *invocation) resolveProof(argProof ProofData, proofAcct, tokenAccount *sealevel.BorrowedAccount, actionId uint64) (ProofData, error) {
	noAccount := proofAcct.Key() == inv.programId
	switch {
	case noAccount && argProof == nil:
		return nil, sealevel.InstrErrInvalidInstructionData
	case noAccount:
		return argProof, nil
	case argProof != nil:
		return nil, sealevel.InstrErrInvalidInstructionData
	default:
		return inv.loadProofAccount(proofAcct, tokenAccount, actionId)
	}
}
