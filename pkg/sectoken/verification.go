package sectoken

import (
	"slices"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"go.firedancer.io/sectoken/pkg/sealevel"
	"k8s.io/klog/v2"
)

// Position of the verification prefix shared by every verified instruction.
const (
	verifyMintIdx          = 0
	verifyConfigIdx        = 1
	verifySysvarOrCreator  = 2
	verifiedAccountsOffset = 3
)

// verified is the result of a successful verification: the mint the
// instruction was verified for and the instruction accounts, as indices
// into the current instruction's account list, that the handler operates
// on.
type verified struct {
	mint     solana.PublicKey
	accounts []uint64
}

func (inv *invocation) verifiedAccount(v *verified, idx int) (*sealevel.BorrowedAccount, error) {
	if idx >= len(v.accounts) {
		return nil, sealevel.InstrErrNotEnoughAccountKeys
	}
	return inv.account(v.accounts[idx])
}

// verifiedAccounts borrows the first n verified accounts.
func (inv *invocation) verifiedAccounts(v *verified, n int) ([]*sealevel.BorrowedAccount, error) {
	if len(v.accounts) < n {
		return nil, sealevel.InstrErrNotEnoughAccountKeys
	}
	accts := make([]*sealevel.BorrowedAccount, n)
	for i := 0; i < n; i++ {
		acct, err := inv.account(v.accounts[i])
		if err != nil {
			return nil, err
		}
		accts[i] = acct
	}
	return accts, nil
}

// ValidateAccountVerification checks that every list of accounts a
// compliance program attested is non-empty and starts with the required
// accounts in order.
func ValidateAccountVerification(lists [][]solana.PublicKey, required []solana.PublicKey) error {
	for _, list := range lists {
		if len(list) == 0 || len(list) < len(required) {
			return AccountIntersectionMismatch.Err()
		}
		if !slices.Equal(list[:len(required)], required) {
			return AccountIntersectionMismatch.Err()
		}
	}
	return nil
}

func (inv *invocation) accountRange(from uint64) []uint64 {
	n := inv.instrCtx.NumberOfInstructionAccounts()
	if from >= n {
		return []uint64{}
	}
	return lo.RangeFrom(from, int(n-from))
}

// verifyByStrategy verifies the current instruction using the record
// found in the second account: a VerificationConfig selects program
// verification and a MintAuthority selects creator signature verification.
func (inv *invocation) verifyByStrategy(ix uint8) (*verified, error) {
	err := inv.instrCtx.CheckNumOfInstructionAccounts(verifiedAccountsOffset)
	if err != nil {
		return nil, err
	}

	strategyAcct, err := inv.account(verifyConfigIdx)
	if err != nil {
		return nil, err
	}
	if len(strategyAcct.Data()) == 0 {
		return nil, sealevel.InstrErrInvalidAccountData
	}

	switch strategyAcct.Data()[0] {
	case DiscriminatorVerificationConfig:
		return inv.verifyByPrograms(ix, inv.instrCtx.Data)
	case DiscriminatorMintAuthority:
		return inv.verifyByMintAuthority()
	default:
		return nil, sealevel.InstrErrInvalidAccountData
	}
}

// verifyByMintAuthority accepts the instruction when it is signed by the
// creator recorded in the mint authority account.
func (inv *invocation) verifyByMintAuthority() (*verified, error) {
	mintAcct, err := inv.account(verifyMintIdx)
	if err != nil {
		return nil, err
	}
	authorityAcct, err := inv.account(verifyConfigIdx)
	if err != nil {
		return nil, err
	}
	creatorAcct, err := inv.account(verifySysvarOrCreator)
	if err != nil {
		return nil, err
	}

	err = verifySigner(creatorAcct)
	if err != nil {
		return nil, err
	}
	err = verifyOwner(authorityAcct, inv.programId)
	if err != nil {
		return nil, err
	}
	err = verifyOwner(mintAcct, sealevel.Token2022ProgramAddr)
	if err != nil {
		return nil, err
	}

	if len(authorityAcct.Data()) < MintAuthorityLen {
		return nil, sealevel.InstrErrInvalidAccountData
	}
	state, err := UnmarshalMintAuthority(authorityAcct.Data())
	if err != nil {
		return nil, err
	}
	if state.Mint != mintAcct.Key() {
		return nil, sealevel.InstrErrInvalidAccountData
	}
	if state.MintCreator != creatorAcct.Key() {
		klog.V(2).Infof("%s is not the creator of mint %s", creatorAcct.Key(), mintAcct.Key())
		return nil, sealevel.InstrErrMissingRequiredSignature
	}

	expected, err := addressWithBump(inv.programId, mintAuthoritySeeds(state.Mint, state.MintCreator), state.Bump)
	if err != nil {
		return nil, err
	}
	err = verifyPdaKeysMatch(authorityAcct, expected.Key)
	if err != nil {
		return nil, err
	}

	verificationsTotal.WithLabelValues("mint_authority", "ok").Inc()
	return &verified{mint: mintAcct.Key(), accounts: inv.accountRange(verifiedAccountsOffset)}, nil
}

// verifyByPrograms requires every program listed in the mint's
// verification config for ix to have attested targetData over the
// instruction accounts, either in an earlier instruction of the
// transaction or through a cross-program invocation.
func (inv *invocation) verifyByPrograms(ix uint8, targetData []byte) (v *verified, err error) {
	mode := "introspection"
	defer func() {
		result := "ok"
		if err != nil {
			result = "failed"
		}
		verificationsTotal.WithLabelValues(mode, result).Inc()
	}()

	err = inv.instrCtx.CheckNumOfInstructionAccounts(verifiedAccountsOffset)
	if err != nil {
		return nil, err
	}
	mintAcct, err := inv.account(verifyMintIdx)
	if err != nil {
		return nil, err
	}
	configAcct, err := inv.account(verifyConfigIdx)
	if err != nil {
		return nil, err
	}
	sysvarAcct, err := inv.account(verifySysvarOrCreator)
	if err != nil {
		return nil, err
	}

	if len(configAcct.Data()) == 0 {
		return nil, sealevel.InstrErrUninitializedAccount
	}
	err = verifyInstructionsSysvar(sysvarAcct)
	if err != nil {
		return nil, err
	}
	err = verifyOwner(configAcct, inv.programId)
	if err != nil {
		return nil, err
	}
	err = verifyOwner(mintAcct, sealevel.Token2022ProgramAddr)
	if err != nil {
		return nil, err
	}

	config, err := UnmarshalVerificationConfig(configAcct.Data())
	if err != nil {
		return nil, err
	}
	if config.InstructionDiscriminator != ix {
		klog.V(2).Infof("verification config %s is for instruction %d, not %d", configAcct.Key(), config.InstructionDiscriminator, ix)
		return nil, sealevel.InstrErrInvalidAccountData
	}
	expected, err := addressWithBump(inv.programId, verificationConfigSeeds(mintAcct.Key(), ix), config.Bump)
	if err != nil || expected.Key != configAcct.Key() {
		return nil, InvalidVerificationConfigPda.Err()
	}

	accounts := inv.accountRange(verifiedAccountsOffset)
	if len(config.Programs) == 0 {
		return &verified{mint: mintAcct.Key(), accounts: accounts}, nil
	}

	if config.CpiMode {
		mode = "cpi"
		accounts, err = inv.verifyByCpi(config.Programs, accounts, targetData)
		if err != nil {
			return nil, err
		}
		return &verified{mint: mintAcct.Key(), accounts: accounts}, nil
	}

	required, err := inv.accountKeys(accounts)
	if err != nil {
		return nil, err
	}
	err = verifyByIntrospection(sysvarAcct.Data(), config.Programs, targetData, required)
	if err != nil {
		return nil, err
	}
	return &verified{mint: mintAcct.Key(), accounts: accounts}, nil
}

// verifyByCpi invokes each configured program with the instruction
// accounts. The programs themselves are passed as the trailing accounts
// and are not part of the verified set.
func (inv *invocation) verifyByCpi(programs []solana.PublicKey, accounts []uint64, targetData []byte) ([]uint64, error) {
	if len(programs) > len(accounts) {
		return nil, NotEnoughAccountsForVerification.Err()
	}
	target := accounts[:len(accounts)-len(programs)]

	metas := make([]sealevel.AccountMeta, 0, len(target))
	for _, idx := range target {
		key, err := inv.instrCtx.InstructionAccountKey(inv.txCtx, idx)
		if err != nil {
			return nil, err
		}
		isSigner, err := inv.instrCtx.IsInstructionAccountSigner(idx)
		if err != nil {
			return nil, err
		}
		isWritable, err := inv.instrCtx.IsInstructionAccountWritable(idx)
		if err != nil {
			return nil, err
		}
		metas = append(metas, sealevel.AccountMeta{Pubkey: key, IsSigner: isSigner, IsWritable: isWritable})
	}

	for _, program := range programs {
		err := inv.execCtx.Invoke(sealevel.Instruction{ProgramId: program, Accounts: metas, Data: targetData})
		if err != nil {
			klog.V(2).Infof("verification program %s rejected instruction: %s", program, err)
			return nil, err
		}
	}
	return target, nil
}

func (inv *invocation) accountKeys(indices []uint64) ([]solana.PublicKey, error) {
	keys := make([]solana.PublicKey, 0, len(indices))
	for _, idx := range indices {
		key, err := inv.instrCtx.InstructionAccountKey(inv.txCtx, idx)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
