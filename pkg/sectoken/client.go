package sectoken

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/sealevel"
)

// Client builds instructions for a deployment of the program and its
// transfer hook.
type Client struct {
	ProgramId      solana.PublicKey
	TransferHookId solana.PublicKey
}

func NewClient(programId, transferHookId solana.PublicKey) *Client {
	return &Client{ProgramId: programId, TransferHookId: transferHookId}
}

// Verification selects how the program authorizes an instruction for a
// mint. With a creator the mint creator signs; otherwise the mint's
// verification config for the instruction applies, and CpiPrograms, when
// the config is in CPI mode, are appended after the instruction accounts.
type Verification struct {
	Mint        solana.PublicKey
	Creator     *solana.PublicKey
	CpiPrograms []solana.PublicKey
}

func CreatorVerification(mint, creator solana.PublicKey) Verification {
	return Verification{Mint: mint, Creator: &creator}
}

func ProgramVerification(mint solana.PublicKey, cpiPrograms ...solana.PublicKey) Verification {
	return Verification{Mint: mint, CpiPrograms: cpiPrograms}
}

func readonly(key solana.PublicKey) sealevel.AccountMeta {
	return sealevel.AccountMeta{Pubkey: key}
}

func writable(key solana.PublicKey) sealevel.AccountMeta {
	return sealevel.AccountMeta{Pubkey: key, IsWritable: true}
}

func writableSigner(key solana.PublicKey) sealevel.AccountMeta {
	return sealevel.AccountMeta{Pubkey: key, IsSigner: true, IsWritable: true}
}

// VerificationPrefix returns the three leading accounts of a verified
// instruction.
func (c *Client) VerificationPrefix(v Verification, ix uint8) ([]sealevel.AccountMeta, error) {
	if v.Creator != nil {
		authority, err := FindMintAuthorityAddress(c.ProgramId, v.Mint, *v.Creator)
		if err != nil {
			return nil, err
		}
		return []sealevel.AccountMeta{
			readonly(v.Mint),
			readonly(authority.Key),
			{Pubkey: *v.Creator, IsSigner: true},
		}, nil
	}
	config, err := FindVerificationConfigAddress(c.ProgramId, v.Mint, ix)
	if err != nil {
		return nil, err
	}
	return []sealevel.AccountMeta{
		readonly(v.Mint),
		readonly(config.Key),
		readonly(sealevel.SysvarInstructionsAddr),
	}, nil
}

func (c *Client) verified(v Verification, ix uint8, args instructionArgs, accounts ...sealevel.AccountMeta) (sealevel.Instruction, error) {
	metas, err := c.VerificationPrefix(v, ix)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	metas = append(metas, accounts...)
	for _, program := range v.CpiPrograms {
		metas = append(metas, readonly(program))
	}
	return sealevel.Instruction{ProgramId: c.ProgramId, Accounts: metas, Data: EncodeInstruction(ix, args)}, nil
}

// ComplianceInstruction is the instruction a compliance program must have
// executed earlier in the transaction for target to pass introspection
// verification: same data, accounts starting with target's instruction
// accounts.
func ComplianceInstruction(program solana.PublicKey, target sealevel.Instruction) sealevel.Instruction {
	var accounts []sealevel.AccountMeta
	if len(target.Accounts) > verifiedAccountsOffset {
		accounts = make([]sealevel.AccountMeta, 0, len(target.Accounts)-verifiedAccountsOffset)
		for _, am := range target.Accounts[verifiedAccountsOffset:] {
			accounts = append(accounts, readonly(am.Pubkey))
		}
	}
	return sealevel.Instruction{ProgramId: program, Accounts: accounts, Data: target.Data}
}

func (c *Client) InitializeMint(mint, creator solana.PublicKey, decimals uint8) (sealevel.Instruction, error) {
	authority, err := FindMintAuthorityAddress(c.ProgramId, mint, creator)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	freeze, err := FindFreezeAuthorityAddress(c.ProgramId, mint)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	args := &InitializeMintArgs{Decimals: decimals, MintAuthority: creator, FreezeAuthority: &freeze.Key}
	return sealevel.Instruction{
		ProgramId: c.ProgramId,
		Accounts: []sealevel.AccountMeta{
			writableSigner(mint),
			writable(authority.Key),
			writableSigner(creator),
			readonly(sealevel.Token2022ProgramAddr),
			readonly(sealevel.SystemProgramAddr),
			readonly(sealevel.SysvarRentAddr),
		},
		Data: EncodeInstruction(InstrInitializeMint, args),
	}, nil
}

func (c *Client) InitializeVerificationConfig(v Verification, payer solana.PublicKey, ix uint8, cpiMode bool, programs []solana.PublicKey) (sealevel.Instruction, error) {
	config, err := FindVerificationConfigAddress(c.ProgramId, v.Mint, ix)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	args := &InitializeVerificationConfigArgs{InstructionDiscriminator: ix, CpiMode: cpiMode, Programs: programs}
	return c.verified(v, InstrInitializeVerificationConfig, args,
		writableSigner(payer), readonly(v.Mint), writable(config.Key), readonly(sealevel.SystemProgramAddr))
}

func (c *Client) UpdateVerificationConfig(v Verification, payer solana.PublicKey, ix uint8, cpiMode bool, programs []solana.PublicKey, offset uint8) (sealevel.Instruction, error) {
	config, err := FindVerificationConfigAddress(c.ProgramId, v.Mint, ix)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	args := &UpdateVerificationConfigArgs{InstructionDiscriminator: ix, CpiMode: cpiMode, Programs: programs, Offset: offset}
	return c.verified(v, InstrUpdateVerificationConfig, args,
		writableSigner(payer), readonly(v.Mint), writable(config.Key), readonly(sealevel.SystemProgramAddr))
}

func (c *Client) TrimVerificationConfig(v Verification, recipient solana.PublicKey, ix uint8, size uint8, closeConfig bool) (sealevel.Instruction, error) {
	config, err := FindVerificationConfigAddress(c.ProgramId, v.Mint, ix)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	args := &TrimVerificationConfigArgs{InstructionDiscriminator: ix, Size: size, Close: closeConfig}
	return c.verified(v, InstrTrimVerificationConfig, args,
		readonly(v.Mint), writable(config.Key), writable(recipient), readonly(sealevel.SystemProgramAddr))
}

// Verify asks the program to check the compliance attestations for an
// instruction ix with data over accounts, without executing it.
func (c *Client) Verify(mint solana.PublicKey, ix uint8, data []byte, accounts ...sealevel.AccountMeta) (sealevel.Instruction, error) {
	config, err := FindVerificationConfigAddress(c.ProgramId, mint, ix)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	metas := []sealevel.AccountMeta{readonly(mint), readonly(config.Key), readonly(sealevel.SysvarInstructionsAddr)}
	metas = append(metas, accounts...)
	args := &VerifyArgs{Ix: ix, InstructionData: data}
	return sealevel.Instruction{ProgramId: c.ProgramId, Accounts: metas, Data: EncodeInstruction(InstrVerify, args)}, nil
}

func (c *Client) Mint(v Verification, creator, destination solana.PublicKey, amount uint64) (sealevel.Instruction, error) {
	authority, err := FindMintAuthorityAddress(c.ProgramId, v.Mint, creator)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	return c.verified(v, InstrMint, &AmountArgs{Amount: amount},
		readonly(authority.Key), writable(v.Mint), writable(destination), readonly(sealevel.Token2022ProgramAddr))
}

func (c *Client) Burn(v Verification, tokenAccount solana.PublicKey, amount uint64) (sealevel.Instruction, error) {
	delegate, err := FindPermanentDelegateAddress(c.ProgramId, v.Mint)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	return c.verified(v, InstrBurn, &AmountArgs{Amount: amount},
		readonly(delegate.Key), writable(v.Mint), writable(tokenAccount), readonly(sealevel.Token2022ProgramAddr))
}

func (c *Client) Pause(v Verification) (sealevel.Instruction, error) {
	return c.pausable(v, InstrPause)
}

func (c *Client) Resume(v Verification) (sealevel.Instruction, error) {
	return c.pausable(v, InstrResume)
}

func (c *Client) pausable(v Verification, ix uint8) (sealevel.Instruction, error) {
	authority, err := FindPauseAuthorityAddress(c.ProgramId, v.Mint)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	return c.verified(v, ix, noArgs{},
		readonly(authority.Key), writable(v.Mint), readonly(sealevel.Token2022ProgramAddr))
}

func (c *Client) Freeze(v Verification, tokenAccount solana.PublicKey) (sealevel.Instruction, error) {
	return c.freezable(v, InstrFreeze, tokenAccount)
}

func (c *Client) Thaw(v Verification, tokenAccount solana.PublicKey) (sealevel.Instruction, error) {
	return c.freezable(v, InstrThaw, tokenAccount)
}

func (c *Client) freezable(v Verification, ix uint8, tokenAccount solana.PublicKey) (sealevel.Instruction, error) {
	authority, err := FindFreezeAuthorityAddress(c.ProgramId, v.Mint)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	return c.verified(v, ix, noArgs{},
		readonly(authority.Key), readonly(v.Mint), writable(tokenAccount), readonly(sealevel.Token2022ProgramAddr))
}

func (c *Client) Transfer(v Verification, from, to solana.PublicKey, amount uint64) (sealevel.Instruction, error) {
	delegate, err := FindPermanentDelegateAddress(c.ProgramId, v.Mint)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	return c.verified(v, InstrTransfer, &AmountArgs{Amount: amount},
		readonly(delegate.Key), readonly(v.Mint), writable(from), writable(to), readonly(c.TransferHookId), readonly(sealevel.Token2022ProgramAddr))
}

// OwnerTransfer is a Token-2022 TransferChecked signed by the source
// owner, carrying the accounts the transfer hook needs: the mint's
// Transfer verification config, the programs it lists, and the hook.
func (c *Client) OwnerTransfer(mint, source, destination, owner solana.PublicKey, amount uint64, decimals uint8, programs ...solana.PublicKey) (sealevel.Instruction, error) {
	config, err := FindVerificationConfigAddress(c.ProgramId, mint, InstrTransfer)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	extra := make([]sealevel.AccountMeta, 0, len(programs)+2)
	extra = append(extra, readonly(config.Key))
	for _, program := range programs {
		extra = append(extra, readonly(program))
	}
	extra = append(extra, readonly(c.TransferHookId))
	return sealevel.NewTokenTransferWithHookInstruction(source, mint, destination, owner, amount, decimals, extra...), nil
}

// RateParams describe a rate for the action converting mintFrom into the
// verified mint.
type RateParams struct {
	ActionId    uint64
	MintFrom    solana.PublicKey
	Rounding    Rounding
	Numerator   uint8
	Denominator uint8
}

func (p RateParams) args() *RateArgs {
	return &RateArgs{ActionId: p.ActionId, Rounding: p.Rounding, Numerator: p.Numerator, Denominator: p.Denominator}
}

func (c *Client) CreateRateAccount(v Verification, payer solana.PublicKey, p RateParams) (sealevel.Instruction, error) {
	rate, err := FindRateAddress(c.ProgramId, p.ActionId, p.MintFrom, v.Mint)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	return c.verified(v, InstrCreateRateAccount, p.args(),
		writableSigner(payer), writable(rate.Key), readonly(p.MintFrom), readonly(v.Mint), readonly(sealevel.SystemProgramAddr))
}

func (c *Client) UpdateRateAccount(v Verification, p RateParams) (sealevel.Instruction, error) {
	rate, err := FindRateAddress(c.ProgramId, p.ActionId, p.MintFrom, v.Mint)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	return c.verified(v, InstrUpdateRateAccount, p.args(),
		writable(rate.Key), readonly(p.MintFrom), readonly(v.Mint))
}

func (c *Client) CloseRateAccount(v Verification, destination, mintFrom solana.PublicKey, actionId uint64) (sealevel.Instruction, error) {
	rate, err := FindRateAddress(c.ProgramId, actionId, mintFrom, v.Mint)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	return c.verified(v, InstrCloseRateAccount, &ActionArgs{ActionId: actionId},
		writable(rate.Key), writable(destination), readonly(mintFrom), readonly(v.Mint))
}

// Split rebases tokenAccount by the split rate of actionId. creator
// identifies the mint authority record of the verified mint.
func (c *Client) Split(v Verification, creator, payer, tokenAccount solana.PublicKey, actionId uint64) (sealevel.Instruction, error) {
	mint := v.Mint
	authority, err := FindMintAuthorityAddress(c.ProgramId, mint, creator)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	delegate, err := FindPermanentDelegateAddress(c.ProgramId, mint)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	rate, err := FindRateAddress(c.ProgramId, actionId, mint, mint)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	receipt, err := FindActionReceiptAddress(c.ProgramId, mint, actionId)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	return c.verified(v, InstrSplit, &ActionArgs{ActionId: actionId},
		readonly(authority.Key),
		readonly(delegate.Key),
		writableSigner(payer),
		writable(mint),
		writable(tokenAccount),
		readonly(rate.Key),
		writable(receipt.Key),
		readonly(sealevel.Token2022ProgramAddr),
		readonly(sealevel.SystemProgramAddr),
	)
}

// ConvertParams move Amount of MintFrom held in TokenFrom into the
// verified mint, credited to TokenTo. Creator is the verified mint's
// creator.
type ConvertParams struct {
	ActionId  uint64
	Amount    uint64
	Creator   solana.PublicKey
	MintFrom  solana.PublicKey
	TokenFrom solana.PublicKey
	TokenTo   solana.PublicKey
}

func (c *Client) Convert(v Verification, payer solana.PublicKey, p ConvertParams) (sealevel.Instruction, error) {
	authority, err := FindMintAuthorityAddress(c.ProgramId, v.Mint, p.Creator)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	delegate, err := FindPermanentDelegateAddress(c.ProgramId, p.MintFrom)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	rate, err := FindRateAddress(c.ProgramId, p.ActionId, p.MintFrom, v.Mint)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	receipt, err := FindActionReceiptAddress(c.ProgramId, v.Mint, p.ActionId)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	return c.verified(v, InstrConvert, &ConvertArgs{ActionId: p.ActionId, Amount: p.Amount},
		readonly(authority.Key),
		readonly(delegate.Key),
		writableSigner(payer),
		writable(p.MintFrom),
		writable(v.Mint),
		writable(p.TokenFrom),
		writable(p.TokenTo),
		readonly(rate.Key),
		writable(receipt.Key),
		readonly(sealevel.Token2022ProgramAddr),
		readonly(sealevel.SystemProgramAddr),
	)
}

func (c *Client) proofAccounts(v Verification, payer, tokenAccount solana.PublicKey, actionId uint64) ([]sealevel.AccountMeta, error) {
	proof, err := FindProofAddress(c.ProgramId, tokenAccount, actionId)
	if err != nil {
		return nil, err
	}
	return []sealevel.AccountMeta{
		readonly(tokenAccount),
		readonly(v.Mint),
		writable(proof.Key),
		writableSigner(payer),
		readonly(sealevel.SystemProgramAddr),
	}, nil
}

func (c *Client) CreateProofAccount(v Verification, payer, tokenAccount solana.PublicKey, actionId uint64, proof ProofData) (sealevel.Instruction, error) {
	accounts, err := c.proofAccounts(v, payer, tokenAccount, actionId)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	return c.verified(v, InstrCreateProofAccount, &CreateProofArgs{ActionId: actionId, Data: proof}, accounts...)
}

func (c *Client) UpdateProofAccount(v Verification, payer, tokenAccount solana.PublicKey, actionId uint64, node MerkleNode, offset uint32) (sealevel.Instruction, error) {
	accounts, err := c.proofAccounts(v, payer, tokenAccount, actionId)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	return c.verified(v, InstrUpdateProofAccount, &UpdateProofArgs{ActionId: actionId, Node: node, Offset: offset}, accounts...)
}

func (c *Client) CreateDistributionEscrow(v Verification, payer, escrowTokenAccount solana.PublicKey, actionId uint64, root MerkleNode) (sealevel.Instruction, error) {
	authority, err := FindDistributionEscrowAuthorityAddress(c.ProgramId, v.Mint, actionId, root)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	return c.verified(v, InstrCreateDistributionEscrow, &CreateDistributionEscrowArgs{ActionId: actionId, MerkleRoot: root},
		readonly(authority.Key),
		readonly(v.Mint),
		writableSigner(escrowTokenAccount),
		writableSigner(payer),
		readonly(sealevel.Token2022ProgramAddr),
		readonly(sealevel.SystemProgramAddr),
	)
}

// ClaimParams identify one leaf of a distribution. A nil Escrow settles
// the claim outside the program. With UseProofAccount the proof is read
// from the holder's proof account instead of the instruction; Proof is
// still needed to derive the receipt address.
type ClaimParams struct {
	ActionId        uint64
	Amount          uint64
	Root            MerkleNode
	LeafIndex       uint32
	Proof           ProofData
	UseProofAccount bool
	Eligible        solana.PublicKey
	Escrow          *solana.PublicKey
}

func (c *Client) proofSource(p ClaimParams) (solana.PublicKey, ProofData, error) {
	if !p.UseProofAccount {
		return c.ProgramId, p.Proof, nil
	}
	proof, err := FindProofAddress(c.ProgramId, p.Eligible, p.ActionId)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	return proof.Key, nil, nil
}

func (c *Client) ClaimDistribution(v Verification, payer solana.PublicKey, p ClaimParams) (sealevel.Instruction, error) {
	delegate, err := FindPermanentDelegateAddress(c.ProgramId, v.Mint)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	receipt, err := FindClaimReceiptAddress(c.ProgramId, v.Mint, p.Eligible, p.ActionId, p.Proof)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	proofAcct, argProof, err := c.proofSource(p)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	escrow := readonly(c.ProgramId)
	if p.Escrow != nil {
		escrow = writable(*p.Escrow)
	}
	args := &ClaimDistributionArgs{
		ActionId:    p.ActionId,
		Amount:      p.Amount,
		MerkleRoot:  p.Root,
		LeafIndex:   p.LeafIndex,
		MerkleProof: argProof,
	}
	return c.verified(v, InstrClaimDistribution, args,
		writableSigner(payer),
		readonly(delegate.Key),
		readonly(v.Mint),
		writable(p.Eligible),
		escrow,
		writable(receipt.Key),
		readonly(proofAcct),
		readonly(c.TransferHookId),
		readonly(sealevel.Token2022ProgramAddr),
		readonly(sealevel.SystemProgramAddr),
	)
}

func (c *Client) CloseActionReceipt(v Verification, destination solana.PublicKey, actionId uint64) (sealevel.Instruction, error) {
	receipt, err := FindActionReceiptAddress(c.ProgramId, v.Mint, actionId)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	return c.verified(v, InstrCloseActionReceipt, &ActionArgs{ActionId: actionId},
		writable(receipt.Key), readonly(v.Mint), writable(destination))
}

func (c *Client) CloseClaimReceipt(v Verification, destination solana.PublicKey, p ClaimParams) (sealevel.Instruction, error) {
	receipt, err := FindClaimReceiptAddress(c.ProgramId, v.Mint, p.Eligible, p.ActionId, p.Proof)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	proofAcct, argProof, err := c.proofSource(p)
	if err != nil {
		return sealevel.Instruction{}, err
	}
	return c.verified(v, InstrCloseClaimReceipt, &CloseClaimReceiptArgs{ActionId: p.ActionId, MerkleProof: argProof},
		writable(receipt.Key), readonly(v.Mint), readonly(p.Eligible), readonly(proofAcct), writable(destination))
}
