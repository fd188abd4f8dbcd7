package sectoken

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/sealevel"
	pda "go.firedancer.io/sectoken/pkg/solana"
)

// seed tags
const (
	SeedMintAuthority               = "mint.authority"
	SeedPauseAuthority              = "mint.pause_authority"
	SeedFreezeAuthority             = "mint.freeze_authority"
	SeedTransferHook                = "mint.transfer_hook"
	SeedPermanentDelegate           = "mint.permanent_delegate"
	SeedAccountDelegate             = "account.delegate"
	SeedVerificationConfig          = "verification_config"
	SeedRate                        = "rate"
	SeedReceipt                     = "receipt"
	SeedDistributionEscrowAuthority = "distribution_escrow_authority"
	SeedProof                       = "proof"
)

// Address is a program derived address with the seeds that produced it.
type Address struct {
	Key   solana.PublicKey
	Bump  uint8
	seeds [][]byte
}

// signer returns the seeds, bump included, that let the program sign for
// the address in a cross-program invocation. The runtime re-derives the
// address under the invoking program id, so only this program can use it.
func (a Address) signer() sealevel.SignerSeeds {
	seeds := make(sealevel.SignerSeeds, 0, len(a.seeds)+1)
	seeds = append(seeds, a.seeds...)
	return append(seeds, []byte{a.Bump})
}

func actionIdSeed(actionId uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], actionId)
	return b[:]
}

func findAddress(programId solana.PublicKey, seeds [][]byte) (Address, error) {
	key, bump, err := pda.FindProgramAddress(seeds, programId)
	if err != nil {
		return Address{}, sealevel.InstrErrInvalidSeeds
	}
	return Address{Key: key, Bump: bump, seeds: seeds}, nil
}

// addressWithBump rebuilds an address from a stored bump.
func addressWithBump(programId solana.PublicKey, seeds [][]byte, bump uint8) (Address, error) {
	signerSeeds := append(append([][]byte{}, seeds...), []byte{bump})
	key, err := pda.CreateProgramAddress(signerSeeds, programId)
	if err != nil {
		return Address{}, sealevel.InstrErrInvalidSeeds
	}
	return Address{Key: key, Bump: bump, seeds: seeds}, nil
}

func mintAuthoritySeeds(mint, creator solana.PublicKey) [][]byte {
	return [][]byte{[]byte(SeedMintAuthority), mint[:], creator[:]}
}

func pauseAuthoritySeeds(mint solana.PublicKey) [][]byte {
	return [][]byte{[]byte(SeedPauseAuthority), mint[:]}
}

func freezeAuthoritySeeds(mint solana.PublicKey) [][]byte {
	return [][]byte{[]byte(SeedFreezeAuthority), mint[:]}
}

func transferHookSeeds(mint solana.PublicKey) [][]byte {
	return [][]byte{[]byte(SeedTransferHook), mint[:]}
}

func permanentDelegateSeeds(mint solana.PublicKey) [][]byte {
	return [][]byte{[]byte(SeedPermanentDelegate), mint[:]}
}

func accountDelegateSeeds(account solana.PublicKey) [][]byte {
	return [][]byte{[]byte(SeedAccountDelegate), account[:]}
}

func verificationConfigSeeds(mint solana.PublicKey, ix uint8) [][]byte {
	return [][]byte{[]byte(SeedVerificationConfig), mint[:], {ix}}
}

func rateSeeds(actionId uint64, mintFrom, mintTo solana.PublicKey) [][]byte {
	return [][]byte{[]byte(SeedRate), actionIdSeed(actionId), mintFrom[:], mintTo[:]}
}

func actionReceiptSeeds(mint solana.PublicKey, actionId uint64) [][]byte {
	return [][]byte{[]byte(SeedReceipt), mint[:], actionIdSeed(actionId)}
}

func claimReceiptSeeds(mint, tokenAccount solana.PublicKey, actionId uint64, proofHash MerkleNode) [][]byte {
	return [][]byte{[]byte(SeedReceipt), mint[:], tokenAccount[:], actionIdSeed(actionId), proofHash[:]}
}

func escrowAuthoritySeeds(mint solana.PublicKey, actionId uint64, root MerkleNode) [][]byte {
	return [][]byte{[]byte(SeedDistributionEscrowAuthority), mint[:], actionIdSeed(actionId), root[:]}
}

func proofSeeds(tokenAccount solana.PublicKey, actionId uint64) [][]byte {
	return [][]byte{[]byte(SeedProof), tokenAccount[:], actionIdSeed(actionId)}
}

func FindMintAuthorityAddress(programId, mint, creator solana.PublicKey) (Address, error) {
	return findAddress(programId, mintAuthoritySeeds(mint, creator))
}

func FindPauseAuthorityAddress(programId, mint solana.PublicKey) (Address, error) {
	return findAddress(programId, pauseAuthoritySeeds(mint))
}

func FindFreezeAuthorityAddress(programId, mint solana.PublicKey) (Address, error) {
	return findAddress(programId, freezeAuthoritySeeds(mint))
}

func FindTransferHookAddress(programId, mint solana.PublicKey) (Address, error) {
	return findAddress(programId, transferHookSeeds(mint))
}

func FindPermanentDelegateAddress(programId, mint solana.PublicKey) (Address, error) {
	return findAddress(programId, permanentDelegateSeeds(mint))
}

func FindAccountDelegateAddress(programId, account solana.PublicKey) (Address, error) {
	return findAddress(programId, accountDelegateSeeds(account))
}

func FindVerificationConfigAddress(programId, mint solana.PublicKey, ix uint8) (Address, error) {
	return findAddress(programId, verificationConfigSeeds(mint, ix))
}

func FindRateAddress(programId solana.PublicKey, actionId uint64, mintFrom, mintTo solana.PublicKey) (Address, error) {
	return findAddress(programId, rateSeeds(actionId, mintFrom, mintTo))
}

func FindActionReceiptAddress(programId, mint solana.PublicKey, actionId uint64) (Address, error) {
	return findAddress(programId, actionReceiptSeeds(mint, actionId))
}

func FindClaimReceiptAddress(programId, mint, tokenAccount solana.PublicKey, actionId uint64, proof ProofData) (Address, error) {
	return findAddress(programId, claimReceiptSeeds(mint, tokenAccount, actionId, proof.Hash()))
}

func FindDistributionEscrowAuthorityAddress(programId, mint solana.PublicKey, actionId uint64, root MerkleNode) (Address, error) {
	return findAddress(programId, escrowAuthoritySeeds(mint, actionId, root))
}

func FindProofAddress(programId, tokenAccount solana.PublicKey, actionId uint64) (Address, error) {
	return findAddress(programId, proofSeeds(tokenAccount, actionId))
}
