package sectoken

import (
	"fmt"

	"go.firedancer.io/sectoken/pkg/sealevel"
)

// SecurityTokenError is the program's custom error code space.
type SecurityTokenError uint32

const (
	InvalidInstruction SecurityTokenError = iota
	NotRentExempt
	ExpectedMint
	ExpectedTokenAccount
	ExpectedMintAuthority
	InvalidMintAuthority
	InvalidTokenOwner
	VerificationFailed
	TransferRestricted
	AccountFrozen
	TokenPaused
	InsufficientCompliance
	InvalidVerificationConfig
	MissingVerificationSignature
	CorporateActionNotFound
	InvalidRateConfiguration
	ReceiptAlreadyExists
	InvalidMerkleProof
	DistributionAlreadyClaimed
	InsufficientBalance
	MathOverflow
	InvalidAccountData
	AccountNotInitialized
	AccountAlreadyInitialized
	AccountIntersectionMismatch
	VerificationProgramNotFound
	NotEnoughAccountsForVerification
	InvalidVerificationConfigPda

	numSecurityTokenErrors
)

var securityTokenErrorNames = [numSecurityTokenErrors]string{
	"InvalidInstruction",
	"NotRentExempt",
	"ExpectedMint",
	"ExpectedTokenAccount",
	"ExpectedMintAuthority",
	"InvalidMintAuthority",
	"InvalidTokenOwner",
	"VerificationFailed",
	"TransferRestricted",
	"AccountFrozen",
	"TokenPaused",
	"InsufficientCompliance",
	"InvalidVerificationConfig",
	"MissingVerificationSignature",
	"CorporateActionNotFound",
	"InvalidRateConfiguration",
	"ReceiptAlreadyExists",
	"InvalidMerkleProof",
	"DistributionAlreadyClaimed",
	"InsufficientBalance",
	"MathOverflow",
	"InvalidAccountData",
	"AccountNotInitialized",
	"AccountAlreadyInitialized",
	"AccountIntersectionMismatch",
	"VerificationProgramNotFound",
	"NotEnoughAccountsForVerification",
	"InvalidVerificationConfigPda",
}

var securityTokenCustomErrs [numSecurityTokenErrors]*sealevel.CustomErr

func init() {
	for code := range securityTokenCustomErrs {
		securityTokenCustomErrs[code] = sealevel.NewCustomErr(uint32(code), securityTokenErrorNames[code])
	}
}

func (e SecurityTokenError) Code() uint32 {
	return uint32(e)
}

func (e SecurityTokenError) String() string {
	if e >= numSecurityTokenErrors {
		return fmt.Sprintf("SecurityTokenError(%d)", uint32(e))
	}
	return securityTokenErrorNames[e]
}

// Err returns the custom program error for e. The same value is returned
// on every call so callers can match it with errors.Is.
func (e SecurityTokenError) Err() error {
	if e >= numSecurityTokenErrors {
		return sealevel.NewCustomErr(uint32(e), e.String())
	}
	return securityTokenCustomErrs[e]
}

// AsSecurityTokenError recovers the program error carried by err. Custom
// errors raised by other programs share the code space, so callers should
// only use this on errors they know originate here.
func AsSecurityTokenError(err error) (SecurityTokenError, bool) {
	code, ok := sealevel.CustomErrCode(err)
	if !ok || code >= uint32(numSecurityTokenErrors) {
		return 0, false
	}
	return SecurityTokenError(code), true
}
