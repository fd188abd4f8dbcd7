package sectoken

import "fmt"

const (
	InstrInitializeMint uint8 = iota
	InstrUpdateMetadata
	InstrInitializeVerificationConfig
	InstrUpdateVerificationConfig
	InstrTrimVerificationConfig
	InstrVerify
	InstrMint
	InstrBurn
	InstrPause
	InstrResume
	InstrFreeze
	InstrThaw
	InstrTransfer
	InstrCreateRateAccount
	InstrUpdateRateAccount
	InstrCloseRateAccount
	InstrSplit
	InstrConvert
	InstrCreateProofAccount
	InstrUpdateProofAccount
	InstrCreateDistributionEscrow
	InstrClaimDistribution
	InstrCloseActionReceipt
	InstrCloseClaimReceipt
)

var instructionNames = []string{
	InstrInitializeMint:               "InitializeMint",
	InstrUpdateMetadata:               "UpdateMetadata",
	InstrInitializeVerificationConfig: "InitializeVerificationConfig",
	InstrUpdateVerificationConfig:     "UpdateVerificationConfig",
	InstrTrimVerificationConfig:       "TrimVerificationConfig",
	InstrVerify:                       "Verify",
	InstrMint:                         "Mint",
	InstrBurn:                         "Burn",
	InstrPause:                        "Pause",
	InstrResume:                       "Resume",
	InstrFreeze:                       "Freeze",
	InstrThaw:                         "Thaw",
	InstrTransfer:                     "Transfer",
	InstrCreateRateAccount:            "CreateRateAccount",
	InstrUpdateRateAccount:            "UpdateRateAccount",
	InstrCloseRateAccount:             "CloseRateAccount",
	InstrSplit:                        "Split",
	InstrConvert:                      "Convert",
	InstrCreateProofAccount:           "CreateProofAccount",
	InstrUpdateProofAccount:           "UpdateProofAccount",
	InstrCreateDistributionEscrow:     "CreateDistributionEscrow",
	InstrClaimDistribution:            "ClaimDistribution",
	InstrCloseActionReceipt:           "CloseActionReceipt",
	InstrCloseClaimReceipt:            "CloseClaimReceipt",
}

func InstructionName(ix uint8) string {
	if int(ix) < len(instructionNames) {
		return instructionNames[ix]
	}
	return fmt.Sprintf("Unknown(%d)", ix)
}

// InstructionFromName is the inverse of InstructionName.
func InstructionFromName(name string) (uint8, bool) {
	for ix, n := range instructionNames {
		if n == name {
			return uint8(ix), true
		}
	}
	return 0, false
}
