package sectoken

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/sealevel"
)

// loadVerificationConfig decodes an existing config and checks that it
// was created for ix at its derived address.
func (inv *invocation) loadVerificationConfig(configAcct *sealevel.BorrowedAccount, mint solana.PublicKey, ix uint8) (*VerificationConfig, error) {
	if len(configAcct.Data()) == 0 {
		return nil, sealevel.InstrErrUninitializedAccount
	}
	if configAcct.Owner() != inv.programId {
		return nil, sealevel.InstrErrInvalidAccountData
	}
	config, err := UnmarshalVerificationConfig(configAcct.Data())
	if err != nil {
		return nil, err
	}
	if config.InstructionDiscriminator != ix {
		return nil, sealevel.InstrErrInvalidAccountData
	}
	expected, err := addressWithBump(inv.programId, verificationConfigSeeds(mint, ix), config.Bump)
	if err != nil || expected.Key != configAcct.Key() {
		return nil, sealevel.InstrErrInvalidAccountData
	}
	return config, nil
}

func (inv *invocation) initializeVerificationConfig() error {
	var args InitializeVerificationConfigArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(InstrInitializeVerificationConfig)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 4)
	if err != nil {
		return err
	}
	payer, mintAcct, configAcct, systemProgram := accts[0], accts[1], accts[2], accts[3]

	err = verifyMintKeysMatch(v.mint, mintAcct.Key())
	if err != nil {
		return err
	}
	err = verifyWritableSigner(payer)
	if err != nil {
		return err
	}
	err = verifyOwner(mintAcct, sealevel.Token2022ProgramAddr)
	if err != nil {
		return err
	}
	err = verifySystemProgram(systemProgram)
	if err != nil {
		return err
	}

	address, err := FindVerificationConfigAddress(inv.programId, mintAcct.Key(), args.InstructionDiscriminator)
	if err != nil {
		return err
	}
	if configAcct.Key() != address.Key {
		return sealevel.InstrErrInvalidAccountData
	}
	if len(configAcct.Data()) != 0 {
		return sealevel.InstrErrAccountAlreadyInitialized
	}

	config := &VerificationConfig{
		InstructionDiscriminator: args.InstructionDiscriminator,
		CpiMode:                  args.CpiMode,
		Bump:                     address.Bump,
		Programs:                 args.Programs,
	}
	err = config.Validate()
	if err != nil {
		return err
	}
	return inv.initRecord(config, payer, configAcct, address)
}

func (inv *invocation) updateVerificationConfig() error {
	var args UpdateVerificationConfigArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(InstrUpdateVerificationConfig)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 4)
	if err != nil {
		return err
	}
	payer, mintAcct, configAcct, systemProgram := accts[0], accts[1], accts[2], accts[3]

	err = verifyMintKeysMatch(v.mint, mintAcct.Key())
	if err != nil {
		return err
	}
	err = verifyWritableSigner(payer)
	if err != nil {
		return err
	}
	err = verifyWritable(configAcct)
	if err != nil {
		return err
	}
	err = verifyOwner(mintAcct, sealevel.Token2022ProgramAddr)
	if err != nil {
		return err
	}
	err = verifySystemProgram(systemProgram)
	if err != nil {
		return err
	}

	config, err := inv.loadVerificationConfig(configAcct, mintAcct.Key(), args.InstructionDiscriminator)
	if err != nil {
		return err
	}

	config.CpiMode = args.CpiMode
	newLen := max(len(config.Programs), int(args.Offset)+len(args.Programs))
	programs := make([]solana.PublicKey, newLen)
	copy(programs, config.Programs)
	copy(programs[args.Offset:], args.Programs)
	config.Programs = programs

	err = config.Validate()
	if err != nil {
		return err
	}

	err = inv.resizeAndRent(configAcct, config.Size(), payer)
	if err != nil {
		return err
	}
	return writeRecord(configAcct, config)
}

func (inv *invocation) trimVerificationConfig() error {
	var args TrimVerificationConfigArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(InstrTrimVerificationConfig)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 4)
	if err != nil {
		return err
	}
	mintAcct, configAcct, recipient, systemProgram := accts[0], accts[1], accts[2], accts[3]

	err = verifyMintKeysMatch(v.mint, mintAcct.Key())
	if err != nil {
		return err
	}
	err = verifyWritable(configAcct)
	if err != nil {
		return err
	}
	err = verifyWritable(recipient)
	if err != nil {
		return err
	}
	err = verifySystemProgram(systemProgram)
	if err != nil {
		return err
	}

	config, err := inv.loadVerificationConfig(configAcct, mintAcct.Key(), args.InstructionDiscriminator)
	if err != nil {
		return err
	}
	if int(args.Size) > len(config.Programs) {
		return sealevel.InstrErrInvalidArgument
	}

	if args.Close {
		return closeRecord(configAcct, recipient)
	}
	if int(args.Size) == len(config.Programs) {
		return nil
	}

	config.Programs = config.Programs[:args.Size]
	err = config.Validate()
	if err != nil {
		return err
	}
	err = inv.resizeAndRent(configAcct, config.Size(), recipient)
	if err != nil {
		return err
	}
	return writeRecord(configAcct, config)
}

// verify runs program verification for an instruction described by the
// arguments rather than the current instruction. Compliance programs can
// use it to check another program's instruction.
func (inv *invocation) verify() error {
	var args VerifyArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}
	_, err = inv.verifyByPrograms(args.Ix, args.TargetInstructionData())
	return err
}
