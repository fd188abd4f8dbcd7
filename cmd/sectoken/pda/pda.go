package pda

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.firedancer.io/sectoken/cmd/sectoken/cli"
	"go.firedancer.io/sectoken/pkg/sectoken"
)

var Cmd = cobra.Command{
	Use:   "pda <kind>",
	Short: "Derive a program address",
	Long:  "Derive a program address. Kinds: " + strings.Join(kinds(), ", "),
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

var (
	flagMint        string
	flagCreator     string
	flagAccount     string
	flagMintFrom    string
	flagInstruction string
	flagRoot        string
	flagAction      uint64
)

func init() {
	Cmd.Flags().StringVar(&flagMint, "mint", "", "Mint address")
	Cmd.Flags().StringVar(&flagCreator, "creator", "", "Mint creator")
	Cmd.Flags().StringVar(&flagAccount, "account", "", "Token account")
	Cmd.Flags().StringVar(&flagMintFrom, "mint-from", "", "Source mint of a rate")
	Cmd.Flags().StringVar(&flagInstruction, "instruction", "", "Instruction name of a verification config")
	Cmd.Flags().StringVar(&flagRoot, "root", "", "Distribution merkle root")
	Cmd.Flags().Uint64Var(&flagAction, "action", 0, "Corporate action id")
}

type deriveFn func(programId solana.PublicKey) (sectoken.Address, error)

var finders = map[string]func() (deriveFn, error){
	"mint-authority": func() (deriveFn, error) {
		mint, creator, err := keys2(flagMint, flagCreator)
		return func(p solana.PublicKey) (sectoken.Address, error) {
			return sectoken.FindMintAuthorityAddress(p, mint, creator)
		}, err
	},
	"pause-authority":    mintOnly(sectoken.FindPauseAuthorityAddress),
	"freeze-authority":   mintOnly(sectoken.FindFreezeAuthorityAddress),
	"transfer-hook":      mintOnly(sectoken.FindTransferHookAddress),
	"permanent-delegate": mintOnly(sectoken.FindPermanentDelegateAddress),
	"account-delegate": func() (deriveFn, error) {
		account, err := cli.ParseKey(flagAccount)
		return func(p solana.PublicKey) (sectoken.Address, error) {
			return sectoken.FindAccountDelegateAddress(p, account)
		}, err
	},
	"verification-config": func() (deriveFn, error) {
		mint, err := cli.ParseKey(flagMint)
		if err != nil {
			return nil, err
		}
		ix, ok := sectoken.InstructionFromName(flagInstruction)
		if !ok {
			return nil, fmt.Errorf("unknown instruction %q", flagInstruction)
		}
		return func(p solana.PublicKey) (sectoken.Address, error) {
			return sectoken.FindVerificationConfigAddress(p, mint, ix)
		}, nil
	},
	"rate": func() (deriveFn, error) {
		mintFrom, mintTo, err := keys2(flagMintFrom, flagMint)
		return func(p solana.PublicKey) (sectoken.Address, error) {
			return sectoken.FindRateAddress(p, flagAction, mintFrom, mintTo)
		}, err
	},
	"action-receipt": func() (deriveFn, error) {
		mint, err := cli.ParseKey(flagMint)
		return func(p solana.PublicKey) (sectoken.Address, error) {
			return sectoken.FindActionReceiptAddress(p, mint, flagAction)
		}, err
	},
	"escrow-authority": func() (deriveFn, error) {
		mint, root, err := keys2(flagMint, flagRoot)
		return func(p solana.PublicKey) (sectoken.Address, error) {
			return sectoken.FindDistributionEscrowAuthorityAddress(p, mint, flagAction, sectoken.MerkleNode(root))
		}, err
	},
	"proof": func() (deriveFn, error) {
		account, err := cli.ParseKey(flagAccount)
		return func(p solana.PublicKey) (sectoken.Address, error) {
			return sectoken.FindProofAddress(p, account, flagAction)
		}, err
	},
}

func kinds() []string {
	names := lo.Keys(finders)
	slices.Sort(names)
	return names
}

func keys2(a, b string) (solana.PublicKey, solana.PublicKey, error) {
	ka, err := cli.ParseKey(a)
	if err != nil {
		return ka, solana.PublicKey{}, err
	}
	kb, err := cli.ParseKey(b)
	return ka, kb, err
}

func mintOnly(find func(programId, mint solana.PublicKey) (sectoken.Address, error)) func() (deriveFn, error) {
	return func() (deriveFn, error) {
		mint, err := cli.ParseKey(flagMint)
		return func(p solana.PublicKey) (sectoken.Address, error) {
			return find(p, mint)
		}, err
	}
}

func run(c *cobra.Command, args []string) error {
	finder, ok := finders[args[0]]
	if !ok {
		return fmt.Errorf("unknown kind %q, want one of %s", args[0], strings.Join(kinds(), ", "))
	}
	derive, err := finder()
	if err != nil {
		return err
	}

	cfg, err := cli.LoadConfig(c)
	if err != nil {
		return err
	}
	programId, err := cli.ProgramId(cfg)
	if err != nil {
		return err
	}

	address, err := derive(programId)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "%s (bump %d)\n", address.Key, address.Bump)
	return nil
}
