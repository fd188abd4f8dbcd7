package ledger

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.firedancer.io/sectoken/cmd/sectoken/cli"
	"go.firedancer.io/sectoken/pkg/accounts"
	"go.firedancer.io/sectoken/pkg/sealevel"
	"go.firedancer.io/sectoken/pkg/sectoken"
	"k8s.io/klog/v2"
)

var Cmd = cobra.Command{
	Use:   "ledger",
	Short: "Read a local account ledger",
}

var inspectCmd = cobra.Command{
	Use:   "inspect [address]",
	Short: "Decode one account, or list every account in the ledger",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

var hashCmd = cobra.Command{
	Use:   "hash",
	Short: "Print the state hash of the ledger",
	Args:  cobra.NoArgs,
	RunE:  runHash,
}

var dbPath string

func init() {
	Cmd.PersistentFlags().StringVar(&dbPath, "db", "", "Ledger database (defaults to ledger_path from config)")
	Cmd.AddCommand(&inspectCmd, &hashCmd)
}

func open(c *cobra.Command) (*accounts.BoltAccounts, error) {
	path := dbPath
	if path == "" {
		cfg, err := cli.LoadConfig(c)
		if err != nil {
			return nil, err
		}
		path = cfg.LedgerPath
	}
	klog.V(2).Infof("opening ledger %s", path)
	return accounts.OpenBoltAccounts(path)
}

func runInspect(c *cobra.Command, args []string) error {
	cfg, err := cli.LoadConfig(c)
	if err != nil {
		return err
	}
	programId, err := cli.ProgramId(cfg)
	if err != nil {
		return err
	}
	db, err := open(c)
	if err != nil {
		return err
	}
	defer db.Close()

	out := c.OutOrStdout()
	describe := func(acct *accounts.Account) {
		switch acct.Owner {
		case programId:
			describeRecord(out, acct)
		case sealevel.Token2022ProgramAddr:
			describeToken(out, acct)
		default:
			fmt.Fprintf(out, "%s lamports=%d owner=%s len=%d\n", acct.Key, acct.Lamports, acct.Owner, len(acct.Data))
		}
	}

	if len(args) == 1 {
		key, err := cli.ParseKey(args[0])
		if err != nil {
			return err
		}
		acct, err := db.GetAccount((*[32]byte)(&key))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		describe(acct)
		return nil
	}

	var n int
	err = db.Range(func(acct *accounts.Account) bool {
		n++
		describe(acct)
		return true
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d accounts\n", n)
	return nil
}

func describeRecord(out io.Writer, acct *accounts.Account) {
	record, err := sectoken.DecodeRecord(acct.Data)
	if err != nil {
		fmt.Fprintf(out, "%s record: %s\n", acct.Key, err)
		return
	}
	kind := sectoken.RecordKind(record.Discriminator())
	switch r := record.(type) {
	case *sectoken.MintAuthority:
		fmt.Fprintf(out, "%s %s mint=%s creator=%s\n", acct.Key, kind, r.Mint, r.MintCreator)
	case *sectoken.VerificationConfig:
		fmt.Fprintf(out, "%s %s ix=%s cpi=%t programs=%v\n", acct.Key, kind, sectoken.InstructionName(r.InstructionDiscriminator), r.CpiMode, r.Programs)
	case *sectoken.Rate:
		fmt.Fprintf(out, "%s %s %d/%d rounding=%s\n", acct.Key, kind, r.Numerator, r.Denominator, r.Rounding)
	case *sectoken.Receipt:
		fmt.Fprintf(out, "%s %s mint=%s action=%d\n", acct.Key, kind, r.Mint, r.ActionId)
	case *sectoken.ProofAccount:
		fmt.Fprintf(out, "%s %s nodes=%d\n", acct.Key, kind, len(r.Nodes))
	}
}

func describeToken(out io.Writer, acct *accounts.Account) {
	switch len(acct.Data) {
	case sealevel.MintLen:
		mint, err := sealevel.UnmarshalTokenMint(acct.Data)
		if err != nil {
			break
		}
		fmt.Fprintf(out, "%s Mint supply=%d decimals=%d paused=%t\n", acct.Key, mint.Supply, mint.Decimals, mint.Paused)
		return
	case sealevel.TokenAccountLen:
		ta, err := sealevel.UnmarshalTokenAccount(acct.Data)
		if err != nil {
			break
		}
		fmt.Fprintf(out, "%s TokenAccount mint=%s owner=%s amount=%d state=%d\n", acct.Key, ta.Mint, ta.Owner, ta.Amount, ta.State)
		return
	}
	fmt.Fprintf(out, "%s token program account len=%d\n", acct.Key, len(acct.Data))
}

func runHash(c *cobra.Command, _ []string) error {
	db, err := open(c)
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := accounts.StateHash(db)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.OutOrStdout(), hex.EncodeToString(hash[:]))
	return nil
}
