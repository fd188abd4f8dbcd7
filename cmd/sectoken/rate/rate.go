package rate

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.firedancer.io/sectoken/pkg/sectoken"
)

var Cmd = cobra.Command{
	Use:   "rate",
	Short: "Apply a corporate action rate to an amount",
	Args:  cobra.NoArgs,
	RunE:  run,
}

var (
	numerator    uint8
	denominator  uint8
	rounding     string
	amount       uint64
	fromDecimals int
	toDecimals   int
)

func init() {
	Cmd.Flags().Uint8Var(&numerator, "num", 1, "Rate numerator")
	Cmd.Flags().Uint8Var(&denominator, "den", 1, "Rate denominator")
	Cmd.Flags().StringVar(&rounding, "rounding", "down", "Rounding direction (up or down)")
	Cmd.Flags().Uint64Var(&amount, "amount", 0, "Amount in base units")
	Cmd.Flags().IntVar(&fromDecimals, "from-decimals", -1, "Decimals of the source mint; enables conversion")
	Cmd.Flags().IntVar(&toDecimals, "to-decimals", -1, "Decimals of the destination mint")
}

func run(c *cobra.Command, _ []string) error {
	r, err := sectoken.ParseRounding(rounding)
	if err != nil {
		return err
	}
	rate := &sectoken.Rate{Rounding: r, Numerator: numerator, Denominator: denominator}
	if err := rate.Validate(); err != nil {
		return fmt.Errorf("invalid rate %d/%d: %w", numerator, denominator, err)
	}

	out := c.OutOrStdout()
	if fromDecimals >= 0 || toDecimals >= 0 {
		if fromDecimals < 0 || toDecimals < 0 || fromDecimals > sectoken.MaxDecimals || toDecimals > sectoken.MaxDecimals {
			return fmt.Errorf("--from-decimals and --to-decimals must both be in [0, %d]", sectoken.MaxDecimals)
		}
		converted, err := rate.Convert(amount, uint8(fromDecimals), uint8(toDecimals))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "convert %d (%d decimals) -> %d (%d decimals)\n", amount, fromDecimals, converted, toDecimals)
		return nil
	}

	newBalance, delta, err := rate.Split(amount)
	if err != nil {
		return err
	}
	op := "mint"
	if delta.Burn {
		op = "burn"
	}
	fmt.Fprintf(out, "split %d -> %d (%s %d)\n", amount, newBalance, op, delta.Amount)
	return nil
}
