package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.firedancer.io/sectoken/cmd/sectoken/demo"
	"go.firedancer.io/sectoken/cmd/sectoken/ledger"
	"go.firedancer.io/sectoken/cmd/sectoken/merkle"
	"go.firedancer.io/sectoken/cmd/sectoken/pda"
	"go.firedancer.io/sectoken/cmd/sectoken/rate"
	"k8s.io/klog/v2"
)

var cmd = cobra.Command{
	Use:   "sectoken",
	Short: "Security token settlement tooling",
}

func init() {
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	cmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	cmd.PersistentFlags().String("metrics-addr", "", "Serve prometheus metrics on this address")
	cmd.PersistentFlags().Bool("unmetered", false, "Log instead of failing when a transaction exceeds its compute budget")

	cmd.AddCommand(
		&demo.Cmd,
		&ledger.Cmd,
		&merkle.Cmd,
		&pda.Cmd,
		&rate.Cmd,
	)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	cobra.CheckErr(cmd.ExecuteContext(ctx))
}
