// Package cli holds the pieces shared by the sectoken subcommands.
package cli

import (
	"fmt"
	"net"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.firedancer.io/sectoken/pkg/accounts"
	"go.firedancer.io/sectoken/pkg/base58"
	"go.firedancer.io/sectoken/pkg/compliance"
	"go.firedancer.io/sectoken/pkg/config"
	"go.firedancer.io/sectoken/pkg/sealevel"
	"go.firedancer.io/sectoken/pkg/sectoken"
	"k8s.io/klog/v2"
)

// LoadConfig reads the file named by the persistent --config flag and
// applies the --metrics-addr and --unmetered overrides.
func LoadConfig(c *cobra.Command) (config.Config, error) {
	path, _ := c.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if addr, _ := c.Flags().GetString("metrics-addr"); addr != "" {
		cfg.MetricsAddr = addr
	}
	if unmetered, _ := c.Flags().GetBool("unmetered"); unmetered {
		cfg.Unmetered = true
	}
	return cfg, nil
}

func ParseKey(s string) (solana.PublicKey, error) {
	b, err := base58.DecodeFromString(s)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKey(b), nil
}

func ProgramId(cfg config.Config) (solana.PublicKey, error) {
	key, err := ParseKey(cfg.ProgramId)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program_id: %w", err)
	}
	return key, nil
}

func TransferHookId(cfg config.Config) (solana.PublicKey, error) {
	key, err := ParseKey(cfg.TransferHookId)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid transfer_hook_id: %w", err)
	}
	return key, nil
}

// NewRuntime returns a runtime over accts with the settlement program, its
// transfer hook and an allowlist compliance program installed, along with
// a client for the settlement program.
func NewRuntime(cfg config.Config, accts accounts.Accounts, complianceId solana.PublicKey, al *compliance.Allowlist) (*sealevel.Runtime, *sectoken.Client, error) {
	programId, err := ProgramId(cfg)
	if err != nil {
		return nil, nil, err
	}
	hookId, err := TransferHookId(cfg)
	if err != nil {
		return nil, nil, err
	}
	rt := sealevel.NewRuntime(accts)
	rt.Rent = sealevel.RentFromConfig(cfg.Rent)
	if cfg.ComputeBudget != 0 {
		rt.ComputeBudget = cfg.ComputeBudget
	}
	if cfg.Unmetered {
		klog.Warningf("compute budget is not enforced")
		rt.Unmetered = true
	}
	sectoken.Register(rt.Programs, programId, hookId)
	compliance.Register(rt.Programs, complianceId, al)
	return rt, sectoken.NewClient(programId, hookId), nil
}

// ServeMetrics exposes the prometheus registry on addr in the background.
// An empty addr disables it.
func ServeMetrics(addr string) {
	if addr == "" {
		return
	}
	go func() {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			klog.Errorf("failed to start metrics listener: %s", err)
			return
		}
		klog.Infof("metrics listening on %s", listener.Addr())
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.Serve(listener, mux); err != nil {
			klog.Errorf("metrics server stopped: %s", err)
		}
	}()
}
