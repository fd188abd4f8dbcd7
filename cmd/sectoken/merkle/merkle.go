package merkle

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.firedancer.io/sectoken/cmd/sectoken/cli"
	"go.firedancer.io/sectoken/pkg/sectoken"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

var Cmd = cobra.Command{
	Use:   "merkle",
	Short: "Build and check distribution merkle trees",
}

var buildCmd = cobra.Command{
	Use:   "build <distribution.yaml>",
	Short: "Build the tree of a distribution and write every holder's proof",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

var verifyCmd = cobra.Command{
	Use:   "verify <proofs.yaml>",
	Short: "Check every proof in a file written by build",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

var (
	workers int
	outPath string
)

func init() {
	Cmd.PersistentFlags().IntVar(&workers, "workers", runtime.NumCPU(), "Hashing goroutines")
	buildCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write proofs here instead of stdout")
	Cmd.AddCommand(&buildCmd, &verifyCmd)
}

type distributionFile struct {
	Mint     string      `yaml:"mint"`
	ActionId uint64      `yaml:"action_id"`
	Claims   []claimFile `yaml:"claims"`
}

type claimFile struct {
	TokenAccount string `yaml:"token_account"`
	Amount       uint64 `yaml:"amount"`
}

type proofsFile struct {
	Mint     string           `yaml:"mint"`
	ActionId uint64           `yaml:"action_id"`
	Root     string           `yaml:"root"`
	Depth    int              `yaml:"depth"`
	Claims   []claimProofFile `yaml:"claims"`
}

type claimProofFile struct {
	TokenAccount string   `yaml:"token_account"`
	Amount       uint64   `yaml:"amount"`
	LeafIndex    uint32   `yaml:"leaf_index"`
	Proof        []string `yaml:"proof"`
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func parseNode(s string) (sectoken.MerkleNode, error) {
	key, err := cli.ParseKey(s)
	return sectoken.MerkleNode(key), err
}

func runBuild(c *cobra.Command, args []string) error {
	var dist distributionFile
	if err := readYAML(args[0], &dist); err != nil {
		return err
	}
	mint, err := cli.ParseKey(dist.Mint)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}

	claims := make([]sectoken.DistributionClaim, len(dist.Claims))
	for i, claim := range dist.Claims {
		account, err := cli.ParseKey(claim.TokenAccount)
		if err != nil {
			return fmt.Errorf("claim %d: %w", i, err)
		}
		claims[i] = sectoken.DistributionClaim{TokenAccount: account, Amount: claim.Amount}
	}

	tree, err := sectoken.BuildMerkleTree(mint, dist.ActionId, claims, workers)
	if err != nil {
		return err
	}
	klog.Infof("built tree of depth %d over %d claims, root %s", tree.Depth(), len(claims), tree.Root())

	out := proofsFile{
		Mint:     dist.Mint,
		ActionId: dist.ActionId,
		Root:     tree.Root().String(),
		Depth:    tree.Depth(),
		Claims:   make([]claimProofFile, len(claims)),
	}
	for i, claim := range dist.Claims {
		proof, err := tree.Proof(uint32(i))
		if err != nil {
			return err
		}
		nodes := make([]string, len(proof))
		for j, node := range proof {
			nodes[j] = node.String()
		}
		out.Claims[i] = claimProofFile{TokenAccount: claim.TokenAccount, Amount: claim.Amount, LeafIndex: uint32(i), Proof: nodes}
	}

	encoded, err := yaml.Marshal(&out)
	if err != nil {
		return err
	}
	if outPath == "" {
		_, err = c.OutOrStdout().Write(encoded)
		return err
	}
	return os.WriteFile(outPath, encoded, 0o644)
}

func runVerify(c *cobra.Command, args []string) error {
	var proofs proofsFile
	if err := readYAML(args[0], &proofs); err != nil {
		return err
	}
	mint, err := cli.ParseKey(proofs.Mint)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	root, err := parseNode(proofs.Root)
	if err != nil {
		return fmt.Errorf("root: %w", err)
	}

	group, ctx := errgroup.WithContext(c.Context())
	group.SetLimit(max(workers, 1))
	for i, claim := range proofs.Claims {
		i, claim := i, claim
		group.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			account, err := cli.ParseKey(claim.TokenAccount)
			if err != nil {
				return fmt.Errorf("claim %d: %w", i, err)
			}
			proof := make(sectoken.ProofData, len(claim.Proof))
			for j, s := range claim.Proof {
				if proof[j], err = parseNode(s); err != nil {
					return fmt.Errorf("claim %d node %d: %w", i, j, err)
				}
			}
			leaf := sectoken.MerkleLeaf(account, mint, proofs.ActionId, claim.Amount)
			if !sectoken.VerifyMerkleProof(leaf, root, proof, claim.LeafIndex) {
				return fmt.Errorf("claim %d (%s): proof does not reach root", i, claim.TokenAccount)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "%d proofs verified against %s\n", len(proofs.Claims), proofs.Root)
	return nil
}
