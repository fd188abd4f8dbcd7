package demo

import (
	"encoding/hex"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.firedancer.io/sectoken/cmd/sectoken/cli"
	"go.firedancer.io/sectoken/pkg/accounts"
	"go.firedancer.io/sectoken/pkg/compliance"
	"go.firedancer.io/sectoken/pkg/sealevel"
	"go.firedancer.io/sectoken/pkg/sectoken"
	"k8s.io/klog/v2"
)

var Cmd = cobra.Command{
	Use:   "demo",
	Short: "Run a scripted issuance, transfer, split and distribution against a ledger",
	Args:  cobra.NoArgs,
	RunE:  run,
}

var (
	dbPath   string
	inMemory bool
)

func init() {
	Cmd.Flags().StringVar(&dbPath, "db", "", "Ledger database (defaults to ledger_path from config)")
	Cmd.Flags().BoolVar(&inMemory, "memory", false, "Use an in-memory ledger")
}

const airdrop = 100_000_000_000

type session struct {
	rt     *sealevel.Runtime
	ledger accounts.Accounts
	client *sectoken.Client
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func (s *session) fund(key solana.PublicKey) error {
	acct := &accounts.Account{Key: key, Lamports: airdrop, Data: []byte{}, Owner: sealevel.SystemProgramAddr}
	return s.ledger.SetAccount((*[32]byte)(&key), acct)
}

func (s *session) exec(step string, signers []solana.PublicKey, ixs ...sealevel.Instruction) error {
	res, err := s.rt.ExecuteTransaction(&sealevel.Transaction{Instructions: ixs, Signers: signers})
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	klog.Infof("%s: ok (%d CU)", step, res.ComputeUnitsUsed)
	return nil
}

func run(c *cobra.Command, _ []string) error {
	cfg, err := cli.LoadConfig(c)
	if err != nil {
		return err
	}

	var ledger accounts.Accounts
	if inMemory {
		ledger = accounts.NewMemAccounts()
	} else {
		path := dbPath
		if path == "" {
			path = cfg.LedgerPath
		}
		db, err := accounts.OpenBoltAccounts(path)
		if err != nil {
			return err
		}
		defer db.Close()
		ledger = db
	}

	cli.ServeMetrics(cfg.MetricsAddr)

	complianceId := newKey()
	allowlist := compliance.NewAllowlist()
	rt, client, err := cli.NewRuntime(cfg, ledger, complianceId, allowlist)
	if err != nil {
		return err
	}
	s := &session{rt: rt, ledger: ledger, client: client}

	err = s.script(complianceId, allowlist)
	if err != nil {
		return err
	}

	hash, err := accounts.StateHash(ledger)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "state hash %s\n", hex.EncodeToString(hash[:]))

	if cfg.MetricsAddr != "" {
		klog.Infof("serving metrics until interrupted")
		<-c.Context().Done()
	}
	return nil
}

func (s *session) script(complianceId solana.PublicKey, allowlist *compliance.Allowlist) error {
	payer, creator, mint := newKey(), newKey(), newKey()
	for _, key := range []solana.PublicKey{payer, creator} {
		if err := s.fund(key); err != nil {
			return err
		}
	}
	client := s.client
	cv := sectoken.CreatorVerification(mint, creator)
	owners := []solana.PublicKey{payer, creator}

	ix, err := client.InitializeMint(mint, creator, 6)
	if err != nil {
		return err
	}
	if err := s.exec("initialize mint "+mint.String(), append(owners, mint), ix); err != nil {
		return err
	}

	holders := make([]solana.PublicKey, 3)
	holderOwners := make([]solana.PublicKey, 3)
	for i := range holders {
		holderOwners[i] = newKey()
		holders[i], err = s.openTokenAccount(payer, mint, holderOwners[i])
		if err != nil {
			return err
		}
	}
	alice, bob, carol := holders[0], holders[1], holders[2]

	ix, err = client.Mint(cv, creator, alice, 1_000_000)
	if err != nil {
		return err
	}
	if err := s.exec("mint to alice", owners, ix); err != nil {
		return err
	}

	// transfers need an allowlist attestation from here on
	ix, err = client.InitializeVerificationConfig(cv, payer, sectoken.InstrTransfer, false, []solana.PublicKey{complianceId})
	if err != nil {
		return err
	}
	if err := s.exec("require compliance for transfers", owners, ix); err != nil {
		return err
	}

	transfer, err := client.Transfer(sectoken.ProgramVerification(mint), alice, bob, 250_000)
	if err != nil {
		return err
	}
	approve := sectoken.ComplianceInstruction(complianceId, transfer)
	for _, am := range approve.Accounts {
		allowlist.Add(am.Pubkey)
	}
	if err := s.exec("transfer alice -> bob", nil, approve, transfer); err != nil {
		return err
	}

	// a transfer signed by the holder runs the same programs through the
	// transfer hook
	bobOwner := holderOwners[1]
	ownerTransfer, err := client.OwnerTransfer(mint, bob, carol, bobOwner, 50_000, 6, complianceId)
	if err != nil {
		return err
	}
	for _, am := range ownerTransfer.Accounts {
		allowlist.Add(am.Pubkey)
	}
	if err := s.exec("transfer bob -> carol", []solana.PublicKey{bobOwner}, ownerTransfer); err != nil {
		return err
	}

	const splitAction = 1
	ix, err = client.CreateRateAccount(cv, payer, sectoken.RateParams{ActionId: splitAction, MintFrom: mint, Rounding: sectoken.RoundingDown, Numerator: 2, Denominator: 1})
	if err != nil {
		return err
	}
	if err := s.exec("create 2:1 split rate", owners, ix); err != nil {
		return err
	}
	for _, holder := range []solana.PublicKey{alice, bob} {
		ix, err = client.Split(cv, creator, payer, holder, splitAction)
		if err != nil {
			return err
		}
		if err := s.exec("split "+holder.String(), owners, ix); err != nil {
			return err
		}
		// one receipt per action, so it is released for the next holder
		ix, err = client.CloseActionReceipt(cv, payer, splitAction)
		if err != nil {
			return err
		}
		if err := s.exec("close split receipt", owners, ix); err != nil {
			return err
		}
	}

	if err := s.convert(payer, creator, mint, alice); err != nil {
		return err
	}

	return s.distribute(cv, payer, creator, []sectoken.DistributionClaim{
		{TokenAccount: bob, Amount: 10_000},
		{TokenAccount: carol, Amount: 20_000},
	})
}

func (s *session) openTokenAccount(payer, mint, owner solana.PublicKey) (solana.PublicKey, error) {
	acct := newKey()
	create := sealevel.NewCreateAccountInstruction(payer, acct, s.rt.Rent.MinimumBalance(sealevel.TokenAccountLen), sealevel.TokenAccountLen, sealevel.Token2022ProgramAddr)
	initialize := sealevel.NewTokenInitializeAccountInstruction(acct, mint, owner)
	return acct, s.exec("open token account "+acct.String(), []solana.PublicKey{payer, acct}, create, initialize)
}

// convert moves part of holder's balance into a new share class with more
// decimals at 3 new shares for every 2 old ones.
func (s *session) convert(payer, creator, oldMint, holder solana.PublicKey) error {
	const action = 3
	client := s.client
	owners := []solana.PublicKey{payer, creator}

	newMint := newKey()
	ix, err := client.InitializeMint(newMint, creator, 9)
	if err != nil {
		return err
	}
	if err := s.exec("initialize share class "+newMint.String(), append(owners, newMint), ix); err != nil {
		return err
	}
	target, err := s.openTokenAccount(payer, newMint, newKey())
	if err != nil {
		return err
	}

	cv := sectoken.CreatorVerification(newMint, creator)
	ix, err = client.CreateRateAccount(cv, payer, sectoken.RateParams{ActionId: action, MintFrom: oldMint, Rounding: sectoken.RoundingDown, Numerator: 3, Denominator: 2})
	if err != nil {
		return err
	}
	if err := s.exec("create 3:2 conversion rate", owners, ix); err != nil {
		return err
	}

	ix, err = client.Convert(cv, payer, sectoken.ConvertParams{
		ActionId:  action,
		Amount:    100_000,
		Creator:   creator,
		MintFrom:  oldMint,
		TokenFrom: holder,
		TokenTo:   target,
	})
	if err != nil {
		return err
	}
	return s.exec("convert 100000 into the new class", owners, ix)
}

func (s *session) distribute(cv sectoken.Verification, payer, creator solana.PublicKey, claims []sectoken.DistributionClaim) error {
	const action = 2
	client := s.client
	owners := []solana.PublicKey{payer, creator}

	tree, err := sectoken.BuildMerkleTree(cv.Mint, action, claims, 2)
	if err != nil {
		return err
	}
	var total uint64
	for _, claim := range claims {
		total += claim.Amount
	}

	escrow := newKey()
	ix, err := client.CreateDistributionEscrow(cv, payer, escrow, action, tree.Root())
	if err != nil {
		return err
	}
	if err := s.exec("create escrow for root "+tree.Root().String(), append(owners, escrow), ix); err != nil {
		return err
	}
	ix, err = client.Mint(cv, creator, escrow, total)
	if err != nil {
		return err
	}
	if err := s.exec("fund escrow", owners, ix); err != nil {
		return err
	}

	for i, claim := range claims {
		proof, err := tree.Proof(uint32(i))
		if err != nil {
			return err
		}
		params := sectoken.ClaimParams{
			ActionId:  action,
			Amount:    claim.Amount,
			Root:      tree.Root(),
			LeafIndex: uint32(i),
			Proof:     proof,
			Eligible:  claim.TokenAccount,
			Escrow:    &escrow,
		}
		ix, err = client.ClaimDistribution(cv, payer, params)
		if err != nil {
			return err
		}
		if err := s.exec(fmt.Sprintf("claim %d for %s", claim.Amount, claim.TokenAccount), owners, ix); err != nil {
			return err
		}
	}
	return nil
}
