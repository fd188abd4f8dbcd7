package sealevel

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/sectoken/pkg/accounts"
)

type tokenFixture struct {
	rt              *Runtime
	ledger          accounts.MemAccounts
	payer           solana.PublicKey
	mint            solana.PublicKey
	mintAuthority   solana.PublicKey
	freezeAuthority solana.PublicKey
	pauseAuthority  solana.PublicKey
	delegate        solana.PublicKey
}

func (f *tokenFixture) signers(extra ...solana.PublicKey) []solana.PublicKey {
	return append([]solana.PublicKey{f.payer, f.mintAuthority, f.freezeAuthority, f.pauseAuthority, f.delegate}, extra...)
}

func newTokenFixture(t *testing.T, extensions ...func(*tokenFixture) Instruction) *tokenFixture {
	rt, ledger := newTestRuntime(t)
	f := &tokenFixture{
		rt:              rt,
		ledger:          ledger,
		payer:           newTestKey(t),
		mint:            newTestKey(t),
		mintAuthority:   newTestKey(t),
		freezeAuthority: newTestKey(t),
		pauseAuthority:  newTestKey(t),
		delegate:        newTestKey(t),
	}
	fundAccount(t, ledger, f.payer, 1_000_000_000)

	instrs := []Instruction{
		NewCreateAccountInstruction(f.payer, f.mint, rt.Rent.MinimumBalance(MintLen), MintLen, Token2022ProgramAddr),
		NewTokenInitializePermanentDelegateInstruction(f.mint, f.delegate),
		NewTokenInitializePausableInstruction(f.mint, f.pauseAuthority),
	}
	for _, ext := range extensions {
		instrs = append(instrs, ext(f))
	}
	instrs = append(instrs, NewTokenInitializeMintInstruction(f.mint, 6, f.mintAuthority, &f.freezeAuthority))
	err := execute(rt, f.signers(f.mint), instrs...)
	require.NoError(t, err)
	return f
}

func (f *tokenFixture) newTokenAccount(t *testing.T, owner solana.PublicKey) solana.PublicKey {
	acct := newTestKey(t)
	err := execute(f.rt, f.signers(acct),
		NewCreateAccountInstruction(f.payer, acct, f.rt.Rent.MinimumBalance(TokenAccountLen), TokenAccountLen, Token2022ProgramAddr),
		NewTokenInitializeAccountInstruction(acct, f.mint, owner))
	require.NoError(t, err)
	return acct
}

func (f *tokenFixture) readMint(t *testing.T) *TokenMint {
	mint, err := UnmarshalTokenMint(getAccount(t, f.ledger, f.mint).Data)
	require.NoError(t, err)
	return mint
}

func (f *tokenFixture) readTokenAccount(t *testing.T, key solana.PublicKey) *token.Account {
	acct, err := UnmarshalTokenAccount(getAccount(t, f.ledger, key).Data)
	require.NoError(t, err)
	return acct
}

func TestTokenProgram_InitializeMint(t *testing.T) {
	f := newTokenFixture(t)

	mint := f.readMint(t)
	assert.True(t, mint.IsInitialized)
	assert.Equal(t, uint8(6), mint.Decimals)
	require.NotNil(t, mint.MintAuthority)
	assert.Equal(t, f.mintAuthority, *mint.MintAuthority)
	require.NotNil(t, mint.FreezeAuthority)
	assert.Equal(t, f.freezeAuthority, *mint.FreezeAuthority)
	assert.Equal(t, f.delegate, mint.PermanentDelegate)
	assert.Equal(t, f.pauseAuthority, mint.PauseAuthority)
	assert.False(t, mint.Paused)

	err := execute(f.rt, f.signers(), NewTokenInitializeMintInstruction(f.mint, 6, f.mintAuthority, nil))
	assert.ErrorIs(t, err, TokenErrAlreadyInUse)
}

func TestTokenProgram_MintTransferBurn(t *testing.T) {
	f := newTokenFixture(t)
	alice := f.newTokenAccount(t, newTestKey(t))
	bob := f.newTokenAccount(t, newTestKey(t))

	require.NoError(t, execute(f.rt, f.signers(), NewTokenMintToInstruction(f.mint, alice, f.mintAuthority, 1000, 6)))
	require.NoError(t, execute(f.rt, f.signers(), NewTokenTransferInstruction(alice, f.mint, bob, f.delegate, 400, 6)))
	require.NoError(t, execute(f.rt, f.signers(), NewTokenBurnInstruction(bob, f.mint, f.delegate, 100, 6)))

	assert.Equal(t, uint64(600), f.readTokenAccount(t, alice).Amount)
	assert.Equal(t, uint64(300), f.readTokenAccount(t, bob).Amount)
	assert.Equal(t, uint64(900), f.readMint(t).Supply)

	err := execute(f.rt, f.signers(), NewTokenBurnInstruction(bob, f.mint, f.delegate, 301, 6))
	assert.ErrorIs(t, err, TokenErrInsufficientFunds)

	err = execute(f.rt, f.signers(), NewTokenMintToInstruction(f.mint, alice, f.mintAuthority, 1, 9))
	assert.ErrorIs(t, err, TokenErrMintDecimalsMismatch)

	stranger := newTestKey(t)
	err = execute(f.rt, f.signers(stranger), NewTokenTransferInstruction(alice, f.mint, bob, stranger, 1, 6))
	assert.ErrorIs(t, err, TokenErrOwnerMismatch)
}

func TestTokenProgram_OwnerTransfer(t *testing.T) {
	f := newTokenFixture(t)
	owner := newTestKey(t)
	alice := f.newTokenAccount(t, owner)
	bob := f.newTokenAccount(t, newTestKey(t))

	require.NoError(t, execute(f.rt, f.signers(), NewTokenMintToInstruction(f.mint, alice, f.mintAuthority, 50, 6)))
	require.NoError(t, execute(f.rt, f.signers(owner), NewTokenTransferInstruction(alice, f.mint, bob, owner, 50, 6)))
	assert.Equal(t, uint64(50), f.readTokenAccount(t, bob).Amount)
}

func TestTokenProgram_PauseResume(t *testing.T) {
	f := newTokenFixture(t)
	alice := f.newTokenAccount(t, newTestKey(t))

	require.NoError(t, execute(f.rt, f.signers(), NewTokenPauseInstruction(f.mint, f.pauseAuthority)))
	assert.True(t, f.readMint(t).Paused)

	err := execute(f.rt, f.signers(), NewTokenMintToInstruction(f.mint, alice, f.mintAuthority, 1, 6))
	assert.ErrorIs(t, err, TokenErrMintPaused)

	require.NoError(t, execute(f.rt, f.signers(), NewTokenResumeInstruction(f.mint, f.pauseAuthority)))
	require.NoError(t, execute(f.rt, f.signers(), NewTokenMintToInstruction(f.mint, alice, f.mintAuthority, 1, 6)))

	err = execute(f.rt, f.signers(), NewTokenPauseInstruction(f.mint, f.mintAuthority))
	assert.ErrorIs(t, err, TokenErrOwnerMismatch)
}

func TestTokenProgram_FreezeThaw(t *testing.T) {
	f := newTokenFixture(t)
	alice := f.newTokenAccount(t, newTestKey(t))

	require.NoError(t, execute(f.rt, f.signers(), NewTokenFreezeInstruction(alice, f.mint, f.freezeAuthority)))
	assert.Equal(t, token.Frozen, f.readTokenAccount(t, alice).State)

	err := execute(f.rt, f.signers(), NewTokenMintToInstruction(f.mint, alice, f.mintAuthority, 1, 6))
	assert.ErrorIs(t, err, TokenErrAccountFrozen)

	err = execute(f.rt, f.signers(), NewTokenFreezeInstruction(alice, f.mint, f.freezeAuthority))
	assert.ErrorIs(t, err, TokenErrInvalidState)

	require.NoError(t, execute(f.rt, f.signers(), NewTokenThawInstruction(alice, f.mint, f.freezeAuthority)))
	assert.Equal(t, token.Initialized, f.readTokenAccount(t, alice).State)
}

func TestTokenProgram_SetMintAuthority(t *testing.T) {
	f := newTokenFixture(t)
	alice := f.newTokenAccount(t, newTestKey(t))
	next := newTestKey(t)

	require.NoError(t, execute(f.rt, f.signers(), NewTokenSetAuthorityInstruction(f.mint, f.mintAuthority, token.AuthorityMintTokens, next)))

	err := execute(f.rt, f.signers(), NewTokenMintToInstruction(f.mint, alice, f.mintAuthority, 1, 6))
	assert.ErrorIs(t, err, TokenErrOwnerMismatch)
	require.NoError(t, execute(f.rt, f.signers(next), NewTokenMintToInstruction(f.mint, alice, next, 1, 6)))
}

func TestTokenProgram_NotRentExempt(t *testing.T) {
	f := newTokenFixture(t)
	acct := newTestKey(t)
	err := execute(f.rt, f.signers(acct),
		NewCreateAccountInstruction(f.payer, acct, 1, TokenAccountLen, Token2022ProgramAddr),
		NewTokenInitializeAccountInstruction(acct, f.mint, newTestKey(t)))
	assert.ErrorIs(t, err, TokenErrNotRentExempt)
}
