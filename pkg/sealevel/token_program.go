package sealevel

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"go.firedancer.io/sectoken/pkg/safemath"
	"k8s.io/klog/v2"
)

const (
	TokenInstrInitializePermanentDelegate = 35
	TokenInstrTransferHookExtension       = 36
	TokenInstrPausableExtension           = 44
)

const (
	TransferHookInstrInitialize = iota
	TransferHookInstrUpdate
)

const (
	PausableInstrInitialize = iota
	PausableInstrPause
	PausableInstrResume
)

// token program errors
var (
	TokenErrNotRentExempt             = NewCustomErr(0, "TokenErrNotRentExempt")
	TokenErrInsufficientFunds         = NewCustomErr(1, "TokenErrInsufficientFunds")
	TokenErrInvalidMint               = NewCustomErr(2, "TokenErrInvalidMint")
	TokenErrMintMismatch              = NewCustomErr(3, "TokenErrMintMismatch")
	TokenErrOwnerMismatch             = NewCustomErr(4, "TokenErrOwnerMismatch")
	TokenErrFixedSupply               = NewCustomErr(5, "TokenErrFixedSupply")
	TokenErrAlreadyInUse              = NewCustomErr(6, "TokenErrAlreadyInUse")
	TokenErrUninitializedState        = NewCustomErr(9, "TokenErrUninitializedState")
	TokenErrInvalidState              = NewCustomErr(13, "TokenErrInvalidState")
	TokenErrOverflow                  = NewCustomErr(14, "TokenErrOverflow")
	TokenErrAuthorityTypeNotSupported = NewCustomErr(15, "TokenErrAuthorityTypeNotSupported")
	TokenErrMintCannotFreeze          = NewCustomErr(16, "TokenErrMintCannotFreeze")
	TokenErrAccountFrozen             = NewCustomErr(17, "TokenErrAccountFrozen")
	TokenErrMintDecimalsMismatch      = NewCustomErr(18, "TokenErrMintDecimalsMismatch")
	TokenErrMintPaused                = NewCustomErr(67, "TokenErrMintPaused")
)

// TransferHookExecuteDiscriminator prefixes the Execute instruction sent to
// a mint's transfer hook program.
var TransferHookExecuteDiscriminator = splDiscriminator("spl-transfer-hook-interface:execute")

func splDiscriminator(name string) [8]byte {
	hash := sha256.Sum256([]byte(name))
	var discriminator [8]byte
	copy(discriminator[:], hash[:8])
	return discriminator
}

func TokenProgramExecute(execCtx *ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(CUTokenProgramDefaultComputeUnits)
	if err != nil {
		return InstrErrComputationalBudgetExceeded
	}

	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	data := instrCtx.Data
	if len(data) == 0 {
		return InstrErrInvalidInstructionData
	}

	switch data[0] {
	case TokenInstrInitializePermanentDelegate:
		if len(data) != 1+solana.PublicKeyLength {
			return InstrErrInvalidInstructionData
		}
		execCtx.Logf("Instruction: InitializePermanentDelegate")
		return tokenInitializePermanentDelegate(execCtx, solana.PublicKeyFromBytes(data[1:]))

	case TokenInstrTransferHookExtension:
		if len(data) < 2 {
			return InstrErrInvalidInstructionData
		}
		switch data[1] {
		case TransferHookInstrInitialize:
			if len(data) != 2+2*solana.PublicKeyLength {
				return InstrErrInvalidInstructionData
			}
			execCtx.Logf("Instruction: InitializeTransferHook")
			return tokenInitializeTransferHook(execCtx, solana.PublicKeyFromBytes(data[2:34]), solana.PublicKeyFromBytes(data[34:66]))
		case TransferHookInstrUpdate:
			if len(data) != 2+solana.PublicKeyLength {
				return InstrErrInvalidInstructionData
			}
			execCtx.Logf("Instruction: UpdateTransferHook")
			return tokenUpdateTransferHook(execCtx, solana.PublicKeyFromBytes(data[2:]))
		default:
			return InstrErrInvalidInstructionData
		}

	case TokenInstrPausableExtension:
		if len(data) < 2 {
			return InstrErrInvalidInstructionData
		}
		switch data[1] {
		case PausableInstrInitialize:
			if len(data) != 2+solana.PublicKeyLength {
				return InstrErrInvalidInstructionData
			}
			execCtx.Logf("Instruction: InitializePausableConfig")
			return tokenInitializePausable(execCtx, solana.PublicKeyFromBytes(data[2:]))
		case PausableInstrPause:
			execCtx.Logf("Instruction: Pause")
			return tokenSetPaused(execCtx, true)
		case PausableInstrResume:
			execCtx.Logf("Instruction: Resume")
			return tokenSetPaused(execCtx, false)
		default:
			return InstrErrInvalidInstructionData
		}
	}

	inst, err := token.DecodeInstruction(nil, data)
	if err != nil {
		klog.Errorf("failed to decode token instruction: %s", err)
		return InstrErrInvalidInstructionData
	}

	switch ix := inst.Impl.(type) {
	case *token.InitializeMint2:
		execCtx.Logf("Instruction: InitializeMint2")
		if ix.Decimals == nil || ix.MintAuthority == nil {
			return InstrErrInvalidInstructionData
		}
		return tokenInitializeMint(execCtx, *ix.Decimals, *ix.MintAuthority, ix.FreezeAuthority)
	case *token.InitializeAccount3:
		execCtx.Logf("Instruction: InitializeAccount3")
		if ix.Owner == nil {
			return InstrErrInvalidInstructionData
		}
		return tokenInitializeAccount(execCtx, *ix.Owner)
	case *token.MintToChecked:
		execCtx.Logf("Instruction: MintToChecked")
		if ix.Amount == nil || ix.Decimals == nil {
			return InstrErrInvalidInstructionData
		}
		return tokenMintTo(execCtx, *ix.Amount, *ix.Decimals)
	case *token.BurnChecked:
		execCtx.Logf("Instruction: BurnChecked")
		if ix.Amount == nil || ix.Decimals == nil {
			return InstrErrInvalidInstructionData
		}
		return tokenBurn(execCtx, *ix.Amount, *ix.Decimals)
	case *token.TransferChecked:
		execCtx.Logf("Instruction: TransferChecked")
		if ix.Amount == nil || ix.Decimals == nil {
			return InstrErrInvalidInstructionData
		}
		return tokenTransfer(execCtx, *ix.Amount, *ix.Decimals)
	case *token.FreezeAccount:
		execCtx.Logf("Instruction: FreezeAccount")
		return tokenSetFrozen(execCtx, true)
	case *token.ThawAccount:
		execCtx.Logf("Instruction: ThawAccount")
		return tokenSetFrozen(execCtx, false)
	case *token.SetAuthority:
		execCtx.Logf("Instruction: SetAuthority")
		if ix.AuthorityType == nil {
			return InstrErrInvalidInstructionData
		}
		return tokenSetAuthority(execCtx, *ix.AuthorityType, ix.NewAuthority)
	default:
		klog.Errorf("unsupported token instruction %s", token.InstructionIDToName(data[0]))
		return InstrErrInvalidInstructionData
	}
}

func borrowInstructionAccounts(execCtx *ExecutionCtx, count uint64) ([]*BorrowedAccount, error) {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return nil, err
	}
	err = instrCtx.CheckNumOfInstructionAccounts(count)
	if err != nil {
		return nil, err
	}
	accts := make([]*BorrowedAccount, count)
	for i := uint64(0); i < count; i++ {
		accts[i], err = instrCtx.BorrowInstructionAccount(txCtx, i)
		if err != nil {
			return nil, err
		}
	}
	return accts, nil
}

func loadMint(execCtx *ExecutionCtx, acct *BorrowedAccount) (*TokenMint, error) {
	if acct.Owner() != Token2022ProgramAddr {
		return nil, InstrErrIncorrectProgramId
	}
	mint, err := UnmarshalTokenMint(acct.Data())
	if err != nil {
		return nil, err
	}
	return mint, nil
}

func loadInitializedMint(execCtx *ExecutionCtx, acct *BorrowedAccount) (*TokenMint, error) {
	mint, err := loadMint(execCtx, acct)
	if err != nil {
		return nil, err
	}
	if !mint.IsInitialized {
		return nil, TokenErrUninitializedState
	}
	return mint, nil
}

func loadTokenAccount(acct *BorrowedAccount) (*token.Account, error) {
	if acct.Owner() != Token2022ProgramAddr {
		return nil, InstrErrIncorrectProgramId
	}
	tokenAcct, err := UnmarshalTokenAccount(acct.Data())
	if err != nil {
		return nil, err
	}
	if tokenAcct.State == token.Uninitialized {
		return nil, TokenErrUninitializedState
	}
	return tokenAcct, nil
}

func storeMint(acct *BorrowedAccount, mint *TokenMint) error {
	data, err := mint.Marshal()
	if err != nil {
		return InstrErrInvalidAccountData
	}
	return acct.SetData(data)
}

func storeTokenAccount(acct *BorrowedAccount, tokenAcct *token.Account) error {
	data, err := MarshalTokenAccount(tokenAcct)
	if err != nil {
		return InstrErrInvalidAccountData
	}
	return acct.SetData(data)
}

func checkAuthority(authority *BorrowedAccount, expected solana.PublicKey) error {
	if authority.Key() != expected {
		klog.Errorf("authority %s does not match %s", authority.Key(), expected)
		return TokenErrOwnerMismatch
	}
	if !authority.IsSigner() {
		return InstrErrMissingRequiredSignature
	}
	return nil
}

func tokenInitializeMint(execCtx *ExecutionCtx, decimals uint8, mintAuthority solana.PublicKey, freezeAuthority *solana.PublicKey) error {
	accts, err := borrowInstructionAccounts(execCtx, 1)
	if err != nil {
		return err
	}
	mintAcct := accts[0]

	mint, err := loadMint(execCtx, mintAcct)
	if err != nil {
		return err
	}
	if mint.IsInitialized {
		return TokenErrAlreadyInUse
	}
	if !execCtx.Rent.IsExempt(mintAcct.Lamports(), uint64(len(mintAcct.Data()))) {
		return TokenErrNotRentExempt
	}

	mint.MintAuthority = &mintAuthority
	mint.FreezeAuthority = freezeAuthority
	mint.Decimals = decimals
	mint.IsInitialized = true

	return storeMint(mintAcct, mint)
}

func tokenInitializePermanentDelegate(execCtx *ExecutionCtx, delegate solana.PublicKey) error {
	accts, err := borrowInstructionAccounts(execCtx, 1)
	if err != nil {
		return err
	}
	mint, err := loadMint(execCtx, accts[0])
	if err != nil {
		return err
	}
	if mint.IsInitialized {
		return TokenErrAlreadyInUse
	}
	mint.PermanentDelegate = delegate
	return storeMint(accts[0], mint)
}

func tokenInitializeTransferHook(execCtx *ExecutionCtx, authority solana.PublicKey, programId solana.PublicKey) error {
	accts, err := borrowInstructionAccounts(execCtx, 1)
	if err != nil {
		return err
	}
	mint, err := loadMint(execCtx, accts[0])
	if err != nil {
		return err
	}
	if mint.IsInitialized {
		return TokenErrAlreadyInUse
	}
	if programId == Token2022ProgramAddr {
		return InstrErrIncorrectProgramId
	}
	mint.TransferHookAuthority = authority
	mint.TransferHookProgramId = programId
	return storeMint(accts[0], mint)
}

func tokenUpdateTransferHook(execCtx *ExecutionCtx, programId solana.PublicKey) error {
	accts, err := borrowInstructionAccounts(execCtx, 2)
	if err != nil {
		return err
	}
	mintAcct, authority := accts[0], accts[1]

	mint, err := loadInitializedMint(execCtx, mintAcct)
	if err != nil {
		return err
	}
	if mint.TransferHookAuthority.IsZero() {
		return TokenErrAuthorityTypeNotSupported
	}
	err = checkAuthority(authority, mint.TransferHookAuthority)
	if err != nil {
		return err
	}
	if programId == Token2022ProgramAddr {
		return InstrErrIncorrectProgramId
	}
	mint.TransferHookProgramId = programId
	return storeMint(mintAcct, mint)
}

func tokenInitializePausable(execCtx *ExecutionCtx, authority solana.PublicKey) error {
	accts, err := borrowInstructionAccounts(execCtx, 1)
	if err != nil {
		return err
	}
	mint, err := loadMint(execCtx, accts[0])
	if err != nil {
		return err
	}
	if mint.IsInitialized {
		return TokenErrAlreadyInUse
	}
	mint.PauseAuthority = authority
	return storeMint(accts[0], mint)
}

func tokenSetPaused(execCtx *ExecutionCtx, paused bool) error {
	accts, err := borrowInstructionAccounts(execCtx, 2)
	if err != nil {
		return err
	}
	mintAcct, authority := accts[0], accts[1]

	mint, err := loadInitializedMint(execCtx, mintAcct)
	if err != nil {
		return err
	}
	if mint.PauseAuthority.IsZero() {
		return TokenErrAuthorityTypeNotSupported
	}
	err = checkAuthority(authority, mint.PauseAuthority)
	if err != nil {
		return err
	}
	mint.Paused = paused
	return storeMint(mintAcct, mint)
}

func tokenInitializeAccount(execCtx *ExecutionCtx, owner solana.PublicKey) error {
	accts, err := borrowInstructionAccounts(execCtx, 2)
	if err != nil {
		return err
	}
	acct, mintAcct := accts[0], accts[1]

	if acct.Owner() != Token2022ProgramAddr {
		return InstrErrIncorrectProgramId
	}
	tokenAcct, err := UnmarshalTokenAccount(acct.Data())
	if err != nil {
		return err
	}
	if tokenAcct.State != token.Uninitialized {
		return TokenErrAlreadyInUse
	}
	if !execCtx.Rent.IsExempt(acct.Lamports(), uint64(len(acct.Data()))) {
		return TokenErrNotRentExempt
	}

	_, err = loadInitializedMint(execCtx, mintAcct)
	if err != nil {
		return TokenErrInvalidMint
	}

	tokenAcct.Mint = mintAcct.Key()
	tokenAcct.Owner = owner
	tokenAcct.State = token.Initialized
	return storeTokenAccount(acct, tokenAcct)
}

func tokenMintTo(execCtx *ExecutionCtx, amount uint64, decimals uint8) error {
	accts, err := borrowInstructionAccounts(execCtx, 3)
	if err != nil {
		return err
	}
	mintAcct, destAcct, authority := accts[0], accts[1], accts[2]

	mint, err := loadInitializedMint(execCtx, mintAcct)
	if err != nil {
		return err
	}
	dest, err := loadTokenAccount(destAcct)
	if err != nil {
		return err
	}
	if dest.Mint != mintAcct.Key() {
		return TokenErrMintMismatch
	}
	if dest.State == token.Frozen {
		return TokenErrAccountFrozen
	}
	if mint.Paused {
		return TokenErrMintPaused
	}
	if decimals != mint.Decimals {
		return TokenErrMintDecimalsMismatch
	}
	if mint.MintAuthority == nil {
		return TokenErrFixedSupply
	}
	err = checkAuthority(authority, *mint.MintAuthority)
	if err != nil {
		return err
	}

	mint.Supply, err = safemath.CheckedAddU64(mint.Supply, amount)
	if err != nil {
		return TokenErrOverflow
	}
	dest.Amount, err = safemath.CheckedAddU64(dest.Amount, amount)
	if err != nil {
		return TokenErrOverflow
	}

	err = storeTokenAccount(destAcct, dest)
	if err != nil {
		return err
	}
	return storeMint(mintAcct, mint)
}

// ownerOrPermanentDelegate accepts either the account owner or the mint's
// permanent delegate as the signing authority.
func ownerOrPermanentDelegate(authority *BorrowedAccount, owner solana.PublicKey, mint *TokenMint) error {
	if authority.Key() == owner || (!mint.PermanentDelegate.IsZero() && authority.Key() == mint.PermanentDelegate) {
		if !authority.IsSigner() {
			return InstrErrMissingRequiredSignature
		}
		return nil
	}
	klog.Errorf("authority %s is neither owner %s nor permanent delegate", authority.Key(), owner)
	return TokenErrOwnerMismatch
}

func tokenBurn(execCtx *ExecutionCtx, amount uint64, decimals uint8) error {
	accts, err := borrowInstructionAccounts(execCtx, 3)
	if err != nil {
		return err
	}
	sourceAcct, mintAcct, authority := accts[0], accts[1], accts[2]

	source, err := loadTokenAccount(sourceAcct)
	if err != nil {
		return err
	}
	mint, err := loadInitializedMint(execCtx, mintAcct)
	if err != nil {
		return err
	}
	if source.Mint != mintAcct.Key() {
		return TokenErrMintMismatch
	}
	if source.State == token.Frozen {
		return TokenErrAccountFrozen
	}
	if mint.Paused {
		return TokenErrMintPaused
	}
	if decimals != mint.Decimals {
		return TokenErrMintDecimalsMismatch
	}
	if source.Amount < amount {
		return TokenErrInsufficientFunds
	}
	err = ownerOrPermanentDelegate(authority, source.Owner, mint)
	if err != nil {
		return err
	}

	source.Amount -= amount
	mint.Supply, err = safemath.CheckedSubU64(mint.Supply, amount)
	if err != nil {
		return TokenErrOverflow
	}

	err = storeTokenAccount(sourceAcct, source)
	if err != nil {
		return err
	}
	return storeMint(mintAcct, mint)
}

func tokenTransfer(execCtx *ExecutionCtx, amount uint64, decimals uint8) error {
	accts, err := borrowInstructionAccounts(execCtx, 4)
	if err != nil {
		return err
	}
	sourceAcct, mintAcct, destAcct, authority := accts[0], accts[1], accts[2], accts[3]

	source, err := loadTokenAccount(sourceAcct)
	if err != nil {
		return err
	}
	dest, err := loadTokenAccount(destAcct)
	if err != nil {
		return err
	}
	mint, err := loadInitializedMint(execCtx, mintAcct)
	if err != nil {
		return err
	}
	if source.Mint != mintAcct.Key() || dest.Mint != mintAcct.Key() {
		return TokenErrMintMismatch
	}
	if source.State == token.Frozen || dest.State == token.Frozen {
		return TokenErrAccountFrozen
	}
	if mint.Paused {
		return TokenErrMintPaused
	}
	if decimals != mint.Decimals {
		return TokenErrMintDecimalsMismatch
	}
	if source.Amount < amount {
		return TokenErrInsufficientFunds
	}
	err = ownerOrPermanentDelegate(authority, source.Owner, mint)
	if err != nil {
		return err
	}

	if sourceAcct.Key() != destAcct.Key() {
		source.Amount -= amount
		dest.Amount, err = safemath.CheckedAddU64(dest.Amount, amount)
		if err != nil {
			return TokenErrOverflow
		}

		err = storeTokenAccount(sourceAcct, source)
		if err != nil {
			return err
		}
		err = storeTokenAccount(destAcct, dest)
		if err != nil {
			return err
		}
	}

	if mint.TransferHookProgramId.IsZero() {
		return nil
	}
	return invokeTransferHook(execCtx, mint.TransferHookProgramId, amount)
}

// invokeTransferHook calls the mint's hook program once balances have
// moved. The hook sees source, mint, destination and authority read-only
// and unsigned, followed by every extra account of the transfer except
// the hook program itself, which must be among them.
func invokeTransferHook(execCtx *ExecutionCtx, hookProgramId solana.PublicKey, amount uint64) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	numAccts := instrCtx.NumberOfInstructionAccounts()
	metas := make([]AccountMeta, 0, numAccts)
	var hookPresent bool
	for idx := uint64(0); idx < numAccts; idx++ {
		key, err := instrCtx.InstructionAccountKey(txCtx, idx)
		if err != nil {
			return err
		}
		if idx < 4 {
			metas = append(metas, AccountMeta{Pubkey: key})
			continue
		}
		if key == hookProgramId {
			hookPresent = true
			continue
		}
		isSigner, err := instrCtx.IsInstructionAccountSigner(idx)
		if err != nil {
			return err
		}
		isWritable, err := instrCtx.IsInstructionAccountWritable(idx)
		if err != nil {
			return err
		}
		metas = append(metas, AccountMeta{Pubkey: key, IsSigner: isSigner, IsWritable: isWritable})
	}
	if !hookPresent {
		klog.Errorf("transfer hook program %s missing from transfer accounts", hookProgramId)
		return InstrErrMissingAccount
	}

	data := make([]byte, len(TransferHookExecuteDiscriminator)+8)
	copy(data, TransferHookExecuteDiscriminator[:])
	binary.LittleEndian.PutUint64(data[len(TransferHookExecuteDiscriminator):], amount)

	return execCtx.Invoke(Instruction{ProgramId: hookProgramId, Accounts: metas, Data: data})
}

func tokenSetFrozen(execCtx *ExecutionCtx, frozen bool) error {
	accts, err := borrowInstructionAccounts(execCtx, 3)
	if err != nil {
		return err
	}
	acct, mintAcct, authority := accts[0], accts[1], accts[2]

	tokenAcct, err := loadTokenAccount(acct)
	if err != nil {
		return err
	}
	mint, err := loadInitializedMint(execCtx, mintAcct)
	if err != nil {
		return err
	}
	if tokenAcct.Mint != mintAcct.Key() {
		return TokenErrMintMismatch
	}
	if frozen == (tokenAcct.State == token.Frozen) {
		return TokenErrInvalidState
	}
	if mint.FreezeAuthority == nil {
		return TokenErrMintCannotFreeze
	}
	err = checkAuthority(authority, *mint.FreezeAuthority)
	if err != nil {
		return err
	}

	if frozen {
		tokenAcct.State = token.Frozen
	} else {
		tokenAcct.State = token.Initialized
	}
	return storeTokenAccount(acct, tokenAcct)
}

func tokenSetAuthority(execCtx *ExecutionCtx, authorityType token.AuthorityType, newAuthority *solana.PublicKey) error {
	accts, err := borrowInstructionAccounts(execCtx, 2)
	if err != nil {
		return err
	}
	mintAcct, authority := accts[0], accts[1]

	mint, err := loadInitializedMint(execCtx, mintAcct)
	if err != nil {
		return err
	}

	switch authorityType {
	case token.AuthorityMintTokens:
		if mint.MintAuthority == nil {
			return TokenErrFixedSupply
		}
		err = checkAuthority(authority, *mint.MintAuthority)
		if err != nil {
			return err
		}
		mint.MintAuthority = newAuthority
	case token.AuthorityFreezeAccount:
		if mint.FreezeAuthority == nil {
			return TokenErrMintCannotFreeze
		}
		err = checkAuthority(authority, *mint.FreezeAuthority)
		if err != nil {
			return err
		}
		mint.FreezeAuthority = newAuthority
	default:
		return TokenErrAuthorityTypeNotSupported
	}

	return storeMint(mintAcct, mint)
}
