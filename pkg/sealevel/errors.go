package sealevel

import (
	"errors"
	"fmt"
)

// instruction errors
var (
	InstrErrGenericError                = errors.New("InstrErrGenericError")
	InstrErrInvalidArgument             = errors.New("InstrErrInvalidArgument")
	InstrErrInvalidInstructionData      = errors.New("InstrErrInvalidInstructionData")
	InstrErrInvalidAccountData          = errors.New("InstrErrInvalidAccountData")
	InstrErrAccountDataTooSmall         = errors.New("InstrErrAccountDataTooSmall")
	InstrErrInsufficientFunds           = errors.New("InstrErrInsufficientFunds")
	InstrErrIncorrectProgramId          = errors.New("InstrErrIncorrectProgramId")
	InstrErrMissingRequiredSignature    = errors.New("InstrErrMissingRequiredSignature")
	InstrErrAccountAlreadyInitialized   = errors.New("InstrErrAccountAlreadyInitialized")
	InstrErrUninitializedAccount        = errors.New("InstrErrUninitializedAccount")
	InstrErrUnbalancedInstruction       = errors.New("InstrErrUnbalancedInstruction")
	InstrErrModifiedProgramId           = errors.New("InstrErrModifiedProgramId")
	InstrErrExternalAccountLamportSpend = errors.New("InstrErrExternalAccountLamportSpend")
	InstrErrExternalAccountDataModified = errors.New("InstrErrExternalAccountDataModified")
	InstrErrReadonlyLamportChange       = errors.New("InstrErrReadonlyLamportChange")
	InstrErrReadonlyDataModified        = errors.New("InstrErrReadonlyDataModified")
	InstrErrNotEnoughAccountKeys        = errors.New("InstrErrNotEnoughAccountKeys")
	InstrErrAccountNotExecutable        = errors.New("InstrErrAccountNotExecutable")
	InstrErrExecutableDataModified      = errors.New("InstrErrExecutableDataModified")
	InstrErrExecutableLamportChange     = errors.New("InstrErrExecutableLamportChange")
	InstrErrUnsupportedProgramId        = errors.New("InstrErrUnsupportedProgramId")
	InstrErrCallDepth                   = errors.New("InstrErrCallDepth")
	InstrErrMissingAccount              = errors.New("InstrErrMissingAccount")
	InstrErrReentrancyNotAllowed        = errors.New("InstrErrReentrancyNotAllowed")
	InstrErrInvalidSeeds                = errors.New("InstrErrInvalidSeeds")
	InstrErrInvalidRealloc              = errors.New("InstrErrInvalidRealloc")
	InstrErrComputationalBudgetExceeded = errors.New("InstrErrComputationalBudgetExceeded")
	InstrErrPrivilegeEscalation         = errors.New("InstrErrPrivilegeEscalation")
	InstrErrImmutable                   = errors.New("InstrErrImmutable")
	InstrErrInvalidAccountOwner         = errors.New("InstrErrInvalidAccountOwner")
	InstrErrArithmeticOverflow          = errors.New("InstrErrArithmeticOverflow")
)

// instruction errors - Solana numerical error codes
const (
	InstrErrCodeSuccess                     = 0
	InstrErrCodeGenericError                = 1
	InstrErrCodeInvalidArgument             = 2
	InstrErrCodeInvalidInstructionData      = 3
	InstrErrCodeInvalidAccountData          = 4
	InstrErrCodeAccountDataTooSmall         = 5
	InstrErrCodeInsufficientFunds           = 6
	InstrErrCodeIncorrectProgramId          = 7
	InstrErrCodeMissingRequiredSignature    = 8
	InstrErrCodeAccountAlreadyInitialized   = 9
	InstrErrCodeUninitializedAccount        = 10
	InstrErrCodeUnbalancedInstruction       = 11
	InstrErrCodeModifiedProgramId           = 12
	InstrErrCodeExternalAccountLamportSpend = 13
	InstrErrCodeExternalAccountDataModified = 14
	InstrErrCodeReadonlyLamportChange       = 15
	InstrErrCodeReadonlyDataModified        = 16
	InstrErrCodeNotEnoughAccountKeys        = 20
	InstrErrCodeAccountNotExecutable        = 22
	InstrErrCodeCustom                      = 26
	InstrErrCodeExecutableDataModified      = 28
	InstrErrCodeExecutableLamportChange     = 29
	InstrErrCodeUnsupportedProgramId        = 31
	InstrErrCodeCallDepth                   = 32
	InstrErrCodeMissingAccount              = 33
	InstrErrCodeReentrancyNotAllowed        = 34
	InstrErrCodeInvalidSeeds                = 36
	InstrErrCodeInvalidRealloc              = 37
	InstrErrCodeComputationalBudgetExceeded = 38
	InstrErrCodePrivilegeEscalation         = 39
	InstrErrCodeImmutable                   = 43
	InstrErrCodeInvalidAccountOwner         = 47
	InstrErrCodeArithmeticOverflow          = 48
)

var instrErrCodes = map[error]int{
	InstrErrGenericError:                InstrErrCodeGenericError,
	InstrErrInvalidArgument:             InstrErrCodeInvalidArgument,
	InstrErrInvalidInstructionData:      InstrErrCodeInvalidInstructionData,
	InstrErrInvalidAccountData:          InstrErrCodeInvalidAccountData,
	InstrErrAccountDataTooSmall:         InstrErrCodeAccountDataTooSmall,
	InstrErrInsufficientFunds:           InstrErrCodeInsufficientFunds,
	InstrErrIncorrectProgramId:          InstrErrCodeIncorrectProgramId,
	InstrErrMissingRequiredSignature:    InstrErrCodeMissingRequiredSignature,
	InstrErrAccountAlreadyInitialized:   InstrErrCodeAccountAlreadyInitialized,
	InstrErrUninitializedAccount:        InstrErrCodeUninitializedAccount,
	InstrErrUnbalancedInstruction:       InstrErrCodeUnbalancedInstruction,
	InstrErrModifiedProgramId:           InstrErrCodeModifiedProgramId,
	InstrErrExternalAccountLamportSpend: InstrErrCodeExternalAccountLamportSpend,
	InstrErrExternalAccountDataModified: InstrErrCodeExternalAccountDataModified,
	InstrErrReadonlyLamportChange:       InstrErrCodeReadonlyLamportChange,
	InstrErrReadonlyDataModified:        InstrErrCodeReadonlyDataModified,
	InstrErrNotEnoughAccountKeys:        InstrErrCodeNotEnoughAccountKeys,
	InstrErrAccountNotExecutable:        InstrErrCodeAccountNotExecutable,
	InstrErrExecutableDataModified:      InstrErrCodeExecutableDataModified,
	InstrErrExecutableLamportChange:     InstrErrCodeExecutableLamportChange,
	InstrErrUnsupportedProgramId:        InstrErrCodeUnsupportedProgramId,
	InstrErrCallDepth:                   InstrErrCodeCallDepth,
	InstrErrMissingAccount:              InstrErrCodeMissingAccount,
	InstrErrReentrancyNotAllowed:        InstrErrCodeReentrancyNotAllowed,
	InstrErrInvalidSeeds:                InstrErrCodeInvalidSeeds,
	InstrErrInvalidRealloc:              InstrErrCodeInvalidRealloc,
	InstrErrComputationalBudgetExceeded: InstrErrCodeComputationalBudgetExceeded,
	InstrErrPrivilegeEscalation:         InstrErrCodePrivilegeEscalation,
	InstrErrImmutable:                   InstrErrCodeImmutable,
	InstrErrInvalidAccountOwner:         InstrErrCodeInvalidAccountOwner,
	InstrErrArithmeticOverflow:          InstrErrCodeArithmeticOverflow,
}

// CustomErr is a program-specific error carried as InstructionError::Custom.
type CustomErr struct {
	Code uint32
	Name string
}

func (e *CustomErr) Error() string {
	return fmt.Sprintf("custom program error: 0x%x (%s)", e.Code, e.Name)
}

func NewCustomErr(code uint32, name string) *CustomErr {
	return &CustomErr{Code: code, Name: name}
}

// InstrErrCode maps an error returned from instruction execution to its
// numeric InstructionError code.
func InstrErrCode(err error) int {
	if err == nil {
		return InstrErrCodeSuccess
	}

	var customErr *CustomErr
	if errors.As(err, &customErr) {
		return InstrErrCodeCustom
	}

	for e, code := range instrErrCodes {
		if errors.Is(err, e) {
			return code
		}
	}

	return InstrErrCodeGenericError
}

// CustomErrCode returns the program-specific code carried by err, if any.
func CustomErrCode(err error) (uint32, bool) {
	var customErr *CustomErr
	if errors.As(err, &customErr) {
		return customErr.Code, true
	}
	return 0, false
}

// TransactionError reports which top-level instruction aborted a transaction.
type TransactionError struct {
	InstructionIndex int
	Err              error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("error processing instruction %d: %s", e.InstructionIndex, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
