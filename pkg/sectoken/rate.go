package sectoken

import (
	"errors"
	"fmt"

	"go.firedancer.io/sectoken/pkg/safemath"
	"go.firedancer.io/sectoken/pkg/sealevel"
)

type Rounding uint8

const (
	RoundingUp Rounding = iota
	RoundingDown
)

var ErrInvalidRounding = errors.New("invalid rounding")

func RoundingFromByte(b uint8) (Rounding, error) {
	switch Rounding(b) {
	case RoundingUp, RoundingDown:
		return Rounding(b), nil
	default:
		return 0, ErrInvalidRounding
	}
}

func ParseRounding(s string) (Rounding, error) {
	switch s {
	case "up", "Up":
		return RoundingUp, nil
	case "down", "Down":
		return RoundingDown, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRounding, s)
	}
}

func (r Rounding) String() string {
	switch r {
	case RoundingUp:
		return "up"
	case RoundingDown:
		return "down"
	default:
		return fmt.Sprintf("Rounding(%d)", uint8(r))
	}
}

func mapMathErr(err error) error {
	if errors.Is(err, safemath.ErrOverflow) {
		return sealevel.InstrErrArithmeticOverflow
	}
	return sealevel.InstrErrInvalidArgument
}

// Calculate returns amount * numerator / denominator rounded per r.
func (r *Rate) Calculate(amount uint64) (uint64, error) {
	if r.Denominator == 0 {
		return 0, sealevel.InstrErrInvalidArgument
	}
	out, err := safemath.MulDivU64(amount, uint64(r.Numerator), uint64(r.Denominator), r.Rounding == RoundingUp)
	if err != nil {
		return 0, mapMathErr(err)
	}
	return out, nil
}

// Convert applies the rate to amount and rescales it from fromDecimals to
// toDecimals in a single rounding step.
func (r *Rate) Convert(amount uint64, fromDecimals, toDecimals uint8) (uint64, error) {
	if r.Denominator == 0 {
		return 0, sealevel.InstrErrInvalidArgument
	}
	var mulExp, divExp uint8
	if toDecimals >= fromDecimals {
		mulExp = toDecimals - fromDecimals
	} else {
		divExp = fromDecimals - toDecimals
	}
	out, err := safemath.MulDivPow10(amount, uint64(r.Numerator), uint64(r.Denominator), mulExp, divExp, r.Rounding == RoundingUp)
	if err != nil {
		return 0, mapMathErr(err)
	}
	return out, nil
}

// BalanceDelta is the signed change a split applies to a balance.
type BalanceDelta struct {
	Amount uint64
	Burn   bool
}

// Split returns the balance after applying the rate and the change needed
// to reach it.
func (r *Rate) Split(balance uint64) (uint64, BalanceDelta, error) {
	newBalance, err := r.Calculate(balance)
	if err != nil {
		return 0, BalanceDelta{}, err
	}
	if newBalance >= balance {
		return newBalance, BalanceDelta{Amount: newBalance - balance}, nil
	}
	return newBalance, BalanceDelta{Amount: balance - newBalance, Burn: true}, nil
}

func (inv *invocation) createRateAccount() error {
	var args RateArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(InstrCreateRateAccount)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 5)
	if err != nil {
		return err
	}
	payer, rateAcct, mintFrom, mintTo, systemProgram := accts[0], accts[1], accts[2], accts[3], accts[4]

	err = verifyMintKeysMatch(v.mint, mintTo.Key())
	if err != nil {
		return err
	}
	err = verifyWritableSigner(payer)
	if err != nil {
		return err
	}
	err = verifyWritable(rateAcct)
	if err != nil {
		return err
	}
	err = verifyAccountNotInitialized(rateAcct)
	if err != nil {
		return err
	}
	err = verifySystemProgram(systemProgram)
	if err != nil {
		return err
	}

	address, err := FindRateAddress(inv.programId, args.ActionId, mintFrom.Key(), mintTo.Key())
	if err != nil {
		return err
	}
	err = verifyPdaKeysMatch(rateAcct, address.Key)
	if err != nil {
		return err
	}

	rate := &Rate{Rounding: args.Rounding, Numerator: args.Numerator, Denominator: args.Denominator, Bump: address.Bump}
	return inv.initRecord(rate, payer, rateAcct, address)
}

// loadRate decodes a rate account and checks its derived address.
func (inv *invocation) loadRate(rateAcct, mintFrom, mintTo *sealevel.BorrowedAccount, actionId uint64) (*Rate, error) {
	err := verifyOwner(rateAcct, inv.programId)
	if err != nil {
		return nil, err
	}
	err = verifyAccountInitialized(rateAcct)
	if err != nil {
		return nil, err
	}
	rate, err := UnmarshalRate(rateAcct.Data())
	if err != nil {
		return nil, err
	}
	expected, err := addressWithBump(inv.programId, rateSeeds(actionId, mintFrom.Key(), mintTo.Key()), rate.Bump)
	if err != nil {
		return nil, err
	}
	err = verifyPdaKeysMatch(rateAcct, expected.Key)
	if err != nil {
		return nil, err
	}
	return rate, nil
}

func (inv *invocation) updateRateAccount() error {
	var args RateArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(InstrUpdateRateAccount)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 3)
	if err != nil {
		return err
	}
	rateAcct, mintFrom, mintTo := accts[0], accts[1], accts[2]

	err = verifyMintKeysMatch(v.mint, mintTo.Key())
	if err != nil {
		return err
	}
	err = verifyWritable(rateAcct)
	if err != nil {
		return err
	}
	rate, err := inv.loadRate(rateAcct, mintFrom, mintTo, args.ActionId)
	if err != nil {
		return err
	}

	rate.Rounding = args.Rounding
	rate.Numerator = args.Numerator
	rate.Denominator = args.Denominator
	return writeRecord(rateAcct, rate)
}

func (inv *invocation) closeRateAccount() error {
	var args ActionArgs
	err := DecodeArgs(inv.args, &args)
	if err != nil {
		return err
	}

	v, err := inv.verifyByStrategy(InstrCloseRateAccount)
	if err != nil {
		return err
	}
	accts, err := inv.verifiedAccounts(v, 4)
	if err != nil {
		return err
	}
	rateAcct, destination, mintFrom, mintTo := accts[0], accts[1], accts[2], accts[3]

	err = verifyMintKeysMatch(v.mint, mintTo.Key())
	if err != nil {
		return err
	}
	err = verifyWritable(rateAcct)
	if err != nil {
		return err
	}
	err = verifyWritable(destination)
	if err != nil {
		return err
	}
	_, err = inv.loadRate(rateAcct, mintFrom, mintTo, args.ActionId)
	if err != nil {
		return err
	}
	return closeRecord(rateAcct, destination)
}
