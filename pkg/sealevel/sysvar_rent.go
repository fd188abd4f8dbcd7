package sealevel

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/accounts"
	"go.firedancer.io/sectoken/pkg/base58"
	"go.firedancer.io/sectoken/pkg/config"
)

const SysvarRentAddrStr = "SysvarRent111111111111111111111111111111111"

var SysvarRentAddr = solana.PublicKey(base58.MustDecodeFromString(SysvarRentAddrStr))

const SysvarRentStructLen = 17

// AccountStorageOverhead is the per-account metadata charged on top of the
// data length when computing rent.
const AccountStorageOverhead = 128

type SysvarRent struct {
	LamportsPerUint8Year uint64
	ExemptionThreshold   float64
	BurnPercent          byte
}

func DefaultRent() SysvarRent {
	return RentFromConfig(config.Default().Rent)
}

func RentFromConfig(rc config.RentConfig) SysvarRent {
	return SysvarRent{LamportsPerUint8Year: rc.LamportsPerByteYear, ExemptionThreshold: rc.ExemptionThreshold, BurnPercent: rc.BurnPercent}
}

func (sr *SysvarRent) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	lamportsPerUint8Year, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read LamportsPerUint8Year when decoding SysvarRent: %w", err)
	}
	sr.LamportsPerUint8Year = lamportsPerUint8Year

	exemptionThreshold, err := decoder.ReadFloat64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read ExemptionThreshold when decoding SysvarRent: %w", err)
	}
	sr.ExemptionThreshold = exemptionThreshold

	burnPercent, err := decoder.ReadByte()
	if err != nil {
		return fmt.Errorf("failed to read BurnPercent when decoding SysvarRent: %w", err)
	}
	sr.BurnPercent = burnPercent

	return
}

func (sr *SysvarRent) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(sr.LamportsPerUint8Year, bin.LE)
	if err != nil {
		return err
	}
	err = encoder.WriteFloat64(sr.ExemptionThreshold, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteByte(sr.BurnPercent)
}

func (sr *SysvarRent) Marshal() []byte {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := sr.MarshalWithEncoder(enc); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// MinimumBalance returns the lamports an account holding dataLen bytes
// needs to be rent exempt.
func (sr *SysvarRent) MinimumBalance(dataLen uint64) uint64 {
	bytes := dataLen + AccountStorageOverhead
	return uint64(float64(bytes*sr.LamportsPerUint8Year) * sr.ExemptionThreshold)
}

func (sr *SysvarRent) IsExempt(balance uint64, dataLen uint64) bool {
	return balance >= sr.MinimumBalance(dataLen)
}

func ReadRentSysvar(accts accounts.Accounts) (SysvarRent, error) {
	var rent SysvarRent
	rentAcct, err := accts.GetAccount((*[32]byte)(&SysvarRentAddr))
	if err != nil {
		return rent, fmt.Errorf("failed to read rent sysvar account: %w", err)
	}

	err = rent.UnmarshalWithDecoder(bin.NewBinDecoder(rentAcct.Data))
	return rent, err
}

func WriteRentSysvar(accts accounts.Accounts, rent SysvarRent) error {
	rentAcct := newRentSysvarAccount(rent)
	return accts.SetAccount((*[32]byte)(&SysvarRentAddr), rentAcct)
}

func newRentSysvarAccount(rent SysvarRent) *accounts.Account {
	data := rent.Marshal()
	return &accounts.Account{Key: SysvarRentAddr, Lamports: rent.MinimumBalance(uint64(len(data))), Data: data, Owner: SysvarOwnerAddr}
}

// RentFromAccount decodes the rent sysvar from a borrowed instruction account.
func RentFromAccount(acct *BorrowedAccount) (SysvarRent, error) {
	var rent SysvarRent
	if acct.Key() != SysvarRentAddr {
		return rent, InstrErrInvalidArgument
	}
	if len(acct.Data()) < SysvarRentStructLen {
		return rent, InstrErrAccountDataTooSmall
	}
	err := rent.UnmarshalWithDecoder(bin.NewBinDecoder(acct.Data()))
	if err != nil {
		return rent, InstrErrInvalidAccountData
	}
	return rent, nil
}
