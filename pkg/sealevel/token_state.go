package sealevel

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

const (
	MintBaseLen       = 82
	MintExtensionsLen = 4*solana.PublicKeyLength + 1
	MintLen           = MintBaseLen + MintExtensionsLen
	TokenAccountLen   = 165
)

// TokenMint is a Token-2022 mint: the SPL base layout followed by the
// permanent delegate, transfer hook and pausable extensions. A zero key
// means the extension is not configured.
type TokenMint struct {
	token.Mint
	PermanentDelegate     solana.PublicKey
	TransferHookAuthority solana.PublicKey
	TransferHookProgramId solana.PublicKey
	PauseAuthority        solana.PublicKey
	Paused                bool
}

func (m *TokenMint) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := m.Mint.UnmarshalWithDecoder(decoder)
	if err != nil {
		return fmt.Errorf("failed to read base mint when decoding TokenMint: %w", err)
	}

	delegate, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return fmt.Errorf("failed to read PermanentDelegate when decoding TokenMint: %w", err)
	}
	copy(m.PermanentDelegate[:], delegate)

	hookAuthority, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return fmt.Errorf("failed to read TransferHookAuthority when decoding TokenMint: %w", err)
	}
	copy(m.TransferHookAuthority[:], hookAuthority)

	hookProgram, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return fmt.Errorf("failed to read TransferHookProgramId when decoding TokenMint: %w", err)
	}
	copy(m.TransferHookProgramId[:], hookProgram)

	pauseAuthority, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return fmt.Errorf("failed to read PauseAuthority when decoding TokenMint: %w", err)
	}
	copy(m.PauseAuthority[:], pauseAuthority)

	m.Paused, err = decoder.ReadBool()
	if err != nil {
		return fmt.Errorf("failed to read Paused when decoding TokenMint: %w", err)
	}
	return nil
}

func (m *TokenMint) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := m.Mint.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}
	err = encoder.WriteBytes(m.PermanentDelegate[:], false)
	if err != nil {
		return err
	}
	err = encoder.WriteBytes(m.TransferHookAuthority[:], false)
	if err != nil {
		return err
	}
	err = encoder.WriteBytes(m.TransferHookProgramId[:], false)
	if err != nil {
		return err
	}
	err = encoder.WriteBytes(m.PauseAuthority[:], false)
	if err != nil {
		return err
	}
	return encoder.WriteBool(m.Paused)
}

func UnmarshalTokenMint(data []byte) (*TokenMint, error) {
	if len(data) != MintLen {
		return nil, InstrErrInvalidAccountData
	}
	mint := new(TokenMint)
	err := mint.UnmarshalWithDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, InstrErrInvalidAccountData
	}
	return mint, nil
}

func (m *TokenMint) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	err := m.MarshalWithEncoder(bin.NewBinEncoder(buf))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func UnmarshalTokenAccount(data []byte) (*token.Account, error) {
	if len(data) != TokenAccountLen {
		return nil, InstrErrInvalidAccountData
	}
	acct := new(token.Account)
	err := acct.UnmarshalWithDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, InstrErrInvalidAccountData
	}
	return acct, nil
}

func MarshalTokenAccount(acct *token.Account) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := acct.MarshalWithEncoder(bin.NewBinEncoder(buf))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
