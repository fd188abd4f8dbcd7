package sectoken

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/sealevel"
)

// Record discriminators. The first byte of every account owned by the
// program identifies its kind.
const (
	DiscriminatorMintAuthority uint8 = iota
	DiscriminatorVerificationConfig
	DiscriminatorRate
	DiscriminatorReceipt
	DiscriminatorProof

	DiscriminatorClosed uint8 = 0xff
)

const (
	MintAuthorityLen          = 1 + solana.PublicKeyLength + solana.PublicKeyLength + 1
	RateLen                   = 1 + 1 + 1 + 1 + 1
	ReceiptLen                = 1 + solana.PublicKeyLength + 8 + 1
	VerificationConfigBaseLen = 1 + 1 + 1 + 1 + 4
	ProofBaseLen              = 1 + 1 + 4
)

// Record is a program-owned account body. Implementations encode without
// the leading discriminator; MarshalRecord and the Unmarshal* helpers add
// and check it.
type Record interface {
	Discriminator() uint8
	Size() uint64
	Validate() error
	MarshalWithEncoder(encoder *bin.Encoder) error
	UnmarshalWithDecoder(decoder *bin.Decoder) error
}

func MarshalRecord(record Record) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(int(record.Size()))
	encoder := bin.NewBinEncoder(buf)
	_ = encoder.WriteUint8(record.Discriminator())
	err := record.MarshalWithEncoder(encoder)
	if err != nil {
		panic("shouldn't fail")
	}
	return buf.Bytes()
}

// unmarshalRecord checks the discriminator, decodes the body and requires
// the record to span the whole account.
func unmarshalRecord(data []byte, record Record) error {
	if len(data) == 0 || data[0] != record.Discriminator() {
		return sealevel.InstrErrInvalidAccountData
	}
	decoder := bin.NewBinDecoder(data[1:])
	err := record.UnmarshalWithDecoder(decoder)
	if err != nil || decoder.HasRemaining() {
		return sealevel.InstrErrInvalidAccountData
	}
	return record.Validate()
}

// DecodeRecord decodes any record kind by its discriminator.
func DecodeRecord(data []byte) (Record, error) {
	if len(data) == 0 {
		return nil, sealevel.InstrErrUninitializedAccount
	}

	var record Record
	switch data[0] {
	case DiscriminatorMintAuthority:
		record = new(MintAuthority)
	case DiscriminatorVerificationConfig:
		record = new(VerificationConfig)
	case DiscriminatorRate:
		record = new(Rate)
	case DiscriminatorReceipt:
		record = new(Receipt)
	case DiscriminatorProof:
		record = new(ProofAccount)
	default:
		return nil, sealevel.InstrErrInvalidAccountData
	}

	err := unmarshalRecord(data, record)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func RecordKind(discriminator uint8) string {
	switch discriminator {
	case DiscriminatorMintAuthority:
		return "MintAuthority"
	case DiscriminatorVerificationConfig:
		return "VerificationConfig"
	case DiscriminatorRate:
		return "Rate"
	case DiscriminatorReceipt:
		return "Receipt"
	case DiscriminatorProof:
		return "Proof"
	case DiscriminatorClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

func readRecordPubkey(decoder *bin.Decoder) (solana.PublicKey, error) {
	b, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

// MintAuthority records the creator allowed to act for a mint under the
// mint authority verification strategy.
type MintAuthority struct {
	Mint        solana.PublicKey
	MintCreator solana.PublicKey
	Bump        uint8
}

func (ma *MintAuthority) Discriminator() uint8 { return DiscriminatorMintAuthority }
func (ma *MintAuthority) Size() uint64        { return MintAuthorityLen }

func (ma *MintAuthority) Validate() error {
	if ma.Mint.IsZero() || ma.MintCreator.IsZero() {
		return sealevel.InstrErrInvalidAccountData
	}
	return nil
}

func (ma *MintAuthority) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	ma.Mint, err = readRecordPubkey(decoder)
	if err != nil {
		return err
	}
	ma.MintCreator, err = readRecordPubkey(decoder)
	if err != nil {
		return err
	}
	ma.Bump, err = decoder.ReadUint8()
	return err
}

func (ma *MintAuthority) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(ma.Mint[:], false)
	if err != nil {
		return err
	}
	err = encoder.WriteBytes(ma.MintCreator[:], false)
	if err != nil {
		return err
	}
	return encoder.WriteUint8(ma.Bump)
}

func UnmarshalMintAuthority(data []byte) (*MintAuthority, error) {
	ma := new(MintAuthority)
	err := unmarshalRecord(data, ma)
	if err != nil {
		return nil, err
	}
	return ma, nil
}

// VerificationConfig lists the compliance programs that must attest an
// instruction before it executes.
type VerificationConfig struct {
	InstructionDiscriminator uint8
	CpiMode                  bool
	Bump                     uint8
	Programs                 []solana.PublicKey
}

func (vc *VerificationConfig) Discriminator() uint8 { return DiscriminatorVerificationConfig }

func (vc *VerificationConfig) Size() uint64 {
	return VerificationConfigSize(len(vc.Programs))
}

func VerificationConfigSize(numPrograms int) uint64 {
	return VerificationConfigBaseLen + uint64(numPrograms)*solana.PublicKeyLength
}

func (vc *VerificationConfig) Validate() error {
	for _, program := range vc.Programs {
		if program.IsZero() {
			return sealevel.InstrErrInvalidAccountData
		}
	}
	return nil
}

func (vc *VerificationConfig) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	vc.InstructionDiscriminator, err = decoder.ReadUint8()
	if err != nil {
		return err
	}
	cpiMode, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	if cpiMode > 1 {
		return sealevel.InstrErrInvalidAccountData
	}
	vc.CpiMode = cpiMode == 1
	vc.Bump, err = decoder.ReadUint8()
	if err != nil {
		return err
	}
	count, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}
	if decoder.Remaining() != int(count)*solana.PublicKeyLength {
		return sealevel.InstrErrInvalidAccountData
	}
	vc.Programs = make([]solana.PublicKey, count)
	for i := range vc.Programs {
		vc.Programs[i], err = readRecordPubkey(decoder)
		if err != nil {
			return err
		}
	}
	return nil
}

func (vc *VerificationConfig) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint8(vc.InstructionDiscriminator)
	if err != nil {
		return err
	}
	err = encoder.WriteBool(vc.CpiMode)
	if err != nil {
		return err
	}
	err = encoder.WriteUint8(vc.Bump)
	if err != nil {
		return err
	}
	return writePrograms(encoder, vc.Programs)
}

func UnmarshalVerificationConfig(data []byte) (*VerificationConfig, error) {
	vc := new(VerificationConfig)
	err := unmarshalRecord(data, vc)
	if err != nil {
		return nil, err
	}
	return vc, nil
}

// Rate is the conversion ratio of a corporate action.
type Rate struct {
	Rounding    Rounding
	Numerator   uint8
	Denominator uint8
	Bump        uint8
}

func (r *Rate) Discriminator() uint8 { return DiscriminatorRate }
func (r *Rate) Size() uint64        { return RateLen }

func (r *Rate) Validate() error {
	if r.Numerator == 0 || r.Denominator == 0 {
		return sealevel.InstrErrInvalidAccountData
	}
	return nil
}

func (r *Rate) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	rounding, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	r.Rounding, err = RoundingFromByte(rounding)
	if err != nil {
		return err
	}
	r.Numerator, err = decoder.ReadUint8()
	if err != nil {
		return err
	}
	r.Denominator, err = decoder.ReadUint8()
	if err != nil {
		return err
	}
	r.Bump, err = decoder.ReadUint8()
	return err
}

func (r *Rate) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint8(uint8(r.Rounding))
	if err != nil {
		return err
	}
	err = encoder.WriteUint8(r.Numerator)
	if err != nil {
		return err
	}
	err = encoder.WriteUint8(r.Denominator)
	if err != nil {
		return err
	}
	return encoder.WriteUint8(r.Bump)
}

func UnmarshalRate(data []byte) (*Rate, error) {
	r := new(Rate)
	err := unmarshalRecord(data, r)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Receipt marks that an action was executed. Only its existence matters;
// the body ties it back to the mint and action.
type Receipt struct {
	Mint     solana.PublicKey
	ActionId uint64
	Bump     uint8
}

func (rc *Receipt) Discriminator() uint8 { return DiscriminatorReceipt }
func (rc *Receipt) Size() uint64        { return ReceiptLen }

func (rc *Receipt) Validate() error {
	if rc.ActionId == 0 || rc.Mint.IsZero() {
		return sealevel.InstrErrInvalidAccountData
	}
	return nil
}

func (rc *Receipt) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	rc.Mint, err = readRecordPubkey(decoder)
	if err != nil {
		return err
	}
	rc.ActionId, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	rc.Bump, err = decoder.ReadUint8()
	return err
}

func (rc *Receipt) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteBytes(rc.Mint[:], false)
	if err != nil {
		return err
	}
	err = encoder.WriteUint64(rc.ActionId, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteUint8(rc.Bump)
}

func UnmarshalReceipt(data []byte) (*Receipt, error) {
	rc := new(Receipt)
	err := unmarshalRecord(data, rc)
	if err != nil {
		return nil, err
	}
	return rc, nil
}

// ProofAccount holds a merkle proof too large for a single instruction.
type ProofAccount struct {
	Bump  uint8
	Nodes ProofData
}

func (p *ProofAccount) Discriminator() uint8 { return DiscriminatorProof }

func (p *ProofAccount) Size() uint64 {
	return ProofAccountSize(len(p.Nodes))
}

func ProofAccountSize(numNodes int) uint64 {
	return ProofBaseLen + uint64(numNodes)*MerkleNodeLen
}

func (p *ProofAccount) Validate() error {
	if len(p.Nodes) == 0 || len(p.Nodes) > MaxProofLevels {
		return sealevel.InstrErrInvalidAccountData
	}
	for _, node := range p.Nodes {
		if node.IsZero() {
			return sealevel.InstrErrInvalidAccountData
		}
	}
	return nil
}

func (p *ProofAccount) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	p.Bump, err = decoder.ReadUint8()
	if err != nil {
		return err
	}
	count, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}
	if count > MaxProofLevels || decoder.Remaining() != int(count)*MerkleNodeLen {
		return sealevel.InstrErrInvalidAccountData
	}
	p.Nodes = make(ProofData, count)
	for i := range p.Nodes {
		b, err := decoder.ReadNBytes(MerkleNodeLen)
		if err != nil {
			return err
		}
		copy(p.Nodes[i][:], b)
	}
	return nil
}

func (p *ProofAccount) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint8(p.Bump)
	if err != nil {
		return err
	}
	return writeProof(encoder, p.Nodes)
}

// UpdateNodeAt replaces the node at offset, or appends it when offset is
// the current length. The result is revalidated.
func (p *ProofAccount) UpdateNodeAt(node MerkleNode, offset uint32) error {
	switch {
	case int(offset) > len(p.Nodes):
		return sealevel.InstrErrInvalidArgument
	case int(offset) == len(p.Nodes):
		p.Nodes = append(p.Nodes, node)
	default:
		p.Nodes[offset] = node
	}
	return p.Validate()
}

func UnmarshalProofAccount(data []byte) (*ProofAccount, error) {
	p := new(ProofAccount)
	err := unmarshalRecord(data, p)
	if err != nil {
		return nil, err
	}
	return p, nil
}
