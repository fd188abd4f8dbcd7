package sectoken

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/sectoken/pkg/sealevel"
)

const (
	MaxVerifyDataLen        = 10240
	MaxVerificationPrograms = 16
	MaxDecimals             = 20
)

// instructionArgs is implemented by every instruction argument record.
// Decoding returns InstrErrInvalidInstructionData for structurally
// malformed input and InstrErrInvalidArgument for out-of-domain values.
type instructionArgs interface {
	UnmarshalWithDecoder(decoder *bin.Decoder) error
	MarshalWithEncoder(encoder *bin.Encoder) error
}

// DecodeArgs decodes data into args. Trailing bytes are rejected.
func DecodeArgs(data []byte, args instructionArgs) error {
	decoder := bin.NewBinDecoder(data)
	err := args.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}
	if decoder.HasRemaining() {
		return sealevel.InstrErrInvalidInstructionData
	}
	return nil
}

// EncodeInstruction serializes the instruction discriminator followed by args.
func EncodeInstruction(ix uint8, args instructionArgs) []byte {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)
	_ = encoder.WriteUint8(ix)
	if args != nil {
		err := args.MarshalWithEncoder(encoder)
		if err != nil {
			panic("shouldn't fail")
		}
	}
	return buf.Bytes()
}

func readU8(decoder *bin.Decoder) (uint8, error) {
	v, err := decoder.ReadUint8()
	if err != nil {
		return 0, sealevel.InstrErrInvalidInstructionData
	}
	return v, nil
}

func readU32(decoder *bin.Decoder) (uint32, error) {
	v, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return 0, sealevel.InstrErrInvalidInstructionData
	}
	return v, nil
}

func readU64(decoder *bin.Decoder) (uint64, error) {
	v, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return 0, sealevel.InstrErrInvalidInstructionData
	}
	return v, nil
}

func readFlag(decoder *bin.Decoder) (bool, error) {
	v, err := readU8(decoder)
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, sealevel.InstrErrInvalidInstructionData
	}
}

func readPubkey(decoder *bin.Decoder) (solana.PublicKey, error) {
	b, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, sealevel.InstrErrInvalidInstructionData
	}
	return solana.PublicKeyFromBytes(b), nil
}

func readActionId(decoder *bin.Decoder) (uint64, error) {
	actionId, err := readU64(decoder)
	if err != nil {
		return 0, err
	}
	if actionId == 0 {
		return 0, sealevel.InstrErrInvalidArgument
	}
	return actionId, nil
}

func readAmount(decoder *bin.Decoder) (uint64, error) {
	amount, err := readU64(decoder)
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, sealevel.InstrErrInvalidArgument
	}
	return amount, nil
}

func readNode(decoder *bin.Decoder) (MerkleNode, error) {
	var node MerkleNode
	b, err := decoder.ReadNBytes(MerkleNodeLen)
	if err != nil {
		return node, sealevel.InstrErrInvalidInstructionData
	}
	copy(node[:], b)
	if node.IsZero() {
		return node, sealevel.InstrErrInvalidArgument
	}
	return node, nil
}

// readProof reads a u32 counted node list. The count is checked against
// MaxProofLevels and the remaining input before anything is allocated.
func readProof(decoder *bin.Decoder) (ProofData, error) {
	count, err := readU32(decoder)
	if err != nil {
		return nil, err
	}
	if count == 0 || count > MaxProofLevels {
		return nil, sealevel.InstrErrInvalidArgument
	}
	if decoder.Remaining() < int(count)*MerkleNodeLen {
		return nil, sealevel.InstrErrInvalidInstructionData
	}
	proof := make(ProofData, 0, count)
	for i := uint32(0); i < count; i++ {
		node, err := readNode(decoder)
		if err != nil {
			return nil, err
		}
		proof = append(proof, node)
	}
	return proof, nil
}

func readOptionalProof(decoder *bin.Decoder) (ProofData, error) {
	present, err := readFlag(decoder)
	if err != nil || !present {
		return nil, err
	}
	return readProof(decoder)
}

func readPrograms(decoder *bin.Decoder) ([]solana.PublicKey, error) {
	count, err := readU32(decoder)
	if err != nil {
		return nil, err
	}
	if count > MaxVerificationPrograms {
		return nil, sealevel.InstrErrInvalidArgument
	}
	if decoder.Remaining() < int(count)*solana.PublicKeyLength {
		return nil, sealevel.InstrErrInvalidInstructionData
	}
	programs := make([]solana.PublicKey, 0, count)
	for i := uint32(0); i < count; i++ {
		program, err := readPubkey(decoder)
		if err != nil {
			return nil, err
		}
		if program.IsZero() {
			return nil, sealevel.InstrErrInvalidArgument
		}
		programs = append(programs, program)
	}
	return programs, nil
}

func writeFlag(encoder *bin.Encoder, b bool) error {
	if b {
		return encoder.WriteUint8(1)
	}
	return encoder.WriteUint8(0)
}

func writeProof(encoder *bin.Encoder, proof ProofData) error {
	err := encoder.WriteUint32(uint32(len(proof)), bin.LE)
	if err != nil {
		return err
	}
	for _, node := range proof {
		err = encoder.WriteBytes(node[:], false)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeOptionalProof(encoder *bin.Encoder, proof ProofData) error {
	if proof == nil {
		return writeFlag(encoder, false)
	}
	err := writeFlag(encoder, true)
	if err != nil {
		return err
	}
	return writeProof(encoder, proof)
}

func writePrograms(encoder *bin.Encoder, programs []solana.PublicKey) error {
	err := encoder.WriteUint32(uint32(len(programs)), bin.LE)
	if err != nil {
		return err
	}
	for _, program := range programs {
		err = encoder.WriteBytes(program[:], false)
		if err != nil {
			return err
		}
	}
	return nil
}

// noArgs is used by instructions that take no arguments.
type noArgs struct{}

func (noArgs) UnmarshalWithDecoder(*bin.Decoder) error { return nil }
func (noArgs) MarshalWithEncoder(*bin.Encoder) error   { return nil }

type InitializeMintArgs struct {
	Decimals        uint8
	MintAuthority   solana.PublicKey
	FreezeAuthority *solana.PublicKey
}

func (args *InitializeMintArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.Decimals, err = readU8(decoder)
	if err != nil {
		return err
	}
	if args.Decimals > MaxDecimals {
		return sealevel.InstrErrInvalidArgument
	}
	args.MintAuthority, err = readPubkey(decoder)
	if err != nil {
		return err
	}
	hasFreeze, err := readFlag(decoder)
	if err != nil {
		return err
	}
	if hasFreeze {
		freeze, err := readPubkey(decoder)
		if err != nil {
			return err
		}
		args.FreezeAuthority = &freeze
	}
	return nil
}

func (args *InitializeMintArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint8(args.Decimals)
	if err != nil {
		return err
	}
	err = encoder.WriteBytes(args.MintAuthority[:], false)
	if err != nil {
		return err
	}
	err = writeFlag(encoder, args.FreezeAuthority != nil)
	if err != nil || args.FreezeAuthority == nil {
		return err
	}
	return encoder.WriteBytes(args.FreezeAuthority[:], false)
}

type InitializeVerificationConfigArgs struct {
	InstructionDiscriminator uint8
	CpiMode                  bool
	Programs                 []solana.PublicKey
}

func (args *InitializeVerificationConfigArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.InstructionDiscriminator, err = readU8(decoder)
	if err != nil {
		return err
	}
	args.CpiMode, err = readFlag(decoder)
	if err != nil {
		return err
	}
	args.Programs, err = readPrograms(decoder)
	return err
}

func (args *InitializeVerificationConfigArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint8(args.InstructionDiscriminator)
	if err != nil {
		return err
	}
	err = writeFlag(encoder, args.CpiMode)
	if err != nil {
		return err
	}
	return writePrograms(encoder, args.Programs)
}

type UpdateVerificationConfigArgs struct {
	InstructionDiscriminator uint8
	CpiMode                  bool
	Programs                 []solana.PublicKey
	Offset                   uint8
}

func (args *UpdateVerificationConfigArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.InstructionDiscriminator, err = readU8(decoder)
	if err != nil {
		return err
	}
	args.CpiMode, err = readFlag(decoder)
	if err != nil {
		return err
	}
	args.Programs, err = readPrograms(decoder)
	if err != nil {
		return err
	}
	args.Offset, err = readU8(decoder)
	return err
}

func (args *UpdateVerificationConfigArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint8(args.InstructionDiscriminator)
	if err != nil {
		return err
	}
	err = writeFlag(encoder, args.CpiMode)
	if err != nil {
		return err
	}
	err = writePrograms(encoder, args.Programs)
	if err != nil {
		return err
	}
	return encoder.WriteUint8(args.Offset)
}

type TrimVerificationConfigArgs struct {
	InstructionDiscriminator uint8
	Size                     uint8
	Close                    bool
}

func (args *TrimVerificationConfigArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.InstructionDiscriminator, err = readU8(decoder)
	if err != nil {
		return err
	}
	args.Size, err = readU8(decoder)
	if err != nil {
		return err
	}
	args.Close, err = readFlag(decoder)
	return err
}

func (args *TrimVerificationConfigArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint8(args.InstructionDiscriminator)
	if err != nil {
		return err
	}
	err = encoder.WriteUint8(args.Size)
	if err != nil {
		return err
	}
	return writeFlag(encoder, args.Close)
}

// VerifyArgs names the instruction being attested and its argument bytes.
type VerifyArgs struct {
	Ix              uint8
	InstructionData []byte
}

func (args *VerifyArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.Ix, err = readU8(decoder)
	if err != nil {
		return err
	}
	dataLen, err := readU32(decoder)
	if err != nil {
		return err
	}
	if dataLen > MaxVerifyDataLen || int(dataLen) > decoder.Remaining() {
		return sealevel.InstrErrInvalidInstructionData
	}
	args.InstructionData, err = decoder.ReadNBytes(int(dataLen))
	if err != nil {
		return sealevel.InstrErrInvalidInstructionData
	}
	return nil
}

func (args *VerifyArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint8(args.Ix)
	if err != nil {
		return err
	}
	err = encoder.WriteUint32(uint32(len(args.InstructionData)), bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteBytes(args.InstructionData, false)
}

// TargetInstructionData is the data compliance programs must have attested.
func (args *VerifyArgs) TargetInstructionData() []byte {
	data := make([]byte, 0, 1+len(args.InstructionData))
	data = append(data, args.Ix)
	return append(data, args.InstructionData...)
}

// AmountArgs carries the amount of a Mint, Burn or Transfer.
type AmountArgs struct {
	Amount uint64
}

func (args *AmountArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.Amount, err = readAmount(decoder)
	return err
}

func (args *AmountArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(args.Amount, bin.LE)
}

// ActionArgs carries only an action id.
type ActionArgs struct {
	ActionId uint64
}

func (args *ActionArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.ActionId, err = readActionId(decoder)
	return err
}

func (args *ActionArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(args.ActionId, bin.LE)
}

// RateArgs is used by both CreateRateAccount and UpdateRateAccount.
type RateArgs struct {
	ActionId    uint64
	Rounding    Rounding
	Numerator   uint8
	Denominator uint8
}

func (args *RateArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.ActionId, err = readActionId(decoder)
	if err != nil {
		return err
	}
	rounding, err := readU8(decoder)
	if err != nil {
		return err
	}
	args.Numerator, err = readU8(decoder)
	if err != nil {
		return err
	}
	args.Denominator, err = readU8(decoder)
	if err != nil {
		return err
	}
	args.Rounding, err = RoundingFromByte(rounding)
	if err != nil {
		return sealevel.InstrErrInvalidArgument
	}
	if args.Numerator == 0 || args.Denominator == 0 {
		return sealevel.InstrErrInvalidArgument
	}
	return nil
}

func (args *RateArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(args.ActionId, bin.LE)
	if err != nil {
		return err
	}
	err = encoder.WriteUint8(uint8(args.Rounding))
	if err != nil {
		return err
	}
	err = encoder.WriteUint8(args.Numerator)
	if err != nil {
		return err
	}
	return encoder.WriteUint8(args.Denominator)
}

type ConvertArgs struct {
	ActionId uint64
	Amount   uint64
}

func (args *ConvertArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.ActionId, err = readActionId(decoder)
	if err != nil {
		return err
	}
	args.Amount, err = readAmount(decoder)
	return err
}

func (args *ConvertArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(args.ActionId, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteUint64(args.Amount, bin.LE)
}

type CreateProofArgs struct {
	ActionId uint64
	Data     ProofData
}

func (args *CreateProofArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.ActionId, err = readActionId(decoder)
	if err != nil {
		return err
	}
	args.Data, err = readProof(decoder)
	return err
}

func (args *CreateProofArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(args.ActionId, bin.LE)
	if err != nil {
		return err
	}
	return writeProof(encoder, args.Data)
}

type UpdateProofArgs struct {
	ActionId uint64
	Node     MerkleNode
	Offset   uint32
}

func (args *UpdateProofArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.ActionId, err = readActionId(decoder)
	if err != nil {
		return err
	}
	args.Node, err = readNode(decoder)
	if err != nil {
		return err
	}
	args.Offset, err = readU32(decoder)
	return err
}

func (args *UpdateProofArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(args.ActionId, bin.LE)
	if err != nil {
		return err
	}
	err = encoder.WriteBytes(args.Node[:], false)
	if err != nil {
		return err
	}
	return encoder.WriteUint32(args.Offset, bin.LE)
}

type CreateDistributionEscrowArgs struct {
	ActionId   uint64
	MerkleRoot MerkleNode
}

func (args *CreateDistributionEscrowArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.ActionId, err = readActionId(decoder)
	if err != nil {
		return err
	}
	args.MerkleRoot, err = readNode(decoder)
	return err
}

func (args *CreateDistributionEscrowArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(args.ActionId, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteBytes(args.MerkleRoot[:], false)
}

// ClaimDistributionArgs carries the claimed leaf. MerkleProof is nil when
// the proof is supplied through a proof account instead.
type ClaimDistributionArgs struct {
	ActionId    uint64
	Amount      uint64
	MerkleRoot  MerkleNode
	LeafIndex   uint32
	MerkleProof ProofData
}

func (args *ClaimDistributionArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.ActionId, err = readActionId(decoder)
	if err != nil {
		return err
	}
	args.Amount, err = readAmount(decoder)
	if err != nil {
		return err
	}
	args.MerkleRoot, err = readNode(decoder)
	if err != nil {
		return err
	}
	args.LeafIndex, err = readU32(decoder)
	if err != nil {
		return err
	}
	args.MerkleProof, err = readOptionalProof(decoder)
	return err
}

func (args *ClaimDistributionArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(args.ActionId, bin.LE)
	if err != nil {
		return err
	}
	err = encoder.WriteUint64(args.Amount, bin.LE)
	if err != nil {
		return err
	}
	err = encoder.WriteBytes(args.MerkleRoot[:], false)
	if err != nil {
		return err
	}
	err = encoder.WriteUint32(args.LeafIndex, bin.LE)
	if err != nil {
		return err
	}
	return writeOptionalProof(encoder, args.MerkleProof)
}

type CloseClaimReceiptArgs struct {
	ActionId    uint64
	MerkleProof ProofData
}

func (args *CloseClaimReceiptArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.ActionId, err = readActionId(decoder)
	if err != nil {
		return err
	}
	args.MerkleProof, err = readOptionalProof(decoder)
	return err
}

func (args *CloseClaimReceiptArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(args.ActionId, bin.LE)
	if err != nil {
		return err
	}
	return writeOptionalProof(encoder, args.MerkleProof)
}
