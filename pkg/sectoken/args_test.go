package sectoken

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/sectoken/pkg/sealevel"
)

func newTestKey(t *testing.T) solana.PublicKey {
	privKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return privKey.PublicKey()
}

func testNode(b byte) MerkleNode {
	var n MerkleNode
	for i := range n {
		n[i] = b
	}
	return n
}

func testProof(n int) ProofData {
	proof := make(ProofData, n)
	for i := range proof {
		proof[i] = testNode(byte(i + 1))
	}
	return proof
}

// argCases returns a well formed encoding for every argument record,
// without the instruction byte, and a fresh value to decode into.
func argCases(t *testing.T) map[string]struct {
	encoded []byte
	decode  func() instructionArgs
} {
	freeze := newTestKey(t)
	type argCase = struct {
		encoded []byte
		decode  func() instructionArgs
	}
	encode := func(args instructionArgs) []byte {
		return EncodeInstruction(0, args)[1:]
	}
	return map[string]argCase{
		"InitializeMint": {
			encode(&InitializeMintArgs{Decimals: 6, MintAuthority: newTestKey(t), FreezeAuthority: &freeze}),
			func() instructionArgs { return new(InitializeMintArgs) },
		},
		"InitializeVerificationConfig": {
			encode(&InitializeVerificationConfigArgs{InstructionDiscriminator: InstrMint, CpiMode: true, Programs: []solana.PublicKey{newTestKey(t)}}),
			func() instructionArgs { return new(InitializeVerificationConfigArgs) },
		},
		"UpdateVerificationConfig": {
			encode(&UpdateVerificationConfigArgs{InstructionDiscriminator: InstrMint, Programs: []solana.PublicKey{newTestKey(t)}, Offset: 1}),
			func() instructionArgs { return new(UpdateVerificationConfigArgs) },
		},
		"TrimVerificationConfig": {
			encode(&TrimVerificationConfigArgs{InstructionDiscriminator: InstrBurn, Size: 1, Close: true}),
			func() instructionArgs { return new(TrimVerificationConfigArgs) },
		},
		"Verify": {
			encode(&VerifyArgs{Ix: InstrTransfer, InstructionData: []byte{1, 2, 3, 4}}),
			func() instructionArgs { return new(VerifyArgs) },
		},
		"Amount": {
			encode(&AmountArgs{Amount: 77}),
			func() instructionArgs { return new(AmountArgs) },
		},
		"Action": {
			encode(&ActionArgs{ActionId: 5}),
			func() instructionArgs { return new(ActionArgs) },
		},
		"Rate": {
			encode(&RateArgs{ActionId: 5, Rounding: RoundingDown, Numerator: 3, Denominator: 2}),
			func() instructionArgs { return new(RateArgs) },
		},
		"Convert": {
			encode(&ConvertArgs{ActionId: 5, Amount: 100}),
			func() instructionArgs { return new(ConvertArgs) },
		},
		"CreateProof": {
			encode(&CreateProofArgs{ActionId: 5, Data: testProof(3)}),
			func() instructionArgs { return new(CreateProofArgs) },
		},
		"UpdateProof": {
			encode(&UpdateProofArgs{ActionId: 5, Node: testNode(9), Offset: 2}),
			func() instructionArgs { return new(UpdateProofArgs) },
		},
		"CreateDistributionEscrow": {
			encode(&CreateDistributionEscrowArgs{ActionId: 5, MerkleRoot: testNode(4)}),
			func() instructionArgs { return new(CreateDistributionEscrowArgs) },
		},
		"ClaimDistributionWithProof": {
			encode(&ClaimDistributionArgs{ActionId: 5, Amount: 10, MerkleRoot: testNode(4), LeafIndex: 1, MerkleProof: testProof(2)}),
			func() instructionArgs { return new(ClaimDistributionArgs) },
		},
		"ClaimDistributionWithoutProof": {
			encode(&ClaimDistributionArgs{ActionId: 5, Amount: 10, MerkleRoot: testNode(4)}),
			func() instructionArgs { return new(ClaimDistributionArgs) },
		},
		"CloseClaimReceipt": {
			encode(&CloseClaimReceiptArgs{ActionId: 5, MerkleProof: testProof(1)}),
			func() instructionArgs { return new(CloseClaimReceiptArgs) },
		},
	}
}

func TestArgs_Roundtrip(t *testing.T) {
	for name, tc := range argCases(t) {
		t.Run(name, func(t *testing.T) {
			args := tc.decode()
			require.NoError(t, DecodeArgs(tc.encoded, args))
			assert.Equal(t, tc.encoded, EncodeInstruction(0, args)[1:])
		})
	}
}

func TestArgs_TruncatedIsMalformed(t *testing.T) {
	for name, tc := range argCases(t) {
		t.Run(name, func(t *testing.T) {
			err := DecodeArgs(tc.encoded[:len(tc.encoded)-1], tc.decode())
			assert.ErrorIs(t, err, sealevel.InstrErrInvalidInstructionData)
		})
	}
}

func TestArgs_TrailingBytesAreMalformed(t *testing.T) {
	for name, tc := range argCases(t) {
		t.Run(name, func(t *testing.T) {
			err := DecodeArgs(append(bytes.Clone(tc.encoded), 0), tc.decode())
			assert.ErrorIs(t, err, sealevel.InstrErrInvalidInstructionData)
		})
	}
}

func TestArgs_SemanticRejects(t *testing.T) {
	le64 := func(v uint64) []byte {
		return binary.LittleEndian.AppendUint64(nil, v)
	}
	zeroNode := MerkleNode{}

	tests := []struct {
		name string
		data []byte
		args instructionArgs
	}{
		{"zero action id", le64(0), new(ActionArgs)},
		{"zero amount", le64(0), new(AmountArgs)},
		{"zero convert amount", append(le64(1), le64(0)...), new(ConvertArgs)},
		{"zero numerator", append(le64(1), 0, 0, 1), new(RateArgs)},
		{"zero denominator", append(le64(1), 0, 1, 0), new(RateArgs)},
		{"rounding tag 3", append(le64(1), 3, 1, 1), new(RateArgs)},
		{"zero root", append(le64(1), zeroNode[:]...), new(CreateDistributionEscrowArgs)},
		{"zero update node", append(append(le64(1), zeroNode[:]...), 0, 0, 0, 0), new(UpdateProofArgs)},
		{"zero proof node", append(append(le64(1), 1, 0, 0, 0), zeroNode[:]...), new(CreateProofArgs)},
		{"empty node list", append(le64(1), 0, 0, 0, 0), new(CreateProofArgs)},
		{"too many nodes", append(le64(1), 33, 0, 0, 0), new(CreateProofArgs)},
		{"decimals above max", append([]byte{MaxDecimals + 1}, make([]byte, 33)...), new(InitializeMintArgs)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, DecodeArgs(tc.data, tc.args), sealevel.InstrErrInvalidArgument)
		})
	}
}

func TestArgs_BoundsCheckedBeforeAllocation(t *testing.T) {
	// count claims 2^32-1 programs with nothing behind it
	data := []byte{InstrMint, 0, 0xff, 0xff, 0xff, 0xff}
	assert.ErrorIs(t, DecodeArgs(data, new(InitializeVerificationConfigArgs)), sealevel.InstrErrInvalidArgument)

	data = []byte{InstrMint, 0xff, 0xff, 0xff, 0xff}
	assert.ErrorIs(t, DecodeArgs(data, new(VerifyArgs)), sealevel.InstrErrInvalidInstructionData)

	programs := make([]solana.PublicKey, MaxVerificationPrograms+1)
	for i := range programs {
		programs[i] = newTestKey(t)
	}
	encoded := EncodeInstruction(0, &InitializeVerificationConfigArgs{InstructionDiscriminator: InstrMint, Programs: programs})[1:]
	assert.ErrorIs(t, DecodeArgs(encoded, new(InitializeVerificationConfigArgs)), sealevel.InstrErrInvalidArgument)
}

func TestArgs_InvalidOptionTag(t *testing.T) {
	encoded := EncodeInstruction(0, &CloseClaimReceiptArgs{ActionId: 1})[1:]
	encoded[len(encoded)-1] = 2
	assert.ErrorIs(t, DecodeArgs(encoded, new(CloseClaimReceiptArgs)), sealevel.InstrErrInvalidInstructionData)
}

func TestVerifyArgs_TargetInstructionData(t *testing.T) {
	args := &VerifyArgs{Ix: InstrBurn, InstructionData: []byte{9, 8}}
	assert.Equal(t, []byte{InstrBurn, 9, 8}, args.TargetInstructionData())
}
