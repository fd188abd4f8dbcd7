package sectoken

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/sectoken/pkg/sealevel"
)

func TestRecord_SizesMatchEncoding(t *testing.T) {
	records := []Record{
		&MintAuthority{Mint: newTestKey(t), MintCreator: newTestKey(t), Bump: 254},
		&VerificationConfig{InstructionDiscriminator: InstrSplit, CpiMode: true, Bump: 1, Programs: []solana.PublicKey{newTestKey(t), newTestKey(t)}},
		&Rate{Rounding: RoundingDown, Numerator: 2, Denominator: 3, Bump: 7},
		&Receipt{Mint: newTestKey(t), ActionId: 42, Bump: 9},
		&ProofAccount{Bump: 3, Nodes: testProof(4)},
	}
	for _, record := range records {
		t.Run(RecordKind(record.Discriminator()), func(t *testing.T) {
			encoded := MarshalRecord(record)
			assert.Len(t, encoded, int(record.Size()))
			assert.Equal(t, record.Discriminator(), encoded[0])

			decoded, err := DecodeRecord(encoded)
			require.NoError(t, err)
			assert.Equal(t, record, decoded)
		})
	}
}

func TestRecord_DiscriminatorMismatch(t *testing.T) {
	encoded := MarshalRecord(&Rate{Rounding: RoundingUp, Numerator: 1, Denominator: 1})
	_, err := UnmarshalReceipt(encoded)
	assert.ErrorIs(t, err, sealevel.InstrErrInvalidAccountData)

	encoded[0] = DiscriminatorClosed
	_, err = DecodeRecord(encoded)
	assert.ErrorIs(t, err, sealevel.InstrErrInvalidAccountData)

	_, err = DecodeRecord(nil)
	assert.ErrorIs(t, err, sealevel.InstrErrUninitializedAccount)
}

func TestRecord_ExactLength(t *testing.T) {
	encoded := MarshalRecord(&Receipt{Mint: newTestKey(t), ActionId: 1})

	_, err := UnmarshalReceipt(encoded[:len(encoded)-1])
	assert.ErrorIs(t, err, sealevel.InstrErrInvalidAccountData)

	_, err = UnmarshalReceipt(append(encoded, 0))
	assert.ErrorIs(t, err, sealevel.InstrErrInvalidAccountData)
}

func TestRecord_ValidatedOnDecode(t *testing.T) {
	rate := MarshalRecord(&Rate{Rounding: RoundingUp, Numerator: 1, Denominator: 1})
	rate[3] = 0
	_, err := UnmarshalRate(rate)
	assert.ErrorIs(t, err, sealevel.InstrErrInvalidAccountData)

	rate[1] = 5
	_, err = UnmarshalRate(rate)
	assert.Error(t, err)

	config := MarshalRecord(&VerificationConfig{Programs: []solana.PublicKey{{}}})
	_, err = UnmarshalVerificationConfig(config)
	assert.ErrorIs(t, err, sealevel.InstrErrInvalidAccountData)

	proof := MarshalRecord(&ProofAccount{Nodes: ProofData{testNode(1), {}}})
	_, err = UnmarshalProofAccount(proof)
	assert.ErrorIs(t, err, sealevel.InstrErrInvalidAccountData)
}

func TestProofAccount_UpdateNodeAt(t *testing.T) {
	proof := &ProofAccount{Nodes: testProof(2)}

	require.NoError(t, proof.UpdateNodeAt(testNode(0xaa), 0))
	assert.Equal(t, testNode(0xaa), proof.Nodes[0])
	assert.Len(t, proof.Nodes, 2)

	require.NoError(t, proof.UpdateNodeAt(testNode(0xbb), 2))
	assert.Len(t, proof.Nodes, 3)
	assert.Equal(t, ProofAccountSize(3), proof.Size())

	assert.ErrorIs(t, proof.UpdateNodeAt(testNode(0xcc), 4), sealevel.InstrErrInvalidArgument)
	assert.Error(t, proof.UpdateNodeAt(MerkleNode{}, 1))
}

func TestProofAccount_MaxLevels(t *testing.T) {
	proof := &ProofAccount{Nodes: testProof(MaxProofLevels)}
	require.NoError(t, proof.Validate())
	assert.Error(t, proof.UpdateNodeAt(testNode(0xee), MaxProofLevels))
}

func TestRecordKind(t *testing.T) {
	assert.Equal(t, "Receipt", RecordKind(DiscriminatorReceipt))
	assert.Equal(t, "Closed", RecordKind(DiscriminatorClosed))
	assert.Equal(t, "Unknown", RecordKind(0x80))
}
