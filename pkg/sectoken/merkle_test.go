package sectoken

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyMerkleProof_ThreeLeaves(t *testing.T) {
	mint := newTestKey(t)
	holders := []solana.PublicKey{newTestKey(t), newTestKey(t), newTestKey(t)}
	leaves := []MerkleNode{
		MerkleLeaf(holders[0], mint, 1, 100),
		MerkleLeaf(holders[1], mint, 1, 200),
		MerkleLeaf(holders[2], mint, 1, 300),
	}
	left := Keccak256(leaves[0][:], leaves[1][:])
	right := Keccak256(leaves[2][:], PaddingNode[:])
	root := Keccak256(left[:], right[:])

	proof := ProofData{leaves[0], right}
	assert.True(t, VerifyMerkleProof(leaves[1], root, proof, 1))
	assert.False(t, VerifyMerkleProof(leaves[1], root, proof, 0))
	assert.False(t, VerifyMerkleProof(leaves[0], root, proof, 1))

	tampered := ProofData{leaves[0], right}
	tampered[1][5] ^= 1
	assert.False(t, VerifyMerkleProof(leaves[1], root, tampered, 1))

	assert.True(t, VerifyMerkleProof(leaves[2], root, ProofData{PaddingNode, left}, 2))
}

func TestVerifyMerkleProof_Bounds(t *testing.T) {
	leaf := testNode(1)
	assert.False(t, VerifyMerkleProof(leaf, leaf, nil, 0))
	assert.False(t, VerifyMerkleProof(leaf, leaf, testProof(MaxProofLevels+1), 0))

	sibling := testNode(2)
	root := Keccak256(leaf[:], sibling[:])
	assert.True(t, VerifyMerkleProof(leaf, root, ProofData{sibling}, 0))
	assert.False(t, VerifyMerkleProof(leaf, root, ProofData{sibling}, 2))
	assert.False(t, VerifyMerkleProof(leaf, Keccak256(leaf[:], make([]byte, 32)), ProofData{{}}, 0))
}

func TestMerkleLeaf_BindsEveryField(t *testing.T) {
	mint, holder := newTestKey(t), newTestKey(t)
	leaf := MerkleLeaf(holder, mint, 1, 100)
	assert.NotEqual(t, leaf, MerkleLeaf(mint, holder, 1, 100))
	assert.NotEqual(t, leaf, MerkleLeaf(holder, mint, 2, 100))
	assert.NotEqual(t, leaf, MerkleLeaf(holder, mint, 1, 101))
}

func TestProofData_Hash(t *testing.T) {
	a := ProofData{testNode(1), testNode(2)}
	b := ProofData{testNode(2), testNode(1)}
	assert.NotEqual(t, a.Hash(), b.Hash())
	assert.Equal(t, Keccak256(a[0][:], a[1][:]), a.Hash())
}

func TestBuildMerkleTree(t *testing.T) {
	mint := newTestKey(t)
	claims := make([]DistributionClaim, 5)
	for i := range claims {
		claims[i] = DistributionClaim{TokenAccount: newTestKey(t), Amount: uint64(i+1) * 10}
	}

	tree, err := BuildMerkleTree(mint, 9, claims, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, tree.Depth())

	for i, claim := range claims {
		proof, err := tree.Proof(uint32(i))
		require.NoError(t, err)
		require.Len(t, proof, 3)

		leaf, err := tree.Leaf(uint32(i))
		require.NoError(t, err)
		assert.Equal(t, MerkleLeaf(claim.TokenAccount, mint, 9, claim.Amount), leaf)
		assert.True(t, VerifyMerkleProof(leaf, tree.Root(), proof, uint32(i)))
	}

	padding, err := tree.Leaf(7)
	require.NoError(t, err)
	assert.Equal(t, PaddingNode, padding)

	_, err = tree.Proof(8)
	assert.ErrorIs(t, err, ErrLeafOutOfRange)

	// same claims on one worker give the same root
	serial, err := BuildMerkleTree(mint, 9, claims, 1)
	require.NoError(t, err)
	assert.Equal(t, tree.Root(), serial.Root())
}

func TestBuildMerkleTree_SingleClaim(t *testing.T) {
	claim := DistributionClaim{TokenAccount: newTestKey(t), Amount: 1}
	tree, err := BuildMerkleTree(newTestKey(t), 1, []DistributionClaim{claim}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Depth())

	proof, err := tree.Proof(0)
	require.NoError(t, err)
	assert.Equal(t, ProofData{PaddingNode}, proof)
}

func TestBuildMerkleTree_Rejects(t *testing.T) {
	_, err := BuildMerkleTree(newTestKey(t), 1, nil, 1)
	assert.ErrorIs(t, err, ErrEmptyDistribution)

	claims := []DistributionClaim{{TokenAccount: newTestKey(t), Amount: 5}, {TokenAccount: newTestKey(t)}}
	_, err = BuildMerkleTree(newTestKey(t), 1, claims, 1)
	assert.ErrorIs(t, err, ErrZeroClaimAmount)
}
