package sectoken

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/crypto/sha3"
)

const (
	MerkleNodeLen = 32
	// MaxProofLevels bounds a proof to trees of at most 2^32 leaves.
	MaxProofLevels = 32
)

type MerkleNode [MerkleNodeLen]byte

func (n MerkleNode) IsZero() bool {
	return n == MerkleNode{}
}

func (n MerkleNode) String() string {
	return solana.PublicKeyFromBytes(n[:]).String()
}

type ProofData []MerkleNode

// Keccak256 hashes the concatenation of parts.
func Keccak256(parts ...[]byte) MerkleNode {
	var out MerkleNode
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	h.Sum(out[:0])
	return out
}

// Hash returns the digest of all nodes in order. It keys claim receipts so
// that each distinct proof maps to its own receipt address.
func (p ProofData) Hash() MerkleNode {
	parts := make([][]byte, len(p))
	for i := range p {
		parts[i] = p[i][:]
	}
	return Keccak256(parts...)
}

// MerkleLeaf is the leaf committed for one eligible token account.
func MerkleLeaf(tokenAccount solana.PublicKey, mint solana.PublicKey, actionId uint64, amount uint64) MerkleNode {
	var actionBytes, amountBytes [8]byte
	binary.LittleEndian.PutUint64(actionBytes[:], actionId)
	binary.LittleEndian.PutUint64(amountBytes[:], amount)
	return Keccak256(tokenAccount[:], mint[:], actionBytes[:], amountBytes[:])
}

// VerifyMerkleProof walks proof from leaf towards the root. Bit i of
// leafIndex is 0 when the running hash is the left child at level i.
func VerifyMerkleProof(leaf MerkleNode, root MerkleNode, proof ProofData, leafIndex uint32) bool {
	if len(proof) == 0 || len(proof) > MaxProofLevels {
		return false
	}
	if uint64(leafIndex) >= uint64(1)<<len(proof) {
		return false
	}

	hash := leaf
	for i, sibling := range proof {
		if sibling.IsZero() {
			return false
		}
		if (leafIndex>>i)&1 == 0 {
			hash = Keccak256(hash[:], sibling[:])
		} else {
			hash = Keccak256(sibling[:], hash[:])
		}
	}
	return hash == root
}
