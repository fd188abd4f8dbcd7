package sectoken

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/panjf2000/ants/v2"
)

var (
	ErrEmptyDistribution = errors.New("distribution has no claims")
	ErrZeroClaimAmount   = errors.New("claim amount is zero")
	ErrLeafOutOfRange    = errors.New("leaf index out of range")
)

// PaddingNode fills the unused leaves of a tree whose size is not a power
// of two. It is keccak256 of the empty string, so it is never all zero.
var PaddingNode = Keccak256()

// DistributionClaim is one eligible holder in a distribution.
type DistributionClaim struct {
	TokenAccount solana.PublicKey
	Amount       uint64
}

// MerkleTree is a complete binary tree over the claim leaves, built off
// ledger to produce the root stored in the escrow authority and the proofs
// holders submit.
type MerkleTree struct {
	levels [][]MerkleNode
}

// BuildMerkleTree hashes the claim leaves on a pool of workers goroutines
// and folds them into a tree. The leaf order is the claim order.
func BuildMerkleTree(mint solana.PublicKey, actionId uint64, claims []DistributionClaim, workers int) (*MerkleTree, error) {
	if len(claims) == 0 {
		return nil, ErrEmptyDistribution
	}
	for i, claim := range claims {
		if claim.Amount == 0 {
			return nil, fmt.Errorf("claim %d (%s): %w", i, claim.TokenAccount, ErrZeroClaimAmount)
		}
	}
	if workers <= 0 {
		workers = 1
	}

	depth := bits.Len(uint(len(claims) - 1))
	if depth == 0 {
		depth = 1
	}
	if depth > MaxProofLevels {
		return nil, fmt.Errorf("%d claims need %d levels, max is %d", len(claims), depth, MaxProofLevels)
	}

	leaves := make([]MerkleNode, 1<<depth)
	for i := len(claims); i < len(leaves); i++ {
		leaves[i] = PaddingNode
	}

	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(workers, func(i interface{}) {
		defer wg.Done()
		idx := i.(int)
		leaves[idx] = MerkleLeaf(claims[idx].TokenAccount, mint, actionId, claims[idx].Amount)
	})
	if err != nil {
		return nil, fmt.Errorf("creating leaf hashing pool: %w", err)
	}
	defer pool.Release()

	for idx := range claims {
		wg.Add(1)
		err = pool.Invoke(idx)
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("hashing leaf %d: %w", idx, err)
		}
	}
	wg.Wait()

	levels := [][]MerkleNode{leaves}
	for level := leaves; len(level) > 1; {
		parent := make([]MerkleNode, len(level)/2)
		for i := range parent {
			parent[i] = Keccak256(level[2*i][:], level[2*i+1][:])
		}
		levels = append(levels, parent)
		level = parent
	}
	return &MerkleTree{levels: levels}, nil
}

func (t *MerkleTree) Root() MerkleNode {
	return t.levels[len(t.levels)-1][0]
}

func (t *MerkleTree) Depth() int {
	return len(t.levels) - 1
}

func (t *MerkleTree) Leaf(index uint32) (MerkleNode, error) {
	if int(index) >= len(t.levels[0]) {
		return MerkleNode{}, ErrLeafOutOfRange
	}
	return t.levels[0][index], nil
}

// Proof returns the sibling path for the leaf at index, bottom up.
func (t *MerkleTree) Proof(index uint32) (ProofData, error) {
	if int(index) >= len(t.levels[0]) {
		return nil, ErrLeafOutOfRange
	}
	proof := make(ProofData, 0, t.Depth())
	pos := int(index)
	for _, level := range t.levels[:len(t.levels)-1] {
		proof = append(proof, level[pos^1])
		pos >>= 1
	}
	return proof, nil
}
