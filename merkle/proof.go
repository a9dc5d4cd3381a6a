// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"
)

var (
	ErrInvalidProofLength = errors.New("invalid proof length")
	ErrProofIndexTooLarge = errors.New("proof index not addressable by path")
)

// Proof is the sibling path from a leaf to a root.
type Proof struct {
	Leaf  common.Hash   `serialize:"true" json:"leaf"`
	Path  []common.Hash `serialize:"true" json:"path"`
	Index uint32        `serialize:"true" json:"index"`
}

// Verify reports whether the proof is well formed and recomputes root.
func (p Proof) Verify(root common.Hash) bool {
	if p.checkIndex() != nil {
		return false
	}
	return p.Root() == root
}

// Root recomputes the root implied by the proof.
func (p Proof) Root() common.Hash {
	return BranchRoot(p.Leaf, p.Path, p.Index)
}

// Validate checks that the proof has exactly depth siblings and that its
// index is addressable by them.
func (p Proof) Validate(depth int) error {
	if len(p.Path) != depth {
		return fmt.Errorf("%w: got %d siblings, want %d", ErrInvalidProofLength, len(p.Path), depth)
	}
	return p.checkIndex()
}

func (p Proof) checkIndex() error {
	if len(p.Path) < MaxDepth && uint64(p.Index)>>len(p.Path) != 0 {
		return fmt.Errorf("%w: index %d with %d siblings", ErrProofIndexTooLarge, p.Index, len(p.Path))
	}
	return nil
}

// BranchRoot folds path into leaf. Bit i of index selects whether path[i] is
// the left (1) or right (0) sibling at height i.
func BranchRoot(leaf common.Hash, path []common.Hash, index uint32) common.Hash {
	current := leaf
	for i, sibling := range path {
		if (index>>i)&1 == 1 {
			current = hashPair(sibling, current)
		} else {
			current = hashPair(current, sibling)
		}
	}
	return current
}
