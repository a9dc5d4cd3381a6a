// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fraud decides whether two merkle proofs against different roots
// commit to trees whose leaf prefixes disagree.
package fraud

import (
	"github.com/luxfi/geth/common"

	"github.com/luxfi/interchain/merkle"
)

// ImpliesDifferingLeaf reports whether proving leafA with proofA and leafB with
// proofB shows that the two underlying trees hold a different leaf somewhere
// in the prefix both proofs commit to. The differing leaf is not necessarily
// the one at disputedIndex; disputedIndex only bounds which proofs qualify.
//
// The leaves passed in are the ones being proven; the Leaf fields of the
// proofs are ignored. The result is false whenever disputedIndex is beyond
// the smaller of the two proof indices.
//
// Within that range the proofs must carry evidence of disagreement: either
// they prove different leaves at the same index, or at some height both
// indices descend from the same node and the left siblings at that height
// differ. A left sibling commits to every leaf before the proven index, so
// its mismatch shows the prefixes of the two trees are not equal.
//
// The subtree where two different indices split is not compared. Its left
// half may extend past the smaller index, and a proof alone does not say
// whether those slots were filled when its root was taken.
func ImpliesDifferingLeaf(
	leafA common.Hash,
	proofA merkle.Proof,
	leafB common.Hash,
	proofB merkle.Proof,
	disputedIndex uint32,
) bool {
	if disputedIndex > min(proofA.Index, proofB.Index) {
		return false
	}
	_, ok := Divergence(leafA, proofA, leafB, proofB)
	return ok
}

// Divergence returns the lowest height at which proofA and proofB carry
// conflicting commitments to the same prefix of leaves. Height 0 means the
// proofs disagree on the proven leaf itself.
func Divergence(
	leafA common.Hash,
	proofA merkle.Proof,
	leafB common.Hash,
	proofB merkle.Proof,
) (int, bool) {
	if len(proofA.Path) != len(proofB.Path) {
		return 0, false
	}
	if proofA.Index == proofB.Index && leafA != leafB {
		return 0, true
	}

	iA, iB := uint64(proofA.Index), uint64(proofB.Index)
	for height := range proofA.Path {
		if iA>>(height+1) != iB>>(height+1) {
			continue
		}
		leftA := (iA>>height)&1 == 1
		leftB := (iB>>height)&1 == 1
		if leftA && leftB && proofA.Path[height] != proofB.Path[height] {
			return height + 1, true
		}
	}
	return 0, false
}
