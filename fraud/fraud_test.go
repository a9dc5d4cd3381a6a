// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fraud

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/interchain/merkle"
)

const testDepth = 8

func buildTree(t *testing.T, bodies ...string) *merkle.Tree {
	tree, err := merkle.NewTree(testDepth)
	require.NoError(t, err)
	for _, body := range bodies {
		_, _, err := tree.Append([]byte(body))
		require.NoError(t, err)
	}
	return tree
}

func proof(t *testing.T, tree *merkle.Tree, index uint32) merkle.Proof {
	p, err := tree.Proof(index)
	require.NoError(t, err)
	return p
}

func TestImpliesDifferingLeaf(t *testing.T) {
	canonical := buildTree(t, "m0", "m1", "m2", "m3", "m4")
	forged := buildTree(t, "m0", "m1", "m2", "fraud", "m4")
	forgedTail := buildTree(t, "m0", "m1", "m2", "m3", "fraud")
	forgedHead := buildTree(t, "fraud", "m1", "m2", "m3", "m4")

	tests := []struct {
		name          string
		treeA         *merkle.Tree
		indexA        uint32
		treeB         *merkle.Tree
		indexB        uint32
		disputedIndex uint32
		expected      bool
	}{
		{
			name:          "same index differing leaves",
			treeA:         forgedTail,
			indexA:        4,
			treeB:         canonical,
			indexB:        4,
			disputedIndex: 4,
			expected:      true,
		},
		{
			name:          "disputed index beyond shorter proof",
			treeA:         forgedTail,
			indexA:        4,
			treeB:         canonical,
			indexB:        3,
			disputedIndex: 4,
			expected:      false,
		},
		{
			name:          "earlier index implied by later proofs",
			treeA:         forged,
			indexA:        4,
			treeB:         canonical,
			indexB:        4,
			disputedIndex: 3,
			expected:      true,
		},
		{
			name:          "divergent prefix covers first leaf",
			treeA:         forgedHead,
			indexA:        4,
			treeB:         canonical,
			indexB:        4,
			disputedIndex: 0,
			expected:      true,
		},
		{
			name:          "differing leaf at index beyond dispute",
			treeA:         forgedTail,
			indexA:        4,
			treeB:         canonical,
			indexB:        4,
			disputedIndex: 3,
			expected:      true,
		},
		{
			name:          "disputed index far beyond both proofs",
			treeA:         forged,
			indexA:        4,
			treeB:         canonical,
			indexB:        4,
			disputedIndex: 100,
			expected:      false,
		},
		{
			name:          "identical trees",
			treeA:         canonical,
			indexA:        4,
			treeB:         buildTree(t, "m0", "m1", "m2", "m3", "m4"),
			indexB:        4,
			disputedIndex: 2,
			expected:      false,
		},
		{
			name:          "divergence only after both proven leaves",
			treeA:         forgedTail,
			indexA:        2,
			treeB:         canonical,
			indexB:        2,
			disputedIndex: 2,
			expected:      false,
		},
		{
			name:          "proofs for different indices sharing a left subtree",
			treeA:         forged,
			indexA:        4,
			treeB:         canonical,
			indexB:        4,
			disputedIndex: 1,
			expected:      true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			proofA := proof(t, test.treeA, test.indexA)
			proofB := proof(t, test.treeB, test.indexB)
			got := ImpliesDifferingLeaf(proofA.Leaf, proofA, proofB.Leaf, proofB, test.disputedIndex)
			require.Equal(t, test.expected, got)
		})
	}
}

func TestImpliesDifferingLeafDifferentIndices(t *testing.T) {
	require := require.New(t)

	canonical := buildTree(t, "m0", "m1", "m2", "m3", "m4", "m5", "m6")
	forged := buildTree(t, "m0", "fraud", "m2", "m3", "m4", "m5", "m6")

	// Leaves 5 and 6 both sit under the subtree rooted at height 2 covering
	// leaves 4 through 7, and share the left sibling covering 0 through 3.
	proofA := proof(t, forged, 6)
	proofB := proof(t, canonical, 5)
	require.True(ImpliesDifferingLeaf(proofA.Leaf, proofA, proofB.Leaf, proofB, 1))
	require.True(ImpliesDifferingLeaf(proofA.Leaf, proofA, proofB.Leaf, proofB, 5))
	require.False(ImpliesDifferingLeaf(proofA.Leaf, proofA, proofB.Leaf, proofB, 6))

	height, ok := Divergence(proofA.Leaf, proofA, proofB.Leaf, proofB)
	require.True(ok)
	require.Equal(3, height)
}

func TestImpliesDifferingLeafMalformedProofs(t *testing.T) {
	require := require.New(t)

	canonical := buildTree(t, "m0", "m1", "m2", "m3", "m4")
	forged := buildTree(t, "m0", "m1", "m2", "fraud", "m4")

	proofA := proof(t, forged, 4)
	proofB := proof(t, canonical, 4)
	proofB.Path = proofB.Path[:testDepth-1]
	require.False(ImpliesDifferingLeaf(proofA.Leaf, proofA, proofB.Leaf, proofB, 3))

	// The explicit leaves are authoritative over the proofs' Leaf fields.
	proofA = proof(t, canonical, 4)
	proofB = proof(t, canonical, 4)
	require.True(ImpliesDifferingLeaf(common.HexToHash("0x01"), proofA, proofB.Leaf, proofB, 4))
	require.False(ImpliesDifferingLeaf(proofB.Leaf, proofA, proofB.Leaf, proofB, 4))
}

func TestImpliesDifferingLeafIgnoresSplitSubtree(t *testing.T) {
	require := require.New(t)

	// An older snapshot of the same log: leaf 3 is still empty.
	snapshot := buildTree(t, "m0", "m1", "m2")
	current := buildTree(t, "m0", "m1", "m2", "m3", "m4")

	// The indices split at height 2, where current commits to leaves 0
	// through 3 and snapshot commits to the same range with an empty slot.
	proofA := proof(t, current, 4)
	proofB := proof(t, snapshot, 2)
	require.NotEqual(
		proofA.Path[2],
		merkle.BranchRoot(proofB.Leaf, proofB.Path[:2], proofB.Index),
	)
	require.False(ImpliesDifferingLeaf(proofA.Leaf, proofA, proofB.Leaf, proofB, 2))

	_, ok := Divergence(proofA.Leaf, proofA, proofB.Leaf, proofB)
	require.False(ok)
}
