// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/geth/common"
)

// initialRoot is the root of an empty depth 32 tree.
var initialRoot = common.HexToHash("0x27ae5ba08d7291c96c8cbddcc148bf48a6d68c7974b94356f53754ef6171d757")

func newTestTree(t *testing.T, depth int, n int) *Tree {
	tree, err := NewTree(depth)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, index, err := tree.Append([]byte(fmt.Sprintf("message %d", i)))
		require.NoError(t, err)
		require.Equal(t, uint32(i), index)
	}
	return tree
}

func TestNewTreeDepth(t *testing.T) {
	tests := []struct {
		depth       int
		expectedErr error
	}{
		{depth: 0, expectedErr: ErrInvalidDepth},
		{depth: 1},
		{depth: MaxDepth},
		{depth: MaxDepth + 1, expectedErr: ErrInvalidDepth},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("depth %d", test.depth), func(t *testing.T) {
			_, err := NewTree(test.depth)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestEmptyRoot(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, DefaultDepth, 0)
	require.Equal(initialRoot, tree.Root())
	require.Equal(ZeroHash(DefaultDepth), tree.Root())
	require.Equal(
		common.HexToHash("0xad3228b676f7d3cd4284a5443f17f1962b36e491b30a40b2405849e597ba5fb5"),
		ZeroHash(1),
	)
}

func TestRootMatchesRecomputation(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, 8, 0)
	for i := 0; i < 40; i++ {
		_, _, err := tree.Append([]byte{byte(i)})
		require.NoError(err)

		recomputed, err := tree.RootAt(tree.Count())
		require.NoError(err)
		require.Equal(recomputed, tree.Root(), "count %d", tree.Count())
	}
}

func TestProofVerifiesForEveryLeaf(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8, 13} {
		t.Run(fmt.Sprintf("%d leaves", n), func(t *testing.T) {
			require := require.New(t)

			tree := newTestTree(t, DefaultDepth, n)
			root := tree.Root()
			for i := 0; i < n; i++ {
				proof, err := tree.Proof(uint32(i))
				require.NoError(err)
				require.NoError(proof.Validate(DefaultDepth))
				require.True(proof.Verify(root))

				// No root from before leaf i was appended contains it.
				for before := 0; before <= i; before++ {
					old, err := tree.RootAt(uint32(before))
					require.NoError(err)
					require.False(proof.Verify(old))
				}
			}
		})
	}
}

func TestProofAtHistoricalRoot(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, DefaultDepth, 3)
	rootAt3 := tree.Root()

	_, _, err := tree.Append([]byte("later"))
	require.NoError(err)
	require.NotEqual(rootAt3, tree.Root())

	historical, err := tree.RootAt(3)
	require.NoError(err)
	require.Equal(rootAt3, historical)

	proof, err := tree.ProofAt(1, 3)
	require.NoError(err)
	require.True(proof.Verify(rootAt3))
	require.False(proof.Verify(tree.Root()))
}

func TestProofOutOfRange(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, DefaultDepth, 2)
	_, err := tree.Proof(2)
	require.ErrorIs(err, ErrIndexOutOfRange)

	_, err = tree.ProofAt(0, 3)
	require.ErrorIs(err, ErrCountOutOfRange)

	_, err = tree.RootAt(3)
	require.ErrorIs(err, ErrCountOutOfRange)

	_, err = tree.Leaf(2)
	require.ErrorIs(err, ErrIndexOutOfRange)
}

func TestCapacityExceeded(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, 2, 3)
	require.Equal(uint64(3), tree.Capacity())

	root := tree.Root()
	_, _, err := tree.Append([]byte("overflow"))
	require.ErrorIs(err, ErrCapacityExceeded)
	require.Equal(uint32(3), tree.Count())
	require.Equal(root, tree.Root())
}

func TestCacheRoot(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, DefaultDepth, 2)
	_, ok := tree.CachedRoot()
	require.False(ok)

	first := tree.CacheRoot()
	require.Equal(CachedRoot{Root: tree.Root(), Count: 2}, first)

	// Appends do not move the cache.
	_, _, err := tree.Append([]byte("next"))
	require.NoError(err)
	cached, ok := tree.CachedRoot()
	require.True(ok)
	require.Equal(first, cached)

	second := tree.CacheRoot()
	require.Equal(uint32(3), second.Count)
	cached, _ = tree.CachedRoot()
	require.Equal(second, cached)
}

func TestProofValidate(t *testing.T) {
	require := require.New(t)

	tree := newTestTree(t, 4, 5)
	proof, err := tree.Proof(4)
	require.NoError(err)
	require.ErrorIs(proof.Validate(5), ErrInvalidProofLength)

	proof.Index = 16
	require.ErrorIs(proof.Validate(4), ErrProofIndexTooLarge)
	require.False(proof.Verify(tree.Root()))
}
