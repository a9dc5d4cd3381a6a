// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package merkle implements the append-only message accumulator that
// checkpoints commit to.
//
// The tree has a fixed depth. Appends update the left edge ("branch") of the
// tree so the current root is available in O(depth). Every leaf is retained so
// that inclusion proofs can be produced against the current root or against
// any historical root of a prefix of the leaves.
package merkle

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
)

const (
	// MaxDepth is the deepest supported tree. Leaf indices are uint32 so a
	// deeper tree could not be fully addressed.
	MaxDepth = 32

	// DefaultDepth matches the depth used by the source chain outboxes.
	DefaultDepth = MaxDepth
)

var (
	ErrInvalidDepth     = errors.New("invalid tree depth")
	ErrCapacityExceeded = errors.New("merkle tree is full")
	ErrIndexOutOfRange  = errors.New("leaf index out of range")
	ErrCountOutOfRange  = errors.New("leaf count out of range")

	// zeroHashes[i] is the root of an empty subtree of height i.
	zeroHashes [MaxDepth + 1]common.Hash
)

func init() {
	for i := 0; i < MaxDepth; i++ {
		zeroHashes[i+1] = hashPair(zeroHashes[i], zeroHashes[i])
	}
}

// ZeroHash returns the root of an empty subtree of the given height.
func ZeroHash(height int) common.Hash {
	return zeroHashes[height]
}

// MessageHash is the leaf committed for a dispatched message body.
func MessageHash(body []byte) common.Hash {
	return crypto.Keccak256Hash(body)
}

func hashPair(left, right common.Hash) common.Hash {
	return crypto.Keccak256Hash(left[:], right[:])
}

// CachedRoot is an explicit snapshot of a tree's root and leaf count.
type CachedRoot struct {
	Root  common.Hash `serialize:"true" json:"root"`
	Count uint32      `serialize:"true" json:"count"`
}

// Tree is an incremental merkle tree.
//
// Tree is not safe for concurrent mutation. Callers serialize appends and
// cache operations; read-only methods may be used concurrently with each
// other.
type Tree struct {
	depth  int
	branch []common.Hash
	leaves []common.Hash

	cached    CachedRoot
	hasCached bool
}

// NewTree returns an empty tree of the given depth.
func NewTree(depth int) (*Tree, error) {
	if depth < 1 || depth > MaxDepth {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidDepth, depth, MaxDepth)
	}
	return &Tree{
		depth:  depth,
		branch: make([]common.Hash, depth),
	}, nil
}

// Depth returns the number of levels between a leaf and the root.
func (t *Tree) Depth() int {
	return t.depth
}

// Capacity returns the maximum number of leaves, 2^depth - 1.
func (t *Tree) Capacity() uint64 {
	return uint64(1)<<t.depth - 1
}

// Count returns the number of appended leaves.
func (t *Tree) Count() uint32 {
	return uint32(len(t.leaves))
}

// Append hashes body and inserts it as the next leaf.
func (t *Tree) Append(body []byte) (common.Hash, uint32, error) {
	leaf := MessageHash(body)
	index, err := t.AppendLeaf(leaf)
	return leaf, index, err
}

// AppendLeaf inserts an already hashed leaf and returns its index.
func (t *Tree) AppendLeaf(leaf common.Hash) (uint32, error) {
	index := uint64(len(t.leaves))
	if index >= t.Capacity() {
		return 0, fmt.Errorf("%w: capacity %d", ErrCapacityExceeded, t.Capacity())
	}

	t.leaves = append(t.leaves, leaf)

	size := index + 1
	node := leaf
	for i := 0; i < t.depth; i++ {
		if size&1 == 1 {
			t.branch[i] = node
			break
		}
		node = hashPair(t.branch[i], node)
		size >>= 1
	}
	return uint32(index), nil
}

// Leaf returns the leaf at index.
func (t *Tree) Leaf(index uint32) (common.Hash, error) {
	if uint64(index) >= uint64(len(t.leaves)) {
		return common.Hash{}, fmt.Errorf("%w: %d >= count %d", ErrIndexOutOfRange, index, len(t.leaves))
	}
	return t.leaves[index], nil
}

// Root returns the root over every leaf appended so far.
func (t *Tree) Root() common.Hash {
	var (
		count   = uint64(len(t.leaves))
		current common.Hash
	)
	for i := 0; i < t.depth; i++ {
		if (count>>i)&1 == 1 {
			current = hashPair(t.branch[i], current)
		} else {
			current = hashPair(current, zeroHashes[i])
		}
	}
	return current
}

// RootAt returns the root the tree had when it held exactly count leaves.
func (t *Tree) RootAt(count uint32) (common.Hash, error) {
	if uint64(count) > uint64(len(t.leaves)) {
		return common.Hash{}, fmt.Errorf("%w: %d > count %d", ErrCountOutOfRange, count, len(t.leaves))
	}
	return t.subtreeRoot(t.depth, 0, uint64(count)), nil
}

// Proof returns the inclusion proof of the leaf at index against Root.
func (t *Tree) Proof(index uint32) (Proof, error) {
	return t.ProofAt(index, t.Count())
}

// ProofAt returns the inclusion proof of the leaf at index against the root
// of the first count leaves.
func (t *Tree) ProofAt(index uint32, count uint32) (Proof, error) {
	if uint64(count) > uint64(len(t.leaves)) {
		return Proof{}, fmt.Errorf("%w: %d > count %d", ErrCountOutOfRange, count, len(t.leaves))
	}
	if index >= count {
		return Proof{}, fmt.Errorf("%w: %d >= count %d", ErrIndexOutOfRange, index, count)
	}

	path := make([]common.Hash, t.depth)
	for height := 0; height < t.depth; height++ {
		sibling := ((uint64(index) >> height) ^ 1) << height
		path[height] = t.subtreeRoot(height, sibling, uint64(count))
	}
	return Proof{
		Leaf:  t.leaves[index],
		Path:  path,
		Index: index,
	}, nil
}

// CacheRoot snapshots the current root and count, replacing any previous
// snapshot.
func (t *Tree) CacheRoot() CachedRoot {
	t.cached = CachedRoot{
		Root:  t.Root(),
		Count: t.Count(),
	}
	t.hasCached = true
	return t.cached
}

// CachedRoot returns the last snapshot taken by CacheRoot.
func (t *Tree) CachedRoot() (CachedRoot, bool) {
	return t.cached, t.hasCached
}

// RestoreCachedRoot reinstates a snapshot loaded from storage.
func (t *Tree) RestoreCachedRoot(c CachedRoot) {
	t.cached = c
	t.hasCached = true
}

// subtreeRoot returns the root of the subtree of the given height whose
// leftmost leaf is at offset, treating leaves at or beyond count as empty.
func (t *Tree) subtreeRoot(height int, offset uint64, count uint64) common.Hash {
	if offset >= count {
		return zeroHashes[height]
	}
	if height == 0 {
		return t.leaves[offset]
	}
	half := uint64(1) << (height - 1)
	return hashPair(
		t.subtreeRoot(height-1, offset, count),
		t.subtreeRoot(height-1, offset+half, count),
	)
}
