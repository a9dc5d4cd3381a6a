// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package multisig

import (
	"cmp"
	"context"
	"slices"

	"github.com/luxfi/geth/common"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/interchain/checkpoint"
	"github.com/luxfi/interchain/quorum"
)

// FetchCheckpointInRange returns the checkpoint with the highest index in
// [minIndex, maxIndex] that a quorum of r's validators signed with the same
// root. It returns nil if no such checkpoint has been published yet.
//
// Signatures are returned in registry order.
func FetchCheckpointInRange(
	ctx context.Context,
	syncer CheckpointSyncer,
	r *quorum.Registry,
	v quorum.Verifier,
	minIndex uint32,
	maxIndex uint32,
) (*checkpoint.Signed, error) {
	if minIndex > maxIndex {
		return nil, nil
	}

	validators := r.Validators()
	latest, err := latestIndices(ctx, syncer, validators)
	if err != nil {
		return nil, err
	}
	if len(latest) < r.Threshold() {
		return nil, nil
	}

	// No index above the threshold-th highest latest index can have a quorum.
	slices.SortFunc(latest, func(a, b uint32) int {
		return cmp.Compare(b, a)
	})
	start := min(latest[r.Threshold()-1], maxIndex)
	if start < minIndex {
		return nil, nil
	}

	for index := uint64(start) + 1; index > uint64(minIndex); index-- {
		signed, err := quorumAt(ctx, syncer, r, v, validators, uint32(index-1))
		if err != nil {
			return nil, err
		}
		if signed != nil {
			return signed, nil
		}
	}
	return nil, nil
}

func latestIndices(
	ctx context.Context,
	syncer CheckpointSyncer,
	validators []common.Address,
) ([]uint32, error) {
	var (
		indices = make([]uint32, len(validators))
		found   = make([]bool, len(validators))
	)
	eg, ctx := errgroup.WithContext(ctx)
	for i, vdr := range validators {
		eg.Go(func() error {
			index, ok, err := syncer.LatestIndex(ctx, vdr)
			indices[i], found[i] = index, ok
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	latest := make([]uint32, 0, len(validators))
	for i, ok := range found {
		if ok {
			latest = append(latest, indices[i])
		}
	}
	return latest, nil
}

// quorumAt fetches every validator's checkpoint at index and returns the first
// root, in registry order, that reached quorum.
func quorumAt(
	ctx context.Context,
	syncer CheckpointSyncer,
	r *quorum.Registry,
	v quorum.Verifier,
	validators []common.Address,
	index uint32,
) (*checkpoint.Signed, error) {
	var (
		signed = make([]SignedCheckpoint, len(validators))
		found  = make([]bool, len(validators))
	)
	eg, egCtx := errgroup.WithContext(ctx)
	for i, vdr := range validators {
		eg.Go(func() error {
			s, ok, err := syncer.Checkpoint(egCtx, vdr, index)
			signed[i], found[i] = s, ok
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var (
		roots  []common.Hash
		byRoot = make(map[common.Hash]checkpoint.SignatureSet)
	)
	for i, vdr := range validators {
		if !found[i] {
			continue
		}
		c := signed[i].Checkpoint
		if c.Domain != r.Domain() || c.Index != index {
			continue
		}
		signer, ok := v.Recover(c.Digest(), signed[i].Signature)
		if !ok || signer != vdr {
			continue
		}
		if _, ok := byRoot[c.Root]; !ok {
			roots = append(roots, c.Root)
		}
		byRoot[c.Root] = append(byRoot[c.Root], checkpoint.ValidatorSignature{
			Validator: vdr,
			Signature: signed[i].Signature,
		})
	}

	for _, root := range roots {
		sigs := byRoot[root]
		if len(sigs) < r.Threshold() {
			continue
		}
		c := checkpoint.Checkpoint{
			Domain: r.Domain(),
			Root:   root,
			Index:  index,
		}
		ok, err := quorum.Verify(v, &c, sigs, r)
		if err != nil {
			return nil, err
		}
		if ok {
			return &checkpoint.Signed{
				Checkpoint: c,
				Signatures: sigs,
			}, nil
		}
	}
	return nil, nil
}
