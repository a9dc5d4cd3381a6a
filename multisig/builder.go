// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package multisig

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/interchain/merkle"
	"github.com/luxfi/interchain/quorum"
)

var ErrRootMismatch = errors.New("quorum root does not match local accumulator")

// Accumulator is the origin's message tree as seen by the relayer.
type Accumulator interface {
	Count(domain uint32) (uint32, error)
	ProofAt(domain uint32, index uint32, count uint32) (merkle.Proof, error)
}

// Builder assembles metadata for messages dispatched on one origin domain.
type Builder struct {
	log         log.Logger
	syncer      CheckpointSyncer
	registry    *quorum.Registry
	verifier    quorum.Verifier
	accumulator Accumulator
}

func NewBuilder(
	log log.Logger,
	syncer CheckpointSyncer,
	registry *quorum.Registry,
	verifier quorum.Verifier,
	accumulator Accumulator,
) *Builder {
	return &Builder{
		log:         log,
		syncer:      syncer,
		registry:    registry,
		verifier:    verifier,
		accumulator: accumulator,
	}
}

// Build returns the metadata proving messageID at leafIndex, or nil if no
// quorum checkpoint covers the leaf yet. A nil result is not an error; the
// caller should retry once validators have signed further.
func (b *Builder) Build(ctx context.Context, messageID common.Hash, leafIndex uint32) (*Metadata, error) {
	origin := b.registry.Domain()
	count, err := b.accumulator.Count(origin)
	if err != nil {
		return nil, err
	}
	if leafIndex >= count {
		b.log.Debug("message not yet in accumulator",
			log.Uint32("origin", origin),
			log.Uint32("leafIndex", leafIndex),
			log.Uint32("count", count),
		)
		return nil, nil
	}

	signed, err := FetchCheckpointInRange(ctx, b.syncer, b.registry, b.verifier, leafIndex, count-1)
	if err != nil {
		return nil, fmt.Errorf("couldn't fetch checkpoint for leaf %d: %w", leafIndex, err)
	}
	if signed == nil {
		b.log.Debug("no quorum checkpoint in range",
			log.Uint32("origin", origin),
			log.Uint32("leafIndex", leafIndex),
			log.Uint32("highestLeafIndex", count-1),
		)
		return nil, nil
	}

	c := signed.Checkpoint
	proof, err := b.accumulator.ProofAt(origin, leafIndex, c.Index+1)
	if err != nil {
		return nil, err
	}
	if proof.Leaf != messageID {
		return nil, fmt.Errorf("%w: leaf %d is %s, not %s", ErrMessageIDMismatch, leafIndex, proof.Leaf, messageID)
	}
	if root := proof.Root(); root != c.Root {
		b.log.Warn("validators signed a root the accumulator never had",
			log.Stringer("checkpoint", &c),
			log.Stringer("localRoot", root),
		)
		return nil, fmt.Errorf("%w: %s", ErrRootMismatch, &c)
	}

	sigs := make([][]byte, len(signed.Signatures))
	for i, sig := range signed.Signatures {
		sigs[i] = sig.Signature
	}
	return &Metadata{
		Origin:          origin,
		LeafIndex:       leafIndex,
		MessageID:       messageID,
		Proof:           proof.Path,
		CheckpointIndex: c.Index,
		Signatures:      sigs,
	}, nil
}
