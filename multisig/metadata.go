// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package multisig builds and verifies merkle-root multisig metadata: the
// proof a relayer attaches to a message so the destination can check that a
// quorum of the origin's validators committed to it.
package multisig

import (
	"errors"
	"fmt"
	"math"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"

	"github.com/luxfi/interchain/checkpoint"
	"github.com/luxfi/interchain/merkle"
	"github.com/luxfi/interchain/quorum"
	"github.com/luxfi/interchain/utils/wrappers"
)

// SignatureLen is the size of every signature carried in metadata.
const SignatureLen = crypto.SignatureLength

var (
	ErrMessageIDMismatch   = errors.New("message ID mismatch")
	ErrLeafNotCovered      = errors.New("leaf index beyond checkpoint index")
	ErrWrongOrigin         = errors.New("wrong origin domain")
	ErrTooManySignatures   = errors.New("too many signatures")
	ErrInvalidSignatureLen = errors.New("invalid signature length")
)

// Metadata proves that a quorum signed a checkpoint whose root contains
// MessageID at LeafIndex.
type Metadata struct {
	Origin          uint32        `json:"origin"`
	LeafIndex       uint32        `json:"leafIndex"`
	MessageID       common.Hash   `json:"messageID"`
	Proof           []common.Hash `json:"proof"`
	CheckpointIndex uint32        `json:"checkpointIndex"`
	Signatures      [][]byte      `json:"signatures"`
}

// Size is the length of the encoding returned by Bytes.
func (m *Metadata) Size() int {
	return 3*wrappers.IntLen +
		common.HashLength*(1+len(m.Proof)) +
		wrappers.ShortLen +
		SignatureLen*len(m.Signatures)
}

// Bytes encodes m as
//
//	origin | leafIndex | messageID | proof | checkpointIndex | count | signatures
//
// with big-endian integers and fixed width hashes and signatures.
func (m *Metadata) Bytes() ([]byte, error) {
	if len(m.Signatures) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d", ErrTooManySignatures, len(m.Signatures))
	}
	for i, sig := range m.Signatures {
		if len(sig) != SignatureLen {
			return nil, fmt.Errorf("%w: signature %d has %d bytes", ErrInvalidSignatureLen, i, len(sig))
		}
	}

	size := m.Size()
	p := wrappers.Packer{
		MaxSize: size,
		Bytes:   make([]byte, 0, size),
	}
	p.PackInt(m.Origin)
	p.PackInt(m.LeafIndex)
	p.PackHash(m.MessageID)
	for _, sibling := range m.Proof {
		p.PackHash(sibling)
	}
	p.PackInt(m.CheckpointIndex)
	p.PackShort(uint16(len(m.Signatures)))
	for _, sig := range m.Signatures {
		p.PackFixedBytes(sig)
	}
	return p.Bytes, p.Err
}

// ParseMetadata decodes metadata produced for a tree of the given depth.
func ParseMetadata(b []byte, depth int) (*Metadata, error) {
	if depth < 1 || depth > merkle.MaxDepth {
		return nil, fmt.Errorf("%w: %d", merkle.ErrInvalidDepth, depth)
	}

	p := wrappers.Packer{Bytes: b}
	m := &Metadata{
		Origin:    p.UnpackInt(),
		LeafIndex: p.UnpackInt(),
		MessageID: p.UnpackHash(),
		Proof:     make([]common.Hash, depth),
	}
	for i := range m.Proof {
		m.Proof[i] = p.UnpackHash()
	}
	m.CheckpointIndex = p.UnpackInt()
	count := p.UnpackShort()
	if !p.Errored() {
		m.Signatures = make([][]byte, count)
		for i := range m.Signatures {
			m.Signatures[i] = p.UnpackFixedBytes(SignatureLen)
		}
	}
	p.Done()
	if p.Err != nil {
		return nil, fmt.Errorf("couldn't parse metadata: %w", p.Err)
	}
	return m, nil
}

// Verify checks m on the destination: the proof must place messageID in a
// root that r's quorum signed at CheckpointIndex.
func Verify(m *Metadata, messageID common.Hash, r *quorum.Registry, v quorum.Verifier) error {
	if m.MessageID != messageID {
		return fmt.Errorf("%w: metadata for %s, message %s", ErrMessageIDMismatch, m.MessageID, messageID)
	}
	if m.LeafIndex > m.CheckpointIndex {
		return fmt.Errorf("%w: %d > %d", ErrLeafNotCovered, m.LeafIndex, m.CheckpointIndex)
	}
	if m.Origin != r.Domain() {
		return fmt.Errorf("%w: %d, expected %d", ErrWrongOrigin, m.Origin, r.Domain())
	}

	proof := merkle.Proof{
		Leaf:  messageID,
		Path:  m.Proof,
		Index: m.LeafIndex,
	}
	if err := proof.Validate(len(m.Proof)); err != nil {
		return err
	}
	c := checkpoint.Checkpoint{
		Domain: m.Origin,
		Root:   proof.Root(),
		Index:  m.CheckpointIndex,
	}
	sigs := make(checkpoint.SignatureSet, len(m.Signatures))
	for i, sig := range m.Signatures {
		sigs[i] = checkpoint.ValidatorSignature{Signature: sig}
	}
	return quorum.VerifyQuorum(v, &c, sigs, r)
}
