// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package checkpoint defines the (domain, root, index) claims validators sign
// and the canonical encoding their signatures cover.
package checkpoint

import (
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"

	"github.com/luxfi/interchain/utils/wrappers"
)

// Len is the size of the canonical encoding: domain, root and index.
const Len = wrappers.IntLen + common.HashLength + wrappers.IntLen

// Checkpoint claims that the accumulator of Domain had root Root when it
// contained Index+1 leaves.
type Checkpoint struct {
	Domain uint32      `serialize:"true" json:"domain"`
	Root   common.Hash `serialize:"true" json:"root"`
	Index  uint32      `serialize:"true" json:"index"`
}

// Bytes returns domain || root || index with big-endian integers.
func (c *Checkpoint) Bytes() []byte {
	p := wrappers.Packer{
		MaxSize: Len,
		Bytes:   make([]byte, 0, Len),
	}
	p.PackInt(c.Domain)
	p.PackHash(c.Root)
	p.PackInt(c.Index)
	return p.Bytes
}

// Parse decodes the canonical encoding produced by Bytes.
func Parse(b []byte) (*Checkpoint, error) {
	p := wrappers.Packer{Bytes: b}
	c := &Checkpoint{
		Domain: p.UnpackInt(),
		Root:   p.UnpackHash(),
		Index:  p.UnpackInt(),
	}
	p.Done()
	if p.Err != nil {
		return nil, fmt.Errorf("couldn't parse checkpoint: %w", p.Err)
	}
	return c, nil
}

// Digest is the hash validators sign.
func (c *Checkpoint) Digest() common.Hash {
	return crypto.Keccak256Hash(c.Bytes())
}

// Count is the number of leaves the checkpoint claims exist.
func (c *Checkpoint) Count() uint64 {
	return uint64(c.Index) + 1
}

func (c *Checkpoint) String() string {
	return fmt.Sprintf("Checkpoint(Domain = %d, Root = %s, Index = %d)", c.Domain, c.Root.Hex(), c.Index)
}
