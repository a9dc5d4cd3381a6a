// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package checkpoint

import (
	"fmt"

	"github.com/luxfi/geth/common"
)

// ValidatorSignature is one validator's attestation over a checkpoint digest.
//
// Validator is the identity the submitter claims produced Signature. A zero
// Validator means the identity is taken from signature recovery alone.
type ValidatorSignature struct {
	Validator common.Address `serialize:"true" json:"validator"`
	Signature []byte         `serialize:"true" json:"signature"`
}

// SignatureSet is an unordered collection of attestations. Entries are
// deduplicated by signer identity during quorum checks, never by bytes.
type SignatureSet []ValidatorSignature

// Signed pairs a checkpoint with the attestations gathered for it.
type Signed struct {
	Checkpoint Checkpoint   `serialize:"true" json:"checkpoint"`
	Signatures SignatureSet `serialize:"true" json:"signatures"`
}

// Signer produces attestations over checkpoint digests.
type Signer interface {
	Address() common.Address
	Sign(digest common.Hash) ([]byte, error)
}

// Sign attests to c with every signer.
func Sign(c *Checkpoint, signers ...Signer) (SignatureSet, error) {
	digest := c.Digest()
	sigs := make(SignatureSet, 0, len(signers))
	for _, signer := range signers {
		sig, err := signer.Sign(digest)
		if err != nil {
			return nil, fmt.Errorf("couldn't sign %s with %s: %w", c, signer.Address(), err)
		}
		sigs = append(sigs, ValidatorSignature{
			Validator: signer.Address(),
			Signature: sig,
		})
	}
	return sigs, nil
}
