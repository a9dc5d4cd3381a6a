// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package quorum decides whether a checkpoint carries attestations from enough
// distinct registered validators.
package quorum

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/math/set"

	"github.com/luxfi/interchain/checkpoint"
)

var (
	ErrSignaturesNotQuorum = errors.New("signatures do not reach quorum")
	ErrMissingCheckpoint   = errors.New("missing checkpoint")
	ErrMissingRegistry     = errors.New("missing registry")
	ErrMissingVerifier     = errors.New("missing verifier")
)

// Signers returns the distinct registered validators that attested to c.
//
// An attestation is counted only if its signature recovers to a registered
// validator of c's domain and, when the entry names a validator, to that
// validator. Everything else is ignored. Only structurally malformed input
// returns an error.
func Signers(
	v Verifier,
	c *checkpoint.Checkpoint,
	sigs checkpoint.SignatureSet,
	r *Registry,
) (set.Set[common.Address], error) {
	switch {
	case v == nil:
		return nil, ErrMissingVerifier
	case c == nil:
		return nil, ErrMissingCheckpoint
	case r == nil:
		return nil, ErrMissingRegistry
	}

	signers := set.NewSet[common.Address](r.Threshold())
	if c.Domain != r.Domain() {
		return signers, nil
	}

	digest := c.Digest()
	for _, sig := range sigs {
		signer, ok := v.Recover(digest, sig.Signature)
		if !ok {
			continue
		}
		if sig.Validator != (common.Address{}) && sig.Validator != signer {
			continue
		}
		if !r.Contains(signer) {
			continue
		}
		signers.Add(signer)
	}
	return signers, nil
}

// Verify reports whether sigs contain a quorum of r for c.
func Verify(
	v Verifier,
	c *checkpoint.Checkpoint,
	sigs checkpoint.SignatureSet,
	r *Registry,
) (bool, error) {
	signers, err := Signers(v, c, sigs, r)
	if err != nil {
		return false, err
	}
	return signers.Len() >= r.Threshold(), nil
}

// VerifyQuorum is Verify reported as an error. A missing quorum is
// ErrSignaturesNotQuorum.
func VerifyQuorum(
	v Verifier,
	c *checkpoint.Checkpoint,
	sigs checkpoint.SignatureSet,
	r *Registry,
) error {
	signers, err := Signers(v, c, sigs, r)
	if err != nil {
		return err
	}
	if signers.Len() < r.Threshold() {
		return fmt.Errorf(
			"%w: %d of %d required signers for %s",
			ErrSignaturesNotQuorum,
			signers.Len(),
			r.Threshold(),
			c,
		)
	}
	return nil
}
