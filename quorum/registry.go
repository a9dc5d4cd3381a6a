// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package quorum

import (
	"errors"
	"fmt"
	"slices"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/math/set"
)

var (
	ErrEmptyValidatorSet  = errors.New("validator set is empty")
	ErrInvalidThreshold   = errors.New("invalid threshold")
	ErrDuplicateValidator = errors.New("duplicate validator")
	ErrZeroValidator      = errors.New("zero validator address")
)

// Registry is the immutable set of validators trusted to attest to a
// domain's checkpoints, together with the number of distinct attestations
// required.
//
// Membership changes are modeled by building a new Registry.
type Registry struct {
	domain     uint32
	validators []common.Address
	members    set.Set[common.Address]
	threshold  int
}

// NewRegistry validates the configuration and returns a registry for domain.
func NewRegistry(domain uint32, validators []common.Address, threshold int) (*Registry, error) {
	if len(validators) == 0 {
		return nil, fmt.Errorf("%w: domain %d", ErrEmptyValidatorSet, domain)
	}
	if threshold < 1 || threshold > len(validators) {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidThreshold, threshold, len(validators))
	}

	members := set.NewSet[common.Address](len(validators))
	for _, vdr := range validators {
		if vdr == (common.Address{}) {
			return nil, fmt.Errorf("%w: domain %d", ErrZeroValidator, domain)
		}
		if members.Contains(vdr) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateValidator, vdr)
		}
		members.Add(vdr)
	}

	return &Registry{
		domain:     domain,
		validators: slices.Clone(validators),
		members:    members,
		threshold:  threshold,
	}, nil
}

// Domain is the domain whose checkpoints the validators attest to.
func (r *Registry) Domain() uint32 {
	return r.domain
}

// Threshold is the number of distinct validators required for a quorum.
func (r *Registry) Threshold() int {
	return r.threshold
}

// Len is the number of registered validators.
func (r *Registry) Len() int {
	return len(r.validators)
}

// Contains reports whether addr is a registered validator.
func (r *Registry) Contains(addr common.Address) bool {
	return r.members.Contains(addr)
}

// Validators returns the validators in configuration order.
func (r *Registry) Validators() []common.Address {
	return slices.Clone(r.validators)
}
