// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dispute

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"

	"github.com/luxfi/interchain/checkpoint"
	"github.com/luxfi/interchain/dispute/state"
	"github.com/luxfi/interchain/merkle"
)

// Kind identifies the dispute protocol that failed a domain.
type Kind uint32

const (
	Premature Kind = iota
	Fraudulent
	Improper
)

func (k Kind) String() string {
	switch k {
	case Premature:
		return "premature"
	case Fraudulent:
		return "fraudulent"
	case Improper:
		return "improper"
	default:
		return fmt.Sprintf("Kind(%d)", uint32(k))
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "premature":
		*k = Premature
	case "fraudulent":
		*k = Fraudulent
	case "improper":
		*k = Improper
	default:
		return fmt.Errorf("%w: %q", errUnknownKind, s)
	}
	return nil
}

// Event records a successful dispute together with the material that proved
// it. Fields that do not apply to Kind are left zero.
type Event struct {
	ID     ids.ID `serialize:"true" json:"id"`
	Kind   Kind   `serialize:"true" json:"kind"`
	Domain uint32 `serialize:"true" json:"domain"`

	Checkpoint checkpoint.Checkpoint   `serialize:"true" json:"checkpoint"`
	Signatures checkpoint.SignatureSet `serialize:"true" json:"signatures"`

	// Count is the number of leaves the accumulator held when the dispute
	// succeeded.
	Count uint32 `serialize:"true" json:"count"`

	DisputedLeaf  common.Hash       `serialize:"true" json:"disputedLeaf"`
	DisputedProof merkle.Proof      `serialize:"true" json:"disputedProof"`
	CachedLeaf    common.Hash       `serialize:"true" json:"cachedLeaf"`
	CachedProof   merkle.Proof      `serialize:"true" json:"cachedProof"`
	CachedRoot    merkle.CachedRoot `serialize:"true" json:"cachedRoot"`
	DisputedIndex uint32            `serialize:"true" json:"disputedIndex"`

	// Timestamp is the unix time the domain was failed.
	Timestamp int64 `serialize:"true" json:"timestamp"`
}

// initialize assigns the event ID, the hash of the event's encoding with a
// zero ID, and returns the encoding with the ID set.
func (e *Event) initialize() ([]byte, error) {
	e.ID = ids.Empty
	unsigned, err := state.Codec.Marshal(state.CodecVersion, e)
	if err != nil {
		return nil, fmt.Errorf("couldn't marshal event: %w", err)
	}
	e.ID = hash.ComputeHash256Array(unsigned)
	return state.Codec.Marshal(state.CodecVersion, e)
}

// ParseEvent decodes an event written to the audit log.
func ParseEvent(b []byte) (*Event, error) {
	e := &Event{}
	version, err := state.Codec.Unmarshal(b, e)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse event: %w", err)
	}
	if version != state.CodecVersion {
		return nil, fmt.Errorf("%w: %d", state.ErrWrongVersion, version)
	}
	return e, nil
}
