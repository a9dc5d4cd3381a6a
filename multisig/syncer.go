// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package multisig

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/interchain/checkpoint"
	"github.com/luxfi/interchain/utils/wrappers"
)

const CodecVersion = 0

var (
	_ CheckpointSyncer = (*DBSyncer)(nil)

	Codec codec.Manager

	errWrongVersion = errors.New("wrong codec version")

	latestKey        = []byte("latest")
	checkpointPrefix = []byte("checkpoint")
)

func init() {
	Codec = codec.NewManager(math.MaxInt)
	lc := linearcodec.NewDefault()

	err := errors.Join(
		Codec.RegisterCodec(CodecVersion, lc),
	)
	if err != nil {
		panic(err)
	}
}

// SignedCheckpoint is a single validator's attestation as published to its
// checkpoint storage.
type SignedCheckpoint struct {
	Checkpoint checkpoint.Checkpoint `serialize:"true" json:"checkpoint"`
	Signature  []byte                `serialize:"true" json:"signature"`
}

//go:generate go run go.uber.org/mock/mockgen -package=${GOPACKAGE}mock -destination=${GOPACKAGE}mock/checkpoint_syncer.go -mock_names=CheckpointSyncer=CheckpointSyncer . CheckpointSyncer

// CheckpointSyncer reads the checkpoints validators have published.
//
// Missing data is reported with ok == false rather than an error.
type CheckpointSyncer interface {
	// LatestIndex returns the highest index validator has published.
	LatestIndex(ctx context.Context, validator common.Address) (uint32, bool, error)
	// Checkpoint returns the checkpoint validator signed at index.
	Checkpoint(ctx context.Context, validator common.Address, index uint32) (SignedCheckpoint, bool, error)
}

// DBSyncer is a CheckpointSyncer backed by a database. Validators publish
// into it with Put.
type DBSyncer struct {
	db database.Database

	// lock serializes updates to the latest index.
	lock sync.Mutex
}

func NewDBSyncer(db database.Database) *DBSyncer {
	return &DBSyncer{db: db}
}

func (s *DBSyncer) validatorDB(validator common.Address) database.Database {
	return prefixdb.New(validator[:], s.db)
}

func (s *DBSyncer) LatestIndex(_ context.Context, validator common.Address) (uint32, bool, error) {
	return s.latestIndex(s.validatorDB(validator))
}

func (*DBSyncer) latestIndex(db database.Database) (uint32, bool, error) {
	b, err := db.Get(latestKey)
	if errors.Is(err, database.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(b) != wrappers.IntLen {
		return 0, false, fmt.Errorf("corrupted latest index of length %d", len(b))
	}
	return binary.BigEndian.Uint32(b), true, nil
}

func (s *DBSyncer) Checkpoint(_ context.Context, validator common.Address, index uint32) (SignedCheckpoint, bool, error) {
	db := prefixdb.New(checkpointPrefix, s.validatorDB(validator))
	b, err := db.Get(binary.BigEndian.AppendUint32(nil, index))
	if errors.Is(err, database.ErrNotFound) {
		return SignedCheckpoint{}, false, nil
	}
	if err != nil {
		return SignedCheckpoint{}, false, err
	}

	signed := SignedCheckpoint{}
	version, err := Codec.Unmarshal(b, &signed)
	if err != nil {
		return SignedCheckpoint{}, false, err
	}
	if version != CodecVersion {
		return SignedCheckpoint{}, false, fmt.Errorf("%w: %d", errWrongVersion, version)
	}
	return signed, true, nil
}

// Put publishes validator's signed checkpoint and advances its latest index.
func (s *DBSyncer) Put(validator common.Address, signed SignedCheckpoint) error {
	b, err := Codec.Marshal(CodecVersion, &signed)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	validatorDB := s.validatorDB(validator)
	db := prefixdb.New(checkpointPrefix, validatorDB)
	index := signed.Checkpoint.Index
	if err := db.Put(binary.BigEndian.AppendUint32(nil, index), b); err != nil {
		return err
	}

	latest, ok, err := s.latestIndex(validatorDB)
	if err != nil {
		return err
	}
	if ok && latest >= index {
		return nil
	}
	return validatorDB.Put(latestKey, binary.BigEndian.AppendUint32(nil, index))
}
