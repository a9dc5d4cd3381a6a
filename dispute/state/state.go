// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state persists the per-domain accumulator, its cached root, the
// protocol status and the dispute audit log.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/interchain/merkle"
	"github.com/luxfi/interchain/utils/wrappers"
)

var (
	ErrWrongVersion   = errors.New("wrong codec version")
	ErrCorruptedLeaf  = errors.New("corrupted leaf")
	ErrNonContiguous  = errors.New("non contiguous leaves")
	ErrUnknownStatus  = errors.New("unknown status")
	ErrCorruptedCount = errors.New("corrupted event count")

	statusKey     = []byte("status")
	cachedRootKey = []byte("cachedRoot")
	eventCountKey = []byte("numEvents")

	leafPrefix  = []byte("leaf")
	eventPrefix = []byte("event")
)

// Status is the protocol state of a domain.
type Status uint32

const (
	// Active is the initial status. Dispatches and disputes are processed.
	Active Status = iota
	// Failed is terminal. The domain rejects every further mutation.
	Failed
)

func (s Status) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Failed:
		return "FAILED"
	default:
		return fmt.Sprintf("Status(%d)", uint32(s))
	}
}

func (s Status) Valid() error {
	switch s {
	case Active, Failed:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownStatus, uint32(s))
	}
}

type statusRecord struct {
	Status uint32 `serialize:"true"`
}

// Domain is the persisted state of one domain. Every key is namespaced by the
// domain identifier so multiple domains can share a database.
type Domain struct {
	db     database.Database
	leaves database.Database
	events database.Database
}

// New returns the view of domain's state stored in db.
func New(db database.Database, domain uint32) *Domain {
	domainDB := prefixdb.New(domainPrefix(domain), db)
	return &Domain{
		db:     domainDB,
		leaves: prefixdb.New(leafPrefix, domainDB),
		events: prefixdb.New(eventPrefix, domainDB),
	}
}

func domainPrefix(domain uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, domain)
}

func indexKey(index uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, index)
}

// Status returns the domain's status. A domain that was never written is
// Active.
func (d *Domain) Status() (Status, error) {
	b, err := d.db.Get(statusKey)
	if errors.Is(err, database.ErrNotFound) {
		return Active, nil
	}
	if err != nil {
		return Active, err
	}

	record := statusRecord{}
	if err := unmarshal(b, &record); err != nil {
		return Active, err
	}
	status := Status(record.Status)
	return status, status.Valid()
}

func (d *Domain) PutStatus(status Status) error {
	if err := status.Valid(); err != nil {
		return err
	}
	return put(d.db, statusKey, &statusRecord{Status: uint32(status)})
}

// CachedRoot returns the persisted snapshot, if one was ever taken.
func (d *Domain) CachedRoot() (merkle.CachedRoot, bool, error) {
	b, err := d.db.Get(cachedRootKey)
	if errors.Is(err, database.ErrNotFound) {
		return merkle.CachedRoot{}, false, nil
	}
	if err != nil {
		return merkle.CachedRoot{}, false, err
	}

	cached := merkle.CachedRoot{}
	if err := unmarshal(b, &cached); err != nil {
		return merkle.CachedRoot{}, false, err
	}
	return cached, true, nil
}

func (d *Domain) PutCachedRoot(cached merkle.CachedRoot) error {
	return put(d.db, cachedRootKey, &cached)
}

func (d *Domain) PutLeaf(index uint32, leaf common.Hash) error {
	return d.leaves.Put(indexKey(index), leaf[:])
}

// Leaves returns every persisted leaf in index order.
func (d *Domain) Leaves() ([]common.Hash, error) {
	it := d.leaves.NewIterator()
	defer it.Release()

	var leaves []common.Hash
	for it.Next() {
		key := it.Key()
		if len(key) != wrappers.IntLen {
			return nil, fmt.Errorf("%w: key length %d", ErrCorruptedLeaf, len(key))
		}
		if index := binary.BigEndian.Uint32(key); uint64(index) != uint64(len(leaves)) {
			return nil, fmt.Errorf("%w: found %d, expected %d", ErrNonContiguous, index, len(leaves))
		}
		value := it.Value()
		if len(value) != common.HashLength {
			return nil, fmt.Errorf("%w: value length %d", ErrCorruptedLeaf, len(value))
		}
		leaves = append(leaves, common.BytesToHash(value))
	}
	return leaves, it.Error()
}

// Tree rebuilds the domain's accumulator and restores its cached root.
func (d *Domain) Tree(depth int) (*merkle.Tree, error) {
	tree, err := merkle.NewTree(depth)
	if err != nil {
		return nil, err
	}

	leaves, err := d.Leaves()
	if err != nil {
		return nil, err
	}
	for _, leaf := range leaves {
		if _, err := tree.AppendLeaf(leaf); err != nil {
			return nil, err
		}
	}

	cached, ok, err := d.CachedRoot()
	if err != nil {
		return nil, err
	}
	if ok {
		tree.RestoreCachedRoot(cached)
	}
	return tree, nil
}

// AppendEvent stores an encoded event at the end of the audit log.
func (d *Domain) AppendEvent(event []byte) error {
	count, err := d.eventCount()
	if err != nil {
		return err
	}
	if err := d.events.Put(indexKey(count), event); err != nil {
		return err
	}
	return d.db.Put(eventCountKey, indexKey(count+1))
}

// Events returns the encoded audit log in the order it was written.
func (d *Domain) Events() ([][]byte, error) {
	it := d.events.NewIterator()
	defer it.Release()

	var events [][]byte
	for it.Next() {
		events = append(events, append([]byte(nil), it.Value()...))
	}
	return events, it.Error()
}

func (d *Domain) eventCount() (uint32, error) {
	b, err := d.db.Get(eventCountKey)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(b) != wrappers.IntLen {
		return 0, fmt.Errorf("%w: length %d", ErrCorruptedCount, len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

func put(db database.KeyValueWriter, key []byte, v interface{}) error {
	b, err := Codec.Marshal(CodecVersion, v)
	if err != nil {
		return err
	}
	return db.Put(key, b)
}

func unmarshal(b []byte, v interface{}) error {
	version, err := Codec.Unmarshal(b, v)
	if err != nil {
		return err
	}
	if version != CodecVersion {
		return fmt.Errorf("%w: %d", ErrWrongVersion, version)
	}
	return nil
}
