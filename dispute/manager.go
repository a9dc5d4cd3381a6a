// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dispute tracks the accumulator of every registered domain and runs
// the protocols that move a domain from ACTIVE to FAILED: premature,
// fraudulent and improper checkpoints.
package dispute

import (
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/cache"
	"github.com/luxfi/cache/lru"
	"github.com/luxfi/database"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/luxfi/pubsub"

	"github.com/luxfi/interchain/checkpoint"
	"github.com/luxfi/interchain/dispute/state"
	"github.com/luxfi/interchain/fraud"
	"github.com/luxfi/interchain/merkle"
	"github.com/luxfi/interchain/quorum"
	"github.com/luxfi/interchain/utils/timer/mockable"
)

const defaultCacheSize = 16

var (
	ErrDomainFailed                 = errors.New("domain failed")
	ErrUnknownDomain                = errors.New("unknown domain")
	ErrDuplicateDomain              = errors.New("duplicate domain")
	ErrCheckpointNotPremature       = errors.New("checkpoint not premature")
	ErrCheckpointNotImproper        = errors.New("checkpoint not improper")
	ErrSignedRootNotFraudulent      = errors.New("signed root not fraudulent")
	ErrSignedIndexNotFraudulent     = errors.New("signed index not fraudulent")
	ErrCachedRootDoesNotContainLeaf = errors.New("cached root does not contain leaf")
	ErrFraudNotProven               = errors.New("fraud not proven")

	// ErrSignaturesNotQuorum is returned when a disputed checkpoint was not
	// signed by a quorum of its domain's validators.
	ErrSignaturesNotQuorum = quorum.ErrSignaturesNotQuorum

	errMissingDatabase = errors.New("missing database")
	errMissingVerifier = errors.New("missing verifier")
	errNilRegistry     = errors.New("nil registry")
	errUnknownKind     = errors.New("unknown dispute kind")
)

// Config configures a Manager. Log, Metrics, Clock and PubSub are optional.
// CacheSize is the number of domain accumulators kept in memory.
type Config struct {
	Log        log.Logger
	DB         database.Database
	Registries []*quorum.Registry
	Verifier   quorum.Verifier

	TreeDepth int
	CacheSize int

	Metrics metric.Registerer
	Clock   *mockable.Clock
	PubSub  *pubsub.Server
}

// FraudProof is the proof material of a fraudulent checkpoint dispute.
//
// DisputedProof proves DisputedLeaf against the signed root. CachedProof
// proves CachedLeaf against the domain's cached root.
type FraudProof struct {
	DisputedLeaf  common.Hash  `json:"disputedLeaf"`
	DisputedProof merkle.Proof `json:"disputedProof"`
	CachedLeaf    common.Hash  `json:"cachedLeaf"`
	CachedProof   merkle.Proof `json:"cachedProof"`
	DisputedIndex uint32       `json:"disputedIndex"`
}

// Manager owns the accumulator and protocol status of every registered
// domain.
//
// Mutations are serialized. Reads may run concurrently with each other and
// observe only committed state.
type Manager struct {
	log        log.Logger
	db         database.Database
	registries map[uint32]*quorum.Registry
	verifier   quorum.Verifier
	depth      int
	clock      *mockable.Clock
	pubsub     *pubsub.Server
	metrics    *metrics

	lock sync.RWMutex
	// Caches domain -> accumulator. Entries are dropped when a commit
	// fails so they are rebuilt from the database.
	trees cache.Cacher[uint32, *merkle.Tree]
}

func NewManager(config Config) (*Manager, error) {
	if config.DB == nil {
		return nil, errMissingDatabase
	}
	if config.Verifier == nil {
		return nil, errMissingVerifier
	}
	if config.TreeDepth == 0 {
		config.TreeDepth = merkle.DefaultDepth
	}
	if config.TreeDepth < 1 || config.TreeDepth > merkle.MaxDepth {
		return nil, fmt.Errorf("%w: %d", merkle.ErrInvalidDepth, config.TreeDepth)
	}
	if config.CacheSize <= 0 {
		config.CacheSize = defaultCacheSize
	}
	if config.Log == nil {
		config.Log = log.NewNoOpLogger()
	}
	if config.Metrics == nil {
		config.Metrics = metric.NewRegistry()
	}
	if config.Clock == nil {
		config.Clock = &mockable.Clock{}
	}

	registries := make(map[uint32]*quorum.Registry, len(config.Registries))
	for i, r := range config.Registries {
		if r == nil {
			return nil, fmt.Errorf("%w: at %d", errNilRegistry, i)
		}
		if _, ok := registries[r.Domain()]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateDomain, r.Domain())
		}
		registries[r.Domain()] = r
	}

	m, err := newMetrics(config.Metrics)
	if err != nil {
		return nil, fmt.Errorf("couldn't register dispute metrics: %w", err)
	}

	manager := &Manager{
		log:        config.Log,
		db:         config.DB,
		registries: registries,
		verifier:   config.Verifier,
		depth:      config.TreeDepth,
		clock:      config.Clock,
		pubsub:     config.PubSub,
		metrics:    m,
		trees:      lru.NewCache[uint32, *merkle.Tree](config.CacheSize),
	}

	for domain := range registries {
		status, err := state.New(config.DB, domain).Status()
		if err != nil {
			return nil, fmt.Errorf("couldn't load status of domain %d: %w", domain, err)
		}
		if status == state.Failed {
			m.failedDomains.Add(1)
		}
	}
	return manager, nil
}

// Registry returns the validator registry of domain.
func (m *Manager) Registry(domain uint32) (*quorum.Registry, error) {
	r, ok := m.registries[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDomain, domain)
	}
	return r, nil
}

// Dispatch appends body to domain's accumulator.
func (m *Manager) Dispatch(domain uint32, body []byte) (common.Hash, uint32, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	tree, err := m.activeTree(domain)
	if err != nil {
		return common.Hash{}, 0, err
	}

	leaf := merkle.MessageHash(body)
	index, err := tree.AppendLeaf(leaf)
	if err != nil {
		return common.Hash{}, 0, err
	}

	vdb := versiondb.New(m.db)
	defer vdb.Abort()

	if err := state.New(vdb, domain).PutLeaf(index, leaf); err != nil {
		m.trees.Evict(domain)
		return common.Hash{}, 0, err
	}
	if err := m.commit(vdb, domain); err != nil {
		return common.Hash{}, 0, err
	}

	m.metrics.dispatched.Inc()
	m.log.Debug("dispatched message",
		log.Uint32("domain", domain),
		log.Uint32("index", index),
		log.Stringer("leaf", leaf),
	)
	return leaf, index, nil
}

// CacheRoot snapshots domain's current root and count as the trust anchor for
// fraud disputes.
func (m *Manager) CacheRoot(domain uint32) (merkle.CachedRoot, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	tree, err := m.activeTree(domain)
	if err != nil {
		return merkle.CachedRoot{}, err
	}

	cached := tree.CacheRoot()

	vdb := versiondb.New(m.db)
	defer vdb.Abort()

	if err := state.New(vdb, domain).PutCachedRoot(cached); err != nil {
		m.trees.Evict(domain)
		return merkle.CachedRoot{}, err
	}
	if err := m.commit(vdb, domain); err != nil {
		return merkle.CachedRoot{}, err
	}

	m.metrics.rootsCached.Inc()
	m.log.Info("cached root",
		log.Uint32("domain", domain),
		log.Stringer("root", cached.Root),
		log.Uint32("count", cached.Count),
	)
	return cached, nil
}

// PrematureCheckpoint fails domain if a quorum signed a checkpoint claiming
// more leaves than have been dispatched.
func (m *Manager) PrematureCheckpoint(
	domain uint32,
	root common.Hash,
	index uint32,
	sigs checkpoint.SignatureSet,
) (*Event, error) {
	c := checkpoint.Checkpoint{
		Domain: domain,
		Root:   root,
		Index:  index,
	}
	return m.dispute(Premature, &c, sigs, func(r *quorum.Registry, tree *merkle.Tree) (*Event, error) {
		count := tree.Count()
		if index < count {
			return nil, fmt.Errorf("%w: index %d < count %d", ErrCheckpointNotPremature, index, count)
		}
		if err := quorum.VerifyQuorum(m.verifier, &c, sigs, r); err != nil {
			return nil, err
		}
		return &Event{Count: count}, nil
	})
}

// FraudulentCheckpoint fails domain if a quorum signed a root that, by proof,
// disagrees with the cached root at proof.DisputedIndex.
func (m *Manager) FraudulentCheckpoint(
	domain uint32,
	root common.Hash,
	index uint32,
	sigs checkpoint.SignatureSet,
	proof FraudProof,
) (*Event, error) {
	c := checkpoint.Checkpoint{
		Domain: domain,
		Root:   root,
		Index:  index,
	}
	return m.dispute(Fraudulent, &c, sigs, func(r *quorum.Registry, tree *merkle.Tree) (*Event, error) {
		if err := quorum.VerifyQuorum(m.verifier, &c, sigs, r); err != nil {
			return nil, err
		}

		// Re-read at execution time; appends may have raced with submission.
		cached, hasCached := tree.CachedRoot()
		if hasCached && root == cached.Root {
			return nil, fmt.Errorf("%w: %s is the cached root", ErrSignedRootNotFraudulent, root)
		}
		if proof.DisputedIndex > index {
			return nil, fmt.Errorf("%w: disputed index %d > signed index %d",
				ErrSignedIndexNotFraudulent, proof.DisputedIndex, index)
		}
		if !hasCached || !m.contains(cached, proof.CachedLeaf, proof.CachedProof) {
			return nil, ErrCachedRootDoesNotContainLeaf
		}
		// Slots past the signed index are empty in an honest checkpoint, so
		// proofs there say nothing about the committed prefix.
		if proof.DisputedProof.Index > index || proof.CachedProof.Index > index {
			return nil, fmt.Errorf("%w: proof indices %d and %d exceed signed index %d",
				ErrFraudNotProven, proof.DisputedProof.Index, proof.CachedProof.Index, index)
		}
		if !m.proves(root, proof.DisputedLeaf, proof.DisputedProof) {
			return nil, fmt.Errorf("%w: disputed proof does not match signed root", ErrFraudNotProven)
		}
		if !fraud.ImpliesDifferingLeaf(
			proof.DisputedLeaf,
			proof.DisputedProof,
			proof.CachedLeaf,
			proof.CachedProof,
			proof.DisputedIndex,
		) {
			return nil, fmt.Errorf("%w: at index %d", ErrFraudNotProven, proof.DisputedIndex)
		}

		return &Event{
			Count:         tree.Count(),
			DisputedLeaf:  proof.DisputedLeaf,
			DisputedProof: proof.DisputedProof,
			CachedLeaf:    proof.CachedLeaf,
			CachedProof:   proof.CachedProof,
			CachedRoot:    cached,
			DisputedIndex: proof.DisputedIndex,
		}, nil
	})
}

// ImproperCheckpoint fails domain if a quorum signed a root for an existing
// index that differs from the accumulator's root at that index.
func (m *Manager) ImproperCheckpoint(
	domain uint32,
	root common.Hash,
	index uint32,
	sigs checkpoint.SignatureSet,
) (*Event, error) {
	c := checkpoint.Checkpoint{
		Domain: domain,
		Root:   root,
		Index:  index,
	}
	return m.dispute(Improper, &c, sigs, func(r *quorum.Registry, tree *merkle.Tree) (*Event, error) {
		count := tree.Count()
		if index >= count {
			return nil, fmt.Errorf("%w: index %d >= count %d", ErrCheckpointNotImproper, index, count)
		}
		actual, err := tree.RootAt(index + 1)
		if err != nil {
			return nil, err
		}
		if actual == root {
			return nil, fmt.Errorf("%w: root matches at index %d", ErrCheckpointNotImproper, index)
		}
		if err := quorum.VerifyQuorum(m.verifier, &c, sigs, r); err != nil {
			return nil, err
		}
		return &Event{Count: count}, nil
	})
}

// dispute runs verify against domain's committed state and, if it produces an
// event, atomically fails the domain and records the event.
func (m *Manager) dispute(
	kind Kind,
	c *checkpoint.Checkpoint,
	sigs checkpoint.SignatureSet,
	verify func(*quorum.Registry, *merkle.Tree) (*Event, error),
) (*Event, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	event, err := m.failDomain(kind, c, sigs, verify)
	m.metrics.markDispute(kind, err)
	if err != nil {
		m.log.Debug("rejected dispute",
			log.Stringer("kind", kind),
			log.Stringer("checkpoint", c),
			log.Err(err),
		)
		return nil, err
	}

	m.metrics.failedDomains.Add(1)
	m.log.Info("domain failed",
		log.Stringer("kind", kind),
		log.Stringer("checkpoint", c),
		log.Uint32("count", event.Count),
		log.Stringer("eventID", event.ID),
	)
	if m.pubsub != nil {
		m.pubsub.Publish(NewPubSubFilterer(event))
	}
	return event, nil
}

func (m *Manager) failDomain(
	kind Kind,
	c *checkpoint.Checkpoint,
	sigs checkpoint.SignatureSet,
	verify func(*quorum.Registry, *merkle.Tree) (*Event, error),
) (*Event, error) {
	r, err := m.Registry(c.Domain)
	if err != nil {
		return nil, err
	}
	tree, err := m.activeTree(c.Domain)
	if err != nil {
		return nil, err
	}

	event, err := verify(r, tree)
	if err != nil {
		return nil, err
	}
	event.Kind = kind
	event.Domain = c.Domain
	event.Checkpoint = *c
	event.Signatures = sigs
	event.Timestamp = m.clock.Time().Unix()

	eventBytes, err := event.initialize()
	if err != nil {
		return nil, err
	}

	vdb := versiondb.New(m.db)
	defer vdb.Abort()

	staged := state.New(vdb, c.Domain)
	if err := staged.AppendEvent(eventBytes); err != nil {
		return nil, err
	}
	if err := staged.PutStatus(state.Failed); err != nil {
		return nil, err
	}
	if err := m.commit(vdb, c.Domain); err != nil {
		return nil, err
	}
	return event, nil
}

// contains reports whether proof places leaf inside the cached snapshot.
func (m *Manager) contains(cached merkle.CachedRoot, leaf common.Hash, proof merkle.Proof) bool {
	return proof.Index < cached.Count && m.proves(cached.Root, leaf, proof)
}

func (m *Manager) proves(root common.Hash, leaf common.Hash, proof merkle.Proof) bool {
	if proof.Validate(m.depth) != nil {
		return false
	}
	return merkle.BranchRoot(leaf, proof.Path, proof.Index) == root
}

func (m *Manager) commit(vdb *versiondb.Database, domain uint32) error {
	if err := vdb.Commit(); err != nil {
		m.trees.Evict(domain)
		m.log.Warn("failed to commit domain state",
			log.Uint32("domain", domain),
			log.Err(err),
		)
		return fmt.Errorf("couldn't commit domain %d: %w", domain, err)
	}
	return nil
}

// activeTree returns domain's accumulator if domain is registered and ACTIVE.
// Callers must hold the write lock.
func (m *Manager) activeTree(domain uint32) (*merkle.Tree, error) {
	status, err := m.status(domain)
	if err != nil {
		return nil, err
	}
	if status != state.Active {
		return nil, fmt.Errorf("%w: %d", ErrDomainFailed, domain)
	}
	return m.tree(domain)
}

func (m *Manager) tree(domain uint32) (*merkle.Tree, error) {
	if _, err := m.Registry(domain); err != nil {
		return nil, err
	}
	if tree, ok := m.trees.Get(domain); ok {
		return tree, nil
	}

	tree, err := state.New(m.db, domain).Tree(m.depth)
	if err != nil {
		return nil, fmt.Errorf("couldn't load accumulator of domain %d: %w", domain, err)
	}
	m.trees.Put(domain, tree)
	return tree, nil
}

func (m *Manager) status(domain uint32) (state.Status, error) {
	if _, err := m.Registry(domain); err != nil {
		return state.Active, err
	}
	return state.New(m.db, domain).Status()
}

// State returns domain's protocol status.
func (m *Manager) State(domain uint32) (state.Status, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.status(domain)
}

// CheckAccepting returns nil while domain is ACTIVE. Message delivery for a
// domain must stop as soon as this returns an error.
func (m *Manager) CheckAccepting(domain uint32) error {
	status, err := m.State(domain)
	if err != nil {
		return err
	}
	if status != state.Active {
		return fmt.Errorf("%w: %d", ErrDomainFailed, domain)
	}
	return nil
}

func (m *Manager) Root(domain uint32) (common.Hash, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	tree, err := m.tree(domain)
	if err != nil {
		return common.Hash{}, err
	}
	return tree.Root(), nil
}

func (m *Manager) Count(domain uint32) (uint32, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	tree, err := m.tree(domain)
	if err != nil {
		return 0, err
	}
	return tree.Count(), nil
}

// Snapshot returns domain's current root and count read together.
func (m *Manager) Snapshot(domain uint32) (merkle.CachedRoot, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	tree, err := m.tree(domain)
	if err != nil {
		return merkle.CachedRoot{}, err
	}
	return merkle.CachedRoot{
		Root:  tree.Root(),
		Count: tree.Count(),
	}, nil
}

// RootAt returns the root domain's accumulator had with count leaves.
func (m *Manager) RootAt(domain uint32, count uint32) (common.Hash, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	tree, err := m.tree(domain)
	if err != nil {
		return common.Hash{}, err
	}
	return tree.RootAt(count)
}

// Proof returns the inclusion proof of leaf index against the current root.
func (m *Manager) Proof(domain uint32, index uint32) (merkle.Proof, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	tree, err := m.tree(domain)
	if err != nil {
		return merkle.Proof{}, err
	}
	return tree.Proof(index)
}

// ProofAt returns the inclusion proof of leaf index against the root of the
// first count leaves.
func (m *Manager) ProofAt(domain uint32, index uint32, count uint32) (merkle.Proof, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	tree, err := m.tree(domain)
	if err != nil {
		return merkle.Proof{}, err
	}
	return tree.ProofAt(index, count)
}

// CachedRoot returns domain's trust anchor. ok is false until CacheRoot has
// been called.
func (m *Manager) CachedRoot(domain uint32) (merkle.CachedRoot, bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	tree, err := m.tree(domain)
	if err != nil {
		return merkle.CachedRoot{}, false, err
	}
	cached, ok := tree.CachedRoot()
	return cached, ok, nil
}

// Events returns the audit log of successful disputes against domain.
func (m *Manager) Events(domain uint32) ([]*Event, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if _, err := m.Registry(domain); err != nil {
		return nil, err
	}
	encoded, err := state.New(m.db, domain).Events()
	if err != nil {
		return nil, err
	}
	events := make([]*Event, len(encoded))
	for i, b := range encoded {
		events[i], err = ParseEvent(b)
		if err != nil {
			return nil, err
		}
	}
	return events, nil
}
