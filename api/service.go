// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api exposes a dispute.Manager over JSON-RPC.
package api

import (
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/log"
	"github.com/luxfi/version"

	"github.com/luxfi/interchain/checkpoint"
	"github.com/luxfi/interchain/dispute"
	"github.com/luxfi/interchain/merkle"
	"github.com/luxfi/interchain/utils/json"

	utilmetric "github.com/luxfi/interchain/utils/metric"
)

// Name is the service name methods are registered under.
const Name = "dispute"

var Version = &version.Semantic{
	Major: 1,
	Minor: 0,
	Patch: 0,
}

// Service is the API service of a dispute.Manager
type Service struct {
	log     log.Logger
	manager *dispute.Manager
}

// NewService returns a JSON-RPC handler serving manager. A nil interceptor
// disables request metrics.
func NewService(log log.Logger, manager *dispute.Manager, interceptor utilmetric.APIInterceptor) (http.Handler, error) {
	server := rpc.NewServer()
	codec := json.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	if interceptor != nil {
		server.RegisterInterceptFunc(interceptor.InterceptRequest)
		server.RegisterAfterFunc(interceptor.AfterRequest)
	}
	return server, server.RegisterService(
		&Service{
			log:     log,
			manager: manager,
		},
		Name,
	)
}

type DomainArgs struct {
	Domain json.Uint32 `json:"domain"`
}

type DispatchArgs struct {
	Domain json.Uint32   `json:"domain"`
	Body   hexutil.Bytes `json:"body"`
}

type DispatchReply struct {
	MessageID common.Hash `json:"messageID"`
	LeafIndex json.Uint32 `json:"leafIndex"`
}

// Dispatch appends a message to a domain's accumulator
func (s *Service) Dispatch(_ *http.Request, args *DispatchArgs, reply *DispatchReply) error {
	s.log.Debug("API called",
		log.String("service", Name),
		log.String("method", "dispatch"),
		log.Uint32("domain", uint32(args.Domain)),
	)

	messageID, index, err := s.manager.Dispatch(uint32(args.Domain), args.Body)
	if err != nil {
		return err
	}
	reply.MessageID = messageID
	reply.LeafIndex = json.Uint32(index)
	return nil
}

type GetRootReply struct {
	Root  common.Hash `json:"root"`
	Count json.Uint32 `json:"count"`
}

// GetRoot returns the current root and leaf count of a domain's accumulator.
// Both are read under one snapshot of the domain.
func (s *Service) GetRoot(_ *http.Request, args *DomainArgs, reply *GetRootReply) error {
	s.log.Debug("API called",
		log.String("service", Name),
		log.String("method", "getRoot"),
		log.Uint32("domain", uint32(args.Domain)),
	)

	cached, err := s.manager.Snapshot(uint32(args.Domain))
	if err != nil {
		return err
	}
	reply.Root = cached.Root
	reply.Count = json.Uint32(cached.Count)
	return nil
}

type GetProofArgs struct {
	Domain json.Uint32 `json:"domain"`
	Index  json.Uint32 `json:"index"`
	// Count selects the historical tree of the first Count leaves. The
	// current tree is used when it is omitted.
	Count *json.Uint32 `json:"count,omitempty"`
}

type GetProofReply struct {
	Leaf  common.Hash   `json:"leaf"`
	Index json.Uint32   `json:"index"`
	Path  []common.Hash `json:"path"`
	Root  common.Hash   `json:"root"`
}

// GetProof returns the inclusion proof of a leaf.
func (s *Service) GetProof(_ *http.Request, args *GetProofArgs, reply *GetProofReply) error {
	s.log.Debug("API called",
		log.String("service", Name),
		log.String("method", "getProof"),
		log.Uint32("domain", uint32(args.Domain)),
		log.Uint32("index", uint32(args.Index)),
	)

	var (
		proof merkle.Proof
		err   error
	)
	if args.Count == nil {
		proof, err = s.manager.Proof(uint32(args.Domain), uint32(args.Index))
	} else {
		proof, err = s.manager.ProofAt(uint32(args.Domain), uint32(args.Index), uint32(*args.Count))
	}
	if err != nil {
		return err
	}
	reply.Leaf = proof.Leaf
	reply.Index = json.Uint32(proof.Index)
	reply.Path = proof.Path
	reply.Root = proof.Root()
	return nil
}

type CachedRootReply struct {
	Root  common.Hash `json:"root"`
	Count json.Uint32 `json:"count"`
}

// CacheRoot records a domain's current root as the fraud trust anchor
func (s *Service) CacheRoot(_ *http.Request, args *DomainArgs, reply *CachedRootReply) error {
	s.log.Debug("API called",
		log.String("service", Name),
		log.String("method", "cacheRoot"),
		log.Uint32("domain", uint32(args.Domain)),
	)

	cached, err := s.manager.CacheRoot(uint32(args.Domain))
	if err != nil {
		return err
	}
	reply.Root = cached.Root
	reply.Count = json.Uint32(cached.Count)
	return nil
}

type GetStateReply struct {
	State      string           `json:"state"`
	CachedRoot *CachedRootReply `json:"cachedRoot,omitempty"`
}

// GetState returns a domain's protocol state and cached root
func (s *Service) GetState(_ *http.Request, args *DomainArgs, reply *GetStateReply) error {
	s.log.Debug("API called",
		log.String("service", Name),
		log.String("method", "getState"),
		log.Uint32("domain", uint32(args.Domain)),
	)

	domain := uint32(args.Domain)
	status, err := s.manager.State(domain)
	if err != nil {
		return err
	}
	cached, ok, err := s.manager.CachedRoot(domain)
	if err != nil {
		return err
	}
	reply.State = status.String()
	if ok {
		reply.CachedRoot = &CachedRootReply{
			Root:  cached.Root,
			Count: json.Uint32(cached.Count),
		}
	}
	return nil
}

// Signature is a validator attestation. Validator may be omitted, in which
// case the signer is recovered from Signature.
type Signature struct {
	Validator common.Address `json:"validator"`
	Signature hexutil.Bytes  `json:"signature"`
}

type CheckpointArgs struct {
	Domain     json.Uint32 `json:"domain"`
	Root       common.Hash `json:"root"`
	Index      json.Uint32 `json:"index"`
	Signatures []Signature `json:"signatures"`
}

func (a *CheckpointArgs) signatures() checkpoint.SignatureSet {
	sigs := make(checkpoint.SignatureSet, len(a.Signatures))
	for i, sig := range a.Signatures {
		sigs[i] = checkpoint.ValidatorSignature{
			Validator: sig.Validator,
			Signature: sig.Signature,
		}
	}
	return sigs
}

type Proof struct {
	Leaf  common.Hash   `json:"leaf"`
	Index json.Uint32   `json:"index"`
	Path  []common.Hash `json:"path"`
}

func (p *Proof) proof() merkle.Proof {
	return merkle.Proof{
		Leaf:  p.Leaf,
		Path:  p.Path,
		Index: uint32(p.Index),
	}
}

type FraudulentCheckpointArgs struct {
	CheckpointArgs

	DisputedLeaf  common.Hash `json:"disputedLeaf"`
	DisputedProof Proof       `json:"disputedProof"`
	CachedLeaf    common.Hash `json:"cachedLeaf"`
	CachedProof   Proof       `json:"cachedProof"`
	DisputedIndex json.Uint32 `json:"disputedIndex"`
}

type EventReply struct {
	Event *dispute.Event `json:"event"`
}

// PrematureCheckpoint disputes a checkpoint signed past the accumulator's
// count
func (s *Service) PrematureCheckpoint(_ *http.Request, args *CheckpointArgs, reply *EventReply) error {
	s.log.Debug("API called",
		log.String("service", Name),
		log.String("method", "prematureCheckpoint"),
		log.Uint32("domain", uint32(args.Domain)),
		log.Uint32("index", uint32(args.Index)),
	)

	var err error
	reply.Event, err = s.manager.PrematureCheckpoint(uint32(args.Domain), args.Root, uint32(args.Index), args.signatures())
	return err
}

// FraudulentCheckpoint disputes a checkpoint that provably differs from the
// cached root
func (s *Service) FraudulentCheckpoint(_ *http.Request, args *FraudulentCheckpointArgs, reply *EventReply) error {
	s.log.Debug("API called",
		log.String("service", Name),
		log.String("method", "fraudulentCheckpoint"),
		log.Uint32("domain", uint32(args.Domain)),
		log.Uint32("index", uint32(args.Index)),
		log.Uint32("disputedIndex", uint32(args.DisputedIndex)),
	)

	var err error
	reply.Event, err = s.manager.FraudulentCheckpoint(
		uint32(args.Domain),
		args.Root,
		uint32(args.Index),
		args.signatures(),
		dispute.FraudProof{
			DisputedLeaf:  args.DisputedLeaf,
			DisputedProof: args.DisputedProof.proof(),
			CachedLeaf:    args.CachedLeaf,
			CachedProof:   args.CachedProof.proof(),
			DisputedIndex: uint32(args.DisputedIndex),
		},
	)
	return err
}

// ImproperCheckpoint disputes a checkpoint whose root differs from the
// accumulator's root at the signed index
func (s *Service) ImproperCheckpoint(_ *http.Request, args *CheckpointArgs, reply *EventReply) error {
	s.log.Debug("API called",
		log.String("service", Name),
		log.String("method", "improperCheckpoint"),
		log.Uint32("domain", uint32(args.Domain)),
		log.Uint32("index", uint32(args.Index)),
	)

	var err error
	reply.Event, err = s.manager.ImproperCheckpoint(uint32(args.Domain), args.Root, uint32(args.Index), args.signatures())
	return err
}

type GetEventsReply struct {
	Events []*dispute.Event `json:"events"`
}

// GetEvents returns the disputes recorded for a domain
func (s *Service) GetEvents(_ *http.Request, args *DomainArgs, reply *GetEventsReply) error {
	s.log.Debug("API called",
		log.String("service", Name),
		log.String("method", "getEvents"),
		log.Uint32("domain", uint32(args.Domain)),
	)

	events, err := s.manager.Events(uint32(args.Domain))
	if err != nil {
		return err
	}
	reply.Events = events
	return nil
}

type VersionReply struct {
	Version string `json:"version"`
}

// Version returns the version of this service
func (*Service) Version(_ *http.Request, _ *struct{}, reply *VersionReply) error {
	reply.Version = Version.String()
	return nil
}
