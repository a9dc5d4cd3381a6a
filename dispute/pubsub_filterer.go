// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dispute

import (
	"encoding/binary"

	"github.com/luxfi/pubsub"
)

var _ pubsub.Filterer = (*filterer)(nil)

type filterer struct {
	event *Event
}

// NewPubSubFilterer matches subscribers that filter on the event's domain,
// encoded as 4 big-endian bytes, or on the disputed checkpoint root.
func NewPubSubFilterer(event *Event) pubsub.Filterer {
	return &filterer{event: event}
}

// DomainKey is the filter value subscribers add to follow a domain.
func DomainKey(domain uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, domain)
}

func (f *filterer) Filter(filters []pubsub.Filter) ([]bool, interface{}) {
	var (
		domain = DomainKey(f.event.Domain)
		root   = f.event.Checkpoint.Root
	)
	resp := make([]bool, len(filters))
	for i, filter := range filters {
		resp[i] = filter.Check(domain) || filter.Check(root[:])
	}
	return resp, f.event
}
