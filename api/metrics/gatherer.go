// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/luxfi/metric"
	"google.golang.org/protobuf/proto"
)

var (
	_ MultiGatherer = (*prefixGatherer)(nil)

	errOverlappingNamespaces = errors.New("prefix could create overlapping namespaces")
)

// MultiGatherer extends the Gatherer interface by allowing additional gatherers
// to be registered.
type MultiGatherer interface {
	metric.Gatherer

	// Register adds the outputs of [gatherer] to the results of future calls to
	// Gather with [prefix] prepended to every metric name.
	Register(prefix string, gatherer metric.Gatherer) error
}

// NewPrefixGatherer returns a MultiGatherer that namespaces each registered
// gatherer by its prefix.
func NewPrefixGatherer() MultiGatherer {
	return &prefixGatherer{}
}

type prefixGatherer struct {
	lock      sync.RWMutex
	prefixes  []string
	gatherers []metric.Gatherer
}

func (g *prefixGatherer) Register(prefix string, gatherer metric.Gatherer) error {
	g.lock.Lock()
	defer g.lock.Unlock()

	for _, existing := range g.prefixes {
		if eitherIsPrefix(prefix, existing) {
			return fmt.Errorf("%w: %q conflicts with %q",
				errOverlappingNamespaces,
				prefix,
				existing,
			)
		}
	}

	g.prefixes = append(g.prefixes, prefix)
	g.gatherers = append(g.gatherers, gatherer)
	return nil
}

// Gather returns the families of every registered gatherer sorted by name.
// Families gathered before an error are still returned.
func (g *prefixGatherer) Gather() ([]*metric.MetricFamily, error) {
	g.lock.RLock()
	defer g.lock.RUnlock()

	var families []*metric.MetricFamily
	for i, gatherer := range g.gatherers {
		gathered, err := gatherer.Gather()
		for _, family := range gathered {
			family.Name = proto.String(metric.AppendNamespace(g.prefixes[i], family.GetName()))
		}
		families = append(families, gathered...)
		if err != nil {
			return families, err
		}
	}

	slices.SortFunc(families, func(a, b *metric.MetricFamily) int {
		return strings.Compare(a.GetName(), b.GetName())
	})
	return families, nil
}

// MakeAndRegister returns a new registry whose metrics are gathered under
// prefix.
func MakeAndRegister(gatherer MultiGatherer, prefix string) (metric.Registry, error) {
	reg := metric.NewRegistry()
	if err := gatherer.Register(prefix, reg); err != nil {
		return nil, fmt.Errorf("couldn't register %q metrics: %w", prefix, err)
	}
	return reg, nil
}

// eitherIsPrefix returns true if either [a] is a prefix of [b] or [b] is a
// prefix of [a], respecting the "_" namespace boundary. "hello" is not a
// prefix of "helloworld", but is a prefix of "hello_world".
func eitherIsPrefix(a, b string) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	return a == b[:len(a)] &&
		(len(a) == 0 ||
			len(a) == len(b) ||
			b[len(a)] == '_')
}
