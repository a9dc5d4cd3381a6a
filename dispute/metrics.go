// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dispute

import (
	"github.com/luxfi/metric"

	"github.com/luxfi/interchain/utils/wrappers"
)

const (
	kindLabel    = "kind"
	outcomeLabel = "outcome"

	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
)

type metrics struct {
	dispatched    metric.Counter
	rootsCached   metric.Counter
	disputes      metric.CounterVec
	failedDomains metric.Gauge
}

func newMetrics(registerer metric.Registerer) (*metrics, error) {
	m := &metrics{
		dispatched: metric.NewCounter(metric.CounterOpts{
			Name: "dispatched_messages",
			Help: "Number of messages appended to domain accumulators",
		}),
		rootsCached: metric.NewCounter(metric.CounterOpts{
			Name: "cached_roots",
			Help: "Number of times an accumulator root was cached",
		}),
		disputes: metric.NewCounterVec(
			metric.CounterOpts{
				Name: "disputes",
				Help: "Number of submitted disputes by protocol and outcome",
			},
			[]string{kindLabel, outcomeLabel},
		),
		failedDomains: metric.NewGauge(metric.GaugeOpts{
			Name: "failed_domains",
			Help: "Number of domains in the FAILED state",
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(metric.AsCollector(m.dispatched)),
		registerer.Register(metric.AsCollector(m.rootsCached)),
		registerer.Register(metric.AsCollector(m.disputes)),
		registerer.Register(metric.AsCollector(m.failedDomains)),
	)
	return m, errs.Err
}

func (m *metrics) markDispute(kind Kind, err error) {
	outcome := outcomeAccepted
	if err != nil {
		outcome = outcomeRejected
	}
	m.disputes.With(metric.Labels{
		kindLabel:    kind.String(),
		outcomeLabel: outcome,
	}).Inc()
}
