// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"net/http"

	"github.com/luxfi/metric"

	"github.com/luxfi/interchain/utils/timer/mockable"
	"github.com/luxfi/interchain/utils/wrappers"
)

type serverMetrics struct {
	clock    *mockable.Clock
	requests metric.CounterVec
	duration metric.HistogramVec
	inflight metric.Gauge
}

func newMetrics(registerer metric.Registerer, clock *mockable.Clock) (*serverMetrics, error) {
	if clock == nil {
		clock = &mockable.Clock{}
	}
	m := &serverMetrics{
		clock:    clock,
		requests: registerer.NewCounterVec("requests_total", "Total number of API requests", []string{"method", "endpoint"}),
		duration: registerer.NewHistogramVec("request_duration_seconds", "API request duration in seconds", []string{"method", "endpoint"}, nil),
		inflight: registerer.NewGauge("requests_inflight", "Number of inflight API requests"),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(metric.AsCollector(m.requests)),
		registerer.Register(metric.AsCollector(m.duration)),
		registerer.Register(metric.AsCollector(m.inflight)),
	)
	if errs.Errored() {
		return nil, errs.Err
	}
	return m, nil
}

func (m *serverMetrics) wrapHandler(endpoint string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requests.WithLabelValues(r.Method, endpoint).Inc()
		m.inflight.Inc()
		defer m.inflight.Dec()

		start := m.clock.Time()
		handler.ServeHTTP(w, r)
		m.duration.WithLabelValues(r.Method, endpoint).Observe(m.clock.Since(start).Seconds())
	})
}
