// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/luxfi/metric"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Endpoint is the route metrics are served on, relative to /ext.
const Endpoint = "metrics"

// NewHandler serves gatherer in the Prometheus text format.
func NewHandler(gatherer metric.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Client for requesting metrics from a running daemon
type Client struct {
	uri string
}

// NewClient returns a new Metrics API Client
func NewClient(uri string) *Client {
	return &Client{
		uri: uri + "/ext/" + Endpoint,
	}
}

// GetMetrics returns the metrics of the daemon keyed by family name.
func (c *Client) GetMetrics(ctx context.Context) (map[string]*metric.MetricFamily, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.uri, bytes.NewReader(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to issue request: %w", err)
	}
	defer func() {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("received status code: %d", resp.StatusCode)
	}

	var parser metric.TextParser
	return parser.TextToMetricFamilies(resp.Body)
}
