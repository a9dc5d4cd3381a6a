// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/metric"
)

var counterOpts = metric.CounterOpts{
	Name: "counter",
	Help: "help",
}

func newCounterRegistry(t *testing.T, increments int) metric.Registry {
	reg := metric.NewRegistry()
	counter := metric.NewCounter(counterOpts)
	for range increments {
		counter.Inc()
	}
	require.NoError(t, reg.Register(metric.AsCollector(counter)))
	return reg
}

func TestPrefixGatherer(t *testing.T) {
	require := require.New(t)

	gatherer := NewPrefixGatherer()
	require.NoError(gatherer.Register("b", newCounterRegistry(t, 1)))
	require.NoError(gatherer.Register("a", newCounterRegistry(t, 0)))

	families, err := gatherer.Gather()
	require.NoError(err)
	require.Len(families, 2)
	require.Equal("a_counter", families[0].GetName())
	require.Equal("b_counter", families[1].GetName())
	require.Equal(counterOpts.Help, families[1].GetHelp())
	require.Len(families[1].GetMetric(), 1)
	require.InDelta(1, families[1].GetMetric()[0].GetCounter().GetValue(), 0)
}

func TestPrefixGathererRegister(t *testing.T) {
	tests := []struct {
		name        string
		existing    []string
		prefix      string
		expectedErr error
	}{
		{
			name:   "first registration",
			prefix: "dispute",
		},
		{
			name:     "disjoint",
			existing: []string{"dispute"},
			prefix:   "http",
		},
		{
			name:        "duplicate",
			existing:    []string{"dispute"},
			prefix:      "dispute",
			expectedErr: errOverlappingNamespaces,
		},
		{
			name:        "nested namespace",
			existing:    []string{"dispute"},
			prefix:      "dispute_rpc",
			expectedErr: errOverlappingNamespaces,
		},
		{
			name:     "shared characters",
			existing: []string{"dispute"},
			prefix:   "disputes",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			gatherer := NewPrefixGatherer()
			for _, prefix := range test.existing {
				require.NoError(t, gatherer.Register(prefix, metric.NewRegistry()))
			}
			_, err := MakeAndRegister(gatherer, test.prefix)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestEitherIsPrefix(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected bool
	}{
		{
			name:     "empty strings",
			a:        "",
			b:        "",
			expected: true,
		},
		{
			name:     "an empty string",
			a:        "",
			b:        "hello",
			expected: true,
		},
		{
			name:     "different strings",
			a:        "x",
			b:        "y",
			expected: false,
		},
		{
			name:     "splits namespace",
			a:        "hello",
			b:        "hello_world",
			expected: true,
		},
		{
			name:     "is prefix before separator",
			a:        "hello",
			b:        "helloworld",
			expected: false,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			require.Equal(test.expected, eitherIsPrefix(test.a, test.b))
			require.Equal(test.expected, eitherIsPrefix(test.b, test.a))
		})
	}
}

func TestClientReadsHandler(t *testing.T) {
	require := require.New(t)

	gatherer := NewPrefixGatherer()
	require.NoError(gatherer.Register("dispute", newCounterRegistry(t, 3)))

	router := mux.NewRouter()
	router.Handle("/ext/"+Endpoint, NewHandler(gatherer))
	srv := httptest.NewServer(router)
	defer srv.Close()

	families, err := NewClient(srv.URL).GetMetrics(context.Background())
	require.NoError(err)
	family, ok := families["dispute_counter"]
	require.True(ok)
	require.InDelta(3, family.GetMetric()[0].GetCounter().GetValue(), 0)
}
