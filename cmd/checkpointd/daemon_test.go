// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"

	"github.com/luxfi/interchain/api/metrics"
	"github.com/luxfi/interchain/config"
	"github.com/luxfi/interchain/merkle"
	"github.com/luxfi/interchain/quorum"
)

const testConfig = `{
	"tree-depth": 8,
	"domains": [{
		"domain": 1000,
		"validators": ["0x000000000000000000000000000000000000000a"],
		"threshold": 1
	}],
	"http": {"address": "127.0.0.1:0"}
}`

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestParseFlags(t *testing.T) {
	path := writeConfig(t, testConfig)

	tests := []struct {
		name            string
		args            []string
		expectedAddress string
		expectedDBDir   string
		expectedErr     error
	}{
		{
			name:            "config file only",
			args:            []string{"--" + ConfigFileKey, path},
			expectedAddress: "127.0.0.1:0",
		},
		{
			name: "address override",
			args: []string{
				"--" + ConfigFileKey, path,
				"--" + HTTPAddressKey, "0.0.0.0:9999",
				"--" + DBDirKey, "/tmp/db",
			},
			expectedAddress: "0.0.0.0:9999",
			expectedDBDir:   "/tmp/db",
		},
		{
			name:        "missing config file",
			args:        []string{"--" + ConfigFileKey, filepath.Join(t.TempDir(), "missing.json")},
			expectedErr: os.ErrNotExist,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
			AddFlags(flags)
			parsed, err := ParseFlags(flags, test.args)
			require.ErrorIs(err, test.expectedErr)
			if test.expectedErr != nil {
				return
			}
			require.Equal(test.expectedAddress, parsed.Config.HTTP.Address)
			require.Equal(test.expectedDBDir, parsed.DBDir)
			require.Equal(8, parsed.Config.TreeDepth)
			require.Equal(10*time.Second, parsed.ShutdownTimeout)
		})
	}
}

func TestParseFlagsRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, `{"domains": [{"domain": 1, "validators": ["0x000000000000000000000000000000000000000a"], "threshold": 2}]}`)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags)
	_, err := ParseFlags(flags, []string{"--" + ConfigFileKey, path})
	require.ErrorIs(t, err, quorum.ErrInvalidThreshold)
}

func TestDaemonServesAPI(t *testing.T) {
	require := require.New(t)

	c, err := config.GetConfig([]byte(testConfig))
	require.NoError(err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(err)

	d, err := newDaemon(log.NewNoOpLogger(), c, memdb.New(), metrics.NewPrefixGatherer(), listener, time.Second)
	require.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.run(ctx)
	}()

	url := "http://" + listener.Addr().String() + "/ext/dispute"
	body := `{"jsonrpc":"2.0","id":1,"method":"dispute.dispatch","params":{"domain":"1000","body":"0x6d30"}}`
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(err)
	b, err := io.ReadAll(res.Body)
	require.NoError(err)
	require.NoError(res.Body.Close())
	require.Contains(string(b), merkle.MessageHash([]byte("m0")).Hex())

	count, err := d.manager.Count(1000)
	require.NoError(err)
	require.Equal(uint32(1), count)

	families, err := metrics.NewClient("http://"+listener.Addr().String()).GetMetrics(context.Background())
	require.NoError(err)
	dispatched, ok := families["dispute_dispatched_messages"]
	require.True(ok)
	require.InDelta(1, dispatched.GetMetric()[0].GetCounter().GetValue(), 0)

	cancel()
	require.NoError(<-done)
}
