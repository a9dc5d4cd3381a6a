// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/luxfi/interchain/config"
)

const (
	ConfigFileKey      = "config-file"
	DBDirKey           = "db-dir"
	HTTPAddressKey     = "http-address"
	ShutdownTimeoutKey = "shutdown-timeout"
)

func AddFlags(flags *pflag.FlagSet) {
	flags.String(ConfigFileKey, "", "JSON config file (required)")
	flags.String(DBDirKey, "", "Database directory. State is kept in memory when empty")
	flags.String(HTTPAddressKey, "", "Overrides the HTTP listen address of the config file")
	flags.Duration(ShutdownTimeoutKey, 10*time.Second, "Maximum time to wait for in-flight requests on shutdown")
}

type Flags struct {
	Config          *config.Config
	DBDir           string
	ShutdownTimeout time.Duration
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Flags, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	configFile, err := flags.GetString(ConfigFileKey)
	if err != nil {
		return nil, err
	}
	configBytes, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("couldn't read config file %q: %w", configFile, err)
	}
	c, err := config.GetConfig(configBytes)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse config file %q: %w", configFile, err)
	}

	httpAddress, err := flags.GetString(HTTPAddressKey)
	if err != nil {
		return nil, err
	}
	if httpAddress != "" {
		c.HTTP.Address = httpAddress
	}
	if err := c.Verify(); err != nil {
		return nil, err
	}

	dbDir, err := flags.GetString(DBDirKey)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := flags.GetDuration(ShutdownTimeoutKey)
	if err != nil {
		return nil, err
	}
	return &Flags{
		Config:          c,
		DBDir:           dbDir,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}
