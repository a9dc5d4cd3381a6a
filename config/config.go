// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/interchain/merkle"
	"github.com/luxfi/interchain/quorum"
)

var (
	errInvalidCacheSize = errors.New("accumulator cache size must be positive")
	errNoDomains        = errors.New("no domains configured")

	DefaultConfig = Config{
		TreeDepth:            merkle.DefaultDepth,
		AccumulatorCacheSize: 16,
		SignatureScheme:      quorum.SchemeECDSA,
		HTTP: HTTPConfig{
			Address: "127.0.0.1:9660",
		},
	}
)

// DomainConfig is the validator registry of one origin domain.
type DomainConfig struct {
	Domain     uint32           `json:"domain"`
	Validators []common.Address `json:"validators"`
	Threshold  int              `json:"threshold"`
}

type HTTPConfig struct {
	Address string `json:"address"`
	// AllowedOrigins defaults to every origin when empty.
	AllowedOrigins []string `json:"allowed-origins"`
}

// Config provides the parameters of the checkpoint daemon
type Config struct {
	TreeDepth            int            `json:"tree-depth"`
	AccumulatorCacheSize int            `json:"accumulator-cache-size"`
	SignatureScheme      string         `json:"signature-scheme"`
	Domains              []DomainConfig `json:"domains"`
	HTTP                 HTTPConfig     `json:"http"`
}

// GetConfig returns a Config
// input is unmarshalled into a Config previously
// initialized with default values
func GetConfig(b []byte) (*Config, error) {
	c := DefaultConfig

	// if bytes are empty keep default values
	if len(b) == 0 {
		return &c, nil
	}

	return &c, json.Unmarshal(b, &c)
}

// Verify checks every field that has no usable default.
func (c *Config) Verify() error {
	if c.TreeDepth < 1 || c.TreeDepth > merkle.MaxDepth {
		return fmt.Errorf("%w: %d", merkle.ErrInvalidDepth, c.TreeDepth)
	}
	if c.AccumulatorCacheSize <= 0 {
		return fmt.Errorf("%w: %d", errInvalidCacheSize, c.AccumulatorCacheSize)
	}
	if _, err := c.Verifier(); err != nil {
		return err
	}
	_, err := c.Registries()
	return err
}

// Verifier returns the signature verifier for the configured scheme.
func (c *Config) Verifier() (quorum.Verifier, error) {
	return quorum.NewVerifier(c.SignatureScheme)
}

// Registries builds the immutable validator registry of every domain.
func (c *Config) Registries() ([]*quorum.Registry, error) {
	if len(c.Domains) == 0 {
		return nil, errNoDomains
	}

	registries := make([]*quorum.Registry, len(c.Domains))
	for i, d := range c.Domains {
		r, err := quorum.NewRegistry(d.Domain, d.Validators, d.Threshold)
		if err != nil {
			return nil, fmt.Errorf("invalid registry for domain %d: %w", d.Domain, err)
		}
		registries[i] = r
	}
	return registries, nil
}
