// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/luxfi/database"
	"github.com/luxfi/log"
	"github.com/luxfi/pubsub"

	"github.com/luxfi/interchain/api"
	"github.com/luxfi/interchain/api/metrics"
	"github.com/luxfi/interchain/api/server"
	"github.com/luxfi/interchain/config"
	"github.com/luxfi/interchain/dispute"

	utilmetric "github.com/luxfi/interchain/utils/metric"
)

const eventsEndpoint = "events"

type daemon struct {
	log     log.Logger
	manager *dispute.Manager
	server  server.Server
}

func newDaemon(
	logger log.Logger,
	c *config.Config,
	db database.Database,
	gatherer metrics.MultiGatherer,
	listener net.Listener,
	shutdownTimeout time.Duration,
) (*daemon, error) {
	registries, err := c.Registries()
	if err != nil {
		return nil, err
	}
	verifier, err := c.Verifier()
	if err != nil {
		return nil, err
	}

	disputeRegistry, err := metrics.MakeAndRegister(gatherer, "dispute")
	if err != nil {
		return nil, err
	}
	rpcRegistry, err := metrics.MakeAndRegister(gatherer, "rpc")
	if err != nil {
		return nil, err
	}
	httpRegistry, err := metrics.MakeAndRegister(gatherer, "http")
	if err != nil {
		return nil, err
	}

	events := pubsub.New(logger)
	manager, err := dispute.NewManager(dispute.Config{
		Log:        logger,
		DB:         db,
		Registries: registries,
		Verifier:   verifier,
		TreeDepth:  c.TreeDepth,
		CacheSize:  c.AccumulatorCacheSize,
		Metrics:    disputeRegistry,
		PubSub:     events,
	})
	if err != nil {
		return nil, err
	}

	interceptor, err := utilmetric.NewAPIInterceptor(rpcRegistry, nil)
	if err != nil {
		return nil, err
	}
	service, err := api.NewService(logger, manager, interceptor)
	if err != nil {
		return nil, err
	}

	srv, err := server.New(
		logger,
		listener,
		c.HTTP.AllowedOrigins,
		shutdownTimeout,
		httpRegistry,
		nil,
		server.HTTPConfig{
			ReadHeaderTimeout: 30 * time.Second,
		},
	)
	if err != nil {
		return nil, err
	}
	if err := srv.AddRoute(service, api.Name); err != nil {
		return nil, err
	}
	if err := srv.AddRoute(events, eventsEndpoint); err != nil {
		return nil, err
	}
	if err := srv.AddRoute(metrics.NewHandler(gatherer), metrics.Endpoint); err != nil {
		return nil, err
	}

	return &daemon{
		log:     logger,
		manager: manager,
		server:  srv,
	}, nil
}

// run serves the API until ctx is cancelled or the server fails.
func (d *daemon) run(ctx context.Context) error {
	errs := make(chan error, 1)
	go func() {
		errs <- d.server.Dispatch()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		d.log.Info("shutting down API server")
		return d.server.Shutdown()
	}
}
