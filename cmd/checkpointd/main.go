// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/luxfi/utils/ulimit"

	"github.com/luxfi/interchain/api"
	"github.com/luxfi/interchain/api/metrics"
)

func main() {
	cmd := Command()
	cmd.AddCommand(versionCommand())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "checkpointd failed: %s\n", err)
		os.Exit(1)
	}
}

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:           "checkpointd",
		Short:         "Runs the checkpoint dispute service",
		RunE:          runFunc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	AddFlags(c.Flags())
	return c
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the service version",
		Run: func(c *cobra.Command, _ []string) {
			c.Println(api.Version.String())
		},
	}
}

func runFunc(c *cobra.Command, args []string) error {
	flags, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}

	logger := log.Root()
	if err := ulimit.Set(ulimit.DefaultFDLimit, logger); err != nil {
		return fmt.Errorf("couldn't set fd limit: %w", err)
	}

	db, err := openDB(flags.DBDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("couldn't close database", log.Err(err))
		}
	}()

	listener, err := net.Listen("tcp", flags.Config.HTTP.Address)
	if err != nil {
		return err
	}

	d, err := newDaemon(logger, flags.Config, db, metrics.NewPrefixGatherer(), listener, flags.ShutdownTimeout)
	if err != nil {
		_ = listener.Close()
		return err
	}

	logger.Info("serving API",
		log.String("address", listener.Addr().String()),
		log.Stringer("version", api.Version),
	)
	return d.run(c.Context())
}

func openDB(dir string) (database.Database, error) {
	if dir == "" {
		return memdb.New(), nil
	}
	return badgerdb.New(
		dir,
		nil, // configBytes - use default
		"",  // namespace
		nil, // metrics
	)
}
