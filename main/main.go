// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/leveldb"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/version"

	"github.com/ava-labs/sequencervm/kernels/counter"
	"github.com/ava-labs/sequencervm/sequencer"
	"github.com/ava-labs/sequencervm/storage"
)

const (
	Name = "sequencer"

	shutdownTimeout = 5 * time.Second
)

var Version = &version.Semantic{
	Major: 0,
	Minor: 1,
	Patch: 0,
}

func main() {
	v, err := getViper(os.Args[1:])
	if err != nil {
		fmt.Printf("couldn't get config: %s\n", err)
		os.Exit(1)
	}
	// Print version and exit
	if v.GetBool(versionKey) {
		fmt.Printf("%s@%s\n", Name, Version)
		os.Exit(0)
	}

	c, err := buildConfig(v)
	if err != nil {
		fmt.Printf("invalid config: %s\n", err)
		os.Exit(1)
	}

	lvl, err := log.LvlFromString(c.LogLevel)
	if err != nil {
		fmt.Printf("invalid log level: %s\n", err)
		os.Exit(1)
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, log.TerminalFormat())))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c); err != nil {
		log.Error("sequencer exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *config) error {
	log.Info("starting sequencer", "version", Version, "db", c.DBType)

	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return err
	}

	db, err := openDatabase(c, registry)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", "err", err)
		}
	}()
	state, err := storage.NewState(db, registry)
	if err != nil {
		return err
	}
	defer func() {
		if err := state.Close(); err != nil {
			log.Error("failed to close state", "err", err)
		}
	}()

	node, err := sequencer.NewNode(
		c.Node,
		state,
		counter.Kernel{},
		sequencer.NewRollupInjector(c.RollupNodeURI, c.InjectionTimeout),
		registry,
	)
	if err != nil {
		return err
	}

	handler, err := sequencer.NewHandler(node, registry)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              net.JoinHostPort(c.HTTPHost, strconv.Itoa(int(c.HTTPPort))),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return supervise(ctx, node, sequencer.NewTezosListener(c.TezosNodeURI), server)
}

// supervise serves [server] and runs [node] until [ctx] is done. The actor
// runs detached from [ctx] so that the entries queued before shutdown are
// still applied.
func supervise(ctx context.Context, node *sequencer.Node, watcher sequencer.HeaderWatcher, server *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return node.Run(context.Background())
	})
	g.Go(func() error {
		return node.Follow(gctx, watcher)
	})
	g.Go(func() error {
		log.Info("serving http", "addr", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "backlog", node.Backlog())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		node.Shutdown()
		return err
	})
	return g.Wait()
}

func openDatabase(c *config, registerer prometheus.Registerer) (database.Database, error) {
	switch c.DBType {
	case memdbType:
		return memdb.New(), nil
	default:
		return leveldb.New(c.DBPath, nil, logging.NoLog{}, "leveldb", registerer)
	}
}
