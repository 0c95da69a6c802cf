// Copyright 2026 The FASQ Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main is a runnable demonstration of FASQ's full stack: a
// QueryClient backed by an encrypted, write-behind BadgerDB persistence
// layer, wired through one Query and one offline-aware Mutation.
//
// It is not a test harness — it exists so the wiring between packages
// (cache, query, queryclient, persistence, security, codec,
// internal/config, internal/logging) is exercised by a real binary, the
// way cartographus's cmd/server wires its own subsystems together.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/fasq/cache"
	"github.com/tomtom215/fasq/codec"
	"github.com/tomtom215/fasq/internal/config"
	"github.com/tomtom215/fasq/internal/logging"
	"github.com/tomtom215/fasq/metrics"
	"github.com/tomtom215/fasq/offlinequeue"
	"github.com/tomtom215/fasq/persistence"
	"github.com/tomtom215/fasq/query"
	"github.com/tomtom215/fasq/queryclient"
	"github.com/tomtom215/fasq/security"
)

// Article is the demo's cached payload type, registered with the codec
// registry so persisted records survive a process restart.
type Article struct {
	ID    string
	Title string
	Body  string
}

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("starting fasqdemo")

	registry := codec.NewRegistry(codec.NewJSONCodec())
	codec.Register[Article](registry, "article")

	store, err := persistence.OpenBadgerStore(persistence.DefaultBadgerStoreConfig("./fasqdemo-data"))
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open persistence store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing persistence store")
		}
	}()

	keyStore := security.NewInMemoryKeyStore()
	encryptor := security.NewAESGCMEncryptor()

	c, err := cache.New(cache.Config{
		Name:             "fasqdemo",
		DefaultStaleTime: 30 * time.Second,
		DefaultCacheTime: 5 * time.Minute,
		Eviction:         "lru",
		MaxEntries:       10_000,
		MetricsEnabled:   true,
		Persistence: &cache.PersistenceOptions{
			Store:           store,
			Codec:           registry,
			Encrypt:         true,
			Encryptor:       encryptor,
			KeyStore:        keyStore,
			KeyName:         "fasqdemo-primary",
			ExpiresAtPolicy: "ttl",
		},
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create cache")
	}
	defer func() {
		if err := c.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing cache")
		}
	}()

	monitor := metrics.NewPerformanceMonitor()
	monitor.Register("fasqdemo", c)

	network := offlinequeue.NewNetworkStatus(true)
	queue := offlinequeue.NewManager(network, false)
	defer queue.Close()

	client := queryclient.New(c, network, queue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	if err := runDemo(ctx, client, monitor); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("demo run failed")
		os.Exit(1)
	}

	logging.Info().Msg("fasqdemo finished")
}

// runDemo attaches a Query for one article, issues an offline-aware
// Mutation against it, and prints a metrics snapshot before returning.
func runDemo(ctx context.Context, client *queryclient.Client, monitor *metrics.PerformanceMonitor) error {
	fetchArticle := func(ctx context.Context) (Article, error) {
		return Article{ID: "42", Title: "Stale-while-revalidate", Body: "fetched from origin"}, nil
	}

	q, err := queryclient.GetQuery[Article](client, "article:42", fetchArticle, query.Options[Article]{
		StaleTime: 30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("get query: %w", err)
	}

	observer := q.Attach(ctx)
	defer observer.Close()

	select {
	case state := <-observer.Stream():
		logging.Info().Str("status", state.Status.String()).Msg("initial query state")
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timed out waiting for initial query state")
	}

	for {
		select {
		case state := <-observer.Stream():
			logging.Info().Str("status", state.Status.String()).Msg("query state transition")
			if state.Status == query.StatusSuccess {
				renameArticle := func(ctx context.Context, newTitle string) (Article, error) {
					return Article{ID: "42", Title: newTitle, Body: state.Data.Body}, nil
				}
				mutation := query.NewMutation[Article, string](renameArticle, query.MutationOptions{
					QueueWhenOffline: true,
				}, query.MutationHooks[Article, string]{
					OnSuccess: func(_ context.Context, data Article, _ any) {
						logging.Info().Str("title", data.Title).Msg("mutation succeeded")
					},
				}, nil, nil)
				mutation.Mutate(ctx, "Stale-while-revalidate (renamed)")

				snap := monitor.Snapshot()
				if s, ok := snap.Caches["fasqdemo"]; ok {
					logging.Info().
						Int64("hits", s.Hits).
						Int64("misses", s.Misses).
						Float64("hit_ratio", s.HitRatio()).
						Msg("cache snapshot")
				}
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return fmt.Errorf("timed out waiting for query success")
		}
	}
}
