// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/attest-net/attest/pkg/api"
	"github.com/attest-net/attest/pkg/config"
	"github.com/attest-net/attest/pkg/node"
	"github.com/attest-net/attest/pkg/session"
	"github.com/attest-net/attest/pkg/store"
)

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := config.Global

	if traceEnabled {
		shutdown, err := setupTracing()
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	client := node.New(cfg.Node.URL, cfg.Node.APIKey,
		node.WithTimeout(cfg.Node.Timeout.Std()),
		node.WithRateLimit(cfg.Node.RequestsPerSecond),
	)

	st, err := store.Open(store.DefaultConfig(config.ExpandHome(cfg.Storage.DataDir)))
	if err != nil {
		return err
	}
	defer st.Close()

	r := &runner{
		client: client,
		store:  st,
		log:    log.Logger,
		poll:   cfg.Node.EpochPollInterval.Std(),
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.API.ListenAddr != "" {
		srv := api.New(cfg.API.ListenAddr, r.current, log.Logger)
		g.Go(func() error { return srv.Run(gctx) })
	}
	g.Go(func() error { return r.loop(gctx) })

	log.Info("attest client started", "node", cfg.Node.URL, "api", cfg.API.ListenAddr)
	return g.Wait()
}

func setupTracing() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// runner polls the node's epoch state and owns the machine of the
// current attempt. One attempt runs at a time; a finished machine is
// kept around for the API until the next session replaces it.
type runner struct {
	client *node.Client
	store  *store.Store
	log    *slog.Logger
	poll   time.Duration

	mu      sync.RWMutex
	machine *session.Machine
}

func (r *runner) current() *session.Machine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.machine
}

func (r *runner) setMachine(m *session.Machine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.machine = m
}

func (r *runner) loop(ctx context.Context) error {
	poll := r.poll
	if poll <= 0 {
		poll = 10 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		r.tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// tick is one poll round: if no attempt is running and the node says the
// session window is open for an eligible identity, start (or resume) one.
func (r *runner) tick(ctx context.Context) {
	if m := r.current(); m != nil {
		select {
		case <-m.Done():
		default:
			return // an attempt is in flight
		}
	}

	ep, err := r.client.Epoch(ctx)
	if err != nil {
		r.log.Warn("failed to read the epoch state", "error", err)
		return
	}
	id, err := r.client.Identity(ctx)
	if err != nil {
		r.log.Warn("failed to read the identity record", "error", err)
		return
	}
	if !session.ShouldStart(ep, id, r.store, r.log) {
		return
	}

	intervals, err := r.client.CeremonyIntervals(ctx)
	if err != nil {
		r.log.Warn("failed to read the ceremony intervals", "error", err)
		return
	}

	cfg := session.Config{
		Epoch:                ep.Epoch,
		ValidationStart:      ep.NextValidation,
		ShortSessionDuration: secondsToDuration(intervals.ShortSessionDuration),
		LongSessionDuration:  secondsToDuration(intervals.LongSessionDuration),
		Node:                 r.client,
		Store:                r.store,
		Logger:               r.log,
	}

	var m *session.Machine
	if snap, found, err := session.LoadSnapshot(r.store, r.log); err == nil && found && snap.Context.Epoch == ep.Epoch {
		r.log.Info("resuming the persisted validation attempt",
			"attempt_id", snap.Context.AttemptID, "epoch", ep.Epoch)
		m = session.Restore(cfg, snap)
	} else {
		r.log.Info("starting a validation attempt", "epoch", ep.Epoch,
			"validation_start", ep.NextValidation)
		m = session.New(cfg)
	}

	m.Start(ctx)
	r.setMachine(m)
	go func() {
		select {
		case <-ctx.Done():
		case <-m.Done():
			r.log.Info("validation attempt finished", "result", m.Result().String())
		}
	}()
}

func secondsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
