// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package api serves the local HTTP surface a UI drives the validation
// client through: session state reads, command dispatch, a websocket
// state stream, and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/attest-net/attest/pkg/session"
	"github.com/attest-net/attest/pkg/timer"
)

// MachineSource yields the currently running session machine, if any.
// The runner swaps machines between epochs, so handlers resolve it per
// request instead of holding one.
type MachineSource func() *session.Machine

// Server is the local API server. Bind it to loopback; it carries no
// authentication of its own.
type Server struct {
	log    *slog.Logger
	source MachineSource
	engine *gin.Engine
	http   *http.Server

	// The display countdown for the current phase deadline. Rebuilt
	// whenever the attempt or phase changes; purely presentational.
	timerMu   sync.Mutex
	countdown *timer.Countdown
	timerKey  string
	timerStop context.CancelFunc
}

// New builds a Server listening on addr.
func New(addr string, source MachineSource, log *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		log:    log.With("component", "api"),
		source: source,
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.setupRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1")
	{
		v1.GET("/session", s.handleSession)
		v1.GET("/session/flips", s.handleFlips)
		v1.GET("/session/timer", s.handleTimer)
		v1.POST("/session/events", s.handleEvent)
		v1.GET("/session/ws", s.handleWebSocket)
	}
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.stopCountdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// countdownFor returns the display countdown tracking the given view's
// deadline, rebuilding it when the attempt or phase has changed since
// the last request.
func (s *Server) countdownFor(view session.View) timer.Snapshot {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	key := view.AttemptID + "/" + view.Phase
	if key != s.timerKey {
		if s.timerStop != nil {
			s.timerStop()
		}
		runCtx, cancel := context.WithCancel(context.Background())
		s.countdown = timer.New(time.Until(view.Deadline), time.Second)
		s.timerKey = key
		s.timerStop = cancel
		go s.countdown.Run(runCtx)
	}
	return s.countdown.Snapshot()
}

func (s *Server) stopCountdown() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timerStop != nil {
		s.timerStop()
		s.timerStop = nil
	}
}
