// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package session drives one validation attempt: fetching and decoding
// the flip sets, collecting answers, and submitting them before the
// protocol deadlines.
//
// The design separates the protocol rules from their execution. All
// rules live in the pure transition function; the Machine is a thin
// event loop that feeds it user commands, timer firings and invocation
// results, persists a snapshot after every step, and launches the
// effects the transition requested. Timers and invocations are scoped
// to a per-region generation counter, so work started under a stage
// that has since been exited is dropped when it completes instead of
// corrupting the current stage.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/attest-net/attest/pkg/flip"
	"github.com/attest-net/attest/pkg/node"
	"github.com/attest-net/attest/pkg/words"
)

// wordsFetchWorkers bounds parallel keyword lookups.
const wordsFetchWorkers = 4

// NodeClient is the subset of the node RPC surface the machine drives.
// *node.Client satisfies it; tests inject fakes.
type NodeClient interface {
	FlipHashes(ctx context.Context, kind node.SessionKind) ([]flip.HashEntry, error)
	Flip(ctx context.Context, hash string) (payload []byte, found bool, err error)
	FlipWords(ctx context.Context, hash string) ([]int, error)
	SubmitShortAnswers(ctx context.Context, answers []flip.Answer, clientType int, epoch uint32) error
	SubmitLongAnswers(ctx context.Context, answers []flip.Answer, clientType int, epoch uint32) error
}

// SnapshotStore persists the attempt snapshot. *store.Store satisfies it.
type SnapshotStore interface {
	Save(key string, value []byte) error
	Load(key string) ([]byte, error)
	Clear(key string) error
}

// Config assembles a Machine's dependencies and epoch parameters.
type Config struct {
	Epoch                uint32
	ValidationStart      time.Time
	ShortSessionDuration time.Duration
	LongSessionDuration  time.Duration

	Node  NodeClient
	Store SnapshotStore

	Logger *slog.Logger

	// Delays overrides the protocol waits; the zero value means
	// DefaultDelays. Tests shrink these to run in milliseconds.
	Delays Delays

	// Clock overrides the wall clock used for deadline arithmetic.
	Clock func() time.Time

	// ClientType tags submissions with the client implementation id.
	ClientType int
}

// Machine runs one validation attempt. All state mutation happens on a
// single event-loop goroutine; readers get consistent copies via View.
type Machine struct {
	cfg    Config
	log    *slog.Logger
	clock  func() time.Time
	delays Delays
	tracer trace.Tracer

	mu sync.RWMutex
	st State
	vc *Context

	// gens is touched only by the event loop.
	gens [regionCount]uint64

	events  chan Event
	entry   Event
	runCtx  context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool

	subMu   sync.Mutex
	subs    map[int]chan View
	nextSub int
}

// New builds a Machine for a fresh attempt.
func New(cfg Config) *Machine {
	vc := &Context{
		AttemptID:            uuid.NewString(),
		Epoch:                cfg.Epoch,
		ValidationStart:      cfg.ValidationStart,
		ShortSessionDuration: cfg.ShortSessionDuration,
		LongSessionDuration:  cfg.LongSessionDuration,
	}
	return newMachine(cfg, shortEntry(), vc, startEvent{})
}

// Restore rebuilds a Machine from a persisted snapshot. Deadlines are
// recomputed from the wall clock on Start, so time spent down counts
// against the attempt.
func Restore(cfg Config, snap Snapshot) *Machine {
	return newMachine(cfg, snap.State, snap.Context, resumeEvent{})
}

func newMachine(cfg Config, st State, vc *Context, entry Event) *Machine {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	delays := cfg.Delays
	if delays == (Delays{}) {
		delays = DefaultDelays()
	}
	return &Machine{
		cfg:    cfg,
		log:    log.With("component", "session", "attempt_id", vc.AttemptID),
		clock:  clock,
		delays: delays,
		tracer: otel.Tracer("attest/session"),
		st:     st,
		vc:     vc,
		events: make(chan Event, 128),
		entry:  entry,
		done:   make(chan struct{}),
		subs:   make(map[int]chan View),
	}
}

// Start launches the event loop. The machine stops when it reaches a
// terminal phase or when ctx is cancelled.
func (m *Machine) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	m.runCtx, m.cancel = context.WithCancel(ctx)
	m.events <- m.entry
	go m.run()
}

// Dispatch queues a user command. Commands that do not apply to the
// current state are ignored by the transition function.
func (m *Machine) Dispatch(ev Event) {
	m.enqueue(ev)
}

// Done is closed once the attempt reaches a terminal phase.
func (m *Machine) Done() <-chan struct{} { return m.done }

// Result returns the current phase; meaningful as an outcome once Done
// is closed.
func (m *Machine) Result() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Phase
}

// Subscribe returns a channel receiving a View after every transition,
// plus a cancel function. Slow subscribers miss intermediate views
// rather than stalling the loop.
func (m *Machine) Subscribe() (<-chan View, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextSub
	m.nextSub++
	ch := make(chan View, 8)
	m.subs[id] = ch
	return ch, func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(ch)
		}
	}
}

func (m *Machine) run() {
	defer m.cancel()
	for {
		select {
		case <-m.runCtx.Done():
			return
		case ev := <-m.events:
			if m.step(ev) {
				close(m.done)
				return
			}
		}
	}
}

// step applies one event: stale-check, transition, generation
// bookkeeping, persistence, notification, effect launch. Returns true
// when the attempt reached a terminal phase.
func (m *Machine) step(ev Event) bool {
	if se, ok := ev.(scopedEvent); ok {
		r, gen := se.scope()
		if gen != m.gens[r] {
			staleEventsTotal.Inc()
			m.log.Debug("dropped a stale event", "event", ev.eventName(), "region", int(r))
			return false
		}
	}

	now := m.clock()
	_, span := m.tracer.Start(m.runCtx, "session.transition",
		trace.WithAttributes(
			attribute.String("event", ev.eventName()),
			attribute.String("state.from", m.st.String()),
		))

	m.mu.Lock()
	prev := m.st
	next, effects := transition(m.st, m.vc, ev, now, m.delays)
	m.st = next
	m.mu.Unlock()

	m.bumpGenerations(prev, next)

	span.SetAttributes(attribute.String("state.to", next.String()))
	span.End()
	observeEvent(ev)
	if next.Phase != prev.Phase {
		phaseGauge.Set(float64(next.Phase))
		m.log.Info("phase changed", "from", prev.Phase.String(), "to", next.Phase.String())
	}

	m.persist(now)
	m.notify()

	for _, eff := range effects {
		m.execute(eff)
	}
	return next.Phase.Terminal()
}

// bumpGenerations invalidates pending work scoped to exited stages. A
// phase change invalidates everything.
func (m *Machine) bumpGenerations(prev, next State) {
	if next.Phase != prev.Phase {
		for r := range m.gens {
			m.gens[r]++
		}
		return
	}
	if next.Fetch != prev.Fetch {
		m.gens[regionFetch]++
	}
	if next.Words != prev.Words {
		m.gens[regionWords]++
	}
	if next.Answer != prev.Answer {
		m.gens[regionAnswer]++
	}
}

// persist writes the snapshot. A write failure is logged and the
// session carries on; the next transition retries.
func (m *Machine) persist(now time.Time) {
	m.mu.RLock()
	data, err := encodeSnapshot(m.st, m.vc, now)
	m.mu.RUnlock()
	if err != nil {
		m.log.Error("failed to encode the session snapshot", "error", err)
		return
	}
	if err := m.cfg.Store.Save(SnapshotKey, data); err != nil {
		m.log.Error("failed to persist the session snapshot", "error", err)
	}
}

func (m *Machine) notify() {
	view := m.View()
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- view:
		default:
		}
	}
}

func (m *Machine) enqueue(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.log.Warn("event queue full, dropping", "event", ev.eventName())
	}
}

// execute launches one effect, stamped with the current generation of
// its region.
func (m *Machine) execute(eff Effect) {
	gen := m.gens[eff.effectRegion()]
	switch eff := eff.(type) {
	case timerEffect:
		time.AfterFunc(eff.delay, func() {
			m.enqueue(timerEvent{region: eff.region, gen: gen, kind: eff.kind})
		})
	case fetchHashesEffect:
		go func() {
			entries, err := m.cfg.Node.FlipHashes(m.runCtx, eff.kind)
			m.enqueue(hashesFetchedEvent{gen: gen, entries: entries, err: err})
		}()
	case fetchFlipsEffect:
		go func() {
			patches, err := flip.FetchAll(m.runCtx, m.cfg.Node, eff.hashes)
			m.enqueue(flipsFetchedEvent{gen: gen, patches: patches, err: err})
		}()
	case decodeFlipsEffect:
		go func() {
			m.enqueue(flipsDecodedEvent{gen: gen, patches: flip.DecodeBatch(eff.flips)})
		}()
	case fetchWordsEffect:
		go func() {
			m.enqueue(wordsFetchedEvent{gen: gen, patches: m.fetchWords(eff.hashes)})
		}()
	case submitEffect:
		go func() {
			var err error
			if eff.kind == node.LongSession {
				err = m.cfg.Node.SubmitLongAnswers(m.runCtx, eff.answers, m.cfg.ClientType, m.cfg.Epoch)
			} else {
				err = m.cfg.Node.SubmitShortAnswers(m.runCtx, eff.answers, m.cfg.ClientType, m.cfg.Epoch)
			}
			status := "ok"
			if err != nil {
				status = "error"
				m.log.Warn("answer submission failed", "session", eff.kind.String(), "error", err)
			}
			submissionsTotal.WithLabelValues(eff.kind.String(), status).Inc()
			m.enqueue(submitDoneEvent{gen: gen, err: err})
		}()
	}
}

// fetchWords resolves keyword pairs for the given hashes. Lookups are
// tolerant: a failed or empty lookup yields no patch, and the words
// region's settle loop retries it next round.
func (m *Machine) fetchWords(hashes []string) []flip.Patch {
	var (
		patchMu sync.Mutex
		patches []flip.Patch
	)
	g, ctx := errgroup.WithContext(m.runCtx)
	g.SetLimit(wordsFetchWorkers)
	for _, hash := range hashes {
		g.Go(func() error {
			indices, err := m.cfg.Node.FlipWords(ctx, hash)
			if err != nil {
				m.log.Warn("keyword lookup failed", "hash", hash, "error", err)
				return nil
			}
			resolved := words.Resolve(indices)
			if len(resolved) == 0 {
				return nil
			}
			patchMu.Lock()
			patches = append(patches, flip.Patch{Hash: hash, Words: resolved})
			patchMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return patches
}
