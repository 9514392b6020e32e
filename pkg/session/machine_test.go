// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attest-net/attest/pkg/flip"
	"github.com/attest-net/attest/pkg/node"
)

// fakeNode is an in-memory NodeClient with scriptable failures.
type fakeNode struct {
	mu          sync.Mutex
	shortHashes []flip.HashEntry
	longHashes  []flip.HashEntry
	payloads    map[string][]byte
	words       map[string][]int

	hashFailures int // initial FlipHashes calls that error
	submitErr    error

	shortBatches [][]flip.Answer
	longBatches  [][]flip.Answer
}

func (n *fakeNode) FlipHashes(_ context.Context, kind node.SessionKind) ([]flip.HashEntry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.hashFailures > 0 {
		n.hashFailures--
		return nil, errors.New("node not ready")
	}
	if kind == node.LongSession {
		return n.longHashes, nil
	}
	return n.shortHashes, nil
}

func (n *fakeNode) Flip(_ context.Context, hash string) ([]byte, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	payload, ok := n.payloads[hash]
	return payload, ok, nil
}

func (n *fakeNode) FlipWords(_ context.Context, hash string) ([]int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.words[hash], nil
}

func (n *fakeNode) SubmitShortAnswers(_ context.Context, answers []flip.Answer, _ int, _ uint32) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.submitErr != nil {
		return n.submitErr
	}
	n.shortBatches = append(n.shortBatches, answers)
	return nil
}

func (n *fakeNode) SubmitLongAnswers(_ context.Context, answers []flip.Answer, _ int, _ uint32) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.submitErr != nil {
		return n.submitErr
	}
	n.longBatches = append(n.longBatches, answers)
	return nil
}

func (n *fakeNode) setSubmitErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitErr = err
}

// memStore is a map-backed SnapshotStore with the same nil-clears
// contract as the badger-backed one.
type memStore struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemStore() *memStore { return &memStore{m: make(map[string][]byte)} }

func (s *memStore) Save(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == nil {
		delete(s.m, key)
		return nil
	}
	s.m[key] = append([]byte(nil), value...)
	return nil
}

func (s *memStore) Load(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[key], nil
}

func (s *memStore) Clear(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func validPayload(t *testing.T) []byte {
	t.Helper()
	data, err := rlp.EncodeToBytes(struct {
		Images [][]byte
		Orders [][][]byte
	}{
		Images: [][]byte{{0x89, 0x50}, {0x4e, 0x47}},
		Orders: [][][]byte{{{0x00}, {0x01}}, {{0x01}, {0x00}}},
	})
	require.NoError(t, err)
	return data
}

func fastDelays() Delays {
	return Delays{
		Retry:       10 * time.Millisecond,
		Settle:      10 * time.Millisecond,
		Bump:        500 * time.Millisecond,
		WordsSettle: 20 * time.Millisecond,
	}
}

func testConfig(n *fakeNode, st SnapshotStore) Config {
	return Config{
		Epoch:                7,
		ValidationStart:      time.Now(),
		ShortSessionDuration: 120 * time.Second,
		LongSessionDuration:  1800 * time.Second,
		Node:                 n,
		Store:                st,
		Logger:               slog.New(slog.DiscardHandler),
		Delays:               fastDelays(),
	}
}

func waitForView(t *testing.T, m *Machine, cond func(View) bool) View {
	t.Helper()
	var last View
	require.Eventually(t, func() bool {
		last = m.View()
		return cond(last)
	}, 5*time.Second, 5*time.Millisecond, "last view: %+v", last)
	return last
}

func TestMachine_FullValidationFlow(t *testing.T) {
	payload := validPayload(t)
	n := &fakeNode{
		shortHashes: []flip.HashEntry{
			{Hash: "s1", Ready: true},
			{Hash: "s2", Ready: true},
		},
		longHashes: []flip.HashEntry{
			{Hash: "l1", Ready: true},
			{Hash: "l2", Ready: true},
		},
		payloads:     map[string][]byte{"s1": payload, "s2": payload, "l1": payload, "l2": payload},
		words:        map[string][]int{"l1": {0, 1}, "l2": {2, 3}},
		hashFailures: 1, // first hash request fails and is retried
	}
	st := newMemStore()
	m := New(testConfig(n, st))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	// Short session: the fetch loop completes despite the initial hash
	// failure.
	waitForView(t, m, func(v View) bool {
		return v.Phase == "shortSession" && v.Solvable == 2 && v.Stages["fetch"] == "done"
	})

	m.Dispatch(AnswerEvent{Hash: "s1", Option: 1})
	m.Dispatch(NextEvent{})
	m.Dispatch(AnswerEvent{Hash: "s2", Option: 2})
	waitForView(t, m, func(v View) bool { return v.Answered == 2 })
	m.Dispatch(SubmitEvent{})

	// Long session: flips and keywords arrive.
	waitForView(t, m, func(v View) bool {
		return v.Phase == "longSession" && v.Solvable == 2 && v.Stages["words"] == "done"
	})

	m.Dispatch(StartLongSessionEvent{})
	m.Dispatch(AnswerEvent{Hash: "l1", Option: 1})
	m.Dispatch(AnswerEvent{Hash: "l2", Option: 1})
	m.Dispatch(FinishFlipsEvent{})
	m.Dispatch(StartKeywordsEvent{})
	m.Dispatch(ToggleWordsEvent{Hash: "l2", Relevance: flip.Irrelevant})
	m.Dispatch(SubmitEvent{})

	select {
	case <-m.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("machine did not finish")
	}
	assert.Equal(t, PhaseSucceeded, m.Result())

	n.mu.Lock()
	defer n.mu.Unlock()
	require.Len(t, n.shortBatches, 1)
	assert.Equal(t, []flip.Answer{
		{Hash: "s1", Answer: 1},
		{Hash: "s2", Answer: 2},
	}, n.shortBatches[0])
	require.Len(t, n.longBatches, 1)
	assert.Equal(t, []flip.Answer{
		{Hash: "l1", Answer: 1},
		{Hash: "l2", Answer: 1, WrongWords: true},
	}, n.longBatches[0])

	// The terminal snapshot survives for the resume check.
	data, err := st.Load(SnapshotKey)
	require.NoError(t, err)
	snap, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.True(t, snap.State.Phase.Terminal())
	assert.Equal(t, uint32(7), snap.Context.Epoch)
}

func TestMachine_SubmitFailureSurfacesAndRetries(t *testing.T) {
	payload := validPayload(t)
	n := &fakeNode{
		shortHashes: []flip.HashEntry{{Hash: "s1", Ready: true}},
		longHashes:  []flip.HashEntry{{Hash: "l1", Ready: true}},
		payloads:    map[string][]byte{"s1": payload, "l1": payload},
		words:       map[string][]int{"l1": {0, 1}},
	}
	n.setSubmitErr(errors.New("mempool full"))
	st := newMemStore()
	m := New(testConfig(n, st))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	waitForView(t, m, func(v View) bool { return v.Stages["fetch"] == "done" })
	m.Dispatch(AnswerEvent{Hash: "s1", Option: 1})
	m.Dispatch(SubmitEvent{})

	v := waitForView(t, m, func(v View) bool { return v.Stages["answer"] == "submitFailed" })
	assert.Contains(t, v.ErrorMessage, "mempool full")

	// No automatic retry: the machine stays put until told.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "submitFailed", m.View().Stages["answer"])

	n.setSubmitErr(nil)
	m.Dispatch(RetrySubmitEvent{})
	waitForView(t, m, func(v View) bool { return v.Phase == "longSession" })
}

func TestMachine_DeadlineWithoutQuorumFails(t *testing.T) {
	// The node never has any content, so nothing becomes solvable and
	// the forced-submission deadline fails the attempt.
	n := &fakeNode{
		shortHashes: []flip.HashEntry{{Hash: "s1", Ready: true}},
		payloads:    map[string][]byte{},
	}
	st := newMemStore()
	cfg := testConfig(n, st)
	cfg.ShortSessionDuration = 10*time.Second + 150*time.Millisecond // deadline 150ms in

	m := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	select {
	case <-m.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("machine did not fail at the deadline")
	}
	assert.Equal(t, PhaseFailed, m.Result())
	n.mu.Lock()
	defer n.mu.Unlock()
	assert.Empty(t, n.shortBatches)
}

func TestMachine_RestoreResumesInFlightSubmission(t *testing.T) {
	payload := validPayload(t)
	n := &fakeNode{
		longHashes: []flip.HashEntry{{Hash: "l1", Ready: true}},
		payloads:   map[string][]byte{"l1": payload},
		words:      map[string][]int{"l1": {0, 1}},
	}
	st := newMemStore()

	// A crash mid short submission: the saved state is submitting and
	// both flips are answered.
	snap := Snapshot{
		State: State{Phase: PhaseShortSession, Fetch: FetchDone, Answer: AnswerSubmitting},
		Context: &Context{
			AttemptID:            "restored",
			Epoch:                7,
			ValidationStart:      time.Now().Add(-30 * time.Second),
			ShortSessionDuration: 120 * time.Second,
			LongSessionDuration:  1800 * time.Second,
			ShortFlips: []flip.Flip{
				{Hash: "s1", Fetched: true, Decoded: true, Option: 1},
				{Hash: "s2", Fetched: true, Decoded: true, Option: 2},
			},
		},
	}

	cfg := testConfig(n, st)
	m := Restore(cfg, snap)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	// Resume re-fires the submission and moves on to the long session.
	waitForView(t, m, func(v View) bool { return v.Phase == "longSession" })

	n.mu.Lock()
	defer n.mu.Unlock()
	require.Len(t, n.shortBatches, 1)
	assert.Len(t, n.shortBatches[0], 2)
}

func TestMachine_SnapshotWrittenAfterEveryTransition(t *testing.T) {
	payload := validPayload(t)
	n := &fakeNode{
		shortHashes: []flip.HashEntry{{Hash: "s1", Ready: true}},
		payloads:    map[string][]byte{"s1": payload},
	}
	st := newMemStore()
	m := New(testConfig(n, st))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	waitForView(t, m, func(v View) bool { return v.Stages["fetch"] == "done" })
	m.Dispatch(AnswerEvent{Hash: "s1", Option: 1})

	var snap Snapshot
	require.Eventually(t, func() bool {
		data, err := st.Load(SnapshotKey)
		if err != nil || data == nil {
			return false
		}
		snap, err = DecodeSnapshot(data)
		return err == nil && len(snap.Context.ShortFlips) == 1 && snap.Context.ShortFlips[0].Option == 1
	}, 5*time.Second, 5*time.Millisecond, "the recorded answer must reach the snapshot")
	assert.Equal(t, FetchDone, snap.State.Fetch)
}

func TestMachine_SubscribePublishesViews(t *testing.T) {
	payload := validPayload(t)
	n := &fakeNode{
		shortHashes: []flip.HashEntry{{Hash: "s1", Ready: true}},
		payloads:    map[string][]byte{"s1": payload},
	}
	m := New(testConfig(n, newMemStore()))

	views, unsubscribe := m.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	select {
	case v := <-views:
		assert.Equal(t, "shortSession", v.Phase)
	case <-time.After(5 * time.Second):
		t.Fatal("no view published")
	}
}
