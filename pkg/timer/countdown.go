// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package timer implements the advisory countdown sub-machine shown by
// the UI during a validation session.
//
// The countdown is tick-counted and purely presentational: protocol
// deadlines are enforced by the session engine from absolute wall-clock
// arithmetic, never from this machine.
package timer

import (
	"context"
	"sync"
	"time"
)

// State is the countdown's machine state.
type State int

const (
	// Running means ticks accumulate elapsed time.
	Running State = iota
	// Stopped means elapsed has reached the target duration.
	Stopped
)

func (s State) String() string {
	if s == Stopped {
		return "stopped"
	}
	return "running"
}

// Snapshot is a read-only projection of the countdown for display.
type Snapshot struct {
	State    State         `json:"state"`
	Elapsed  time.Duration `json:"elapsed"`
	Duration time.Duration `json:"duration"`
}

// Remaining is the display value: target minus elapsed, floored at zero.
func (s Snapshot) Remaining() time.Duration {
	if s.Elapsed >= s.Duration {
		return 0
	}
	return s.Duration - s.Elapsed
}

// Countdown alternates between running and stopped based on an
// elapsed-vs-target comparison. Elapsed is monotonically non-decreasing
// while running; a reset zeroes it without touching target or interval.
// Safe for concurrent use.
type Countdown struct {
	mu       sync.Mutex
	state    State
	elapsed  time.Duration
	duration time.Duration
	interval time.Duration
}

// New builds a running countdown with zero elapsed time. A non-positive
// interval defaults to one second.
func New(duration, interval time.Duration) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	c := &Countdown{state: Running, duration: duration, interval: interval}
	c.reevaluate()
	return c
}

// Run ticks the countdown every interval until ctx is cancelled. The
// countdown has no terminal state; the owner cancels when discarding it.
func (c *Countdown) Run(ctx context.Context) {
	c.mu.Lock()
	interval := c.interval
	c.mu.Unlock()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Tick()
		case <-ctx.Done():
			return
		}
	}
}

// Tick advances elapsed by one interval when running; a no-op while
// stopped. Exposed so owners driving their own clock (and tests) can
// tick without real time passing.
func (c *Countdown) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running {
		return
	}
	c.elapsed += c.interval
	c.reevaluate()
}

// SetDuration replaces the target duration without resetting elapsed
// time. A bump past the current elapsed value restarts a stopped
// countdown.
func (c *Countdown) SetDuration(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duration = d
	c.reevaluate()
}

// Reset zeroes elapsed time without changing duration or interval.
func (c *Countdown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elapsed = 0
	c.reevaluate()
}

// Snapshot returns the current display projection.
func (c *Countdown) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{State: c.state, Elapsed: c.elapsed, Duration: c.duration}
}

// reevaluate applies the guarded running<->stopped transitions. Callers
// must hold the mutex.
func (c *Countdown) reevaluate() {
	if c.elapsed >= c.duration {
		c.state = Stopped
	} else {
		c.state = Running
	}
}
