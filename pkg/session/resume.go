// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"log/slog"

	"github.com/attest-net/attest/pkg/node"
)

// LoadSnapshot reads the persisted attempt, if any. A missing key
// returns found=false; a corrupt blob is cleared and treated as absent,
// since a snapshot that cannot be decoded cannot be resumed either.
func LoadSnapshot(st SnapshotStore, log *slog.Logger) (Snapshot, bool, error) {
	data, err := st.Load(SnapshotKey)
	if err != nil {
		return Snapshot{}, false, err
	}
	if data == nil {
		return Snapshot{}, false, nil
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		log.Warn("discarding an undecodable session snapshot", "error", err)
		_ = st.Clear(SnapshotKey)
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

// ShouldStart decides whether a validation attempt should begin now,
// given the node's epoch view, the identity record and any persisted
// snapshot:
//
//   - outside the short session period, or with an ineligible identity,
//     never start;
//   - no usable snapshot: start fresh;
//   - snapshot from this epoch: start (resuming) unless the attempt
//     already finished;
//   - snapshot from an older epoch: clear it, and start only if that
//     old attempt had finished;
//   - snapshot from a future epoch means clock or state corruption:
//     refuse to start.
func ShouldStart(ep node.Epoch, id node.Identity, st SnapshotStore, log *slog.Logger) bool {
	if ep.CurrentPeriod != node.PeriodShortSession {
		return false
	}
	if !id.CanValidate() {
		log.Info("identity is not eligible to validate", "state", id.State)
		return false
	}

	snap, found, err := LoadSnapshot(st, log)
	if err != nil {
		log.Warn("failed to read the session snapshot, starting fresh", "error", err)
		return true
	}
	if !found {
		return true
	}

	isDone := snap.State.Phase.Terminal()
	switch {
	case ep.Epoch < snap.Context.Epoch:
		log.Error("persisted snapshot is from a future epoch, refusing to start",
			"snapshot_epoch", snap.Context.Epoch, "node_epoch", ep.Epoch)
		return false
	case ep.Epoch > snap.Context.Epoch:
		if err := st.Clear(SnapshotKey); err != nil {
			log.Warn("failed to clear the stale session snapshot", "error", err)
		}
		return isDone
	default:
		return !isDone
	}
}
