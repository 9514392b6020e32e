// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotKey is the store key for the persisted attempt. The "2" suffix
// versions the snapshot format; a change that breaks decoding bumps it,
// which makes stale snapshots read as absent instead of corrupt.
const SnapshotKey = "validation2"

// Snapshot is the crash-safe record of an attempt: the composite state
// and the full extended context, written after every transition.
type Snapshot struct {
	State   State     `json:"state"`
	Context *Context  `json:"context"`
	SavedAt time.Time `json:"savedAt"`
}

// DecodeSnapshot parses a stored snapshot blob.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode the session snapshot: %w", err)
	}
	if snap.Context == nil {
		return Snapshot{}, fmt.Errorf("failed to decode the session snapshot: missing context")
	}
	return snap, nil
}

func encodeSnapshot(st State, vc *Context, now time.Time) ([]byte, error) {
	return json.Marshal(Snapshot{State: st, Context: vc, SavedAt: now})
}
