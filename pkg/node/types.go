// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package node

import "time"

// EpochPeriod is the server-tracked phase of the current epoch.
type EpochPeriod string

const (
	PeriodNone             EpochPeriod = "None"
	PeriodFlipLottery      EpochPeriod = "FlipLottery"
	PeriodShortSession     EpochPeriod = "ShortSession"
	PeriodLongSession      EpochPeriod = "LongSession"
	PeriodAfterLongSession EpochPeriod = "AfterLongSession"
)

// Epoch describes the node's view of the current validation period.
type Epoch struct {
	Epoch          uint32      `json:"epoch"`
	NextValidation time.Time   `json:"nextValidation"`
	CurrentPeriod  EpochPeriod `json:"currentPeriod"`
}

// Identity is the subset of the node identity record the client needs.
type Identity struct {
	Address          string `json:"address"`
	State            string `json:"state"`
	Online           bool   `json:"online"`
	RequiredFlips    int    `json:"requiredFlips"`
	MadeFlips        int    `json:"madeFlips"`
	FlipKeyWordPairs []any  `json:"flipKeyWordPairs,omitempty"`
}

// validatableStates are the identity states eligible to take part in a
// validation ceremony.
var validatableStates = map[string]bool{
	"Candidate": true,
	"Newbie":    true,
	"Verified":  true,
	"Human":     true,
	"Suspended": true,
	"Zombie":    true,
}

// CanValidate reports whether the identity is eligible to validate in
// the upcoming ceremony.
func (id Identity) CanValidate() bool {
	return validatableStates[id.State]
}

// CeremonyIntervals carries the session durations announced by the node,
// in seconds.
type CeremonyIntervals struct {
	FlipLotteryDuration  float64 `json:"FlipLotteryDuration"`
	ShortSessionDuration float64 `json:"ShortSessionDuration"`
	LongSessionDuration  float64 `json:"LongSessionDuration"`
}
