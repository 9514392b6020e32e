// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"time"

	"github.com/attest-net/attest/pkg/flip"
)

// FlipView is one flip as exposed to the UI. Images marshal as base64.
type FlipView struct {
	Hash      string         `json:"hash"`
	Fetched   bool           `json:"fetched"`
	Decoded   bool           `json:"decoded"`
	Failed    bool           `json:"failed"`
	Extra     bool           `json:"extra"`
	Answered  bool           `json:"answered"`
	Option    int            `json:"option"`
	Relevance flip.Relevance `json:"relevance"`
	Words     []string       `json:"words,omitempty"`
	Images    [][]byte       `json:"images,omitempty"`
	Orders    [][]int        `json:"orders,omitempty"`
}

// View is a consistent read-only projection of the attempt, published
// after every transition and served by the local API.
type View struct {
	AttemptID    string            `json:"attemptId"`
	Epoch        uint32            `json:"epoch"`
	Phase        string            `json:"phase"`
	Terminal     bool              `json:"terminal"`
	Stages       map[string]string `json:"stages"`
	CurrentIndex int               `json:"currentIndex"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Deadline     time.Time         `json:"deadline,omitempty"`

	// Flips is the navigable list of the active phase.
	Flips    []FlipView `json:"flips"`
	Solvable int        `json:"solvable"`
	Answered int        `json:"answered"`
}

// View builds the current projection. Safe to call from any goroutine.
func (m *Machine) View() View {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, vc := m.st, m.vc
	v := View{
		AttemptID:    vc.AttemptID,
		Epoch:        vc.Epoch,
		Phase:        st.Phase.String(),
		Terminal:     st.Phase.Terminal(),
		Stages:       st.Labels(),
		CurrentIndex: vc.CurrentIndex,
		ErrorMessage: vc.ErrorMessage,
	}
	if st.Phase.Terminal() {
		v.Flips = []FlipView{}
		return v
	}

	switch st.Phase {
	case PhaseShortSession:
		v.Deadline = vc.ValidationStart.Add(vc.autoSubmitOffset())
	case PhaseLongSession:
		v.Deadline = vc.ValidationStart.Add(vc.longCheckOffset())
	}

	list := vc.navList(st.Phase)
	v.Flips = make([]FlipView, 0, len(list))
	for _, f := range list {
		v.Flips = append(v.Flips, FlipView{
			Hash:      f.Hash,
			Fetched:   f.Fetched,
			Decoded:   f.Decoded,
			Failed:    f.Failed,
			Extra:     f.Extra,
			Answered:  f.Answered(),
			Option:    f.Option,
			Relevance: f.Relevance,
			Words:     f.Words,
			Images:    f.Images,
			Orders:    f.Orders,
		})
	}
	active := vc.flips(activeKind(st.Phase))
	v.Solvable = len(flip.SolvableFlips(active))
	v.Answered = answeredCount(active)
	return v
}
