// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attest-net/attest/pkg/flip"
	"github.com/attest-net/attest/pkg/session"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSession(c *gin.Context) {
	m := s.source()
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active validation session"})
		return
	}
	c.JSON(http.StatusOK, m.View())
}

func (s *Server) handleFlips(c *gin.Context) {
	m := s.source()
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active validation session"})
		return
	}
	v := m.View()
	c.JSON(http.StatusOK, gin.H{
		"flips":        v.Flips,
		"currentIndex": v.CurrentIndex,
		"solvable":     v.Solvable,
		"answered":     v.Answered,
	})
}

// handleTimer serves the advisory countdown toward the current phase
// deadline. Display only; the engine enforces deadlines on its own.
func (s *Server) handleTimer(c *gin.Context) {
	m := s.source()
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active validation session"})
		return
	}
	v := m.View()
	if v.Terminal {
		c.JSON(http.StatusNotFound, gin.H{"error": "the session has finished"})
		return
	}
	snap := s.countdownFor(v)
	c.JSON(http.StatusOK, gin.H{
		"state":            snap.State.String(),
		"elapsedSeconds":   snap.Elapsed.Seconds(),
		"durationSeconds":  snap.Duration.Seconds(),
		"remainingSeconds": snap.Remaining().Seconds(),
	})
}

// eventRequest is the wire form of a user command. Type selects the
// event; the remaining fields apply per type.
type eventRequest struct {
	Type      string `json:"type" binding:"required"`
	Hash      string `json:"hash"`
	Option    int    `json:"option"`
	Index     int    `json:"index"`
	Relevance int    `json:"relevance"`
}

func (r eventRequest) toEvent() (session.Event, error) {
	switch r.Type {
	case "ANSWER":
		if r.Hash == "" {
			return nil, fmt.Errorf("ANSWER requires a hash")
		}
		return session.AnswerEvent{Hash: r.Hash, Option: r.Option}, nil
	case "TOGGLE_WORDS":
		if r.Hash == "" {
			return nil, fmt.Errorf("TOGGLE_WORDS requires a hash")
		}
		return session.ToggleWordsEvent{Hash: r.Hash, Relevance: flip.Relevance(r.Relevance)}, nil
	case "SUBMIT":
		return session.SubmitEvent{}, nil
	case "PREV":
		return session.PrevEvent{}, nil
	case "NEXT":
		return session.NextEvent{}, nil
	case "PICK":
		return session.PickEvent{Index: r.Index}, nil
	case "START_LONG_SESSION":
		return session.StartLongSessionEvent{}, nil
	case "FINISH_FLIPS":
		return session.FinishFlipsEvent{}, nil
	case "START_KEYWORDS_QUALIFICATION":
		return session.StartKeywordsEvent{}, nil
	case "RETRY_SUBMIT":
		return session.RetrySubmitEvent{}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", r.Type)
	}
}

func (s *Server) handleEvent(c *gin.Context) {
	m := s.source()
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active validation session"})
		return
	}
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m.Dispatch(ev)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "type": req.Type})
}
