// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// Loopback-only server; the UI connects from file:// or localhost.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket streams a View on connect and after every machine
// transition until the client disconnects.
func (s *Server) handleWebSocket(c *gin.Context) {
	m := s.source()
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active validation session"})
		return
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error("failed to upgrade the websocket", "error", err)
		return
	}
	defer ws.Close()
	s.log.Info("websocket client connected", "remote", ws.RemoteAddr().String())

	views, unsubscribe := m.Subscribe()
	defer unsubscribe()

	// Drain the client side so closes are noticed promptly.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := ws.WriteJSON(m.View()); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			s.log.Info("websocket client disconnected")
			return
		case v, ok := <-views:
			if !ok {
				return
			}
			if err := ws.WriteJSON(v); err != nil {
				s.log.Warn("failed to write a websocket view", "error", err)
				return
			}
		}
	}
}
