// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package node is the JSON-RPC client for the network node.
//
// Error contract (matched by the session machine's retry logic):
//
//   - transport problems (connection refused, timeout, malformed reply)
//     return an error and are retried by the caller;
//   - an RPC-level error on content retrieval means "not found" and is
//     reported as found=false, never as an error;
//   - RPC-level errors on other methods are returned as *RPCError.
package node

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/attest-net/attest/pkg/flip"
)

// SessionKind selects the short or long session item set.
type SessionKind int

const (
	ShortSession SessionKind = iota
	LongSession
)

func (k SessionKind) String() string {
	if k == LongSession {
		return "long"
	}
	return "short"
}

// RPCError is an error reported by the node itself, as opposed to a
// transport failure.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return fmt.Sprintf("node: %s (code %d)", e.Message, e.Code) }

// HTTPClient allows injecting a mock transport in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks JSON-RPC 2.0 to a single node endpoint. Safe for
// concurrent use.
type Client struct {
	url     string
	apiKey  string
	hc      HTTPClient
	limiter *rate.Limiter
	nextID  atomic.Int64
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP transport.
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.hc = hc }
}

// WithRateLimit throttles outgoing calls to rps requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithTimeout bounds a single RPC round trip. Only applies to the
// default transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if hc, ok := c.hc.(*http.Client); ok && d > 0 {
			hc.Timeout = d
		}
	}
}

// New builds a Client for the given endpoint.
func New(url, apiKey string, opts ...Option) *Client {
	c := &Client{
		url:    url,
		apiKey: apiKey,
		hc:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type rpcRequest struct {
	Version string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	Key     string `json:"key,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{
		Version: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
		Key:     c.apiKey,
	})
	if err != nil {
		return fmt.Errorf("failed to encode the %s request: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build the %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s call failed: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s call failed: unexpected status %d", method, resp.StatusCode)
	}
	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode the %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("failed to decode the %s result: %w", method, err)
		}
	}
	return nil
}

// Epoch returns the node's view of the current epoch and period.
func (c *Client) Epoch(ctx context.Context) (Epoch, error) {
	var ep Epoch
	err := c.call(ctx, "dna_epoch", nil, &ep)
	return ep, err
}

// Identity returns the identity record of the node's own address.
func (c *Client) Identity(ctx context.Context) (Identity, error) {
	var id Identity
	err := c.call(ctx, "dna_identity", nil, &id)
	return id, err
}

// CeremonyIntervals returns the session durations for the epoch.
func (c *Client) CeremonyIntervals(ctx context.Context) (CeremonyIntervals, error) {
	var iv CeremonyIntervals
	err := c.call(ctx, "dna_ceremonyIntervals", nil, &iv)
	return iv, err
}

// FlipHashes retrieves the ordered hash list for a session.
func (c *Client) FlipHashes(ctx context.Context, kind SessionKind) ([]flip.HashEntry, error) {
	method := "flip_shortHashes"
	if kind == LongSession {
		method = "flip_longHashes"
	}
	var entries []flip.HashEntry
	if err := c.call(ctx, method, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Flip retrieves one flip's raw payload by content hash. A node-side
// error means the content is not (yet) available and yields found=false;
// only transport failures surface as errors.
func (c *Client) Flip(ctx context.Context, hash string) ([]byte, bool, error) {
	var result struct {
		Hex string `json:"hex"`
	}
	err := c.call(ctx, "flip_get", []any{hash}, &result)
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return nil, false, nil
		}
		return nil, false, err
	}
	payload, err := hex.DecodeString(strings.TrimPrefix(result.Hex, "0x"))
	if err != nil {
		return nil, false, fmt.Errorf("flip %s: malformed hex payload: %w", hash, err)
	}
	return payload, true, nil
}

// FlipWords retrieves the vocabulary indices of a flip's keyword hints.
func (c *Client) FlipWords(ctx context.Context, hash string) ([]int, error) {
	var result struct {
		Words []int `json:"words"`
	}
	if err := c.call(ctx, "flip_words", []any{hash}, &result); err != nil {
		return nil, err
	}
	return result.Words, nil
}

type answerBatch struct {
	Answers    []flip.Answer `json:"answers"`
	ClientType int           `json:"nonce"`
	Epoch      uint32        `json:"epoch"`
}

// SubmitShortAnswers submits the short session answer batch.
func (c *Client) SubmitShortAnswers(ctx context.Context, answers []flip.Answer, clientType int, epoch uint32) error {
	return c.call(ctx, "flip_submitShortAnswers",
		[]any{answerBatch{Answers: answers, ClientType: clientType, Epoch: epoch}}, nil)
}

// SubmitLongAnswers submits the long session answer batch, including the
// per-flip wrong-words verdicts.
func (c *Client) SubmitLongAnswers(ctx context.Context, answers []flip.Answer, clientType int, epoch uint32) error {
	return c.call(ctx, "flip_submitLongAnswers",
		[]any{answerBatch{Answers: answers, ClientType: clientType, Epoch: epoch}}, nil)
}
