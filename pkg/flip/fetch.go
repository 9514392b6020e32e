// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flip

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// fetchWorkers bounds the number of parallel content fetches.
const fetchWorkers = 8

// ContentFetcher retrieves one flip payload by hash. found=false means
// the node does not (yet) have the content; an error means transport
// failure.
type ContentFetcher interface {
	Flip(ctx context.Context, hash string) (payload []byte, found bool, err error)
}

// FetchAll retrieves every hash concurrently, tolerating partial failure:
// a hash whose fetch errors or is not found resolves to fetched=false
// without aborting the others. Results are returned in input order, one
// per hash, and only once every individual fetch has resolved.
//
// FetchAll does not retry; retry is the session machine's fail-and-delay
// transition. The only error returned is context cancellation.
func FetchAll(ctx context.Context, fetcher ContentFetcher, hashes []string) ([]Patch, error) {
	patches := make([]Patch, len(hashes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchWorkers)
	for i, hash := range hashes {
		g.Go(func() error {
			payload, found, err := fetcher.Flip(gctx, hash)
			fetched := err == nil && found
			p := Patch{Hash: hash, Fetched: &fetched}
			if fetched {
				p.Payload = payload
			}
			patches[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return patches, nil
}
