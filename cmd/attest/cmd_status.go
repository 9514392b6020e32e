// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/attest-net/attest/pkg/config"
	"github.com/attest-net/attest/pkg/node"
	"github.com/attest-net/attest/pkg/session"
	"github.com/attest-net/attest/pkg/store"
)

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Global
	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	client := node.New(cfg.Node.URL, cfg.Node.APIKey,
		node.WithTimeout(cfg.Node.Timeout.Std()))

	ep, err := client.Epoch(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Epoch:           %d\n", ep.Epoch)
	cmd.Printf("Period:          %s\n", ep.CurrentPeriod)
	cmd.Printf("Next validation: %s\n", ep.NextValidation.Format(time.RFC3339))

	if id, err := client.Identity(ctx); err != nil {
		cmd.Printf("Identity:        unavailable (%v)\n", err)
	} else {
		cmd.Printf("Identity:        %s (%s), eligible=%t\n", id.Address, id.State, id.CanValidate())
	}

	st, err := store.Open(store.DefaultConfig(config.ExpandHome(cfg.Storage.DataDir)))
	if err != nil {
		cmd.Printf("Attempt:         store unavailable (%v)\n", err)
		return nil
	}
	defer st.Close()

	snap, found, err := session.LoadSnapshot(st, log.Logger)
	switch {
	case err != nil:
		cmd.Printf("Attempt:         unreadable (%v)\n", err)
	case !found:
		cmd.Println("Attempt:         none")
	default:
		cmd.Printf("Attempt:         %s, epoch %d, state %s, saved %s\n",
			snap.Context.AttemptID, snap.Context.Epoch, snap.State.String(),
			snap.SavedAt.Format(time.RFC3339))
	}
	return nil
}
