// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"

	"github.com/attest-net/attest/pkg/config"
	"github.com/attest-net/attest/pkg/session"
	"github.com/attest-net/attest/pkg/store"
)

func runReset(cmd *cobra.Command, args []string) error {
	st, err := store.Open(store.DefaultConfig(config.ExpandHome(config.Global.Storage.DataDir)))
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Clear(session.SnapshotKey); err != nil {
		return err
	}
	cmd.Println("Persisted validation attempt cleared.")
	return nil
}
