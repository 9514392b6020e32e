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
	"github.com/attest-net/attest/pkg/logging"
)

var (
	configPath   string
	traceEnabled bool

	log *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "attest",
		Short: "A client for timed proof-of-personhood validation ceremonies",
		Long: `Attest drives a validation ceremony end to end: it watches the
node for the session window, fetches and decodes the flip sets, collects
answers through its local API, and submits them before the protocol
deadlines. Progress is persisted after every step, so a crashed client
resumes mid-session.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				cfg, err := config.LoadFrom(configPath)
				if err != nil {
					return err
				}
				config.Global = *cfg
			} else if err := config.Load(); err != nil {
				return err
			}

			var err error
			log, err = logging.New(logging.Config{
				Level:   logging.ParseLevel(config.Global.Logging.Level),
				JSON:    config.Global.Logging.JSON,
				LogDir:  config.Global.Logging.Dir,
				Service: "attest",
			})
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Close()
			}
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Watch the node and drive validation sessions as they open",
		RunE:  runRun, // Defined in cmd_run.go
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the node's epoch state and any persisted attempt",
		RunE:  runStatus, // Defined in cmd_status.go
	}

	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Discard the persisted validation attempt",
		RunE:  runReset, // Defined in cmd_reset.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the config file (default ~/.attest/attest.yaml)")
	runCmd.Flags().BoolVar(&traceEnabled, "trace", false, "print transition traces to stdout")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
}
