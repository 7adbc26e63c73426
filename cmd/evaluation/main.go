// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/eog_controller/internal/app"
	"github.com/relabs-tech/eog_controller/internal/config"
	"github.com/relabs-tech/eog_controller/internal/store"
)

var (
	configPath string
	dbPath     string
	listLimit  int
	showJSON   bool
	totalSpace string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "evaluation",
		Short:        "Inspect stored evaluation sessions",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "eog_config.txt", "configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "session database, defaults to EVAL_DB_PATH")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return app.ListSessions(cmd.Context(), st, listLimit, cmd.OutOrStdout())
		},
	}
	listCmd.Flags().IntVarP(&listLimit, "last", "n", 20, "number of sessions, 0 for all")

	showCmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session; a unique id prefix is enough",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return app.ShowSession(cmd.Context(), st, args[0], showJSON, cmd.OutOrStdout())
		},
	}
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the exported JSON document")

	totalsCmd := &cobra.Command{
		Use:   "totals",
		Short: "Per-class counts pooled over every session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return app.ShowTotals(cmd.Context(), st, totalSpace, cmd.OutOrStdout())
		},
	}
	totalsCmd.Flags().StringVar(&totalSpace, "space", "classes", "label space: classes or commands")

	rootCmd.AddCommand(listCmd, showCmd, totalsCmd)
	return rootCmd
}

func openStore() (*store.Store, error) {
	path := dbPath
	if path == "" {
		if err := config.InitGlobal(configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		path = config.Get().EvalDBPath
	}
	return store.Open(path)
}
