// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/eog_controller/internal/app"
	"github.com/relabs-tech/eog_controller/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		duration   time.Duration
	)
	cmd := &cobra.Command{
		Use:          "console",
		Short:        "Replay the mock script through the classifier offline",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Println("starting eog-controller (mock console)")
			if err := config.InitGlobal(configPath); err != nil {
				log.Fatalf("failed to load config: %v", err)
			}
			cfg := config.Get()
			if err := app.SetupLogging(cfg.LogLevel); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			_, err := app.RunMockConsole(ctx, cfg, duration, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "eog_config.txt", "configuration file")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 30*time.Second, "simulated session length")
	return cmd
}
