// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

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
	var configPath string
	cmd := &cobra.Command{
		Use:          "classifier",
		Short:        "Live EOG eye-movement classifier and command server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Println("starting eog-controller classifier")
			if err := config.InitGlobal(configPath); err != nil {
				log.Fatalf("failed to load config: %v", err)
			}
			cfg := config.Get()
			if err := app.SetupLogging(cfg.LogLevel); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.RunClassifier(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "eog_config.txt", "configuration file")
	return cmd
}
