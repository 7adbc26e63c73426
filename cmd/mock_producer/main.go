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
	var (
		configPath string
		script     string
	)
	cmd := &cobra.Command{
		Use:          "mock_producer",
		Short:        "Stream synthetic EOG samples and ground truth",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Println("starting eog-controller MQTT producer (mock)")
			if err := config.InitGlobal(configPath); err != nil {
				log.Fatalf("failed to load config: %v", err)
			}
			cfg := config.Get()
			if script != "" {
				cfg.MockScript = script
			}
			if err := app.SetupLogging(cfg.LogLevel); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.RunMockProducer(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "eog_config.txt", "configuration file")
	cmd.Flags().StringVar(&script, "script", "", "override MOCK_SCRIPT, e.g. rest:2,left:1")
	return cmd
}
