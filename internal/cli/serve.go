// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of passkeyd.
//
// passkeyd is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/passkeyd/passkeyd/internal/config"
	"github.com/passkeyd/passkeyd/internal/server"
)

const defaultConfigPath = "/etc/passkeyd/config.yaml"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the passkey authentication server",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		if configPath == "" {
			if _, err := os.Stat(defaultConfigPath); err == nil {
				configPath = defaultConfigPath
			}
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		srv, err := server.New(cfg)
		if err != nil {
			return fmt.Errorf("create server: %w", err)
		}

		shutdownCtx := setupSignalHandler()

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil {
				errChan <- err
			}
		}()

		select {
		case <-shutdownCtx.Done():
			slog.Info("shutdown signal received")
		case err := <-errChan:
			return err
		}

		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Stop(stopCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		slog.Info("server stopped")
		return nil
	},
}

// setupSignalHandler cancels the returned context on SIGINT or SIGTERM.
func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalCh
		cancel()
	}()

	return ctx
}
