// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/streamdps/dps"
	"github.com/streamdps/dps/observability"
	"github.com/streamdps/dps/observability/health"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the configured backend and host observability endpoints",
	Long: `Start a dps process against the configured backend and expose its
/metrics, /health/live, /health/ready, and /health/startup endpoints over
HTTP. The process itself is reached by other programs in the same binary
through dps.Global() — serve is meant for sidecar-style deployments where
operators want a health/metrics port without writing Go.

Example:
  dpsctl serve
  dpsctl serve --config my-config.yaml --obs-addr :9100`,
	RunE: runServe,
}

var (
	serveObsAddr string
	serveNode    string
)

func init() {
	serveCmd.Flags().StringVar(&serveObsAddr, "obs-addr", ":9100", "address to host /metrics and /health endpoints on")
	serveCmd.Flags().StringVar(&serveNode, "node", "", "node name reported in logs and metric labels (default: hostname)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	node := serveNode
	if node == "" {
		if h, err := os.Hostname(); err == nil {
			node = h
		} else {
			node = "dpsctl"
		}
	}

	log.Printf("connecting to backend (config=%q)...", cfgPath)
	proc := dps.Global()
	if err := proc.Initialize(cfgPath); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	log.Printf("connected: backend=%s", proc.BackendName())

	obsCfg := observability.DefaultConfig()
	manager, err := observability.NewManager(&observability.ManagerConfig{
		Component: node,
		Config:    obsCfg,
	})
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	manager.AddReadinessCheck(health.NewBackendChecker(proc.BackendName(), proc.Driver()))
	manager.MarkReady()

	srv := &http.Server{
		Addr:    serveObsAddr,
		Handler: manager.Middleware().Handler(manager.HTTPHandler()),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Printf("observability endpoints listening on %s", serveObsAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("observability server: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("shutdown signal received")
	case err := <-errChan:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("observability server shutdown error: %v", err)
	}
	if err := manager.Shutdown(ctx); err != nil {
		log.Printf("observability manager shutdown error: %v", err)
	}
	if err := proc.Shutdown(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Println("dpsctl serve stopped")
	return nil
}
