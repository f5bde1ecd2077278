// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/picore-systems/supercore/pkg/config"
	"github.com/picore-systems/supercore/pkg/logging"
	"github.com/picore-systems/supercore/pkg/sealing"
	"github.com/picore-systems/supercore/services/accelerator"
	"github.com/picore-systems/supercore/services/apps"
	"github.com/picore-systems/supercore/services/compliance"
	"github.com/picore-systems/supercore/services/controller"
	"github.com/picore-systems/supercore/services/controller/observability"
	"github.com/picore-systems/supercore/services/controller/routes"
	"github.com/picore-systems/supercore/services/ledger"
	"github.com/picore-systems/supercore/services/shield"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline and its HTTP command surface",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		LogDir:  cfg.LogDir,
		Service: "supercore",
		JSON:    true,
	})
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTelEndpoint, "supercore-controller")
	if err != nil {
		return fmt.Errorf("tracer setup: %w", err)
	}
	defer shutdownTracer(context.Background())

	sealer := sealing.New(cfg.SealKey)
	state := compliance.NewState()
	gate := compliance.NewGate(logger)

	var source compliance.Source
	if cfg.ComplianceURL != "" {
		source = compliance.NewHTTPSource(cfg.ComplianceURL)
	} else {
		logger.Info("no compliance endpoint configured, using static source")
		source = compliance.StaticSource{Compliant: true}
	}
	enforcer := compliance.NewEnforcer(state, source, logger)

	sh, err := shield.New(gate, sealer, logger)
	if err != nil {
		return fmt.Errorf("shield setup: %w", err)
	}

	var archive *ledger.Store
	if cfg.LedgerPath != "" {
		archive, err = ledger.OpenStore(ledger.StoreConfig{Path: cfg.LedgerPath, SyncWrites: true})
		if err != nil {
			return fmt.Errorf("ledger archive: %w", err)
		}
		defer archive.Close()
	}
	engine := ledger.NewEngine(gate, sealer, archive, logger)

	accel := accelerator.New(gate, state, enforcer, cfg.NodePoolSize, logger)
	fleet := apps.New(gate, sh, sealer, accel, logger)

	metrics := observability.Default()
	engine.OnCommit = metrics.TransactionsCommittedTotal.Inc
	sh.OnQuarantine = metrics.QuarantineEventsTotal.Inc

	ctrl := controller.New(controller.Config{
		State:    state,
		Enforcer: enforcer,
		Shield:   sh,
		Ledger:   engine,
		Accel:    accel,
		Apps:     fleet,
		Metrics:  metrics,
		Interval: cfg.SupervisionInterval,
		Log:      logger,
	})

	controllerDone := make(chan error, 1)
	go func() {
		controllerDone <- ctrl.Run(ctx)
	}()

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	routes.SetupRoutes(router, ctrl, routes.Options{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.ListenAndServe()
	}()
	logger.Info("command surface listening", "port", cfg.Port)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case err := <-controllerDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("controller stopped", "error", err)
		} else {
			logger.Info("controller stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	stop()
	return nil
}
