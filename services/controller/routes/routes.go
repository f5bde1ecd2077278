// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/picore-systems/supercore/services/controller"
	"github.com/picore-systems/supercore/services/controller/handlers"
	"github.com/picore-systems/supercore/services/controller/middleware"
)

// Options tunes the route setup.
type Options struct {
	// RateLimitRPS is the sustained request rate for /v1. Zero or
	// less disables rate limiting.
	RateLimitRPS float64

	// RateLimitBurst is the burst allowance for /v1.
	RateLimitBurst int

	// Gatherer serves /metrics. Nil selects the default registry.
	Gatherer prometheus.Gatherer
}

// SetupRoutes registers the controller API on the router.
func SetupRoutes(router *gin.Engine, ctrl *controller.Controller, opts Options) {
	router.GET("/health", handlers.HealthCheck)

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/v1")
	if opts.RateLimitRPS > 0 {
		v1.Use(middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	}
	{
		v1.POST("/execute", handlers.Execute(ctrl))
		v1.GET("/dashboard", handlers.Dashboard(ctrl))
		v1.GET("/ledger/history", handlers.LedgerHistory(ctrl))
		v1.GET("/shield/records", handlers.ShieldRecords(ctrl))
	}
}
