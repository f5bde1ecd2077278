// Copyright (C) 2026 PiCore Systems (maintainers@picore.systems)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the controller's HTTP handlers.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/picore-systems/supercore/services/accelerator"
	"github.com/picore-systems/supercore/services/compliance"
	"github.com/picore-systems/supercore/services/controller"
	"github.com/picore-systems/supercore/services/ledger"
	"github.com/picore-systems/supercore/services/shield"
)

// ExecuteRequest is the body of POST /v1/execute. Params are
// positional; each command defines its own sequence.
type ExecuteRequest struct {
	Command string   `json:"command" binding:"required"`
	Params  []string `json:"params"`
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Execute dispatches a command to the controller.
func Execute(ctrl *controller.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ExecuteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := ctrl.Execute(c.Request.Context(), req.Command, req.Params)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": result})
	}
}

// statusFor maps command failures to HTTP status codes. Screening
// refusals are the caller's fault; a halted pipeline is unavailability.
func statusFor(err error) int {
	var rejection *compliance.RejectionError
	var quarantine *shield.QuarantineError
	switch {
	case errors.As(err, &rejection), errors.As(err, &quarantine):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidProof):
		return http.StatusUnprocessableEntity
	case errors.Is(err, accelerator.ErrHalted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// Dashboard returns the operator summary.
func Dashboard(ctrl *controller.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, ctrl.Snapshot())
	}
}

// LedgerHistory returns the committed transaction log.
func LedgerHistory(ctrl *controller.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"transactions": ctrl.History()})
	}
}

// ShieldRecords returns the quarantine journal.
func ShieldRecords(ctrl *controller.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"records": ctrl.QuarantineRecords()})
	}
}
