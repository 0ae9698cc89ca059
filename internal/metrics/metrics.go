// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package instruments:
// - Intercom channel traffic (per service)
// - Watchdog command dispatch
// - Service lifecycle (restarts)
//
// The snapshot statistics carried by StatusReport remain the source of truth
// for the library API; these metrics are the operational export.

var (
	// Intercom Metrics
	IntercomSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kennel_intercom_sent_total",
			Help: "Total number of intercom messages accepted by send, per service",
		},
		[]string{"service"},
	)

	IntercomReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kennel_intercom_received_total",
			Help: "Total number of intercom messages delivered to recv, per service",
		},
		[]string{"service"},
	)

	IntercomConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kennel_intercom_connections",
			Help: "Current number of live intercom sender clones, per service",
		},
		[]string{"service"},
	)

	// Watchdog Metrics
	WatchdogCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kennel_watchdog_commands_total",
			Help: "Total number of control commands dispatched by the watchdog",
		},
		[]string{"command"}, // "start", "stop", "status", "intercom", "shutdown", "kill"
	)

	// Service Lifecycle Metrics
	ServiceRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kennel_service_restarts_total",
			Help: "Total number of Shutdown to Starting transitions, per service",
		},
		[]string{"service"},
	)

	ServicePanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kennel_service_panics_total",
			Help: "Total number of panics recovered from service tasks, per service",
		},
		[]string{"service"},
	)
)
