// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

// Package metrics exposes Prometheus instrumentation for the supervision
// core. All collectors are registered on the default registry via promauto;
// a host application serves them with promhttp alongside its own metrics.
package metrics
