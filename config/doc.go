// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

// Package config loads the host-facing configuration of a watchdog.
//
// Configuration is layered, lowest priority first:
//
//  1. Struct defaults (Default)
//  2. A YAML config file (kennel.yaml, or KENNEL_CONFIG_PATH)
//  3. KENNEL_-prefixed environment variables
//
// Example file:
//
//	logging:
//	  level: debug
//	  format: console
//	pools:
//	  shared_workers: 8
//	  drain_timeout: 5s
//	intercom:
//	  capacity: 10
//
// The result feeds Builder.WithConfig and logging.Init.
package config
