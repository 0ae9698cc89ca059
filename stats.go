// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package kennel

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/kennel/internal/metrics"
)

// IntercomStatus is a point-in-time snapshot of one intercom channel's
// statistics. Counters are monotonic for the life of one activation's
// channel; connections decrease only when a sender clone is closed.
//
// The snapshot is not guaranteed to be coherent across fields: each counter
// is read atomically but the set is not taken under one lock.
type IntercomStatus struct {
	NumberSent        uint64 `json:"sent"`
	NumberReceived    uint64 `json:"received"`
	NumberConnections uint64 `json:"connections"`

	// Processing speed is the running mean/variance of the wall-clock
	// delta between consecutive recv calls, in seconds.
	ProcessingSpeedMean              float64 `json:"processing_speed_mean"`
	ProcessingSpeedVariance          float64 `json:"processing_speed_variance"`
	ProcessingSpeedStandardDeviation float64 `json:"processing_speed_standard_deviation"`
}

// intercomStats carries the live counters of one intercom channel. The
// counters are atomics; the running mean/variance uses Welford's online
// algorithm on inter-recv deltas and is guarded by a mutex that is never
// held across a suspension point.
type intercomStats struct {
	service string

	sent        atomic.Uint64
	received    atomic.Uint64
	connections atomic.Int64

	mu       sync.Mutex
	count    uint64
	mean     float64
	m2       float64
	lastRecv time.Time
}

func newIntercomStats(service string) *intercomStats {
	return &intercomStats{service: service}
}

func (s *intercomStats) recordSent() {
	s.sent.Add(1)
	metrics.IntercomSent.WithLabelValues(s.service).Inc()
}

func (s *intercomStats) recordReceived(now time.Time) {
	s.received.Add(1)
	metrics.IntercomReceived.WithLabelValues(s.service).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastRecv.IsZero() {
		x := now.Sub(s.lastRecv).Seconds()
		s.count++
		delta := x - s.mean
		s.mean += delta / float64(s.count)
		s.m2 += delta * (x - s.mean)
	}
	s.lastRecv = now
}

func (s *intercomStats) addConnection() {
	s.connections.Add(1)
	metrics.IntercomConnections.WithLabelValues(s.service).Inc()
}

func (s *intercomStats) dropConnection() int64 {
	metrics.IntercomConnections.WithLabelValues(s.service).Dec()
	return s.connections.Add(-1)
}

// snapshot returns the current statistics without blocking senders or the
// receiver.
func (s *intercomStats) snapshot() IntercomStatus {
	s.mu.Lock()
	mean := s.mean
	variance := 0.0
	if s.count > 0 {
		variance = s.m2 / float64(s.count)
	}
	s.mu.Unlock()

	connections := s.connections.Load()
	if connections < 0 {
		connections = 0
	}

	return IntercomStatus{
		NumberSent:                       s.sent.Load(),
		NumberReceived:                   s.received.Load(),
		NumberConnections:                uint64(connections),
		ProcessingSpeedMean:              mean,
		ProcessingSpeedVariance:          variance,
		ProcessingSpeedStandardDeviation: math.Sqrt(variance),
	}
}
