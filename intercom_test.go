// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package kennel

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIntercomChannel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	t.Run("messages from one sender arrive in send order", func(t *testing.T) {
		tx, rx, _ := newIntercom[int]("order", 4)

		for i := range 4 {
			if err := tx.Send(ctx, i); err != nil {
				t.Fatalf("send %d: %v", i, err)
			}
		}
		for i := range 4 {
			got, err := rx.Recv(ctx)
			if err != nil {
				t.Fatalf("recv %d: %v", i, err)
			}
			if got != i {
				t.Errorf("recv %d: got %d", i, got)
			}
		}
	})

	t.Run("send suspends when the queue is full", func(t *testing.T) {
		tx, rx, _ := newIntercom[int]("full", 2)

		if err := tx.Send(ctx, 1); err != nil {
			t.Fatal(err)
		}
		if err := tx.Send(ctx, 2); err != nil {
			t.Fatal(err)
		}

		unblocked := make(chan struct{})
		go func() {
			_ = tx.Send(ctx, 3)
			close(unblocked)
		}()

		select {
		case <-unblocked:
			t.Fatal("send should suspend on a full queue")
		case <-time.After(30 * time.Millisecond):
		}

		if _, err := rx.Recv(ctx); err != nil {
			t.Fatal(err)
		}
		select {
		case <-unblocked:
		case <-time.After(time.Second):
			t.Fatal("send should complete once the queue has room")
		}
	})

	t.Run("send fails once the receiver is dropped", func(t *testing.T) {
		tx, rx, _ := newIntercom[int]("dropped", 2)
		rx.Close()

		if err := tx.Send(ctx, 1); !errors.Is(err, ErrIntercomDisconnected) {
			t.Errorf("expected ErrIntercomDisconnected, got %v", err)
		}
	})

	t.Run("recv drains the queue after the last sender leaves", func(t *testing.T) {
		tx, rx, _ := newIntercom[int]("drain", 4)

		if err := tx.Send(ctx, 7); err != nil {
			t.Fatal(err)
		}
		tx.Close()

		got, err := rx.Recv(ctx)
		if err != nil {
			t.Fatalf("queued message should still be delivered: %v", err)
		}
		if got != 7 {
			t.Errorf("got %d, want 7", got)
		}

		if _, err := rx.Recv(ctx); !errors.Is(err, ErrIntercomClosed) {
			t.Errorf("expected ErrIntercomClosed, got %v", err)
		}
	})

	t.Run("recv honors context cancellation", func(t *testing.T) {
		_, rx, _ := newIntercom[int]("cancel", 2)

		shortCtx, shortCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer shortCancel()

		if _, err := rx.Recv(shortCtx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}

func TestIntercomStatistics(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	t.Run("counters track sends, receives, and connections", func(t *testing.T) {
		tx, rx, stats := newIntercom[string]("counters", 4)

		snap := stats.snapshot()
		if snap.NumberConnections != 1 {
			t.Fatalf("fresh channel should have one connection, got %d", snap.NumberConnections)
		}

		clone := tx.Clone()
		if got := stats.snapshot().NumberConnections; got != 2 {
			t.Errorf("clone should raise connections to 2, got %d", got)
		}

		for i := range 3 {
			if err := clone.Send(ctx, fmt.Sprintf("m%d", i)); err != nil {
				t.Fatal(err)
			}
		}
		for range 2 {
			if _, err := rx.Recv(ctx); err != nil {
				t.Fatal(err)
			}
		}

		snap = stats.snapshot()
		if snap.NumberSent != 3 {
			t.Errorf("sent = %d, want 3", snap.NumberSent)
		}
		if snap.NumberReceived != 2 {
			t.Errorf("received = %d, want 2", snap.NumberReceived)
		}

		clone.Close()
		if got := stats.snapshot().NumberConnections; got != 1 {
			t.Errorf("close should lower connections to 1, got %d", got)
		}
	})

	t.Run("counters never decrease except connections on drop", func(t *testing.T) {
		tx, rx, stats := newIntercom[int]("monotonic", 8)

		var lastSent, lastReceived uint64
		for i := range 5 {
			if err := tx.Send(ctx, i); err != nil {
				t.Fatal(err)
			}
			if _, err := rx.Recv(ctx); err != nil {
				t.Fatal(err)
			}
			snap := stats.snapshot()
			if snap.NumberSent < lastSent || snap.NumberReceived < lastReceived {
				t.Fatalf("counters regressed: %+v", snap)
			}
			lastSent, lastReceived = snap.NumberSent, snap.NumberReceived
		}
	})

	t.Run("closing a sender clone twice only counts once", func(t *testing.T) {
		tx, _, stats := newIntercom[int]("double-close", 2)

		clone := tx.Clone()
		clone.Close()
		clone.Close()

		if got := stats.snapshot().NumberConnections; got != 1 {
			t.Errorf("connections = %d, want 1", got)
		}
	})
}
