// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package kennel

import (
	"context"
	"testing"
	"time"
)

func TestControlCell(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	t.Run("delivers a pending command", func(t *testing.T) {
		cell := newControlCell()
		reader := &controlReader{cell: cell}

		cell.send(ControlShutdown)

		cmd, ok := reader.updated(ctx)
		if !ok || cmd != ControlShutdown {
			t.Errorf("expected shutdown, got %s (ok=%v)", cmd, ok)
		}
	})

	t.Run("newer command replaces older", func(t *testing.T) {
		cell := newControlCell()
		reader := &controlReader{cell: cell}

		cell.send(ControlShutdown)
		cell.send(ControlShutdown)

		if cmd, ok := reader.updated(ctx); !ok || cmd != ControlShutdown {
			t.Fatalf("expected shutdown, got %s (ok=%v)", cmd, ok)
		}

		// The slot held one coalesced value; nothing else is pending.
		shortCtx, shortCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer shortCancel()
		if _, ok := reader.updated(shortCtx); ok {
			t.Error("expected no second command")
		}
	})

	t.Run("kill supersedes shutdown", func(t *testing.T) {
		cell := newControlCell()
		reader := &controlReader{cell: cell}

		cell.send(ControlShutdown)
		cell.send(ControlKill)

		if cmd, ok := reader.updated(ctx); !ok || cmd != ControlKill {
			t.Errorf("expected kill, got %s (ok=%v)", cmd, ok)
		}
	})

	t.Run("shutdown does not replace kill", func(t *testing.T) {
		cell := newControlCell()
		reader := &controlReader{cell: cell}

		cell.send(ControlKill)
		cell.send(ControlShutdown)

		if cmd, ok := reader.updated(ctx); !ok || cmd != ControlKill {
			t.Errorf("expected kill to stick, got %s (ok=%v)", cmd, ok)
		}
	})

	t.Run("closed writer reads as no value", func(t *testing.T) {
		cell := newControlCell()
		reader := &controlReader{cell: cell}

		cell.close()

		if _, ok := reader.updated(ctx); ok {
			t.Error("expected ok == false after the writer closed")
		}
	})

	t.Run("updated wakes on a late send", func(t *testing.T) {
		cell := newControlCell()
		reader := &controlReader{cell: cell}

		go func() {
			time.Sleep(10 * time.Millisecond)
			cell.send(ControlKill)
		}()

		if cmd, ok := reader.updated(ctx); !ok || cmd != ControlKill {
			t.Errorf("expected kill, got %s (ok=%v)", cmd, ok)
		}
	})

	t.Run("reset discards a stale command", func(t *testing.T) {
		cell := newControlCell()
		reader := &controlReader{cell: cell}

		cell.send(ControlShutdown)
		cell.reset()

		shortCtx, shortCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer shortCancel()
		if _, ok := reader.updated(shortCtx); ok {
			t.Error("expected the stale command to be gone")
		}
	})
}
