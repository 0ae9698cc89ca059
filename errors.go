// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package kennel

import (
	"errors"
	"fmt"
)

// Sentinel errors of the intercom channel.
var (
	// ErrIntercomDisconnected is returned by Send when the receiver is
	// gone: the target service finished or was restarted with a fresh
	// channel.
	ErrIntercomDisconnected = errors.New("intercom: receiver disconnected")

	// ErrIntercomClosed is returned by Recv when every sender clone has
	// been closed and the queue is drained.
	ErrIntercomClosed = errors.New("intercom: all senders closed")
)

// UnknownServiceError reports a command addressed to an identifier that is
// not part of the aggregate. PossibleValues enumerates the declared
// identifiers in registration order.
type UnknownServiceError struct {
	Identifier     string
	PossibleValues []string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service %q, available services are %v", e.Identifier, e.PossibleValues)
}

// CannotStartError reports a start attempt against a service whose status
// is not Shutdown.
type CannotStartError struct {
	Status Status
}

func (e *CannotStartError) Error() string {
	return fmt.Sprintf("service cannot be started because status is: %s", e.Status)
}

// CannotStartServiceError wraps a CannotStartError with the identifier of
// the addressed service.
type CannotStartServiceError struct {
	Identifier string
	Cause      error
}

func (e *CannotStartServiceError) Error() string {
	return fmt.Sprintf("cannot start service %s: %v", e.Identifier, e.Cause)
}

func (e *CannotStartServiceError) Unwrap() error { return e.Cause }

// CannotConnectError reports an intercom send that failed because the
// target's sender is disconnected. RetryAttempted distinguishes a single
// transient failure (fetch-on-first-send) from a persistent one: a façade
// refetches the sender exactly once before giving up.
type CannotConnectError struct {
	Identifier     string
	RetryAttempted bool
}

func (e *CannotConnectError) Error() string {
	return fmt.Sprintf("cannot connect to service %s, service might be shutdown", e.Identifier)
}

// NoReplyError reports that the watchdog went away or dropped the reply
// slot of a command.
type NoReplyError struct {
	Context string
}

func (e *NoReplyError) Error() string {
	return fmt.Sprintf("the watchdog didn't reply to the %s", e.Context)
}
