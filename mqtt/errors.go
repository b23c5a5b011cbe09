// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"fmt"
	"log/slog"
)

// ConnectionError indicates that the network connection or broker session
// could not be established or was lost.
type ConnectionError struct {
	message string
	wrapped error
}

func (e *ConnectionError) Error() string {
	if e.wrapped == nil {
		return e.message
	}
	return e.message + ": " + e.wrapped.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.wrapped
}

// ReasonCodeError reports a broker reason code at or above 0x80.
type ReasonCodeError struct {
	Packet     string
	ReasonCode byte
	Reason     string
}

func (e *ReasonCodeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf(
			"%s failed with reason code 0x%02x: %s",
			e.Packet, e.ReasonCode, e.Reason,
		)
	}
	return fmt.Sprintf("%s failed with reason code 0x%02x", e.Packet, e.ReasonCode)
}

func (e *ReasonCodeError) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("packet", e.Packet),
		slog.Int("reason_code", int(e.ReasonCode)),
	}
}

// ErrNotLinked is returned when a session operation is attempted without an
// established link.
var ErrNotLinked = &ConnectionError{message: "no network link established"}

// ErrNoSession is returned when an operation needs a broker session.
var ErrNoSession = &ConnectionError{message: "no broker session"}
