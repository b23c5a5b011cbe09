// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package errors

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/iancoleman/strcase"
)

type (
	// Error represents a structured module error.
	Error struct {
		Message string
		Kind    Kind

		NestedError error

		PropertyName  string
		PropertyValue any
	}

	// Kind defines the category of the error.
	Kind int
)

// The following are the defined error kinds.
const (
	UnknownError Kind = iota
	ConfigurationInvalid
	ArgumentInvalid
	PayloadInvalid
	UnknownAction
	Busy
	NotConnected
	LinkFailed
	HandshakeFailed
	Disconnected
	RestartRequired
	SafetyViolation
	Timeout
	HardwareFault
	Aborted
)

var kindNames = map[Kind]string{
	UnknownError:         "UnknownError",
	ConfigurationInvalid: "ConfigurationInvalid",
	ArgumentInvalid:      "ArgumentInvalid",
	PayloadInvalid:       "PayloadInvalid",
	UnknownAction:        "UnknownAction",
	Busy:                 "Busy",
	NotConnected:         "NotConnected",
	LinkFailed:           "LinkFailed",
	HandshakeFailed:      "HandshakeFailed",
	Disconnected:         "Disconnected",
	RestartRequired:      "RestartRequired",
	SafetyViolation:      "SafetyViolation",
	Timeout:              "Timeout",
	HardwareFault:        "HardwareFault",
	Aborted:              "Aborted",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error returns the error as a string.
func (e *Error) Error() string {
	if e.NestedError != nil {
		return e.Message + ": " + e.NestedError.Error()
	}
	return e.Message
}

// Unwrap returns the nested error, if any.
func (e *Error) Unwrap() error {
	return e.NestedError
}

// Is matches another *Error of the same kind, so that a bare
// &Error{Kind: Busy} can be used as a target with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Kind == e.Kind
}

// Attrs returns additional error fields for slog.
func (e *Error) Attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("kind", strcase.ToSnake(e.Kind.String()))}
	if e.PropertyName != "" {
		attrs = append(attrs, slog.String("property_name", e.PropertyName))
	}
	if e.PropertyValue != nil {
		attrs = append(attrs, slog.Any("property_value", e.PropertyValue))
	}
	return attrs
}

// KindOf returns the kind of the first *Error in the chain, or UnknownError.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnknownError
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
