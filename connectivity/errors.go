// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package connectivity

import (
	"fmt"
	"log/slog"

	"github.com/ObsidianArch02/eco-exoskeleton-project/errors"
)

// RestartRequiredError is returned once the consecutive failed connection
// cycles reach the configured threshold. The process is expected to restart.
type RestartRequiredError struct {
	Cycles int
	Last   error
}

func (e *RestartRequiredError) Error() string {
	return fmt.Sprintf(
		"connectivity lost after %d consecutive failed cycles; restart required",
		e.Cycles,
	)
}

func (e *RestartRequiredError) Unwrap() error {
	return e.Last
}

// Is lets errors.Is match the RestartRequired kind.
func (*RestartRequiredError) Is(target error) bool {
	t, ok := target.(*errors.Error)
	return ok && t.Message == "" && t.Kind == errors.RestartRequired
}

func (e *RestartRequiredError) Attrs() []slog.Attr {
	attrs := []slog.Attr{slog.Int("cycles", e.Cycles)}
	if e.Last != nil {
		attrs = append(attrs, slog.String("last_error", e.Last.Error()))
	}
	return attrs
}

var errNotConnected = &errors.Error{
	Kind:    errors.NotConnected,
	Message: "transport is not connected",
}
