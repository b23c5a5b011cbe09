// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"log/slog"

	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/options"
)

type (
	// Option represents a single transport option.
	Option interface{ transport(*Options) }

	// Options are the resolved transport options.
	Options struct {
		ClientID   string
		Username   string
		Password   []byte
		KeepAlive  uint16
		CleanStart bool
		QoS        byte
		BufferSize int

		Logger *slog.Logger
	}

	// WithClientID sets the MQTT client identifier.
	WithClientID string

	// WithKeepAlive sets the keep-alive interval in seconds.
	WithKeepAlive uint16

	// WithCleanStart requests a fresh session on every connect.
	WithCleanStart bool

	// WithQoS sets the quality of service of subscriptions and publishes.
	WithQoS byte

	// WithBufferSize bounds the inbound publishes held between polls.
	WithBufferSize int

	withCredentials struct {
		username string
		password []byte
	}

	withLogger struct{ *slog.Logger }
)

const (
	// DefaultKeepAlive is the keep-alive in seconds.
	DefaultKeepAlive = 60
	// DefaultBufferSize bounds the inbound buffer.
	DefaultBufferSize = 64
)

// WithCredentials sets the username and password sent on connect.
func WithCredentials(username string, password []byte) Option {
	return withCredentials{username, password}
}

// WithLogger enables logging with the provided slog logger.
func WithLogger(l *slog.Logger) Option {
	return withLogger{l}
}

// WithSettings applies the session fields of parsed connection settings.
func WithSettings(cs *ConnectionSettings) Option {
	return &Options{
		ClientID:   cs.ClientID,
		Username:   cs.Username,
		Password:   cs.Password,
		KeepAlive:  cs.KeepAliveSeconds(),
		CleanStart: cs.CleanStart,
	}
}

// Apply resolves the provided list of options.
func (o *Options) Apply(
	opts []Option,
	rest ...Option,
) {
	for opt := range options.Apply[Option](opts, rest...) {
		opt.transport(o)
	}
}

func (o *Options) transport(opt *Options) {
	if o == nil {
		return
	}
	if o.ClientID != "" {
		opt.ClientID = o.ClientID
	}
	if o.Username != "" {
		opt.Username = o.Username
	}
	if o.Password != nil {
		opt.Password = o.Password
	}
	if o.KeepAlive != 0 {
		opt.KeepAlive = o.KeepAlive
	}
	opt.CleanStart = o.CleanStart
	if o.QoS != 0 {
		opt.QoS = o.QoS
	}
	if o.BufferSize != 0 {
		opt.BufferSize = o.BufferSize
	}
	if o.Logger != nil {
		opt.Logger = o.Logger
	}
}

func (o WithClientID) transport(opt *Options) {
	opt.ClientID = string(o)
}

func (o WithKeepAlive) transport(opt *Options) {
	opt.KeepAlive = uint16(o)
}

func (o WithCleanStart) transport(opt *Options) {
	opt.CleanStart = bool(o)
}

func (o WithQoS) transport(opt *Options) {
	opt.QoS = byte(o)
}

func (o WithBufferSize) transport(opt *Options) {
	opt.BufferSize = int(o)
}

func (o withCredentials) transport(opt *Options) {
	opt.Username = o.username
	opt.Password = o.password
}

func (o withLogger) transport(opt *Options) {
	opt.Logger = o.Logger
}
