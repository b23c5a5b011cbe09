// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt311

import (
	"log/slog"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/options"
	"github.com/ObsidianArch02/eco-exoskeleton-project/mqtt"
)

type (
	// Option represents a single transport option.
	Option interface{ transport(*Options) }

	// Options are the resolved transport options.
	Options struct {
		ServerURL      string
		ClientID       string
		Username       string
		Password       string
		KeepAlive      time.Duration
		CleanSession   bool
		ConnectTimeout time.Duration
		QoS            byte
		BufferSize     int

		Logger *slog.Logger
	}

	// WithClientID sets the MQTT client identifier.
	WithClientID string

	// WithKeepAlive sets the keep-alive interval.
	WithKeepAlive time.Duration

	// WithConnectTimeout bounds the wait for CONNACK.
	WithConnectTimeout time.Duration

	// WithQoS sets the quality of service of subscriptions and publishes.
	WithQoS byte

	// WithBufferSize bounds the inbound publishes held between polls.
	WithBufferSize int

	withCredentials struct{ username, password string }
	withLogger      struct{ *slog.Logger }
)

const (
	// DefaultKeepAlive is the keep-alive interval.
	DefaultKeepAlive = 60 * time.Second
	// DefaultConnectTimeout bounds the CONNECT/CONNACK exchange.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultBufferSize bounds the inbound buffer.
	DefaultBufferSize = 64
)

// WithCredentials sets the username and password sent on connect.
func WithCredentials(username, password string) Option {
	return withCredentials{username, password}
}

// WithLogger enables logging with the provided slog logger.
func WithLogger(l *slog.Logger) Option {
	return withLogger{l}
}

// WithSettings applies the session fields of parsed connection settings.
func WithSettings(cs *mqtt.ConnectionSettings) Option {
	return &Options{
		ServerURL:    cs.ServerURL(),
		ClientID:     cs.ClientID,
		Username:     cs.Username,
		Password:     string(cs.Password),
		KeepAlive:    cs.KeepAlive,
		CleanSession: cs.CleanStart,
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
	if o.ServerURL != "" {
		opt.ServerURL = o.ServerURL
	}
	if o.ClientID != "" {
		opt.ClientID = o.ClientID
	}
	if o.Username != "" {
		opt.Username = o.Username
	}
	if o.Password != "" {
		opt.Password = o.Password
	}
	if o.KeepAlive != 0 {
		opt.KeepAlive = o.KeepAlive
	}
	opt.CleanSession = o.CleanSession
	if o.ConnectTimeout != 0 {
		opt.ConnectTimeout = o.ConnectTimeout
	}
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
	opt.KeepAlive = time.Duration(o)
}

func (o WithConnectTimeout) transport(opt *Options) {
	opt.ConnectTimeout = time.Duration(o)
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
