// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package broker runs an embedded MQTT broker, for bench setups where no
// external broker is available.
package broker

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/errors"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/log"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/options"
	"github.com/ObsidianArch02/eco-exoskeleton-project/retry"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

type (
	// Broker is an in-process MQTT broker.
	Broker struct {
		server  *mochi.Server
		log     log.Logger
		address string
		ws      string
		closed  sync.Once
	}

	// Option represents a single broker option.
	Option interface{ broker(*Options) }

	// Options are the resolved broker options.
	Options struct {
		WebSocketAddress string
		Username         string
		Password         string
		Logger           *slog.Logger
	}

	// WithWebSocket additionally serves MQTT over WebSocket on the address.
	WithWebSocket string

	withCredentials struct{ username, password string }
	withLogger      struct{ *slog.Logger }
)

// New creates a broker listening for TCP clients on the address. Without
// credentials every client is admitted.
func New(address string, opt ...Option) (*Broker, error) {
	var opts Options
	opts.Apply(opt)

	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	server := mochi.New(&mochi.Options{
		Logger:       logger,
		InlineClient: false,
	})

	var err error
	if opts.Username != "" {
		err = server.AddHook(new(auth.Hook), &auth.Options{
			Ledger: &auth.Ledger{
				Auth: auth.AuthRules{{
					Username: auth.RString(opts.Username),
					Password: auth.RString(opts.Password),
					Allow:    true,
				}},
			},
		})
	} else {
		err = server.AddHook(new(auth.AllowHook), nil)
	}
	if err != nil {
		return nil, brokerError("cannot install broker auth hook", err)
	}

	tcp := listeners.NewTCP(listeners.Config{
		ID:      "tcp",
		Type:    "tcp",
		Address: address,
	})
	if err := server.AddListener(tcp); err != nil {
		return nil, brokerError("cannot listen for MQTT clients", err)
	}

	if opts.WebSocketAddress != "" {
		ws := listeners.NewWebsocket(listeners.Config{
			ID:      "ws",
			Type:    "ws",
			Address: opts.WebSocketAddress,
		})
		if err := server.AddListener(ws); err != nil {
			return nil, brokerError("cannot listen for WebSocket clients", err)
		}
	}

	return &Broker{
		server:  server,
		log:     log.Wrap(opts.Logger),
		address: address,
		ws:      opts.WebSocketAddress,
	}, nil
}

// Serve starts accepting clients in the background. It returns once every
// listener accepts connections.
func (b *Broker) Serve() error {
	if err := b.server.Serve(); err != nil {
		return brokerError("cannot start broker", err)
	}
	for _, addr := range []string{b.address, b.ws} {
		if addr == "" {
			continue
		}
		if err := listening(addr); err != nil {
			return brokerError("listener did not come up", err)
		}
	}
	b.log.Log(context.Background(), slog.LevelInfo, "embedded broker serving",
		slog.String("address", b.address),
		slog.String("websocket_address", b.ws),
	)
	return nil
}

// Clients returns the number of connected clients.
func (b *Broker) Clients() int {
	return b.server.Clients.Len()
}

// Close disconnects all clients and stops the listeners. Repeated calls are
// no-ops.
func (b *Broker) Close() error {
	var err error
	b.closed.Do(func() { err = b.server.Close() })
	return err
}

// Listeners bind in their own goroutines, so Serve polls until they accept.
var listenPolicy = retry.Fixed{
	MaxAttempts: 200,
	Interval:    10 * time.Millisecond,
}

func listening(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	target := net.JoinHostPort(host, port)

	return listenPolicy.Start(context.Background(), "listen",
		func(context.Context) (bool, error) {
			conn, err := net.DialTimeout("tcp", target, 100*time.Millisecond)
			if err != nil {
				return true, err
			}
			return false, conn.Close()
		},
	)
}

func brokerError(msg string, err error) error {
	return &errors.Error{
		Kind:        errors.ConfigurationInvalid,
		Message:     msg,
		NestedError: err,
	}
}

// WithCredentials requires clients to present the username and password.
func WithCredentials(username, password string) Option {
	return withCredentials{username, password}
}

// WithLogger routes broker logs to the slog logger.
func WithLogger(l *slog.Logger) Option {
	return withLogger{l}
}

// Apply resolves the provided list of options.
func (o *Options) Apply(
	opts []Option,
	rest ...Option,
) {
	for opt := range options.Apply[Option](opts, rest...) {
		opt.broker(o)
	}
}

func (o *Options) broker(opt *Options) {
	if o != nil {
		*opt = *o
	}
}

func (o WithWebSocket) broker(opt *Options) {
	opt.WebSocketAddress = string(o)
}

func (o withCredentials) broker(opt *Options) {
	opt.Username = o.username
	opt.Password = o.password
}

func (o withLogger) broker(opt *Options) {
	opt.Logger = o.Logger
}
