// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package mqtt311 implements the broker link over MQTT 3.1.1 for brokers
// that do not speak MQTT v5.
package mqtt311

import (
	"context"
	"errors"
	"net"
	"net/url"
	"sync"

	"github.com/ObsidianArch02/eco-exoskeleton-project/connectivity"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/log"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/queue"
	"github.com/ObsidianArch02/eco-exoskeleton-project/mqtt"
	paho "github.com/eclipse/paho.mqtt.golang"
)

type (
	// Transport is an MQTT 3.1.1 implementation of connectivity.Transport.
	// Automatic reconnection in Paho is disabled; the connectivity manager
	// owns recovery.
	Transport struct {
		provider mqtt.ConnectionProvider
		options  Options
		log      logger

		conn    net.Conn
		client  paho.Client
		session *session
	}

	session struct {
		mu      sync.Mutex
		inbound *queue.Queue[connectivity.Message]
		lost    error
		log     logger
	}
)

const protocolVersion = 4

var (
	// ErrNotLinked is returned when a handshake is attempted without a link.
	ErrNotLinked = errors.New("no network link established")

	// ErrNoSession is returned when an operation needs a broker session.
	ErrNoSession = errors.New("no broker session")

	errLinkConsumed = errors.New("network link already used by a session")
)

// NewTransport creates a transport that dials with the given provider.
func NewTransport(provider mqtt.ConnectionProvider, opt ...Option) *Transport {
	t := &Transport{
		provider: provider,
		options: Options{
			ServerURL:      "tcp://localhost:1883",
			KeepAlive:      DefaultKeepAlive,
			CleanSession:   true,
			ConnectTimeout: DefaultConnectTimeout,
			BufferSize:     DefaultBufferSize,
		},
	}
	t.options.Apply(opt)
	if t.options.ClientID == "" {
		t.options.ClientID = mqtt.RandomClientID()
	}
	t.log = logger{log.Wrap(t.options.Logger).With(
		"client_id", t.options.ClientID,
	)}
	return t
}

// NewTransportFromSettings creates a transport from parsed connection
// settings.
func NewTransportFromSettings(
	cs *mqtt.ConnectionSettings,
	opt ...Option,
) (*Transport, error) {
	provider, err := cs.Provider()
	if err != nil {
		return nil, err
	}
	username, password, err := cs.Credentials()
	if err != nil {
		return nil, err
	}
	return NewTransport(
		provider,
		append(
			[]Option{
				WithSettings(cs),
				WithCredentials(username, string(password)),
			},
			opt...,
		)...,
	), nil
}

// ClientID returns the MQTT client identifier in use.
func (t *Transport) ClientID() string {
	return t.options.ClientID
}

// Link dials the broker.
func (t *Transport) Link(ctx context.Context) error {
	t.teardown()
	conn, err := t.provider(ctx)
	if err != nil {
		return err
	}
	t.conn = conn
	return nil
}

// Handshake sends CONNECT over the established link and waits for CONNACK.
func (t *Transport) Handshake(ctx context.Context) error {
	if t.conn == nil {
		return ErrNotLinked
	}

	s := &session{
		inbound: queue.New[connectivity.Message](t.options.BufferSize),
		log:     t.log,
	}

	// Paho dials through the open function; hand it the link exactly once.
	var once sync.Once
	conn := t.conn
	open := func(*url.URL, paho.ClientOptions) (net.Conn, error) {
		var c net.Conn
		once.Do(func() { c = conn })
		if c == nil {
			return nil, errLinkConsumed
		}
		return c, nil
	}

	opts := paho.NewClientOptions().
		AddBroker(t.options.ServerURL).
		SetClientID(t.options.ClientID).
		SetProtocolVersion(protocolVersion).
		SetCleanSession(t.options.CleanSession).
		SetKeepAlive(t.options.KeepAlive).
		SetConnectTimeout(t.options.ConnectTimeout).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetCustomOpenConnectionFn(open).
		SetDefaultPublishHandler(s.onMessage).
		SetConnectionLostHandler(s.onConnectionLost)
	if t.options.Username != "" {
		opts.SetUsername(t.options.Username)
		opts.SetPassword(t.options.Password)
	}

	client := paho.NewClient(opts)
	t.log.event(ctx, "connect", t.options.ServerURL)
	if err := wait(ctx, client.Connect()); err != nil {
		return err
	}

	t.client = client
	t.session = s
	return nil
}

// Subscribe registers a topic filter with the broker.
func (t *Transport) Subscribe(ctx context.Context, topic string) error {
	if t.client == nil {
		return ErrNoSession
	}
	t.log.event(ctx, "subscribe", topic)
	return wait(ctx, t.client.Subscribe(topic, t.options.QoS, nil))
}

// Publish sends the payload at the configured QoS.
func (t *Transport) Publish(
	ctx context.Context,
	topic string,
	payload []byte,
) error {
	if t.client == nil {
		return ErrNoSession
	}
	t.log.event(ctx, "publish", topic)
	return wait(ctx, t.client.Publish(topic, t.options.QoS, false, payload))
}

// Poll returns publishes received since the last call, and an error once the
// connection has been lost.
func (t *Transport) Poll(context.Context) ([]connectivity.Message, error) {
	if t.session == nil {
		return nil, ErrNoSession
	}
	return t.session.take()
}

// Close disconnects from the broker and closes the link.
func (t *Transport) Close() error {
	if t.client != nil && t.client.IsConnectionOpen() {
		t.client.Disconnect(250)
	}
	t.teardown()
	return nil
}

func (t *Transport) teardown() {
	if t.conn != nil {
		_ = t.conn.Close()
	}
	t.conn = nil
	t.client = nil
	t.session = nil
}

// wait blocks until the token completes or the context ends.
func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) onMessage(_ paho.Client, msg paho.Message) {
	s.log.event(context.Background(), "publish received", msg.Topic())

	s.mu.Lock()
	ok := s.inbound.Push(connectivity.Message{
		Topic:   msg.Topic(),
		Payload: msg.Payload(),
	})
	s.mu.Unlock()

	if !ok {
		s.log.dropped(context.Background(), msg.Topic())
	}
}

func (s *session) onConnectionLost(_ paho.Client, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lost == nil {
		s.lost = err
	}
}

func (s *session) take() ([]connectivity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inbound.Drain(), s.lost
}
