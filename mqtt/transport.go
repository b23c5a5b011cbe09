// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"net"
	"sync"

	"github.com/ObsidianArch02/eco-exoskeleton-project/connectivity"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/log"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/queue"
	"github.com/eclipse/paho.golang/paho"
)

type (
	// Transport is an MQTT v5 implementation of connectivity.Transport backed
	// by the Paho client. A new Paho client is created for every handshake
	// since Paho clients are single-use.
	Transport struct {
		provider ConnectionProvider
		options  Options
		log      logger

		conn    net.Conn
		client  *paho.Client
		session *session
	}

	// session collects what Paho delivers on its own goroutines until the
	// next poll.
	session struct {
		mu      sync.Mutex
		inbound *queue.Queue[connectivity.Message]
		lost    error
		log     logger
	}
)

const reasonFailure byte = 0x80

// NewTransport creates a transport that dials with the given provider.
func NewTransport(provider ConnectionProvider, opt ...Option) *Transport {
	t := &Transport{
		provider: provider,
		options: Options{
			KeepAlive:  DefaultKeepAlive,
			CleanStart: true,
			BufferSize: DefaultBufferSize,
		},
	}
	t.options.Apply(opt)
	if t.options.ClientID == "" {
		t.options.ClientID = RandomClientID()
	}
	t.log = logger{log.Wrap(t.options.Logger).With(
		"client_id", t.options.ClientID,
	)}
	return t
}

// NewTransportFromSettings creates a transport from parsed connection
// settings.
func NewTransportFromSettings(
	cs *ConnectionSettings,
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
			[]Option{WithSettings(cs), WithCredentials(username, password)},
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

// Handshake sends CONNECT and waits for CONNACK.
func (t *Transport) Handshake(ctx context.Context) error {
	if t.conn == nil {
		return ErrNotLinked
	}

	s := &session{
		inbound: queue.New[connectivity.Message](t.options.BufferSize),
		log:     t.log,
	}
	client := paho.NewClient(paho.ClientConfig{
		ClientID: t.options.ClientID,
		Conn:     t.conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			s.onPublishReceived,
		},
		OnClientError:      s.onClientError,
		OnServerDisconnect: s.onServerDisconnect,
	})

	packet := &paho.Connect{
		ClientID:     t.options.ClientID,
		CleanStart:   t.options.CleanStart,
		KeepAlive:    t.options.KeepAlive,
		Username:     t.options.Username,
		UsernameFlag: t.options.Username != "",
		Password:     t.options.Password,
		PasswordFlag: t.options.Password != nil,
	}
	t.log.Packet(ctx, "connect", packet)

	connack, err := client.Connect(ctx, packet)
	if connack != nil {
		t.log.Packet(ctx, "connack", connack)
	}
	if err != nil {
		if connack != nil && connack.ReasonCode >= reasonFailure {
			e := &ReasonCodeError{Packet: "connect", ReasonCode: connack.ReasonCode}
			if connack.Properties != nil {
				e.Reason = connack.Properties.ReasonString
			}
			return e
		}
		return &ConnectionError{message: "MQTT connect failed", wrapped: err}
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

	packet := &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{
			Topic: topic,
			QoS:   t.options.QoS,
		}},
	}
	t.log.Packet(ctx, "subscribe", packet)

	suback, err := t.client.Subscribe(ctx, packet)
	if suback != nil {
		t.log.Packet(ctx, "suback", suback)
	}
	if err != nil {
		return &ConnectionError{message: "MQTT subscribe failed", wrapped: err}
	}
	if len(suback.Reasons) > 0 && suback.Reasons[0] >= reasonFailure {
		return &ReasonCodeError{Packet: "subscribe", ReasonCode: suback.Reasons[0]}
	}
	return nil
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

	packet := &paho.Publish{
		Topic:   topic,
		QoS:     t.options.QoS,
		Payload: payload,
	}
	t.log.Packet(ctx, "publish", packet)

	res, err := t.client.Publish(ctx, packet)
	if err != nil {
		return &ConnectionError{message: "MQTT publish failed", wrapped: err}
	}
	if res != nil && res.ReasonCode >= reasonFailure {
		return &ReasonCodeError{Packet: "publish", ReasonCode: res.ReasonCode}
	}
	return nil
}

// Poll returns publishes received since the last call, and an error once the
// session has been lost.
func (t *Transport) Poll(context.Context) ([]connectivity.Message, error) {
	if t.session == nil {
		return nil, ErrNoSession
	}
	return t.session.take()
}

// Close disconnects from the broker and closes the link.
func (t *Transport) Close() error {
	var err error
	if t.client != nil {
		err = t.client.Disconnect(&paho.Disconnect{})
	}
	t.teardown()
	return err
}

func (t *Transport) teardown() {
	if t.conn != nil {
		_ = t.conn.Close()
	}
	t.conn = nil
	t.client = nil
	t.session = nil
}

func (s *session) onPublishReceived(p paho.PublishReceived) (bool, error) {
	s.log.Packet(context.Background(), "publish received", p.Packet)

	s.mu.Lock()
	ok := s.inbound.Push(connectivity.Message{
		Topic:   p.Packet.Topic,
		Payload: p.Packet.Payload,
	})
	s.mu.Unlock()

	if !ok {
		s.log.dropped(context.Background(), p.Packet.Topic)
	}
	return true, nil
}

func (s *session) onClientError(err error) {
	s.fail(&ConnectionError{message: "MQTT client error", wrapped: err})
}

func (s *session) onServerDisconnect(d *paho.Disconnect) {
	s.log.Packet(context.Background(), "disconnect received", d)
	e := &ReasonCodeError{Packet: "disconnect", ReasonCode: d.ReasonCode}
	if d.Properties != nil {
		e.Reason = d.Properties.ReasonString
	}
	s.fail(&ConnectionError{message: "disconnected by server", wrapped: e})
}

// fail keeps the first loss cause.
func (s *session) fail(err error) {
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
