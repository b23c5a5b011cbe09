// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt311_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/broker"
	"github.com/ObsidianArch02/eco-exoskeleton-project/connectivity"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/log"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/testbroker"
	"github.com/ObsidianArch02/eco-exoskeleton-project/mqtt"
	"github.com/ObsidianArch02/eco-exoskeleton-project/mqtt311"
	"github.com/stretchr/testify/require"
)

const statusTopic = "exoskeleton/greenhouse/status"

var _ connectivity.Transport = (*mqtt311.Transport)(nil)

func provider(t *testing.T, addr string) mqtt.ConnectionProvider {
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return mqtt.TCPConnection(host, port)
}

func connect(
	ctx context.Context,
	t *testing.T,
	addr string,
	opt ...mqtt311.Option,
) *mqtt311.Transport {
	tr := mqtt311.NewTransport(provider(t, addr), opt...)
	require.NoError(t, tr.Link(ctx))
	require.NoError(t, tr.Handshake(ctx))
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	mqtt311.SetLibraryLogger(log.Discard())
	addr := testbroker.Start(t)

	sub := connect(ctx, t, addr, mqtt311.WithClientID("sub311"))
	require.NoError(t, sub.Subscribe(ctx, statusTopic))

	pub := connect(ctx, t, addr, mqtt311.WithQoS(1))
	payload := []byte(`{"state":"IDLE"}`)
	require.NoError(t, pub.Publish(ctx, statusTopic, payload))

	var got []connectivity.Message
	require.Eventually(t, func() bool {
		msgs, err := sub.Poll(ctx)
		got = append(got, msgs...)
		return err == nil && len(got) > 0
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, []connectivity.Message{
		{Topic: statusTopic, Payload: payload},
	}, got)
}

func TestConnectionLost(t *testing.T) {
	ctx := context.Background()
	b, addr := testbroker.StartBroker(t)

	tr := connect(ctx, t, addr)
	require.NoError(t, b.Close())

	require.Eventually(t, func() bool {
		_, err := tr.Poll(ctx)
		return err != nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestBadCredentials(t *testing.T) {
	ctx := context.Background()
	addr := testbroker.Start(t, broker.WithCredentials("exo", "secret"))

	connect(ctx, t, addr, mqtt311.WithCredentials("exo", "secret"))

	tr := mqtt311.NewTransport(provider(t, addr),
		mqtt311.WithCredentials("exo", "wrong"))
	require.NoError(t, tr.Link(ctx))
	t.Cleanup(func() { _ = tr.Close() })
	require.Error(t, tr.Handshake(ctx))
}

func TestRequiresSession(t *testing.T) {
	ctx := context.Background()
	tr := mqtt311.NewTransport(mqtt.TCPConnection("localhost", 1))

	require.ErrorIs(t, tr.Handshake(ctx), mqtt311.ErrNotLinked)
	require.ErrorIs(t, tr.Subscribe(ctx, statusTopic), mqtt311.ErrNoSession)
	require.ErrorIs(t, tr.Publish(ctx, statusTopic, nil), mqtt311.ErrNoSession)
	_, err := tr.Poll(ctx)
	require.ErrorIs(t, err, mqtt311.ErrNoSession)
}

func TestFromSettings(t *testing.T) {
	addr := testbroker.Start(t)
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	cs, err := mqtt.ParseConnectionString(
		"HostName=" + host + ";TcpPort=" + port + ";ClientId=legacy",
	)
	require.NoError(t, err)

	tr, err := mqtt311.NewTransportFromSettings(cs)
	require.NoError(t, err)
	require.Equal(t, "legacy", tr.ClientID())

	ctx := context.Background()
	require.NoError(t, tr.Link(ctx))
	require.NoError(t, tr.Handshake(ctx))
	require.NoError(t, tr.Close())
}
