// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package testbroker starts embedded brokers for tests.
package testbroker

import (
	"net"
	"testing"

	"github.com/ObsidianArch02/eco-exoskeleton-project/broker"
	"github.com/stretchr/testify/require"
)

// FreeAddress returns a loopback address with a currently unused port.
func FreeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// Start runs a broker on a free port for the duration of the test and returns
// its TCP address.
func Start(t *testing.T, opt ...broker.Option) string {
	t.Helper()
	addr := FreeAddress(t)
	b, err := broker.New(addr, opt...)
	require.NoError(t, err)
	require.NoError(t, b.Serve())
	t.Cleanup(func() { _ = b.Close() })
	return addr
}

// StartBroker is Start, additionally returning the broker for tests that need
// to stop it early.
func StartBroker(t *testing.T, opt ...broker.Option) (*broker.Broker, string) {
	t.Helper()
	addr := FreeAddress(t)
	b, err := broker.New(addr, opt...)
	require.NoError(t, err)
	require.NoError(t, b.Serve())
	t.Cleanup(func() { _ = b.Close() })
	return b, addr
}
