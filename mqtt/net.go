// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/eclipse/paho.golang/packets"
	"github.com/gorilla/websocket"
)

// ConnectionProvider is a function that returns a net.Conn connected to an
// MQTT server that is ready to read to and write from. Note that the returned
// net.Conn must be thread-safe (i.e., concurrent Write calls must not
// interleave).
type ConnectionProvider func(context.Context) (net.Conn, error)

// TLSConfigProvider is a function that returns a *tls.Config to be used when
// opening a TLS connection to an MQTT server.
type TLSConfigProvider func(context.Context) (*tls.Config, error)

// ConstantTLSConfig is a TLSConfigProvider that returns an unchanging
// *tls.Config.
func ConstantTLSConfig(config *tls.Config) TLSConfigProvider {
	return func(context.Context) (*tls.Config, error) {
		return config, nil
	}
}

// TCPConnection is a ConnectionProvider that connects to an MQTT server over
// TCP.
func TCPConnection(hostname string, port int) ConnectionProvider {
	return func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", hostPort(hostname, port))
		if err != nil {
			return nil, &ConnectionError{
				message: "error opening TCP connection",
				wrapped: err,
			}
		}
		return packets.NewThreadSafeConn(conn), nil
	}
}

// TLSConnection is a ConnectionProvider that connects to an MQTT server with
// TLS over TCP.
func TLSConnection(
	hostname string,
	port int,
	tlsConfigProvider TLSConfigProvider,
) ConnectionProvider {
	return func(ctx context.Context) (net.Conn, error) {
		config, err := tlsConfig(ctx, tlsConfigProvider)
		if err != nil {
			return nil, err
		}

		d := tls.Dialer{Config: config}
		conn, err := d.DialContext(ctx, "tcp", hostPort(hostname, port))
		if err != nil {
			return nil, &ConnectionError{
				message: "error opening TLS connection",
				wrapped: err,
			}
		}
		return packets.NewThreadSafeConn(conn), nil
	}
}

// WebSocketConnection is a ConnectionProvider that connects to an MQTT server
// over a WebSocket using the "mqtt" subprotocol. A "wss://" URL uses the TLS
// configuration from the provider.
func WebSocketConnection(
	url string,
	tlsConfigProvider TLSConfigProvider,
) ConnectionProvider {
	return func(ctx context.Context) (net.Conn, error) {
		d := websocket.Dialer{
			Subprotocols:     []string{"mqtt"},
			HandshakeTimeout: 10 * time.Second,
		}
		if tlsConfigProvider != nil {
			config, err := tlsConfig(ctx, tlsConfigProvider)
			if err != nil {
				return nil, err
			}
			d.TLSClientConfig = config
		}

		ws, _, err := d.DialContext(ctx, url, nil)
		if err != nil {
			return nil, &ConnectionError{
				message: "error opening WebSocket connection",
				wrapped: err,
			}
		}
		return packets.NewThreadSafeConn(&wsConn{Conn: ws}), nil
	}
}

func tlsConfig(
	ctx context.Context,
	provider TLSConfigProvider,
) (*tls.Config, error) {
	if provider == nil {
		// use the zero configuration by default
		return nil, nil
	}
	config, err := provider(ctx)
	if err != nil {
		return nil, &ConnectionError{
			message: "error getting TLS configuration",
			wrapped: err,
		}
	}
	return config, nil
}

func hostPort(hostname string, port int) string {
	return net.JoinHostPort(hostname, fmt.Sprint(port))
}
