// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package connectivity

import "context"

type (
	// Message is one inbound publish.
	Message struct {
		Topic   string
		Payload []byte
	}

	// Transport is the networked publish/subscribe link. The Manager is its
	// only caller and never invokes it concurrently.
	Transport interface {
		// Link brings up the underlying network connection.
		Link(ctx context.Context) error
		// Handshake opens the broker session over an established link.
		Handshake(ctx context.Context) error
		// Subscribe registers interest in a topic with the broker.
		Subscribe(ctx context.Context, topic string) error
		// Publish sends a payload to a topic.
		Publish(ctx context.Context, topic string, payload []byte) error
		// Poll services pending I/O without blocking and returns any messages
		// received since the last call. A non-nil error reports that the
		// session has been lost; messages returned alongside it are valid.
		Poll(ctx context.Context) ([]Message, error)
		// Close tears down the session and link. It is safe to call on a
		// transport that is not connected.
		Close() error
	}
)
