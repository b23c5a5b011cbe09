// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package node_test

import (
	"context"
	"encoding/json"
	stderr "errors"
	"testing"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/connectivity"
	"github.com/ObsidianArch02/eco-exoskeleton-project/hardware/sim"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
	"github.com/ObsidianArch02/eco-exoskeleton-project/modules"
	"github.com/ObsidianArch02/eco-exoskeleton-project/node"
	"github.com/ObsidianArch02/eco-exoskeleton-project/protocol"
	"github.com/stretchr/testify/require"
)

const (
	commandTopic = "exoskeleton/bubble/command"
	statusTopic  = "exoskeleton/bubble/status"
)

type fakeTransport struct {
	linkErr   error
	pollErr   error
	pending   []connectivity.Message
	onPublish func(connectivity.Message)

	links      int
	subscribed []string
	published  []connectivity.Message
}

func (f *fakeTransport) Link(context.Context) error {
	f.links++
	return f.linkErr
}

func (*fakeTransport) Handshake(context.Context) error { return nil }

func (f *fakeTransport) Subscribe(_ context.Context, topic string) error {
	f.subscribed = append(f.subscribed, topic)
	return nil
}

func (f *fakeTransport) Publish(_ context.Context, topic string, payload []byte) error {
	msg := connectivity.Message{Topic: topic, Payload: payload}
	f.published = append(f.published, msg)
	if f.onPublish != nil {
		f.onPublish(msg)
	}
	return nil
}

func (f *fakeTransport) Poll(context.Context) ([]connectivity.Message, error) {
	msgs, err := f.pending, f.pollErr
	f.pending, f.pollErr = nil, nil
	return msgs, err
}

func (*fakeTransport) Close() error { return nil }

func (f *fakeTransport) statuses(t *testing.T) []protocol.StatusMessage {
	var out []protocol.StatusMessage
	for _, msg := range f.published {
		if msg.Topic != statusTopic {
			continue
		}
		var s protocol.StatusMessage
		require.NoError(t, json.Unmarshal(msg.Payload, &s))
		out = append(out, s)
	}
	return out
}

func states(ss []protocol.StatusMessage) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.State
	}
	return out
}

func command(payload string) connectivity.Message {
	return connectivity.Message{Topic: commandTopic, Payload: []byte(payload)}
}

func newNode(
	t *testing.T,
	ft *fakeTransport,
	opt ...node.Option,
) (*node.Node, *wallclock.Manual) {
	n, clock, _ := newBubble(t, ft, opt...)
	return n, clock
}

func newBubble(
	t *testing.T,
	ft *fakeTransport,
	opt ...node.Option,
) (*node.Node, *wallclock.Manual, *sim.Board) {
	clock := wallclock.NewManual()
	board, err := sim.New(modules.BubbleName, sim.WithClock(clock))
	require.NoError(t, err)
	build, err := modules.Lookup(modules.BubbleName)
	require.NoError(t, err)

	n, err := node.New(build(board), ft,
		append([]node.Option{node.WithClock(clock)}, opt...)...)
	require.NoError(t, err)
	return n, clock, board
}

const sprayPayload = `{"action":"spray","params":{"duration":1000,"intensity":50}}`

func TestStartupAnnouncement(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTransport{}
	n, _ := newNode(t, ft)

	require.False(t, n.Healthy())
	require.Equal(t, "DISCONNECTED", n.State().Connection)

	require.NoError(t, n.Step(ctx))
	require.Equal(t, []string{commandTopic}, ft.subscribed)
	require.True(t, n.Healthy())

	ss := ft.statuses(t)
	require.Len(t, ss, 1)
	require.Equal(t, protocol.StatusMessage{
		Module:    "bubble",
		State:     "IDLE",
		Message:   node.StartupMessage,
		Timestamp: 0,
	}, ss[0])

	require.NoError(t, n.Step(ctx))
	require.Len(t, ft.statuses(t), 1)
}

func TestSprayCommand(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTransport{}
	n, clock := newNode(t, ft)

	require.NoError(t, n.Step(ctx))
	clock.Advance(10 * time.Millisecond)
	ft.pending = append(ft.pending,
		command(`{"action":"spray","params":{"duration":1000,"intensity":50}}`))
	require.NoError(t, n.Step(ctx))

	snap := n.State()
	require.Equal(t, "RUNNING", snap.Phase)
	require.Equal(t, "spray", snap.Action)

	for i := 0; i < 20 && n.State().Phase == "RUNNING"; i++ {
		clock.Advance(100 * time.Millisecond)
		require.NoError(t, n.Step(ctx))
	}

	ss := ft.statuses(t)
	require.Equal(t, []string{"IDLE", "SPRAYING", "COMPLETED"}, states(ss))
	require.Equal(t, int64(10), ss[1].Timestamp)
	require.GreaterOrEqual(t, ss[2].Timestamp, int64(1010))
	require.Equal(t, "COMPLETED", n.State().Phase)
	require.Empty(t, n.State().Action)
}

func TestRejectedCommandsAreSilent(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTransport{}
	n, _ := newNode(t, ft)
	require.NoError(t, n.Step(ctx))

	ft.pending = append(ft.pending,
		command(`{"action":"fly"}`),
		command(`not json`),
		command(`{"action":"spray","params":{"duration":"long"}}`),
	)
	require.NoError(t, n.Step(ctx))
	require.Equal(t, []string{"IDLE"}, states(ft.statuses(t)))
	require.Equal(t, "IDLE", n.State().Phase)
}

func TestBusyCommandIsDropped(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTransport{}
	n, _ := newNode(t, ft)
	require.NoError(t, n.Step(ctx))

	spray := `{"action":"spray","params":{"duration":1000,"intensity":50}}`
	ft.pending = append(ft.pending, command(spray), command(spray))
	require.NoError(t, n.Step(ctx))
	require.Equal(t, []string{"IDLE", "SPRAYING"}, states(ft.statuses(t)))
}

func TestReconnectResubscribes(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTransport{}
	n, _ := newNode(t, ft)
	require.NoError(t, n.Step(ctx))

	ft.pollErr = stderr.New("connection reset")
	require.NoError(t, n.Step(ctx))
	require.False(t, n.Healthy())
	require.Equal(t, "DEGRADED", n.State().Connection)

	require.NoError(t, n.Step(ctx))
	require.True(t, n.Healthy())
	// Initial subscribe, the replay and the resubscription signal.
	require.Equal(t, []string{commandTopic, commandTopic, commandTopic}, ft.subscribed)
	require.Equal(t, []string{"IDLE"}, states(ft.statuses(t)))
}

func TestRestartRequired(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTransport{linkErr: stderr.New("no route to host")}
	n, _ := newNode(t, ft, node.WithConnectivity(
		connectivity.WithLinkAttempts(2),
		connectivity.WithMaxFailedCycles(2),
	))

	require.NoError(t, n.Step(ctx))
	require.Equal(t, 1, n.State().Failures)

	err := n.Step(ctx)
	var restart *connectivity.RestartRequiredError
	require.ErrorAs(t, err, &restart)
	require.Equal(t, 2, restart.Cycles)
	require.Equal(t, 4, ft.links)

	require.ErrorAs(t, n.Step(ctx), &restart)
	require.Equal(t, 4, ft.links)
}

func TestLinkDropDuringRunStaysSupervised(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTransport{}
	n, clock, board := newBubble(t, ft, node.WithConnectivity(
		connectivity.WithLinkAttempts(2),
	))
	require.NoError(t, n.Step(ctx))

	clock.Advance(10 * time.Millisecond)
	ft.pending = append(ft.pending, command(sprayPayload))
	require.NoError(t, n.Step(ctx))
	require.Equal(t, uint32(127), board.Level(modules.NozzlePin))

	ft.pollErr = stderr.New("connection reset")
	ft.linkErr = stderr.New("no route to host")
	clock.Advance(100 * time.Millisecond)
	require.NoError(t, n.Step(ctx))
	require.False(t, n.Healthy())
	require.Equal(t, "RUNNING", n.State().Phase)

	board.PinDigital(modules.SupplyPin, false)
	clock.Advance(100 * time.Millisecond)
	require.NoError(t, n.Step(ctx))

	require.Equal(t, "ERROR", n.State().Phase)
	require.Equal(t, uint32(0), board.Level(modules.NozzlePin))
	require.Equal(t, 210*time.Millisecond, clock.Elapsed())
	// No connection cycle while the run was active.
	require.Equal(t, 1, ft.links)

	require.NoError(t, n.Step(ctx))
	require.Equal(t, 3, ft.links)

	ft.linkErr = nil
	require.NoError(t, n.Step(ctx))
	require.True(t, n.Healthy())
}

func TestCloseStopsActiveRun(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTransport{}
	n, _, board := newBubble(t, ft)
	require.NoError(t, n.Step(ctx))

	ft.pending = append(ft.pending, command(sprayPayload))
	require.NoError(t, n.Step(ctx))
	require.Equal(t, uint32(127), board.Level(modules.NozzlePin))

	require.NoError(t, n.Close())
	require.Equal(t, uint32(0), board.Level(modules.NozzlePin))
	require.Equal(t, "ERROR", n.State().Phase)

	ss := ft.statuses(t)
	require.Equal(t, []string{"IDLE", "SPRAYING", "ERROR"}, states(ss))
	require.Equal(t, node.StopMessage, ss[2].Message)
}

func TestRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ft := &fakeTransport{
		pending: []connectivity.Message{
			command(`{"action":"spray","params":{"duration":500,"intensity":100}}`),
		},
	}
	ft.onPublish = func(msg connectivity.Message) {
		if msg.Topic != statusTopic {
			return
		}
		var s protocol.StatusMessage
		if json.Unmarshal(msg.Payload, &s) == nil && s.State == "COMPLETED" {
			cancel()
		}
	}
	n, clock := newNode(t, ft)

	require.ErrorIs(t, n.Run(ctx), context.Canceled)
	require.Equal(t, []string{"IDLE", "SPRAYING", "COMPLETED"}, states(ft.statuses(t)))
	require.GreaterOrEqual(t, clock.Elapsed(), 500*time.Millisecond)
}

func TestInvalidTopicPattern(t *testing.T) {
	board, err := sim.New(modules.BubbleName)
	require.NoError(t, err)
	build, err := modules.Lookup(modules.BubbleName)
	require.NoError(t, err)

	_, err = node.New(build(board), &fakeTransport{},
		node.WithTopicPattern("exoskeleton/{module}"))
	require.Error(t, err)
}
