// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package metrics exposes module health as Prometheus collectors. Every method
// is safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for one module process.
type Metrics struct {
	connectionState   prometheus.Gauge
	reconnectFailures prometheus.Counter
	inboundDropped    prometheus.Counter
	published         *prometheus.CounterVec
	publishFailures   *prometheus.CounterVec
	commands          *prometheus.CounterVec
	runs              *prometheus.CounterVec
	sensorValues      *prometheus.GaugeVec
}

// New creates the collectors, labelled with the module name, and registers
// them with reg.
func New(reg prometheus.Registerer, module string) (*Metrics, error) {
	labels := prometheus.Labels{"module": module}
	m := &Metrics{
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "exo_connection_state",
			Help:        "Connection state (0 disconnected, 1 link up, 2 broker connected, 3 degraded).",
			ConstLabels: labels,
		}),
		reconnectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "exo_reconnect_failures_total",
			Help:        "Total failed connection cycles.",
			ConstLabels: labels,
		}),
		inboundDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "exo_inbound_dropped_total",
			Help:        "Inbound messages dropped because the queue was full.",
			ConstLabels: labels,
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "exo_messages_published_total",
			Help:        "Messages published by kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "exo_publish_failures_total",
			Help:        "Failed publishes by kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "exo_commands_total",
			Help:        "Inbound commands by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "exo_actuator_runs_total",
			Help:        "Finished actuator runs by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		sensorValues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "exo_sensor_value",
			Help:        "Most recent calibrated value per channel.",
			ConstLabels: labels,
		}, []string{"channel"}),
	}

	for _, c := range []prometheus.Collector{
		m.connectionState,
		m.reconnectFailures,
		m.inboundDropped,
		m.published,
		m.publishFailures,
		m.commands,
		m.runs,
		m.sensorValues,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ConnectionState records the numeric connection state.
func (m *Metrics) ConnectionState(state int) {
	if m != nil {
		m.connectionState.Set(float64(state))
	}
}

// ReconnectFailure counts one failed connection cycle.
func (m *Metrics) ReconnectFailure() {
	if m != nil {
		m.reconnectFailures.Inc()
	}
}

// InboundDropped counts one message lost to a full inbound queue.
func (m *Metrics) InboundDropped() {
	if m != nil {
		m.inboundDropped.Inc()
	}
}

// Published counts a successful publish of the given kind.
func (m *Metrics) Published(kind string) {
	if m != nil {
		m.published.WithLabelValues(kind).Inc()
	}
}

// PublishFailed counts a failed publish of the given kind.
func (m *Metrics) PublishFailed(kind string) {
	if m != nil {
		m.publishFailures.WithLabelValues(kind).Inc()
	}
}

// Command counts an inbound command with its dispatch result.
func (m *Metrics) Command(result string) {
	if m != nil {
		m.commands.WithLabelValues(result).Inc()
	}
}

// RunFinished counts an actuator run that reached a terminal phase.
func (m *Metrics) RunFinished(outcome string) {
	if m != nil {
		m.runs.WithLabelValues(outcome).Inc()
	}
}

// SensorValue records the latest calibrated value of a channel.
func (m *Metrics) SensorValue(channel string, value float64) {
	if m != nil {
		m.sensorValues.WithLabelValues(channel).Set(value)
	}
}
