// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package protocol

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/ObsidianArch02/eco-exoskeleton-project/actuator"
	"github.com/ObsidianArch02/eco-exoskeleton-project/sensor"
)

type (
	// CommandMessage is the inbound command shape. Params are kept raw so
	// that each field can be checked for being numeric individually.
	CommandMessage struct {
		Action string                     `json:"action"`
		Params map[string]json.RawMessage `json:"params,omitempty"`
	}

	// StatusMessage is published on every state transition.
	StatusMessage struct {
		Module    string `json:"module"`
		State     string `json:"state"`
		Message   string `json:"message"`
		Timestamp int64  `json:"timestamp"`
	}

	// SensorMessage is one merged sample; it encodes as a flat object whose
	// keys are the channel names in schedule order.
	SensorMessage sensor.Sample
)

// Command converts the message, keeping only numeric parameters.
func (m CommandMessage) Command() actuator.Command {
	cmd := actuator.Command{
		Action: m.Action,
		Params: make(actuator.Params, len(m.Params)),
	}
	for name, raw := range m.Params {
		var v float64
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		cmd.Params[name] = v
	}
	return cmd
}

// MarshalJSON encodes the readings in order, with digital channels as
// booleans.
func (m SensorMessage) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range m.Readings {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Channel)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var val []byte
		switch {
		case r.Digital:
			val, err = json.Marshal(r.Bool())
		case math.IsNaN(r.Value) || math.IsInf(r.Value, 0):
			val = []byte("null")
		default:
			val, err = json.Marshal(r.Value)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
