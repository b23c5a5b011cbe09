// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package modules describes the concrete exoskeleton modules: their sensor
// channels, sampling schedules and command vocabulary.
package modules

import (
	"slices"

	"github.com/ObsidianArch02/eco-exoskeleton-project/actuator"
	"github.com/ObsidianArch02/eco-exoskeleton-project/errors"
	"github.com/ObsidianArch02/eco-exoskeleton-project/sensor"
)

type (
	// Hardware resolves the named physical inputs and outputs of a module.
	// Analog inputs read 12-bit ADC counts, digital inputs read 0 or 1 and
	// outputs take an 8-bit PWM duty or a 0/1 GPIO level.
	Hardware interface {
		Analog(name string) sensor.Source
		Digital(name string) sensor.Source
		Output(name string) actuator.Output
	}

	// Module is the full description of one module variant.
	Module struct {
		Name      string
		Schedules []sensor.Schedule
		Actions   []actuator.Action
	}

	// Builder binds a module description to hardware.
	Builder func(Hardware) Module
)

var registry = map[string]Builder{
	BubbleName:     Bubble,
	GreenhouseName: Greenhouse,
	InjectionName:  Injection,
}

// Names lists the known modules in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the builder of a named module.
func Lookup(name string) (Builder, error) {
	b, ok := registry[name]
	if !ok {
		return nil, &errors.Error{
			Kind:          errors.ConfigurationInvalid,
			Message:       "unknown module",
			PropertyName:  "module",
			PropertyValue: name,
		}
	}
	return b, nil
}

// Channels returns every channel across the module's schedules.
func (m Module) Channels() []*sensor.Channel {
	var chs []*sensor.Channel
	for _, s := range m.Schedules {
		chs = append(chs, s.Channels...)
	}
	return chs
}

// Action returns the named action, if present.
func (m Module) Action(name string) (actuator.Action, bool) {
	for _, a := range m.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return actuator.Action{}, false
}

// high reports whether a digital input reads logic high.
func high(s sensor.Source) bool {
	return s.Read() != 0
}
