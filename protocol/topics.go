// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package protocol

import (
	"strings"

	"github.com/ObsidianArch02/eco-exoskeleton-project/errors"
)

// DefaultTopicPattern is the topic layout of the exoskeleton controller.
const DefaultTopicPattern = "exoskeleton/{module}/{kind}"

// Topics are the per-module channel names.
type Topics struct {
	Command string
	Status  string
	Sensors string
}

// NewTopics expands a pattern containing the {module} and {kind} tokens into
// the command, status and sensors topics of a module.
func NewTopics(pattern, module string) (Topics, error) {
	if pattern == "" {
		pattern = DefaultTopicPattern
	}
	if !strings.Contains(pattern, "{kind}") {
		return Topics{}, &errors.Error{
			Kind:          errors.ConfigurationInvalid,
			Message:       "topic pattern must contain {kind}",
			PropertyName:  "topic_pattern",
			PropertyValue: pattern,
		}
	}
	if strings.ContainsAny(module, "/+#") || module == "" {
		return Topics{}, &errors.Error{
			Kind:          errors.ConfigurationInvalid,
			Message:       "module name is not a valid topic level",
			PropertyName:  "module",
			PropertyValue: module,
		}
	}

	expand := func(kind string) string {
		return strings.NewReplacer("{module}", module, "{kind}", kind).
			Replace(pattern)
	}
	return Topics{
		Command: expand("command"),
		Status:  expand("status"),
		Sensors: expand("sensors"),
	}, nil
}
