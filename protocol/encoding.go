// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package protocol

import (
	"encoding/json"

	"github.com/ObsidianArch02/eco-exoskeleton-project/errors"
)

type (
	// Encoding is a translation between a concrete Go type T and payload
	// bytes. All methods *must* be thread-safe.
	Encoding[T any] interface {
		Serialize(T) ([]byte, error)
		Deserialize([]byte) (T, error)
	}

	// JSON is a simple implementation of a JSON encoding.
	JSON[T any] struct{}

	// Empty represents an encoding that contains no value.
	Empty struct{}
)

// Serialize translates the Go type T into JSON bytes.
func (JSON[T]) Serialize(t T) ([]byte, error) {
	return json.Marshal(t)
}

// Deserialize translates JSON bytes into the Go type T.
func (JSON[T]) Deserialize(data []byte) (T, error) {
	var t T
	err := json.Unmarshal(data, &t)
	return t, err
}

// Serialize validates that there is no value.
func (Empty) Serialize(t any) ([]byte, error) {
	if t != nil {
		return nil, &errors.Error{
			Message: "unexpected payload for empty type",
			Kind:    errors.PayloadInvalid,
		}
	}
	return nil, nil
}

// Deserialize validates that the payload is empty.
func (Empty) Deserialize(data []byte) (any, error) {
	if len(data) != 0 {
		return nil, &errors.Error{
			Message: "unexpected payload for empty type",
			Kind:    errors.PayloadInvalid,
		}
	}
	return nil, nil
}

// Utility to serialize with a structured error.
func serialize[T any](encoding Encoding[T], value T) ([]byte, error) {
	data, err := encoding.Serialize(value)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			return nil, e
		}
		return nil, &errors.Error{
			Message:     "cannot serialize payload",
			Kind:        errors.PayloadInvalid,
			NestedError: err,
		}
	}
	return data, nil
}

// Utility to deserialize with a structured error.
func deserialize[T any](encoding Encoding[T], data []byte) (T, error) {
	value, err := encoding.Deserialize(data)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			return value, e
		}
		return value, &errors.Error{
			Message:     "cannot deserialize payload",
			Kind:        errors.PayloadInvalid,
			NestedError: err,
		}
	}
	return value, nil
}
