// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package options

import "iter"

// Apply yields every non-nil option from the provided lists in order, so that
// later options override earlier ones when resolved.
func Apply[T any](opts []T, rest ...T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, list := range [][]T{opts, rest} {
			for _, opt := range list {
				if any(opt) == nil {
					continue
				}
				if !yield(opt) {
					return
				}
			}
		}
	}
}
