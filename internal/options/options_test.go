// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package options_test

import (
	"testing"

	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/options"
	"github.com/stretchr/testify/require"
)

type (
	opt  interface{ apply(*opts) }
	opts struct{ values []int }
	with int
)

func (w with) apply(o *opts) { o.values = append(o.values, int(w)) }

func TestApplySkipsNil(t *testing.T) {
	var o opts
	for v := range options.Apply[opt]([]opt{with(1), nil}, nil, with(2)) {
		v.apply(&o)
	}
	require.Equal(t, []int{1, 2}, o.values)
}

func TestApplyStopsEarly(t *testing.T) {
	count := 0
	for range options.Apply[opt]([]opt{with(1), with(2), with(3)}) {
		count++
		if count == 2 {
			break
		}
	}
	require.Equal(t, 2, count)
}
