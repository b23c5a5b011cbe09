// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package queue_test

import (
	"sync"
	"testing"

	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/queue"
	"github.com/stretchr/testify/require"
)

func TestQueueOrder(t *testing.T) {
	q := queue.New[int](100)

	for i := 0; i < 50; i++ {
		require.True(t, q.Push(i))
	}
	for i := 0; i < 10; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	for i := 50; i < 100; i++ {
		require.True(t, q.Push(i))
	}
	for i := 10; i < 100; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}

	_, ok := q.Pop()
	require.False(t, ok)
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := queue.New[int](3)

	require.True(t, q.Push(1))
	require.True(t, q.Push(2))
	require.True(t, q.Push(3))
	require.False(t, q.Push(4))
	require.Equal(t, 3, q.Len())

	require.Equal(t, []int{1, 2, 3}, q.Drain())
	require.Zero(t, q.Len())
	require.Nil(t, q.Drain())
}

func TestQueueWrapAround(t *testing.T) {
	q := queue.New[string](2)

	for _, s := range []string{"a", "b", "c", "d", "e"} {
		require.True(t, q.Push(s))
		v, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, s, v)
	}
}

func TestQueueClear(t *testing.T) {
	q := queue.New[int](4)
	q.Push(1)
	q.Push(2)
	q.Clear()
	require.Zero(t, q.Len())
	require.True(t, q.Push(3))
	require.Equal(t, []int{3}, q.Drain())
}

func TestQueueConcurrentPush(t *testing.T) {
	q := queue.New[int](1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(base*100 + j)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1000, q.Len())
	require.Len(t, q.Drain(), 1000)
}
