package services

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsQueuedTasks(t *testing.T) {
	p := NewPool(context.Background(), 3, 10, nil)
	var n atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(func(context.Context) { n.Add(1) }))
	}
	p.Close()
	assert.Equal(t, int32(10), n.Load())
}

func TestPool_QueueFull(t *testing.T) {
	p := NewPool(context.Background(), 1, 1, nil)
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, p.Submit(func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, p.Submit(func(context.Context) {}))
	assert.ErrorIs(t, p.Submit(func(context.Context) {}), ErrQueueFull)

	close(release)
	p.Close()
}

func TestPool_ClosedAndPanics(t *testing.T) {
	p := NewPool(context.Background(), 1, 2, nil)
	var ran atomic.Bool
	require.NoError(t, p.Submit(func(context.Context) { panic("boom") }))
	require.NoError(t, p.Submit(func(context.Context) { ran.Store(true) }))
	p.Close()

	assert.True(t, ran.Load(), "worker must survive a panicking task")
	assert.ErrorIs(t, p.Submit(func(context.Context) {}), ErrPoolClosed)
	p.Close()
}
