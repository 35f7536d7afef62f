package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLoop()
	go l.Run(ctx)

	var got []int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		l.Post(func() {
			got = append(got, i)
			wg.Done()
		})
	}
	wg.Wait()

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoopCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLoop()
	go l.Run(ctx)

	ran := false
	require.NoError(t, l.Call(ctx, func() { ran = true }))
	assert.True(t, ran)
}

func TestLoopCallAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop()
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	callCtx, callCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer callCancel()
	assert.ErrorIs(t, l.Call(callCtx, func() {}), context.DeadlineExceeded)
}
