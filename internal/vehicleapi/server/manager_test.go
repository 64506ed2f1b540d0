package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManagerStopsOnCancel(t *testing.T) {
	var stopped atomic.Int32
	m := NewManager(
		Task(func(ctx context.Context) { <-ctx.Done(); stopped.Add(1) }),
	)
	m.Add(Func(func(ctx context.Context) error { <-ctx.Done(); stopped.Add(1); return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("manager did not stop")
	}
	assert.Equal(t, int32(2), stopped.Load())
}

func TestManagerFirstErrorCancelsOthers(t *testing.T) {
	boom := errors.New("listen failed")
	m := NewManager(
		Func(func(context.Context) error { return boom }),
		Task(func(ctx context.Context) { <-ctx.Done() }),
	)

	assert.ErrorIs(t, m.Start(context.Background()), boom)
}
