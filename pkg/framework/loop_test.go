package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoopStepOrder(t *testing.T) {
	var order []int
	loop := NewLoop()
	loop.AddController(PrLvOutput, ControlFunc(func(ctx ControlContext) error {
		order = append(order, ctx.PriorityLevel())
		return nil
	}))
	loop.AddController(PrLvInput, ControlFunc(func(ctx ControlContext) error {
		order = append(order, ctx.PriorityLevel())
		return errors.New("ignored")
	}))
	loop.Step(context.Background())
	loop.Step(context.Background())
	require.Equal(t, []int{PrLvInput, PrLvOutput, PrLvInput, PrLvOutput}, order)
}

func TestLoopTriggerNext(t *testing.T) {
	iterations := make(chan uint64, 16)
	loop := NewLoop()
	loop.Interval = time.Hour
	loop.AddController(PrLvNormal, ControlFunc(func(ctx ControlContext) error {
		select {
		case iterations <- ctx.Iteration():
		default:
		}
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	loop.TriggerNext()
	select {
	case n := <-iterations:
		require.Equal(t, uint64(1), n)
	case <-time.After(time.Second):
		t.Fatal("loop not woken up")
	}
	cancel()
	require.Equal(t, context.Canceled, <-done)
}

func TestLoopStopsWhenRunnableExits(t *testing.T) {
	loop := NewLoop()
	failure := errors.New("link closed")
	loop.AddRunnable(NamedRun("failing", RunFunc(func(ctx context.Context) error {
		return failure
	})))
	loop.AddRunnable(NamedRun("waiting", RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})))
	err := loop.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "link closed")
}
