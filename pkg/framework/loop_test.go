package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunOncePriority(t *testing.T) {
	var order []string
	record := func(name string) Controller {
		return ControlFunc(func(ControlContext) error {
			order = append(order, name)
			return nil
		})
	}
	l := NewLoop()
	l.AddController(PrLvIdle, record("idle"))
	l.AddController(PrLvControl, record("control"))
	l.AddController(PrLvTransport, record("transport"))
	l.RunOnce(context.Background())
	assert.Equal(t, []string{"transport", "control", "idle"}, order)
}

func TestLoopClock(t *testing.T) {
	now := time.Unix(1000, 0)
	var seen []time.Time
	var iters []uint64
	l := NewLoop()
	l.Clock = TimeFunc(func() time.Time { return now })
	l.AddController(PrLvControl, ControlFunc(func(ctx ControlContext) error {
		seen = append(seen, ctx.Time())
		iters = append(iters, ctx.Iteration())
		return nil
	}))
	l.RunOnce(context.Background())
	now = now.Add(time.Second)
	l.RunOnce(context.Background())
	assert.Equal(t, []time.Time{time.Unix(1000, 0), time.Unix(1001, 0)}, seen)
	assert.Equal(t, []uint64{1, 2}, iters)
}

func TestLoopErrorHandler(t *testing.T) {
	failure := errors.New("failure")
	var got error
	l := NewLoop()
	l.ErrorHandler = func(_ Controller, err error) { got = err }
	l.AddController(PrLvControl, ControlFunc(func(ControlContext) error { return failure }))
	l.RunOnce(context.Background())
	assert.Equal(t, failure, got)
}

func TestLoopTriggerNext(t *testing.T) {
	l := NewLoop()
	l.Interval = time.Hour
	count := make(chan int, 10)
	n := 0
	l.AddController(PrLvControl, ControlFunc(func(ctx ControlContext) error {
		n++
		count <- n
		if n < 3 {
			ctx.TriggerNext()
		}
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	l.TriggerNext()
	for i := 1; i <= 3; i++ {
		select {
		case v := <-count:
			assert.Equal(t, i, v)
		case <-time.After(time.Second):
			require.Fail(t, "iteration not triggered")
		}
	}
	cancel()
	assert.Equal(t, context.Canceled, <-done)
}

type testRunnable struct {
	err error
}

func (r *testRunnable) Run(ctx context.Context) error {
	<-ctx.Done()
	if r.err != nil {
		return r.err
	}
	return ctx.Err()
}

func TestRunnerWaitAggregates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunnerWith(ctx).Go(&testRunnable{}, &testRunnable{err: errors.New("r1 failed")})
	cancel()
	err := r.Wait()
	require.Error(t, err)
	assert.Equal(t, "1: r1 failed", err.Error())
}

func TestRunnerWaitCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunnerWith(ctx).Go(&testRunnable{}, &testRunnable{})
	cancel()
	assert.NoError(t, r.Wait())
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	assert.NoError(t, errs.Add(nil).Aggregate())
	errs.Add(errors.New("e1"), nil, errors.New("e2"))
	assert.Len(t, errs.Errors, 2)
	assert.Equal(t, "multiple errors:\n  e1\n  e2", errs.Aggregate().Error())
}
