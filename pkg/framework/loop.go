package framework

import (
	"context"
	"log"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the polling interval when nothing triggers the loop.
const DefaultInterval = time.Millisecond

// Loop is a cooperative poll loop. All controllers run on the loop
// goroutine, in priority order, so they never need locking between
// each other.
type Loop struct {
	Interval time.Duration
	// Clock overrides time.Now, mostly for tests.
	Clock TimeSource
	// ErrorHandler receives errors returned by controllers.
	// Errors are logged if not set.
	ErrorHandler func(Controller, error)

	controllers [PriorityLevels][]Controller
	runners     []Runnable
	iteration   uint64
	wakeUpCh    chan struct{}
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopIteration struct {
	loop *Loop
	ctx  context.Context
	time time.Time
	seq  uint64
}

var loopCtxKey = &Loop{}

// LoopCtlFrom gets LoopControl from context.
func LoopCtlFrom(ctx context.Context) LoopControl {
	return ctx.Value(loopCtxKey).(LoopControl)
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval, wakeUpCh: make(chan struct{}, 1)}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers to the loop.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnable implementions.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Name implements Named.
func (l *Loop) Name() string {
	return "loop"
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	ctx = context.WithValue(ctx, loopCtxKey, LoopControl(l))

	runner := NewRunnerWith(ctx)
	runner.Go(l.runners...)
	defer runner.Wait()

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.RunOnce(ctx)
		case <-l.wakeUpCh:
			l.RunOnce(ctx)
		}
	}
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail(ctx context.Context) {
	if err := l.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalln(err)
	}
}

// TriggerNext implements LoopControl. It is safe to call from any goroutine.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// RunOnce runs a single iteration of all controllers on the calling goroutine.
func (l *Loop) RunOnce(ctx context.Context) {
	l.iteration++
	iter := &loopIteration{loop: l, ctx: ctx, seq: l.iteration}
	if l.Clock != nil {
		iter.time = l.Clock.Time()
	} else {
		iter.time = time.Now()
	}
	for i := 0; i < PriorityLevels; i++ {
		for _, ctl := range l.controllers[i] {
			if err := ctl.Control(iter); err != nil {
				if h := l.ErrorHandler; h != nil {
					h(ctl, err)
				} else {
					glog.Errorf("controller error: %v", err)
				}
			}
		}
	}
}

func (t *loopIteration) Context() context.Context {
	return t.ctx
}

func (t *loopIteration) Time() time.Time {
	return t.time
}

func (t *loopIteration) Iteration() uint64 {
	return t.seq
}

func (t *loopIteration) TriggerNext() {
	t.loop.TriggerNext()
}
