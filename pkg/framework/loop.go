package framework

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Loop is the foreground control loop. It runs all controllers by
// priority once per iteration. An iteration starts when Interval
// elapses or when TriggerNext is called, whichever comes first.
type Loop struct {
	Interval time.Duration

	controllers [PriorityLevels]controllerList
	runners     []Runnable
	iteration   uint64

	wakeUpCh chan struct{}
	initOnce sync.Once
}

type loopCtl struct {
	*Loop
}

type loopIteration struct {
	loopCtl
	ctx           context.Context
	time          time.Time
	seq           uint64
	priorityLevel int
}

type controllerList struct {
	controllers []Controller
}

var (
	loopCtxKey = &Loop{}
)

// DefaultLoopInterval is the iteration interval when nothing wakes up
// the loop earlier.
const DefaultLoopInterval = time.Millisecond

// LoopCtlFrom gets LoopControl from context.
func LoopCtlFrom(ctx context.Context) LoopControl {
	return ctx.Value(loopCtxKey).(LoopControl)
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultLoopInterval}
}

func (l *Loop) init() {
	l.initOnce.Do(func() {
		l.wakeUpCh = make(chan struct{}, 1)
	})
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
	lst := &l.controllers[priorityLevel]
	lst.controllers = append(lst.controllers, ctls...)
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

// Run implements Runnable. It returns when ctx is canceled or any of
// the runnables exits, after all runnables stopped.
func (l *Loop) Run(ctx context.Context) error {
	l.init()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runner := NewRunnerWith(context.WithValue(ctx, loopCtxKey, &loopCtl{l}))
	runner.Go(l.runners...)

	interval := l.Interval
	if interval == 0 {
		interval = DefaultLoopInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cancel()
			if err := runner.Wait(); err != nil {
				return err
			}
			return ctx.Err()
		case <-runner.Exited():
			glog.V(2).Info("runner exited, stopping loop")
			cancel()
			return runner.Wait()
		case <-ticker.C:
			l.Step(ctx)
		case <-l.wakeUpCh:
			l.Step(ctx)
		}
	}
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail(ctx context.Context) {
	if err := l.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalln(err)
	}
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	l.init()
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// Step runs exactly one iteration of all controllers.
func (l *Loop) Step(ctx context.Context) {
	l.iteration++
	iter := &loopIteration{loopCtl: loopCtl{l}, time: time.Now(), seq: l.iteration}
	iter.ctx = context.WithValue(ctx, loopCtxKey, iter)
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		l.controllers[i].run(iter)
	}
}

func (t *loopIteration) Context() context.Context {
	return t.ctx
}

func (t *loopIteration) Time() time.Time {
	return t.time
}

func (t *loopIteration) PriorityLevel() int {
	return t.priorityLevel
}

func (t *loopIteration) Iteration() uint64 {
	return t.seq
}

func (c *controllerList) run(iter *loopIteration) {
	for _, ctl := range c.controllers {
		if err := ctl.Control(iter); err != nil {
			glog.Errorf("controller error: %v", err)
		}
	}
}
