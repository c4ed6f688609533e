package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/voiceos-labs/voiceos-core/core/agents"
)

const commandQueueCapacity = 10

// scheduledCommand is one queued exchange: the handle tracking it, the
// history snapshot it runs against and the generation that snapshot belongs
// to.
type scheduledCommand struct {
	handle     *TaskHandle
	turns      []agents.Turn
	generation uint64
	queuedAt   time.Time
}

// turnScheduler runs remote exchanges one at a time on a single loop
// goroutine. A new submission cancels whatever is currently non-terminal
// before taking its place, so the newest command always wins over a stale
// one.
type turnScheduler struct {
	queue   chan scheduledCommand
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once

	started atomic.Bool

	currentMu sync.Mutex
	current   *TaskHandle

	onFinished func(handle *TaskHandle)
}

func newTurnScheduler() *turnScheduler {
	return &turnScheduler{
		queue:   make(chan scheduledCommand, commandQueueCapacity),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),

		onFinished: func(*TaskHandle) {},
	}
}

// SetOnFinished registers the callback invoked after every handle reaches a
// terminal state, cancelled-while-queued handles included.
func (s *turnScheduler) SetOnFinished(onFinished func(handle *TaskHandle)) {
	if s == nil {
		return
	}

	if onFinished != nil {
		s.onFinished = onFinished
	}
}

func (s *turnScheduler) CanSubmit() bool {
	if s == nil {
		return false
	}

	select {
	case <-s.closeCh:
		return false
	default:
		return true
	}
}

// Submit queues one command for execution and makes its handle current. If
// the previous current handle is still non-terminal it is cancelled first,
// fire and forget; the caller never waits for the old exchange to unwind.
func (s *turnScheduler) Submit(command scheduledCommand) bool {
	if s == nil || !s.CanSubmit() {
		return false
	}

	s.currentMu.Lock()
	if s.current != nil && !s.current.State().IsTerminal() {
		s.current.Cancel()
	}
	s.current = command.handle
	s.currentMu.Unlock()

	select {
	case <-s.closeCh:
		return false
	case s.queue <- command:
		return true
	}
}

// Current returns the most recently submitted handle while it is still
// non-terminal, nil otherwise.
func (s *turnScheduler) Current() *TaskHandle {
	if s == nil {
		return nil
	}

	s.currentMu.Lock()
	defer s.currentMu.Unlock()

	if s.current == nil || s.current.State().IsTerminal() {
		return nil
	}
	return s.current
}

// CancelCurrent cancels the current handle if there is one.
func (s *turnScheduler) CancelCurrent() {
	if handle := s.Current(); handle != nil {
		handle.Cancel()
	}
}

func (s *turnScheduler) StartLoop(baseCtx context.Context, runTurn func(context.Context, scheduledCommand) error) (started bool) {
	if s == nil || runTurn == nil || !s.CanSubmit() {
		return false
	}

	s.startOnce.Do(func() {
		if !s.CanSubmit() {
			return
		}

		started = true
		s.started.Store(true)
		go func() {
			defer close(s.done)

			for {
				select {
				case <-s.closeCh:
					return
				case command := <-s.queue:
					if !s.CanSubmit() {
						command.handle.finish(TaskCancelled, nil)
						s.onFinished(command.handle)
						return
					}
					s.processCommand(baseCtx, command, runTurn)
				}
			}
		}()
	})

	return started
}

func (s *turnScheduler) Stop() {
	if s == nil {
		return
	}

	s.endOnce.Do(func() { close(s.closeCh) })
}

// Clear drains queued commands without running them, returning what was
// dropped so callers can finish the handles.
func (s *turnScheduler) Clear() []scheduledCommand {
	if s == nil {
		return nil
	}

	var dropped []scheduledCommand
	for {
		select {
		case command := <-s.queue:
			dropped = append(dropped, command)
		default:
			return dropped
		}
	}
}

func (s *turnScheduler) AwaitDone() {
	if s == nil {
		return
	}

	if s.started.Load() {
		<-s.done
	}
}

func (s *turnScheduler) processCommand(
	baseContext context.Context,
	command scheduledCommand,
	runTurn func(context.Context, scheduledCommand) error,
) {
	handle := command.handle

	turnCtx, turnCancel := context.WithCancel(baseContext)
	defer turnCancel()

	if !handle.markRunning(turnCancel) {
		handle.finish(TaskCancelled, nil)
		s.onFinished(handle)
		return
	}

	go func() {
		select {
		case <-s.closeCh:
			turnCancel()
		case <-turnCtx.Done():
		}
	}()

	ctx, span := tracer.Start(turnCtx, "process command")
	defer span.End()

	queuedTime := time.Since(command.queuedAt).Seconds()
	span.AddEvent("taken out of queue", trace.WithAttributes(attribute.Float64("command.queued_time", queuedTime)))
	span.SetAttributes(attribute.Float64("command.queued_time", queuedTime))

	switch err := runTurn(ctx, command); {
	case err == nil:
		handle.finish(TaskCompleted, nil)
	case errors.Is(err, context.Canceled) || handle.cancelled():
		span.AddEvent("command cancelled")
		handle.finish(TaskCancelled, nil)
	default:
		err = fmt.Errorf("failed to process command: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handle.finish(TaskFailed, err)
	}

	s.onFinished(handle)
}
