package orchestration

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// TaskState tracks a submitted command through its lifecycle.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskCancelled TaskState = "cancelled"
	TaskFailed    TaskState = "failed"
)

// IsTerminal reports whether the state is final. Terminal tasks never retry
// and never touch the history again.
func (s TaskState) IsTerminal() bool {
	return s == TaskCompleted || s == TaskCancelled || s == TaskFailed
}

// TaskHandle tracks one submitted command through the scheduler. At most one
// handle per orchestrator is non-terminal at any instant; a newer submission
// cancels the previous handle rather than waiting for it.
type TaskHandle struct {
	id      string
	command string

	mu              sync.Mutex
	state           TaskState
	err             error
	cancelRequested bool
	cancel          context.CancelFunc

	done chan struct{}
}

func newTaskHandle(command string) *TaskHandle {
	return &TaskHandle{
		id:      uuid.NewString(),
		command: command,
		state:   TaskPending,
		done:    make(chan struct{}),
	}
}

func (h *TaskHandle) ID() string { return h.id }

// Command returns the cleaned command text this task was submitted for.
func (h *TaskHandle) Command() string { return h.command }

func (h *TaskHandle) State() TaskState {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state
}

// Err returns the failure cause once the handle is Failed, nil otherwise.
// Cancellation is a lifecycle outcome, not an error.
func (h *TaskHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.err
}

// Done is closed once the handle reaches a terminal state.
func (h *TaskHandle) Done() <-chan struct{} {
	return h.done
}

// Cancel requests cooperative cancellation. It has effect only while the
// handle is Pending or Running; the running exchange observes it at its next
// suspension point, so callers must not assume the task has stopped by the
// time Cancel returns.
func (h *TaskHandle) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state.IsTerminal() {
		return
	}
	h.cancelRequested = true
	if h.cancel != nil {
		h.cancel()
	}
}

func (h *TaskHandle) cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.cancelRequested
}

// markRunning installs the cancel function and moves the handle to Running.
// Returns false when cancellation won the race while the handle was still
// queued.
func (h *TaskHandle) markRunning(cancel context.CancelFunc) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != TaskPending || h.cancelRequested {
		return false
	}
	h.state = TaskRunning
	h.cancel = cancel
	return true
}

// finish moves the handle to a terminal state and releases Done waiters. The
// first call wins; later calls are ignored.
func (h *TaskHandle) finish(state TaskState, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state.IsTerminal() {
		return
	}
	h.state = state
	h.err = err
	close(h.done)
}
