package value

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// HandleVal is the pending result of a detached task invocation.
type HandleVal struct {
	ID   uuid.UUID
	Task string

	once   sync.Once
	done   chan struct{}
	result Value
	err    error
}

// NewHandle creates a pending handle for the named task.
func NewHandle(task string) *HandleVal {
	return &HandleVal{
		ID:   uuid.New(),
		Task: task,
		done: make(chan struct{}),
	}
}

func (h *HandleVal) TypeName() string { return "Task" }
func (h *HandleVal) String() string {
	state := "pending"
	select {
	case <-h.done:
		state = "done"
	default:
	}
	return fmt.Sprintf("<task %s %s %s>", h.Task, h.ID.String()[:8], state)
}

// Complete records the outcome. Only the first call has an effect.
func (h *HandleVal) Complete(result Value, err error) {
	h.once.Do(func() {
		h.result, h.err = result, err
		close(h.done)
	})
}

// Done is closed when the invocation has finished.
func (h *HandleVal) Done() <-chan struct{} { return h.done }

// Wait blocks until the invocation finishes or ctx is cancelled.
func (h *HandleVal) Wait(ctx context.Context) (Value, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
