// Package outbox runs phase-2 work recorded in the outbox_tasks table. The relay claims due
// tasks and either executes them in-process through a Mux or publishes them to Kafka for
// cmd/worker to execute.
package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/3lprints/storefront/internal/models"
)

// ErrUnknownKind is returned for a task no handler is registered for.
var ErrUnknownKind = errors.New("outbox: unknown task kind")

// Handler executes one task.
type Handler func(ctx context.Context, task models.OutboxTask) error

// Executor is what the relay hands claimed tasks to.
type Executor interface {
	Execute(ctx context.Context, task models.OutboxTask) error
}

// Mux routes tasks to handlers by kind.
type Mux struct {
	handlers map[string]Handler
}

func NewMux() *Mux {
	return &Mux{handlers: make(map[string]Handler)}
}

// Handle registers h for kind, replacing any previous handler.
func (m *Mux) Handle(kind string, h Handler) {
	m.handlers[kind] = h
}

// Execute runs the handler registered for task.Kind.
func (m *Mux) Execute(ctx context.Context, task models.OutboxTask) error {
	h, ok := m.handlers[task.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, task.Kind)
	}
	return h(ctx, task)
}
