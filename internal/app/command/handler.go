package command

import "context"

// Handler is the interface for command handlers.
// A command runs one unit of work to completion and reports its result.
type Handler[C any, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

// HandlerFunc is a function adapter for Handler interface.
type HandlerFunc[C any, R any] func(ctx context.Context, cmd C) (R, error)

// Handle implements Handler interface.
func (f HandlerFunc[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	return f(ctx, cmd)
}
