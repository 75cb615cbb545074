package model

import (
	"context"
	"fmt"
)

// Handle registers h as the handler of cmd. The command's cluster must exist.
// A later call replaces the previous handler.
func Handle[T any](ep *Endpoint, cmd Command[T], h func(ctx context.Context, req T) error) error {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	c, ok := ep.clusters[cmd.Cluster]
	if !ok {
		return fmt.Errorf("%w: 0x%04X", ErrClusterNotFound, uint32(cmd.Cluster))
	}
	if !c.hasCommand(cmd.ID) {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, cmd.Name)
	}

	ep.handlers[cmd.key()] = func(ctx context.Context, req any) error {
		r, ok := req.(T)
		if !ok {
			return fmt.Errorf("command %s: unexpected request %T", cmd.Name, req)
		}
		return h(ctx, r)
	}
	return nil
}

// Invoke dispatches req to the handler of cmd on the caller's goroutine.
func Invoke[T any](ctx context.Context, ep *Endpoint, cmd Command[T], req T) error {
	ep.mu.RLock()
	h, ok := ep.handlers[cmd.key()]
	ep.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: no handler for %s", ErrCommandNotFound, cmd.Name)
	}
	return h(ctx, req)
}

func (c *cluster) hasCommand(id CommandID) bool {
	for _, cmd := range c.commands {
		if cmd.id == id {
			return true
		}
	}
	return false
}
