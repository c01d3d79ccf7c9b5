// Package broadcast multiplexes system broadcast registrations: many
// consumers in one process register interest in events filtered by action,
// category and target user, and the dispatcher funnels every registry
// mutation through a single worker goroutine so the underlying per-user
// event-source binding is created at most once per user and never touched
// concurrently.
package broadcast

import "context"

// Event is a single system broadcast.
type Event struct {
	Action     string            `json:"action"`
	Categories []string          `json:"categories,omitempty"`
	User       int               `json:"user"`
	Extras     map[string]string `json:"extras,omitempty"`
}

// Receiver is the thing that gets broadcasts delivered to it. Receivers are
// compared by interface identity when unregistering and de-duplicating, so
// register pointer values.
type Receiver interface {
	OnReceive(ctx context.Context, ev Event)
}

// Executor runs a consumer callback on some execution context other than the
// goroutine that produced the event. Implementations live in the executors
// subpackages.
type Executor interface {
	Execute(fn func())
}
