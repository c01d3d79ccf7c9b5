package broadcast

import "io"

// Registration is one consumer's interest in broadcasts for one user scope.
// Immutable once constructed; the dispatcher builds it on the caller's
// goroutine and hands it to a delegate on the worker goroutine.
type Registration struct {
	Receiver Receiver
	Filter   Filter
	Exec     Executor
	User     int
}

// Delegate owns the real event-source binding for one UserKey: the low-level
// subscribe and unsubscribe calls, de-duplication of identical filters, and
// callback delivery on each registration's executor. Add, Remove and Dump are
// only ever invoked from the dispatcher's worker goroutine; any concurrency
// beyond that is the delegate's own business.
type Delegate interface {
	Add(req *Registration)
	Remove(r Receiver)
	Dump(w io.Writer)
}

// DelegateFactory creates the delegate for a user key the first time a
// registration names it. Called from the worker goroutine, at most once per
// key for the life of the process.
type DelegateFactory func(user UserKey) Delegate
