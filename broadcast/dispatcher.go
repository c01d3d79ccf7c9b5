package broadcast

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

const (
	opRegister = iota
	opUnregisterAll
	opUnregisterUser
	opDump
)

var opNames = []string{"register", "unregister_all", "unregister_user", "dump"}

type operation struct {
	op int

	req      *Registration
	receiver Receiver
	user     int

	wr   io.Writer
	done chan struct{}
}

// Dispatcher is the caller-facing front door plus the single worker that owns
// the per-user delegate registry. Front-door methods may be called from any
// goroutine; they validate synchronously, enqueue an operation, and return
// without waiting for the worker to apply it.
type Dispatcher struct {
	ops    chan *operation
	closed chan struct{}

	// registry maps each observed user key to its delegate. It is read and
	// written only by the Run goroutine; entries are never removed.
	registry map[UserKey]Delegate

	factory     DelegateFactory
	defaultExec Executor
	currentUser func() int

	dropLogLimit *rate.Limiter
	log          *slog.Logger
}

// NewDispatcher builds a dispatcher. factory creates the delegate for a user
// key on first use; defaultExec runs callbacks for registrations that did not
// supply their own executor; currentUser resolves the default user scope for
// Register (nil means user 0). Call Run on its own goroutine before
// registering.
func NewDispatcher(factory DelegateFactory, defaultExec Executor, currentUser func() int) *Dispatcher {
	if currentUser == nil {
		currentUser = func() int { return 0 }
	}
	return &Dispatcher{
		ops:          make(chan *operation),
		closed:       make(chan struct{}),
		registry:     make(map[UserKey]Delegate),
		factory:      factory,
		defaultExec:  defaultExec,
		currentUser:  currentUser,
		dropLogLimit: rate.NewLimiter(rate.Every(time.Second), 5),
		log:          slog.Default().With("system", "broadcast-dispatcher"),
	}
}

// Run drains the operation mailbox in strict submission order until Shutdown.
func (d *Dispatcher) Run() {
	for {
		select {
		case op := <-d.ops:
			d.handle(op)
		case <-d.closed:
			return
		}
	}
}

// Shutdown stops the worker. Operations enqueued after shutdown are refused;
// operations already in flight may be lost.
func (d *Dispatcher) Shutdown() {
	close(d.closed)
}

// Register subscribes r for broadcasts matching f, scoped to the caller's
// current user, with callbacks on the default executor. The filter is
// validated here, on the calling goroutine: an unsupported filter fails
// immediately with an error wrapping ErrUnsupportedFilter and nothing is
// enqueued. A nil error means the registration will eventually be applied;
// there is no way to wait for it.
func (d *Dispatcher) Register(r Receiver, f Filter) error {
	return d.RegisterForUser(r, f, nil, d.currentUser())
}

// RegisterForUser is Register with an explicit callback executor and user
// scope. exec may be nil for the default executor; user may be AllUsers to
// receive broadcasts for every user.
func (d *Dispatcher) RegisterForUser(r Receiver, f Filter, exec Executor, user int) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if exec == nil {
		exec = d.defaultExec
	}
	return d.enqueue(&operation{
		op: opRegister,
		req: &Registration{
			Receiver: r,
			Filter:   f,
			Exec:     exec,
			User:     user,
		},
	})
}

// Unregister removes r from every user entry in the registry, including
// entries r was never registered under (a no-op there) and the all-users
// entry. Fire and forget.
func (d *Dispatcher) Unregister(r Receiver) {
	d.enqueue(&operation{op: opUnregisterAll, receiver: r})
}

// UnregisterForUser removes r from exactly one user entry. AllUsers names the
// all-users entry itself, not every entry. Fire and forget.
func (d *Dispatcher) UnregisterForUser(r Receiver, user int) {
	d.enqueue(&operation{op: opUnregisterUser, receiver: r, user: user})
}

// Dump writes the registry state to w: a header, then one section per user
// entry in key order with that delegate's own diagnostic text. The write
// happens on the worker goroutine; Dump blocks until it is done, which also
// makes it a convenient barrier for everything enqueued before it.
func (d *Dispatcher) Dump(w io.Writer) error {
	op := &operation{op: opDump, wr: w, done: make(chan struct{})}
	if err := d.enqueue(op); err != nil {
		return err
	}
	select {
	case <-op.done:
		return nil
	case <-d.closed:
		return fmt.Errorf("broadcast dispatcher shut down")
	}
}

func (d *Dispatcher) enqueue(op *operation) error {
	select {
	case d.ops <- op:
		opsEnqueuedCounter.WithLabelValues(opNames[op.op]).Inc()
		return nil
	case <-d.closed:
		return fmt.Errorf("broadcast dispatcher shut down")
	}
}

func (d *Dispatcher) handle(op *operation) {
	switch op.op {
	case opRegister:
		key, ok := UserKeyFor(op.req.User)
		if !ok {
			// Validation does not look at user ids, so an invalid id is
			// caught here and the message dropped without disturbing the
			// registry or anything queued behind it.
			opsDroppedCounter.WithLabelValues("invalid_user").Inc()
			if d.dropLogLimit.Allow() {
				d.log.Warn("dropping registration for invalid user", "user", op.req.User)
			}
			return
		}
		d.delegateFor(key).Add(op.req)
	case opUnregisterAll:
		for _, del := range d.registry {
			del.Remove(op.receiver)
		}
	case opUnregisterUser:
		key, ok := UserKeyFor(op.user)
		if !ok {
			return
		}
		if del, ok := d.registry[key]; ok {
			del.Remove(op.receiver)
		}
	case opDump:
		d.dump(op.wr)
		close(op.done)
	default:
		d.log.Error("unrecognized dispatcher operation", "op", op.op)
	}
}

func (d *Dispatcher) delegateFor(key UserKey) Delegate {
	del, ok := d.registry[key]
	if !ok {
		del = d.factory(key)
		d.registry[key] = del
		delegatesCreatedCounter.Inc()
		registrySizeGauge.Set(float64(len(d.registry)))
		d.log.Debug("created delegate", "user", key.String())
	}
	return del
}

func (d *Dispatcher) dump(w io.Writer) {
	keys := make([]UserKey, 0, len(d.registry))
	for k := range d.registry {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	fmt.Fprintf(w, "broadcast dispatcher registry (%d users):\n", len(keys))
	for _, k := range keys {
		fmt.Fprintf(w, "  user %s:\n", k)
		d.registry[k].Dump(w)
	}
}
