// Package eventsource provides the in-process event source that per-user
// broadcast delegates bind to. A single worker goroutine owns the subscriber
// list; publishers and subscribers talk to it through an operation channel.
package eventsource

import (
	"fmt"
	"log/slog"

	"github.com/AOSIP-old/platform-frameworks-base/broadcast"
)

const (
	opSubscribe = iota
	opUnsubscribe
	opPublish
)

type operation struct {
	op  int
	sub *subscriber
	ev  broadcast.Event
}

type subscriber struct {
	user   int
	action string

	outgoing chan broadcast.Event
	done     chan struct{}
}

// wants reports whether the subscriber should see ev: the action must match,
// and the event's user scope must cover the subscription's. An all-users
// subscription sees every user's events; an all-users event reaches every
// subscriber for its action.
func (s *subscriber) wants(ev broadcast.Event) bool {
	if ev.Action != s.action {
		return false
	}
	return s.user == broadcast.AllUsers || ev.User == broadcast.AllUsers || ev.User == s.user
}

// Source fans events out to per-(user, action) subscriptions.
type Source struct {
	subs []*subscriber

	ops        chan *operation
	closed     chan struct{}
	bufferSize int

	log *slog.Logger
}

func NewSource() *Source {
	return &Source{
		ops:        make(chan *operation),
		closed:     make(chan struct{}),
		bufferSize: 1024,
		log:        slog.Default().With("system", "broadcast-source"),
	}
}

// Run drains the operation channel until Shutdown. The subscriber list is
// touched only here.
func (s *Source) Run() {
	for {
		select {
		case op := <-s.ops:
			s.handle(op)
		case <-s.closed:
			return
		}
	}
}

func (s *Source) Shutdown() {
	close(s.closed)
}

func (s *Source) handle(op *operation) {
	switch op.op {
	case opSubscribe:
		s.subs = append(s.subs, op.sub)
		subscribersGauge.Set(float64(len(s.subs)))
	case opUnsubscribe:
		for i, sub := range s.subs {
			if sub == op.sub {
				s.subs[i] = s.subs[len(s.subs)-1]
				s.subs = s.subs[:len(s.subs)-1]
				break
			}
		}
		subscribersGauge.Set(float64(len(s.subs)))
	case opPublish:
		for _, sub := range s.subs {
			if !sub.wants(op.ev) {
				continue
			}
			select {
			case sub.outgoing <- op.ev:
				eventsDeliveredCounter.Inc()
			default:
				eventsOverflowCounter.Inc()
				s.log.Error("subscriber overflow, dropping event", "action", op.ev.Action, "user", op.ev.User)
			}
		}
	default:
		s.log.Error("unrecognized source operation", "op", op.op)
	}
}

// Publish hands an event to the source. Delivery to subscribers is
// asynchronous; a subscriber that cannot keep up loses events rather than
// blocking the source.
func (s *Source) Publish(ev broadcast.Event) error {
	select {
	case s.ops <- &operation{op: opPublish, ev: ev}:
		eventsPublishedCounter.Inc()
		return nil
	case <-s.closed:
		return fmt.Errorf("event source shut down")
	}
}

// Subscribe registers h for events matching action within the given user
// scope (broadcast.AllUsers for every user). h runs on a dedicated goroutine,
// one event at a time, in publish order. The returned func cancels the
// subscription.
func (s *Source) Subscribe(user int, action string, h func(broadcast.Event)) (func(), error) {
	sub := &subscriber{
		user:     user,
		action:   action,
		outgoing: make(chan broadcast.Event, s.bufferSize),
		done:     make(chan struct{}),
	}

	select {
	case s.ops <- &operation{op: opSubscribe, sub: sub}:
	case <-s.closed:
		return nil, fmt.Errorf("event source shut down")
	}

	go func() {
		for {
			select {
			case ev := <-sub.outgoing:
				h(ev)
			case <-sub.done:
				return
			}
		}
	}()

	cleanup := func() {
		close(sub.done)
		select {
		case s.ops <- &operation{op: opUnsubscribe, sub: sub}:
		case <-s.closed:
		}
	}

	return cleanup, nil
}
