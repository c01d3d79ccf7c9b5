// Package userdispatch implements the per-user broadcast delegate: it owns
// the real event-source subscriptions for one user scope, creating at most
// one subscription per action, de-duplicating identical registrations, and
// delivering matching events on each registration's executor.
package userdispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/AOSIP-old/platform-frameworks-base/broadcast"

	"github.com/prometheus/client_golang/prometheus"
)

// Source is the part of the event source a delegate needs.
type Source interface {
	Subscribe(user int, action string, h func(broadcast.Event)) (func(), error)
}

// Factory returns a broadcast.DelegateFactory that binds delegates to src.
func Factory(src Source) broadcast.DelegateFactory {
	return func(user broadcast.UserKey) broadcast.Delegate {
		return NewDelegate(src, user)
	}
}

// Delegate handles every registration for one user key. All methods are
// invoked from the dispatcher's worker goroutine; the only concurrency here
// is event delivery arriving from the source.
type Delegate struct {
	src  Source
	user broadcast.UserKey

	// receivers maps each action to its source binding, created on first
	// registration naming the action and dropped when its last registration
	// goes away.
	receivers map[string]*actionReceiver

	deliveries prometheus.Counter
	deduped    prometheus.Counter
	bindings   prometheus.Gauge

	log *slog.Logger
}

func NewDelegate(src Source, user broadcast.UserKey) *Delegate {
	return &Delegate{
		src:       src,
		user:      user,
		receivers: make(map[string]*actionReceiver),

		deliveries: deliveriesCounter.WithLabelValues(user.String()),
		deduped:    dedupedCounter.WithLabelValues(user.String()),
		bindings:   actionBindingsGauge.WithLabelValues(user.String()),

		log: slog.Default().With("system", "user-dispatch", "user", user.String()),
	}
}

// Add wires req into the per-action receivers, subscribing to the source for
// any action seen for the first time. A registration identical to one already
// present (same receiver, equal filter) is ignored.
func (d *Delegate) Add(req *broadcast.Registration) {
	for _, action := range req.Filter.Actions {
		ar, ok := d.receivers[action]
		if !ok {
			ar = &actionReceiver{action: action, delegate: d}
			unsub, err := d.src.Subscribe(d.user.UserID(), action, ar.onEvent)
			if err != nil {
				d.log.Error("source subscribe failed", "action", action, "error", err)
				continue
			}
			ar.unsub = unsub
			d.receivers[action] = ar
			d.bindings.Set(float64(len(d.receivers)))
		}
		ar.add(req)
	}
}

// Remove drops every registration held for r. Actions left with no
// registrations release their source subscription.
func (d *Delegate) Remove(r broadcast.Receiver) {
	for action, ar := range d.receivers {
		if ar.remove(r) {
			ar.unsub()
			delete(d.receivers, action)
			d.bindings.Set(float64(len(d.receivers)))
		}
	}
}

// Dump appends one line per action binding, in action order, with its
// registration count.
func (d *Delegate) Dump(w io.Writer) {
	actions := make([]string, 0, len(d.receivers))
	for a := range d.receivers {
		actions = append(actions, a)
	}
	sort.Strings(actions)

	for _, a := range actions {
		ar := d.receivers[a]
		ar.lk.Lock()
		fmt.Fprintf(w, "    action %s: %d registrations\n", a, len(ar.regs))
		ar.lk.Unlock()
	}
}

// actionReceiver holds the registrations for one (user, action) binding.
// regs is written by the dispatcher worker via add/remove and read by the
// source's delivery goroutine via onEvent, hence the lock.
type actionReceiver struct {
	action   string
	delegate *Delegate
	unsub    func()

	lk   sync.Mutex
	regs []*broadcast.Registration
}

func (ar *actionReceiver) add(req *broadcast.Registration) {
	ar.lk.Lock()
	defer ar.lk.Unlock()

	for _, reg := range ar.regs {
		if reg.Receiver == req.Receiver && reg.Filter.Equal(req.Filter) {
			ar.delegate.deduped.Inc()
			return
		}
	}
	ar.regs = append(ar.regs, req)
}

// remove reports whether the binding is now empty.
func (ar *actionReceiver) remove(r broadcast.Receiver) bool {
	ar.lk.Lock()
	defer ar.lk.Unlock()

	kept := ar.regs[:0]
	for _, reg := range ar.regs {
		if reg.Receiver != r {
			kept = append(kept, reg)
		}
	}
	ar.regs = kept
	return len(ar.regs) == 0
}

func (ar *actionReceiver) onEvent(ev broadcast.Event) {
	ar.lk.Lock()
	matched := make([]*broadcast.Registration, 0, len(ar.regs))
	for _, reg := range ar.regs {
		if reg.Filter.Matches(ev) {
			matched = append(matched, reg)
		}
	}
	ar.lk.Unlock()

	for _, reg := range matched {
		reg := reg
		ar.delegate.deliveries.Inc()
		reg.Exec.Execute(func() {
			reg.Receiver.OnReceive(context.Background(), ev)
		})
	}
}
