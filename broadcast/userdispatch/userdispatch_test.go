package userdispatch_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/AOSIP-old/platform-frameworks-base/broadcast"
	"github.com/AOSIP-old/platform-frameworks-base/broadcast/userdispatch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type directExecutor struct{}

func (directExecutor) Execute(fn func()) {
	fn()
}

type countingReceiver struct {
	lk     sync.Mutex
	events []broadcast.Event
}

func (r *countingReceiver) OnReceive(ctx context.Context, ev broadcast.Event) {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.events = append(r.events, ev)
}

func (r *countingReceiver) count() int {
	r.lk.Lock()
	defer r.lk.Unlock()
	return len(r.events)
}

type subscription struct {
	user    int
	action  string
	handler func(broadcast.Event)
	active  bool
}

// fakeSource records subscriptions and lets tests push events straight into
// the handlers.
type fakeSource struct {
	subs []*subscription
}

func (s *fakeSource) Subscribe(user int, action string, h func(broadcast.Event)) (func(), error) {
	sub := &subscription{user: user, action: action, handler: h, active: true}
	s.subs = append(s.subs, sub)
	return func() { sub.active = false }, nil
}

func (s *fakeSource) emit(ev broadcast.Event) {
	for _, sub := range s.subs {
		if sub.active && sub.action == ev.Action {
			sub.handler(ev)
		}
	}
}

func (s *fakeSource) activeFor(action string) int {
	n := 0
	for _, sub := range s.subs {
		if sub.active && sub.action == action {
			n++
		}
	}
	return n
}

func reg(r broadcast.Receiver, f broadcast.Filter) *broadcast.Registration {
	return &broadcast.Registration{
		Receiver: r,
		Filter:   f,
		Exec:     directExecutor{},
		User:     0,
	}
}

func TestAddSubscribesOncePerAction(t *testing.T) {
	assert := assert.New(t)
	src := &fakeSource{}
	del := userdispatch.NewDelegate(src, broadcast.AllUsersKey())

	r1 := &countingReceiver{}
	r2 := &countingReceiver{}
	del.Add(reg(r1, broadcast.Filter{Actions: []string{"a"}}))
	del.Add(reg(r2, broadcast.Filter{Actions: []string{"a", "b"}}))

	assert.Equal(1, src.activeFor("a"))
	assert.Equal(1, src.activeFor("b"))

	src.emit(broadcast.Event{Action: "a"})
	assert.Equal(1, r1.count())
	assert.Equal(1, r2.count())

	src.emit(broadcast.Event{Action: "b"})
	assert.Equal(1, r1.count())
	assert.Equal(2, r2.count())
}

func TestAddSubscribesWithDelegateUser(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	src := &fakeSource{}

	key, ok := broadcast.UserKeyFor(5)
	require.True(ok)
	del := userdispatch.NewDelegate(src, key)

	del.Add(reg(&countingReceiver{}, broadcast.Filter{Actions: []string{"a"}}))
	require.Len(src.subs, 1)
	assert.Equal(5, src.subs[0].user)
}

func TestIdenticalRegistrationIsDeduped(t *testing.T) {
	assert := assert.New(t)
	src := &fakeSource{}
	del := userdispatch.NewDelegate(src, broadcast.AllUsersKey())

	r := &countingReceiver{}
	f := broadcast.Filter{Actions: []string{"a"}, Categories: []string{"c"}}
	del.Add(reg(r, f))
	del.Add(reg(r, f))

	src.emit(broadcast.Event{Action: "a"})
	assert.Equal(1, r.count())

	// same receiver with a different filter is a distinct registration
	del.Add(reg(r, broadcast.Filter{Actions: []string{"a"}}))
	src.emit(broadcast.Event{Action: "a"})
	assert.Equal(3, r.count())
}

func TestCategoryMatching(t *testing.T) {
	assert := assert.New(t)
	src := &fakeSource{}
	del := userdispatch.NewDelegate(src, broadcast.AllUsersKey())

	r := &countingReceiver{}
	del.Add(reg(r, broadcast.Filter{Actions: []string{"a"}, Categories: []string{"system"}}))

	src.emit(broadcast.Event{Action: "a", Categories: []string{"system"}})
	src.emit(broadcast.Event{Action: "a"})
	src.emit(broadcast.Event{Action: "a", Categories: []string{"other"}})

	assert.Equal(2, r.count())
}

func TestRemoveReleasesEmptyBindings(t *testing.T) {
	assert := assert.New(t)
	src := &fakeSource{}
	del := userdispatch.NewDelegate(src, broadcast.AllUsersKey())

	r1 := &countingReceiver{}
	r2 := &countingReceiver{}
	del.Add(reg(r1, broadcast.Filter{Actions: []string{"a"}}))
	del.Add(reg(r2, broadcast.Filter{Actions: []string{"a"}}))

	del.Remove(r1)
	assert.Equal(1, src.activeFor("a"))

	del.Remove(r2)
	assert.Equal(0, src.activeFor("a"))

	src.emit(broadcast.Event{Action: "a"})
	assert.Equal(0, r1.count())
	assert.Equal(0, r2.count())

	// a later registration binds again
	del.Add(reg(r1, broadcast.Filter{Actions: []string{"a"}}))
	assert.Equal(1, src.activeFor("a"))
}

func TestRemoveAbsentReceiverIsNoop(t *testing.T) {
	assert := assert.New(t)
	src := &fakeSource{}
	del := userdispatch.NewDelegate(src, broadcast.AllUsersKey())

	r := &countingReceiver{}
	del.Add(reg(r, broadcast.Filter{Actions: []string{"a"}}))
	del.Remove(&countingReceiver{})

	assert.Equal(1, src.activeFor("a"))
}

func TestDump(t *testing.T) {
	assert := assert.New(t)
	src := &fakeSource{}
	del := userdispatch.NewDelegate(src, broadcast.AllUsersKey())

	del.Add(reg(&countingReceiver{}, broadcast.Filter{Actions: []string{"b", "a"}}))
	del.Add(reg(&countingReceiver{}, broadcast.Filter{Actions: []string{"a"}}))

	var buf bytes.Buffer
	del.Dump(&buf)
	out := buf.String()

	assert.Contains(out, "action a: 2 registrations")
	assert.Contains(out, "action b: 1 registrations")
	assert.Less(bytes.Index(buf.Bytes(), []byte("action a")), bytes.Index(buf.Bytes(), []byte("action b")))
}
