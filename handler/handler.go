// Package handler routes events to typed subscriber functions.
//
// A subscriber is a function with one argument and no results. A pointer
// argument subscribes to that exact event type. An interface argument
// subscribes to every event implementing it, so func(interface{}) sees
// everything.
//
//    rm := s.AddHandler(func(ev *state.MemberRoleAddEvent) {
//        log.Println(ev.Member.User.Username, "got", ev.Role.Name)
//    })
//    defer rm()
//
// Subscribers are called in the order they were added. A panicking
// subscriber is logged and the others still run.
package handler

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Handler is a registry of subscribers. The zero value is usable.
type Handler struct {
	// Synchronous calls subscribers on the caller's goroutine, one after
	// another. Otherwise each subscriber gets its own goroutine per event.
	Synchronous bool

	// Logger receives recovered subscriber panics.
	Logger *zap.Logger

	mu   sync.RWMutex
	subs []*subscriber
	// routes caches the subscribers of each concrete event type. It is
	// dropped whenever subs changes.
	routes map[reflect.Type][]*subscriber
}

// New returns an empty Handler.
func New() *Handler {
	return &Handler{Logger: zap.NewNop()}
}

// Call delivers ev to every subscriber that accepts its type.
func (h *Handler) Call(ev interface{}) {
	v := reflect.ValueOf(ev)

	for _, sub := range h.route(v.Type()) {
		if h.Synchronous {
			h.call(sub, v)
		} else {
			go h.call(sub, v)
		}
	}
}

func (h *Handler) route(t reflect.Type) []*subscriber {
	h.mu.RLock()
	subs, ok := h.routes[t]
	h.mu.RUnlock()

	if ok {
		return subs
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.routes[t]; ok {
		return subs
	}

	for _, sub := range h.subs {
		if sub.accepts(t) {
			subs = append(subs, sub)
		}
	}

	if h.routes == nil {
		h.routes = make(map[reflect.Type][]*subscriber)
	}
	h.routes[t] = subs

	return subs
}

func (h *Handler) call(sub *subscriber, ev reflect.Value) {
	// A route fetched before a removal may still hold the subscriber.
	if sub.removed.Load() {
		return
	}

	defer func() {
		rec := recover()
		if rec == nil {
			return
		}

		logger := h.Logger
		if logger == nil {
			logger = zap.NewNop()
		}

		logger.Error("event handler panicked",
			zap.Stringer("event", ev.Type()),
			zap.Any("panic", rec),
			zap.Stack("stack"))
	}()

	sub.fn.Call([]reflect.Value{ev})
}

// AddHandler subscribes fn and returns a function that unsubscribes it. It
// panics if fn is not a valid subscriber.
func (h *Handler) AddHandler(fn interface{}) (rm func()) {
	rm, err := h.AddHandlerCheck(fn)
	if err != nil {
		panic(err)
	}
	return rm
}

// AddHandlerCheck is AddHandler returning an error instead of panicking.
func (h *Handler) AddHandlerCheck(fn interface{}) (rm func(), err error) {
	sub, err := newSubscriber(fn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid handler")
	}

	h.mu.Lock()
	h.subs = append(h.subs, sub)
	h.routes = nil
	h.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() { h.remove(sub) })
	}, nil
}

func (h *Handler) remove(sub *subscriber) {
	sub.removed.Store(true)

	h.mu.Lock()
	defer h.mu.Unlock()

	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		if s != sub {
			subs = append(subs, s)
		}
	}

	h.subs = subs
	h.routes = nil
}

// ChanFor subscribes to events of type T and sends the ones match accepts to
// the returned channel. A nil match accepts all of them. The channel is
// unbuffered, so a slow receiver holds up a Synchronous handler. cancel
// unsubscribes and releases any send still blocked on the channel.
func ChanFor[T any](h *Handler, match func(T) bool) (events <-chan T, cancel func()) {
	ch := make(chan T)
	done := make(chan struct{})

	rm := h.AddHandler(func(ev T) {
		if match != nil && !match(ev) {
			return
		}

		select {
		case ch <- ev:
		case <-done:
		}
	})

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			rm()
			close(done)
		})
	}

	return ch, cancel
}

// WaitFor blocks until an event of type T that match accepts arrives, or ctx
// is done. Subscribe with ChanFor instead if the event may arrive before
// WaitFor is called.
func WaitFor[T any](ctx context.Context, h *Handler, match func(T) bool) (T, error) {
	events, cancel := ChanFor(h, match)
	defer cancel()

	select {
	case ev := <-events:
		return ev, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

type subscriber struct {
	fn      reflect.Value
	arg     reflect.Type
	removed atomic.Bool
}

func newSubscriber(fn interface{}) (*subscriber, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("%T is not a function", fn)
	}

	t := v.Type()

	switch {
	case t.NumIn() != 1:
		return nil, errors.New("function must take exactly one event")
	case t.NumOut() != 0:
		return nil, errors.New("function must not return anything")
	}

	arg := t.In(0)
	if k := arg.Kind(); k != reflect.Ptr && k != reflect.Interface {
		return nil, fmt.Errorf("event argument %s is neither a pointer nor an interface", arg)
	}

	return &subscriber{fn: v, arg: arg}, nil
}

func (s *subscriber) accepts(event reflect.Type) bool {
	if s.arg.Kind() == reflect.Interface {
		return event.Implements(s.arg)
	}
	return event == s.arg
}
