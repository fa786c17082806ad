package handler_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/gateway"
	"github.com/cordlink/cordlink/handler"
	"github.com/cordlink/cordlink/session"
	"github.com/cordlink/cordlink/state"
)

func roleAdd(guild discord.GuildID, role discord.RoleID) *state.MemberRoleAddEvent {
	return &state.MemberRoleAddEvent{
		GuildID: guild,
		RoleID:  role,
		Role:    &discord.Role{ID: role, Name: "mod"},
	}
}

func statusChange(old, new gateway.Status) *session.StatusChangeEvent {
	return &session.StatusChangeEvent{Old: old, New: new}
}

func TestCallTyped(t *testing.T) {
	h := handler.New()
	h.Synchronous = true

	var roles []discord.RoleID
	var statuses []gateway.Status

	rm := h.AddHandler(func(ev *state.MemberRoleAddEvent) {
		roles = append(roles, ev.RoleID)
	})
	h.AddHandler(func(ev *session.StatusChangeEvent) {
		statuses = append(statuses, ev.New)
	})

	h.Call(roleAdd(1, 10))
	h.Call(statusChange(gateway.Connecting, gateway.Identifying))
	h.Call(&state.ReadyEvent{})

	if len(roles) != 1 || roles[0] != 10 {
		t.Fatal("unexpected roles:", roles)
	}
	if len(statuses) != 1 || statuses[0] != gateway.Identifying {
		t.Fatal("unexpected statuses:", statuses)
	}

	rm()
	rm()

	h.Call(roleAdd(1, 11))

	if len(roles) != 1 {
		t.Fatal("removed handler was called:", roles)
	}

	// The other subscriber survives the removal.
	h.Call(statusChange(gateway.Identifying, gateway.Connected))

	if len(statuses) != 2 {
		t.Fatal("remaining handler lost:", statuses)
	}
}

func TestCallInterface(t *testing.T) {
	h := handler.New()
	h.Synchronous = true

	var all []interface{}
	h.AddHandler(func(ev interface{}) {
		all = append(all, ev)
	})

	ready := &state.ReadyEvent{}
	h.Call(roleAdd(1, 10))
	h.Call(ready)

	if len(all) != 2 || all[1] != ready {
		t.Fatalf("unexpected events: %#v", all)
	}
}

func TestCallOrder(t *testing.T) {
	h := handler.New()
	h.Synchronous = true

	var order []string

	h.AddHandler(func(*state.ReadyEvent) { order = append(order, "first") })
	h.AddHandler(func(interface{}) { order = append(order, "any") })
	h.AddHandler(func(*state.ReadyEvent) { order = append(order, "last") })

	// Subscribing after a call must invalidate what was routed before.
	h.Call(&state.ReadyEvent{})
	h.AddHandler(func(*state.ReadyEvent) { order = append(order, "late") })
	h.Call(&state.ReadyEvent{})

	expect := "first any last first any last late"
	if got := strings.Join(order, " "); got != expect {
		t.Fatalf("expected %q, got %q", expect, got)
	}
}

func TestCallAsync(t *testing.T) {
	h := handler.New()

	var wg sync.WaitGroup
	wg.Add(2)

	h.AddHandler(func(*session.StatusChangeEvent) { wg.Done() })
	h.AddHandler(func(*session.StatusChangeEvent) { wg.Done() })

	h.Call(statusChange(gateway.Disconnected, gateway.Connecting))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handlers were not called")
	}
}

func TestAddHandlerInvalid(t *testing.T) {
	h := handler.New()

	tests := map[string]interface{}{
		"not a function":  "hello",
		"no argument":     func() {},
		"two arguments":   func(*state.ReadyEvent, *state.ReadyEvent) {},
		"returns":         func(*state.ReadyEvent) error { return nil },
		"struct argument": func(state.ReadyEvent) {},
	}

	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := h.AddHandlerCheck(fn); err == nil {
				t.Fatal("expected an error")
			}
		})
	}

	defer func() {
		if recover() == nil {
			t.Fatal("AddHandler did not panic")
		}
	}()

	h.AddHandler(42)
}

func TestPanicRecovered(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	h := handler.New()
	h.Synchronous = true
	h.Logger = zap.New(core)

	var after bool

	h.AddHandler(func(*state.MemberRoleAddEvent) { panic("bad handler") })
	h.AddHandler(func(*state.MemberRoleAddEvent) { after = true })

	h.Call(roleAdd(1, 10))

	if !after {
		t.Fatal("handler after the panicking one was not called")
	}

	entries := logs.FilterMessage("event handler panicked").All()
	if len(entries) != 1 {
		t.Fatal("unexpected number of panic logs:", len(entries))
	}

	if ev := entries[0].ContextMap()["event"]; ev != "*state.MemberRoleAddEvent" {
		t.Fatal("unexpected logged event:", ev)
	}
}

func TestChanFor(t *testing.T) {
	h := handler.New()

	events, cancel := handler.ChanFor(h, func(ev *state.MemberRoleAddEvent) bool {
		return ev.GuildID == 2
	})
	defer cancel()

	go func() {
		h.Call(roleAdd(1, 10))
		h.Call(&state.ReadyEvent{})
		h.Call(roleAdd(2, 20))
	}()

	select {
	case ev := <-events:
		if ev.GuildID != 2 || ev.Role.ID != 20 {
			t.Fatalf("unexpected event: %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestChanForCancelReleasesSender(t *testing.T) {
	h := handler.New()
	h.Synchronous = true

	_, cancel := handler.ChanFor[*state.ReadyEvent](h, nil)

	called := make(chan struct{})
	go func() {
		// Nobody receives, so this blocks until cancel.
		h.Call(&state.ReadyEvent{})
		close(called)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("cancel did not release the blocked handler")
	}
}

func TestWaitFor(t *testing.T) {
	h := handler.New()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// Keep sending until the waiter has subscribed.
	go func() {
		for ctx.Err() == nil {
			h.Call(statusChange(gateway.Connecting, gateway.Identifying))
			h.Call(statusChange(gateway.LoadingSubsystems, gateway.Connected))
			time.Sleep(time.Millisecond)
		}
	}()

	ev, err := handler.WaitFor(ctx, h, func(ev *session.StatusChangeEvent) bool {
		return ev.New == gateway.Connected
	})
	if err != nil {
		t.Fatal("failed to wait:", err)
	}

	if ev.Old != gateway.LoadingSubsystems {
		t.Fatalf("unexpected event: %#v", ev)
	}
}

func TestWaitForTimeout(t *testing.T) {
	h := handler.New()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	ev, err := handler.WaitFor[*state.ReadyEvent](ctx, h, nil)
	if err != context.DeadlineExceeded {
		t.Fatal("unexpected error:", err)
	}
	if ev != nil {
		t.Fatal("unexpected event:", ev)
	}
}

func BenchmarkCall(b *testing.B) {
	h := handler.New()
	h.Synchronous = true

	h.AddHandler(func(*state.MemberRoleAddEvent) {})
	h.AddHandler(func(*session.StatusChangeEvent) {})
	h.AddHandler(func(interface{}) {})

	ev := roleAdd(1, 10)

	b.ResetTimer()

	for n := 0; n < b.N; n++ {
		h.Call(ev)
	}
}
