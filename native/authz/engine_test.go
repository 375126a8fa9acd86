package authz

import (
	"errors"
	"testing"

	"promptledger/core/events"
)

type mockState struct {
	lists map[string]*Allowlist
}

func newMockState() *mockState {
	return &mockState{lists: make(map[string]*Allowlist)}
}

func (m *mockState) AllowlistGet(resource string) (*Allowlist, bool, error) {
	list, ok := m.lists[resource]
	if !ok {
		return nil, false, nil
	}
	return list.Clone(), true, nil
}

func (m *mockState) AllowlistPut(list *Allowlist) error {
	m.lists[list.Resource] = list.Clone()
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *mockState) {
	t.Helper()
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	return engine, state
}

func TestBootstrapCreatesOnce(t *testing.T) {
	engine, state := newTestEngine(t)
	admin := [20]byte{0x01}
	member := [20]byte{0x02}

	if err := engine.Bootstrap("creator.updaters", admin); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if err := engine.Authorize("creator.updaters", admin, member); err != nil {
		t.Fatalf("authorize: %v", err)
	}

	// A second bootstrap must not reset membership.
	other := [20]byte{0x09}
	if err := engine.Bootstrap("creator.updaters", other); err != nil {
		t.Fatalf("re-bootstrap: %v", err)
	}
	if state.lists["creator.updaters"].Admin != admin {
		t.Fatalf("re-bootstrap replaced the admin")
	}
	ok, err := engine.IsAuthorized("creator.updaters", member)
	if err != nil || !ok {
		t.Fatalf("membership lost after re-bootstrap: ok=%v err=%v", ok, err)
	}
}

func TestBootstrapRejectsZeroAdmin(t *testing.T) {
	engine, _ := newTestEngine(t)
	if err := engine.Bootstrap("creator.updaters", [20]byte{}); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("error = %v, want ErrZeroAddress", err)
	}
}

func TestAuthorizeRequiresAdmin(t *testing.T) {
	engine, _ := newTestEngine(t)
	admin := [20]byte{0x01}
	intruder := [20]byte{0x07}
	member := [20]byte{0x02}

	if err := engine.Bootstrap("usage.recorders", admin); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if err := engine.Authorize("usage.recorders", intruder, member); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("error = %v, want ErrNotAdmin", err)
	}
	if err := engine.Authorize("unknown.resource", admin, member); !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("error = %v, want ErrUnknownResource", err)
	}
	if err := engine.Authorize("usage.recorders", admin, [20]byte{}); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("error = %v, want ErrZeroAddress", err)
	}
}

func TestRevokeRemovesMembership(t *testing.T) {
	engine, _ := newTestEngine(t)
	admin := [20]byte{0x01}
	member := [20]byte{0x02}

	if err := engine.Bootstrap("creator.updaters", admin); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if err := engine.Authorize("creator.updaters", admin, member); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	ok, _ := engine.IsAuthorized("creator.updaters", member)
	if !ok {
		t.Fatalf("member not authorized after grant")
	}
	if err := engine.Revoke("creator.updaters", admin, member); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, _ = engine.IsAuthorized("creator.updaters", member)
	if ok {
		t.Fatalf("member still authorized after revoke")
	}
}

func TestAdminImplicitlyAuthorized(t *testing.T) {
	engine, _ := newTestEngine(t)
	admin := [20]byte{0x01}
	if err := engine.Bootstrap("creator.updaters", admin); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	ok, err := engine.IsAuthorized("creator.updaters", admin)
	if err != nil || !ok {
		t.Fatalf("admin not implicitly authorized: ok=%v err=%v", ok, err)
	}
}

func TestUnknownResourceAuthorizesNobody(t *testing.T) {
	engine, _ := newTestEngine(t)
	ok, err := engine.IsAuthorized("never.bootstrapped", [20]byte{0x01})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if ok {
		t.Fatalf("unknown resource authorized an identity")
	}
}

func TestAdminQuery(t *testing.T) {
	engine, _ := newTestEngine(t)
	admin := [20]byte{0x01}
	if _, err := engine.Admin("creator.updaters"); !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("error = %v, want ErrUnknownResource", err)
	}
	if err := engine.Bootstrap("creator.updaters", admin); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	got, err := engine.Admin("creator.updaters")
	if err != nil {
		t.Fatalf("admin query: %v", err)
	}
	if got != admin {
		t.Fatalf("admin = %x, want %x", got, admin)
	}
}

func TestEmittedEventTypes(t *testing.T) {
	engine, _ := newTestEngine(t)
	var captured []string
	engine.SetEmitter(emitterFunc(func(eventType string) {
		captured = append(captured, eventType)
	}))
	admin := [20]byte{0x01}
	member := [20]byte{0x02}
	if err := engine.Bootstrap("creator.updaters", admin); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if err := engine.Authorize("creator.updaters", admin, member); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if err := engine.Revoke("creator.updaters", admin, member); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	want := []string{EventTypeGranted, EventTypeRevoked}
	if len(captured) != len(want) {
		t.Fatalf("captured %d events, want %d", len(captured), len(want))
	}
	for i := range want {
		if captured[i] != want[i] {
			t.Fatalf("event %d = %q, want %q", i, captured[i], want[i])
		}
	}
}

type emitterFunc func(eventType string)

func (f emitterFunc) Emit(evt events.Event) { f(evt.EventType()) }
