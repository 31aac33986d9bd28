package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestGateConcurrentAdmissionAcceptsExactlyOne(t *testing.T) {
	t.Parallel()

	gate := NewGate()
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := gate.Admit(fmt.Sprintf("conn-%d", i), "candidate")
			switch {
			case err == nil:
				accepted.Add(1)
			case !errors.Is(err, ErrConflict):
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := accepted.Load(); got != 1 {
		t.Fatalf("expected exactly one admission, got %d", got)
	}
	if gate.Connections() != 1 || !gate.IsUserConnected("candidate") {
		t.Fatalf("expected one registered connection")
	}
}

func TestGateRejectsOtherUsersWhileSessionActive(t *testing.T) {
	t.Parallel()

	gate := NewGate()
	if err := gate.Admit("c1", "alice"); err != nil {
		t.Fatalf("admit alice: %v", err)
	}
	if err := gate.Admit("c2", "bob"); err != nil {
		t.Fatalf("bob must be admitted while no session is active: %v", err)
	}
	if err := gate.Activate("c1", "alice"); err != nil {
		t.Fatalf("activate alice: %v", err)
	}

	if err := gate.Admit("c3", "carol"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for carol, got %v", err)
	}
	if err := gate.Activate("c2", "bob"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict activating bob, got %v", err)
	}
	if user, ok := gate.ActiveUser(); !ok || user != "alice" {
		t.Fatalf("expected alice active, got %q %v", user, ok)
	}

	gate.Release("alice")
	if err := gate.Activate("c2", "bob"); err != nil {
		t.Fatalf("activate bob after release: %v", err)
	}
}

func TestGateActivateRequiresOwnConnection(t *testing.T) {
	t.Parallel()

	gate := NewGate()
	if err := gate.Admit("c1", "alice"); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if err := gate.Activate("other", "alice"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := gate.Activate("c1", "ghost"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}
}

func TestGateDisconnectIsIdempotent(t *testing.T) {
	t.Parallel()

	gate := NewGate()
	if err := gate.Admit("c1", "alice"); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if err := gate.Activate("c1", "alice"); err != nil {
		t.Fatalf("activate: %v", err)
	}

	gate.Disconnect("stale", "alice")
	if !gate.IsActive("c1", "alice") {
		t.Fatalf("disconnect of a stale connection must not end the session")
	}

	gate.Disconnect("c1", "alice")
	gate.Disconnect("c1", "alice")
	if gate.IsUserConnected("alice") {
		t.Fatalf("alice must be unregistered")
	}
	if _, ok := gate.ActiveUser(); ok {
		t.Fatalf("session must be released on disconnect")
	}
	if err := gate.Admit("c2", "alice"); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
}

func TestGateAdmitValidatesIDs(t *testing.T) {
	t.Parallel()

	if err := NewGate().Admit("", "alice"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGateBrokenInvariantPanics(t *testing.T) {
	t.Parallel()

	gate := NewGate()
	gate.activeUser = "ghost"

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for an active user without connection")
		}
	}()
	gate.check()
}
