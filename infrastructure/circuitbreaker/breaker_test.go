package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errDown = errors.New("down")

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	t.Helper()

	b := New(Config{FailureThreshold: 2, Cooldown: time.Minute})

	for range 2 {
		if err := b.Execute(func() error { return errDown }); !errors.Is(err, errDown) {
			t.Fatalf("Execute() error = %v, want errDown", err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("State() = %v, want open", b.State())
	}

	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("open breaker: err = %v, called = %v", err, called)
	}
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	t.Helper()

	b := New(Config{FailureThreshold: 2})
	_ = b.Execute(func() error { return errDown })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errDown })

	if b.State() != StateClosed {
		t.Errorf("State() = %v, want closed", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	tests := []struct {
		name  string
		probe error
		want  State
	}{
		{"probe succeeds", nil, StateClosed},
		{"probe fails", errDown, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Unix(1000, 0)
			var transitions []string

			b := New(Config{
				FailureThreshold: 1,
				Cooldown:         time.Second,
				OnStateChange: func(from, to State) {
					transitions = append(transitions, from.String()+">"+to.String())
				},
			})
			b.now = func() time.Time { return now }

			_ = b.Execute(func() error { return errDown })
			now = now.Add(2 * time.Second)

			if err := b.Execute(func() error { return tt.probe }); !errors.Is(err, tt.probe) {
				t.Fatalf("probe error = %v", err)
			}
			if b.State() != tt.want {
				t.Errorf("State() = %v, want %v (transitions %v)", b.State(), tt.want, transitions)
			}
			if transitions[0] != "closed>open" || transitions[1] != "open>half-open" {
				t.Errorf("transitions = %v", transitions)
			}
		})
	}
}
