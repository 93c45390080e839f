package correlator

import (
	"context"
	"testing"
	"time"
)

func TestKeyedLock_IndependentKeys(t *testing.T) {
	t.Helper()

	k := newKeyedLock()
	releaseA, err := k.acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	releaseB, err := k.acquire(ctx, "b")
	if err != nil {
		t.Fatalf("acquire b while a is held: %v", err)
	}

	releaseA()
	releaseB()
	if n := k.len(); n != 0 {
		t.Errorf("expected no entries after release, got %d", n)
	}
}

func TestKeyedLock_WaitHonoursContext(t *testing.T) {
	t.Helper()

	k := newKeyedLock()
	release, err := k.acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err = k.acquire(ctx, "a"); err == nil {
		t.Fatal("expected second acquire to fail while held")
	}

	release()
	if n := k.len(); n != 0 {
		t.Errorf("expected no entries after release, got %d", n)
	}

	release, err = k.acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	release()
}
