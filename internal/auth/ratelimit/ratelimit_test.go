package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesTokens(t *testing.T) {
	l := New(time.Minute)
	defer l.Close()

	for i := 0; i < 5; i++ {
		ok, _ := l.Allow("key-1", 5)
		if !ok {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}
	if ok, remaining := l.Allow("key-1", 5); ok {
		t.Fatalf("6th request allowed with %d remaining, want denied", remaining)
	}
}

func TestAllowReportsRemaining(t *testing.T) {
	l := New(time.Minute)
	defer l.Close()

	if _, remaining := l.Allow("key-1", 10); remaining != 9 {
		t.Fatalf("remaining after first request = %d, want 9", remaining)
	}
	if _, remaining := l.Allow("key-1", 10); remaining != 8 {
		t.Fatalf("remaining after second request = %d, want 8", remaining)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(time.Minute)
	defer l.Close()

	for i := 0; i < 3; i++ {
		l.Allow("busy", 3)
	}
	if ok, _ := l.Allow("busy", 3); ok {
		t.Fatal("exhausted key still allowed")
	}
	if ok, _ := l.Allow("quiet", 3); !ok {
		t.Fatal("fresh key denied")
	}
}

func TestTokensRefillOverTime(t *testing.T) {
	l := New(100 * time.Millisecond)
	defer l.Close()

	for i := 0; i < 10; i++ {
		l.Allow("key-1", 10)
	}
	if ok, _ := l.Allow("key-1", 10); ok {
		t.Fatal("bucket not empty after draining")
	}

	time.Sleep(150 * time.Millisecond)
	ok, remaining := l.Allow("key-1", 10)
	if !ok {
		t.Fatal("bucket did not refill after a full window")
	}
	if remaining < 5 {
		t.Fatalf("remaining after refill = %d, want at least 5", remaining)
	}
}

func TestResetClearsBucket(t *testing.T) {
	l := New(time.Minute)
	defer l.Close()

	for i := 0; i < 2; i++ {
		l.Allow("key-1", 2)
	}
	if ok, _ := l.Allow("key-1", 2); ok {
		t.Fatal("bucket should be empty")
	}
	l.Reset("key-1")
	if ok, _ := l.Allow("key-1", 2); !ok {
		t.Fatal("reset bucket denied request")
	}
}
