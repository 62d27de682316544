package throttle

import (
	"testing"
	"time"
)

type key struct {
	server string
	target string
	qtype  uint16
}

func TestShouldThrottleExactlyNTimes(t *testing.T) {
	th := New[key]()
	now := time.Now()
	k := key{"192.0.2.1", "example.com.", 1}
	th.Throttle(now, k, 10*time.Second, 3)

	for i := 0; i < 3; i++ {
		if !th.ShouldThrottle(now.Add(time.Millisecond), k) {
			t.Fatalf("expected throttled on call %d", i)
		}
	}
	if th.ShouldThrottle(now.Add(time.Millisecond), k) {
		t.Fatal("expected not throttled after count exhausted")
	}
}

func TestShouldThrottleFalseAfterExpiry(t *testing.T) {
	th := New[key]()
	now := time.Now()
	k := key{"192.0.2.1", "example.com.", 1}
	th.Throttle(now, k, time.Second, 100)
	if th.ShouldThrottle(now.Add(2*time.Second), k) {
		t.Fatal("expected not throttled past expiry")
	}
}

func TestThrottleUpsertTakesMaxIndependently(t *testing.T) {
	th := New[key]()
	now := time.Now()
	k := key{"192.0.2.1", "example.com.", 1}
	th.Throttle(now, k, 5*time.Second, 10)
	th.Throttle(now, k, 1*time.Second, 50)
	// Expiry should stay at the longer of the two, count at the larger of the two.
	for i := 0; i < 50; i++ {
		if !th.ShouldThrottle(now.Add(4*time.Second), k) {
			t.Fatalf("expected still throttled on call %d", i)
		}
	}
}

func TestPruneRemovesExpiredEntriesOnly(t *testing.T) {
	th := New[key]()
	now := time.Now()
	expired := key{"192.0.2.1", "a.", 1}
	live := key{"192.0.2.2", "b.", 1}
	th.Throttle(now, expired, time.Second, 5)
	th.Throttle(now, live, time.Hour, 5)
	erased := th.Prune(now.Add(2 * time.Second))
	if erased != 1 {
		t.Fatalf("expected 1 erased, got %d", erased)
	}
	if th.Size() != 1 {
		t.Fatalf("expected size 1, got %d", th.Size())
	}
}
