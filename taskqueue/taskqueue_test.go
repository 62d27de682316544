package taskqueue

import (
	"context"
	"testing"
	"time"
)

func noop(ctx context.Context) error { return nil }

func TestPushResolveTaskDedupesWithin60s(t *testing.T) {
	q := New()
	now := time.Now()
	deadline := now.Add(time.Minute)
	for i := 0; i < 10; i++ {
		q.PushResolveTask("example.com.", 1, now, deadline, noop)
	}
	snap := q.Snapshot()
	if snap.Resolve.Pushed != 1 {
		t.Fatalf("expected pushed counter 1, got %d", snap.Resolve.Pushed)
	}
	if snap.Size != 1 {
		t.Fatalf("expected queue size 1, got %d", snap.Size)
	}
}

func TestPushResolveTaskRejectsUnsupportedQtype(t *testing.T) {
	q := New()
	now := time.Now()
	if q.PushResolveTask("example.com.", 255, now, now.Add(time.Minute), noop) {
		t.Fatal("expected ANY qtype to be rejected")
	}
}

func TestPushAlmostExpiredTaskBypassesRateLimit(t *testing.T) {
	q := New()
	now := time.Now()
	for i := 0; i < 5; i++ {
		q.PushAlmostExpiredTask("example.com.", 1, now.Add(time.Minute), noop)
	}
	if snap := q.Snapshot(); snap.AlmostExpired.Pushed != 5 {
		t.Fatalf("expected 5 pushed, got %d", snap.AlmostExpired.Pushed)
	}
}

func TestRunOnceDiscardsExpiredTaskWithoutRunning(t *testing.T) {
	q := New()
	now := time.Now()
	ran := false
	q.PushResolveTask("example.com.", 1, now, now.Add(-time.Second), func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err := q.RunOnce(context.Background(), now); err != nil {
		t.Fatal(err)
	}
	if ran {
		t.Fatal("expected expired task not to run")
	}
	if snap := q.Snapshot(); snap.Expired != 1 {
		t.Fatalf("expected expired counter 1, got %d", snap.Expired)
	}
}

func TestDifferentQTypesAreNotDeduped(t *testing.T) {
	q := New()
	now := time.Now()
	q.PushResolveTask("example.com.", 1, now, now.Add(time.Minute), noop)
	q.PushResolveTask("example.com.", 28, now, now.Add(time.Minute), noop)
	if snap := q.Snapshot(); snap.Size != 2 {
		t.Fatalf("expected size 2, got %d", snap.Size)
	}
}

func TestResolveAndAlmostExpiredCountersDoNotAlias(t *testing.T) {
	q := New()
	now := time.Now()
	q.PushResolveTask("a.example.", 1, now, now.Add(time.Minute), noop)
	q.PushAlmostExpiredTask("b.example.", 1, now.Add(time.Minute), noop)
	snap := q.Snapshot()
	if snap.Resolve.Pushed != 1 || snap.AlmostExpired.Pushed != 1 {
		t.Fatalf("expected independent counters, got resolve=%d almost=%d", snap.Resolve.Pushed, snap.AlmostExpired.Pushed)
	}
}
