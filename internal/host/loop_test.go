package host

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPollFiresDueTimersInOrder(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	loop := NewLoopWithClock(func() time.Time { return base })

	var calls []string
	loop.AddTimer(func(Main) { calls = append(calls, "fast") }, 50*time.Millisecond)
	loop.AddTimer(func(Main) { calls = append(calls, "slow") }, 200*time.Millisecond)

	loop.Poll(base.Add(10 * time.Millisecond))
	if len(calls) != 0 {
		t.Fatalf("expected nothing due yet, got %v", calls)
	}

	loop.Poll(base.Add(50 * time.Millisecond))
	loop.Poll(base.Add(100 * time.Millisecond))
	loop.Poll(base.Add(200 * time.Millisecond))

	want := []string{"fast", "fast", "fast", "slow"}
	if len(calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, calls)
		}
	}
}

func TestPollSkipsMissedPeriods(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	loop := NewLoopWithClock(func() time.Time { return base })

	count := 0
	loop.AddTimer(func(Main) { count++ }, 50*time.Millisecond)

	loop.Poll(base.Add(time.Second))
	if count != 1 {
		t.Fatalf("expected a single late firing, got %d", count)
	}
	loop.Poll(base.Add(time.Second + 10*time.Millisecond))
	if count != 1 {
		t.Fatalf("expected schedule to resume from the late firing, got %d", count)
	}
}

func TestDuplicateRegistrationFiresTwice(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	loop := NewLoopWithClock(func() time.Time { return base })

	count := 0
	fn := func(Main) { count++ }
	first := loop.AddTimer(fn, 50*time.Millisecond)
	loop.AddTimer(fn, 50*time.Millisecond)

	loop.Poll(base.Add(50 * time.Millisecond))
	if count != 2 {
		t.Fatalf("expected both registrations to fire, got %d", count)
	}

	loop.RemoveTimer(first)
	loop.RemoveTimer(first)
	loop.Poll(base.Add(100 * time.Millisecond))
	if count != 3 {
		t.Fatalf("expected one remaining registration, got %d", count)
	}
	if loop.Timers() != 1 {
		t.Fatalf("expected one timer, got %d", loop.Timers())
	}
}

func TestTimerRemovedByEarlierCallbackDoesNotFire(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	loop := NewLoopWithClock(func() time.Time { return base })

	var second TimerID
	fired := false
	loop.AddTimer(func(Main) { loop.RemoveTimer(second) }, 50*time.Millisecond)
	second = loop.AddTimer(func(Main) { fired = true }, 50*time.Millisecond)

	loop.Poll(base.Add(50 * time.Millisecond))
	if fired {
		t.Fatalf("expected removed timer not to fire")
	}
}

func TestPostRunsBeforeTimersWithToken(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	loop := NewLoopWithClock(func() time.Time { return base })

	var calls []string
	loop.AddTimer(func(m Main) {
		if !m.Valid() || m.Loop() != loop {
			t.Errorf("expected timer token from this loop")
		}
		calls = append(calls, "timer")
	}, 50*time.Millisecond)
	loop.Post(func(m Main) {
		if !m.Valid() {
			t.Errorf("expected valid task token")
		}
		calls = append(calls, "task")
	})

	loop.Poll(base.Add(50 * time.Millisecond))
	if len(calls) != 2 || calls[0] != "task" || calls[1] != "timer" {
		t.Fatalf("expected [task timer], got %v", calls)
	}

	if (Main{}).Valid() {
		t.Fatalf("expected zero token to be invalid")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())

	ran := make(chan struct{})
	loop.Post(func(Main) { close(ran) })

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatalf("expected posted task to run")
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected run to return after cancel")
	}
}
