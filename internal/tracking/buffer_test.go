package tracking

import (
	"math"
	"sync"
	"testing"
)

func TestDrainClicksPreservesOrder(t *testing.T) {
	buf := NewBuffer(BufferOptions{})
	a := ClickEvent{Button: ButtonPrimary, X: 1, Y: 2, Pressed: true}
	b := ClickEvent{Button: ButtonSecondary, X: 3, Y: 4, Pressed: true}
	buf.PushClick(a)
	buf.PushClick(b)

	clicks, dropped := buf.DrainClicks()
	if dropped != 0 {
		t.Fatalf("expected no drops, got %d", dropped)
	}
	if len(clicks) != 2 || clicks[0] != a || clicks[1] != b {
		t.Fatalf("expected [A B], got %+v", clicks)
	}

	if again, _ := buf.DrainClicks(); len(again) != 0 {
		t.Fatalf("expected queue to be empty after drain, got %+v", again)
	}
}

func TestPushClickDropsOldestWhenFull(t *testing.T) {
	buf := NewBuffer(BufferOptions{MaxPendingClicks: 2})
	for i := 0; i < 5; i++ {
		buf.PushClick(ClickEvent{Button: ButtonPrimary, X: i, Pressed: true})
	}

	clicks, dropped := buf.DrainClicks()
	if dropped != 3 {
		t.Fatalf("expected 3 drops, got %d", dropped)
	}
	if len(clicks) != 2 || clicks[0].X != 3 || clicks[1].X != 4 {
		t.Fatalf("expected the two newest clicks, got %+v", clicks)
	}
	if _, dropped := buf.DrainClicks(); dropped != 0 {
		t.Fatalf("expected drop counter to reset, got %d", dropped)
	}
}

func TestUnboundedClickQueue(t *testing.T) {
	buf := NewBuffer(BufferOptions{MaxPendingClicks: 0})
	for i := 0; i < 1000; i++ {
		buf.PushClick(ClickEvent{Button: ButtonMiddle, X: i, Pressed: true})
	}
	clicks, dropped := buf.DrainClicks()
	if len(clicks) != 1000 || dropped != 0 {
		t.Fatalf("expected 1000 clicks and no drops, got %d and %d", len(clicks), dropped)
	}
}

func TestTakeMoveReturnsLatestOnce(t *testing.T) {
	buf := NewBuffer(BufferOptions{})
	if _, ok := buf.TakeMove(); ok {
		t.Fatalf("expected no move on a fresh buffer")
	}

	buf.SetMove(MoveEvent{X: 1, Y: 1})
	buf.SetMove(MoveEvent{X: 5, Y: 7})

	ev, ok := buf.TakeMove()
	if !ok || ev != (MoveEvent{X: 5, Y: 7}) {
		t.Fatalf("expected latest move (5,7), got %+v ok=%v", ev, ok)
	}
	if _, ok := buf.TakeMove(); ok {
		t.Fatalf("expected second take to be empty")
	}
}

func TestAccumulateScrollSumsDeltas(t *testing.T) {
	buf := NewBuffer(BufferOptions{})
	deltas := []float64{0.25, 1.5, -0.125, 3.75, 0.1, 2}
	want := 0.0
	for i, d := range deltas {
		buf.AccumulateScroll(10+i, 20+i, 0, d)
		want += d
	}

	buf.mu.Lock()
	got := buf.scroll.dy
	buf.mu.Unlock()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected accumulated dy %v, got %v", want, got)
	}

	ev, ok := buf.PeekAndDecayScroll()
	if !ok {
		t.Fatalf("expected a scroll event")
	}
	if ev.DY != int(want) {
		t.Fatalf("expected truncated dy %d, got %d", int(want), ev.DY)
	}
	if ev.X != 15 || ev.Y != 25 {
		t.Fatalf("expected position of the last wheel tick, got (%d,%d)", ev.X, ev.Y)
	}
}

func TestResetDiscardsPendingState(t *testing.T) {
	buf := NewBuffer(BufferOptions{})
	buf.PushClick(ClickEvent{Button: ButtonPrimary, Pressed: true})
	buf.SetMove(MoveEvent{X: 1, Y: 2})
	buf.AccumulateScroll(0, 0, 5, 5)

	buf.Reset()

	if clicks, _ := buf.DrainClicks(); len(clicks) != 0 {
		t.Fatalf("expected clicks to be discarded")
	}
	if _, ok := buf.TakeMove(); ok {
		t.Fatalf("expected move to be discarded")
	}
	if buf.Scrolling() {
		t.Fatalf("expected decay state to be discarded")
	}
	if _, ok := buf.PeekAndDecayScroll(); ok {
		t.Fatalf("expected no scroll after reset")
	}
}

func TestBufferConcurrentWriters(t *testing.T) {
	buf := NewBuffer(BufferOptions{})
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				buf.PushClick(ClickEvent{Button: ButtonPrimary, X: w, Y: i, Pressed: true})
				buf.SetMove(MoveEvent{X: w, Y: i})
				buf.AccumulateScroll(w, i, 0, 1)
			}
		}(w)
	}
	wg.Wait()

	clicks, _ := buf.DrainClicks()
	if len(clicks) != 400 {
		t.Fatalf("expected 400 clicks, got %d", len(clicks))
	}
	last := make(map[int]int)
	for _, c := range clicks {
		if prev, ok := last[c.X]; ok && c.Y <= prev {
			t.Fatalf("clicks from writer %d out of order: %d after %d", c.X, c.Y, prev)
		}
		last[c.X] = c.Y
	}
	ev, ok := buf.PeekAndDecayScroll()
	if !ok || ev.DY != 400 {
		t.Fatalf("expected summed dy 400, got %+v ok=%v", ev, ok)
	}
}
