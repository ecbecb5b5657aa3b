package state

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestFeedbackReplaceResetsOnlyItsOwnTimer(t *testing.T) {
	f := NewFeedback(100*time.Millisecond, 100*time.Millisecond)
	defer f.Close()

	f.Success("primero")
	f.Error("fallo")
	time.Sleep(60 * time.Millisecond)
	f.Success("segundo")
	time.Sleep(60 * time.Millisecond)

	if got := f.Current(KindSuccess); got != "segundo" {
		t.Errorf("stale timer cleared the newer message, got %q", got)
	}
	if got := f.Current(KindError); got != "" {
		t.Errorf("error slot should have expired on its own timer, got %q", got)
	}
}

func TestFeedbackNotifiesListener(t *testing.T) {
	f := NewFeedback(10*time.Millisecond, time.Minute)
	defer f.Close()

	var mu sync.Mutex
	var events []string
	done := make(chan struct{})
	f.OnChange(func(kind Kind, msg string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, string(kind)+":"+msg)
		if msg == "" {
			close(done)
		}
	})

	f.Success("ok")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expiry was never reported")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 || events[0] != "success:ok" || events[1] != "success:" {
		t.Errorf("unexpected events %v", events)
	}
}

func TestFeedbackCloseCancelsTimers(t *testing.T) {
	f := NewFeedback(10*time.Millisecond, 10*time.Millisecond)
	f.Error("fallo")
	f.Close()
	time.Sleep(30 * time.Millisecond)
	if got := f.Current(KindError); got != "fallo" {
		t.Errorf("closed feedback must not expire messages, got %q", got)
	}
	f.Success("ignored")
	if got := f.Current(KindSuccess); got != "" {
		t.Errorf("closed feedback must ignore new messages, got %q", got)
	}
}

func TestFeedbackListenerSeesChangesInOrder(t *testing.T) {
	f := NewFeedback(time.Millisecond, time.Millisecond)

	var mu sync.Mutex
	stale := 0
	f.OnChange(func(kind Kind, msg string) {
		if f.Current(kind) != msg {
			mu.Lock()
			stale++
			mu.Unlock()
		}
	})

	for i := 0; i < 300; i++ {
		f.Error("fallo " + strconv.Itoa(i))
		time.Sleep(time.Duration(i%4) * 300 * time.Microsecond)
	}
	time.Sleep(10 * time.Millisecond)
	f.Close()

	mu.Lock()
	defer mu.Unlock()
	if stale != 0 {
		t.Errorf("listener received %d notifications that no longer matched the slot", stale)
	}
	if got := f.Current(KindError); got != "" {
		t.Errorf("expected error slot to expire, got %q", got)
	}
}
