package state

import (
	"sync"
	"time"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

const (
	DefaultSuccessTTL = 4 * time.Second
	DefaultErrorTTL   = 5 * time.Second
)

// Feedback holds at most one success and one error message. Each slot
// expires on its own timer; replacing a message restarts only that slot's
// timer.
type Feedback struct {
	// notify serializes slot changes with their listener calls so the
	// listener sees changes in the order they were applied.
	notify   sync.Mutex
	mu       sync.Mutex
	ttl      map[Kind]time.Duration
	slots    map[Kind]*slot
	listener func(kind Kind, message string)
	closed   bool
}

type slot struct {
	message string
	gen     uint64
	timer   *time.Timer
}

func NewFeedback(successTTL, errorTTL time.Duration) *Feedback {
	return &Feedback{
		ttl: map[Kind]time.Duration{
			KindSuccess: successTTL,
			KindError:   errorTTL,
		},
		slots: map[Kind]*slot{
			KindSuccess: {},
			KindError:   {},
		},
	}
}

// OnChange registers fn to be called whenever a slot is set or cleared. A
// cleared slot is reported with an empty message. fn must not send feedback
// itself.
func (f *Feedback) OnChange(fn func(kind Kind, message string)) {
	f.mu.Lock()
	f.listener = fn
	f.mu.Unlock()
}

func (f *Feedback) Success(message string) { f.set(KindSuccess, message) }

func (f *Feedback) Error(message string) { f.set(KindError, message) }

// Current returns the visible message of kind, or "".
func (f *Feedback) Current(kind Kind) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slots[kind].message
}

func (f *Feedback) set(kind Kind, message string) {
	f.notify.Lock()
	defer f.notify.Unlock()
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	s := f.slots[kind]
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	s.message = message
	gen := s.gen
	s.timer = time.AfterFunc(f.ttl[kind], func() { f.expire(kind, gen) })
	listener := f.listener
	f.mu.Unlock()

	if listener != nil {
		listener(kind, message)
	}
}

func (f *Feedback) expire(kind Kind, gen uint64) {
	f.notify.Lock()
	defer f.notify.Unlock()
	f.mu.Lock()
	s := f.slots[kind]
	if f.closed || s.gen != gen {
		f.mu.Unlock()
		return
	}
	s.message = ""
	s.timer = nil
	listener := f.listener
	f.mu.Unlock()

	if listener != nil {
		listener(kind, "")
	}
}

// Close cancels pending expiries and ignores further messages.
func (f *Feedback) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for _, s := range f.slots {
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
	}
}
