// Package widgettest provides a hand-driven scheduler for controller tests.
package widgettest

import (
	"sort"
	"sync"
	"time"

	"github.com/zhouzirui/lavajato/backend/internal/service/widget"
)

// ManualScheduler only runs callbacks when Advance moves its clock past them.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*task
}

type task struct {
	owner   *ManualScheduler
	at      time.Duration
	seq     int
	fn      func()
	done    bool
	stopped bool
}

var _ widget.Scheduler = (*ManualScheduler)(nil)

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) widget.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &task{owner: s, at: s.now + d, seq: s.seq, fn: f}
	s.seq++
	s.tasks = append(s.tasks, t)
	return t
}

// Advance moves the clock forward by d and runs every callback that became
// due, in deadline order, on the calling goroutine.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*task
	remaining := s.tasks[:0]
	for _, t := range s.tasks {
		switch {
		case t.stopped:
		case t.at <= s.now:
			t.done = true
			due = append(due, t)
		default:
			remaining = append(remaining, t)
		}
	}
	s.tasks = remaining
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		t.fn()
	}
}

// Scheduled returns how many callbacks are waiting to run.
func (s *ManualScheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (t *task) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()

	if t.done || t.stopped {
		return false
	}
	t.stopped = true
	return true
}
