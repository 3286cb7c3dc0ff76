package widget

import "time"

// Timer is a scheduled callback that can still be stopped.
type Timer interface {
	Stop() bool
}

// Scheduler defers work without blocking the caller.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ClockScheduler runs callbacks on the wall clock via time.AfterFunc.
var ClockScheduler Scheduler = clockScheduler{}
