package lifecycle

import "time"

// Timer is a scheduled callback that can be cancelled
type Timer interface {
	// Stop cancels the callback. It reports false if the callback already ran
	// or was already stopped.
	Stop() bool
}

// Scheduler arms one-shot callbacks. The callback runs on its own goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler uses time.AfterFunc
type RealScheduler struct{}

// AfterFunc implements Scheduler
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
