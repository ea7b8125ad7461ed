package form

import "time"

// Timer is a cancellable delayed task.
type Timer interface {
	// Stop cancels the task, reporting whether it had not run yet.
	Stop() bool
}

// Scheduler runs fn once after d. The production scheduler is time.AfterFunc;
// tests inject a manual one.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// SystemScheduler returns the wall clock scheduler.
func SystemScheduler() Scheduler {
	return timeScheduler{}
}
