package memory

import (
	"sync"
	"time"
)

// Cancel stops a scheduled task. Calling it more than once is safe.
type Cancel func()

// Scheduler runs delayed and periodic tasks on its own goroutines.
type Scheduler interface {
	After(delay time.Duration, task func()) Cancel
	Every(interval time.Duration, task func()) Cancel
}

type clockScheduler struct{}

// NewClockScheduler - returns a Scheduler backed by the runtime timers.
func NewClockScheduler() Scheduler {
	return clockScheduler{}
}

func (clockScheduler) After(delay time.Duration, task func()) Cancel {
	timer := time.AfterFunc(delay, task)

	return func() {
		timer.Stop()
	}
}

func (clockScheduler) Every(interval time.Duration, task func()) Cancel {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				task()
			}
		}
	}()

	return sync.OnceFunc(func() {
		ticker.Stop()
		close(done)
	})
}
