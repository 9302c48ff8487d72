package autosave

import "time"

// Clock schedules cancellable delays.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled delay. Stop reports whether it prevented the call.
type Timer interface {
	Stop() bool
}

// RealClock schedules on the runtime timer.
type RealClock struct{}

func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
