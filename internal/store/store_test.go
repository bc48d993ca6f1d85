package store

import (
	"sync"
	"time"
)

// tickingClock returns a Clock that advances by step on every call.
func tickingClock(start time.Time, step time.Duration) Clock {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := now
		now = now.Add(step)
		return t
	}
}

// steppingClock returns the given instants in turn.
func steppingClock(times ...time.Time) Clock {
	i := 0
	return func() time.Time {
		t := times[i]
		i++
		return t
	}
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
