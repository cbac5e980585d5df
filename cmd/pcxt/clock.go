package main

import "time"

// wallClock backs the RTC host-op with the host's own time of day,
// matching vxt_clock_t.
type wallClock struct{}

func (wallClock) Now() (hour, minute, second, millis int) {
	now := time.Now()
	return now.Hour(), now.Minute(), now.Second(), now.Nanosecond() / 1e6
}
