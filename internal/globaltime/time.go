// Package globaltime is the clock every persisted quotelog timestamp reads.
// Tests pin it with SetMockTime.
package globaltime

import (
	"sync/atomic"
	"time"
)

type clock func() time.Time

var current atomic.Pointer[clock]

func init() {
	ResetTime()
}

func Now() time.Time {
	return (*current.Load())()
}

func UTC() time.Time {
	return Now().UTC()
}

// Since is time.Since against the mockable clock.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}

// SetMockTime freezes the clock at t until ResetTime.
func SetMockTime(t time.Time) {
	fixed := clock(func() time.Time { return t })
	current.Store(&fixed)
}

func ResetTime() {
	wall := clock(time.Now)
	current.Store(&wall)
}
