package auth

import "time"

// Clock supplies the current time. Injecting it keeps lockout expiry
// deterministic in tests; production code uses SystemClock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
