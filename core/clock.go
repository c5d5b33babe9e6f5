package core

import "time"

// Clock provides the current time to due-date and scan logic so it can be
// fixed in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func NewRealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now().UTC() }
