package clock

import "time"

// Clock supplies the current time. Every lease-expiry comparison in the
// system goes through a Clock so tests can freeze time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Real returns a Clock backed by the system time in UTC.
func Real() Clock {
	return realClock{}
}

// Frozen is a Clock pinned to a settable instant.
type Frozen struct {
	Current time.Time
}

func NewFrozen(t time.Time) *Frozen {
	return &Frozen{Current: t.UTC()}
}

func (f *Frozen) Now() time.Time {
	return f.Current
}

// Advance moves the frozen instant forward.
func (f *Frozen) Advance(d time.Duration) {
	f.Current = f.Current.Add(d)
}
