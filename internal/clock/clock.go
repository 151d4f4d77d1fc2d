package clock

import "time"

type Clock interface {
	Now() time.Time
}

type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

// InLocation returns a clock that reports the wall time of c in loc.
func InLocation(c Clock, loc *time.Location) Clock {
	return locClock{c: c, loc: loc}
}

type locClock struct {
	c   Clock
	loc *time.Location
}

func (l locClock) Now() time.Time {
	return l.c.Now().In(l.loc)
}
