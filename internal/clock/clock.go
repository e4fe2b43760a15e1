package clock

import (
	"sync"
	"time"
)

// Clock abstracts time.Now so time-dependent rules can be tested.
type Clock interface {
	Now() time.Time
}

type clock struct {
	loc *time.Location
}

// New returns a wall clock reporting times in loc. A nil loc means time.Local.
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return &clock{loc: loc}
}

func (c *clock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Managed is a hand-driven clock for tests.
type Managed struct {
	mu     sync.Mutex
	start  time.Time
	offset time.Duration
}

func NewManaged(start time.Time) *Managed {
	return &Managed{start: start}
}

func (c *Managed) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(c.offset)
}

// WarpForward moves the clock forward by d and returns the new time.
func (c *Managed) WarpForward(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
	return c.start.Add(c.offset)
}
