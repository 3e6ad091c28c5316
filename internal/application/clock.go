package application

import (
	"sync"
	"time"
)

// Clock interface supaya gampang ditest
type Clock interface {
	Now() time.Time
}

// SystemClock implementasi default, pakai time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Stamper hands out strictly increasing millisecond stamps for blob keys,
// even when the clock stalls or steps back.
type Stamper struct {
	Clock Clock

	mu   sync.Mutex
	last int64
}

func NewStamper(c Clock) *Stamper {
	return &Stamper{Clock: c}
}

func (s *Stamper) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.Clock
	if c == nil {
		c = SystemClock{}
	}
	ts := c.Now().UnixMilli()
	if ts <= s.last {
		ts = s.last + 1
	}
	s.last = ts
	return ts
}
