package knora

import (
	"fmt"
	"time"
)

const statsTimeLayout = "2006-01-02 15:04:05"

// ExecStats accounts for the execution time of a series of events in one
// category. It is not safe for concurrent use.
type ExecStats struct {
	name    string
	now     func() time.Time
	t0      time.Time
	tstart  time.Time
	started bool
	events  int
	total   time.Duration
	min     time.Duration
	max     time.Duration
}

// NewExecStats creates an accumulator named after the category it times.
func NewExecStats(name string) *ExecStats {
	return newExecStatsWithClock(name, time.Now)
}

func newExecStatsWithClock(name string, now func() time.Time) *ExecStats {
	return &ExecStats{
		name: name,
		now:  now,
		t0:   now(),
	}
}

// Name returns the category name.
func (s *ExecStats) Name() string {
	return s.name
}

// Start triggers the timer for one event. A second Start before End
// replaces the pending timestamp.
func (s *ExecStats) Start() {
	s.tstart = s.now()
	s.started = true
}

// End releases the timer after the event completed and records its duration.
func (s *ExecStats) End() (time.Duration, error) {
	if !s.started {
		return 0, ErrStatsNotStarted
	}
	spent := s.now().Sub(s.tstart)
	s.started = false

	s.total += spent
	if s.events == 0 || spent < s.min {
		s.min = spent
	}
	if spent > s.max {
		s.max = spent
	}
	s.events++
	return spent, nil
}

// Reset discards a pending Start without recording an event.
func (s *ExecStats) Reset() {
	s.started = false
}

func (s *ExecStats) Events() int          { return s.events }
func (s *ExecStats) Total() time.Duration { return s.total }
func (s *ExecStats) Min() time.Duration   { return s.min }
func (s *ExecStats) Max() time.Duration   { return s.max }

// Average is zero when no event was recorded.
func (s *ExecStats) Average() time.Duration {
	if s.events == 0 {
		return 0
	}
	return s.total / time.Duration(s.events)
}

// LogStart formats the start-of-session message.
func (s *ExecStats) LogStart() string {
	return s.name + ": " + s.t0.Format(statsTimeLayout)
}

// String formats the accumulated timings.
func (s *ExecStats) String() string {
	end := s.now()
	return fmt.Sprintf("%s timings -- ran for %s (%s - %s)\n\tevents: %d, avg: %s, min: %s, max: %s",
		s.name,
		end.Sub(s.t0).Truncate(time.Second),
		s.t0.Format(statsTimeLayout), end.Format(statsTimeLayout),
		s.events, s.Average(), s.min, s.max)
}
