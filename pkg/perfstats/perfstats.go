// Package perfstats accumulates timings of the stages of concurrent work.
package perfstats

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Accumulate samples of how long something took
type TimeAccumulator struct {
	Samples int64
	Total   time.Duration
	Max     time.Duration
}

func (a *TimeAccumulator) AddSample(v time.Duration) {
	a.Samples++
	a.Total += v
	a.Max = max(a.Max, v)
}

func (a *TimeAccumulator) Average() time.Duration {
	if a.Samples == 0 {
		return 0
	}
	return time.Duration(a.Total.Nanoseconds() / a.Samples)
}

// Stages holds one TimeAccumulator per named stage. It is safe for concurrent use.
type Stages struct {
	lock   sync.Mutex
	order  []string
	stages map[string]*TimeAccumulator
}

func NewStages(names ...string) *Stages {
	s := &Stages{
		stages: map[string]*TimeAccumulator{},
	}
	for _, n := range names {
		s.get(n)
	}
	return s
}

func (s *Stages) get(name string) *TimeAccumulator {
	a := s.stages[name]
	if a == nil {
		a = &TimeAccumulator{}
		s.stages[name] = a
		s.order = append(s.order, name)
	}
	return a
}

func (s *Stages) Add(name string, d time.Duration) {
	s.lock.Lock()
	s.get(name).AddSample(d)
	s.lock.Unlock()
}

// Since adds the time elapsed since start to the named stage, and returns now.
// This makes it easy to time a sequence of stages.
func (s *Stages) Since(name string, start time.Time) time.Time {
	now := time.Now()
	s.Add(name, now.Sub(start))
	return now
}

func (s *Stages) Get(name string) TimeAccumulator {
	s.lock.Lock()
	defer s.lock.Unlock()
	if a := s.stages[name]; a != nil {
		return *a
	}
	return TimeAccumulator{}
}

// Summary returns a one line description, eg "ingest 1.2ms (max 3ms), extract 0.4ms (max 1ms)"
func (s *Stages) Summary() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	parts := []string{}
	for _, name := range s.order {
		a := s.stages[name]
		parts = append(parts, fmt.Sprintf("%v %v (max %v)", name, a.Average().Round(time.Microsecond), a.Max.Round(time.Microsecond)))
	}
	return strings.Join(parts, ", ")
}
