// Package metrics records operation timings and failures through an
// explicitly passed Sink.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Sink receives timing and error observations.
type Sink interface {
	RecordTiming(op string, d time.Duration)
	RecordError(op string)
}

// Noop discards every observation.
type Noop struct{}

func (Noop) RecordTiming(string, time.Duration) {}
func (Noop) RecordError(string)                 {}

// OpSummary aggregates the timings of one operation.
type OpSummary struct {
	Count int           `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
	Total time.Duration `json:"total"`
}

// Summary is a point-in-time view of a Collector.
type Summary struct {
	Operations map[string]OpSummary `json:"operations"`
	Counts     map[string]int       `json:"counts"`
	Errors     map[string]int       `json:"errors"`
}

// Collector is an in-memory Sink safe for concurrent use.
type Collector struct {
	mu        sync.Mutex
	durations map[string][]time.Duration
	errors    map[string]int
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		durations: make(map[string][]time.Duration),
		errors:    make(map[string]int),
	}
}

func (c *Collector) RecordTiming(op string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.durations[op] = append(c.durations[op], d)
}

func (c *Collector) RecordError(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors[op]++
}

// Summary returns count/min/max/avg/total per operation plus call and error counts.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{
		Operations: make(map[string]OpSummary, len(c.durations)),
		Counts:     make(map[string]int, len(c.durations)),
		Errors:     make(map[string]int, len(c.errors)),
	}
	for op, ds := range c.durations {
		if len(ds) == 0 {
			continue
		}
		sum := OpSummary{Count: len(ds), Min: ds[0], Max: ds[0]}
		for _, d := range ds {
			sum.Total += d
			if d < sum.Min {
				sum.Min = d
			}
			if d > sum.Max {
				sum.Max = d
			}
		}
		sum.Avg = sum.Total / time.Duration(len(ds))
		s.Operations[op] = sum
		s.Counts[op] = len(ds)
	}
	for op, n := range c.errors {
		s.Errors[op] = n
	}
	return s
}

// Reset clears all recorded observations.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.durations = make(map[string][]time.Duration)
	c.errors = make(map[string]int)
}

// OperationNames returns the recorded operation names in sorted order.
func (s Summary) OperationNames() []string {
	names := make([]string, 0, len(s.Operations))
	for op := range s.Operations {
		names = append(names, op)
	}
	sort.Strings(names)
	return names
}
