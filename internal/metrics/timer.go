package metrics

import (
	"sync"
	"time"
)

// Timer is a scoped measurement of one operation. Start it at call entry and
// defer Stop; call Fail on any failure path before Stop runs.
type Timer struct {
	sink   Sink
	op     string
	start  time.Time
	once   sync.Once
	failed bool
}

// Start begins timing op. A nil sink is treated as Noop.
func Start(sink Sink, op string) *Timer {
	if sink == nil {
		sink = Noop{}
	}
	return &Timer{sink: sink, op: op, start: time.Now()}
}

// Fail marks the operation as failed.
func (t *Timer) Fail() { t.failed = true }

// Stop records the elapsed time, and an error if Fail was called.
// Only the first call records anything.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	t.once.Do(func() {
		t.sink.RecordTiming(t.op, d)
		if t.failed {
			t.sink.RecordError(t.op)
		}
	})
	return d
}
