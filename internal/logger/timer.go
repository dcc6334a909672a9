package logger

import (
	"sync"
	"time"
)

// TimeOperation starts a timer for a named unit of work and returns its
// completion func. The completion func emits exactly one performance record
// with the elapsed duration_ms, no matter how many times it runs or on which
// exit path; call it with defer so failures and early returns are covered:
//
//	done := lg.TimeOperation("plan_research")
//	defer done()
func (l *Logger) TimeOperation(name string) func() {
	start := time.Now()
	var once sync.Once
	return func() {
		once.Do(func() {
			elapsed := time.Since(start)
			_ = l.LogPerformanceMetric(PerformanceMetric{
				Name:  name,
				Value: float64(elapsed) / float64(time.Millisecond),
				Unit:  "ms",
			})
		})
	}
}
