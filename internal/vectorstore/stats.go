package vectorstore

import (
	"sync/atomic"
	"time"
)

// searchStats accumulates search counts and latency for Stats.
type searchStats struct {
	count   atomic.Int64
	totalNs atomic.Int64
}

func (s *searchStats) observe(d time.Duration) {
	s.count.Add(1)
	s.totalNs.Add(int64(d))
}

func (s *searchStats) reset() {
	s.count.Store(0)
	s.totalNs.Store(0)
}

// fill adds searchCount, totalSearchTimeMs and averageSearchTimeMs.
func (s *searchStats) fill(m map[string]interface{}) {
	count := s.count.Load()
	totalMs := float64(s.totalNs.Load()) / float64(time.Millisecond)
	avg := 0.0
	if count > 0 {
		avg = totalMs / float64(count)
	}
	m["searchCount"] = count
	m["totalSearchTimeMs"] = totalMs
	m["averageSearchTimeMs"] = avg
}
