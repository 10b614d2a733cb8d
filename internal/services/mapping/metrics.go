package mapping

import (
	"sync"
	"time"
)

// Metrics counts mapping attempts. Pull-based: consumers read Summary, the
// core never pushes.
type Metrics struct {
	mu            sync.Mutex
	total         int64
	successful    int64
	failed        int64
	totalDuration time.Duration
}

type MetricsSummary struct {
	TotalAttempts      int64   `json:"attempts_total"`
	SuccessfulAttempts int64   `json:"attempts_successful"`
	FailedAttempts     int64   `json:"attempts_failed"`
	AverageDurationMS  float64 `json:"average_duration_ms"`
}

func (m *Metrics) Record(success bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	if success {
		m.successful++
	} else {
		m.failed++
	}
	m.totalDuration += duration
}

func (m *Metrics) Summary() MetricsSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := MetricsSummary{
		TotalAttempts:      m.total,
		SuccessfulAttempts: m.successful,
		FailedAttempts:     m.failed,
	}
	if m.total > 0 {
		s.AverageDurationMS = float64(m.totalDuration.Milliseconds()) / float64(m.total)
	}
	return s
}
