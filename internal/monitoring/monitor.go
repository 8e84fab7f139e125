package monitoring

import (
	"sync"
	"time"
)

// PersistEvent is the outcome of the latest state save
type PersistEvent struct {
	At       time.Time `json:"at"`
	OK       bool      `json:"ok"`
	Error    string    `json:"error,omitempty"`
	Duration string    `json:"duration"`
}

// ScanEvent is the outcome of the latest receipt extraction
type ScanEvent struct {
	At       time.Time `json:"at"`
	Outcome  string    `json:"outcome"`
	Items    int       `json:"items"`
	Duration string    `json:"duration"`
}

// Status is a point-in-time copy of what the monitor knows
type Status struct {
	StartedAt     time.Time     `json:"startedAt"`
	UptimeSeconds float64       `json:"uptimeSeconds"`
	Persists      int           `json:"persists"`
	Scans         int           `json:"scans"`
	LastPersist   *PersistEvent `json:"lastPersist,omitempty"`
	LastScan      *ScanEvent    `json:"lastScan,omitempty"`
}

// Monitor keeps the latest operational facts served by the status endpoint
type Monitor struct {
	mu          sync.RWMutex
	now         func() time.Time
	startTime   time.Time
	persists    int
	scans       int
	lastPersist *PersistEvent
	lastScan    *ScanEvent
}

// NewMonitor creates a new monitoring instance
func NewMonitor() *Monitor {
	return newMonitorWithClock(time.Now)
}

func newMonitorWithClock(now func() time.Time) *Monitor {
	return &Monitor{now: now, startTime: now()}
}

// RecordPersist stores the outcome of a save
func (m *Monitor) RecordPersist(err error, took time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	event := &PersistEvent{At: m.now(), OK: err == nil, Duration: took.String()}
	if err != nil {
		event.Error = err.Error()
	}
	m.persists++
	m.lastPersist = event
}

// RecordScan stores the outcome of an extraction
func (m *Monitor) RecordScan(outcome string, took time.Duration, items int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scans++
	m.lastScan = &ScanEvent{At: m.now(), Outcome: outcome, Items: items, Duration: took.String()}
}

// Status returns a copy of the current state
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := Status{
		StartedAt:     m.startTime,
		UptimeSeconds: m.now().Sub(m.startTime).Seconds(),
		Persists:      m.persists,
		Scans:         m.scans,
	}
	if m.lastPersist != nil {
		p := *m.lastPersist
		status.LastPersist = &p
	}
	if m.lastScan != nil {
		s := *m.lastScan
		status.LastScan = &s
	}
	return status
}

// Reset forgets every recorded event and restarts the uptime clock
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.startTime = m.now()
	m.persists, m.scans = 0, 0
	m.lastPersist, m.lastScan = nil, nil
}
