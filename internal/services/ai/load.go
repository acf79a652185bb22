package ai

import (
	"sync"
	"time"
)

// LoadSignal reports whether the system is under high load. The decision
// manager consults it to downgrade configurations before dispatch.
type LoadSignal interface {
	HighLoad() bool
}

const (
	// loadWindowSize is how many recent gateway calls feed the signal
	loadWindowSize = 50
	// loadMinSamples is the minimum sample count before the signal can fire
	loadMinSamples = 10
	// loadErrorRateThreshold marks high load when exceeded
	loadErrorRateThreshold = 0.2
	// loadLatencyThreshold marks high load when average latency exceeds it
	loadLatencyThreshold = 10 * time.Second
)

type loadSample struct {
	success bool
	latency time.Duration
}

// LoadMonitor derives a load signal from a rolling window of gateway call
// outcomes: elevated error rate or sustained slow responses both count as
// high load.
type LoadMonitor struct {
	mu      sync.Mutex
	samples []loadSample
	next    int
	filled  bool
}

// NewLoadMonitor creates an empty load monitor.
func NewLoadMonitor() *LoadMonitor {
	return &LoadMonitor{samples: make([]loadSample, loadWindowSize)}
}

// Record adds one gateway call outcome to the rolling window.
func (m *LoadMonitor) Record(success bool, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples[m.next] = loadSample{success: success, latency: latency}
	m.next++
	if m.next == len(m.samples) {
		m.next = 0
		m.filled = true
	}
}

// HighLoad reports whether recent calls show an elevated error rate or
// sustained slow responses. With too few samples it always reports false.
func (m *LoadMonitor) HighLoad() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := m.next
	if m.filled {
		count = len(m.samples)
	}
	if count < loadMinSamples {
		return false
	}

	failures := 0
	var totalLatency time.Duration
	for i := 0; i < count; i++ {
		if !m.samples[i].success {
			failures++
		}
		totalLatency += m.samples[i].latency
	}

	if float64(failures)/float64(count) > loadErrorRateThreshold {
		return true
	}
	return totalLatency/time.Duration(count) > loadLatencyThreshold
}
