package ai

import (
	"testing"
	"time"
)

func TestLoadMonitor_QuietWithFewSamples(t *testing.T) {
	t.Parallel()

	m := NewLoadMonitor()
	for i := 0; i < loadMinSamples-1; i++ {
		m.Record(false, time.Minute)
	}
	if m.HighLoad() {
		t.Error("signal must stay quiet below the minimum sample count")
	}
}

func TestLoadMonitor_ErrorRateTriggers(t *testing.T) {
	t.Parallel()

	m := NewLoadMonitor()
	for i := 0; i < 7; i++ {
		m.Record(true, 100*time.Millisecond)
	}
	for i := 0; i < 3; i++ {
		m.Record(false, 100*time.Millisecond)
	}
	// 30% failures over 10 samples exceeds the 20% threshold.
	if !m.HighLoad() {
		t.Error("elevated error rate should report high load")
	}
}

func TestLoadMonitor_LatencyTriggers(t *testing.T) {
	t.Parallel()

	m := NewLoadMonitor()
	for i := 0; i < 10; i++ {
		m.Record(true, 12*time.Second)
	}
	if !m.HighLoad() {
		t.Error("sustained slow responses should report high load")
	}
}

func TestLoadMonitor_HealthyTraffic(t *testing.T) {
	t.Parallel()

	m := NewLoadMonitor()
	for i := 0; i < 20; i++ {
		m.Record(true, 200*time.Millisecond)
	}
	if m.HighLoad() {
		t.Error("healthy traffic should not report high load")
	}
}

func TestLoadMonitor_WindowWrapsAround(t *testing.T) {
	t.Parallel()

	m := NewLoadMonitor()
	// Fill the window with failures, then overwrite it with successes.
	for i := 0; i < loadWindowSize; i++ {
		m.Record(false, time.Second)
	}
	for i := 0; i < loadWindowSize; i++ {
		m.Record(true, 100*time.Millisecond)
	}
	if m.HighLoad() {
		t.Error("old failures outside the rolling window must not count")
	}
}
