package liveness

import (
	"testing"
	"time"
)

func TestClassifyHealthy(t *testing.T) {
	got := classify(2*time.Second, 1*time.Second, 3)
	if got != StatusHealthy {
		t.Errorf("got %s, want %s", got, StatusHealthy)
	}
}

func TestClassifyExactlyAtHealthyBound(t *testing.T) {
	got := classify(3*time.Second, 1*time.Second, 3)
	if got != StatusHealthy {
		t.Errorf("got %s, want %s", got, StatusHealthy)
	}
}

func TestClassifyUnhealthy(t *testing.T) {
	got := classify(3001*time.Millisecond, 1*time.Second, 3)
	if got != StatusUnhealthy {
		t.Errorf("got %s, want %s", got, StatusUnhealthy)
	}
}

func TestClassifyExactlyAtUnhealthyBound(t *testing.T) {
	got := classify(9*time.Second, 1*time.Second, 3)
	if got != StatusUnhealthy {
		t.Errorf("got %s, want %s", got, StatusUnhealthy)
	}
}

func TestClassifyDead(t *testing.T) {
	got := classify(9001*time.Millisecond, 1*time.Second, 3)
	if got != StatusDead {
		t.Errorf("got %s, want %s", got, StatusDead)
	}
}

func TestClassifyDefaultMaxMissedPulses(t *testing.T) {
	// pulseInterval=1s, maxMissedPulses=3: mirrors spec's worked example
	// (unhealthy at ~3s, dead at ~9s).
	if got := classify(1*time.Second, 1*time.Second, 3); got != StatusHealthy {
		t.Errorf("got %s at 1s", got)
	}
	if got := classify(4*time.Second, 1*time.Second, 3); got != StatusUnhealthy {
		t.Errorf("got %s at 4s", got)
	}
	if got := classify(10*time.Second, 1*time.Second, 3); got != StatusDead {
		t.Errorf("got %s at 10s", got)
	}
}
