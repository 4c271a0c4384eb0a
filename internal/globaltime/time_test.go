package globaltime

import (
	"testing"
	"time"
)

func TestMockTime(t *testing.T) {
	fixed := time.Date(2026, 3, 9, 12, 0, 0, 0, time.FixedZone("EST", -5*3600))
	SetMockTime(fixed)
	defer ResetTime()

	if got := UTC(); !got.Equal(fixed) || got.Location() != time.UTC {
		t.Fatalf("expected mocked UTC time, got %v", got)
	}
	if got := Since(fixed.Add(-90 * time.Second)); got != 90*time.Second {
		t.Fatalf("expected 90s since, got %v", got)
	}

	ResetTime()
	if time.Since(Now()) > time.Minute {
		t.Fatalf("expected wall clock after reset")
	}
}
