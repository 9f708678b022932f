package domain

import (
	"testing"
	"time"
)

func TestCatchUp(t *testing.T) {
	const interval = 16 * time.Millisecond
	tests := []struct {
		name        string
		debt        time.Duration
		max         int
		wantTicks   int
		wantSkipped int
		wantRemain  time.Duration
	}{
		{"not yet due", 10 * time.Millisecond, 5, 0, 0, 10 * time.Millisecond},
		{"exactly one", interval, 5, 1, 0, 0},
		{"one with remainder", 20 * time.Millisecond, 5, 1, 0, 4 * time.Millisecond},
		{"catch up three", 3*interval + time.Millisecond, 5, 3, 0, time.Millisecond},
		{"capped", 10*interval + 2*time.Millisecond, 4, 4, 6, 2 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticks, skipped, remain := catchUp(tt.debt, interval, tt.max)
			if ticks != tt.wantTicks || skipped != tt.wantSkipped || remain != tt.wantRemain {
				t.Fatalf("catchUp(%v) = (%d, %d, %v), want (%d, %d, %v)",
					tt.debt, ticks, skipped, remain, tt.wantTicks, tt.wantSkipped, tt.wantRemain)
			}
		})
	}
}
