package workers

import (
	"os"
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv("BOOKMARKS_WORKERS", "")
	os.Unsetenv("BOOKMARKS_WORKERS")

	available := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		min        int
		max        int
	}{
		{"cpu bound", 1.0, 0, 1, available},
		{"io bound", 2.0, 0, 1, available * 2},
		{"mixed", 1.5, 0, 1, int(float64(available) * 1.5)},
		{"capped", 2.0, 2, 1, 2},
		{"tiny multiplier", 0.1, 0, 1, maxOf(1, int(float64(available)*0.1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < tt.min || got > tt.max {
				t.Errorf("Count(%v, %d) = %d, want %d..%d", tt.multiplier, tt.limit, got, tt.min, tt.max)
			}
		})
	}
}

func TestCountEnvOverride(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		limit    int
		want     int
	}{
		{"valid override", "8", 0, 8},
		{"override capped by limit", "20", 10, 10},
		{"override below limit", "5", 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BOOKMARKS_WORKERS", tt.envValue)
			if got := Count(1.0, tt.limit); got != tt.want {
				t.Errorf("Count(1.0, %d) with BOOKMARKS_WORKERS=%s = %d, want %d",
					tt.limit, tt.envValue, got, tt.want)
			}
		})
	}
}

func TestCountIgnoresBadOverride(t *testing.T) {
	for _, bad := range []string{"invalid", "0", "-5"} {
		t.Setenv("BOOKMARKS_WORKERS", bad)
		if got := Count(1.0, 0); got < 1 {
			t.Errorf("Count with BOOKMARKS_WORKERS=%s = %d, want >= 1", bad, got)
		}
	}
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}
