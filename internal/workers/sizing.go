package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Count sizes a worker pool from the available CPUs. GOMAXPROCS reflects
// container CPU limits (Go 1.19+), so the result respects cgroup quotas.
// The multiplier adjusts for the task profile (1.0 CPU-bound, 2.0 I/O-bound,
// 1.5 mixed) and limit caps the result; 0 means no cap.
//
// The BOOKMARKS_WORKERS environment variable overrides the computed count.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv("BOOKMARKS_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	count := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if count < 1 {
		count = 1
	}
	if limit > 0 && count > limit {
		count = limit
	}
	return count
}

// ForIO sizes a pool for I/O-bound work, two workers per CPU.
func ForIO(limit int) int { return Count(2.0, limit) }

// ForMixed sizes a pool for mixed work, 1.5 workers per CPU.
func ForMixed(limit int) int { return Count(1.5, limit) }
