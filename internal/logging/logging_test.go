package logging

import "testing"

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(42), "unknown(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGetLevelIsStable(t *testing.T) {
	// The level is latched on first use; repeated calls must agree.
	first := GetLevel()
	for i := 0; i < 3; i++ {
		if got := GetLevel(); got != first {
			t.Fatalf("GetLevel() changed between calls: %v != %v", got, first)
		}
	}
}
